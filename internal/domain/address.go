package domain

import "strings"

type ShippingAddress struct {
	Name     string `json:"name" db:"name"`
	Address  string `json:"address" db:"address"`
	City     string `json:"city" db:"city"`
	District string `json:"district,omitempty" db:"district"`
	Phone    string `json:"phone" db:"phone"`
}

// Validate requires every field except District.
func (a ShippingAddress) Validate() error {
	required := []struct {
		field, value string
	}{
		{"name", a.Name},
		{"address", a.Address},
		{"city", a.City},
		{"phone", a.Phone},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return NewValidationError(ReasonInvalidAddress, "shipping address "+r.field+" is required")
		}
	}
	return nil
}
