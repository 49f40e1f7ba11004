package domain

import "github.com/shopspring/decimal"

// CatalogLine is a point-in-time read of a product (or one of its variants).
type CatalogLine struct {
	ProductID      string              `json:"product_id" db:"product_id"`
	VariantID      *string             `json:"variant_id,omitempty" db:"variant_id"`
	DisplayName    string              `json:"display_name" db:"display_name"`
	ListPrice      decimal.Decimal     `json:"list_price" db:"list_price"`
	SalePrice      decimal.NullDecimal `json:"sale_price" db:"sale_price"`
	VATRate        decimal.Decimal     `json:"vat_rate" db:"vat_rate"`
	MinQuantity    int                 `json:"min_quantity" db:"min_quantity"`
	AvailableStock int                 `json:"available_stock" db:"available_stock"`
}

type RequestedLine struct {
	ProductID   string  `json:"product_id"`
	VariantID   *string `json:"variant_id,omitempty"`
	Quantity    int     `json:"quantity"`
	VariantInfo string  `json:"variant_info,omitempty"`
}

func (l RequestedLine) StockKey() StockKey {
	return NewStockKey(l.ProductID, l.VariantID)
}

// StockKey is either a product stock row or a variant stock row.
type StockKey struct {
	ProductID string
	VariantID string
}

func NewStockKey(productID string, variantID *string) StockKey {
	k := StockKey{ProductID: productID}
	if variantID != nil {
		k.VariantID = *variantID
	}
	return k
}

func (k StockKey) IsVariant() bool {
	return k.VariantID != ""
}

func (k StockKey) String() string {
	if k.IsVariant() {
		return k.ProductID + "/" + k.VariantID
	}
	return k.ProductID
}
