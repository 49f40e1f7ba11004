package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestIsUniqueViolation(t *testing.T) {
	dup := &pq.Error{Code: "23505", Constraint: "orders_order_number_key"}

	assert.True(t, IsUniqueViolation(dup, "orders_order_number_key"))
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert order: %w", dup), ""))
	assert.False(t, IsUniqueViolation(dup, "payments_order_id_key"))
	assert.False(t, IsUniqueViolation(&pq.Error{Code: "23503"}, ""))
	assert.False(t, IsUniqueViolation(errors.New("boom"), ""))
}
