package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type addItemRequest struct {
	ProductID string `validate:"required"`
	Name      string `validate:"required"`
	Quantity  int    `validate:"required,gt=0"`
}

func TestValidate_Valid(t *testing.T) {
	req := addItemRequest{ProductID: "p-1", Name: "Widget", Quantity: 2}
	assert.NoError(t, Validate(req))
}

func TestValidate_MissingFields(t *testing.T) {
	err := Validate(addItemRequest{Quantity: 1})
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)

	fields := valErr.Fields()
	assert.Contains(t, fields, "ProductID")
	assert.Contains(t, fields, "Name")
	assert.Equal(t, "is required", fields["ProductID"])
}

func TestValidate_NonPositiveQuantity(t *testing.T) {
	err := Validate(addItemRequest{ProductID: "p-1", Name: "Widget", Quantity: 0})
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, valErr.Error(), "Quantity")
}
