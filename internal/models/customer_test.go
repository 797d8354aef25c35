package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCustomer_SetName_TruncatesLongNames(t *testing.T) {
	customer := &Customer{}

	customer.SetName(strings.Repeat("a", 50), strings.Repeat("b", 50))

	assert.Equal(t, CustomerFirstNameMax, len(customer.FirstName))
	assert.Equal(t, CustomerLastNameMax, len(customer.LastName))
}

func TestCustomer_SetName_KeepsShortNames(t *testing.T) {
	customer := &Customer{}

	customer.SetName("John", "Doe")

	assert.Equal(t, "John", customer.FirstName)
	assert.Equal(t, "Doe", customer.LastName)
}
