package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidEmail(t *testing.T) {
	assert.True(t, IsValidEmail("Someone@Example.com"))
	assert.True(t, IsValidEmail("a.b+c@shop.store"))
	assert.False(t, IsValidEmail("missing-at.example.com"))
	assert.False(t, IsValidEmail("a@b"))
	assert.False(t, IsValidEmail(""))
}

func TestValidStatus(t *testing.T) {
	assert.True(t, ValidStatus(OrderShipped, OrderStatuses))
	assert.False(t, ValidStatus(RequestApproved, OrderStatuses))
	assert.True(t, ValidStatus(RequestOrdered, RequestStatuses))
	assert.False(t, ValidStatus("Pending", RequestStatuses))
}

func TestOrderFullName(t *testing.T) {
	assert.Equal(t, "Amina", (&Order{FirstName: "Amina"}).FullName())
	assert.Equal(t, "Amina Haddad", (&Order{FirstName: "Amina", LastName: "Haddad"}).FullName())
}
