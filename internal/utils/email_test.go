package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractEmailFromString(t *testing.T) {
	assert.Equal(t, "john@example.com", ExtractEmailFromString("John Doe <john@example.com>"))
	assert.Equal(t, "john@example.com", ExtractEmailFromString("john@example.com"))
	assert.Equal(t, "", ExtractEmailFromString(""))
}

func TestExtractDomainFromEmail(t *testing.T) {
	assert.Equal(t, "example.com", ExtractDomainFromEmail("john@example.com"))
	assert.Equal(t, "", ExtractDomainFromEmail("not-an-email"))
}
