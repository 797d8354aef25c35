package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeSubject(t *testing.T) {
	assert.Equal(t, "Help", NormalizeSubject("Re: Help"))
	assert.Equal(t, "Help", NormalizeSubject("Re: Fwd: Help"))
	assert.Equal(t, "Help", NormalizeSubject("FW: fwd: RE: Help"))
	assert.Equal(t, "Help", NormalizeSubject("Re[2]: Help"))
	assert.Equal(t, "Printer broken", NormalizeSubject("  Printer broken  "))
	assert.Equal(t, "", NormalizeSubject(""))
	// a subject that merely contains the prefix mid-string stays intact
	assert.Equal(t, "Question about Re: handling", NormalizeSubject("Question about Re: handling"))
}

func TestNormalizeMessageID(t *testing.T) {
	assert.Equal(t, "abc@example.com", NormalizeMessageID("<abc@example.com>"))
	assert.Equal(t, "abc@example.com", NormalizeMessageID("  abc@example.com "))
	assert.Equal(t, "", NormalizeMessageID("<>"))
}

func TestNormalizeMessageIDs(t *testing.T) {
	got := NormalizeMessageIDs([]string{"<a@x>", "", "<>", "b@x"})
	assert.Equal(t, []string{"a@x", "b@x"}, got)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "hello", Truncate("hello", 10))
	assert.Equal(t, "hel", Truncate("hello", 3))
	// rune-safe
	assert.Equal(t, "héll", Truncate("héllo", 4))
}
