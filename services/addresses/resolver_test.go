package addresses

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/opendesk/mailroom/dto"
)

func TestResolveAll_StringShapes(t *testing.T) {
	participants := ResolveAll("john@example.com")
	assert.Len(t, participants, 1)
	assert.Equal(t, "john@example.com", participants[0].Email)

	participants = ResolveAll("John Doe <john@example.com>")
	assert.Len(t, participants, 1)
	assert.Equal(t, "john@example.com", participants[0].Email)
	assert.Equal(t, "John", participants[0].FirstName)
	assert.Equal(t, "Doe", participants[0].LastName)
}

func TestResolveAll_StructuredRecords(t *testing.T) {
	participants := ResolveAll([]interface{}{
		map[string]interface{}{"mail": "a@example.com", "email": "ignored@example.com", "name": "Alice Smith"},
		map[string]interface{}{"email": "b@example.com"},
	})

	assert.Len(t, participants, 2)
	assert.Equal(t, "a@example.com", participants[0].Email)
	assert.Equal(t, "Alice", participants[0].FirstName)
	assert.Equal(t, "Smith", participants[0].LastName)
	assert.Equal(t, "b@example.com", participants[1].Email)
	assert.Equal(t, "", participants[1].FirstName)
}

func TestResolveAll_EmailAddressSlices(t *testing.T) {
	participants := ResolveAll([]dto.EmailAddress{
		{Name: "Jane Ann Doe", Address: "jane@example.com"},
	})

	assert.Len(t, participants, 1)
	assert.Equal(t, "jane@example.com", participants[0].Email)
	assert.Equal(t, "Jane", participants[0].FirstName)
	assert.Equal(t, "Ann Doe", participants[0].LastName)
}

func TestResolveAll_SkipsInvalidEntries(t *testing.T) {
	participants := ResolveAll([]interface{}{
		"not-an-email",
		map[string]interface{}{"name": "No Email"},
		map[string]interface{}{"mail": 42},
		"ok@example.com",
	})

	assert.Len(t, participants, 1)
	assert.Equal(t, "ok@example.com", participants[0].Email)
}

func TestResolveAll_DegenerateInput(t *testing.T) {
	assert.Empty(t, ResolveAll(nil))
	assert.Empty(t, ResolveAll(false))
	assert.Empty(t, ResolveAll(0))
	assert.Empty(t, ResolveAll(""))
	assert.Empty(t, ResolveAll([]interface{}{}))
}

func TestExtractEmails(t *testing.T) {
	emails := ExtractEmails([]string{"a@example.com", "B Name <b@example.com>", "junk"})
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, emails)
}

func TestSplitName(t *testing.T) {
	first, last := SplitName("John Doe")
	assert.Equal(t, "John", first)
	assert.Equal(t, "Doe", last)

	first, last = SplitName("John Michael van Doe")
	assert.Equal(t, "John", first)
	assert.Equal(t, "Michael van Doe", last)

	first, last = SplitName("Cher")
	assert.Equal(t, "Cher", first)
	assert.Equal(t, "", last)

	first, last = SplitName("")
	assert.Equal(t, "", first)
	assert.Equal(t, "", last)
}

func TestSplitName_TruncatesToDirectoryLimits(t *testing.T) {
	first, last := SplitName("Abcdefghijklmnopqrstuvwxyz Zyxwvutsrqponmlkjihgfedcba12345")
	assert.Len(t, first, 20)
	assert.Len(t, last, 30)
}
