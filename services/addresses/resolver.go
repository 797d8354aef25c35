package addresses

import (
	"fmt"
	"strings"

	"github.com/customeros/mailsherpa/mailvalidate"

	"github.com/opendesk/mailroom/dto"
	"github.com/opendesk/mailroom/internal/models"
	"github.com/opendesk/mailroom/internal/utils"
)

// ResolveAll normalizes heterogeneous address input into participant
// triples. Accepted shapes: plain address strings (bare or
// "Display Name <addr>"), dto.EmailAddress values, maps exposing a
// mail/email field plus an optional name, stringers, and slices of any of
// those. Entries without a usable email are silently skipped; empty, nil,
// false or zero input yields an empty list.
func ResolveAll(raw interface{}) []dto.Participant {
	participants := make([]dto.Participant, 0)

	for _, entry := range normalizeToList(raw) {
		participant, ok := resolveOne(entry)
		if !ok {
			continue
		}
		participants = append(participants, participant)
	}

	return participants
}

// ExtractEmails is the bare-address variant of ResolveAll.
func ExtractEmails(raw interface{}) []string {
	participants := ResolveAll(raw)

	emails := make([]string, 0, len(participants))
	for _, p := range participants {
		emails = append(emails, p.Email)
	}
	return emails
}

func normalizeToList(raw interface{}) []interface{} {
	switch v := raw.(type) {
	case nil:
		return nil
	case bool:
		return nil
	case int:
		return nil
	case []interface{}:
		return v
	case []string:
		entries := make([]interface{}, len(v))
		for i, s := range v {
			entries[i] = s
		}
		return entries
	case []dto.EmailAddress:
		entries := make([]interface{}, len(v))
		for i, a := range v {
			entries[i] = a
		}
		return entries
	case string:
		if v == "" {
			return nil
		}
		return []interface{}{v}
	default:
		return []interface{}{v}
	}
}

func resolveOne(entry interface{}) (dto.Participant, bool) {
	switch v := entry.(type) {
	case string:
		return resolveString(v)
	case dto.EmailAddress:
		return buildParticipant(v.Address, v.Name)
	case map[string]interface{}:
		return resolveRecord(v)
	case fmt.Stringer:
		return resolveString(v.String())
	default:
		return dto.Participant{}, false
	}
}

// resolveRecord handles structured address records. The mail field wins
// over email when both are present; a non-string value disqualifies the
// entry rather than erroring.
func resolveRecord(record map[string]interface{}) (dto.Participant, bool) {
	var email string
	if v, ok := record["mail"]; ok {
		if s, isString := v.(string); isString {
			email = s
		} else {
			return dto.Participant{}, false
		}
	} else if v, ok := record["email"]; ok {
		if s, isString := v.(string); isString {
			email = s
		} else {
			return dto.Participant{}, false
		}
	}

	name := ""
	if v, ok := record["name"]; ok {
		if s, isString := v.(string); isString {
			name = s
		}
	}

	return buildParticipant(email, name)
}

// resolveString accepts a bare address or a "Display Name <addr>" pattern.
func resolveString(raw string) (dto.Participant, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return dto.Participant{}, false
	}

	email := utils.ExtractEmailFromString(raw)

	name := ""
	if idx := strings.LastIndex(raw, "<"); idx > 0 {
		name = strings.TrimSpace(strings.Trim(raw[:idx], ` "`))
	}

	return buildParticipant(email, name)
}

func buildParticipant(email, name string) (dto.Participant, bool) {
	email = strings.TrimSpace(email)
	if email == "" {
		return dto.Participant{}, false
	}

	validation := mailvalidate.ValidateEmailSyntax(email)
	if !validation.IsValid {
		return dto.Participant{}, false
	}

	firstName, lastName := SplitName(name)

	return dto.Participant{
		Email:     validation.CleanEmail,
		FirstName: firstName,
		LastName:  lastName,
	}, true
}

// SplitName breaks a display name on the first whitespace gap: first token
// becomes the first name, the remainder the last name. Both are truncated
// to the customer directory limits.
func SplitName(name string) (string, string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ""
	}

	fields := strings.Fields(name)
	firstName := fields[0]
	lastName := strings.Join(fields[1:], " ")

	return utils.Truncate(firstName, models.CustomerFirstNameMax),
		utils.Truncate(lastName, models.CustomerLastNameMax)
}
