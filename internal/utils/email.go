package utils

import "strings"

// ExtractEmailFromString pulls the address out of "Display Name <addr>"
// forms, returning the input trimmed when no angle brackets are present.
func ExtractEmailFromString(raw string) string {
	raw = strings.TrimSpace(raw)

	if strings.Contains(raw, "<") && strings.Contains(raw, ">") {
		startIdx := strings.LastIndex(raw, "<") + 1
		endIdx := strings.LastIndex(raw, ">")
		if startIdx > 0 && endIdx > startIdx {
			return strings.TrimSpace(raw[startIdx:endIdx])
		}
	}

	return raw
}

func ExtractDomainFromEmail(email string) string {
	email = ExtractEmailFromString(email)

	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return ""
	}

	return strings.ToLower(strings.TrimSpace(parts[1]))
}
