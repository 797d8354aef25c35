package utils

import (
	"regexp"
	"strings"
)

var subjectPrefixRe = regexp.MustCompile(`(?i)^(Re|Fwd|Fw)(\[\d+\])?:\s*`)

// NormalizeSubject strips Re:/Fwd:/Fw: prefixes, repeatedly, so a
// "Re: Fwd: Help" subject matches its original conversation subject.
func NormalizeSubject(subject string) string {
	subject = strings.TrimSpace(subject)
	for subjectPrefixRe.MatchString(subject) {
		subject = subjectPrefixRe.ReplaceAllString(subject, "")
		subject = strings.TrimSpace(subject)
	}
	return subject
}

func NormalizeMessageID(messageID string) string {
	messageID = strings.TrimSpace(messageID)
	messageID = strings.TrimPrefix(messageID, "<")
	messageID = strings.TrimSuffix(messageID, ">")
	return messageID
}

// NormalizeMessageIDs maps NormalizeMessageID over a header id list,
// dropping entries that normalize to nothing.
func NormalizeMessageIDs(messageIDs []string) []string {
	var out []string
	for _, id := range messageIDs {
		if normalized := NormalizeMessageID(id); normalized != "" {
			out = append(out, normalized)
		}
	}
	return out
}

// Truncate shortens s to at most max runes. Overflow is cut, not rejected.
func Truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
