package bodyparse

import (
	"regexp"
	"strings"

	"github.com/customeros/mailsherpa/mailvalidate"

	"github.com/opendesk/mailroom/dto"
	"github.com/opendesk/mailroom/services/addresses"
)

const emailPattern = `[A-Za-z0-9._%+\-']+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`

var (
	fwdMarkerRe = regexp.MustCompile(`(?i)@fwd\b`)
	cidTokenRe  = regexp.MustCompile(`(?i)\bcid:[^\s"'<>]+`)

	// From: header line inside a forwarded body, with an optionally quoted
	// display name and the address in angle brackets or bare
	fwdFromLineRe = regexp.MustCompile(`(?im)^[>\s*]*From:?\s*"?([^"<\r\n]*?)"?\s*(?:<|&lt;)?\s*(` + emailPattern + `)\s*(?:>|&gt;)?`)

	fwdFallbackRes = []*regexp.Regexp{
		regexp.MustCompile(`'(` + emailPattern + `)'`),
		regexp.MustCompile(`"(` + emailPattern + `)"`),
		regexp.MustCompile(`(?:<|&lt;)\s*(` + emailPattern + `)\s*(?:>|&gt;)`),
		regexp.MustCompile(`(?i)Sender:\s*(` + emailPattern + `)`),
		regexp.MustCompile(`;\s*(` + emailPattern + `)`),
	}
)

// ExtractOriginalSender scans a message body for the sender of a forwarded
// message. The primary signal is a From: header line embedded in the body;
// looser patterns are tried only when no such line exists. Returns nil when
// the body does not look like a forward, which callers must treat as "not a
// forward" rather than a failure.
func ExtractOriginalSender(body string) *dto.Participant {
	cleaned := fwdMarkerRe.ReplaceAllString(body, "")
	cleaned = cidTokenRe.ReplaceAllString(cleaned, "")

	if match := fwdFromLineRe.FindStringSubmatch(cleaned); match != nil {
		return buildSender(match[2], match[1])
	}

	for _, re := range fwdFallbackRes {
		if match := re.FindStringSubmatch(cleaned); match != nil {
			return buildSender(match[1], "")
		}
	}

	return nil
}

func buildSender(email, name string) *dto.Participant {
	validation := mailvalidate.ValidateEmailSyntax(strings.TrimSpace(email))
	if !validation.IsValid {
		return nil
	}

	// "Last, First" display names flip to natural order before splitting
	name = strings.TrimSpace(name)
	if comma := strings.Index(name, ","); comma >= 0 {
		name = strings.TrimSpace(name[comma+1:]) + " " + strings.TrimSpace(name[:comma])
	}

	firstName, lastName := addresses.SplitName(name)

	return &dto.Participant{
		Email:     validation.CleanEmail,
		FirstName: firstName,
		LastName:  lastName,
	}
}
