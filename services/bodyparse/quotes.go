package bodyparse

import "regexp"

// quoteMarkers are evaluated for the earliest match in the body; everything
// after the winning marker is quoted history and gets discarded. Order
// breaks offset ties.
var quoteMarkers = []*regexp.Regexp{
	// quote containers produced by common mail clients
	regexp.MustCompile(`(?i)<(?:div|blockquote)[^>]*class="[^"]*\b(?:gmail_quote|yahoo_quoted|moz-cite-prefix|quote)\b[^"]*"[^>]*>`),
	// explicit reply separator inserted into help-desk notifications
	regexp.MustCompile(`(?i)-{2,}\s*(?:Replied Above|Please reply above this line)\s*-{2,}`),
	// "On <date>, <name> wrote:" attribution lines
	regexp.MustCompile(`(?im)^[>\s]*On\s.{1,200}?wrote:`),
	// embedded header block of a quoted message
	regexp.MustCompile(`(?im)^[>\s]*\*?From:\*?\s`),
	// long underscore rules used as signature/quote separators
	regexp.MustCompile(`_{10,}`),
}

// SplitNewContent extracts the new content of a message body, discarding
// quoted reply history. Non-replies pass through untouched apart from
// line-break conversion on plain text. The split is rejected when nothing
// visible would remain before the marker, so a message whose content sits
// below a boilerplate signature is kept whole.
func SplitNewContent(body string, isHTML, isReply bool) string {
	if !isReply {
		if isHTML {
			return body
		}
		return nl2br(body)
	}

	content := body
	if isHTML {
		content = unwrapHTMLBody(content)
	}

	if cut := earliestMarkerOffset(content); cut >= 0 {
		head := content[:cut]
		if hasVisibleContent(head) {
			content = head
		}
	}

	if !isHTML {
		content = nl2br(content)
	}

	return content
}

// earliestMarkerOffset returns the byte offset of the first quote marker in
// the content, or -1 when no marker matches.
func earliestMarkerOffset(content string) int {
	best := -1
	for _, marker := range quoteMarkers {
		loc := marker.FindStringIndex(content)
		if loc == nil {
			continue
		}
		if best == -1 || loc[0] < best {
			best = loc[0]
		}
	}
	return best
}
