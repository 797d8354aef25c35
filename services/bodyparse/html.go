package bodyparse

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var bodyOpenRe = regexp.MustCompile(`(?is)<body[^>]*>`)

// unwrapHTMLBody extracts the region inside the innermost <body> element so
// doctype, head and style blocks never leak into thread content. Bodies
// without a <body> tag pass through unchanged.
func unwrapHTMLBody(content string) string {
	opens := bodyOpenRe.FindAllStringIndex(content, -1)
	if len(opens) == 0 {
		return content
	}

	// innermost open tag is the last one
	start := opens[len(opens)-1][1]
	rest := content[start:]

	if end := strings.Index(strings.ToLower(rest), "</body>"); end >= 0 {
		return rest[:end]
	}
	return rest
}

// visibleText walks the markup and collects rendered text, skipping script
// and style content. Plain text input passes through the tokenizer as one
// text node.
func visibleText(content string) string {
	tokenizer := html.NewTokenizer(strings.NewReader(content))

	var sb strings.Builder
	skipDepth := 0

	for {
		tokenType := tokenizer.Next()
		switch tokenType {
		case html.ErrorToken:
			return sb.String()
		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			if tag := string(name); tag == "script" || tag == "style" {
				skipDepth++
			}
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			if tag := string(name); (tag == "script" || tag == "style") && skipDepth > 0 {
				skipDepth--
			}
		case html.TextToken:
			if skipDepth == 0 {
				sb.Write(tokenizer.Text())
			}
		}
	}
}

// hasVisibleContent reports whether markup renders any non-whitespace text.
func hasVisibleContent(content string) bool {
	text := visibleText(content)
	text = strings.ReplaceAll(text, "\u00a0", " ")
	return strings.TrimSpace(text) != ""
}

// nl2br converts plain-text line breaks for HTML rendering.
func nl2br(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.ReplaceAll(text, "\n", "<br />\n")
}
