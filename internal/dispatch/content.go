package dispatch

import (
	"html"
	"regexp"
	"strings"
)

var (
	reBreak  = regexp.MustCompile(`(?i)<br\s*/?>`)
	rePClose = regexp.MustCompile(`(?i)</p\s*>`)
	rePOpen  = regexp.MustCompile(`(?i)<p(?:\s[^>]*)?>`)
	reTag    = regexp.MustCompile(`<[^>]*>`)
)

// PlainText converts a rich-text (HTML) message body into a plain string for
// a text-only transport: entities are decoded, <br> and </p> become newlines,
// <p> is removed, every remaining tag is stripped, and the result is trimmed.
//
// Malformed markup degrades to best-effort plain text; there is no failure
// mode. Already-plain input comes back unchanged apart from trimming.
func PlainText(body string) string {
	s := html.UnescapeString(body)
	s = reBreak.ReplaceAllString(s, "\n")
	s = rePClose.ReplaceAllString(s, "\n")
	s = rePOpen.ReplaceAllString(s, "")
	s = reTag.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}
