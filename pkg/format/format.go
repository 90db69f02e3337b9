// Package format renders user-supplied forum text as safe HTML.
package format

import (
	"html"
	"regexp"
	"strings"
)

var (
	boldPattern = regexp.MustCompile(`\*\*(.+?)\*\*`)
	linkPattern = regexp.MustCompile(`https?://[^\s<*]+`)
)

// Plain escapes text for literal display
func Plain(text string) string {
	return html.EscapeString(text)
}

// Rich escapes text, then renders **bold**, bare links and line breaks.
// Markup is applied to the escaped string, so user HTML never survives.
// Bold goes first so a link never runs into a closing tag.
func Rich(text string) string {
	out := html.EscapeString(text)
	out = boldPattern.ReplaceAllString(out, `<strong>$1</strong>`)
	out = linkPattern.ReplaceAllString(out, `<a href="$0" target="_blank" rel="noopener">$0</a>`)
	out = strings.ReplaceAll(out, "\r\n", "\n")
	return strings.ReplaceAll(out, "\n", "<br>")
}
