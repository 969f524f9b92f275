package richtext

import "strings"

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
)

// EscapeHTML replaces & < > " ' with entities in a single pass, so existing
// entities in the input are escaped once and never decoded.
func EscapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}

// FirstNonEmpty returns the first candidate that is not blank.
func FirstNonEmpty(candidates ...string) string {
	for _, candidate := range candidates {
		if !isBlank(candidate) {
			return candidate
		}
	}
	return ""
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
