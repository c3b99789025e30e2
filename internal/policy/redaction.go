package policy

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phonePattern = regexp.MustCompile(`\+?[0-9][0-9\-() ]{7,}[0-9]`)
)

// RedactPII masks email addresses and phone numbers in free text such as
// upstream error bodies.
func RedactPII(input string) (redacted string, changed bool) {
	out := emailPattern.ReplaceAllStringFunc(input, MaskEmail)
	out = phonePattern.ReplaceAllString(out, "[REDACTED_PHONE]")
	return out, out != input
}

// MaskEmail keeps the first character of the local part and the domain:
// "tiger@company.com" becomes "t***@company.com".
func MaskEmail(addr string) string {
	at := strings.LastIndex(addr, "@")
	if at <= 0 {
		if addr == "" {
			return ""
		}
		return "[REDACTED_EMAIL]"
	}
	return addr[:1] + "***" + addr[at:]
}

// Snippet trims body to at most max bytes of redacted text for logs and error
// details.
func Snippet(body []byte, max int) string {
	s, _ := RedactPII(strings.TrimSpace(string(body)))
	if max > 0 && len(s) > max {
		cut := max
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		return s[:cut] + "..."
	}
	return s
}
