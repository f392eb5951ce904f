package route

import (
	"net/url"
	"strings"
)

// EncodeURIComponent escapes s the way browsers do for a single URI
// component: everything except A-Z a-z 0-9 - _ . ! ~ * ' ( ) is
// percent-encoded as UTF-8.
func EncodeURIComponent(s string) string {
	const upperhex = "0123456789ABCDEF"

	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isComponentSafe(c) {
			sb.WriteByte(c)
			continue
		}
		sb.WriteByte('%')
		sb.WriteByte(upperhex[c>>4])
		sb.WriteByte(upperhex[c&0x0f])
	}
	return sb.String()
}

// DecodeURIComponent reverses EncodeURIComponent. '+' is kept literally.
func DecodeURIComponent(s string) (string, error) {
	return url.PathUnescape(s)
}

func isComponentSafe(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	}
	switch c {
	case '-', '_', '.', '!', '~', '*', '\'', '(', ')':
		return true
	}
	return false
}
