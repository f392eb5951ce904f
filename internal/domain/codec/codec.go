package codec

import (
	"encoding/base64"
	"encoding/hex"
	"net/url"
	"strings"
	"time"
)

const (
	// keyOffset is the number of leading characters dropped from the
	// reversed base64 seed. Fixed for compatibility with existing clients.
	keyOffset = 6
	// keySize caps the repeating XOR key length.
	keySize = 8
)

// Token is the result of encoding a URL.
type Token struct {
	Hex string
	// Obfuscated is false when the derived key was empty and Hex is the
	// plain hex of the URL bytes. Such tokens still decode with the same codec.
	Obfuscated bool
}

// Codec encodes and decodes URLs with a date and host seeded keystream.
type Codec struct {
	now func() time.Time
}

// New creates a codec. A nil clock defaults to time.Now.
func New(now func() time.Time) *Codec {
	if now == nil {
		now = time.Now
	}
	return &Codec{now: now}
}

// Key returns the XOR key for host at the codec's current time.
func (c *Codec) Key(host string) []byte {
	return DeriveKey(c.now(), host)
}

// DeriveKey computes the keystream key from the UTC date of t and host.
// See the package documentation for which part of the seed reaches the key.
func DeriveKey(t time.Time, host string) []byte {
	seed := t.UTC().Format("2006-01-02") + strings.TrimSpace(host)
	encoded := []byte(base64.StdEncoding.EncodeToString([]byte(seed)))
	for i, j := 0, len(encoded)-1; i < j; i, j = i+1, j-1 {
		encoded[i], encoded[j] = encoded[j], encoded[i]
	}
	if len(encoded) <= keyOffset {
		return nil
	}
	key := encoded[keyOffset:]
	if len(key) > keySize {
		key = key[:keySize]
	}
	return key
}

// EncodeToken obfuscates rawURL for host.
func (c *Codec) EncodeToken(rawURL, host string) Token {
	key := c.Key(host)
	src := []byte(rawURL)
	if len(key) == 0 {
		return Token{Hex: hex.EncodeToString(src)}
	}
	out := make([]byte, len(src))
	for i, b := range src {
		out[i] = b ^ key[i%len(key)]
	}
	return Token{Hex: hex.EncodeToString(out), Obfuscated: true}
}

// Encode obfuscates rawURL for host and returns the lowercase hex token.
func (c *Codec) Encode(rawURL, host string) string {
	if rawURL == "" {
		return ""
	}
	return c.EncodeToken(rawURL, host).Hex
}

// Decode reverses Encode. Anything after the leading hex run (query,
// fragment, extra path) is appended to the decoded URL unchanged. Inputs
// that do not start with an even hex run of at least two characters are
// percent-decoded instead. Decode never fails: malformed escapes return s.
func (c *Codec) Decode(s, host string) string {
	if s == "" {
		return s
	}

	n := HexRunLength(s)
	if n < 2 || n%2 != 0 {
		return percentDecode(s)
	}

	raw, err := hex.DecodeString(s[:n])
	if err != nil {
		return percentDecode(s)
	}
	key := c.Key(host)
	if len(key) > 0 {
		for i := range raw {
			raw[i] ^= key[i%len(key)]
		}
	}
	return strings.ToValidUTF8(string(raw), "\uFFFD") + s[n:]
}

// HexRunLength returns the length of the hex payload at the start of s. The
// scan stops at the first non-hex character and never passes the earliest
// '?', '#' or '&'.
func HexRunLength(s string) int {
	limit := len(s)
	for _, sep := range []string{"?", "#", "&"} {
		if i := strings.Index(s, sep); i >= 0 && i < limit {
			limit = i
		}
	}

	n := 0
	for i := 0; i < limit; i++ {
		if !isHex(s[i]) {
			break
		}
		n = i + 1
	}
	return n
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func percentDecode(s string) string {
	decoded, err := url.PathUnescape(s)
	if err != nil {
		return s
	}
	return decoded
}
