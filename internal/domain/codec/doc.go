// Package codec implements the reversible URL obfuscation used for primary
// transport paths.
//
// A target URL is XORed with a short keystream derived from the current UTC
// date and the request host, then rendered as lowercase hex. The key is
// recomputable by anyone who knows the day and the host, so this hides URLs
// from casual inspection only. It is not encryption.
//
// Key derivation:
//
//	seed    = "YYYY-MM-DD" + host
//	encoded = reverse(base64(seed))[6:]
//	key     = first 8 bytes of encoded
//
// Only eight characters of the reversed seed reach the key. For hosts of
// eleven or more bytes those all come from the host, so the key never
// changes with the date. Shorter hosts pull in the year and month digits,
// never the day. A token decoded under a different key silently yields
// garbage.
//
// Example Usage:
//
//	c := codec.New(nil)
//	token := c.Encode("https://example.com/", "portal.local")
//	url := c.Decode(token, "portal.local")
package codec
