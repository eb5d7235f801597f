package notifier

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"slices"
	"strings"
)

// SignatureHeader carries the request signature.
const SignatureHeader = "HMAC"

// Canonical serializes fields as key=value pairs sorted by key and joined with
// '&'. Values are percent-encoded with EscapeDataString. The result is what
// gets signed, so it must not depend on map iteration order.
func Canonical(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(EscapeDataString(fields[k]))
	}
	return b.String()
}

// Sign returns the upper-case hex HMAC-SHA512 of canonical keyed by secret.
func Sign(secret, canonical string) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write([]byte(canonical))
	return strings.ToUpper(hex.EncodeToString(mac.Sum(nil)))
}

// Verify checks signature against canonical in constant time. The hex case of
// signature does not matter.
func Verify(secret, canonical, signature string) bool {
	got, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}

	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write([]byte(canonical))
	return hmac.Equal(got, mac.Sum(nil))
}

// EscapeDataString percent-encodes every byte outside the RFC 3986
// unreserved set (ALPHA, DIGIT, '-', '.', '_', '~') using upper-case hex.
// Unlike url.QueryEscape, spaces become %20 rather than '+'.
func EscapeDataString(s string) string {
	const upperhex = "0123456789ABCDEF"

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperhex[c>>4])
		b.WriteByte(upperhex[c&0x0f])
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	case c == '-', c == '.', c == '_', c == '~':
		return true
	}
	return false
}
