// Package shortcode issues the short identifiers links are reached by and
// owns the reserved-word denylist shared by generated codes and custom
// aliases.
package shortcode

import (
	"crypto/rand"
	"strings"
)

const (
	// Alphabet is the URL-safe symbol set codes are drawn from.
	Alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	// Length is the fixed size of a generated code (62^6 combinations).
	Length = 6
)

// reserved identifiers can never be assigned as an alias and a generated
// code that lands on one is discarded. They cover paths the HTTP surface
// owns or may own.
var reserved = map[string]struct{}{
	"api":       {},
	"admin":     {},
	"login":     {},
	"logout":    {},
	"register":  {},
	"signup":    {},
	"signin":    {},
	"dashboard": {},
	"analytics": {},
	"settings":  {},
	"profile":   {},
	"auth":      {},
	"oauth":     {},
	"callback":  {},
	"static":    {},
	"public":    {},
	"assets":    {},
	"images":    {},
	"css":       {},
	"js":        {},
	"fonts":     {},
	"404":       {},
	"not-found": {},
	"error":     {},
	"health":    {},
	"metrics":   {},
}

// Generate returns a fresh candidate code. It is pure with respect to store
// state: uniqueness is the caller's problem, enforced by the store's unique
// constraint and a bounded retry loop.
func Generate() string {
	buf := make([]byte, Length)
	for {
		if _, err := rand.Read(buf); err != nil {
			// crypto/rand never fails on supported platforms; retrying is
			// cheaper than plumbing an error through every caller.
			continue
		}
		break
	}
	for i, b := range buf {
		buf[i] = Alphabet[int(b)%len(Alphabet)]
	}
	code := string(buf)
	if IsReserved(code) {
		return Generate()
	}
	return code
}

// IsReserved reports whether the identifier collides with a reserved system
// path. Matching is case-insensitive.
func IsReserved(identifier string) bool {
	_, ok := reserved[strings.ToLower(identifier)]
	return ok
}
