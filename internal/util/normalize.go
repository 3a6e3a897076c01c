package util

import (
	"net/mail"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// UnknownSender is the display name used when a From header has no usable name.
const UnknownSender = "Unknown"

var angleAddr = regexp.MustCompile(`^(.*?)<([^>]+)>`)

// CanonicalEmail lower-cases and trims an address. It is the dedup key for senders.
func CanonicalEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ParseFrom splits a From header into a display name and an address.
// - Parses RFC 5322 values like "Name <user@Example.COM>" (encoded words decoded)
// - Falls back to a loose "name <addr>" match for headers net/mail rejects
// - Otherwise treats the whole trimmed value as the address
// The address is returned as written; use CanonicalEmail for grouping.
func ParseFrom(fromHeader string) (name, email string) {
	fromHeader = strings.TrimSpace(fromHeader)
	if fromHeader == "" {
		return UnknownSender, ""
	}
	if addr, err := mail.ParseAddress(fromHeader); err == nil && addr != nil {
		email = strings.TrimSpace(addr.Address)
		name = strings.TrimSpace(addr.Name)
	} else if m := angleAddr.FindStringSubmatch(fromHeader); m != nil {
		name = strings.Trim(strings.TrimSpace(m[1]), `"'`)
		email = strings.TrimSpace(m[2])
	} else {
		email = fromHeader
	}
	if name == "" {
		name = nameFromAddress(CanonicalEmail(email))
	}
	return name, email
}

// nameFromAddress turns the local part into a readable name:
// "jane.doe@x.com" -> "Jane Doe".
func nameFromAddress(email string) string {
	at := strings.IndexByte(email, '@')
	if at <= 0 {
		if email == "" {
			return UnknownSender
		}
		return email
	}
	parts := strings.FieldsFunc(email[:at], func(r rune) bool { return r == '.' || r == '_' })
	for i := range parts {
		r, size := utf8.DecodeRuneInString(parts[i])
		parts[i] = string(unicode.ToUpper(r)) + parts[i][size:]
	}
	if len(parts) == 0 {
		return UnknownSender
	}
	return strings.Join(parts, " ")
}
