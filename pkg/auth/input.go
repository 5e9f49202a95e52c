package auth

import (
	"errors"
	"fmt"
	"html"
	"net/mail"
	"regexp"
	"strings"
	"unicode"
)

const maxEmailLength = 254

var (
	errEmailRequired   = errors.New("email address is required")
	errEmailFormat     = errors.New("invalid email address format")
	errEmailDisposable = errors.New("disposable email addresses are not allowed")
)

var strictEmail = regexp.MustCompile(`^[a-zA-Z0-9.!#$%&'*+/=?^_` + "`" + `{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$`)

var disposableDomains = map[string]struct{}{
	"10minutemail.com":  {},
	"guerrillamail.com": {},
	"mailinator.com":    {},
	"tempmail.com":      {},
	"throwaway.email":   {},
	"yopmail.com":       {},
}

// ValidateEmail checks that email parses as a single address. Strict mode
// additionally rejects display names and exotic syntax.
func ValidateEmail(email string, strict, blockDisposable bool) error {
	if strings.TrimSpace(email) == "" {
		return errEmailRequired
	}
	if len(email) > maxEmailLength {
		return fmt.Errorf("email address is too long (max %d characters)", maxEmailLength)
	}

	addr, err := mail.ParseAddress(NormalizeEmail(email))
	if err != nil {
		return errEmailFormat
	}
	if strict && !strictEmail.MatchString(addr.Address) {
		return errEmailFormat
	}
	if blockDisposable {
		if _, ok := disposableDomains[emailDomain(addr.Address)]; ok {
			return errEmailDisposable
		}
	}
	return nil
}

// NormalizeEmail lowercases and trims an address. Stored addresses are
// always normalized.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func emailDomain(email string) string {
	at := strings.LastIndexByte(email, '@')
	if at < 0 {
		return ""
	}
	return strings.ToLower(email[at+1:])
}

// SanitizeName collapses whitespace in a display name, drops control
// characters and escapes HTML.
func SanitizeName(name string) string {
	return html.EscapeString(strings.Join(strings.Fields(stripControl(name)), " "))
}

// SanitizeText is SanitizeName for free text such as onboarding goals, where
// line breaks are kept.
func SanitizeText(s string) string {
	return html.EscapeString(stripControl(strings.TrimSpace(s)))
}

func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}
