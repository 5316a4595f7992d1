// Package util holds the value checks shared by the channel adapters.
package util

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	// ErrInvalidPhone is returned when a phone number is not a plain digit string
	// with country and area code.
	ErrInvalidPhone = errors.New("invalid phone number")
	// ErrInvalidURL indicates that a URL failed validation.
	ErrInvalidURL = errors.New("invalid url")
	// ErrInvalidTemplateID indicates a template identifier is malformed.
	ErrInvalidTemplateID = errors.New("invalid template id")
)

var (
	phoneDigits     = regexp.MustCompile(`^[0-9]{8,15}$`)
	templateIDShape = regexp.MustCompile(`^[A-Za-z0-9_.:-]{1,64}$`)
	phoneNoise      = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "", "+", "")
)

// nonBlank trims value and fails with sentinel when nothing is left.
func nonBlank(value string, sentinel error) (string, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return "", fmt.Errorf("%w: value is empty", sentinel)
	}
	return v, nil
}

// NormalizePhone strips formatting characters and returns the bare digit
// string the provider expects, e.g. 5511999999999.
func NormalizePhone(value string) (string, error) {
	v, err := nonBlank(value, ErrInvalidPhone)
	if err != nil {
		return "", err
	}
	if digits := phoneNoise.Replace(v); phoneDigits.MatchString(digits) {
		return digits, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPhone, v)
}

// EnsureMaxRunes fails when value is longer than max characters. A max of zero
// or less disables the check.
func EnsureMaxRunes(field, value string, max int) error {
	if n := utf8.RuneCountInString(value); max > 0 && n > max {
		return fmt.Errorf("%s exceeds maximum length of %d characters (got %d)", field, max, n)
	}
	return nil
}

// Truncate cuts value to at most limit runes, ending it with "..." when it had
// to be shortened.
func Truncate(value string, limit int) string {
	switch {
	case limit <= 0:
		return ""
	case utf8.RuneCountInString(value) <= limit:
		return value
	}
	runes := []rune(value)
	if limit <= 3 {
		return string(runes[:limit])
	}
	return string(runes[:limit-3]) + "..."
}

// ValidateHTTPURL accepts absolute http and https URLs only.
func ValidateHTTPURL(value string) (string, error) {
	v, err := nonBlank(value, ErrInvalidURL)
	if err != nil {
		return "", err
	}
	u, err := url.Parse(v)
	switch {
	case err != nil:
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	case u.Scheme != "http" && u.Scheme != "https":
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	case u.Host == "":
		return "", fmt.Errorf("%w: host is required", ErrInvalidURL)
	}
	return v, nil
}

// ValidateTemplateID enforces the identifier shape used by the provider
// catalogs: numeric ids or short slugs.
func ValidateTemplateID(value string) (string, error) {
	v, err := nonBlank(value, ErrInvalidTemplateID)
	if err != nil {
		return "", err
	}
	if !templateIDShape.MatchString(v) {
		return "", fmt.Errorf("%w: %q", ErrInvalidTemplateID, v)
	}
	return v, nil
}
