package shortener

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"
)

const (
	// MaxURLLength bounds the long URLs accepted for shortening.
	MaxURLLength = 2048
	// MaxTitleLength bounds titles in bytes so they always fit the user_links column.
	MaxTitleLength = 255
)

// ValidateURL checks that rawURL is an absolute http or https URL with a host.
// The URL is stored exactly as given; no normalization is applied.
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("%w: empty", ErrInvalidURL)
	}

	if len(rawURL) > MaxURLLength {
		return fmt.Errorf("%w: longer than %d bytes", ErrInvalidURL, MaxURLLength)
	}

	if !utf8.ValidString(rawURL) {
		return fmt.Errorf("%w: not valid utf-8", ErrInvalidURL)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return fmt.Errorf("%w: scheme must be http or https", ErrInvalidURL)
	}

	if u.Host == "" {
		return fmt.Errorf("%w: missing host", ErrInvalidURL)
	}

	return nil
}

// ValidateTitle checks a free-text title against storage constraints.
func ValidateTitle(title string) error {
	if len(title) > MaxTitleLength {
		return fmt.Errorf("%w: longer than %d bytes", ErrInvalidTitle, MaxTitleLength)
	}

	if !utf8.ValidString(title) {
		return fmt.Errorf("%w: not valid utf-8", ErrInvalidTitle)
	}

	return nil
}

// HashURL returns the hex-encoded SHA256 of a long URL.
// Stores and caches index by it so that arbitrarily long URLs fit in a key.
func HashURL(longURL string) string {
	h := sha256.Sum256([]byte(longURL))

	return hex.EncodeToString(h[:])
}
