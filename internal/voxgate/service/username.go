package service

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

const MaxUsernameBytes = 64

// ValidateUsername checks the shape of a username. Usernames are compared
// byte for byte afterwards; no case folding or normalisation is applied.
func ValidateUsername(username string) error {
	switch {
	case username == "":
		return fmt.Errorf("%w: empty", ErrInvalidUsername)
	case len(username) > MaxUsernameBytes:
		return fmt.Errorf("%w: longer than %d bytes", ErrInvalidUsername, MaxUsernameBytes)
	case !utf8.ValidString(username):
		return fmt.Errorf("%w: not valid UTF-8", ErrInvalidUsername)
	case strings.TrimSpace(username) != username:
		return fmt.Errorf("%w: leading or trailing whitespace", ErrInvalidUsername)
	case strings.IndexFunc(username, unicode.IsControl) >= 0:
		return fmt.Errorf("%w: control character", ErrInvalidUsername)
	}
	return nil
}
