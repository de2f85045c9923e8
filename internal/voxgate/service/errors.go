package service

import (
	"errors"

	"github.com/aussiebroadwan/voxgate/internal/voxgate/audio"
)

var (
	ErrInvalidUsername    = errors.New("invalid username")
	ErrInvalidSecret      = errors.New("invalid secret")
	ErrUsernameTaken      = errors.New("username already enrolled")
	ErrInsufficientSignal = errors.New("audio carries too little signal")

	// ErrInvalidCredentials is returned for both an unknown username and a
	// wrong secret so callers cannot tell the two apart.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrEmbeddingMismatch means a stored embedding has a different length
	// than the current model produces. The deployment changed model or
	// projection since enrollment; it is not the caller's fault.
	ErrEmbeddingMismatch = errors.New("stored embedding does not match model dimension")
)

// IsClientError reports whether err was caused by the caller's input rather
// than a fault in the service or its dependencies.
func IsClientError(err error) bool {
	for _, target := range []error{
		ErrInvalidUsername,
		ErrInvalidSecret,
		ErrUsernameTaken,
		ErrInvalidCredentials,
		ErrInsufficientSignal,
		audio.ErrDecode,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
