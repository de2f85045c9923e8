package http

import (
	"encoding/base64"
	"errors"
	"net/http"

	"github.com/aussiebroadwan/voxgate/internal/voxgate/audio"
	"github.com/aussiebroadwan/voxgate/internal/voxgate/service"
	"github.com/aussiebroadwan/voxgate/internal/voxgate/store"
	"github.com/aussiebroadwan/voxgate/pkg/httpx"
	"github.com/aussiebroadwan/voxgate/pkg/slogx"
	"github.com/aussiebroadwan/voxgate/pkg/voxsdk"
)

type accountInput struct {
	username string
	secret   []byte
	audio    []byte
}

// decodeAccountRequest reads the JSON body shared by both account routes.
// On failure it has already written the response.
func decodeAccountRequest(w http.ResponseWriter, r *http.Request, bodyLimit, maxAudio int64) (accountInput, bool) {
	var req voxsdk.AccountRequest
	if err := httpx.DecodeJSON(w, r, bodyLimit, &req); err != nil {
		desc := "Request body must be a JSON object with username, password and audio_data"
		if errors.Is(err, httpx.ErrBodyTooLarge) {
			desc = "Request body is too large"
		}
		voxsdk.ErrInvalidRequest.WithDescription(desc).WriteError(w)
		return accountInput{}, false
	}

	if req.AudioData == "" {
		voxsdk.ErrInvalidRequest.WithDescription("audio_data is required").WriteError(w)
		return accountInput{}, false
	}
	if int64(base64.StdEncoding.DecodedLen(len(req.AudioData))) > maxAudio+2 {
		voxsdk.ErrInvalidRequest.WithDescription("audio_data is too large").WriteError(w)
		return accountInput{}, false
	}
	data, err := base64.StdEncoding.DecodeString(req.AudioData)
	if err != nil {
		voxsdk.ErrInvalidRequest.WithDescription("audio_data must be standard base64").WriteError(w)
		return accountInput{}, false
	}

	return accountInput{
		username: req.Username,
		secret:   []byte(req.Password),
		audio:    data,
	}, true
}

// writeServiceError maps a service error onto the response. Client errors
// are logged at info; anything else is a fault and logged at error.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	log := slogx.FromContext(r.Context())

	switch {
	case errors.Is(err, service.ErrInvalidUsername):
		voxsdk.ErrInvalidUsername.WriteError(w)
	case errors.Is(err, service.ErrInvalidSecret):
		voxsdk.ErrInvalidSecret.WriteError(w)
	case errors.Is(err, audio.ErrDecode):
		voxsdk.ErrInvalidAudio.WriteError(w)
	case errors.Is(err, service.ErrInsufficientSignal):
		voxsdk.ErrInsufficientSignal.WriteError(w)
	case errors.Is(err, service.ErrUsernameTaken):
		voxsdk.ErrUsernameTaken.WriteError(w)
	case errors.Is(err, service.ErrInvalidCredentials):
		voxsdk.ErrInvalidCredentials.WriteError(w)
	case errors.Is(err, store.ErrUnavailable):
		log.Error("store unavailable", "error", err)
		voxsdk.ErrServiceUnavailable.WriteError(w)
	default:
		log.Error("request failed", "error", err)
		voxsdk.ErrServerError.WriteError(w)
	}

	if service.IsClientError(err) {
		log.Info("request rejected", "error", err)
	}
}
