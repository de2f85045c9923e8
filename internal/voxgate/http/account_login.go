package http

import (
	"net/http"

	"github.com/aussiebroadwan/voxgate/internal/voxgate/service"
	"github.com/aussiebroadwan/voxgate/pkg/httpx"
	"github.com/aussiebroadwan/voxgate/pkg/voxsdk"
)

type AccountLoginHandler struct {
	VerificationService *service.VerificationService
	BodyLimit           int64
	MaxAudioBytes       int64
}

// ServeHTTP godoc
//
//	@Summary		Verify Account Endpoint
//	@Description	Check a password and compare a fresh voice sample against the enrolled one.
//	@Description	A voice rejection is a 200 with accepted=false; only bad credentials or input are errors.
//	@Tags			Account
//	@Accept			json
//	@Produce		json
//	@Param			request	body		voxsdk.AccountRequest	true	"username, password, base64 audio"
//	@Success		200		{object}	voxsdk.LoginResponse	"accepted, similarity, reason"
//	@Failure		400		{object}	httpx.ErrorResponse		"invalid_request, invalid_audio"
//	@Failure		401		{object}	httpx.ErrorResponse		"invalid_credentials"
//	@Failure		429		{object}	httpx.ErrorResponse		"rate_limit_exceeded"
//	@Failure		500		{object}	httpx.ErrorResponse		"server_error"
//	@Failure		503		{object}	httpx.ErrorResponse		"service_unavailable"
//	@Router			/account/login [post].
func (h *AccountLoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	in, ok := decodeAccountRequest(w, r, h.BodyLimit, h.MaxAudioBytes)
	if !ok {
		return
	}

	d, err := h.VerificationService.Verify(r.Context(), in.username, in.secret, in.audio)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, voxsdk.LoginResponse{
		Accepted:   d.Accepted,
		Similarity: d.Similarity,
		Reason:     string(d.Reason),
	})
}
