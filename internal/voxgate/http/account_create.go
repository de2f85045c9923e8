package http

import (
	"net/http"

	"github.com/aussiebroadwan/voxgate/internal/voxgate/service"
	"github.com/aussiebroadwan/voxgate/pkg/httpx"
	"github.com/aussiebroadwan/voxgate/pkg/voxsdk"
)

type AccountCreateHandler struct {
	EnrollmentService *service.EnrollmentService
	BodyLimit         int64
	MaxAudioBytes     int64
}

// ServeHTTP godoc
//
//	@Summary		Enroll Account Endpoint
//	@Description	Create an account bound to a password and a voice sample.
//	@Description	The sample must contain at least a second of non-silent speech.
//	@Tags			Account
//	@Accept			json
//	@Produce		json
//	@Param			request	body		voxsdk.AccountRequest	true	"username, password, base64 audio"
//	@Success		201		{object}	voxsdk.EnrollResponse	"username"
//	@Failure		400		{object}	httpx.ErrorResponse		"invalid_request, invalid_username, invalid_secret, invalid_audio"
//	@Failure		409		{object}	httpx.ErrorResponse		"username_taken"
//	@Failure		422		{object}	httpx.ErrorResponse		"insufficient_signal"
//	@Failure		429		{object}	httpx.ErrorResponse		"rate_limit_exceeded"
//	@Failure		500		{object}	httpx.ErrorResponse		"server_error"
//	@Failure		503		{object}	httpx.ErrorResponse		"service_unavailable"
//	@Router			/account/create [post].
func (h *AccountCreateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	in, ok := decodeAccountRequest(w, r, h.BodyLimit, h.MaxAudioBytes)
	if !ok {
		return
	}

	if err := h.EnrollmentService.Enroll(r.Context(), in.username, in.secret, in.audio); err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, voxsdk.EnrollResponse{Username: in.username})
}
