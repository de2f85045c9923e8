package voxsdk

// AccountRequest is the body of both account endpoints.
type AccountRequest struct {
	Username string `json:"username" example:"alice"`
	Password string `json:"password" example:"correct horse battery staple"`

	// AudioData is the recording, standard base64.
	AudioData string `json:"audio_data" example:"UklGRiQAAABXQVZFZm10IBAAAAABAAEARKwAAIhYAQACABAAZGF0YQAAAAA="`
}

type EnrollResponse struct {
	Username string `json:"username" example:"alice"`
}

// Decision reasons.
const (
	ReasonMatch              = "match"
	ReasonVoiceMismatch      = "voice_mismatch"
	ReasonInsufficientSignal = "insufficient_signal"
)

type LoginResponse struct {
	Accepted bool `json:"accepted" example:"true"`

	// Similarity is the cosine similarity in [-1, 1] between the enrolled
	// and presented voice. Zero when the audio carried no usable signal.
	Similarity float64 `json:"similarity" example:"0.91"`

	Reason string `json:"reason" example:"match" enums:"match,voice_mismatch,insufficient_signal"`
}

// HealthResponse is returned by /livez and /readyz. Checks is only set by
// /readyz.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime,omitempty"`
	Version string        `json:"version,omitempty"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

type HealthChecks struct {
	// Database reports the credential store connection.
	Database string `json:"database"`

	// Model reports whether the embedding model is loaded.
	Model string `json:"model"`
}
