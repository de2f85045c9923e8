package domain

// Reason explains a verification outcome.
type Reason string

const (
	ReasonMatch              Reason = "match"
	ReasonVoiceMismatch      Reason = "voice_mismatch"
	ReasonInsufficientSignal Reason = "insufficient_signal"
)

// Decision is the result of a verification attempt whose secret matched.
// Similarity is reported even when the attempt is rejected.
type Decision struct {
	Accepted   bool
	Similarity float64
	Reason     Reason
}
