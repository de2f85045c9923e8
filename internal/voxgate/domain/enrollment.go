package domain

import "time"

// EnrollmentRecord binds a username to a secret digest and a reference voice
// embedding. Records are immutable once created.
type EnrollmentRecord struct {
	Username     string
	SecretDigest []byte
	Embedding    Embedding
	CreatedAt    time.Time
	ExpiresAt    *time.Time // nil means the record never expires
}
