package store

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/aussiebroadwan/voxgate/internal/voxgate/domain"
)

const (
	DTypeFloat32 = "float32"
	DTypeFloat64 = "float64"
)

// PersistedRecord is the stable on-disk encoding of an enrollment. Field
// names are part of the storage format and must not change.
type PersistedRecord struct {
	Username       string `json:"username"`
	Password       string `json:"password"`        // std base64 of the secret digest
	Embedding      string `json:"embedding"`       // std base64 of little-endian elements
	EmbeddingShape []int  `json:"embedding_shape"` // [dim]
	EmbeddingDType string `json:"embedding_dtype"`
	CreatedAt      int64  `json:"created_at,omitempty"` // unix ms
	ExpiresAt      *int64 `json:"expires_at,omitempty"` // unix ms
}

// EncodeRecord converts rec into its persisted form. Embedding elements are
// written as raw float32 bits, so NaN payloads survive a round trip.
func EncodeRecord(rec domain.EnrollmentRecord) PersistedRecord {
	raw := make([]byte, 4*len(rec.Embedding))
	for i, v := range rec.Embedding {
		binary.LittleEndian.PutUint32(raw[4*i:], math.Float32bits(v))
	}

	p := PersistedRecord{
		Username:       rec.Username,
		Password:       base64.StdEncoding.EncodeToString(rec.SecretDigest),
		Embedding:      base64.StdEncoding.EncodeToString(raw),
		EmbeddingShape: []int{len(rec.Embedding)},
		EmbeddingDType: DTypeFloat32,
	}
	if !rec.CreatedAt.IsZero() {
		p.CreatedAt = rec.CreatedAt.UnixMilli()
	}
	if rec.ExpiresAt != nil {
		ms := rec.ExpiresAt.UnixMilli()
		p.ExpiresAt = &ms
	}
	return p
}

// Decode validates p and converts it back into a domain record. Every
// failure wraps ErrCorrupt.
func (p PersistedRecord) Decode() (domain.EnrollmentRecord, error) {
	if p.Username == "" {
		return domain.EnrollmentRecord{}, fmt.Errorf("%w: empty username", ErrCorrupt)
	}

	digest, err := base64.StdEncoding.DecodeString(p.Password)
	if err != nil {
		return domain.EnrollmentRecord{}, fmt.Errorf("%w: password: %v", ErrCorrupt, err)
	}
	raw, err := base64.StdEncoding.DecodeString(p.Embedding)
	if err != nil {
		return domain.EnrollmentRecord{}, fmt.Errorf("%w: embedding: %v", ErrCorrupt, err)
	}

	var itemSize int
	switch p.EmbeddingDType {
	case DTypeFloat32:
		itemSize = 4
	case DTypeFloat64:
		itemSize = 8
	default:
		return domain.EnrollmentRecord{}, fmt.Errorf("%w: unsupported dtype %q", ErrCorrupt, p.EmbeddingDType)
	}

	if len(p.EmbeddingShape) == 0 {
		return domain.EnrollmentRecord{}, fmt.Errorf("%w: missing shape", ErrCorrupt)
	}
	n := 1
	for _, d := range p.EmbeddingShape {
		if d <= 0 || n > math.MaxInt32/d {
			return domain.EnrollmentRecord{}, fmt.Errorf("%w: invalid shape %v", ErrCorrupt, p.EmbeddingShape)
		}
		n *= d
	}
	if n*itemSize != len(raw) {
		return domain.EnrollmentRecord{}, fmt.Errorf("%w: shape %v %s needs %d bytes, have %d",
			ErrCorrupt, p.EmbeddingShape, p.EmbeddingDType, n*itemSize, len(raw))
	}

	emb := make(domain.Embedding, n)
	for i := range emb {
		if itemSize == 4 {
			emb[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[4*i:]))
		} else {
			emb[i] = float32(math.Float64frombits(binary.LittleEndian.Uint64(raw[8*i:])))
		}
	}

	rec := domain.EnrollmentRecord{
		Username:     p.Username,
		SecretDigest: digest,
		Embedding:    emb,
	}
	if p.CreatedAt != 0 {
		rec.CreatedAt = time.UnixMilli(p.CreatedAt).UTC()
	}
	if p.ExpiresAt != nil {
		t := time.UnixMilli(*p.ExpiresAt).UTC()
		rec.ExpiresAt = &t
	}
	return rec, nil
}

// MarshalRecord encodes rec as JSON for key-value drivers.
func MarshalRecord(rec domain.EnrollmentRecord) ([]byte, error) {
	return json.Marshal(EncodeRecord(rec))
}

// UnmarshalRecord decodes JSON written by MarshalRecord.
func UnmarshalRecord(data []byte) (domain.EnrollmentRecord, error) {
	var p PersistedRecord
	if err := json.Unmarshal(data, &p); err != nil {
		return domain.EnrollmentRecord{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return p.Decode()
}
