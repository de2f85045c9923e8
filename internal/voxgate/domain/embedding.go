package domain

// Embedding is a fixed-length speaker vector. Its length is set by the
// deployed model (and projection choice) and never changes for a deployment.
type Embedding []float32

// IsDegenerate reports whether the vector has zero norm.
func (e Embedding) IsDegenerate() bool {
	for _, v := range e {
		if v != 0 {
			return false
		}
	}
	return true
}

// Clone returns a copy that does not alias e.
func (e Embedding) Clone() Embedding {
	if e == nil {
		return nil
	}
	out := make(Embedding, len(e))
	copy(out, e)
	return out
}
