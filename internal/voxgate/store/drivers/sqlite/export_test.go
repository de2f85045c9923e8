package sqlite

// InsertCorrupt writes a row for username whose embedding shape is not JSON.
func (s *Store) InsertCorrupt(username string) error {
	_, err := s.db.Exec(`INSERT INTO enrollments
(username, password, embedding, embedding_shape, embedding_dtype, created_at)
VALUES (?, 'AAAA', 'AAAA', 'not json', 'float32', 0)`, username)
	return err
}
