package badger

import "github.com/dgraph-io/badger/v4"

// PutRaw stores value under username's key without encoding it.
func (s *Store) PutRaw(username string, value []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(username), value)
	})
}
