// Package store keeps a persistent archive of resolved raffle rounds so that
// winner history survives restarts.
package store

import (
	"encoding/binary"

	"go.dedis.ch/protobuf"
	bolt "go.etcd.io/bbolt"
	"golang.org/x/xerrors"
)

var winnersBucket = []byte("winners")

// Record is what gets archived for every resolved round.
type Record struct {
	Round     uint64
	Winner    string
	Payout    uint64
	Token     []byte
	Timestamp int64
}

// Store wraps the bbolt database holding the archive.
type Store struct {
	db *bolt.DB
}

// Open opens or creates the archive at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, xerrors.Errorf("opening archive: %v", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(winnersBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, xerrors.Errorf("creating bucket: %v", err)
	}
	return &Store{db: db}, nil
}

// Append archives one resolved round, keyed by round number.
func (s *Store) Append(rec *Record) error {
	buf, err := protobuf.Encode(rec)
	if err != nil {
		return xerrors.Errorf("encoding record: %v", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, rec.Round)
		return tx.Bucket(winnersBucket).Put(key, buf)
	})
}

// Winners returns all archived records in round order.
func (s *Store) Winners() ([]Record, error) {
	var recs []Record
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(winnersBucket).ForEach(func(k, v []byte) error {
			var rec Record
			if err := protobuf.Decode(v, &rec); err != nil {
				return xerrors.Errorf("decoding record: %v", err)
			}
			recs = append(recs, rec)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return recs, nil
}

// Last returns the most recent record, or nil if the archive is empty.
func (s *Store) Last() (*Record, error) {
	var rec *Record
	err := s.db.View(func(tx *bolt.Tx) error {
		_, v := tx.Bucket(winnersBucket).Cursor().Last()
		if v == nil {
			return nil
		}
		rec = &Record{}
		return protobuf.Decode(v, rec)
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
