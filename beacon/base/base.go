package base

import (
	"crypto/sha256"
	"encoding/binary"
)

const (
	// UID identifies the beacon unit.
	UID string = "beacon"
	// RAND is the transaction name for randomness delivery.
	RAND string = "randomness"
)

// RandomnessOutput is one beacon round: a collective signature over the
// previous round's output. Use the hash of Value, not Value itself.
type RandomnessOutput struct {
	Round uint64
	Prev  []byte
	Value []byte
}

// DeriveWords expands a beacon value into width 64-bit random words by
// hashing it with a word counter.
func DeriveWords(value []byte, width int) []uint64 {
	words := make([]uint64, width)
	ctr := make([]byte, 8)
	for i := range words {
		binary.LittleEndian.PutUint64(ctr, uint64(i))
		h := sha256.New()
		h.Write(ctr)
		h.Write(value)
		words[i] = binary.LittleEndian.Uint64(h.Sum(nil))
	}
	return words
}

// Hash commits to the full beacon output.
func (r *RandomnessOutput) Hash() ([]byte, error) {
	h := sha256.New()
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, r.Round)
	h.Write(b)
	h.Write(r.Prev)
	h.Write(r.Value)
	return h.Sum(nil), nil
}
