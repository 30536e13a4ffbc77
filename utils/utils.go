package utils

import (
	"crypto/sha256"
	"encoding/binary"
	"os"

	"go.dedis.ch/cothority/v3"
	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/kyber/v3/util/encoding"
	"go.dedis.ch/kyber/v3/util/key"
	"go.dedis.ch/onet/v3"
	"go.dedis.ch/onet/v3/app"
	"go.dedis.ch/onet/v3/log"
	"golang.org/x/xerrors"
)

// TicketDigest returns the sha256 digest an entry ticket signs: the
// marshalled public key followed by the staked amount. Binding the amount
// keeps an observed ticket from being replayed with a different stake.
func TicketDigest(p kyber.Point, amount uint64) ([]byte, error) {
	buf, err := p.MarshalBinary()
	if err != nil {
		log.Errorf("marshalling point: %v", err)
		return nil, err
	}
	amtBuf := make([]byte, 8)
	binary.LittleEndian.PutUint64(amtBuf, amount)
	h := sha256.New()
	h.Write(buf)
	h.Write(amtBuf)
	return h.Sum(nil), nil
}

// PointToID converts a participant public key to the hex identifier used by
// the round ledger.
func PointToID(p kyber.Point) (string, error) {
	return encoding.PointToStringHex(cothority.Suite, p)
}

// IDToPoint is the inverse of PointToID.
func IDToPoint(id string) (kyber.Point, error) {
	return encoding.StringHexToPoint(cothority.Suite, id)
}

// GenerateEntrants creates count fresh key pairs for raffle participants.
func GenerateEntrants(count int) []*key.Pair {
	pairs := make([]*key.Pair, count)
	for i := range pairs {
		pairs[i] = key.NewKeyPair(cothority.Suite)
	}
	return pairs
}

// ReadRoster reads a group definition in toml form.
func ReadRoster(path string) (*onet.Roster, error) {
	file, err := os.Open(path)
	if err != nil {
		log.Errorf("opening roster file: %v", err)
		return nil, err
	}
	defer file.Close()

	group, err := app.ReadGroupDescToml(file)
	if err != nil {
		log.Errorf("reading group description: %v", err)
		return nil, err
	}
	if len(group.Roster.List) == 0 {
		return nil, xerrors.New("empty roster")
	}
	return group.Roster, nil
}
