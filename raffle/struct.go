package raffle

import (
	"time"

	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/onet/v3"
)

// InitUnitRequest installs the raffle configuration and opens the round.
type InitUnitRequest struct {
	// BeaconRoster is where randomness requests go.
	BeaconRoster *onet.Roster
	// MinEntry is the smallest admissible stake.
	MinEntry uint64
	// Interval is how long a round stays open.
	Interval time.Duration
	// Width is the number of random words requested per selection.
	Width int
	// ArchivePath is the winner archive location; empty disables the
	// archive.
	ArchivePath string
}

type InitUnitReply struct{}

// EnterRequest is one entry ticket: the participant's public key, a schnorr
// signature over its hash and the staked amount.
type EnterRequest struct {
	Key    kyber.Point
	Sig    []byte
	Amount uint64
}

type EnterReply struct {
	Entries   int
	PoolValue uint64
}

type CheckReadyRequest struct{}

// CheckReadyReply carries the predicate answer and the diagnostics snapshot.
type CheckReadyReply struct {
	Ready        bool
	State        string
	PoolValue    uint64
	Participants int
	Elapsed      time.Duration
}

type StartSelectionRequest struct{}

type StartSelectionReply struct {
	Token []byte
}

// FulfillRequest delivers randomness for the pending token. It is exposed so
// that gateways outside this process can complete a selection.
type FulfillRequest struct {
	Token  []byte
	Values []uint64
}

type FulfillReply struct{}

type RoundInfoRequest struct{}

type RoundInfoReply struct {
	Number       uint64
	State        string
	PoolValue    uint64
	Participants int
	LastWinner   string
	StartTime    time.Time
}

type GetParticipantRequest struct {
	Index int
}

type GetParticipantReply struct {
	Participant string
}

type GetWinnersRequest struct{}

// WinnerRecord mirrors one archived resolution.
type WinnerRecord struct {
	Round     uint64
	Winner    string
	Payout    uint64
	Timestamp int64
}

type GetWinnersReply struct {
	Records []WinnerRecord
}

// RetryPayoutRequest re-runs a payout that failed, using the retained random
// value. Administrative recovery for a round stuck in calculating.
type RetryPayoutRequest struct{}

type RetryPayoutReply struct{}
