package round

import (
	"time"
)

// State of the current round.
type State int

const (
	// Open means the round accepts entries.
	Open State = iota
	// Calculating means a randomness request is in flight and entries are
	// rejected until the round resolves.
	Calculating
)

func (s State) String() string {
	switch s {
	case Open:
		return "open"
	case Calculating:
		return "calculating"
	}
	return "unknown"
}

// Config carries the parameters the host system supplies. Zero values are
// rejected by NewRound except for Notify, which is optional.
type Config struct {
	// MinEntry is the smallest admissible stake per entry.
	MinEntry uint64
	// Interval is how long a round stays open before the upkeep predicate
	// can fire.
	Interval time.Duration
	// Width is the number of 64-bit random words requested from the
	// gateway. Only the first word decides the winner.
	Width int
	// Notify receives Entered, SelectionStarted and WinnerPicked
	// observations when set.
	Notify func(ev interface{})
	// Clock overrides the time source. Defaults to time.Now.
	Clock func() time.Time
}

// Gateway issues the asynchronous randomness request. The implementation must
// eventually call FulfillRandomness on the round with the same token; it must
// not do so from within RequestRandomness.
type Gateway interface {
	RequestRandomness(token []byte, roundNum uint64, width int) error
}

// Payer transfers the accumulated pool to the winner. A non-nil error leaves
// the round stuck in Calculating until RetryPayout succeeds. Payout must not
// call back into the round.
type Payer interface {
	Payout(winner string, amount uint64, roundNum uint64) error
}

// Diagnostics is the snapshot returned alongside the upkeep predicate.
type Diagnostics struct {
	State        State
	PoolValue    uint64
	Participants int
	Elapsed      time.Duration
}

// Entered is emitted after each admitted entry.
type Entered struct {
	Participant string
	Amount      uint64
	PoolValue   uint64
	Entries     int
}

// SelectionStarted is emitted when the round transitions to Calculating.
type SelectionStarted struct {
	Token []byte
	Round uint64
}

// WinnerPicked is emitted after a successful payout and reset.
type WinnerPicked struct {
	Winner string
	Payout uint64
	Round  uint64
}
