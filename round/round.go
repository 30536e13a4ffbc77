// Package round implements the raffle state machine: a pool ledger that
// collects stake entries while the round is open, an upkeep predicate gating
// the transition to winner selection, and the token-correlated fulfillment
// protocol through which externally produced randomness resolves the round.
//
// The package is transport-agnostic. A host embeds a Round behind whatever
// service boundary it chooses and supplies the randomness Gateway and the
// Payer. All mutation is serialized by an internal mutex, so a Round may be
// shared between the caller-facing handlers and the asynchronous fulfillment
// path.
package round

import (
	"bytes"
	"sync"
	"time"

	"go.dedis.ch/kyber/v3/util/random"
	"golang.org/x/xerrors"
)

const tokenLen = 32

// Round is one raffle cycle: entry collection, selection, payout, reset. The
// same value is reused across cycles; resolution resets it in place.
type Round struct {
	mu      sync.Mutex
	cfg     Config
	gateway Gateway
	payer   Payer
	now     func() time.Time

	num          uint64
	state        State
	participants []string
	pool         uint64
	startTime    time.Time
	pendingToken []byte
	// pendingValue keeps the delivered random value after a failed payout
	// so that RetryPayout can resolve with the same winner.
	pendingValue *uint64
	lastWinner   string
}

// NewRound returns an open round starting now.
func NewRound(cfg Config, gateway Gateway, payer Payer) (*Round, error) {
	if cfg.MinEntry == 0 {
		return nil, xerrors.New("minimum entry amount not set")
	}
	if cfg.Interval <= 0 {
		return nil, xerrors.New("interval not set")
	}
	if cfg.Width <= 0 {
		return nil, xerrors.New("randomness width not set")
	}
	if gateway == nil {
		return nil, xerrors.New("no randomness gateway")
	}
	if payer == nil {
		return nil, xerrors.New("no payer")
	}
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}
	r := &Round{
		cfg:       cfg,
		gateway:   gateway,
		payer:     payer,
		now:       now,
		num:       1,
		state:     Open,
		startTime: now(),
	}
	return r, nil
}

// Enter admits one entry into the pool. The same participant may enter any
// number of times; each call occupies one slot. Returns the entry count after
// admission.
func (r *Round) Enter(participant string, amount uint64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != Open {
		return 0, xerrors.Errorf("enter: %w", ErrRoundNotOpen)
	}
	if amount < r.cfg.MinEntry {
		return 0, xerrors.Errorf("enter: amount %d < minimum %d: %w",
			amount, r.cfg.MinEntry, ErrInsufficientAmount)
	}
	r.participants = append(r.participants, participant)
	r.pool += amount
	n := len(r.participants)
	r.notify(&Entered{
		Participant: participant,
		Amount:      amount,
		PoolValue:   r.pool,
		Entries:     n,
	})
	return n, nil
}

// CheckReady is the upkeep predicate. It is side-effect free and cheap, so an
// external scheduler may poll it at arbitrary frequency. The diagnostics
// snapshot explains a false answer.
func (r *Round) CheckReady() (bool, Diagnostics) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.checkReady()
}

func (r *Round) checkReady() (bool, Diagnostics) {
	d := Diagnostics{
		State:        r.state,
		PoolValue:    r.pool,
		Participants: len(r.participants),
		Elapsed:      r.now().Sub(r.startTime),
	}
	ready := d.Elapsed >= r.cfg.Interval &&
		r.state == Open &&
		r.pool > 0 &&
		len(r.participants) > 0
	return ready, d
}

// StartSelection transitions the round to Calculating and issues the
// randomness request. The predicate is re-evaluated under the lock, so a
// stale poll by the scheduler cannot start a selection on a drained or
// already-calculating round. Returns the correlation token the fulfillment
// must present.
func (r *Round) StartSelection() ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ready, d := r.checkReady()
	if !ready {
		return nil, xerrors.Errorf(
			"start selection: pool=%d participants=%d state=%v elapsed=%v: %w",
			d.PoolValue, d.Participants, d.State, d.Elapsed, ErrUpkeepNotReady)
	}
	token := random.Bits(tokenLen*8, true, random.New())
	r.pendingToken = token
	r.state = Calculating
	if err := r.gateway.RequestRandomness(token, r.num, r.cfg.Width); err != nil {
		r.pendingToken = nil
		r.state = Open
		return nil, xerrors.Errorf("start selection: randomness request: %v", err)
	}
	r.notify(&SelectionStarted{Token: token, Round: r.num})
	return token, nil
}

// FulfillRandomness is the inbound half of the randomness round-trip. The
// token must match the pending request and the round must still be
// Calculating; anything else is rejected without state change. A matching
// call resolves the round with values[0].
func (r *Round) FulfillRandomness(token []byte, values []uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != Calculating || len(r.pendingToken) == 0 ||
		!bytes.Equal(token, r.pendingToken) {
		return xerrors.Errorf("fulfill: %w", ErrStaleRequest)
	}
	if len(values) == 0 {
		return xerrors.Errorf("fulfill: empty randomness values")
	}
	// The token is consumed whatever resolve does: a payout failure keeps
	// the round in Calculating, but replays of the same fulfillment are
	// rejected and recovery goes through RetryPayout.
	r.pendingToken = nil
	return r.resolve(values[0])
}

// RetryPayout re-runs winner resolution with the random value retained from a
// fulfillment whose payout failed. It is the administrative recovery path for
// a round stuck in Calculating.
func (r *Round) RetryPayout() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != Calculating || r.pendingValue == nil {
		return xerrors.Errorf("retry payout: no failed payout pending: %w",
			ErrStaleRequest)
	}
	return r.resolve(*r.pendingValue)
}

// resolve picks the winner, pays out and resets. Caller holds the lock, so
// the payout and the reset are one atomic step from the perspective of every
// other operation. On payout failure the round stays in Calculating with the
// random value retained.
func (r *Round) resolve(value uint64) error {
	idx := value % uint64(len(r.participants))
	winner := r.participants[idx]
	payout := r.pool
	num := r.num
	// The winner is determined before the transfer; a stuck round already
	// reports who the retained value selected.
	r.lastWinner = winner
	if err := r.payer.Payout(winner, payout, num); err != nil {
		r.pendingValue = &value
		return xerrors.Errorf("round %d: pay %d to %s: %v: %w",
			num, payout, winner, err, ErrPayoutFailed)
	}
	r.participants = nil
	r.pool = 0
	r.pendingToken = nil
	r.pendingValue = nil
	r.startTime = r.now()
	r.state = Open
	r.num++
	r.notify(&WinnerPicked{Winner: winner, Payout: payout, Round: num})
	return nil
}

func (r *Round) notify(ev interface{}) {
	if r.cfg.Notify != nil {
		r.cfg.Notify(ev)
	}
}

// State returns the current round state.
func (r *Round) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// PoolValue returns the accumulated stake of the current round.
func (r *Round) PoolValue() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pool
}

// NumParticipants returns the number of entries in the current round.
func (r *Round) NumParticipants() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.participants)
}

// Participant returns the identifier occupying slot i.
func (r *Round) Participant(i int) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i < 0 || i >= len(r.participants) {
		return "", xerrors.Errorf("index %d with %d entries: %w",
			i, len(r.participants), ErrNoSuchEntry)
	}
	return r.participants[i], nil
}

// LastWinner returns the most recently paid participant, empty before the
// first resolution. Kept across rounds for observability only.
func (r *Round) LastWinner() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastWinner
}

// StartTime returns when the current round opened.
func (r *Round) StartTime() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.startTime
}

// Number returns the current round number, starting at 1.
func (r *Round) Number() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.num
}
