package round

import "golang.org/x/xerrors"

var (
	// ErrInsufficientAmount rejects entries below the configured minimum.
	ErrInsufficientAmount = xerrors.New("entry amount below minimum")
	// ErrRoundNotOpen rejects entries while a selection is in progress.
	ErrRoundNotOpen = xerrors.New("round is not open")
	// ErrUpkeepNotReady signals that the upkeep predicate does not hold at
	// commit time. The wrapping error carries the diagnostics.
	ErrUpkeepNotReady = xerrors.New("upkeep conditions not met")
	// ErrStaleRequest rejects fulfillments whose token does not match the
	// pending request, including duplicates and replays.
	ErrStaleRequest = xerrors.New("unknown or stale randomness request")
	// ErrPayoutFailed reports a failed transfer. The round stays in
	// Calculating; see RetryPayout.
	ErrPayoutFailed = xerrors.New("payout failed")
	// ErrNoSuchEntry rejects out-of-range participant lookups.
	ErrNoSuchEntry = xerrors.New("participant index out of range")
)
