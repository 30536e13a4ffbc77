package beacon

import (
	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/onet/v3"
)

// InitDKGRequest asks the service to run the DKG over the roster.
type InitDKGRequest struct {
	Roster *onet.Roster
}

// InitDKGReply is the response of DKG.
type InitDKGReply struct {
	Public kyber.Point
}

// RandomnessRequest asks for the next round of public randomness.
type RandomnessRequest struct {
	Roster *onet.Roster
}

// RandomnessReply is the returned public randomness. Value is the collective
// signature over Prev; use the hash of it.
type RandomnessReply struct {
	Round uint64
	Prev  []byte
	Value []byte
}
