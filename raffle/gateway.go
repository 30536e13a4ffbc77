package raffle

import (
	"github.com/dedis/raffle/beacon/base"
	"go.dedis.ch/onet/v3/log"
)

// beaconGateway implements round.Gateway against the beacon service. The
// request returns immediately; the beacon round-trip and the fulfillment run
// in the background, which keeps the round free to reject stale triggers in
// the meantime.
type beaconGateway struct {
	s *Service
}

func (g *beaconGateway) RequestRandomness(token []byte, roundNum uint64, width int) error {
	// Recorded before the request leaves: the round still holds its lock
	// here, so no fulfillment can race this write.
	g.s.lastToken = token
	go func() {
		resp, err := g.s.randCl.Randomness()
		if err != nil {
			log.Errorf("beacon request for round %d failed: %v", roundNum, err)
			return
		}
		words := base.DeriveWords(resp.Value, width)
		if err := g.s.r.FulfillRandomness(token, words); err != nil {
			log.Errorf("fulfillment for round %d rejected: %v", roundNum, err)
		}
	}()
	return nil
}
