package beacon

import (
	"go.dedis.ch/cothority/v3"
	"go.dedis.ch/onet/v3"
)

// Client talks to the root node of a beacon roster.
type Client struct {
	*onet.Client
	roster *onet.Roster
}

// NewClient returns a client for the given roster.
func NewClient(r *onet.Roster) *Client {
	return &Client{Client: onet.NewClient(cothority.Suite, ServiceName), roster: r}
}

// InitDKG runs the distributed key generation and returns the collective
// public key.
func (c *Client) InitDKG() (*InitDKGReply, error) {
	req := &InitDKGRequest{Roster: c.roster}
	reply := &InitDKGReply{}
	err := c.SendProtobuf(c.roster.List[0], req, reply)
	return reply, err
}

// Randomness asks the beacon for the next round of public randomness.
func (c *Client) Randomness() (*RandomnessReply, error) {
	req := &RandomnessRequest{Roster: c.roster}
	reply := &RandomnessReply{}
	err := c.SendProtobuf(c.roster.List[0], req, reply)
	return reply, err
}
