package raffle

import (
	"time"

	"go.dedis.ch/cothority/v3"
	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/kyber/v3/sign/schnorr"
	"go.dedis.ch/onet/v3"
	"golang.org/x/xerrors"

	"github.com/dedis/raffle/utils"
)

// Client talks to the root node of a raffle roster.
type Client struct {
	*onet.Client
	roster *onet.Roster
}

// NewClient returns a client for the given roster.
func NewClient(r *onet.Roster) *Client {
	return &Client{Client: onet.NewClient(cothority.Suite, ServiceName), roster: r}
}

// InitUnit installs the raffle configuration on the root node.
func (c *Client) InitUnit(beaconRoster *onet.Roster, minEntry uint64,
	interval time.Duration, width int, archivePath string) (*InitUnitReply, error) {
	req := &InitUnitRequest{
		BeaconRoster: beaconRoster,
		MinEntry:     minEntry,
		Interval:     interval,
		Width:        width,
		ArchivePath:  archivePath,
	}
	reply := &InitUnitReply{}
	err := c.SendProtobuf(c.roster.List[0], req, reply)
	return reply, err
}

// Enter signs a ticket over the key and amount with the participant's private
// key and submits it.
func (c *Client) Enter(pub kyber.Point, priv kyber.Scalar, amount uint64) (*EnterReply, error) {
	digest, err := utils.TicketDigest(pub, amount)
	if err != nil {
		return nil, xerrors.Errorf("hashing ticket: %v", err)
	}
	sig, err := schnorr.Sign(cothority.Suite, priv, digest)
	if err != nil {
		return nil, xerrors.Errorf("signing ticket: %v", err)
	}
	req := &EnterRequest{Key: pub, Sig: sig, Amount: amount}
	reply := &EnterReply{}
	err = c.SendProtobuf(c.roster.List[0], req, reply)
	return reply, err
}

// CheckReady polls the upkeep predicate.
func (c *Client) CheckReady() (*CheckReadyReply, error) {
	reply := &CheckReadyReply{}
	err := c.SendProtobuf(c.roster.List[0], &CheckReadyRequest{}, reply)
	return reply, err
}

// StartSelection triggers the transition to calculating.
func (c *Client) StartSelection() (*StartSelectionReply, error) {
	reply := &StartSelectionReply{}
	err := c.SendProtobuf(c.roster.List[0], &StartSelectionRequest{}, reply)
	return reply, err
}

// Fulfill delivers externally produced randomness for the pending token.
func (c *Client) Fulfill(token []byte, values []uint64) (*FulfillReply, error) {
	reply := &FulfillReply{}
	err := c.SendProtobuf(c.roster.List[0], &FulfillRequest{Token: token, Values: values}, reply)
	return reply, err
}

// RoundInfo reports the observable round state.
func (c *Client) RoundInfo() (*RoundInfoReply, error) {
	reply := &RoundInfoReply{}
	err := c.SendProtobuf(c.roster.List[0], &RoundInfoRequest{}, reply)
	return reply, err
}

// GetParticipant returns the identifier in the given entry slot.
func (c *Client) GetParticipant(index int) (*GetParticipantReply, error) {
	reply := &GetParticipantReply{}
	err := c.SendProtobuf(c.roster.List[0], &GetParticipantRequest{Index: index}, reply)
	return reply, err
}

// GetWinners returns the archived resolutions.
func (c *Client) GetWinners() (*GetWinnersReply, error) {
	reply := &GetWinnersReply{}
	err := c.SendProtobuf(c.roster.List[0], &GetWinnersRequest{}, reply)
	return reply, err
}

// RetryPayout re-attempts a failed payout.
func (c *Client) RetryPayout() (*RetryPayoutReply, error) {
	reply := &RetryPayoutReply{}
	err := c.SendProtobuf(c.roster.List[0], &RetryPayoutRequest{}, reply)
	return reply, err
}
