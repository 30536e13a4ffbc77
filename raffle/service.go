package raffle

/*
The raffle service hosts one round state machine behind the onet transport.
Participants enter with signed tickets, an external scheduler polls CheckReady
and triggers StartSelection, and the beacon delivers randomness through the
gateway adapter. Winner resolutions are archived so history survives
restarts.
*/

import (
	"time"

	"github.com/dedis/raffle/beacon"
	"github.com/dedis/raffle/round"
	"github.com/dedis/raffle/store"
	"go.dedis.ch/cothority/v3"
	"go.dedis.ch/kyber/v3/sign/schnorr"
	"go.dedis.ch/onet/v3"
	"go.dedis.ch/onet/v3/log"
	"golang.org/x/xerrors"

	"github.com/dedis/raffle/utils"
)

// ServiceName is the name of the raffle service.
const ServiceName = "raffle"

var serviceID onet.ServiceID

func init() {
	var err error
	serviceID, err = onet.RegisterNewService(ServiceName, newService)
	log.ErrFatal(err)
}

// Service hosts the round state machine.
type Service struct {
	*onet.ServiceProcessor

	r       *round.Round
	archive *store.Store
	randCl  *beacon.Client

	// lastToken is the correlation token of the in-flight request; the
	// gateway records it before the request leaves so the archived record
	// can reference it.
	lastToken []byte
}

// InitUnit installs the configuration and opens the first round.
func (s *Service) InitUnit(req *InitUnitRequest) (*InitUnitReply, error) {
	if s.r != nil {
		return nil, xerrors.New("unit already initialised")
	}
	if req.BeaconRoster == nil || len(req.BeaconRoster.List) == 0 {
		return nil, xerrors.New("no beacon roster")
	}
	if req.ArchivePath != "" {
		archive, err := store.Open(req.ArchivePath)
		if err != nil {
			return nil, xerrors.Errorf("opening winner archive: %v", err)
		}
		s.archive = archive
	}
	s.randCl = beacon.NewClient(req.BeaconRoster)
	r, err := round.NewRound(round.Config{
		MinEntry: req.MinEntry,
		Interval: req.Interval,
		Width:    req.Width,
		Notify:   s.observe,
	}, &beaconGateway{s: s}, s)
	if err != nil {
		return nil, xerrors.Errorf("creating round: %v", err)
	}
	s.r = r
	log.Lvlf2("raffle unit ready: min entry %d, interval %v, width %d",
		req.MinEntry, req.Interval, req.Width)
	return &InitUnitReply{}, nil
}

// Enter admits a signed entry ticket into the current round.
func (s *Service) Enter(req *EnterRequest) (*EnterReply, error) {
	if s.r == nil {
		return nil, xerrors.New("unit not initialised")
	}
	digest, err := utils.TicketDigest(req.Key, req.Amount)
	if err != nil {
		return nil, xerrors.Errorf("hashing ticket: %v", err)
	}
	if err := schnorr.Verify(cothority.Suite, req.Key, digest, req.Sig); err != nil {
		return nil, xerrors.Errorf("verifying ticket signature: %v", err)
	}
	id, err := utils.PointToID(req.Key)
	if err != nil {
		return nil, xerrors.Errorf("encoding ticket key: %v", err)
	}
	n, err := s.r.Enter(id, req.Amount)
	if err != nil {
		return nil, err
	}
	return &EnterReply{Entries: n, PoolValue: s.r.PoolValue()}, nil
}

// CheckReady evaluates the upkeep predicate without side effects.
func (s *Service) CheckReady(req *CheckReadyRequest) (*CheckReadyReply, error) {
	if s.r == nil {
		return nil, xerrors.New("unit not initialised")
	}
	ready, d := s.r.CheckReady()
	return &CheckReadyReply{
		Ready:        ready,
		State:        d.State.String(),
		PoolValue:    d.PoolValue,
		Participants: d.Participants,
		Elapsed:      d.Elapsed,
	}, nil
}

// StartSelection transitions to calculating and issues the randomness
// request. Fulfillment arrives asynchronously through the gateway.
func (s *Service) StartSelection(req *StartSelectionRequest) (*StartSelectionReply, error) {
	if s.r == nil {
		return nil, xerrors.New("unit not initialised")
	}
	token, err := s.r.StartSelection()
	if err != nil {
		return nil, err
	}
	return &StartSelectionReply{Token: token}, nil
}

// Fulfill delivers randomness for the pending token. Gateways outside this
// process use it; the built-in beacon gateway feeds the round directly.
func (s *Service) Fulfill(req *FulfillRequest) (*FulfillReply, error) {
	if s.r == nil {
		return nil, xerrors.New("unit not initialised")
	}
	if err := s.r.FulfillRandomness(req.Token, req.Values); err != nil {
		return nil, err
	}
	return &FulfillReply{}, nil
}

// RoundInfo reports the observable round state.
func (s *Service) RoundInfo(req *RoundInfoRequest) (*RoundInfoReply, error) {
	if s.r == nil {
		return nil, xerrors.New("unit not initialised")
	}
	return &RoundInfoReply{
		Number:       s.r.Number(),
		State:        s.r.State().String(),
		PoolValue:    s.r.PoolValue(),
		Participants: s.r.NumParticipants(),
		LastWinner:   s.r.LastWinner(),
		StartTime:    s.r.StartTime(),
	}, nil
}

// GetParticipant returns the identifier in entry slot Index.
func (s *Service) GetParticipant(req *GetParticipantRequest) (*GetParticipantReply, error) {
	if s.r == nil {
		return nil, xerrors.New("unit not initialised")
	}
	p, err := s.r.Participant(req.Index)
	if err != nil {
		return nil, err
	}
	return &GetParticipantReply{Participant: p}, nil
}

// GetWinners returns the archived resolutions.
func (s *Service) GetWinners(req *GetWinnersRequest) (*GetWinnersReply, error) {
	if s.archive == nil {
		return nil, xerrors.New("no winner archive configured")
	}
	recs, err := s.archive.Winners()
	if err != nil {
		return nil, err
	}
	reply := &GetWinnersReply{}
	for _, rec := range recs {
		reply.Records = append(reply.Records, WinnerRecord{
			Round:     rec.Round,
			Winner:    rec.Winner,
			Payout:    rec.Payout,
			Timestamp: rec.Timestamp,
		})
	}
	return reply, nil
}

// RetryPayout re-attempts a failed payout with the retained random value.
func (s *Service) RetryPayout(req *RetryPayoutRequest) (*RetryPayoutReply, error) {
	if s.r == nil {
		return nil, xerrors.New("unit not initialised")
	}
	if err := s.r.RetryPayout(); err != nil {
		return nil, err
	}
	return &RetryPayoutReply{}, nil
}

// Payout implements round.Payer: the pool is credited to the winner's record
// in the archive. Archive failure counts as payout failure so the round does
// not resolve without a durable record of where the funds went.
func (s *Service) Payout(winner string, amount uint64, roundNum uint64) error {
	if s.archive == nil {
		log.Lvlf2("round %d: paying %d to %s (no archive)", roundNum, amount, winner)
		return nil
	}
	return s.archive.Append(&store.Record{
		Round:     roundNum,
		Winner:    winner,
		Payout:    amount,
		Token:     s.lastToken,
		Timestamp: time.Now().Unix(),
	})
}

func (s *Service) observe(ev interface{}) {
	switch e := ev.(type) {
	case *round.Entered:
		log.Lvlf2("entered: %s staked %d, pool %d over %d entries",
			e.Participant, e.Amount, e.PoolValue, e.Entries)
	case *round.SelectionStarted:
		log.Lvlf2("selection started for round %d, token %x", e.Round, e.Token)
	case *round.WinnerPicked:
		log.Lvlf1("round %d winner: %s, payout %d", e.Round, e.Winner, e.Payout)
	}
}

func newService(c *onet.Context) (onet.Service, error) {
	s := &Service{
		ServiceProcessor: onet.NewServiceProcessor(c),
	}
	err := s.RegisterHandlers(s.InitUnit, s.Enter, s.CheckReady,
		s.StartSelection, s.Fulfill, s.RoundInfo, s.GetParticipant,
		s.GetWinners, s.RetryPayout)
	if err != nil {
		return nil, xerrors.Errorf("registering handlers: %v", err)
	}
	return s, nil
}
