package main

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/dedis/raffle/beacon"
	"github.com/dedis/raffle/raffle"
	"github.com/dedis/raffle/utils"
	"go.dedis.ch/onet/v3"
	"go.dedis.ch/onet/v3/log"
	"go.dedis.ch/onet/v3/simul/monitor"
	"golang.org/x/xerrors"
)

type SimulationService struct {
	onet.SimulationBFTree
	NumParticipants int
	MinEntry        uint64
	IntervalSec     int
	Width           int

	raffleCl *raffle.Client
	randCl   *beacon.Client
}

func init() {
	onet.SimulationRegister("Raffle", NewRaffleSimulation)
}

func NewRaffleSimulation(config string) (onet.Simulation, error) {
	ss := &SimulationService{}
	_, err := toml.Decode(config, ss)
	if err != nil {
		return nil, err
	}
	return ss, nil
}

func (s *SimulationService) Setup(dir string,
	hosts []string) (*onet.SimulationConfig, error) {
	sc := &onet.SimulationConfig{}
	s.CreateRoster(sc, hosts, 2000)
	err := s.CreateTree(sc)
	if err != nil {
		return nil, err
	}
	return sc, nil
}

func (s *SimulationService) Node(config *onet.SimulationConfig) error {
	index, _ := config.Roster.Search(config.Server.ServerIdentity.GetID())
	if index < 0 {
		log.Fatal("Didn't find this node in roster")
	}
	log.Lvl3("Initializing node-index", index)
	return s.SimulationBFTree.Node(config)
}

func (s *SimulationService) initUnits(roster *onet.Roster) error {
	s.randCl = beacon.NewClient(roster)
	dkgMonitor := monitor.NewTimeMeasure("dkg")
	_, err := s.randCl.InitDKG()
	if err != nil {
		log.Errorf("initializing DKG: %v", err)
		return err
	}
	dkgMonitor.Record()

	s.raffleCl = raffle.NewClient(roster)
	_, err = s.raffleCl.InitUnit(roster, s.MinEntry,
		time.Duration(s.IntervalSec)*time.Second, s.Width, "")
	if err != nil {
		log.Errorf("initializing raffle unit: %v", err)
		return err
	}
	return nil
}

func (s *SimulationService) executeEnter(idx int, amount uint64) error {
	pair := utils.GenerateEntrants(1)[0]
	label := fmt.Sprintf("p%d_enter", idx)
	enterMonitor := monitor.NewTimeMeasure(label)
	_, err := s.raffleCl.Enter(pair.Public, pair.Private, amount)
	if err != nil {
		log.Errorf("entering participant %d: %v", idx, err)
		return err
	}
	enterMonitor.Record()
	return nil
}

func (s *SimulationService) executeSelection() error {
	// Poll the upkeep predicate the way an external scheduler would.
	for {
		ready, err := s.raffleCl.CheckReady()
		if err != nil {
			log.Errorf("checking upkeep: %v", err)
			return err
		}
		if ready.Ready {
			break
		}
		time.Sleep(time.Second)
	}

	selectMonitor := monitor.NewTimeMeasure("selection")
	sel, err := s.raffleCl.StartSelection()
	if err != nil {
		log.Errorf("starting selection: %v", err)
		return err
	}
	log.Lvlf2("selection started, token %x", sel.Token)

	deadline := time.Now().Add(time.Minute)
	for time.Now().Before(deadline) {
		info, err := s.raffleCl.RoundInfo()
		if err != nil {
			log.Errorf("getting round info: %v", err)
			return err
		}
		if info.LastWinner != "" {
			selectMonitor.Record()
			log.Lvlf1("winner: %s", info.LastWinner)
			return nil
		}
		time.Sleep(500 * time.Millisecond)
	}
	return xerrors.New("round did not resolve in time")
}

func (s *SimulationService) runRaffle() error {
	for i := 0; i < s.NumParticipants; i++ {
		if err := s.executeEnter(i, s.MinEntry+uint64(i)); err != nil {
			return err
		}
	}
	return s.executeSelection()
}

func (s *SimulationService) Run(config *onet.SimulationConfig) error {
	if err := s.initUnits(config.Roster); err != nil {
		return err
	}
	return s.runRaffle()
}
