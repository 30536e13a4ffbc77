package beacon

import (
	"errors"
	"time"

	"go.dedis.ch/kyber/v3/pairing"
	"go.dedis.ch/kyber/v3/share"
	"go.dedis.ch/kyber/v3/sign/tbls"
	"go.dedis.ch/onet/v3"
	"go.dedis.ch/onet/v3/log"
)

// SignProtocol runs one threshold-BLS signing round over the beacon message.
type SignProtocol struct {
	*onet.TreeNodeInstance
	Msg []byte

	announceChan chan announceChan
	shareChan    chan shareChan
	doneChan     chan doneChan

	verifyMsg func([]byte) error
	sk        *share.PriShare
	pk        *share.PubPoly
	suite     pairing.Suite
	threshold int

	// FinalSignature delivers the recovered signature, once.
	FinalSignature chan []byte
}

// Announce carries the message to sign.
type Announce struct {
	Msg []byte
}
type announceChan struct {
	*onet.TreeNode
	Announce
}

// Share carries one node's partial signature.
type Share struct {
	Partial []byte
}
type shareChan struct {
	*onet.TreeNode
	Share
}

// Done is the end-of-round synchronisation message.
type Done struct{}

type doneChan struct {
	*onet.TreeNode
	Done
}

// NewSignProtocol initialises the structure for one signing round.
func NewSignProtocol(n *onet.TreeNodeInstance, vf func([]byte) error,
	sk *share.PriShare, pk *share.PubPoly, suite pairing.Suite) (onet.ProtocolInstance, error) {
	numNodes := len(n.Roster().List)
	p := &SignProtocol{
		TreeNodeInstance: n,
		verifyMsg:        vf,
		sk:               sk,
		pk:               pk,
		suite:            suite,
		threshold:        numNodes - (numNodes-1)/3,
		FinalSignature:   make(chan []byte, 1),
	}
	if err := p.RegisterChannels(&p.announceChan, &p.shareChan, &p.doneChan); err != nil {
		return nil, err
	}
	return p, nil
}

// Start implements the onet.ProtocolInstance interface.
func (p *SignProtocol) Start() error {
	if len(p.Msg) == 0 {
		return errors.New("empty message")
	}
	log.Lvl3(p.ServerIdentity(), "starting beacon round")
	return p.fullBroadcast(&Announce{p.Msg})
}

// Dispatch implements the onet.ProtocolInstance interface.
func (p *SignProtocol) Dispatch() error {
	defer p.Done()
	announce := <-p.announceChan
	if err := p.verifyMsg(announce.Msg); err != nil {
		return err
	}
	log.Lvl3(p.ServerIdentity(), "signing")
	partial, err := tbls.Sign(p.suite, p.sk, announce.Msg)
	if err != nil {
		return err
	}
	if err := p.fullBroadcast(&Share{partial}); err != nil {
		return err
	}
	log.Lvl3(p.ServerIdentity(), "collecting shares")
	n := len(p.List())
	shares := make([][]byte, n)
	for i := 0; i < n; i++ {
		sm := <-p.shareChan
		shares[i] = sm.Partial
	}
	final, err := tbls.Recover(p.suite, p.pk, announce.Msg, shares, p.threshold, n)
	if err != nil {
		return err
	}
	log.Lvl3(p.ServerIdentity(), "recovered")
	if p.IsRoot() {
		for i := 0; i < n-1; i++ {
			select {
			case <-p.doneChan:
			case <-time.After(time.Second):
				return errors.New("time out while synchronising")
			}
		}
		p.FinalSignature <- final
		return nil
	}
	p.FinalSignature <- final
	return p.SendTo(p.Root(), &Done{})
}

func (p *SignProtocol) fullBroadcast(msg interface{}) error {
	n := len(p.List())
	errc := make(chan error, n)
	for _, treenode := range p.List() {
		go func(tn *onet.TreeNode) {
			errc <- p.SendTo(tn, msg)
		}(treenode)
	}
	for i := 0; i < n; i++ {
		if err := <-errc; err != nil {
			return err
		}
	}
	return nil
}
