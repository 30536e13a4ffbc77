package raffle

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dedis/raffle/beacon"
	"github.com/dedis/raffle/round"
	"github.com/dedis/raffle/utils"
	"github.com/stretchr/testify/require"
	"go.dedis.ch/cothority/v3"
	"go.dedis.ch/kyber/v3/sign/schnorr"
	"go.dedis.ch/onet/v3"
	"go.dedis.ch/onet/v3/log"
	"golang.org/x/xerrors"
)

func TestMain(m *testing.M) {
	log.MainTest(m)
}

func setupUnit(t *testing.T, local *onet.LocalTest, interval time.Duration,
	archive string) (*Service, *onet.Roster) {
	hosts, roster, _ := local.GenTree(5, true)

	randCl := beacon.NewClient(roster)
	_, err := randCl.InitDKG()
	require.NoError(t, err)
	time.Sleep(time.Second / 2)

	services := local.GetServices(hosts, serviceID)
	root := services[0].(*Service)
	_, err = root.InitUnit(&InitUnitRequest{
		BeaconRoster: roster,
		MinEntry:     1,
		Interval:     interval,
		Width:        2,
		ArchivePath:  archive,
	})
	require.NoError(t, err)
	return root, roster
}

func enter(t *testing.T, root *Service, amount uint64) string {
	pair := utils.GenerateEntrants(1)[0]
	digest, err := utils.TicketDigest(pair.Public, amount)
	require.NoError(t, err)
	sig, err := schnorr.Sign(cothority.Suite, pair.Private, digest)
	require.NoError(t, err)
	_, err = root.Enter(&EnterRequest{Key: pair.Public, Sig: sig, Amount: amount})
	require.NoError(t, err)
	id, err := utils.PointToID(pair.Public)
	require.NoError(t, err)
	return id
}

func waitResolved(t *testing.T, root *Service) *RoundInfoReply {
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		info, err := root.RoundInfo(&RoundInfoRequest{})
		require.NoError(t, err)
		if info.State == round.Open.String() && info.LastWinner != "" {
			return info
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatal("round did not resolve in time")
	return nil
}

func TestFullCycle(t *testing.T) {
	local := onet.NewTCPTest(cothority.Suite)
	defer local.CloseAll()
	dir, err := ioutil.TempDir("", "raffle-test")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	root, _ := setupUnit(t, local, 2*time.Second, filepath.Join(dir, "archive.db"))

	idA := enter(t, root, 1)
	idB := enter(t, root, 2)

	ready, err := root.CheckReady(&CheckReadyRequest{})
	require.NoError(t, err)
	require.False(t, ready.Ready)
	require.Equal(t, uint64(3), ready.PoolValue)
	require.Equal(t, 2, ready.Participants)

	// premature trigger is rejected at commit time
	_, err = root.StartSelection(&StartSelectionRequest{})
	require.Error(t, err)
	require.True(t, xerrors.Is(err, round.ErrUpkeepNotReady))

	time.Sleep(2 * time.Second)
	ready, err = root.CheckReady(&CheckReadyRequest{})
	require.NoError(t, err)
	require.True(t, ready.Ready)

	sel, err := root.StartSelection(&StartSelectionRequest{})
	require.NoError(t, err)
	require.NotEmpty(t, sel.Token)

	info := waitResolved(t, root)
	require.Contains(t, []string{idA, idB}, info.LastWinner)
	require.Equal(t, uint64(0), info.PoolValue)
	require.Equal(t, 0, info.Participants)
	require.Equal(t, uint64(2), info.Number)

	winners, err := root.GetWinners(&GetWinnersRequest{})
	require.NoError(t, err)
	require.Len(t, winners.Records, 1)
	require.Equal(t, uint64(1), winners.Records[0].Round)
	require.Equal(t, info.LastWinner, winners.Records[0].Winner)
	require.Equal(t, uint64(3), winners.Records[0].Payout)

	// the fresh round accepts entries again
	enter(t, root, 1)
}

func TestEnterValidation(t *testing.T) {
	local := onet.NewTCPTest(cothority.Suite)
	defer local.CloseAll()

	root, _ := setupUnit(t, local, time.Minute, "")

	pair := utils.GenerateEntrants(1)[0]
	digest, err := utils.TicketDigest(pair.Public, 5)
	require.NoError(t, err)
	sig, err := schnorr.Sign(cothority.Suite, pair.Private, digest)
	require.NoError(t, err)

	// forged signature
	other := utils.GenerateEntrants(1)[0]
	_, err = root.Enter(&EnterRequest{Key: other.Public, Sig: sig, Amount: 5})
	require.Error(t, err)

	// a captured ticket replayed with a different amount
	_, err = root.Enter(&EnterRequest{Key: pair.Public, Sig: sig, Amount: 50})
	require.Error(t, err)

	// below minimum, signed for that amount so the gate under test is the
	// round's and not the signature's
	lowDigest, err := utils.TicketDigest(pair.Public, 0)
	require.NoError(t, err)
	lowSig, err := schnorr.Sign(cothority.Suite, pair.Private, lowDigest)
	require.NoError(t, err)
	_, err = root.Enter(&EnterRequest{Key: pair.Public, Sig: lowSig, Amount: 0})
	require.Error(t, err)
	require.True(t, xerrors.Is(err, round.ErrInsufficientAmount))

	// valid entry
	reply, err := root.Enter(&EnterRequest{Key: pair.Public, Sig: sig, Amount: 5})
	require.NoError(t, err)
	require.Equal(t, 1, reply.Entries)
	require.Equal(t, uint64(5), reply.PoolValue)

	p, err := root.GetParticipant(&GetParticipantRequest{Index: 0})
	require.NoError(t, err)
	id, err := utils.PointToID(pair.Public)
	require.NoError(t, err)
	require.Equal(t, id, p.Participant)

	_, err = root.GetParticipant(&GetParticipantRequest{Index: 1})
	require.Error(t, err)
	require.True(t, xerrors.Is(err, round.ErrNoSuchEntry))
}

func TestFulfillStaleToken(t *testing.T) {
	local := onet.NewTCPTest(cothority.Suite)
	defer local.CloseAll()

	root, _ := setupUnit(t, local, time.Minute, "")
	enter(t, root, 2)

	// no selection pending
	_, err := root.Fulfill(&FulfillRequest{Token: []byte("bogus"), Values: []uint64{1}})
	require.Error(t, err)
	require.True(t, xerrors.Is(err, round.ErrStaleRequest))
}

func TestInitUnitGuards(t *testing.T) {
	local := onet.NewTCPTest(cothority.Suite)
	defer local.CloseAll()
	hosts, roster, _ := local.GenTree(3, true)

	services := local.GetServices(hosts, serviceID)
	root := services[0].(*Service)

	// handlers refuse before initialisation
	_, err := root.Enter(&EnterRequest{})
	require.Error(t, err)
	_, err = root.CheckReady(&CheckReadyRequest{})
	require.Error(t, err)

	_, err = root.InitUnit(&InitUnitRequest{
		BeaconRoster: roster,
		MinEntry:     1,
		Interval:     time.Minute,
		Width:        1,
	})
	require.NoError(t, err)

	// double initialisation
	_, err = root.InitUnit(&InitUnitRequest{
		BeaconRoster: roster,
		MinEntry:     1,
		Interval:     time.Minute,
		Width:        1,
	})
	require.Error(t, err)
}
