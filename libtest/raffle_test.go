package libtest

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dedis/raffle/beacon"
	"github.com/dedis/raffle/raffle"
	"github.com/dedis/raffle/utils"
	"github.com/stretchr/testify/require"
	"go.dedis.ch/cothority/v3"
	"go.dedis.ch/onet/v3"
	"go.dedis.ch/onet/v3/log"
)

func TestMain(m *testing.M) {
	log.MainTest(m)
}

func waitWinner(t *testing.T, cl *raffle.Client, roundNum uint64) *raffle.RoundInfoReply {
	deadline := time.Now().Add(15 * time.Second)
	for time.Now().Before(deadline) {
		info, err := cl.RoundInfo()
		require.NoError(t, err)
		if info.Number == roundNum+1 {
			return info
		}
		time.Sleep(200 * time.Millisecond)
	}
	t.Fatalf("round %d did not resolve in time", roundNum)
	return nil
}

func Test_Raffle(t *testing.T) {
	log.SetDebugVisible(1)
	local := onet.NewTCPTest(cothority.Suite)
	defer local.CloseAll()
	_, roster, _ := local.GenTree(5, true)

	dir, err := ioutil.TempDir("", "raffle-e2e")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	// Initialize the beacon
	randCl := beacon.NewClient(roster)
	dkgReply, err := randCl.InitDKG()
	require.NoError(t, err)
	require.NotNil(t, dkgReply.Public)
	time.Sleep(time.Second / 2)

	// Initialize the raffle unit
	cl := raffle.NewClient(roster)
	_, err = cl.InitUnit(roster, 1, 2*time.Second, 2,
		filepath.Join(dir, "archive.db"))
	require.NoError(t, err)

	// Round 1: three participants enter
	entrants := utils.GenerateEntrants(3)
	ids := make([]string, len(entrants))
	for i, p := range entrants {
		reply, err := cl.Enter(p.Public, p.Private, uint64(i+1))
		require.NoError(t, err)
		require.Equal(t, i+1, reply.Entries)
		id, err := utils.PointToID(p.Public)
		require.NoError(t, err)
		ids[i] = id
	}

	slot, err := cl.GetParticipant(1)
	require.NoError(t, err)
	require.Equal(t, ids[1], slot.Participant)

	ready, err := cl.CheckReady()
	require.NoError(t, err)
	require.False(t, ready.Ready)
	require.Equal(t, uint64(6), ready.PoolValue)
	require.Equal(t, 3, ready.Participants)

	time.Sleep(2 * time.Second)
	ready, err = cl.CheckReady()
	require.NoError(t, err)
	require.True(t, ready.Ready)

	sel, err := cl.StartSelection()
	require.NoError(t, err)
	require.NotEmpty(t, sel.Token)

	info := waitWinner(t, cl, 1)
	require.Contains(t, ids, info.LastWinner)
	require.Equal(t, "open", info.State)
	require.Equal(t, uint64(0), info.PoolValue)
	require.Equal(t, 0, info.Participants)

	winners, err := cl.GetWinners()
	require.NoError(t, err)
	require.Len(t, winners.Records, 1)
	require.Equal(t, uint64(6), winners.Records[0].Payout)
	require.Equal(t, info.LastWinner, winners.Records[0].Winner)

	// Round 2: the reset round runs a full cycle again
	p := entrants[0]
	_, err = cl.Enter(p.Public, p.Private, 4)
	require.NoError(t, err)
	time.Sleep(2 * time.Second)
	_, err = cl.StartSelection()
	require.NoError(t, err)

	info = waitWinner(t, cl, 2)
	require.Equal(t, ids[0], info.LastWinner)

	winners, err = cl.GetWinners()
	require.NoError(t, err)
	require.Len(t, winners.Records, 2)
	require.Equal(t, uint64(4), winners.Records[1].Payout)
}
