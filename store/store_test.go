package store

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func tempStore(t *testing.T) (*Store, string) {
	dir, err := ioutil.TempDir("", "raffle-store")
	require.NoError(t, err)
	s, err := Open(filepath.Join(dir, "archive.db"))
	require.NoError(t, err)
	return s, dir
}

func TestAppendAndWinners(t *testing.T) {
	s, dir := tempStore(t)
	defer os.RemoveAll(dir)
	defer s.Close()

	recs, err := s.Winners()
	require.NoError(t, err)
	require.Len(t, recs, 0)

	for i := uint64(1); i <= 3; i++ {
		err := s.Append(&Record{
			Round:     i,
			Winner:    "w",
			Payout:    i * 10,
			Token:     []byte{byte(i)},
			Timestamp: time.Now().Unix(),
		})
		require.NoError(t, err)
	}

	recs, err = s.Winners()
	require.NoError(t, err)
	require.Len(t, recs, 3)
	require.Equal(t, uint64(1), recs[0].Round)
	require.Equal(t, uint64(30), recs[2].Payout)

	last, err := s.Last()
	require.NoError(t, err)
	require.NotNil(t, last)
	require.Equal(t, uint64(3), last.Round)
}

func TestLastEmpty(t *testing.T) {
	s, dir := tempStore(t)
	defer os.RemoveAll(dir)
	defer s.Close()

	last, err := s.Last()
	require.NoError(t, err)
	require.Nil(t, last)
}

func TestReopen(t *testing.T) {
	dir, err := ioutil.TempDir("", "raffle-store")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "archive.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Append(&Record{Round: 7, Winner: "x", Payout: 5}))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	last, err := s.Last()
	require.NoError(t, err)
	require.Equal(t, uint64(7), last.Round)
	require.Equal(t, "x", last.Winner)
}
