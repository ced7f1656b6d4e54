package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/katzenpost/wcbridge"
)

func sampleSnapshot() *wcbridge.Snapshot {
	return &wcbridge.Snapshot{
		Connected:      true,
		Bridge:         "https://b.example",
		Key:            "deadbeef",
		ClientID:       "client-1",
		PeerID:         "peer-1",
		HandshakeTopic: "topic-1",
		ChainID:        1,
		Accounts:       []string{"0xabc"},
	}
}

func TestMemoryAdapterLoadSaveErase(t *testing.T) {
	require := require.New(t)

	a := NewMemory()

	_, ok, err := a.Load()
	require.NoError(err)
	require.False(ok)

	snap := sampleSnapshot()
	require.NoError(a.Save(snap))

	loaded, ok, err := a.Load()
	require.NoError(err)
	require.True(ok)
	require.Equal(snap, loaded)

	require.NoError(a.Erase())
	_, ok, err = a.Load()
	require.NoError(err)
	require.False(ok)
}

func TestMemoryAdapterRejectsMissingBridge(t *testing.T) {
	require := require.New(t)

	a := NewMemory()
	snap := sampleSnapshot()
	snap.Bridge = ""
	require.NoError(a.Save(snap))

	_, ok, err := a.Load()
	require.NoError(err)
	require.False(ok)
}

func TestMemoryAdapterTreatsCorruptSlotAsAbsent(t *testing.T) {
	require := require.New(t)

	kv := NewMemoryKV()
	require.NoError(kv.Set(sessionSlot, []byte("not json")))
	a := NewAdapter(kv, JSONCodec{})

	_, ok, err := a.Load()
	require.NoError(err)
	require.False(ok)
}

func TestCBORCodecRoundTrip(t *testing.T) {
	require := require.New(t)

	a := NewAdapter(NewMemoryKV(), CBORCodec{})
	snap := sampleSnapshot()
	require.NoError(a.Save(snap))

	loaded, ok, err := a.Load()
	require.NoError(err)
	require.True(ok)
	require.Equal(snap, loaded)
}

func TestBoltKVLoadSaveErase(t *testing.T) {
	require := require.New(t)

	dbPath := filepath.Join(t.TempDir(), "session.bolt")
	a, err := NewBolt(dbPath, JSONCodec{})
	require.NoError(err)
	defer a.Close()

	_, ok, err := a.Load()
	require.NoError(err)
	require.False(ok)

	snap := sampleSnapshot()
	require.NoError(a.Save(snap))

	loaded, ok, err := a.Load()
	require.NoError(err)
	require.True(ok)
	require.Equal(snap, loaded)

	require.NoError(a.Erase())
	_, ok, err = a.Load()
	require.NoError(err)
	require.False(ok)
}

func TestBoltKVPersistsAcrossReopen(t *testing.T) {
	require := require.New(t)

	dbPath := filepath.Join(t.TempDir(), "session.bolt")
	a, err := NewBolt(dbPath, JSONCodec{})
	require.NoError(err)

	snap := sampleSnapshot()
	require.NoError(a.Save(snap))
	require.NoError(a.Close())

	reopened, err := NewBolt(dbPath, JSONCodec{})
	require.NoError(err)
	defer reopened.Close()

	loaded, ok, err := reopened.Load()
	require.NoError(err)
	require.True(ok)
	require.Equal(snap, loaded)
}
