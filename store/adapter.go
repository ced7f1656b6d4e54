package store

import (
	"io"

	"github.com/katzenpost/wcbridge"
)

// sessionSlot is the single key this adapter ever reads or writes.
const sessionSlot = "walletconnect"

// Codec encodes and decodes a Snapshot for storage in a KV.
type Codec interface {
	Marshal(snapshot *wcbridge.Snapshot) ([]byte, error)
	Unmarshal(data []byte, snapshot *wcbridge.Snapshot) error
}

// Adapter turns a KV plus a Codec into a wcbridge.Store, writing and
// reading the single "walletconnect" slot.
type Adapter struct {
	kv    KV
	codec Codec
}

// NewAdapter constructs an Adapter over kv using codec.
func NewAdapter(kv KV, codec Codec) *Adapter {
	return &Adapter{kv: kv, codec: codec}
}

func (a *Adapter) Load() (*wcbridge.Snapshot, bool, error) {
	raw, ok, err := a.kv.Get(sessionSlot)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}

	var snapshot wcbridge.Snapshot
	if err := a.codec.Unmarshal(raw, &snapshot); err != nil {
		// A corrupt slot is treated as absent.
		return nil, false, nil
	}
	if snapshot.Bridge == "" {
		return nil, false, nil
	}
	return &snapshot, true, nil
}

func (a *Adapter) Save(snapshot *wcbridge.Snapshot) error {
	raw, err := a.codec.Marshal(snapshot)
	if err != nil {
		return err
	}
	return a.kv.Set(sessionSlot, raw)
}

func (a *Adapter) Erase() error {
	return a.kv.Remove(sessionSlot)
}

// Close releases the underlying KV's resources, if it holds any.
func (a *Adapter) Close() error {
	if c, ok := a.kv.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
