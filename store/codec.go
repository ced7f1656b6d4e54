package store

import (
	"encoding/json"

	"github.com/fxamacker/cbor/v2"

	"github.com/katzenpost/wcbridge"
)

// JSONCodec encodes snapshots as JSON.
type JSONCodec struct{}

func (JSONCodec) Marshal(snapshot *wcbridge.Snapshot) ([]byte, error) {
	return json.Marshal(snapshot)
}

func (JSONCodec) Unmarshal(data []byte, snapshot *wcbridge.Snapshot) error {
	return json.Unmarshal(data, snapshot)
}

// CBORCodec encodes snapshots as CBOR, the denser wire format the
// teacher's client2/panda packages use for on-disk state.
type CBORCodec struct{}

func (CBORCodec) Marshal(snapshot *wcbridge.Snapshot) ([]byte, error) {
	return cbor.Marshal(snapshot)
}

func (CBORCodec) Unmarshal(data []byte, snapshot *wcbridge.Snapshot) error {
	return cbor.Unmarshal(data, snapshot)
}

// NewBolt returns a wcbridge.Store backed by a bbolt database at path,
// using codec to (de)serialize the snapshot. Pass JSONCodec{} for a
// human-inspectable file, or CBORCodec{} for the denser format. Call
// Close on the returned Adapter to release the database handle.
func NewBolt(path string, codec Codec) (*Adapter, error) {
	kv, err := NewBoltKV(path)
	if err != nil {
		return nil, err
	}
	return NewAdapter(kv, codec), nil
}
