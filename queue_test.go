package wcbridge

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFrameQueuePreservesOrder(t *testing.T) {
	require := require.New(t)

	q := newFrameQueue(4)
	require.NoError(q.push(Frame{Topic: "a", Type: frameTypePub, Payload: "1"}))
	require.NoError(q.push(Frame{Topic: "a", Type: frameTypePub, Payload: "2"}))
	require.NoError(q.push(Frame{Topic: "a", Type: frameTypePub, Payload: "3"}))

	drained := q.drain()
	require.Len(drained, 3)
	require.Equal("1", drained[0].Payload)
	require.Equal("2", drained[1].Payload)
	require.Equal("3", drained[2].Payload)
}

func TestFrameQueueDrainEmptiesQueue(t *testing.T) {
	require := require.New(t)

	q := newFrameQueue(4)
	require.NoError(q.push(Frame{Topic: "a", Payload: "1"}))
	q.drain()
	require.Empty(q.drain())
}

func TestFrameQueueRejectsPushBeyondCapacity(t *testing.T) {
	require := require.New(t)

	q := newFrameQueue(2)
	require.NoError(q.push(Frame{Topic: "a", Payload: "1"}))
	require.NoError(q.push(Frame{Topic: "a", Payload: "2"}))
	err := q.push(Frame{Topic: "a", Payload: "3"})
	require.ErrorIs(err, ErrQueueFull)
}
