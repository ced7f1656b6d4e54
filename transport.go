package wcbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"gopkg.in/op/go-logging.v1"

	"github.com/katzenpost/wcbridge/internal/worker"
)

// Frame is the relay wire protocol message: a JSON object published or
// subscribed under a topic.
type Frame struct {
	Topic   string `json:"topic"`
	Type    string `json:"type"` // "pub" or "sub"
	Payload string `json:"payload"`
}

const (
	frameTypePub = "pub"
	frameTypeSub = "sub"
)

// Transport is the relay bridge connection: it queues frames submitted
// before the socket opens, subscribes to clientID (and any other active
// topic) on open, then filters inbound frames to the active topic set.
type Transport struct {
	worker.Worker

	log      *logging.Logger
	clientID string
	dialer   *websocket.Dialer

	queue *frameQueue

	topicsMu sync.RWMutex
	topics   map[string]bool

	mu     sync.Mutex
	conn   *websocket.Conn
	opened bool
	sendCh chan sendRequest

	recvCh chan Frame
	errCh  chan error
}

type sendRequest struct {
	frame Frame
	errCh chan error
}

// NewTransport constructs a Transport for clientID. clientID is always in
// the active topic set.
func NewTransport(log *logging.Logger, clientID string, queueCapacity int, dialTimeout time.Duration) *Transport {
	t := &Transport{
		log:      log,
		clientID: clientID,
		dialer:   &websocket.Dialer{HandshakeTimeout: dialTimeout},
		queue:    newFrameQueue(queueCapacity),
		topics:   map[string]bool{clientID: true},
		sendCh:   make(chan sendRequest),
		recvCh:   make(chan Frame, 32),
		errCh:    make(chan error, 1),
	}
	t.Worker.Init(log)
	return t
}

// AddTopic admits topic to the active-topic set; inbound frames with
// other topics are dropped.
func (t *Transport) AddTopic(topic string) {
	t.topicsMu.Lock()
	defer t.topicsMu.Unlock()
	t.topics[topic] = true
}

// RemoveTopic revokes topic from the active-topic set. The caller
// discards handshakeTopic once peerId is known and the session is
// approved.
func (t *Transport) RemoveTopic(topic string) {
	t.topicsMu.Lock()
	defer t.topicsMu.Unlock()
	delete(t.topics, topic)
}

func (t *Transport) hasTopic(topic string) bool {
	t.topicsMu.RLock()
	defer t.topicsMu.RUnlock()
	return t.topics[topic]
}

// rewriteScheme rewrites http(s) bridge URLs to ws(s); other schemes pass
// through unchanged.
func rewriteScheme(bridge string) string {
	switch {
	case strings.HasPrefix(bridge, "https://"):
		return "wss://" + strings.TrimPrefix(bridge, "https://")
	case strings.HasPrefix(bridge, "http://"):
		return "ws://" + strings.TrimPrefix(bridge, "http://")
	default:
		return bridge
	}
}

// Open dials bridge, emits the initial subscribe frame for clientID,
// followed by one for every other topic already in the active set (the
// wallet side's handshakeTopic), then drains the pre-connect queue in
// submission order before entering steady state.
func (t *Transport) Open(ctx context.Context, bridge string) error {
	wsURL := rewriteScheme(bridge)

	conn, _, err := t.dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("wcbridge: dial %s: %w", wsURL, err)
	}

	t.mu.Lock()
	t.conn = conn
	t.mu.Unlock()

	sub := Frame{Topic: t.clientID, Type: frameTypeSub, Payload: ""}
	if err := t.writeFrame(sub); err != nil {
		conn.Close()
		return err
	}

	t.topicsMu.RLock()
	var extra []string
	for topic := range t.topics {
		if topic != t.clientID {
			extra = append(extra, topic)
		}
	}
	t.topicsMu.RUnlock()
	for _, topic := range extra {
		if err := t.writeFrame(Frame{Topic: topic, Type: frameTypeSub, Payload: ""}); err != nil {
			conn.Close()
			return err
		}
	}

	for _, frame := range t.queue.drain() {
		if err := t.writeFrame(frame); err != nil {
			conn.Close()
			return err
		}
	}

	t.mu.Lock()
	t.opened = true
	t.mu.Unlock()

	t.Go("write-pump", t.writePump)
	t.Go("read-pump", t.readPump)

	return nil
}

func (t *Transport) writeFrame(frame Frame) error {
	return t.conn.WriteJSON(frame)
}

// Send submits frame for delivery. Before Open, or while Open is
// draining, frame is appended to the pre-connect queue; afterwards it is
// handed to the steady-state write pump. Every outbound frame must carry
// a non-empty topic, and a non-empty payload unless it is a subscribe
// frame.
func (t *Transport) Send(frame Frame) error {
	t.mu.Lock()
	opened := t.opened
	t.mu.Unlock()

	if !opened {
		return t.queue.push(frame)
	}

	req := sendRequest{frame: frame, errCh: make(chan error, 1)}
	select {
	case t.sendCh <- req:
	case <-t.HaltCh():
		return fmt.Errorf("wcbridge: transport closed")
	}
	select {
	case err := <-req.errCh:
		return err
	case <-t.HaltCh():
		return fmt.Errorf("wcbridge: transport closed")
	}
}

func (t *Transport) writePump() {
	for {
		select {
		case <-t.HaltCh():
			return
		case req := <-t.sendCh:
			req.errCh <- t.writeFrame(req.frame)
		}
	}
}

func (t *Transport) readPump() {
	for {
		_, data, err := t.conn.ReadMessage()
		if err != nil {
			select {
			case t.errCh <- fmt.Errorf("wcbridge: relay read failed: %w", err):
			case <-t.HaltCh():
			}
			return
		}

		var frame Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			select {
			case t.errCh <- fmt.Errorf("%w: %v", ErrTransportProtocolError, err):
			case <-t.HaltCh():
			}
			return
		}

		if !t.hasTopic(frame.Topic) {
			t.log.Debugf("dropping frame for unknown topic %q", frame.Topic)
			continue
		}

		select {
		case t.recvCh <- frame:
		case <-t.HaltCh():
			return
		}
	}
}

// Receive blocks until a topic-admitted frame arrives, ctx is canceled, or
// the receive path has hit a fatal transport error.
func (t *Transport) Receive(ctx context.Context) (Frame, error) {
	select {
	case frame := <-t.recvCh:
		return frame, nil
	case err := <-t.errCh:
		return Frame{}, err
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	case <-t.HaltCh():
		return Frame{}, fmt.Errorf("wcbridge: transport closed")
	}
}

// Close tears down the relay socket. There is no reconnect: the socket
// is single-shot.
func (t *Transport) Close() error {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()

	// Closing the socket first unblocks readPump's ReadMessage, so Halt
	// does not wait on it forever.
	var err error
	if conn != nil {
		err = conn.Close()
	}
	t.Halt()
	return err
}
