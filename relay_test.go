package wcbridge

import (
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/gorilla/websocket"
)

// mockRelay is an in-process stand-in for the untrusted bridge server: it
// accepts websocket connections, tracks "sub" subscriptions per topic,
// and forwards "pub" frames to every connection currently subscribed to
// that topic. A frame published with no live subscriber is retained and
// flushed to the next subscriber of that topic, the way a production
// relay queues messages for a not-yet-connected peer.
type mockRelay struct {
	server   *httptest.Server
	upgrader websocket.Upgrader

	writeMu sync.Mutex
	mu      sync.Mutex
	subs    map[string][]*websocket.Conn
	pending map[string][]Frame
}

func newMockRelay() *mockRelay {
	r := &mockRelay{
		subs:    make(map[string][]*websocket.Conn),
		pending: make(map[string][]Frame),
	}
	r.server = httptest.NewServer(http.HandlerFunc(r.handle))
	return r
}

// bridgeURL returns the http(s) URL Session.Open rewrites to ws(s),
// matching the real-world use of an http(s) bridge address.
func (r *mockRelay) bridgeURL() string {
	return r.server.URL
}

func (r *mockRelay) close() {
	r.server.Close()
}

func (r *mockRelay) handle(w http.ResponseWriter, req *http.Request) {
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	for {
		var frame Frame
		if err := conn.ReadJSON(&frame); err != nil {
			r.dropConn(conn)
			return
		}
		switch frame.Type {
		case frameTypeSub:
			r.subscribe(conn, frame.Topic)
		case frameTypePub:
			r.publish(frame)
		}
	}
}

func (r *mockRelay) subscribe(conn *websocket.Conn, topic string) {
	r.mu.Lock()
	r.subs[topic] = append(r.subs[topic], conn)
	backlog := r.pending[topic]
	delete(r.pending, topic)
	r.mu.Unlock()

	for _, frame := range backlog {
		r.writeTo(conn, frame)
	}
}

func (r *mockRelay) publish(frame Frame) {
	r.mu.Lock()
	conns := append([]*websocket.Conn(nil), r.subs[frame.Topic]...)
	if len(conns) == 0 {
		r.pending[frame.Topic] = append(r.pending[frame.Topic], frame)
	}
	r.mu.Unlock()

	for _, conn := range conns {
		r.writeTo(conn, frame)
	}
}

func (r *mockRelay) writeTo(conn *websocket.Conn, frame Frame) {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	_ = conn.WriteJSON(frame)
}

func (r *mockRelay) dropConn(conn *websocket.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for topic, conns := range r.subs {
		kept := conns[:0]
		for _, c := range conns {
			if c != conn {
				kept = append(kept, c)
			}
		}
		r.subs[topic] = kept
	}
}
