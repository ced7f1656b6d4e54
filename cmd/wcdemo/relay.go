package main

import (
	"net"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/katzenpost/wcbridge"
)

// demoRelay is a tiny, real (not httptest-mocked) untrusted relay server:
// it accepts websocket connections, tracks "sub" subscriptions per topic,
// and forwards "pub" frames to every connection currently subscribed to
// that topic. It exists only so this demo is runnable end to end without
// a real bridge deployment; the connector never speaks to it through
// anything but the public Session API.
//
// It is a standalone net.Listener rather than an httptest.Server so the
// demo binary owns its own address for the lifetime of the process.
type demoRelay struct {
	listener net.Listener
	server   *http.Server
	upgrader websocket.Upgrader

	writeMu sync.Mutex
	mu      sync.Mutex
	subs    map[string][]*websocket.Conn
	pending map[string][]wcbridge.Frame
}

func newDemoRelay() (*demoRelay, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}
	r := &demoRelay{
		listener: ln,
		subs:     make(map[string][]*websocket.Conn),
		pending:  make(map[string][]wcbridge.Frame),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/", r.handle)
	r.server = &http.Server{Handler: mux}
	go r.server.Serve(ln)
	return r, nil
}

// addr returns the http:// bridge URL this relay listens on.
func (r *demoRelay) addr() string {
	return "http://" + r.listener.Addr().String()
}

func (r *demoRelay) close() error {
	return r.server.Close()
}

func (r *demoRelay) handle(w http.ResponseWriter, req *http.Request) {
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	for {
		var frame wcbridge.Frame
		if err := conn.ReadJSON(&frame); err != nil {
			r.dropConn(conn)
			return
		}
		switch frame.Type {
		case "sub":
			r.subscribe(conn, frame.Topic)
		case "pub":
			r.publish(frame)
		}
	}
}

func (r *demoRelay) subscribe(conn *websocket.Conn, topic string) {
	r.mu.Lock()
	r.subs[topic] = append(r.subs[topic], conn)
	backlog := r.pending[topic]
	delete(r.pending, topic)
	r.mu.Unlock()

	for _, frame := range backlog {
		r.writeTo(conn, frame)
	}
}

func (r *demoRelay) publish(frame wcbridge.Frame) {
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

func (r *demoRelay) writeTo(conn *websocket.Conn, frame wcbridge.Frame) {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	_ = conn.WriteJSON(frame)
}

func (r *demoRelay) dropConn(conn *websocket.Conn) {
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
