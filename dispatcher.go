package wcbridge

import (
	"fmt"
	"sync"
)

// genericRequestSink is the fallback event key: listeners registered on
// call_request act as a generic request sink.
const genericRequestSink = "call_request"

// EventCallback receives the event key it was matched against and the
// payload the dispatcher classified it from.
type EventCallback func(event string, payload interface{})

type listenerEntry struct {
	event    string
	cb       EventCallback
	oneShot  bool
	disabled bool
}

// Dispatcher is an append-only listener table. Listeners registered with
// On are never removed by dispatch itself; duplicate registrations fire multiple
// times by design, so both specific-id and method-level observers can
// coexist.
//
// Response correlation does not reuse this general table's append-only
// semantics: Session registers one-shot "response:<id>" listeners via
// once, which the dispatcher removes after they fire, instead of leaking
// an entry per call forever.
type Dispatcher struct {
	mu        sync.Mutex
	listeners []*listenerEntry
}

// NewDispatcher returns an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

// On registers cb to fire every time an event matching key is dispatched.
func (d *Dispatcher) On(event string, cb EventCallback) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners = append(d.listeners, &listenerEntry{event: event, cb: cb})
}

// once registers cb to fire exactly once, then be removed. Used
// internally for per-call response correlators.
func (d *Dispatcher) once(event string, cb EventCallback) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners = append(d.listeners, &listenerEntry{event: event, cb: cb, oneShot: true})
}

// Off removes every listener registered on event.
func (d *Dispatcher) Off(event string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	kept := d.listeners[:0]
	for _, l := range d.listeners {
		if l.event != event {
			kept = append(kept, l)
		}
	}
	d.listeners = kept
}

// eventKeyForResponse formats the "response:<id>" event key a Response
// classifies to.
func eventKeyForResponse(id int64) string {
	return fmt.Sprintf("response:%d", id)
}

// Dispatch invokes every listener registered on event with payload. If no
// listener matches, it falls back to listeners registered on
// "call_request". One-shot listeners that fire are removed.
func (d *Dispatcher) Dispatch(event string, payload interface{}) {
	d.mu.Lock()
	var matched []*listenerEntry
	var kept []*listenerEntry
	for _, l := range d.listeners {
		if l.event == event {
			matched = append(matched, l)
			if !l.oneShot {
				kept = append(kept, l)
			}
		} else {
			kept = append(kept, l)
		}
	}
	if len(matched) == 0 {
		for _, l := range d.listeners {
			if l.event == genericRequestSink {
				matched = append(matched, l)
			}
		}
	}
	d.listeners = kept
	d.mu.Unlock()

	for _, l := range matched {
		l.cb(event, payload)
	}
}
