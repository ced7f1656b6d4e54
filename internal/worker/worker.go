// Package worker provides the named background-goroutine lifecycle used
// by Transport and Session.
package worker

import (
	"sync"

	"gopkg.in/op/go-logging.v1"
)

// Worker is a set of managed background goroutines sharing one halt
// signal. Each goroutine is started under a name so that a stuck Halt —
// one that never returns because some goroutine never observed HaltCh —
// shows up in the log as a goroutine that started but never reported
// halted, rather than a silent hang.
type Worker struct {
	sync.WaitGroup
	initOnce sync.Once

	log    *logging.Logger
	haltCh chan interface{}
}

// Init installs the logger used for goroutine lifecycle telemetry. It is
// optional: a Worker with no Init call still works, it just never logs.
// Transport and Session call this once, at construction, with their own
// per-session logger so halt telemetry lands under the right module tag.
func (w *Worker) Init(log *logging.Logger) {
	w.log = log
}

// Go starts fn in a new goroutine under name, used only to label the
// lifecycle log lines below. fn is responsible for monitoring HaltCh and
// returning promptly when it closes.
func (w *Worker) Go(name string, fn func()) {
	w.initOnce.Do(w.init)
	w.Add(1)
	w.logf("%s: started", name)
	go func() {
		defer w.Done()
		defer w.logf("%s: halted", name)
		fn()
	}()
}

// Halt signals every goroutine started under this Worker to terminate and
// blocks until all of them have returned.
func (w *Worker) Halt() {
	w.initOnce.Do(w.init)
	w.logf("halting")
	close(w.haltCh)
	w.Wait()
	w.logf("halt complete")
}

// HaltCh returns the channel that is closed when Halt is called.
func (w *Worker) HaltCh() <-chan interface{} {
	w.initOnce.Do(w.init)
	return w.haltCh
}

func (w *Worker) logf(format string, args ...interface{}) {
	if w.log == nil {
		return
	}
	w.log.Debugf(format, args...)
}

func (w *Worker) init() {
	w.haltCh = make(chan interface{})
}
