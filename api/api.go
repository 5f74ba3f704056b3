// Copyright 2026 The Riglink Authors
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"log/slog"
	"sync"
	"time"

	"github.com/riglink-foundation/riglink/lib/clock"
	"github.com/riglink-foundation/riglink/lib/event"
	"github.com/riglink-foundation/riglink/session"
)

// Runner timing.
const (
	// reconnectDebounce is the pause after losing a session before
	// trying to reopen, so a restarting backend is not hammered while
	// it tears down.
	reconnectDebounce = time.Second

	// retryInterval is the pause between rendezvous attempts while no
	// backend is up.
	retryInterval = 4 * time.Second
)

// Listener observes the runner's session lifecycle. Callbacks run on
// the runner goroutine; they may call session methods (including
// RegisterToControl) but must not call back into AddListener or
// RemoveListener, and should not block for long.
type Listener interface {
	// ListenerAdded runs once after registration, with the currently
	// active session or nil.
	ListenerAdded(api *API, active *session.Session)

	// ListenerRemoved runs once when the listener is detached, on
	// removal or API close.
	ListenerRemoved(api *API)

	// SessionStateChanged runs on every state transition of the
	// active session, including the initial ConnectedMonitor.
	SessionStateChanged(s *session.Session, state session.State)

	// ControlFlagsChanged runs when the granted control flags change.
	ControlFlagsChanged(s *session.Session, flags uint32)
}

// Options configures New.
type Options struct {
	// SHMDir overrides the shared-memory directory.
	SHMDir string

	// Clock substitutes the time source.
	Clock clock.Clock

	// Logger receives runtime log records. Nil uses slog.Default.
	Logger *slog.Logger
}

// API owns the background session runner. Construct with New, release
// with Close.
type API struct {
	shmDir string
	clk    clock.Clock
	log    *slog.Logger

	producer *session.Producer

	mu     sync.Mutex
	active *session.Session

	actions chan listenerAction
	kick    chan struct{}
	done    chan struct{}
	stopped sync.WaitGroup
}

type listenerAction struct {
	listener Listener
	remove   bool
	ack      chan struct{}
}

// New starts the background runner.
func New(opts Options) *API {
	clk := opts.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	a := &API{
		shmDir:   opts.SHMDir,
		clk:      clk,
		log:      logger,
		producer: event.NewProducer[session.Event](),
		actions:  make(chan listenerAction, 16),
		kick:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	a.stopped.Add(1)
	go a.run()
	return a
}

// Session returns the currently active session, or nil while
// disconnected.
func (a *API) Session() *session.Session {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.active
}

// NewEventQueue subscribes a queue on the shared producer. The queue
// keeps delivering across reconnects. If a session is active, its
// current state is queued first.
func (a *API) NewEventQueue() *session.Queue {
	a.mu.Lock()
	active := a.active
	a.mu.Unlock()
	if active != nil {
		return active.NewEventQueue()
	}
	return a.producer.NewQueue()
}

// AddListener registers a listener; its ListenerAdded callback runs on
// the runner goroutine shortly after.
func (a *API) AddListener(l Listener) {
	a.submit(listenerAction{listener: l})
}

// RemoveListener detaches a listener and waits until its
// ListenerRemoved callback has run, so the caller may release the
// listener's resources afterward.
func (a *API) RemoveListener(l Listener) {
	ack := make(chan struct{})
	a.submit(listenerAction{listener: l, remove: true, ack: ack})
	select {
	case <-ack:
	case <-a.done:
	}
}

func (a *API) submit(action listenerAction) {
	select {
	case a.actions <- action:
	case <-a.done:
		if action.ack != nil {
			close(action.ack)
		}
		return
	}
	// Wake the runner whether it is waiting in RunUntilStateChanges or
	// in a retry pause.
	a.mu.Lock()
	active := a.active
	a.mu.Unlock()
	if active != nil {
		active.Stop()
	}
	select {
	case a.kick <- struct{}{}:
	default:
	}
}

// Close stops the runner, closes any active session, and notifies every
// listener of removal. Idempotent.
func (a *API) Close() {
	a.mu.Lock()
	select {
	case <-a.done:
		a.mu.Unlock()
		return
	default:
	}
	close(a.done)
	active := a.active
	a.mu.Unlock()

	if active != nil {
		active.Stop()
	}
	a.stopped.Wait()
	a.producer.Close()
}

// run is the background session loop.
func (a *API) run() {
	defer a.stopped.Done()

	var listeners []Listener
	var active *session.Session
	prevState := session.Invalid
	prevFlags := uint32(0)

	applyActions := func() {
		for {
			select {
			case act := <-a.actions:
				if act.remove {
					for i, l := range listeners {
						if l == act.listener {
							listeners = append(listeners[:i], listeners[i+1:]...)
							break
						}
					}
					act.listener.ListenerRemoved(a)
					if act.ack != nil {
						close(act.ack)
					}
				} else {
					listeners = append(listeners, act.listener)
					act.listener.ListenerAdded(a, active)
				}
			default:
				return
			}
		}
	}

	shutdown := func() {
		if active != nil {
			for _, l := range listeners {
				l.SessionStateChanged(active, session.SessionLost)
			}
			active.Close()
			a.setActive(nil)
		}
		applyActions()
		for _, l := range listeners {
			l.ListenerRemoved(a)
		}
	}

	for {
		select {
		case <-a.done:
			shutdown()
			return
		default:
		}
		applyActions()

		if active == nil {
			s, err := session.Open(session.OpenOptions{
				SHMDir: a.shmDir,
				Clock:  a.clk,
				Events: a.producer,
				Logger: a.log,
			})
			if err != nil {
				a.log.Debug("rendezvous attempt failed", "error", err)
				a.pause(retryInterval)
				continue
			}
			active = s
			a.setActive(s)
			prevState = session.ConnectedMonitor
			prevFlags = 0
			for _, l := range listeners {
				l.SessionStateChanged(s, session.ConnectedMonitor)
			}
			continue
		}

		state := active.RunUntilStateChanges()
		applyActions()

		if state != prevState {
			prevState = state
			for _, l := range listeners {
				l.SessionStateChanged(active, state)
			}
		}
		if flags := active.ControlFlags(); flags != prevFlags {
			prevFlags = flags
			for _, l := range listeners {
				l.ControlFlagsChanged(active, flags)
			}
		}

		if state == session.SessionLost {
			active.Close()
			active = nil
			a.setActive(nil)
			// Let the backend finish tearing down before rediscovery.
			a.pause(reconnectDebounce)
		}
	}
}

func (a *API) setActive(s *session.Session) {
	a.mu.Lock()
	a.active = s
	a.mu.Unlock()
}

// pause waits up to d, returning early on close or listener activity.
func (a *API) pause(d time.Duration) {
	select {
	case <-a.done:
	case <-a.kick:
	case <-a.clk.After(d):
	}
}
