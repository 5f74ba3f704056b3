// Copyright 2026 The Riglink Authors
// SPDX-License-Identifier: Apache-2.0

package session

import "github.com/riglink-foundation/riglink/lib/event"

// Event is the sum of everything a session announces to its consumers.
type Event interface {
	// EventSession returns the session the event concerns.
	EventSession() *Session
}

// Queue delivers session events to one consumer.
type Queue = event.Queue[Event]

// Producer fans session events out to queues. The api package shares
// one producer across reconnected sessions so consumer queues survive a
// backend restart.
type Producer = event.Producer[Event]

// SessionStateChanged reports a state transition. For transitions into
// ConnectedControl it carries the assigned controller id and the control
// flags the backend granted; otherwise both are zero.
type SessionStateChanged struct {
	Session      *Session
	State        State
	ControllerID uint16
	ControlFlags uint32
}

// DeviceInfoChanged reports a new device-info snapshot.
type DeviceInfoChanged struct{ Session *Session }

// VariableDefinitionsChanged reports newly published variable
// definitions.
type VariableDefinitionsChanged struct{ Session *Session }

// TelemetryDefinitionsChanged reports newly published telemetry
// definitions.
type TelemetryDefinitionsChanged struct{ Session *Session }

// SimDataChanged reports a new sim-data snapshot.
type SimDataChanged struct{ Session *Session }

func (e SessionStateChanged) EventSession() *Session         { return e.Session }
func (e DeviceInfoChanged) EventSession() *Session           { return e.Session }
func (e VariableDefinitionsChanged) EventSession() *Session  { return e.Session }
func (e TelemetryDefinitionsChanged) EventSession() *Session { return e.Session }
func (e SimDataChanged) EventSession() *Session              { return e.Session }
