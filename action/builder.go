// Copyright 2026 The Riglink Authors
// SPDX-License-Identifier: Apache-2.0

package action

import (
	"sync/atomic"

	"github.com/riglink-foundation/riglink/protocol"
)

// Status is the outcome of an action send.
type Status int32

const (
	// StatusInProgress: an async send has been handed to the transport
	// and has not completed yet.
	StatusInProgress Status = iota

	// StatusComplete: the datagram left the socket.
	StatusComplete

	// StatusWouldBlock: the socket could not take the datagram without
	// blocking. The builder keeps its frames so the caller can retry.
	StatusWouldBlock

	// StatusFailed: the send failed; the builder has been reset.
	StatusFailed
)

// String returns the status name for logs.
func (s Status) String() string {
	switch s {
	case StatusInProgress:
		return "in_progress"
	case StatusComplete:
		return "complete"
	case StatusWouldBlock:
		return "would_block"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// AsyncResult is the completion cell for SendAsync. The transport moves
// it from InProgress to Complete or Failed; any goroutine may poll Load.
type AsyncResult struct {
	status atomic.Int32
}

// Load returns the current status.
func (r *AsyncResult) Load() Status { return Status(r.status.Load()) }

// Store publishes a status. Called by the transport.
func (r *AsyncResult) Store(s Status) { r.status.Store(int32(s)) }

// Transport carries finished datagrams to the backend. Implemented by
// the session's action socket. All methods are safe for concurrent use.
type Transport interface {
	// ControllerID returns the id assigned at registration, or 0 when
	// the session is not registered to control. Actions cannot be
	// built without one.
	ControllerID() uint16

	// SendDatagram transmits without blocking. Returns Complete,
	// WouldBlock, or Failed.
	SendDatagram(datagram []byte) Status

	// SendDatagramBlocking transmits, waiting for socket space if
	// needed. Returns Complete or Failed.
	SendDatagramBlocking(datagram []byte) Status

	// SendDatagramAsync transmits in the background, publishing the
	// outcome through result.
	SendDatagramAsync(datagram []byte, result *AsyncResult)
}

// Builder accumulates action frames into one datagram. The zero value
// is unusable; construct with NewBuilder. Not safe for concurrent use;
// each pipeline or group owns its builder.
type Builder struct {
	transport  Transport
	buf        []byte
	frameStart int
}

// NewBuilder returns a builder sending through transport.
func NewBuilder(transport Transport) *Builder {
	return &Builder{transport: transport}
}

// Reset drops any accumulated frames.
func (b *Builder) Reset() {
	b.buf = b.buf[:0]
	b.frameStart = 0
}

// Start begins a new frame with the given action id and flags and
// reserves payloadSize payload bytes, returning the payload area for the
// caller to fill. Returns nil when the session has no controller id yet:
// only registered controllers may send actions.
func (b *Builder) Start(actionID uint16, payloadSize int, flags uint16) []byte {
	controllerID := b.transport.ControllerID()
	if controllerID == 0 {
		return nil
	}

	b.frameStart = len(b.buf)
	total := protocol.ActionHeaderSize + payloadSize
	b.buf = append(b.buf, make([]byte, total)...)
	protocol.PutActionHeader(b.buf[b.frameStart:], protocol.ActionHeader{
		ControllerID: controllerID,
		Flags:        flags,
		ActionID:     actionID,
		Size:         uint16(total),
	})
	return b.buf[b.frameStart+protocol.ActionHeaderSize:]
}

// ResizePayload grows or shrinks the current frame's payload and returns
// the payload area.
func (b *Builder) ResizePayload(payloadSize int) []byte {
	want := b.frameStart + protocol.ActionHeaderSize + payloadSize
	if want <= len(b.buf) {
		b.buf = b.buf[:want]
	} else {
		b.buf = append(b.buf, make([]byte, want-len(b.buf))...)
	}
	return b.buf[b.frameStart+protocol.ActionHeaderSize:]
}

// Build appends a complete frame in one step.
func (b *Builder) Build(actionID uint16, payload []byte, flags uint16) bool {
	area := b.Start(actionID, len(payload), flags)
	if area == nil {
		return false
	}
	copy(area, payload)
	return true
}

// Empty reports whether the builder holds no frames.
func (b *Builder) Empty() bool { return len(b.buf) == 0 }

// finalize back-patches the size field of the current frame to cover
// any payload resizes since Start.
func (b *Builder) finalize() {
	size := len(b.buf) - b.frameStart
	b.buf[b.frameStart+6] = byte(size)
	b.buf[b.frameStart+7] = byte(size >> 8)
}

// SendNonBlocking transmits the accumulated frames without blocking. On
// WouldBlock the builder keeps its frames for a retry; on Complete or
// Failed it resets.
func (b *Builder) SendNonBlocking() Status {
	if len(b.buf) == 0 {
		return StatusFailed
	}
	b.finalize()

	status := b.transport.SendDatagram(b.buf)
	if status != StatusWouldBlock {
		b.Reset()
	}
	return status
}

// SendBlocking transmits the accumulated frames, waiting out transient
// backpressure. The builder resets regardless of outcome.
func (b *Builder) SendBlocking() Status {
	if len(b.buf) == 0 {
		return StatusFailed
	}
	b.finalize()

	status := b.transport.SendDatagramBlocking(b.buf)
	b.Reset()
	return status
}

// SendAsync hands the frames to the transport and returns immediately;
// result moves from InProgress to the final status. The builder resets.
func (b *Builder) SendAsync(result *AsyncResult) {
	if len(b.buf) == 0 {
		result.Store(StatusFailed)
		return
	}
	b.finalize()
	result.Store(StatusInProgress)

	datagram := make([]byte, len(b.buf))
	copy(datagram, b.buf)
	b.Reset()
	b.transport.SendDatagramAsync(datagram, result)
}
