// Copyright 2026 The Riglink Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"errors"
	"fmt"

	"github.com/riglink-foundation/riglink/protocol"
)

// Transient errors: the condition may clear, retrying later is
// reasonable.
var (
	// ErrAlreadyOpen: a session is already open on this Api.
	ErrAlreadyOpen = errors.New("session: already open")

	// ErrBusy: the backend was mid-transition (session id changed or a
	// writer held the rendezvous region); try again.
	ErrBusy = errors.New("session: backend busy")

	// ErrCannotConnect: the backend or one of its regions or sockets
	// was not reachable.
	ErrCannotConnect = errors.New("session: cannot connect")

	// ErrTimeout: the rendezvous or an exchange missed its deadline.
	ErrTimeout = errors.New("session: timed out")
)

// Permanent errors.
var (
	// ErrIncompatible: the backend speaks an incompatible protocol
	// version.
	ErrIncompatible = errors.New("session: incompatible backend version")

	// ErrProtocol: shared memory or wire data was malformed.
	ErrProtocol = errors.New("session: protocol violation")

	// ErrInvalidArgument: a caller-supplied argument was rejected
	// locally.
	ErrInvalidArgument = errors.New("session: invalid argument")

	// ErrInvalidState: the operation is not valid in the session's
	// current state, including commands abandoned by a dropped
	// session.
	ErrInvalidState = errors.New("session: invalid state")

	// ErrNoControl: the operation requires ConnectedControl.
	ErrNoControl = errors.New("session: not registered to control")
)

// CommandError is a failure reported by the backend in a command
// response.
type CommandError struct {
	Code    protocol.ResponseCode
	Message string
}

func (e *CommandError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("session: command failed: %s", e.Code)
	}
	return fmt.Sprintf("session: command failed: %s: %s", e.Code, e.Message)
}
