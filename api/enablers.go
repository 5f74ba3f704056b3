// Copyright 2026 The Riglink Authors
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"crypto/ed25519"
	"log/slog"

	"github.com/riglink-foundation/riglink/secure"
	"github.com/riglink-foundation/riglink/session"
)

// NoAuthControlEnabler is the plaintext registration policy: it issues
// RegisterToControl on every fresh ConnectedMonitor, so the control
// grant follows the session across backend restarts.
type NoAuthControlEnabler struct {
	api          *API
	controlFlags uint32
	idName       string
	info         session.UserInfo
	log          *slog.Logger
}

// NewNoAuthControlEnabler attaches the policy to the API.
func NewNoAuthControlEnabler(api *API, controlFlags uint32, idName string, info session.UserInfo) *NoAuthControlEnabler {
	e := &NoAuthControlEnabler{
		api:          api,
		controlFlags: controlFlags,
		idName:       idName,
		info:         info,
		log:          api.log,
	}
	api.AddListener(e)
	return e
}

// Close detaches the policy.
func (e *NoAuthControlEnabler) Close() {
	if e.api != nil {
		e.api.RemoveListener(e)
	}
}

// ListenerAdded implements Listener.
func (e *NoAuthControlEnabler) ListenerAdded(api *API, active *session.Session) {
	if active != nil && active.State() == session.ConnectedMonitor {
		e.register(active)
	}
}

// ListenerRemoved implements Listener.
func (e *NoAuthControlEnabler) ListenerRemoved(api *API) { e.api = nil }

// SessionStateChanged implements Listener.
func (e *NoAuthControlEnabler) SessionStateChanged(s *session.Session, state session.State) {
	if state == session.ConnectedMonitor {
		e.register(s)
	}
}

// ControlFlagsChanged implements Listener.
func (e *NoAuthControlEnabler) ControlFlagsChanged(s *session.Session, flags uint32) {}

func (e *NoAuthControlEnabler) register(s *session.Session) {
	if err := s.RegisterToControl(e.controlFlags, e.idName, e.info, nil); err != nil {
		e.log.Warn("control registration failed", "id", e.idName, "error", err)
	}
}

// SecureControlEnabler is the authenticated registration policy: on
// every fresh ConnectedMonitor it verifies the backend's key offer,
// runs the key exchange, and registers with an encrypted action
// channel.
type SecureControlEnabler struct {
	api          *API
	controlFlags uint32
	idName       string
	info         session.UserInfo

	trustAnchor ed25519.PublicKey
	publicKey   []byte
	privateKey  []byte
	log         *slog.Logger
}

// NewSecureControlEnabler attaches the policy. trustAnchor verifies the
// backend's signed key offers; publicKey and privateKey are the
// client's X25519 keypair.
func NewSecureControlEnabler(api *API, controlFlags uint32, idName string, info session.UserInfo,
	trustAnchor ed25519.PublicKey, publicKey, privateKey []byte) *SecureControlEnabler {
	e := &SecureControlEnabler{
		api:          api,
		controlFlags: controlFlags,
		idName:       idName,
		info:         info,
		trustAnchor:  trustAnchor,
		publicKey:    publicKey,
		privateKey:   privateKey,
		log:          api.log,
	}
	api.AddListener(e)
	return e
}

// Close detaches the policy.
func (e *SecureControlEnabler) Close() {
	if e.api != nil {
		e.api.RemoveListener(e)
	}
}

// ListenerAdded implements Listener.
func (e *SecureControlEnabler) ListenerAdded(api *API, active *session.Session) {
	if active != nil && active.State() == session.ConnectedMonitor {
		e.register(active)
	}
}

// ListenerRemoved implements Listener.
func (e *SecureControlEnabler) ListenerRemoved(api *API) { e.api = nil }

// SessionStateChanged implements Listener.
func (e *SecureControlEnabler) SessionStateChanged(s *session.Session, state session.State) {
	if state == session.ConnectedMonitor {
		e.register(s)
	}
}

// ControlFlagsChanged implements Listener.
func (e *SecureControlEnabler) ControlFlagsChanged(s *session.Session, flags uint32) {}

func (e *SecureControlEnabler) register(s *session.Session) {
	options := s.SecureSessionOptions()
	if len(options.Offers) == 0 {
		e.log.Warn("backend offers no secure session; not registering", "id", e.idName)
		return
	}

	sec, err := secure.KeyExchange(options.Offers[0], e.trustAnchor, options.SessionID,
		e.privateKey, e.publicKey)
	if err != nil {
		e.log.Warn("secure session key exchange failed", "id", e.idName, "error", err)
		return
	}
	if err := s.RegisterToControl(e.controlFlags, e.idName, e.info, sec); err != nil {
		e.log.Warn("secure control registration failed", "id", e.idName, "error", err)
	}
}
