// Copyright 2026 The Riglink Authors
// SPDX-License-Identifier: Apache-2.0

// Package action builds and sends the datagram-framed, tight-deadline
// messages of the protocol: feedback effect samples, effect clears, and
// telemetry group updates.
//
// A Builder accumulates one or more frames into a single datagram. The
// send paths differ in how they treat backpressure: SendNonBlocking
// reports WouldBlock and keeps the builder intact so the caller can
// retry or escalate, SendBlocking loops until the datagram is out, and
// SendAsync hands the datagram to the transport and reports completion
// through an atomic status cell.
//
// The transport behind the builder is the session's UDP socket; the
// interface exists so effect pipelines and telemetry groups do not
// depend on the session package directly.
package action
