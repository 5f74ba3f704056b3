// Copyright 2026 The Riglink Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

// ResponseCode is the result code carried in every command response
// document and reused verbatim by the local error taxonomy where the
// meaning overlaps.
type ResponseCode int32

const (
	ResponseOK ResponseCode = 0

	// ResponseInvalidArgument: command argument data is invalid.
	ResponseInvalidArgument ResponseCode = 1

	// ResponseInvalidFormat: command request format is invalid.
	ResponseInvalidFormat ResponseCode = 2

	// ResponseNotSupported: command isn't supported.
	ResponseNotSupported ResponseCode = 3

	// ResponseNoResource: some resource is unavailable or a limit was
	// reached.
	ResponseNoResource ResponseCode = 4

	// ResponseNotRegistered: the first command must always be
	// core/register.
	ResponseNotRegistered ResponseCode = 5

	// ResponseNoControl: the command requires a control flag that
	// wasn't requested or wasn't approved.
	ResponseNoControl ResponseCode = 6

	// ResponseInternalCommError: a device that should have received
	// the command disconnected before it executed.
	ResponseInternalCommError ResponseCode = 7

	// ResponseIncompatible: the backend is not compatible with this
	// client version.
	ResponseIncompatible ResponseCode = 8

	// ResponseInternal: an unexpected backend error; indicates a bug.
	ResponseInternal ResponseCode = 0xfff0
)

// String returns the symbolic name of the response code.
func (c ResponseCode) String() string {
	switch c {
	case ResponseOK:
		return "ok"
	case ResponseInvalidArgument:
		return "invalid_argument"
	case ResponseInvalidFormat:
		return "invalid_format"
	case ResponseNotSupported:
		return "not_supported"
	case ResponseNoResource:
		return "no_resource"
	case ResponseNotRegistered:
		return "not_registered"
	case ResponseNoControl:
		return "no_control"
	case ResponseInternalCommError:
		return "internal_comm_error"
	case ResponseIncompatible:
		return "incompatible"
	case ResponseInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Control flags requested with core/register and echoed back as a string
// list in the response.
const (
	ControlFfbEffects = 1 << 0
	ControlTelemetry  = 1 << 1
	ControlSimData    = 1 << 2
)

// ControlFlagNames maps each control flag to its wire name, in flag
// order. Registration requests serialize the set bits in this order and
// responses are folded back through the same table.
var ControlFlagNames = []struct {
	Flag uint32
	Name string
}{
	{ControlFfbEffects, "ffb"},
	{ControlTelemetry, "telemetry"},
	{ControlSimData, "sim_data"},
}
