// Copyright 2026 The Riglink Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

// DeviceSessionID identifies a logical device within one session. The
// id stays constant for the session even if the device disconnects and
// reconnects, but a different session may assign the same device a
// different id. Consumers must remap on device-info changes instead of
// caching ids across sessions.
//
// The zero id means "not a device": global-scope variables such as
// shared telemetry status carry it.
type DeviceSessionID uint16

// NoDevice is the DeviceSessionID of global-scope data.
const NoDevice DeviceSessionID = 0

// IsDevice reports whether the id refers to an actual device.
func (id DeviceSessionID) IsDevice() bool { return id != NoDevice }
