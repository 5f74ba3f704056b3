// Copyright 2026 The Riglink Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock abstracts time for the session runtime so its keep-alive
// supervision, definition refresh, and reconnect debounce can be tested
// deterministically. Production code injects Real(); tests inject Fake()
// and step time explicitly.
//
// The package also carries the device clock: the monotonic timestamp
// domain shared with the backend and every connected device, used to
// stamp feedback effect start times. Device timestamps tick at a fixed
// DeviceClockHz rate and have no relation to wall-clock time.
package clock
