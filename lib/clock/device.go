// Copyright 2026 The Riglink Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import "golang.org/x/sys/unix"

// DeviceClockHz is the tick rate of device timestamps: nanoseconds.
// Effect start times and sample durations on the action wire are
// expressed in these ticks.
const DeviceClockHz = 1_000_000_000

// DeviceTimestamp returns the current timestamp of the monotonic clock
// the backend and every connected device are synchronized to. The value
// is only meaningful relative to other device timestamps within one boot.
func DeviceTimestamp() int64 {
	var ts unix.Timespec
	// The raw monotonic clock is immune to NTP slewing, which would
	// otherwise desynchronize effect timestamps from the devices.
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC_RAW, &ts); err != nil {
		// Fall back to the adjusted monotonic clock; an error here is
		// only possible on kernels too old to know MONOTONIC_RAW.
		_ = unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts)
	}
	return ts.Nano()
}
