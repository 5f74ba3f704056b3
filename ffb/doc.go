// Copyright 2026 The Riglink Authors
// SPDX-License-Identifier: Apache-2.0

// Package ffb drives force-feedback effect pipelines.
//
// A pipeline is a server-side slot on one device that consumes
// time-stamped sample sets and turns them into actuator output: torque
// offsets on a wheelbase, force or position offsets on an active pedal.
// Configure claims a slot and fixes its interpretation (offset type,
// interpolation, filtering); GenerateEffect then streams sample sets at
// the simulator's pace over the action channel.
//
// Each pipeline holds one active effect: a later sample set on the same
// pipeline overrides the earlier one where their timestamps overlap, and
// the device discards samples whose start time has already passed.
// Effects from different pipelines are combined by the device.
package ffb
