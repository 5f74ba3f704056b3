// Copyright 2026 The Riglink Authors
// SPDX-License-Identifier: Apache-2.0

// riglink-effect-demo registers for force-feedback and telemetry
// control, locates a feedback-capable device, and drives it with a sine
// force offset while publishing a small telemetry group. It is a
// worked example of the whole control path: rendezvous, registration,
// pipeline configuration, effect streaming, and telemetry updates.
package main
