// Copyright 2026 The Riglink Authors
// SPDX-License-Identifier: Apache-2.0

package ffb

import (
	"fmt"
	"time"

	"github.com/riglink-foundation/riglink/action"
	"github.com/riglink-foundation/riglink/lib/clock"
	"github.com/riglink-foundation/riglink/protocol"
	"github.com/riglink-foundation/riglink/session"
)

// OffsetType selects what an effect sample means to the device.
type OffsetType int

const (
	// OffsetTorqueNm adds a torque offset in newton-meters; wheelbase
	// feedback. Positive turns the wheel clockwise.
	OffsetTorqueNm OffsetType = iota

	// OffsetForceN adds a force offset in newtons; active-pedal
	// feedback. Positive pushes the pedal toward the driver.
	OffsetForceN

	// OffsetForceRelative adds a force offset relative to the pedal's
	// current force; 0.05 pushes 5% harder.
	OffsetForceRelative

	// OffsetPositionMm moves the pedal's force curve position in
	// millimeters, limited by physical travel.
	OffsetPositionMm
)

var offsetModeNames = map[OffsetType]string{
	OffsetTorqueNm:      "torque",
	OffsetForceN:        "force",
	OffsetForceRelative: "force_relative",
	OffsetPositionMm:    "position",
}

// InterpolationType selects how the device moves between samples.
type InterpolationType int

const (
	// InterpolationNone holds each sample until the next.
	InterpolationNone InterpolationType = iota

	// InterpolationLinear ramps linearly between samples.
	InterpolationLinear
)

var interpolationModeNames = map[InterpolationType]string{
	InterpolationNone:   "none",
	InterpolationLinear: "linear",
}

// FilterType selects the device-side output filter.
type FilterType int

const (
	FilterNone FilterType = iota
	FilterLowPass
	FilterSlewRateLimit
)

var filterModeNames = map[FilterType]string{
	FilterNone:          "none",
	FilterLowPass:       "low_pass",
	FilterSlewRateLimit: "slew_rate_limit",
}

// PipelineConfig fixes a pipeline's interpretation of its samples.
type PipelineConfig struct {
	OffsetType    OffsetType
	Interpolation InterpolationType

	// Gain scales samples on the device. Zero means 1.0 for the F32
	// sample format; it matters most for the integer formats, which
	// span -1..1.
	Gain float64

	Filter FilterType

	// FilterParameter is the filter's tunable: cutoff frequency for
	// low-pass, maximum rate for slew limiting.
	FilterParameter float64
}

// unassignedPipeline marks a pipeline with no server-side slot.
const unassignedPipeline = -1

// Pipeline is one feedback pipeline on one device. Not safe for
// concurrent use; the feedback loop that generates effects owns it.
type Pipeline struct {
	session    *session.Session
	builder    *action.Builder
	device     protocol.DeviceSessionID
	pipelineID int
	config     PipelineConfig
}

// NewPipeline prepares a pipeline handle for the given device. The
// server-side slot is claimed by Configure.
func NewPipeline(s *session.Session, device protocol.DeviceSessionID) *Pipeline {
	return &Pipeline{
		session:    s,
		builder:    action.NewBuilder(s),
		device:     device,
		pipelineID: unassignedPipeline,
	}
}

// PipelineID returns the server-assigned pipeline id, or -1 before
// Configure succeeds.
func (p *Pipeline) PipelineID() int { return p.pipelineID }

// Config returns the last successfully applied configuration.
func (p *Pipeline) Config() PipelineConfig { return p.config }

// Active reports whether the pipeline holds a slot on a session that is
// registered to control.
func (p *Pipeline) Active() bool {
	return p.pipelineID != unassignedPipeline && p.session.State() == session.ConnectedControl
}

// Configure claims or reconfigures the server-side slot. On first
// success the backend assigns the pipeline id; reconfiguring keeps it.
func (p *Pipeline) Configure(config PipelineConfig) error {
	request := session.NewCommandRequest("ffb", "configure_pipeline")
	request.AddInt32("device_session_id", int32(p.device))
	request.AddString("offset_mode", offsetModeNames[config.OffsetType])
	request.AddString("interpolation_mode", interpolationModeNames[config.Interpolation])
	request.AddString("filter_mode", filterModeNames[config.Filter])
	request.AddDouble("filter_parameter", config.FilterParameter)
	request.AddDouble("gain", config.Gain)
	if p.pipelineID >= 0 {
		request.AddInt32("pipeline_id", int32(p.pipelineID))
	}

	result, err := p.session.BlockingCommand(request)
	if err != nil {
		return err
	}
	if err := result.Err(); err != nil {
		return err
	}

	pipelineID, ok := result.Payload.Lookup("pipeline_id").Int32OK()
	if !ok {
		return fmt.Errorf("ffb: configure response carried no pipeline id")
	}
	p.pipelineID = int(pipelineID)
	p.config = config
	return nil
}

// GenerateEffect sends one sample set: samples spaced sampleTime apart,
// the first taking effect at startTime (a device timestamp, see
// clock.DeviceTimestamp). Non-blocking; returns false when the pipeline
// is unassigned, the sample set is invalid, or the socket had no
// room; the next set supersedes this one anyway.
func (p *Pipeline) GenerateEffect(startTime int64, sampleTime time.Duration, samples []float32) bool {
	if p.pipelineID < 0 {
		return false
	}
	if !buildEffectAction(p.builder, p.session.SecureSession(), uint8(p.pipelineID),
		p.device, startTime, sampleTime.Nanoseconds(), samples) {
		return false
	}
	status := p.builder.SendNonBlocking()
	if status == action.StatusWouldBlock {
		// Stale effect data is worthless; drop it instead of retrying.
		p.builder.Reset()
	}
	return status == action.StatusComplete
}

// Stop clears the pipeline's active effect but keeps the slot.
func (p *Pipeline) Stop() bool {
	if p.pipelineID < 0 {
		return false
	}
	if !buildClearAction(p.builder, uint8(p.pipelineID), p.device) {
		return false
	}
	return p.builder.SendNonBlocking() == action.StatusComplete
}

// Remove frees the server-side slot, blocking until the backend
// confirms. The pipeline returns to the unassigned state and may be
// configured again.
func (p *Pipeline) Remove() error {
	if p.pipelineID < 0 {
		return nil
	}
	request := session.NewCommandRequest("ffb", "free_pipeline")
	request.AddInt32("device_session_id", int32(p.device))
	request.AddInt32("pipeline_id", int32(p.pipelineID))

	if err := p.session.BlockingSimpleCommand(request); err != nil {
		return err
	}
	p.pipelineID = unassignedPipeline
	return nil
}

// Close releases the slot without waiting for confirmation. Use it on
// teardown paths where the session may be going away anyway.
func (p *Pipeline) Close() {
	if !p.Active() {
		p.pipelineID = unassignedPipeline
		return
	}
	request := session.NewCommandRequest("ffb", "free_pipeline")
	request.AddInt32("device_session_id", int32(p.device))
	request.AddInt32("pipeline_id", int32(p.pipelineID))
	p.session.AsyncCommand(request, nil)
	p.pipelineID = unassignedPipeline
}

// Now returns the current device timestamp, the time base for
// GenerateEffect start times.
func Now() int64 { return clock.DeviceTimestamp() }
