// Copyright 2026 The Riglink Authors
// SPDX-License-Identifier: Apache-2.0

package ffb

import (
	"encoding/binary"
	"math"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/riglink-foundation/riglink/internal/backendtest"
	"github.com/riglink-foundation/riglink/protocol"
	"github.com/riglink-foundation/riglink/session"
)

// controlSession opens a registered session against a fixture backend.
func controlSession(t *testing.T) (*session.Session, *backendtest.Backend) {
	t.Helper()
	dir := t.TempDir()
	backend := backendtest.Start(t, dir, backendtest.BackendOptions{})
	backend.PumpKeepAlive()

	s, err := session.Open(session.OpenOptions{SHMDir: dir})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	err = s.RegisterToControl(session.ControlFfbEffects, "ffb-test",
		session.UserInfo{DisplayName: "ffb test"}, nil)
	if err != nil {
		t.Fatalf("RegisterToControl: %v", err)
	}
	<-backend.Requests // consume the register request
	return s, backend
}

func TestConfigureAssignsPipelineID(t *testing.T) {
	s, backend := controlSession(t)
	backend.Respond = func(r backendtest.Request) (int32, string, bson.D) {
		return 0, "", bson.D{{Key: "pipeline_id", Value: int32(3)}}
	}

	pipeline := NewPipeline(s, 1)
	if pipeline.Active() {
		t.Error("pipeline active before configure")
	}

	config := PipelineConfig{
		OffsetType:    OffsetForceN,
		Interpolation: InterpolationLinear,
		Gain:          1,
	}
	if err := pipeline.Configure(config); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if pipeline.PipelineID() != 3 {
		t.Errorf("pipeline id = %d, want 3", pipeline.PipelineID())
	}
	if !pipeline.Active() {
		t.Error("pipeline not active after configure")
	}
	if pipeline.Config() != config {
		t.Errorf("Config = %+v", pipeline.Config())
	}

	request := <-backend.Requests
	if request.Service != "ffb" || request.Command != "configure_pipeline" {
		t.Fatalf("request = %s/%s", request.Service, request.Command)
	}
	if mode, _ := request.Payload.Lookup("offset_mode").StringValueOK(); mode != "force" {
		t.Errorf("offset_mode = %q", mode)
	}
	if mode, _ := request.Payload.Lookup("interpolation_mode").StringValueOK(); mode != "linear" {
		t.Errorf("interpolation_mode = %q", mode)
	}
	if mode, _ := request.Payload.Lookup("filter_mode").StringValueOK(); mode != "none" {
		t.Errorf("filter_mode = %q", mode)
	}
}

func TestGenerateEffectFrame(t *testing.T) {
	s, backend := controlSession(t)
	backend.Respond = func(r backendtest.Request) (int32, string, bson.D) {
		return 0, "", bson.D{{Key: "pipeline_id", Value: int32(0)}}
	}

	pipeline := NewPipeline(s, 1)
	if err := pipeline.Configure(PipelineConfig{OffsetType: OffsetForceN, Interpolation: InterpolationLinear, Gain: 1}); err != nil {
		t.Fatal(err)
	}
	<-backend.Requests

	start := Now() + 4*time.Millisecond.Nanoseconds()
	if !pipeline.GenerateEffect(start, 2*time.Millisecond, []float32{0.0, 1.0}) {
		t.Fatal("GenerateEffect failed")
	}

	var frame []byte
	select {
	case frame = <-backend.Datagrams:
	case <-time.After(2 * time.Second):
		t.Fatal("no effect datagram")
	}

	header, _ := protocol.ParseActionHeader(frame)
	if header.ActionID != protocol.ActionFbEffect {
		t.Fatalf("action id = %#x", header.ActionID)
	}
	wantSize := protocol.ActionHeaderSize + protocol.EffectAADSize + deviceFieldSize +
		protocol.EffectEncHeaderSize + 8
	if int(header.Size) != wantSize || len(frame) != wantSize {
		t.Errorf("frame size = %d (header %d), want %d", len(frame), header.Size, wantSize)
	}

	payload := frame[protocol.ActionHeaderSize:]
	if payload[0] != 0 {
		t.Errorf("pipeline index = %d", payload[0])
	}
	if device := binary.LittleEndian.Uint16(payload[protocol.EffectAADSize:]); device != 1 {
		t.Errorf("device = %d", device)
	}

	enc := payload[protocol.EffectAADSize+deviceFieldSize:]
	if enc[0] != protocol.SampleFormatF32 {
		t.Errorf("sample format = %d", enc[0])
	}
	if count := binary.LittleEndian.Uint16(enc[2:]); count != 1 {
		t.Errorf("sample_count_minus_1 = %d", count)
	}
	if duration := binary.LittleEndian.Uint32(enc[4:]); duration != uint32(2*time.Millisecond.Nanoseconds()) {
		t.Errorf("sample duration = %d", duration)
	}
	gotStart := int64(binary.LittleEndian.Uint32(enc[8:])) |
		int64(binary.LittleEndian.Uint32(enc[12:]))<<32
	if gotStart != start {
		t.Errorf("start time = %d, want %d", gotStart, start)
	}
	if v := math.Float32frombits(binary.LittleEndian.Uint32(enc[16:])); v != 0 {
		t.Errorf("sample[0] = %v", v)
	}
	if v := math.Float32frombits(binary.LittleEndian.Uint32(enc[20:])); v != 1 {
		t.Errorf("sample[1] = %v", v)
	}
}

func TestGenerateEffectBounds(t *testing.T) {
	s, backend := controlSession(t)
	backend.Respond = func(r backendtest.Request) (int32, string, bson.D) {
		return 0, "", bson.D{{Key: "pipeline_id", Value: int32(0)}}
	}

	pipeline := NewPipeline(s, 1)

	// Unconfigured pipeline refuses to send.
	if pipeline.GenerateEffect(Now(), time.Millisecond, []float32{1}) {
		t.Error("GenerateEffect succeeded without a pipeline id")
	}

	if err := pipeline.Configure(PipelineConfig{OffsetType: OffsetTorqueNm}); err != nil {
		t.Fatal(err)
	}
	if pipeline.GenerateEffect(Now(), time.Millisecond, nil) {
		t.Error("GenerateEffect accepted zero samples")
	}
	if pipeline.GenerateEffect(Now(), time.Millisecond, make([]float32, 257)) {
		t.Error("GenerateEffect accepted 257 samples")
	}
	if !pipeline.GenerateEffect(Now(), time.Millisecond, make([]float32, 256)) {
		t.Error("GenerateEffect rejected 256 samples")
	}
}

func TestStopSendsClear(t *testing.T) {
	s, backend := controlSession(t)
	backend.Respond = func(r backendtest.Request) (int32, string, bson.D) {
		return 0, "", bson.D{{Key: "pipeline_id", Value: int32(2)}}
	}

	pipeline := NewPipeline(s, 7)
	if err := pipeline.Configure(PipelineConfig{OffsetType: OffsetForceN}); err != nil {
		t.Fatal(err)
	}
	if !pipeline.Stop() {
		t.Fatal("Stop failed")
	}

	var frame []byte
	select {
	case frame = <-backend.Datagrams:
	case <-time.After(2 * time.Second):
		t.Fatal("no clear datagram")
	}

	header, _ := protocol.ParseActionHeader(frame)
	if header.ActionID != protocol.ActionFbEffectClear {
		t.Fatalf("action id = %#x", header.ActionID)
	}
	payload := frame[protocol.ActionHeaderSize:]
	if device := binary.LittleEndian.Uint16(payload[protocol.EffectAADSize:]); device != 7 {
		t.Errorf("device = %d", device)
	}
	body := payload[protocol.EffectAADSize+deviceFieldSize:]
	if body[0] != 1 || body[1] != 2 {
		t.Errorf("clear body = count %d pipeline %d", body[0], body[1])
	}

	// The slot is retained: effects may resume without reconfiguring.
	if pipeline.PipelineID() != 2 {
		t.Errorf("pipeline id after Stop = %d", pipeline.PipelineID())
	}
}

func TestRemoveFreesSlot(t *testing.T) {
	s, backend := controlSession(t)
	backend.Respond = func(r backendtest.Request) (int32, string, bson.D) {
		return 0, "", bson.D{{Key: "pipeline_id", Value: int32(1)}}
	}

	pipeline := NewPipeline(s, 1)
	if err := pipeline.Configure(PipelineConfig{OffsetType: OffsetForceN}); err != nil {
		t.Fatal(err)
	}
	<-backend.Requests

	if err := pipeline.Remove(); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if pipeline.PipelineID() != -1 {
		t.Errorf("pipeline id after Remove = %d", pipeline.PipelineID())
	}

	request := <-backend.Requests
	if request.Command != "free_pipeline" {
		t.Errorf("command = %q", request.Command)
	}
	if id, _ := request.Payload.Lookup("pipeline_id").Int32OK(); id != 1 {
		t.Errorf("freed pipeline id = %d", id)
	}

	// Removing again is a no-op.
	if err := pipeline.Remove(); err != nil {
		t.Errorf("second Remove: %v", err)
	}
}

func TestConfigRoundTripThroughEcho(t *testing.T) {
	s, backend := controlSession(t)

	// The backend echoes the configuration fields back; decoding the
	// fields the request carried must reproduce the config that was sent.
	var echoed bson.D
	backend.Respond = func(r backendtest.Request) (int32, string, bson.D) {
		echoed = bson.D{{Key: "pipeline_id", Value: int32(0)}}
		for _, key := range []string{"offset_mode", "interpolation_mode", "filter_mode"} {
			if v, ok := r.Payload.Lookup(key).StringValueOK(); ok {
				echoed = append(echoed, bson.E{Key: key, Value: v})
			}
		}
		if v, ok := r.Payload.Lookup("filter_parameter").DoubleOK(); ok {
			echoed = append(echoed, bson.E{Key: "filter_parameter", Value: v})
		}
		if v, ok := r.Payload.Lookup("gain").DoubleOK(); ok {
			echoed = append(echoed, bson.E{Key: "gain", Value: v})
		}
		return 0, "", echoed
	}

	want := PipelineConfig{
		OffsetType:      OffsetPositionMm,
		Interpolation:   InterpolationLinear,
		Gain:            0.5,
		Filter:          FilterSlewRateLimit,
		FilterParameter: 80,
	}
	pipeline := NewPipeline(s, 1)
	if err := pipeline.Configure(want); err != nil {
		t.Fatal(err)
	}

	request := <-backend.Requests
	got := PipelineConfig{}
	mode, _ := request.Payload.Lookup("offset_mode").StringValueOK()
	for typ, name := range offsetModeNames {
		if name == mode {
			got.OffsetType = typ
		}
	}
	mode, _ = request.Payload.Lookup("interpolation_mode").StringValueOK()
	for typ, name := range interpolationModeNames {
		if name == mode {
			got.Interpolation = typ
		}
	}
	mode, _ = request.Payload.Lookup("filter_mode").StringValueOK()
	for typ, name := range filterModeNames {
		if name == mode {
			got.Filter = typ
		}
	}
	got.FilterParameter, _ = request.Payload.Lookup("filter_parameter").DoubleOK()
	got.Gain, _ = request.Payload.Lookup("gain").DoubleOK()

	if got != want {
		t.Errorf("decoded config = %+v, want %+v", got, want)
	}
}
