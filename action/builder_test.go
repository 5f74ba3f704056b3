// Copyright 2026 The Riglink Authors
// SPDX-License-Identifier: Apache-2.0

package action

import (
	"bytes"
	"testing"

	"github.com/riglink-foundation/riglink/protocol"
)

// fakeTransport records datagrams and scripts send outcomes.
type fakeTransport struct {
	controllerID uint16
	sent         [][]byte
	nextStatus   []Status
}

func (f *fakeTransport) ControllerID() uint16 { return f.controllerID }

func (f *fakeTransport) pop() Status {
	if len(f.nextStatus) == 0 {
		return StatusComplete
	}
	s := f.nextStatus[0]
	f.nextStatus = f.nextStatus[1:]
	return s
}

func (f *fakeTransport) SendDatagram(datagram []byte) Status {
	status := f.pop()
	if status == StatusComplete {
		f.sent = append(f.sent, bytes.Clone(datagram))
	}
	return status
}

func (f *fakeTransport) SendDatagramBlocking(datagram []byte) Status {
	for {
		status := f.pop()
		if status != StatusWouldBlock {
			if status == StatusComplete {
				f.sent = append(f.sent, bytes.Clone(datagram))
			}
			return status
		}
	}
}

func (f *fakeTransport) SendDatagramAsync(datagram []byte, result *AsyncResult) {
	f.sent = append(f.sent, bytes.Clone(datagram))
	result.Store(StatusComplete)
}

func TestBuildFrame(t *testing.T) {
	transport := &fakeTransport{controllerID: 7}
	builder := NewBuilder(transport)

	payload := builder.Start(protocol.ActionFbEffect, 4, 0)
	if payload == nil {
		t.Fatal("Start returned nil with a valid controller id")
	}
	copy(payload, []byte{1, 2, 3, 4})

	if status := builder.SendNonBlocking(); status != StatusComplete {
		t.Fatalf("SendNonBlocking = %v", status)
	}

	if len(transport.sent) != 1 {
		t.Fatalf("sent %d datagrams, want 1", len(transport.sent))
	}
	frame := transport.sent[0]
	header, ok := protocol.ParseActionHeader(frame)
	if !ok {
		t.Fatal("short frame")
	}
	if header.ControllerID != 7 || header.ActionID != protocol.ActionFbEffect {
		t.Errorf("header = %+v", header)
	}
	if int(header.Size) != len(frame) {
		t.Errorf("header size %d != frame length %d", header.Size, len(frame))
	}
	if !bytes.Equal(frame[protocol.ActionHeaderSize:], []byte{1, 2, 3, 4}) {
		t.Errorf("payload = %x", frame[protocol.ActionHeaderSize:])
	}
}

func TestStartRequiresControllerID(t *testing.T) {
	builder := NewBuilder(&fakeTransport{controllerID: 0})
	if builder.Start(protocol.ActionFbEffect, 4, 0) != nil {
		t.Error("Start succeeded without a controller id")
	}
}

func TestResizePayloadPatchesSize(t *testing.T) {
	transport := &fakeTransport{controllerID: 1}
	builder := NewBuilder(transport)

	builder.Start(protocol.ActionSetTelemetryGroup, 2, 0)
	payload := builder.ResizePayload(10)
	if len(payload) != 10 {
		t.Fatalf("payload length = %d, want 10", len(payload))
	}

	builder.SendNonBlocking()
	header, _ := protocol.ParseActionHeader(transport.sent[0])
	if int(header.Size) != protocol.ActionHeaderSize+10 {
		t.Errorf("size = %d, want %d", header.Size, protocol.ActionHeaderSize+10)
	}
}

func TestMultipleFramesOneDatagram(t *testing.T) {
	transport := &fakeTransport{controllerID: 3}
	builder := NewBuilder(transport)

	builder.Build(protocol.ActionFbEffect, []byte{0xaa}, 0)
	builder.Build(protocol.ActionFbEffectClear, []byte{0xbb, 0xcc}, 0)
	builder.SendNonBlocking()

	datagram := transport.sent[0]
	first, _ := protocol.ParseActionHeader(datagram)
	if first.ActionID != protocol.ActionFbEffect {
		t.Errorf("first frame action = %#x", first.ActionID)
	}
	second, ok := protocol.ParseActionHeader(datagram[first.Size:])
	if !ok || second.ActionID != protocol.ActionFbEffectClear {
		t.Errorf("second frame action = %#x ok=%v", second.ActionID, ok)
	}
	if int(first.Size)+int(second.Size) != len(datagram) {
		t.Errorf("frame sizes %d+%d != datagram %d", first.Size, second.Size, len(datagram))
	}
}

func TestWouldBlockKeepsFrames(t *testing.T) {
	transport := &fakeTransport{controllerID: 1, nextStatus: []Status{StatusWouldBlock, StatusComplete}}
	builder := NewBuilder(transport)
	builder.Build(protocol.ActionFbEffect, []byte{1}, 0)

	if status := builder.SendNonBlocking(); status != StatusWouldBlock {
		t.Fatalf("first send = %v, want WouldBlock", status)
	}
	if builder.Empty() {
		t.Fatal("builder reset after WouldBlock")
	}
	if status := builder.SendNonBlocking(); status != StatusComplete {
		t.Fatalf("retry = %v, want Complete", status)
	}
	if !builder.Empty() {
		t.Error("builder not reset after Complete")
	}
}

func TestSendBlockingRidesOutBackpressure(t *testing.T) {
	transport := &fakeTransport{controllerID: 1, nextStatus: []Status{StatusWouldBlock, StatusWouldBlock, StatusComplete}}
	builder := NewBuilder(transport)
	builder.Build(protocol.ActionFbEffect, []byte{1}, 0)

	if status := builder.SendBlocking(); status != StatusComplete {
		t.Fatalf("SendBlocking = %v", status)
	}
	if len(transport.sent) != 1 {
		t.Errorf("sent %d datagrams, want 1", len(transport.sent))
	}
}

func TestSendAsync(t *testing.T) {
	transport := &fakeTransport{controllerID: 1}
	builder := NewBuilder(transport)
	builder.Build(protocol.ActionFbEffect, []byte{1}, 0)

	var result AsyncResult
	builder.SendAsync(&result)
	if got := result.Load(); got != StatusComplete {
		t.Errorf("async result = %v", got)
	}
	if !builder.Empty() {
		t.Error("builder not reset after async send")
	}
}

func TestSendEmptyFails(t *testing.T) {
	builder := NewBuilder(&fakeTransport{controllerID: 1})
	if status := builder.SendNonBlocking(); status != StatusFailed {
		t.Errorf("empty SendNonBlocking = %v, want Failed", status)
	}
}
