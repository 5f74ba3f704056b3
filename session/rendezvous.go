// Copyright 2026 The Riglink Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"bytes"
	"fmt"
	"log/slog"
	"time"

	"github.com/riglink-foundation/riglink/lib/clock"
	"github.com/riglink-foundation/riglink/lib/event"
	"github.com/riglink-foundation/riglink/lib/seqlock"
	"github.com/riglink-foundation/riglink/lib/shm"
	"github.com/riglink-foundation/riglink/protocol"
	"github.com/riglink-foundation/riglink/telemetry"
	"github.com/riglink-foundation/riglink/variables"
)

// Rendezvous tunables.
const (
	// rendezvousTimeout bounds the whole discovery loop. The backend
	// advances its keep-alive at 10Hz or faster, so half a second is
	// plenty to catch a stable descriptor.
	rendezvousTimeout = 500 * time.Millisecond

	// rendezvousRetryDelay is the pause after catching the rendezvous
	// region mid-write.
	rendezvousRetryDelay = 5 * time.Millisecond
)

// coreSessionIDOffset is the live session id word in the core region.
const coreSessionIDOffset = 8

// requiredSubBlobs are the regions a session cannot function without.
var requiredSubBlobs = []struct {
	id      uint32
	version uint32
}{
	{protocol.DeviceInfoSHMID, protocol.DeviceInfoSHMVersion},
	{protocol.VariableHeaderSHMID, protocol.VariableHeaderSHMVersion},
	{protocol.VariableDataSHMID, protocol.VariableDataSHMVersion},
	{protocol.TelemetryDefinitionSHMID, protocol.TelemetryDefinitionSHMVersion},
	{protocol.SimDataSHMID, protocol.SimDataSHMVersion},
}

// OpenOptions configures Open. The zero value is production-ready:
// real clock, default shared-memory directory, a fresh event producer,
// and the default logger.
type OpenOptions struct {
	// SHMDir overrides the shared-memory directory; tests point it at
	// a fixture directory.
	SHMDir string

	// Clock substitutes the time source.
	Clock clock.Clock

	// Events reuses an existing producer so consumer queues survive
	// reconnects. Nil creates a private one.
	Events *Producer

	// Logger receives runtime log records. Nil uses slog.Default.
	Logger *slog.Logger
}

// Open locates the active backend session through the shared-memory
// rendezvous and attaches to it. On success the session is in
// ConnectedMonitor and a SessionStateChanged event has been delivered
// to every queue on the producer.
//
// Failures are classified per the error taxonomy: ErrCannotConnect and
// ErrBusy are worth retrying, ErrIncompatible and ErrProtocol are not.
func Open(opts OpenOptions) (*Session, error) {
	clk := opts.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	producer := opts.Events
	if producer == nil {
		producer = event.NewProducer[Event]()
	}

	opener := &shm.Opener{Dir: opts.SHMDir}
	core, err := opener.Open(protocol.CoreSHMName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCannotConnect, err)
	}
	success := false
	defer func() {
		if !success {
			core.Close()
		}
	}()

	coreRegion := core.Bytes()
	if len(coreRegion) < protocol.CoreSHMSize {
		return nil, fmt.Errorf("%w: core region is %d bytes", ErrProtocol, len(coreRegion))
	}

	descCopy, sessionShm, err := awaitActiveSession(opener, clk, coreRegion)
	if err != nil {
		return nil, err
	}
	defer func() {
		if !success {
			sessionShm.Close()
		}
	}()

	desc, err := validateDescriptor(descCopy)
	if err != nil {
		return nil, err
	}

	subMappings, err := openSubBlobs(opener, desc)
	if err != nil {
		return nil, err
	}
	defer func() {
		if !success {
			for _, mapping := range subMappings {
				mapping.Close()
			}
		}
	}()

	// The backend may have restarted while we were opening regions; a
	// changed session id means everything above references a dead
	// session. The caller retries.
	if seqlock.LoadUint32(coreRegion, coreSessionIDOffset) != desc.SessionID {
		return nil, fmt.Errorf("%w: session changed during rendezvous", ErrBusy)
	}

	s := &Session{
		clk:           clk,
		log:           logger,
		producer:      producer,
		core:          core,
		sessionShm:    sessionShm,
		sessionRegion: sessionShm.Bytes(),
		desc:          desc,
		sessionID:     desc.SessionID,
		state:         ConnectedMonitor,
		wake:          make(chan struct{}),
		done:          make(chan struct{}),
		sendKick:      make(chan struct{}, 1),
		abandoned:     make(chan struct{}),
		timers:        make(map[int32]chan struct{}),
	}
	s.lastKeepAlive = clk.Now()
	s.prevKeepAlive = seqlock.LoadUint32(s.sessionRegion, protocol.SessionKeepAliveOffset)

	for _, ref := range desc.SubBlobs {
		mapping, ok := subMappings[ref.ID]
		if !ok {
			continue
		}
		s.subMappings = append(s.subMappings, mapping)
	}

	s.devInfo = newDeviceInfoProvider(subMappings[protocol.DeviceInfoSHMID].Bytes())
	s.simD = newSimDataProvider(subMappings[protocol.SimDataSHMID].Bytes())

	s.vars, err = variables.NewTable(
		subMappings[protocol.VariableHeaderSHMID].Bytes(),
		subMappings[protocol.VariableDataSHMID].Bytes())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProtocol, err)
	}
	s.tele, err = telemetry.NewTable(subMappings[protocol.TelemetryDefinitionSHMID].Bytes())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProtocol, err)
	}

	success = true

	logger.Info("session opened", "session_id", s.sessionID,
		"variables", s.vars.Definitions(nil).Len())
	producer.Notify(SessionStateChanged{Session: s, State: ConnectedMonitor})

	// Pick up whatever the backend has already published before the
	// first periodic tick, after the state event so consumers see the
	// transitions in order.
	s.checkDefinitions()
	go s.supervise()
	return s, nil
}

// awaitActiveSession loops until it copies a stable, active session
// descriptor out of shared memory, or the rendezvous deadline passes.
func awaitActiveSession(opener *shm.Opener, clk clock.Clock, coreRegion []byte) ([]byte, *shm.Mapping, error) {
	deadline := clk.Now().Add(rendezvousTimeout)
	for {
		coreCopy, ok := snapshotCore(coreRegion)
		if !ok {
			// Writer in progress; give it a moment.
			if clk.Now().After(deadline) {
				return nil, nil, fmt.Errorf("%w: rendezvous region never stabilized", ErrTimeout)
			}
			clk.Sleep(rendezvousRetryDelay)
			continue
		}

		parsed, err := protocol.ParseCore(coreCopy)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrProtocol, err)
		}
		if !protocol.VersionCompatible(protocol.CoreSHMVersion, parsed.Version) {
			return nil, nil, fmt.Errorf("%w: core region version %#x", ErrIncompatible, parsed.Version)
		}
		if parsed.State != protocol.CoreActive {
			return nil, nil, fmt.Errorf("%w: backend state %d", ErrCannotConnect, parsed.State)
		}
		if !protocol.VersionCompatible(protocol.SessionSHMVersion, parsed.SessionVersion) {
			return nil, nil, fmt.Errorf("%w: session version %#x", ErrIncompatible, parsed.SessionVersion)
		}

		sessionShm, err := opener.Open(parsed.SessionSHMPath)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: session region: %v", ErrCannotConnect, err)
		}

		descCopy, err := copyDescriptor(sessionShm.Bytes(), parsed)
		if err != nil {
			sessionShm.Close()
			return nil, nil, err
		}
		return descCopy, sessionShm, nil
	}
}

// snapshotCore copies the core region under its revision counter.
func snapshotCore(coreRegion []byte) ([]byte, bool) {
	var copyBuf []byte
	_, ok := seqlock.Read(coreRegion, func(uint32) bool {
		copyBuf = bytes.Clone(coreRegion[:protocol.CoreSHMSize])
		return true
	})
	return copyBuf, ok
}

// copyDescriptor copies the announced descriptor bytes out of the live
// session region, defending against concurrent mutation of everything
// the copy is later validated on.
func copyDescriptor(region []byte, core protocol.Core) ([]byte, error) {
	if len(region) < protocol.SessionDescriptorSize {
		return nil, fmt.Errorf("%w: session region is %d bytes", ErrProtocol, len(region))
	}
	dataSize := seqlock.LoadUint32(region, 16)
	if int(dataSize) > len(region) || dataSize < protocol.SessionDescriptorSize {
		return nil, fmt.Errorf("%w: descriptor size %d outside region of %d bytes",
			ErrProtocol, dataSize, len(region))
	}
	if core.SessionSHMSize != 0 && dataSize > core.SessionSHMSize {
		return nil, fmt.Errorf("%w: descriptor size %d exceeds announced %d",
			ErrCannotConnect, dataSize, core.SessionSHMSize)
	}

	descCopy := bytes.Clone(region[:dataSize])
	desc, err := protocol.ParseSessionDescriptor(descCopy)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProtocol, err)
	}
	if desc.SessionID != core.SessionID || desc.Version != core.SessionVersion {
		return nil, fmt.Errorf("%w: session region does not match rendezvous reference", ErrCannotConnect)
	}
	if desc.State != protocol.SessionActive {
		return nil, fmt.Errorf("%w: session state %d", ErrCannotConnect, desc.State)
	}
	return descCopy, nil
}

// validateDescriptor re-parses the private descriptor copy and applies
// the protocol-level checks.
func validateDescriptor(descCopy []byte) (*protocol.SessionDescriptor, error) {
	desc, err := protocol.ParseSessionDescriptor(descCopy)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProtocol, err)
	}

	if desc.UDPProtocolVersion>>16 != protocol.UDPProtocolVersionMajor {
		return nil, fmt.Errorf("%w: action protocol version %#x", ErrIncompatible, desc.UDPProtocolVersion)
	}
	if desc.UDPMaxPlaintextPacketSize < protocol.MinPlaintextPacketSize ||
		desc.UDPMaxEncryptedPacketSize < protocol.MinEncryptedPacketSize {
		return nil, fmt.Errorf("%w: packet size limits %d/%d below protocol floors",
			ErrProtocol, desc.UDPMaxPlaintextPacketSize, desc.UDPMaxEncryptedPacketSize)
	}
	return desc, nil
}

// openSubBlobs matches each required sub-blob id to a descriptor entry
// with a compatible version and maps it.
func openSubBlobs(opener *shm.Opener, desc *protocol.SessionDescriptor) (map[uint32]*shm.Mapping, error) {
	mappings := make(map[uint32]*shm.Mapping)
	closeAll := func() {
		for _, mapping := range mappings {
			mapping.Close()
		}
	}

	for _, required := range requiredSubBlobs {
		var ref *protocol.SubBlobRef
		for i := range desc.SubBlobs {
			candidate := &desc.SubBlobs[i]
			if candidate.ID == required.id &&
				protocol.VersionCompatible(required.version, candidate.Version) {
				ref = candidate
				break
			}
		}
		if ref == nil {
			closeAll()
			return nil, fmt.Errorf("%w: no compatible sub-blob %#x", ErrIncompatible, required.id)
		}

		mapping, err := opener.Open(ref.Path)
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("%w: sub-blob %#x: %v", ErrCannotConnect, required.id, err)
		}
		mappings[required.id] = mapping
	}
	return mappings, nil
}
