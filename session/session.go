// Copyright 2026 The Riglink Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/riglink-foundation/riglink/action"
	"github.com/riglink-foundation/riglink/deviceinfo"
	"github.com/riglink-foundation/riglink/lib/clock"
	"github.com/riglink-foundation/riglink/lib/codec"
	"github.com/riglink-foundation/riglink/lib/seqlock"
	"github.com/riglink-foundation/riglink/lib/shm"
	"github.com/riglink-foundation/riglink/lib/version"
	"github.com/riglink-foundation/riglink/protocol"
	"github.com/riglink-foundation/riglink/secure"
	"github.com/riglink-foundation/riglink/simdata"
	"github.com/riglink-foundation/riglink/telemetry"
	"github.com/riglink-foundation/riglink/variables"
)

// State is the session lifecycle state.
type State int

const (
	// Invalid: not attached to a backend, or explicitly closed.
	Invalid State = iota

	// ConnectedMonitor: attached read-only; shared-memory data flows,
	// commands and actions do not.
	ConnectedMonitor

	// ConnectedControl: registered as a controller; the command stream
	// and action socket are live.
	ConnectedControl

	// SessionLost: the backend went away (keep-alive stalled, stream
	// dropped, or the descriptor changed). Terminal until Close.
	SessionLost
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Invalid:
		return "invalid"
	case ConnectedMonitor:
		return "connected_monitor"
	case ConnectedControl:
		return "connected_control"
	case SessionLost:
		return "session_lost"
	default:
		return "unknown"
	}
}

// Control flags for RegisterToControl.
const (
	ControlFfbEffects = protocol.ControlFfbEffects
	ControlTelemetry  = protocol.ControlTelemetry
	ControlSimData    = protocol.ControlSimData
)

// Session runtime tunables.
const (
	// periodicInterval drives keep-alive supervision and definition
	// refresh.
	periodicInterval = 500 * time.Millisecond

	// keepAliveTimeout is how long the keep-alive counter may stall in
	// ConnectedMonitor before the session is declared lost. The
	// backend advances the counter roughly every 100ms.
	keepAliveTimeout = time.Second

	// registerTimeout bounds the whole register exchange.
	registerTimeout = 2 * time.Second

	// maxIDNameSize bounds the registration id name.
	maxIDNameSize = 64

	// rxBufferSize is the command stream receive buffer.
	rxBufferSize = 0x10000

	// maxCommandSize rejects response documents that no backend would
	// produce; a larger announced size means stream framing is lost.
	maxCommandSize = 1 << 20
)

// UserInfo is the identity metadata sent with registration.
type UserInfo struct {
	// DisplayName is shown in the backend's client list.
	DisplayName string

	// Version, Author, Path, and Type are optional metadata forwarded
	// verbatim; empty fields are omitted from the request.
	Version string
	Author  string
	Path    string
	Type    string
}

// SecureSessionOptions is the backend's offer of secure-session methods
// for this session, straight from the validated descriptor.
type SecureSessionOptions struct {
	SessionID uint32
	Offers    []protocol.PublicKeyOffer
}

// Session is one attachment to a backend instance. Construct with Open;
// all exported methods are safe for concurrent use.
type Session struct {
	clk      clock.Clock
	log      *slog.Logger
	producer *Producer

	core          *shm.Mapping
	sessionShm    *shm.Mapping
	sessionRegion []byte
	subMappings   []*shm.Mapping
	desc          *protocol.SessionDescriptor
	sessionID     uint32

	devInfo *deviceInfoProvider
	simD    *simDataProvider
	vars    *variables.Table
	tele    *telemetry.Table

	mu            sync.Mutex
	state         State
	controllerID  uint16
	controlFlags  uint32
	idName        string
	sec           *secure.Session
	wake          chan struct{}
	prevKeepAlive uint32
	lastKeepAlive time.Time
	closed        bool

	done chan struct{}

	cmdMu     sync.Mutex
	conn      net.Conn
	pending   map[int32]func(CommandResult)
	sendQueue [][]byte
	sendKick  chan struct{}
	abandoned chan struct{}
	cmdID     atomic.Int32

	udp *actionSocket

	timerMu sync.Mutex
	timers  map[int32]chan struct{}
	timerID int32
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SessionID returns the backend session id this session attached to.
func (s *Session) SessionID() uint32 { return s.sessionID }

// ControllerID returns the id assigned at registration, 0 before.
func (s *Session) ControllerID() uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.controllerID
}

// ControlFlags returns the control categories the backend granted.
func (s *Session) ControlFlags() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.controlFlags
}

// Events returns the session's event producer.
func (s *Session) Events() *Producer { return s.producer }

// NewEventQueue subscribes a queue that first delivers the current
// session state, then every later event, so a consumer attaching
// mid-session starts synchronized.
func (s *Session) NewEventQueue() *Queue {
	s.mu.Lock()
	initial := SessionStateChanged{
		Session:      s,
		State:        s.state,
		ControllerID: s.controllerID,
		ControlFlags: s.controlFlags,
	}
	s.mu.Unlock()
	return s.producer.NewQueue(initial)
}

// SecureSessionOptions returns the descriptor's public-key offers.
func (s *Session) SecureSessionOptions() SecureSessionOptions {
	return SecureSessionOptions{SessionID: s.sessionID, Offers: s.desc.PublicKeyOffers}
}

// SecureSession returns the secure session installed at registration,
// or nil for a plaintext session.
func (s *Session) SecureSession() *secure.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sec
}

// DeviceInfo refreshes and returns the current parsed device snapshot,
// or nil when none is available yet.
func (s *Session) DeviceInfo() *deviceinfo.FullInfo {
	s.devInfo.update()
	return s.devInfo.parse()
}

// SimData refreshes and returns the current parsed sim-data snapshot,
// or nil.
func (s *Session) SimData() *simdata.SimData {
	s.simD.update()
	return s.simD.parse()
}

// Variables returns a snapshot of the variable definitions. Value
// pointers inside remain valid for the session's lifetime; the snapshot
// keeps the session reachable.
func (s *Session) Variables() variables.Definitions {
	return s.vars.Definitions(s)
}

// Telemetries refreshes and returns a snapshot of the telemetry
// definitions.
func (s *Session) Telemetries() telemetry.Definitions {
	s.tele.Refresh()
	return s.tele.Definitions(s)
}

// RegisterToControl upgrades the session to ConnectedControl: it opens
// the control sockets, sends the core/register command, and stores the
// assigned controller id and granted control flags. Synchronous, with a
// 2 second deadline on the whole exchange.
//
// A non-nil secureSession must have completed key exchange for this
// session's id; its symmetric key is derived here from idName.
func (s *Session) RegisterToControl(controlFlags uint32, idName string, info UserInfo, secureSession *secure.Session) error {
	if len(idName) > maxIDNameSize || controlFlags == 0 {
		return fmt.Errorf("%w: flags %#x, id %q", ErrInvalidArgument, controlFlags, idName)
	}
	if secureSession != nil {
		if secureSession.SessionID() != s.sessionID {
			return fmt.Errorf("%w: secure session bound to session %d, this is %d",
				ErrInvalidArgument, secureSession.SessionID(), s.sessionID)
		}
		if err := secureSession.DeriveKey(idName); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != ConnectedMonitor {
		return fmt.Errorf("%w: register requires connected_monitor, state is %v", ErrInvalidState, s.state)
	}

	request := buildRegisterRequest(controlFlags, idName, info, secureSession)

	udp, err := newActionSocket(s.desc.UDPAddress, s.desc.UDPPort)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCannotConnect, err)
	}

	tcpAddr := net.JoinHostPort(net.IP(s.desc.TCPAddress[:]).String(),
		fmt.Sprintf("%d", s.desc.TCPPort))
	conn, err := net.DialTimeout("tcp", tcpAddr, registerTimeout)
	if err != nil {
		udp.close()
		return fmt.Errorf("%w: dialing %s: %v", ErrCannotConnect, tcpAddr, err)
	}
	conn.SetDeadline(s.clk.Now().Add(registerTimeout))

	controllerID, grantedFlags, err := registerExchange(conn, request)
	if err != nil {
		conn.Close()
		udp.close()
		return err
	}
	conn.SetDeadline(time.Time{})

	s.udp = udp
	s.sec = secureSession
	s.idName = idName
	s.controllerID = controllerID
	s.controlFlags = grantedFlags
	s.state = ConnectedControl

	s.cmdMu.Lock()
	s.conn = conn
	s.pending = make(map[int32]func(CommandResult))
	s.cmdMu.Unlock()
	go s.readLoop(conn)
	go s.writeLoop(conn)

	s.notifyWakeLocked()
	s.producer.Notify(SessionStateChanged{
		Session:      s,
		State:        ConnectedControl,
		ControllerID: controllerID,
		ControlFlags: grantedFlags,
	})
	return nil
}

// buildRegisterRequest assembles the core/register document.
func buildRegisterRequest(controlFlags uint32, idName string, info UserInfo, secureSession *secure.Session) []byte {
	request := NewCommandRequest("core", "register")
	request.AddString("id", idName)
	request.AddString("name", info.DisplayName)
	request.AddInt64("protocol_version", protocol.TCPCoreVersion)
	request.AddInt32("core_version_major", version.Major)
	request.AddInt32("core_version_minor", version.Minor)
	request.AddInt32("core_version_patch", version.Patch)

	request.BeginDocument("metadata")
	if info.Version != "" {
		request.AddString("version", info.Version)
	}
	if info.Author != "" {
		request.AddString("author", info.Author)
	}
	if info.Path != "" {
		request.AddString("filepath", info.Path)
	}
	if info.Type != "" {
		request.AddString("type", info.Type)
	}
	request.End()

	request.BeginArray("control")
	for _, flag := range protocol.ControlFlagNames {
		if controlFlags&flag.Flag != 0 {
			request.AddString("", flag.Name)
		}
	}
	request.End()

	if secureSession != nil {
		request.BeginDocument("secure_session")
		request.AddString("method", secure.MethodName)
		request.AddBinary("public_key", secureSession.ClientPublicKey())
		request.End()
	}

	packet, err := request.finalize(0)
	if err != nil {
		// The builder is balanced by construction.
		panic(err)
	}
	return packet
}

// registerExchange writes the register request and reads one complete
// response, returning the assigned controller id and granted flags.
func registerExchange(conn net.Conn, request []byte) (uint16, uint32, error) {
	if _, err := conn.Write(request); err != nil {
		return 0, 0, fmt.Errorf("%w: writing register: %v", ErrCannotConnect, err)
	}

	doc, err := readDocument(conn)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: reading register response: %v", ErrCannotConnect, err)
	}
	if err := codec.Validate(doc); err != nil {
		return 0, 0, fmt.Errorf("%w: register response: %v", ErrProtocol, err)
	}

	result, ok := codec.Document(doc).Lookup("result").Int32OK()
	if !ok {
		return 0, 0, fmt.Errorf("%w: register response missing result", ErrProtocol)
	}
	if result != 0 {
		message, _ := codec.Document(doc).Lookup("error_message").StringValueOK()
		return 0, 0, &CommandError{Code: protocol.ResponseCode(result), Message: message}
	}

	data, ok := codec.Document(doc).Lookup("data").DocumentOK()
	if !ok {
		return 0, 0, fmt.Errorf("%w: register response missing data", ErrProtocol)
	}
	elements, err := data.Elements()
	if err != nil || len(elements) == 0 || elements[0].Key() != "register" {
		return 0, 0, fmt.Errorf("%w: register response malformed", ErrProtocol)
	}
	register, ok := elements[0].Value().DocumentOK()
	if !ok {
		return 0, 0, fmt.Errorf("%w: register response malformed", ErrProtocol)
	}

	controllerID, ok := register.Lookup("controller_id").Int32OK()
	if !ok {
		return 0, 0, fmt.Errorf("%w: register response missing controller_id", ErrProtocol)
	}

	var grantedFlags uint32
	if controlArray, ok := register.Lookup("control").ArrayOK(); ok {
		values, err := controlArray.Values()
		if err != nil {
			return 0, 0, fmt.Errorf("%w: register control list malformed", ErrProtocol)
		}
		for _, value := range values {
			name, ok := value.StringValueOK()
			if !ok {
				continue
			}
			for _, flag := range protocol.ControlFlagNames {
				if flag.Name == name {
					grantedFlags |= flag.Flag
				}
			}
		}
	}

	return uint16(controllerID), grantedFlags, nil
}

// readDocument reads one length-prefixed BSON document from the stream.
func readDocument(reader io.Reader) ([]byte, error) {
	var sizeBuf [4]byte
	if _, err := io.ReadFull(reader, sizeBuf[:]); err != nil {
		return nil, err
	}
	size := int32(binary.LittleEndian.Uint32(sizeBuf[:]))
	if size < codec.MinDocumentSize || size > maxCommandSize {
		return nil, fmt.Errorf("document size %d out of range", size)
	}
	doc := make([]byte, size)
	copy(doc, sizeBuf[:])
	if _, err := io.ReadFull(reader, doc[4:]); err != nil {
		return nil, err
	}
	return doc, nil
}

// AsyncCommand serializes the request, stamps it with a fresh command
// id, and queues it on the stream; cb runs on the receive goroutine
// when the matching response arrives. Returns false when the session
// cannot send (not registered, or lost). Callbacks of a session that
// drops are abandoned without being invoked.
func (s *Session) AsyncCommand(request *CommandRequest, cb func(CommandResult)) bool {
	commandID := s.cmdID.Add(1)
	packet, err := request.finalize(commandID)
	if err != nil {
		return false
	}

	s.cmdMu.Lock()
	defer s.cmdMu.Unlock()
	if s.conn == nil || s.pending == nil {
		return false
	}
	if cb != nil {
		s.pending[commandID] = cb
	}
	s.sendQueue = append(s.sendQueue, packet)
	select {
	case s.sendKick <- struct{}{}:
	default:
	}
	return true
}

// BlockingCommand runs a command and waits for its result. A session
// that drops while the command is outstanding returns ErrInvalidState;
// a session that cannot send returns ErrNoControl.
func (s *Session) BlockingCommand(request *CommandRequest) (CommandResult, error) {
	s.cmdMu.Lock()
	abandoned := s.abandoned
	s.cmdMu.Unlock()

	resultCh := make(chan CommandResult, 1)
	if !s.AsyncCommand(request, func(result CommandResult) { resultCh <- result }) {
		return CommandResult{}, ErrNoControl
	}

	select {
	case result := <-resultCh:
		return result, nil
	case <-abandoned:
		return CommandResult{}, fmt.Errorf("%w: session dropped with command outstanding", ErrInvalidState)
	}
}

// BlockingSimpleCommand runs a command and reduces the result to an
// error: nil on success, a *CommandError on backend failure.
func (s *Session) BlockingSimpleCommand(request *CommandRequest) error {
	result, err := s.BlockingCommand(request)
	if err != nil {
		return err
	}
	return result.Err()
}

// ReplaceSimData replaces the backend's simulator-state document with
// content (a complete BSON document, typically produced by a sim-data
// builder). Requires the sim_data control grant.
func (s *Session) ReplaceSimData(content codec.Document) error {
	return s.BlockingSimpleCommand(NewCommandRequestFrom("sim_data", "replace", content))
}

// UpdateSimData merges content into the backend's simulator-state
// document. Requires the sim_data control grant.
func (s *Session) UpdateSimData(content codec.Document) error {
	return s.BlockingSimpleCommand(NewCommandRequestFrom("sim_data", "update", content))
}

// readLoop demultiplexes response documents to pending callbacks. A
// malformed document is dropped; a framing loss or stream error ends
// the session.
func (s *Session) readLoop(conn net.Conn) {
	reader := bufio.NewReaderSize(conn, rxBufferSize)
	for {
		doc, err := readDocument(reader)
		if err != nil {
			if err != io.EOF {
				s.log.Debug("command stream closed", "error", err)
			}
			s.lost()
			return
		}
		if err := codec.Validate(doc); err != nil {
			s.log.Warn("dropping malformed command response", "error", err)
			continue
		}
		response, ok := parseCommandResponse(doc)
		if !ok {
			continue
		}

		s.cmdMu.Lock()
		cb := s.pending[response.commandID]
		delete(s.pending, response.commandID)
		s.cmdMu.Unlock()
		if cb != nil {
			cb(response.result)
		}
	}
}

// writeLoop drains the send queue onto the stream.
func (s *Session) writeLoop(conn net.Conn) {
	for {
		select {
		case <-s.done:
			return
		case <-s.abandonedChan():
			return
		case <-s.sendKick:
		}

		for {
			s.cmdMu.Lock()
			if len(s.sendQueue) == 0 {
				s.cmdMu.Unlock()
				break
			}
			packet := s.sendQueue[0]
			s.sendQueue = s.sendQueue[1:]
			s.cmdMu.Unlock()

			if _, err := conn.Write(packet); err != nil {
				s.log.Debug("command stream write failed", "error", err)
				s.lost()
				return
			}
		}
	}
}

func (s *Session) abandonedChan() chan struct{} {
	s.cmdMu.Lock()
	defer s.cmdMu.Unlock()
	return s.abandoned
}

// Action transport implementation: effect pipelines and telemetry
// groups send their datagrams through the session.

// SendDatagram implements action.Transport.
func (s *Session) SendDatagram(datagram []byte) action.Status {
	udp := s.actionSocket()
	if udp == nil {
		return action.StatusFailed
	}
	return udp.send(datagram)
}

// SendDatagramBlocking implements action.Transport.
func (s *Session) SendDatagramBlocking(datagram []byte) action.Status {
	udp := s.actionSocket()
	if udp == nil {
		return action.StatusFailed
	}
	return udp.sendBlocking(datagram)
}

// SendDatagramAsync implements action.Transport.
func (s *Session) SendDatagramAsync(datagram []byte, result *action.AsyncResult) {
	udp := s.actionSocket()
	if udp == nil {
		result.Store(action.StatusFailed)
		return
	}
	udp.sendAsync(datagram, result)
}

func (s *Session) actionSocket() *actionSocket {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != ConnectedControl {
		return nil
	}
	return s.udp
}

// MaxActionPayload returns the descriptor's packet-size limit for the
// action channel, depending on whether frames are encrypted.
func (s *Session) MaxActionPayload(encrypted bool) int {
	if encrypted {
		return int(s.desc.UDPMaxEncryptedPacketSize)
	}
	return int(s.desc.UDPMaxPlaintextPacketSize)
}

// Poll returns the current state. The session's work is serviced by
// internal goroutines, so there is nothing to pump; Poll exists for
// callers structured around a game loop.
func (s *Session) Poll() State { return s.State() }

// RunUntilStateChanges blocks until the session state changes, Stop is
// called, or the session is lost or closed. Returns the state at wake.
func (s *Session) RunUntilStateChanges() State {
	s.mu.Lock()
	if s.state == Invalid {
		s.mu.Unlock()
		return Invalid
	}
	wake := s.wake
	s.mu.Unlock()

	<-wake
	return s.State()
}

// Stop wakes RunUntilStateChanges without changing state. Safe from any
// goroutine.
func (s *Session) Stop() {
	s.mu.Lock()
	s.notifyWakeLocked()
	s.mu.Unlock()
}

// TimerHandle identifies a periodic timer created on the session.
type TimerHandle struct {
	session *Session
	id      int32
}

// Stop cancels the timer. Idempotent.
func (h TimerHandle) Stop() {
	if h.session == nil {
		return
	}
	h.session.timerMu.Lock()
	stop, ok := h.session.timers[h.id]
	delete(h.session.timers, h.id)
	h.session.timerMu.Unlock()
	if ok {
		close(stop)
	}
}

// CreatePeriodicTimer runs cb every period on its own goroutine until
// the handle is stopped or the session closes.
func (s *Session) CreatePeriodicTimer(period time.Duration, cb func()) TimerHandle {
	s.timerMu.Lock()
	s.timerID++
	id := s.timerID
	stop := make(chan struct{})
	s.timers[id] = stop
	s.timerMu.Unlock()

	go func() {
		ticker := s.clk.NewTicker(period)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-s.done:
				return
			case <-ticker.C:
				cb()
			}
		}
	}()
	return TimerHandle{session: s, id: id}
}

// Close detaches from the backend and releases every resource. Pending
// async commands are abandoned without their callbacks being invoked.
// Returns ErrInvalidState when the session is already closed.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrInvalidState
	}
	s.closed = true
	s.state = Invalid
	udp := s.udp
	s.udp = nil
	s.notifyWakeLocked()
	s.mu.Unlock()

	close(s.done)

	s.timerMu.Lock()
	for id, stop := range s.timers {
		close(stop)
		delete(s.timers, id)
	}
	s.timerMu.Unlock()

	s.abandonPending()
	if udp != nil {
		udp.close()
	}

	for _, mapping := range s.subMappings {
		mapping.Close()
	}
	if s.sessionShm != nil {
		s.sessionShm.Close()
	}
	if s.core != nil {
		s.core.Close()
	}
	return nil
}

// abandonPending closes the stream and drops outstanding callbacks
// without invoking them. Blocked BlockingCommand callers wake with
// ErrInvalidState through the abandoned channel.
func (s *Session) abandonPending() {
	s.cmdMu.Lock()
	defer s.cmdMu.Unlock()
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	s.pending = nil
	s.sendQueue = nil
	select {
	case <-s.abandoned:
	default:
		close(s.abandoned)
	}
}

// lost moves the session to SessionLost: the backend stopped answering
// or the stream dropped. Safe to call from any goroutine; only the
// first call transitions.
func (s *Session) lost() {
	s.mu.Lock()
	if s.state == SessionLost || s.state == Invalid {
		s.mu.Unlock()
		return
	}
	s.state = SessionLost
	udp := s.udp
	s.udp = nil
	s.notifyWakeLocked()
	s.mu.Unlock()

	s.abandonPending()
	if udp != nil {
		udp.close()
	}

	s.log.Info("session lost", "session_id", s.sessionID)
	s.producer.Notify(SessionStateChanged{Session: s, State: SessionLost})
}

// notifyWakeLocked wakes every RunUntilStateChanges waiter. Callers
// hold s.mu.
func (s *Session) notifyWakeLocked() {
	close(s.wake)
	s.wake = make(chan struct{})
}

// supervise drives keep-alive supervision and definition refresh on the
// periodic tick.
func (s *Session) supervise() {
	ticker := s.clk.NewTicker(periodicInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			if !s.periodicUpdate() {
				return
			}
		}
	}
}

// periodicUpdate checks backend liveness and refreshes the providers.
// Returns false when supervision should stop.
func (s *Session) periodicUpdate() bool {
	keepAlive := seqlock.LoadUint32(s.sessionRegion, protocol.SessionKeepAliveOffset)

	s.mu.Lock()
	if keepAlive != s.prevKeepAlive {
		s.prevKeepAlive = keepAlive
		s.lastKeepAlive = s.clk.Now()
	}
	state := s.state
	last := s.lastKeepAlive
	s.mu.Unlock()

	// A different session id in the rendezvous region means the backend
	// restarted and the descriptor this session attached to is gone.
	if (state == ConnectedMonitor || state == ConnectedControl) &&
		seqlock.LoadUint32(s.core.Bytes(), coreSessionIDOffset) != s.sessionID {
		s.lost()
		return false
	}

	switch state {
	case ConnectedMonitor:
		if s.clk.Now().Sub(last) > keepAliveTimeout {
			s.lost()
			return false
		}
	case ConnectedControl:
		// The TCP stream detects a dead backend; the keep-alive
		// counter only matters while monitoring.
	default:
		return false
	}

	s.checkDefinitions()
	return true
}

// checkDefinitions refreshes every provider and fans out change events.
func (s *Session) checkDefinitions() {
	if s.devInfo.update() == updNew {
		s.producer.Notify(DeviceInfoChanged{Session: s})
	}
	if s.vars.Refresh() {
		s.producer.Notify(VariableDefinitionsChanged{Session: s})
	}
	if s.tele.Refresh() {
		s.producer.Notify(TelemetryDefinitionsChanged{Session: s})
	}
	if s.simD.update() == updNew {
		s.producer.Notify(SimDataChanged{Session: s})
	}
}
