// Copyright 2026 The Riglink Authors
// SPDX-License-Identifier: Apache-2.0

package backendtest

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/x/bsonx/bsoncore"

	"github.com/riglink-foundation/riglink/protocol"
)

// Request is one command received on the backend's stream.
type Request struct {
	Service  string
	Command  string
	UserData int32
	Payload  bsoncore.Document
}

// Responder produces the response for a command. It returns the result
// code, the error message (failures only), and the command's result
// payload (successes only).
type Responder func(Request) (int32, string, bson.D)

// Backend is an in-process stand-in for the device backend: it
// publishes rendezvous regions into a directory, accepts one command
// stream over TCP, and collects action datagrams over UDP.
type Backend struct {
	t   *testing.T
	Dir string

	SessionID    uint32
	ControllerID uint16

	// Requests receives every parsed command, register included.
	Requests chan Request

	// Datagrams receives every UDP datagram verbatim.
	Datagrams chan []byte

	// Respond overrides the default always-succeed responder. The
	// register command is answered internally and never reaches it.
	Respond Responder

	// ManualResponses suppresses automatic responses for non-register
	// commands; the test answers through SendResponse.
	ManualResponses bool

	listener net.Listener
	udp      *net.UDPConn

	mu   sync.Mutex
	conn net.Conn

	sessionPath string
}

// BackendOptions tweaks region construction.
type BackendOptions struct {
	SessionID     uint32
	DeviceInfo    []byte // BSON; nil gets a one-wheelbase default
	SimData       []byte // BSON; nil gets a minimal default
	VariableDefs  []protocol.VariableDef
	VariableData  []byte
	TelemetryDefs []protocol.TelemetryDef
	Offers        []KeyOffer
}

// Start publishes a full rendezvous fixture in dir and starts the
// backend's sockets. Cleanup is registered on t.
func Start(t *testing.T, dir string, opts BackendOptions) *Backend {
	t.Helper()

	if opts.SessionID == 0 {
		opts.SessionID = 1
	}
	if opts.DeviceInfo == nil {
		opts.DeviceInfo = DeviceInfoDoc(DeviceDoc(1, "wb-001", "wheelbase", true))
	}
	if opts.SimData == nil {
		opts.SimData = MarshalDoc(D{{Key: "vehicles", Value: D{}}})
	}
	if opts.VariableData == nil {
		opts.VariableData = make([]byte, 256)
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	udpAddr, err := net.ResolveUDPAddr("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	udp, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		t.Fatal(err)
	}

	b := &Backend{
		t:            t,
		Dir:          dir,
		SessionID:    opts.SessionID,
		ControllerID: 5,
		Requests:     make(chan Request, 64),
		Datagrams:    make(chan []byte, 256),
		listener:     listener,
		udp:          udp,
	}

	b.writeRegions(opts, listener.Addr().(*net.TCPAddr).Port, udp.LocalAddr().(*net.UDPAddr).Port)

	go b.acceptLoop()
	go b.datagramLoop()
	t.Cleanup(b.Close)
	return b
}

// writeRegions lays the rendezvous fixture files into the directory.
func (b *Backend) writeRegions(opts BackendOptions, tcpPort, udpPort int) {
	defsRegion, valuesRegion := VariableRegions(opts.VariableDefs, opts.VariableData)
	teleRegion := TelemetryRegion(opts.TelemetryDefs)
	devRegion := BSONRegion(StableRevision, opts.DeviceInfo)
	simRegion := BSONRegion(StableRevision, opts.SimData)

	names := map[string][]byte{
		"$rl-dev$":  devRegion,
		"$rl-varh$": defsRegion,
		"$rl-vard$": valuesRegion,
		"$rl-tele$": teleRegion,
		"$rl-sim$":  simRegion,
	}

	refs := []protocol.SubBlobRef{
		{ID: protocol.DeviceInfoSHMID, Version: protocol.DeviceInfoSHMVersion, Size: uint32(len(devRegion)), Path: "$rl-dev$"},
		{ID: protocol.VariableHeaderSHMID, Version: protocol.VariableHeaderSHMVersion, Size: uint32(len(defsRegion)), Path: "$rl-varh$"},
		{ID: protocol.VariableDataSHMID, Version: protocol.VariableDataSHMVersion, Size: uint32(len(valuesRegion)), Path: "$rl-vard$"},
		{ID: protocol.TelemetryDefinitionSHMID, Version: protocol.TelemetryDefinitionSHMVersion, Size: uint32(len(teleRegion)), Path: "$rl-tele$"},
		{ID: protocol.SimDataSHMID, Version: protocol.SimDataSHMVersion, Size: uint32(len(simRegion)), Path: "$rl-sim$"},
	}

	session := SessionRegion(SessionParams{
		SessionID: b.SessionID,
		State:     protocol.SessionActive,
		KeepAlive: 10,
		TCPPort:   uint16(tcpPort),
		UDPPort:   uint16(udpPort),
		SubBlobs:  refs,
		Offers:    opts.Offers,
	})
	b.sessionPath = fmt.Sprintf("$rl-session-%d$", b.SessionID)
	names[b.sessionPath] = session

	names[protocol.CoreSHMName] = CoreRegion(CoreParams{
		SessionID:      b.SessionID,
		SessionSHMSize: uint32(len(session)),
		State:          protocol.CoreActive,
		SessionPath:    b.sessionPath,
	})

	for name, content := range names {
		if err := os.WriteFile(filepath.Join(b.Dir, name), content, 0o644); err != nil {
			b.t.Fatal(err)
		}
	}
}

// Patch overwrites bytes of a published region file in place. Mapped
// readers observe the change immediately.
func (b *Backend) Patch(name string, offset int64, data []byte) {
	file, err := os.OpenFile(filepath.Join(b.Dir, name), os.O_WRONLY, 0)
	if err != nil {
		// Errorf, not Fatal: Patch also runs on the keep-alive pump
		// goroutine, where Fatal is not allowed.
		b.t.Errorf("backendtest: patching %s: %v", name, err)
		return
	}
	defer file.Close()
	if _, err := file.WriteAt(data, offset); err != nil {
		b.t.Errorf("backendtest: patching %s: %v", name, err)
	}
}

// AdvanceKeepAlive bumps the session descriptor's keep-alive counter.
func (b *Backend) AdvanceKeepAlive(value uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], value)
	b.Patch(b.sessionPath, protocol.SessionKeepAliveOffset, buf[:])
}

// SessionRegionName returns the descriptor's region file name.
func (b *Backend) SessionRegionName() string { return b.sessionPath }

// PumpKeepAlive advances the keep-alive counter every interval until
// the returned stop function is called (also registered on t.Cleanup).
func (b *Backend) PumpKeepAlive() func() {
	stop := make(chan struct{})
	var once sync.Once
	stopFn := func() { once.Do(func() { close(stop) }) }
	b.t.Cleanup(stopFn)

	go func() {
		counter := uint32(100)
		ticker := time.NewTicker(50 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				counter++
				b.AdvanceKeepAlive(counter)
			}
		}
	}()
	return stopFn
}

func (b *Backend) acceptLoop() {
	for {
		conn, err := b.listener.Accept()
		if err != nil {
			return
		}
		b.mu.Lock()
		b.conn = conn
		b.mu.Unlock()
		go b.serve(conn)
	}
}

func (b *Backend) serve(conn net.Conn) {
	for {
		doc, err := readDoc(conn)
		if err != nil {
			return
		}
		request, ok := parseRequest(doc)
		if !ok {
			continue
		}

		select {
		case b.Requests <- request:
		default:
		}

		if request.Service == "core" && request.Command == "register" {
			b.respondRegister(request)
			continue
		}
		if b.ManualResponses {
			continue
		}

		result, message, payload := int32(0), "", bson.D{}
		if b.Respond != nil {
			result, message, payload = b.Respond(request)
		}
		b.SendResponse(request.Command, request.UserData, result, message, payload)
	}
}

// respondRegister answers the register command, echoing the requested
// control list.
func (b *Backend) respondRegister(request Request) {
	var control bson.A
	if array, ok := request.Payload.Lookup("control").ArrayOK(); ok {
		if values, err := array.Values(); err == nil {
			for _, value := range values {
				if s, ok := value.StringValueOK(); ok {
					control = append(control, s)
				}
			}
		}
	}

	response := MarshalDoc(D{
		{Key: "00type", Value: int32(1)},
		{Key: "service", Value: "core"},
		{Key: "result", Value: int32(0)},
		{Key: "data", Value: D{
			{Key: "register", Value: D{
				{Key: "controller_id", Value: int32(b.ControllerID)},
				{Key: "control", Value: control},
			}},
		}},
	})
	b.write(response)
}

// SendResponse writes one command response. Tests drive this directly
// in manual mode, in whatever order they want.
func (b *Backend) SendResponse(command string, userData, result int32, message string, payload bson.D) {
	doc := D{
		{Key: "00type", Value: int32(1)},
		{Key: "service", Value: "core"},
		{Key: "user-data", Value: userData},
		{Key: "result", Value: result},
	}
	if result != 0 {
		doc = append(doc, E{Key: "error_message", Value: message})
	} else {
		doc = append(doc, E{Key: "data", Value: D{{Key: command, Value: payload}}})
	}
	b.write(MarshalDoc(doc))
}

func (b *Backend) write(doc []byte) {
	b.mu.Lock()
	conn := b.conn
	b.mu.Unlock()
	if conn != nil {
		conn.Write(doc)
	}
}

// DropStream closes the command connection, simulating a backend crash
// from the stream's point of view.
func (b *Backend) DropStream() {
	b.mu.Lock()
	conn := b.conn
	b.conn = nil
	b.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
}

func (b *Backend) datagramLoop() {
	buf := make([]byte, 65536)
	for {
		n, _, err := b.udp.ReadFromUDP(buf)
		if err != nil {
			return
		}
		datagram := make([]byte, n)
		copy(datagram, buf[:n])
		select {
		case b.Datagrams <- datagram:
		default:
		}
	}
}

// Close shuts the backend's sockets. Region files stay for inspection.
func (b *Backend) Close() {
	b.listener.Close()
	b.udp.Close()
	b.DropStream()
}

func readDoc(conn net.Conn) ([]byte, error) {
	var sizeBuf [4]byte
	if _, err := io.ReadFull(conn, sizeBuf[:]); err != nil {
		return nil, err
	}
	size := int32(binary.LittleEndian.Uint32(sizeBuf[:]))
	if size < 5 || size > 1<<20 {
		return nil, fmt.Errorf("bad document size %d", size)
	}
	doc := make([]byte, size)
	copy(doc, sizeBuf[:])
	if _, err := io.ReadFull(conn, doc[4:]); err != nil {
		return nil, err
	}
	return doc, nil
}

func parseRequest(doc []byte) (Request, bool) {
	root := bsoncore.Document(doc)
	service, ok := root.Lookup("service").StringValueOK()
	if !ok {
		return Request{}, false
	}
	cmd, ok := root.Lookup("cmd").DocumentOK()
	if !ok {
		return Request{}, false
	}
	elements, err := cmd.Elements()
	if err != nil || len(elements) == 0 {
		return Request{}, false
	}
	payload, ok := elements[0].Value().DocumentOK()
	if !ok {
		return Request{}, false
	}

	request := Request{
		Service: service,
		Command: elements[0].Key(),
		Payload: payload,
	}
	if userData, ok := root.Lookup("user-data").Int32OK(); ok {
		request.UserData = userData
	}
	return request, true
}
