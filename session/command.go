// Copyright 2026 The Riglink Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"fmt"
	"strconv"

	"github.com/riglink-foundation/riglink/lib/codec"
	"github.com/riglink-foundation/riglink/protocol"
)

// CommandRequest builds one request document for the reliable stream.
// Every request is a BSON document of the shape
//
//	{00type: 1, service: <service>, cmd: {<command>: {...}}, user-data: <id>}
//
// where the type tag element leads so the backend can dispatch without
// parsing the whole document, and user-data is stamped at send time to
// demultiplex the reply.
type CommandRequest struct {
	buf    []byte
	frames []requestFrame
}

// requestFrame is one open document or array; arrays number their
// elements automatically.
type requestFrame struct {
	index   int32
	isArray bool
	n       int
}

// NewCommandRequest starts a request for the given service and command.
// Payload elements are added with the Add methods, in order.
func NewCommandRequest(service, command string) *CommandRequest {
	r := &CommandRequest{}
	var index int32
	index, r.buf = codec.AppendDocumentStart(nil)
	r.frames = append(r.frames, requestFrame{index: index})
	r.buf = codec.AppendInt32Element(r.buf, "00type", 1)
	r.buf = codec.AppendStringElement(r.buf, "service", service)
	r.BeginDocument("cmd")
	r.BeginDocument(command)
	return r
}

// NewCommandRequestFrom starts a request whose command payload copies an
// existing document's elements.
func NewCommandRequestFrom(service, command string, content codec.Document) *CommandRequest {
	r := NewCommandRequest(service, command)
	if len(content) > codec.MinDocumentSize {
		// Splice the content's elements (between its length prefix and
		// terminator) into the open command document.
		r.buf = append(r.buf, content[4:len(content)-1]...)
	}
	return r
}

// key resolves the element key: explicit in documents, positional in
// arrays.
func (r *CommandRequest) key(key string) string {
	top := &r.frames[len(r.frames)-1]
	if !top.isArray {
		return key
	}
	k := strconv.Itoa(top.n)
	top.n++
	return k
}

// BeginDocument opens a subdocument under key.
func (r *CommandRequest) BeginDocument(key string) {
	var index int32
	index, r.buf = codec.AppendDocumentElementStart(r.buf, r.key(key))
	r.frames = append(r.frames, requestFrame{index: index})
}

// BeginArray opens an array under key. Elements added inside take
// positional keys.
func (r *CommandRequest) BeginArray(key string) {
	var index int32
	index, r.buf = codec.AppendArrayElementStart(r.buf, r.key(key))
	r.frames = append(r.frames, requestFrame{index: index, isArray: true})
}

// End closes the innermost open document or array.
func (r *CommandRequest) End() {
	top := r.frames[len(r.frames)-1]
	r.frames = r.frames[:len(r.frames)-1]
	var err error
	if top.isArray {
		r.buf, err = codec.AppendArrayEnd(r.buf, top.index)
	} else {
		r.buf, err = codec.AppendDocumentEnd(r.buf, top.index)
	}
	if err != nil {
		// Lengths are managed by this builder; a failure here is a bug
		// in the builder itself.
		panic(fmt.Sprintf("session: closing request frame: %v", err))
	}
}

// AddString appends key: value to the innermost open frame.
func (r *CommandRequest) AddString(key, value string) {
	r.buf = codec.AppendStringElement(r.buf, r.key(key), value)
}

// AddInt32 appends key: value.
func (r *CommandRequest) AddInt32(key string, value int32) {
	r.buf = codec.AppendInt32Element(r.buf, r.key(key), value)
}

// AddInt64 appends key: value.
func (r *CommandRequest) AddInt64(key string, value int64) {
	r.buf = codec.AppendInt64Element(r.buf, r.key(key), value)
}

// AddDouble appends key: value.
func (r *CommandRequest) AddDouble(key string, value float64) {
	r.buf = codec.AppendDoubleElement(r.buf, r.key(key), value)
}

// AddBool appends key: value.
func (r *CommandRequest) AddBool(key string, value bool) {
	r.buf = codec.AppendBooleanElement(r.buf, r.key(key), value)
}

// AddBinary appends key: value as a binary element.
func (r *CommandRequest) AddBinary(key string, value []byte) {
	r.buf = codec.AppendBinaryElement(r.buf, r.key(key), value)
}

// finalize closes the nested documents, stamps the user-data id, and
// returns the encoded packet. Begin/End calls must balance back to the
// command payload before sending. The request must not be reused after.
func (r *CommandRequest) finalize(commandID int32) ([]byte, error) {
	if len(r.frames) != 3 {
		return nil, fmt.Errorf("%w: unbalanced request frames", ErrInvalidArgument)
	}
	r.End() // command payload
	r.End() // cmd
	r.buf = codec.AppendInt32Element(r.buf, "user-data", commandID)
	root := r.frames[0]
	r.frames = nil
	buf, err := codec.AppendDocumentEnd(r.buf, root.index)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	return buf, nil
}

// CommandResult is the outcome of one command. On success Payload holds
// the command's result document (the inner document of data.<command>);
// on failure Code and Message carry the backend's error.
type CommandResult struct {
	Code    protocol.ResponseCode
	Message string
	Payload codec.Document
}

// OK reports whether the command succeeded.
func (r CommandResult) OK() bool { return r.Code == protocol.ResponseOK }

// Err returns nil on success or the backend failure as an error.
func (r CommandResult) Err() error {
	if r.OK() {
		return nil
	}
	return &CommandError{Code: r.Code, Message: r.Message}
}

// commandResponse is one parsed response document from the stream.
type commandResponse struct {
	commandID int32
	result    CommandResult
}

// parseCommandResponse decodes one response document. Responses carry
// 00type=1 first; anything else is not a command response and is
// dropped by the caller.
func parseCommandResponse(doc codec.Document) (commandResponse, bool) {
	elements, err := doc.Elements()
	if err != nil || len(elements) == 0 {
		return commandResponse{}, false
	}
	if elements[0].Key() != "00type" {
		return commandResponse{}, false
	}
	if t, ok := elements[0].Value().Int32OK(); !ok || t != 1 {
		return commandResponse{}, false
	}

	response := commandResponse{commandID: -1}
	for _, element := range elements[1:] {
		value := element.Value()
		switch element.Key() {
		case "user-data":
			if id, ok := value.Int32OK(); ok {
				response.commandID = id
			}
		case "result":
			if code, ok := value.Int32OK(); ok {
				response.result.Code = protocol.ResponseCode(code)
			}
		case "error_message":
			if msg, ok := value.StringValueOK(); ok {
				response.result.Message = msg
			}
		case "data":
			// data is {<command>: {...}}; the payload handed to the
			// callback is the inner document.
			if data, ok := value.DocumentOK(); ok {
				if inner, err := data.Elements(); err == nil && len(inner) > 0 {
					if payload, ok := inner[0].Value().DocumentOK(); ok {
						response.result.Payload = payload
					}
				}
			}
		}
	}

	if response.commandID < 0 {
		return commandResponse{}, false
	}
	return response, true
}
