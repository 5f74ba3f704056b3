// Copyright 2026 The Riglink Authors
// SPDX-License-Identifier: Apache-2.0

package deviceinfo

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/riglink-foundation/riglink/lib/codec"
	"github.com/riglink-foundation/riglink/protocol"
)

// VariableRef names a shared-memory variable from a device's point of
// view. An input's variable may live on another device, in which case
// the wire encodes it as "<device session id>:<name>".
type VariableRef struct {
	Name            string
	DeviceSessionID protocol.DeviceSessionID
}

// Control is a physical control of a device.
type Control struct {
	ID       string
	Name     string
	Type     ControlType
	ParentID string
}

// Input is one input source a device exposes.
type Input struct {
	ID       string
	Variable VariableRef
	Role     InputRole
	Type     InputType
	Control  string
}

// Feedback is one way the simulator can drive a device.
type Feedback struct {
	ID      string
	Control string
	Type    FeedbackType

	// Parameters carries feedback-specific configuration as raw BSON.
	Parameters codec.Document
}

// InputMapping binds a HID usage to a device input.
type InputMapping struct {
	InputID string
	Device  protocol.DeviceSessionID
}

// HIDAxis describes one HID axis the device reports.
type HIDAxis struct {
	Role      InputRole
	Mappings  []InputMapping
	RangeLow  int32
	RangeHigh int32
}

// HIDButton describes one HID button the device reports.
type HIDButton struct {
	Role     InputRole
	Mappings []InputMapping
}

// USBInfo is present for devices visible as USB HID devices.
type USBInfo struct {
	VendorID  int32
	ProductID int32
	HIDPath   string
}

// Device is one parsed device. Handles borrow liveness from the
// enclosing FullInfo; holding a *Device keeps the snapshot alive.
type Device struct {
	UID       string
	SessionID protocol.DeviceSessionID
	Role      DeviceRole
	Connected bool
	USB       *USBInfo

	Controls   []Control
	Inputs     []Input
	Feedbacks  []Feedback
	HIDAxes    []HIDAxis
	HIDButtons []HIDButton

	raw codec.Document
}

// RawBSON returns the device's underlying BSON document.
func (d *Device) RawBSON() codec.Document { return d.raw }

// Control returns the control with the given id, or nil.
func (d *Device) Control(id string) *Control {
	for i := range d.Controls {
		if d.Controls[i].ID == id {
			return &d.Controls[i]
		}
	}
	return nil
}

// Input returns the input with the given id, or nil.
func (d *Device) Input(id string) *Input {
	for i := range d.Inputs {
		if d.Inputs[i].ID == id {
			return &d.Inputs[i]
		}
	}
	return nil
}

// Feedback returns the feedback with the given id, or nil.
func (d *Device) Feedback(id string) *Feedback {
	for i := range d.Feedbacks {
		if d.Feedbacks[i].ID == id {
			return &d.Feedbacks[i]
		}
	}
	return nil
}

// HasFeedbackType reports whether any feedback of the device has the
// given type.
func (d *Device) HasFeedbackType(t FeedbackType) bool {
	for i := range d.Feedbacks {
		if d.Feedbacks[i].Type == t {
			return true
		}
	}
	return false
}

// FullInfo is one parsed snapshot of the device-info blob. It owns the
// raw bytes and every Device in it.
type FullInfo struct {
	revision uint32
	raw      []byte
	devices  []Device
}

// Parse decodes a validated device-info BSON document. Devices that
// lack the mandatory identity fields are skipped, matching the
// backend's contract that optional structure may grow over time.
func Parse(raw []byte, revision uint32) (*FullInfo, error) {
	doc := codec.Document(raw)
	elements, err := doc.Elements()
	if err != nil {
		return nil, fmt.Errorf("deviceinfo: %w", err)
	}

	info := &FullInfo{revision: revision, raw: raw}
	for _, element := range elements {
		sub, ok := element.Value().DocumentOK()
		if !ok {
			continue
		}
		if device, ok := parseDevice(sub); ok {
			info.devices = append(info.devices, device)
		}
	}
	return info, nil
}

// Revision returns the shared-memory revision this snapshot was parsed
// from.
func (f *FullInfo) Revision() uint32 { return f.revision }

// Len returns the number of devices.
func (f *FullInfo) Len() int { return len(f.devices) }

// At returns the device at index i.
func (f *FullInfo) At(i int) *Device { return &f.devices[i] }

// ByUID returns the device with the given unique id, or nil.
func (f *FullInfo) ByUID(uid string) *Device {
	return f.FindFirst(func(d *Device) bool { return d.UID == uid })
}

// BySessionID returns the device with the given session id, or nil.
func (f *FullInfo) BySessionID(id protocol.DeviceSessionID) *Device {
	return f.FindFirst(func(d *Device) bool { return d.SessionID == id })
}

// ByHIDPath returns the device with the given USB HID path, or nil.
func (f *FullInfo) ByHIDPath(path string) *Device {
	return f.FindFirst(func(d *Device) bool { return d.USB != nil && d.USB.HIDPath == path })
}

// FindFirst returns the first device matching the filter, or nil.
func (f *FullInfo) FindFirst(filter func(*Device) bool) *Device {
	for i := range f.devices {
		if filter(&f.devices[i]) {
			return &f.devices[i]
		}
	}
	return nil
}

// FindAll returns every device matching the filter.
func (f *FullInfo) FindAll(filter func(*Device) bool) []*Device {
	var out []*Device
	for i := range f.devices {
		if filter(&f.devices[i]) {
			out = append(out, &f.devices[i])
		}
	}
	return out
}

// FindFirstSessionID returns the session id of the first matching
// device, or protocol.NoDevice.
func (f *FullInfo) FindFirstSessionID(filter func(*Device) bool) protocol.DeviceSessionID {
	if d := f.FindFirst(filter); d != nil {
		return d.SessionID
	}
	return protocol.NoDevice
}

// FindAllSessionIDs returns the session ids of every matching device.
func (f *FullInfo) FindAllSessionIDs(filter func(*Device) bool) []protocol.DeviceSessionID {
	var out []protocol.DeviceSessionID
	for i := range f.devices {
		if filter(&f.devices[i]) {
			out = append(out, f.devices[i].SessionID)
		}
	}
	return out
}

func parseDevice(doc codec.Document) (Device, bool) {
	elements, err := doc.Elements()
	if err != nil {
		return Device{}, false
	}

	device := Device{raw: doc, Role: RoleUnknown}
	var usb USBInfo
	var haveID, haveUID bool

	for _, element := range elements {
		value := element.Value()
		switch element.Key() {
		case "logical_id":
			if id, ok := value.Int32OK(); ok {
				device.SessionID = protocol.DeviceSessionID(id)
				haveID = true
			}
		case "device_uid":
			if uid, ok := value.StringValueOK(); ok {
				device.UID = uid
				haveUID = true
			}
		case "role":
			if role, ok := value.StringValueOK(); ok {
				device.Role = DeviceRoleFromString(role)
			}
		case "is_connected":
			if connected, ok := value.BooleanOK(); ok {
				device.Connected = connected
			}
		case "usb_path":
			if path, ok := value.StringValueOK(); ok {
				usb.HIDPath = path
			}
		case "usb_vid":
			if vid, ok := value.Int32OK(); ok {
				usb.VendorID = vid
			}
		case "usb_pid":
			if pid, ok := value.Int32OK(); ok {
				usb.ProductID = pid
			}
		case "control":
			if sub, ok := value.DocumentOK(); ok {
				device.Controls = parseControls(sub)
			}
		case "input":
			if sub, ok := value.DocumentOK(); ok {
				device.Inputs = parseInputs(sub, device.SessionID)
			}
		case "feedback":
			if sub, ok := value.DocumentOK(); ok {
				device.Feedbacks = parseFeedbacks(sub)
			}
		case "hid_input":
			if sub, ok := value.DocumentOK(); ok {
				device.HIDAxes, device.HIDButtons = parseHIDInputs(sub)
			}
		}
	}

	if !haveID || !haveUID {
		return Device{}, false
	}
	if usb.HIDPath != "" {
		device.USB = &usb
	}
	return device, true
}

func parseControls(doc codec.Document) []Control {
	var controls []Control
	elements, err := doc.Elements()
	if err != nil {
		return nil
	}
	for _, element := range elements {
		sub, ok := element.Value().DocumentOK()
		if !ok {
			continue
		}
		control := Control{ID: element.Key(), Type: ControlUnknown}
		if name, ok := sub.Lookup("name").StringValueOK(); ok {
			control.Name = name
		}
		if role, ok := sub.Lookup("role").StringValueOK(); ok {
			control.Type = ControlTypeFromString(role)
		}
		if parent, ok := sub.Lookup("parent").StringValueOK(); ok {
			control.ParentID = parent
		}
		controls = append(controls, control)
	}
	return controls
}

func parseInputs(doc codec.Document, thisDevice protocol.DeviceSessionID) []Input {
	var inputs []Input
	elements, err := doc.Elements()
	if err != nil {
		return nil
	}
	for _, element := range elements {
		sub, ok := element.Value().DocumentOK()
		if !ok {
			continue
		}
		input := Input{ID: element.Key(), Role: InputRoleUnknown, Type: InputTypeUnknown}
		if variable, ok := sub.Lookup("variable").StringValueOK(); ok {
			input.Variable = parseVariableRef(variable, thisDevice)
		}
		if role, ok := sub.Lookup("role").StringValueOK(); ok {
			input.Role = InputRoleFromString(role)
		}
		if typ, ok := sub.Lookup("type").StringValueOK(); ok {
			input.Type = InputTypeFromString(typ)
		}
		if control, ok := sub.Lookup("control").StringValueOK(); ok {
			input.Control = control
		}
		inputs = append(inputs, input)
	}
	return inputs
}

// parseVariableRef splits the optional "<device>:<name>" form. A
// malformed device prefix falls back to the owning device's scope.
func parseVariableRef(s string, thisDevice protocol.DeviceSessionID) VariableRef {
	if at := strings.IndexByte(s, ':'); at >= 0 {
		if id, err := strconv.ParseUint(s[:at], 10, 16); err == nil {
			return VariableRef{Name: s[at+1:], DeviceSessionID: protocol.DeviceSessionID(id)}
		}
	}
	return VariableRef{Name: s, DeviceSessionID: thisDevice}
}

func parseFeedbacks(doc codec.Document) []Feedback {
	var feedbacks []Feedback
	elements, err := doc.Elements()
	if err != nil {
		return nil
	}
	for _, element := range elements {
		sub, ok := element.Value().DocumentOK()
		if !ok {
			continue
		}
		feedback := Feedback{ID: element.Key(), Type: FeedbackUnknown}
		if control, ok := sub.Lookup("control").StringValueOK(); ok {
			feedback.Control = control
		}
		if typ, ok := sub.Lookup("type").StringValueOK(); ok {
			feedback.Type = FeedbackTypeFromString(typ)
		}
		if parameters, ok := sub.Lookup("parameters").DocumentOK(); ok {
			feedback.Parameters = parameters
		}
		feedbacks = append(feedbacks, feedback)
	}
	return feedbacks
}

func parseHIDInputs(doc codec.Document) (axes []HIDAxis, buttons []HIDButton) {
	if array, ok := doc.Lookup("axis").ArrayOK(); ok {
		values, err := array.Values()
		if err == nil {
			for _, value := range values {
				if sub, ok := value.DocumentOK(); ok {
					axes = append(axes, parseHIDAxis(sub))
				}
			}
		}
	}
	if array, ok := doc.Lookup("buttons").ArrayOK(); ok {
		values, err := array.Values()
		if err == nil {
			for _, value := range values {
				if sub, ok := value.DocumentOK(); ok {
					button := HIDButton{Role: InputRoleUnknown}
					if role, ok := sub.Lookup("role").StringValueOK(); ok {
						button.Role = InputRoleFromString(role)
					}
					button.Mappings = parseMappings(sub)
					buttons = append(buttons, button)
				}
			}
		}
	}
	return axes, buttons
}

func parseHIDAxis(doc codec.Document) HIDAxis {
	axis := HIDAxis{Role: InputRoleUnknown}
	if role, ok := doc.Lookup("role").StringValueOK(); ok {
		axis.Role = InputRoleFromString(role)
	}
	axis.Mappings = parseMappings(doc)
	if array, ok := doc.Lookup("range").ArrayOK(); ok {
		if values, err := array.Values(); err == nil && len(values) == 2 {
			low, okLow := values[0].Int32OK()
			high, okHigh := values[1].Int32OK()
			if okLow && okHigh {
				axis.RangeLow, axis.RangeHigh = low, high
			}
		}
	}
	return axis
}

func parseMappings(doc codec.Document) []InputMapping {
	array, ok := doc.Lookup("mappings").ArrayOK()
	if !ok {
		return nil
	}
	values, err := array.Values()
	if err != nil {
		return nil
	}
	var mappings []InputMapping
	for _, value := range values {
		sub, ok := value.DocumentOK()
		if !ok {
			continue
		}
		var mapping InputMapping
		if input, ok := sub.Lookup("input").StringValueOK(); ok {
			mapping.InputID = input
		}
		if device, ok := sub.Lookup("device").Int32OK(); ok {
			mapping.Device = protocol.DeviceSessionID(device)
		}
		mappings = append(mappings, mapping)
	}
	return mappings
}
