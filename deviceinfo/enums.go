// Copyright 2026 The Riglink Authors
// SPDX-License-Identifier: Apache-2.0

package deviceinfo

// DeviceRole is the intended use of a whole device.
type DeviceRole int

const (
	RoleWheel DeviceRole = iota
	RoleWheelbase
	RoleThrottlePedal
	RoleBrakePedal
	RoleHandbrake
	RoleClutchPedal
	RoleGearStick
	RoleButtonBox

	// RoleHub devices exist to connect other devices.
	RoleHub

	// RoleUnknown means the device's role is not decided yet, such as
	// an active pedal before initial configuration.
	RoleUnknown

	// RoleOther is any role this client version does not know.
	RoleOther
)

var deviceRoleNames = []string{
	"wheel", "wheelbase", "throttle_pedal", "brake_pedal", "handbrake",
	"clutch_pedal", "gear_stick", "button_box", "hub", "unknown", "other",
}

func (r DeviceRole) String() string { return enumName(deviceRoleNames, int(r)) }

// DeviceRoleFromString maps a wire string to a role, RoleOther for
// anything unrecognized.
func DeviceRoleFromString(s string) DeviceRole {
	return DeviceRole(enumFromString(deviceRoleNames, s, int(RoleOther)))
}

// ControlType classifies a physical control on a device.
type ControlType int

const (
	ControlWheelbase ControlType = iota
	ControlWheel
	ControlPedal
	ControlPaddle
	ControlHatSwitch
	ControlButton
	ControlToggleSwitch
	ControlDir2Way
	ControlDir4Way
	ControlRotaryEncoder
	ControlFunkySwitch

	// ControlLight is feedback-only and produces no input.
	ControlLight

	ControlUnknown
	ControlOther
)

var controlTypeNames = []string{
	"wheelbase", "wheel", "pedal", "paddle", "hat_switch", "button",
	"toggle_switch", "dir_2way", "dir_4way", "rot_enc", "funky_switch",
	"light", "unknown", "other",
}

func (t ControlType) String() string { return enumName(controlTypeNames, int(t)) }

// ControlTypeFromString maps a wire string to a control type.
func ControlTypeFromString(s string) ControlType {
	return ControlType(enumFromString(controlTypeNames, s, int(ControlOther)))
}

// FeedbackType classifies how a device can be driven by the simulator.
type FeedbackType int

const (
	// FeedbackDirectInput is HID force feedback.
	FeedbackDirectInput FeedbackType = iota

	// FeedbackWheelbase is the effect-pipeline interface of a
	// wheelbase.
	FeedbackWheelbase

	// FeedbackActivePedal is the effect-pipeline interface of an
	// active pedal.
	FeedbackActivePedal

	FeedbackRGBLight
	FeedbackLight
	FeedbackUnknown
	FeedbackOther
)

var feedbackTypeNames = []string{
	"direct_input", "wheelbase", "active_pedal", "rgb_light", "light",
	"unknown", "other",
}

func (t FeedbackType) String() string { return enumName(feedbackTypeNames, int(t)) }

// FeedbackTypeFromString maps a wire string to a feedback type.
func FeedbackTypeFromString(s string) FeedbackType {
	return FeedbackType(enumFromString(feedbackTypeNames, s, int(FeedbackOther)))
}

// InputRole is the intended simulator binding of an input source.
type InputRole int

const (
	InputSteering InputRole = iota
	InputThrottle
	InputBrake
	InputClutch
	InputGearShiftUp
	InputGearShiftDown
	InputHandbrake
	InputIgnition
	InputStarter
	InputPitLimiter
	InputDRS
	InputRoleUnknown
	InputRoleOther
)

var inputRoleNames = []string{
	"steering", "throttle", "brake", "clutch", "gear_shift_up",
	"gear_shift_down", "handbrake", "ignition", "starter", "pit_limiter",
	"drs", "unknown", "other",
}

func (r InputRole) String() string { return enumName(inputRoleNames, int(r)) }

// InputRoleFromString maps a wire string to an input role.
func InputRoleFromString(s string) InputRole {
	return InputRole(enumFromString(inputRoleNames, s, int(InputRoleOther)))
}

// InputType classifies the input source itself.
type InputType int

const (
	InputTypeAxis InputType = iota
	InputTypeButton
	InputTypeActivePedal
	InputTypeWheelbase
	InputTypeUnknown
	InputTypeOther
)

var inputTypeNames = []string{
	"axis", "button", "active_pedal", "wheelbase", "unknown", "other",
}

func (t InputType) String() string { return enumName(inputTypeNames, int(t)) }

// InputTypeFromString maps a wire string to an input type.
func InputTypeFromString(s string) InputType {
	return InputType(enumFromString(inputTypeNames, s, int(InputTypeOther)))
}

func enumName(names []string, v int) string {
	if v < 0 || v >= len(names) {
		return "other"
	}
	return names[v]
}

// enumFromString resolves everything up to but excluding the trailing
// "other" member, so unknown strings land on the fallback.
func enumFromString(names []string, s string, other int) int {
	for i := 0; i < len(names)-1; i++ {
		if names[i] == s {
			return i
		}
	}
	return other
}
