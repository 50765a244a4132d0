package kettle

import (
	"encoding/json"
	"fmt"
)

// Action is what the kettle is currently doing (status byte 0)
type Action uint8

const (
	ActionIdle        Action = 0
	ActionHeating     Action = 1
	ActionCooling     Action = 2
	ActionKeepingWarm Action = 3
)

// String returns the device label for the action
func (a Action) String() string {
	switch a {
	case ActionIdle:
		return "idle"
	case ActionHeating:
		return "heating"
	case ActionCooling:
		return "cooling"
	case ActionKeepingWarm:
		return "keeping warm"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(a))
	}
}

// Mode is the selected program (status byte 1)
type Mode uint8

const (
	ModeBoil     Mode = 1
	ModeKeepWarm Mode = 2
	ModeNone     Mode = 255
)

// String returns the device label for the mode
func (m Mode) String() string {
	switch m {
	case ModeBoil:
		return "boil"
	case ModeKeepWarm:
		return "keep warm"
	case ModeNone:
		return "none"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(m))
	}
}

// KeepWarmType selects how the kettle reaches the keep-warm temperature
type KeepWarmType uint8

const (
	KeepWarmBoilAndCool KeepWarmType = 0
	KeepWarmWarmUp      KeepWarmType = 1
)

// String returns the device label for the keep-warm type
func (k KeepWarmType) String() string {
	switch k {
	case KeepWarmBoilAndCool:
		return "boil and cool down to set temperature"
	case KeepWarmWarmUp:
		return "warm up to set temperature"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// ExtendedWarmUp is the extended warm up flag as the kettle reports it.
// The kettle reports 0 when the feature is on, so the labels look inverted.
type ExtendedWarmUp uint8

const (
	ExtendedWarmUpOn  ExtendedWarmUp = 0
	ExtendedWarmUpOff ExtendedWarmUp = 1
)

// String returns the device label ("true" for 0, "false" for 1)
func (e ExtendedWarmUp) String() string {
	switch e {
	case ExtendedWarmUpOn:
		return "true"
	case ExtendedWarmUpOff:
		return "false"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(e))
	}
}

// Parameter names one field of the status frame
type Parameter string

const (
	ParamAction              Parameter = "action"
	ParamMode                Parameter = "mode"
	ParamSetTemperature      Parameter = "set temperature"
	ParamCurrentTemperature  Parameter = "current temperature"
	ParamKeepWarmType        Parameter = "keep warm type"
	ParamCurrentKeepWarmTime Parameter = "current keep warm time"
	ParamExtendedWarmUp      Parameter = "extended warm up"
	ParamSetKeepWarmTime     Parameter = "set keep warm time"
)

// Parameters lists every status parameter in frame order
var Parameters = []Parameter{
	ParamAction,
	ParamMode,
	ParamSetTemperature,
	ParamCurrentTemperature,
	ParamKeepWarmType,
	ParamCurrentKeepWarmTime,
	ParamExtendedWarmUp,
	ParamSetKeepWarmTime,
}

// ParseParameter resolves a parameter name; "-" and "_" are accepted in place of spaces
func ParseParameter(s string) (Parameter, error) {
	normalized := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '-' || c == '_' {
			c = ' '
		}
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		normalized = append(normalized, c)
	}
	for _, p := range Parameters {
		if string(p) == string(normalized) {
			return p, nil
		}
	}
	return "", NewValidationError(fmt.Sprintf("unknown parameter %q", s))
}

// Status is one decoded status notification
type Status struct {
	Action              Action
	Mode                Mode
	SetTemperature      int // °C
	CurrentTemperature  int // °C
	KeepWarmType        KeepWarmType
	CurrentKeepWarmTime int // minutes
	ExtendedWarmUp      ExtendedWarmUp
	SetKeepWarmTime     int // half-hour units
}

// parseLabel maps a device label back to its byte value. Every byte has a
// label, unknown values included, so the search is total.
func parseLabel(kind, label string, labelOf func(uint8) string) (uint8, error) {
	for v := 0; v <= 0xFF; v++ {
		if labelOf(uint8(v)) == label {
			return uint8(v), nil
		}
	}
	return 0, NewValidationError(fmt.Sprintf("unknown %s %q", kind, label))
}

func (a Action) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

func (a *Action) UnmarshalText(text []byte) error {
	v, err := parseLabel("action", string(text), func(b uint8) string { return Action(b).String() })
	*a = Action(v)
	return err
}

func (m Mode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *Mode) UnmarshalText(text []byte) error {
	v, err := parseLabel("mode", string(text), func(b uint8) string { return Mode(b).String() })
	*m = Mode(v)
	return err
}

func (k KeepWarmType) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *KeepWarmType) UnmarshalText(text []byte) error {
	v, err := parseLabel("keep warm type", string(text), func(b uint8) string { return KeepWarmType(b).String() })
	*k = KeepWarmType(v)
	return err
}

func (e ExtendedWarmUp) MarshalText() ([]byte, error) { return []byte(e.String()), nil }

func (e *ExtendedWarmUp) UnmarshalText(text []byte) error {
	v, err := parseLabel("extended warm up", string(text), func(b uint8) string { return ExtendedWarmUp(b).String() })
	*e = ExtendedWarmUp(v)
	return err
}

// Frame offsets
const (
	offsetAction          = 0
	offsetMode            = 1
	offsetSetTemperature  = 4
	offsetCurrentTemp     = 5
	offsetKeepWarmType    = 6
	offsetKeepWarmTime    = 7
	offsetKeepWarmTimeEnd = 8
	offsetExtendedWarmUp  = 9
	offsetSetKeepWarmTime = 10
)

// DecodeStatus parses an 11-byte status frame
func DecodeStatus(frame []byte) (Status, error) {
	if len(frame) == 0 {
		return Status{}, NewMalformedFrameError("empty status frame")
	}
	if len(frame) < StatusFrameSize {
		return Status{}, NewMalformedFrameError(fmt.Sprintf("status frame too short: %d bytes, want %d", len(frame), StatusFrameSize))
	}

	return Status{
		Action:              Action(frame[offsetAction]),
		Mode:                Mode(frame[offsetMode]),
		SetTemperature:      int(frame[offsetSetTemperature]),
		CurrentTemperature:  int(frame[offsetCurrentTemp]),
		KeepWarmType:        KeepWarmType(frame[offsetKeepWarmType]),
		CurrentKeepWarmTime: bytesToInt(frame[offsetKeepWarmTime:offsetKeepWarmTimeEnd]),
		ExtendedWarmUp:      ExtendedWarmUp(frame[offsetExtendedWarmUp]),
		SetKeepWarmTime:     int(frame[offsetSetKeepWarmTime]),
	}, nil
}

// bytesToInt reads b as a big-endian unsigned integer of any width
func bytesToInt(b []byte) int {
	result := 0
	for _, v := range b {
		result = result*256 + int(v)
	}
	return result
}

// SetKeepWarmHours converts SetKeepWarmTime to hours
func (s Status) SetKeepWarmHours() float64 {
	return float64(s.SetKeepWarmTime) / 2
}

// Value returns the field named by p. Enumerated fields are returned as
// their typed values; callers format them with %v or String().
func (s Status) Value(p Parameter) (any, error) {
	switch p {
	case ParamAction:
		return s.Action, nil
	case ParamMode:
		return s.Mode, nil
	case ParamSetTemperature:
		return s.SetTemperature, nil
	case ParamCurrentTemperature:
		return s.CurrentTemperature, nil
	case ParamKeepWarmType:
		return s.KeepWarmType, nil
	case ParamCurrentKeepWarmTime:
		return s.CurrentKeepWarmTime, nil
	case ParamExtendedWarmUp:
		return s.ExtendedWarmUp, nil
	case ParamSetKeepWarmTime:
		return s.SetKeepWarmTime, nil
	default:
		return nil, NewValidationError(fmt.Sprintf("unknown parameter %q", string(p)))
	}
}

// statusJSON is the wire form of Status. Enumerated fields travel as their
// device labels.
type statusJSON struct {
	Action              Action         `json:"action"`
	Mode                Mode           `json:"mode"`
	SetTemperature      int            `json:"set_temperature"`
	CurrentTemperature  int            `json:"current_temperature"`
	KeepWarmType        KeepWarmType   `json:"keep_warm_type"`
	CurrentKeepWarmTime int            `json:"current_keep_warm_time"`
	ExtendedWarmUp      ExtendedWarmUp `json:"extended_warm_up"`
	SetKeepWarmTime     int            `json:"set_keep_warm_time"`
}

// MarshalJSON renders enumerated fields with their device labels
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(statusJSON(s))
}

// UnmarshalJSON reads the form written by MarshalJSON
func (s *Status) UnmarshalJSON(data []byte) error {
	var w statusJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*s = Status(w)
	return nil
}

// String returns a debug representation of the status
func (s Status) String() string {
	return fmt.Sprintf("Status{action=%s, mode=%s, set=%d°C, current=%d°C, kw_type=%s, kw_time=%dmin, ewu=%s, set_kw_time=%d}",
		s.Action, s.Mode, s.SetTemperature, s.CurrentTemperature, s.KeepWarmType,
		s.CurrentKeepWarmTime, s.ExtendedWarmUp, s.SetKeepWarmTime)
}
