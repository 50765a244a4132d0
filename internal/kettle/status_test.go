package kettle

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestDecodeStatus(t *testing.T) {
	got, err := DecodeStatus(validFrame())
	if err != nil {
		t.Fatalf("DecodeStatus() error = %v", err)
	}

	want := Status{
		Action:              ActionHeating,
		Mode:                ModeBoil,
		SetTemperature:      75,
		CurrentTemperature:  60,
		KeepWarmType:        KeepWarmWarmUp,
		CurrentKeepWarmTime: 0,
		ExtendedWarmUp:      ExtendedWarmUpOn,
		SetKeepWarmTime:     34,
	}
	if got != want {
		t.Errorf("DecodeStatus() = %v, want %v", got, want)
	}

	if got.Action.String() != "heating" {
		t.Errorf("Action = %q, want heating", got.Action)
	}
	if got.Mode.String() != "boil" {
		t.Errorf("Mode = %q, want boil", got.Mode)
	}
	if got.KeepWarmType.String() != "warm up to set temperature" {
		t.Errorf("KeepWarmType = %q", got.KeepWarmType)
	}
	if got.ExtendedWarmUp.String() != "true" {
		t.Errorf("ExtendedWarmUp = %q, want true", got.ExtendedWarmUp)
	}
}

func TestDecodeStatus_KeepWarmTimeUsesByteSeven(t *testing.T) {
	frame := validFrame()
	frame[7] = 45
	frame[8] = 99

	got, err := DecodeStatus(frame)
	if err != nil {
		t.Fatalf("DecodeStatus() error = %v", err)
	}
	if got.CurrentKeepWarmTime != 45 {
		t.Errorf("CurrentKeepWarmTime = %d, want 45", got.CurrentKeepWarmTime)
	}
}

// The kettle reports 0 when extended warm up is enabled.
func TestExtendedWarmUp_Labels(t *testing.T) {
	tests := []struct {
		raw  byte
		want string
	}{
		{0, "true"},
		{1, "false"},
		{7, "unknown(7)"},
	}
	for _, tt := range tests {
		frame := validFrame()
		frame[9] = tt.raw
		got, err := DecodeStatus(frame)
		if err != nil {
			t.Fatalf("DecodeStatus() error = %v", err)
		}
		if got.ExtendedWarmUp.String() != tt.want {
			t.Errorf("byte 9 = %d: ExtendedWarmUp = %q, want %q", tt.raw, got.ExtendedWarmUp, tt.want)
		}
	}
}

func TestDecodeStatus_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		frame []byte
	}{
		{"nil", nil},
		{"empty", []byte{}},
		{"ten bytes", validFrame()[:10]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeStatus(tt.frame)
			if !IsMalformedFrame(err) {
				t.Errorf("DecodeStatus() error = %v, want malformed frame", err)
			}
		})
	}
}

func TestDecodeStatus_UnknownEnumsStayTotal(t *testing.T) {
	frame := []byte{9, 7, 0, 0, 40, 20, 5, 0, 0, 3, 0}
	got, err := DecodeStatus(frame)
	if err != nil {
		t.Fatalf("DecodeStatus() error = %v", err)
	}
	if got.Action.String() != "unknown(9)" {
		t.Errorf("Action = %q, want unknown(9)", got.Action)
	}
	if got.Mode.String() != "unknown(7)" {
		t.Errorf("Mode = %q, want unknown(7)", got.Mode)
	}
	if got.KeepWarmType.String() != "unknown(5)" {
		t.Errorf("KeepWarmType = %q, want unknown(5)", got.KeepWarmType)
	}
}

func TestEnumLabels(t *testing.T) {
	tests := []struct {
		got  string
		want string
	}{
		{ActionIdle.String(), "idle"},
		{ActionCooling.String(), "cooling"},
		{ActionKeepingWarm.String(), "keeping warm"},
		{ModeKeepWarm.String(), "keep warm"},
		{ModeNone.String(), "none"},
		{KeepWarmBoilAndCool.String(), "boil and cool down to set temperature"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("label = %q, want %q", tt.got, tt.want)
		}
	}
}

func TestParseParameter(t *testing.T) {
	tests := []struct {
		input   string
		want    Parameter
		wantErr bool
	}{
		{"action", ParamAction, false},
		{"current temperature", ParamCurrentTemperature, false},
		{"current-temperature", ParamCurrentTemperature, false},
		{"SET_KEEP_WARM_TIME", ParamSetKeepWarmTime, false},
		{"extended warm up", ParamExtendedWarmUp, false},
		{"humidity", "", true},
	}
	for _, tt := range tests {
		got, err := ParseParameter(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseParameter(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseParameter(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestStatus_Value(t *testing.T) {
	s, _ := DecodeStatus(validFrame())

	for _, p := range Parameters {
		if _, err := s.Value(p); err != nil {
			t.Errorf("Value(%q) error = %v", p, err)
		}
	}

	v, _ := s.Value(ParamCurrentTemperature)
	if v != 60 {
		t.Errorf("Value(current temperature) = %v, want 60", v)
	}
	v, _ = s.Value(ParamAction)
	if v != ActionHeating {
		t.Errorf("Value(action) = %v, want heating", v)
	}
	if _, err := s.Value("bogus"); !IsValidationError(err) {
		t.Errorf("Value(bogus) error = %v, want validation error", err)
	}
}

func TestStatus_SetKeepWarmHours(t *testing.T) {
	s := Status{SetKeepWarmTime: 17}
	if got := s.SetKeepWarmHours(); got != 8.5 {
		t.Errorf("SetKeepWarmHours() = %v, want 8.5", got)
	}
}

func TestStatus_MarshalJSON(t *testing.T) {
	s, _ := DecodeStatus(validFrame())
	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	for _, want := range []string{
		`"action":"heating"`,
		`"mode":"boil"`,
		`"current_temperature":60`,
		`"extended_warm_up":"true"`,
		`"set_keep_warm_time":34`,
	} {
		if !strings.Contains(string(data), want) {
			t.Errorf("JSON %s missing %s", data, want)
		}
	}
}

func TestStatus_JSONRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		frame []byte
	}{
		{"heating", validFrame()},
		{"keeping warm", []byte{3, 2, 0, 0, 80, 79, 1, 0, 42, 1, 12}},
		{"unknown enums", []byte{7, 9, 0, 0, 50, 20, 5, 0, 0, 200, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want, err := DecodeStatus(tt.frame)
			if err != nil {
				t.Fatalf("DecodeStatus() error = %v", err)
			}
			data, err := json.Marshal(want)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}

			var got Status
			if err := json.Unmarshal(data, &got); err != nil {
				t.Fatalf("Unmarshal(%s) error = %v", data, err)
			}
			if got != want {
				t.Errorf("round trip = %v, want %v", got, want)
			}
		})
	}
}

func TestStatus_UnmarshalJSONRejectsUnknownLabel(t *testing.T) {
	tests := []string{
		`{"action":"boiling"}`,
		`{"mode":"unknown(256)"}`,
		`{"extended_warm_up":"yes"}`,
	}

	for _, input := range tests {
		var s Status
		if err := json.Unmarshal([]byte(input), &s); err == nil {
			t.Errorf("Unmarshal(%s) = %v, want error", input, s)
		}
	}
}

func TestEnumUnmarshalText(t *testing.T) {
	var a Action
	if err := a.UnmarshalText([]byte("keeping warm")); err != nil || a != ActionKeepingWarm {
		t.Errorf("Action.UnmarshalText() = %v, %v, want %v", a, err, ActionKeepingWarm)
	}
	var m Mode
	if err := m.UnmarshalText([]byte("unknown(9)")); err != nil || m != Mode(9) {
		t.Errorf("Mode.UnmarshalText() = %v, %v, want unknown(9)", m, err)
	}
	var e ExtendedWarmUp
	if err := e.UnmarshalText([]byte("false")); err != nil || e != ExtendedWarmUpOff {
		t.Errorf("ExtendedWarmUp.UnmarshalText() = %v, %v, want %v", e, err, ExtendedWarmUpOff)
	}
}
