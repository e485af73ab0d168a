package shl

import (
	"errors"
	"testing"
)

func roomFixture() (*Room, *fakeSender) {
	sender := &fakeSender{}
	r := newRoom(map[string]any{
		"roomId": float64(5),
		"name":   "Living",
	}, sender, nil)
	return r, sender
}

func TestRoomIdentity(t *testing.T) {
	r, _ := roomFixture()
	if r.ID() != 5 || r.Name() != "Living" {
		t.Errorf("identity = (%d, %q)", r.ID(), r.Name())
	}
}

func TestRoomCommandsBeforeAnyState(t *testing.T) {
	r, sender := roomFixture()

	if err := r.SetTargetTemperature(21); !errors.Is(err, ErrNoObservedState) {
		t.Errorf("SetTargetTemperature = %v, want ErrNoObservedState", err)
	}
	if err := r.SetMode(ModeComfort); !errors.Is(err, ErrNoObservedState) {
		t.Errorf("SetMode = %v, want ErrNoObservedState", err)
	}
	if len(sender.frames) != 0 {
		t.Errorf("%d frames sent before any observed state", len(sender.frames))
	}
}

func TestSetTargetTemperatureWireFormat(t *testing.T) {
	r, sender := roomFixture()
	r.applyState(map[string]any{"currentMode": float64(ModeComfort), "state": float64(RctActive)})

	if err := r.SetTargetTemperature(22.5); err != nil {
		t.Fatalf("SetTargetTemperature: %v", err)
	}

	f := sender.last(t)
	want := map[string]any{
		"roomId":    5,
		"mode":      int(ModeComfort),
		"state":     int(RctActive),
		"setpoint":  22.5,
		"confirmed": false,
	}
	for k, v := range want {
		if f.payload[k] != v {
			t.Errorf("payload[%s] = %v, want %v", k, f.payload[k], v)
		}
	}
}

func TestSetTargetTemperatureClampsToModeRange(t *testing.T) {
	tests := []struct {
		mode Mode
		in   float64
		want float64
	}{
		{ModeCool, 25, 20},
		{ModeCool, 2, 5},
		{ModeEco, 35, 30},
		{ModeEco, 8, 10},
		{ModeComfort, 45, 40},
		{ModeComfort, 15, 18},
		{ModeComfort, 21, 21},
	}
	for _, tt := range tests {
		r, sender := roomFixture()
		r.applyState(map[string]any{"currentMode": float64(tt.mode)})

		if err := r.SetTargetTemperature(tt.in); err != nil {
			t.Fatalf("%s SetTargetTemperature(%v): %v", tt.mode, tt.in, err)
		}
		if got := sender.last(t).payload["setpoint"]; got != tt.want {
			t.Errorf("%s setpoint(%v) sent %v, want %v", tt.mode, tt.in, got, tt.want)
		}
		if got, ok := r.setpointFor(tt.mode); !ok || got != tt.want {
			t.Errorf("%s memory = %v, %v; want %v", tt.mode, got, ok, tt.want)
		}
	}
}

func TestSetModeRestoresRememberedSetpoint(t *testing.T) {
	r, sender := roomFixture()
	r.applyState(map[string]any{"currentMode": float64(ModeComfort)})

	if err := r.SetTargetTemperature(24); err != nil {
		t.Fatalf("SetTargetTemperature: %v", err)
	}
	r.applyState(map[string]any{"currentMode": float64(ModeEco)})

	if err := r.SetMode(ModeComfort); err != nil {
		t.Fatalf("SetMode: %v", err)
	}
	f := sender.last(t)
	if f.payload["mode"] != int(ModeComfort) || f.payload["setpoint"] != 24.0 {
		t.Errorf("payload = %v, want comfort at 24", f.payload)
	}
}

func TestSetModeWithoutMemoryUsesDefault(t *testing.T) {
	r, sender := roomFixture()
	r.applyState(map[string]any{"currentMode": float64(ModeEco)})

	if err := r.SetMode(ModeCool); err != nil {
		t.Fatalf("SetMode: %v", err)
	}
	if got := sender.last(t).payload["setpoint"]; got != 20.0 {
		t.Errorf("setpoint = %v, want the 20.0 default", got)
	}
}

func TestRoomStateProjection(t *testing.T) {
	r, _ := roomFixture()
	r.applyState(map[string]any{
		"setpoint":    float64(21.5),
		"temp":        float64(20.1),
		"humidity":    float64(44),
		"power":       float64(60),
		"currentMode": float64(ModeComfort),
		"state":       float64(RctActive),
	})

	state, ok := r.States().Latest()
	if !ok {
		t.Fatal("no state observed")
	}
	if state.Setpoint == nil || *state.Setpoint != 21.5 {
		t.Errorf("Setpoint = %v, want 21.5", state.Setpoint)
	}
	if state.Temperature == nil || *state.Temperature != 20.1 {
		t.Errorf("Temperature = %v, want 20.1", state.Temperature)
	}
	if state.Humidity == nil || *state.Humidity != 44 {
		t.Errorf("Humidity = %v, want 44", state.Humidity)
	}
	if state.Power != 60 {
		t.Errorf("Power = %v, want 60", state.Power)
	}
	if state.Mode != ModeComfort || state.RctState != RctActive {
		t.Errorf("Mode/RctState = %v/%v", state.Mode, state.RctState)
	}
}

func TestRoomStateDefaultsAndSparseUpdates(t *testing.T) {
	r, _ := roomFixture()
	r.applyState(map[string]any{})

	state, _ := r.States().Latest()
	if state.Mode != ModeEco || state.RctState != RctIdle {
		t.Errorf("defaults = %v/%v, want eco/idle", state.Mode, state.RctState)
	}
	if state.Setpoint != nil || state.Temperature != nil || state.Humidity != nil {
		t.Error("sparse update reported values it did not carry")
	}
}

func TestRoomModeFallsBackToModeField(t *testing.T) {
	r, _ := roomFixture()
	r.applyState(map[string]any{"mode": float64(ModeCool)})
	if state, _ := r.States().Latest(); state.Mode != ModeCool {
		t.Errorf("Mode = %v, want cool", state.Mode)
	}
}

func TestRoomModesArraySeedsMemory(t *testing.T) {
	r, sender := roomFixture()
	r.applyState(map[string]any{
		"currentMode": float64(ModeEco),
		"modes": []any{
			map[string]any{"mode": float64(ModeCool), "value": float64(16)},
			map[string]any{"mode": float64(ModeComfort), "value": float64(23)},
			map[string]any{"value": float64(99)},
		},
	})

	if v, ok := r.setpointFor(ModeCool); !ok || v != 16 {
		t.Errorf("cool memory = %v, %v; want 16", v, ok)
	}
	if v, ok := r.setpointFor(ModeComfort); !ok || v != 23 {
		t.Errorf("comfort memory = %v, %v; want 23", v, ok)
	}

	if err := r.SetMode(ModeComfort); err != nil {
		t.Fatalf("SetMode: %v", err)
	}
	if got := sender.last(t).payload["setpoint"]; got != 23.0 {
		t.Errorf("setpoint = %v, want the seeded 23", got)
	}
}

func TestModeStrings(t *testing.T) {
	tests := []struct {
		mode Mode
		want string
	}{
		{ModeCool, "cool"},
		{ModeEco, "eco"},
		{ModeComfort, "comfort"},
		{Mode(9), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.mode.String(); got != tt.want {
			t.Errorf("Mode(%d).String() = %q, want %q", tt.mode, got, tt.want)
		}
	}
}

func TestUnknownModeRange(t *testing.T) {
	min, max := Mode(9).Range()
	if min != 10 || max != 30 {
		t.Errorf("unknown mode range = [%v, %v], want eco's [10, 30]", min, max)
	}
}
