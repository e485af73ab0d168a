package shl

import (
	"testing"
	"time"

	"github.com/shl-go/shl/protocol"
)

// fakeSender records every frame an entity issues.
type fakeSender struct {
	frames []sentFrame
}

type sentFrame struct {
	typ     protocol.MessageType
	payload map[string]any
}

func (f *fakeSender) sendFrame(t protocol.MessageType, payload map[string]any) error {
	f.frames = append(f.frames, sentFrame{typ: t, payload: payload})
	return nil
}

func (f *fakeSender) last(t *testing.T) sentFrame {
	t.Helper()
	if len(f.frames) == 0 {
		t.Fatal("no frame sent")
	}
	return f.frames[len(f.frames)-1]
}

func lightFixture(dimmable bool) (*Light, *fakeSender) {
	sender := &fakeSender{}
	d := newDevice(map[string]any{
		"deviceId": float64(7),
		"name":     "Kitchen",
		"devType":  float64(DevTypeLightDimmer),
		"compId":   float64(3),
		"dimmable": dimmable,
	}, sender, nil)
	return d.(*Light), sender
}

func latestLight(t *testing.T, l *Light) LightState {
	t.Helper()
	s, ok := l.States().Latest()
	if !ok {
		t.Fatal("no light state observed")
	}
	return s
}

func TestNewDeviceClassification(t *testing.T) {
	sender := &fakeSender{}
	tests := []struct {
		devType int
		want    string
	}{
		{DevTypeLightSwitch, "*shl.Light"},
		{DevTypeLightDimmer, "*shl.Light"},
		{DevTypeShade, "*shl.Shade"},
		{DevTypeHeater, "*shl.Heater"},
		{DevTypeRcTouch, "*shl.RcTouch"},
		{999, "*shl.Generic"},
	}
	for _, tt := range tests {
		d := newDevice(map[string]any{
			"deviceId": float64(1),
			"devType":  float64(tt.devType),
		}, sender, nil)
		var got string
		switch d.(type) {
		case *Light:
			got = "*shl.Light"
		case *Shade:
			got = "*shl.Shade"
		case *Heater:
			got = "*shl.Heater"
		case *RcTouch:
			got = "*shl.RcTouch"
		case *Generic:
			got = "*shl.Generic"
		}
		if got != tt.want {
			t.Errorf("devType %d built %s, want %s", tt.devType, got, tt.want)
		}
	}
}

func TestDeviceIdentity(t *testing.T) {
	l, _ := lightFixture(true)
	if l.ID() != 7 || l.Name() != "Kitchen" || l.DevType() != DevTypeLightDimmer || l.CompID() != 3 {
		t.Errorf("identity = (%d, %q, %d, %d)", l.ID(), l.Name(), l.DevType(), l.CompID())
	}
	if !l.Dimmable() {
		t.Error("Dimmable() = false for a dimmer fixture")
	}
}

func TestLightSwitchWireFormat(t *testing.T) {
	l, sender := lightFixture(true)
	if err := l.Switch(true); err != nil {
		t.Fatalf("Switch: %v", err)
	}
	f := sender.last(t)
	if f.typ != protocol.MsgActionSwitchDevice {
		t.Errorf("type = %s, want %s", f.typ, protocol.MsgActionSwitchDevice)
	}
	if f.payload["deviceId"] != 7 || f.payload["switch"] != true {
		t.Errorf("payload = %v", f.payload)
	}
}

func TestLightDimClamps(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{-5, 0},
		{0, 0},
		{50, 50},
		{99, 99},
		{120, 99},
	}
	for _, tt := range tests {
		l, sender := lightFixture(true)
		if err := l.Dim(tt.in); err != nil {
			t.Fatalf("Dim(%d): %v", tt.in, err)
		}
		f := sender.last(t)
		if f.typ != protocol.MsgActionSlideDevice {
			t.Errorf("type = %s, want %s", f.typ, protocol.MsgActionSlideDevice)
		}
		if f.payload["dimmvalue"] != tt.want {
			t.Errorf("Dim(%d) sent dimmvalue %v, want %d", tt.in, f.payload["dimmvalue"], tt.want)
		}
	}
}

func TestLightStateProjection(t *testing.T) {
	l, _ := lightFixture(true)

	// On with an explicit brightness.
	l.applyState(map[string]any{"switch": true, "dimmvalue": float64(40)})
	if got := latestLight(t, l); !got.On || got.Dimm != 40 {
		t.Errorf("state = %+v, want on at 40", got)
	}

	// Off: the brightness is preserved for the next switch-on.
	l.applyState(map[string]any{"switch": false})
	if got := latestLight(t, l); got.On || got.Dimm != 40 {
		t.Errorf("state = %+v, want off with dimm 40 preserved", got)
	}
}

func TestLightOnWithoutBrightnessDefaults(t *testing.T) {
	l, _ := lightFixture(true)
	l.applyState(map[string]any{"switch": true})
	if got := latestLight(t, l); !got.On || got.Dimm != 99 {
		t.Errorf("state = %+v, want on at 99", got)
	}
}

func TestLightOffBeforeAnyObservation(t *testing.T) {
	l, _ := lightFixture(true)
	l.applyState(map[string]any{"switch": false})
	if got := latestLight(t, l); got.On || got.Dimm != 99 {
		t.Errorf("state = %+v, want off with default dimm 99", got)
	}
}

func TestNonDimmableLightPinnedToFull(t *testing.T) {
	l, _ := lightFixture(false)
	l.applyState(map[string]any{"switch": true, "dimmvalue": float64(12)})
	if got := latestLight(t, l); got.Dimm != 99 {
		t.Errorf("dimm = %d, want 99 on a non-dimmable light", got.Dimm)
	}
}

func TestShadeCommands(t *testing.T) {
	sender := &fakeSender{}
	d := newDevice(map[string]any{
		"deviceId": float64(12),
		"devType":  float64(DevTypeShade),
	}, sender, nil)
	shade := d.(*Shade)

	tests := []struct {
		name string
		call func() error
		want int
	}{
		{"MoveDown", shade.MoveDown, 1},
		{"Stop", shade.Stop, 2},
		{"MoveUp", shade.MoveUp, 3},
	}
	for _, tt := range tests {
		if err := tt.call(); err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		f := sender.last(t)
		if f.typ != protocol.MsgSetDeviceShadingState {
			t.Errorf("%s type = %s, want %s", tt.name, f.typ, protocol.MsgSetDeviceShadingState)
		}
		if f.payload["deviceId"] != 12 || f.payload["state"] != tt.want {
			t.Errorf("%s payload = %v, want state %d", tt.name, f.payload, tt.want)
		}
	}
}

func TestRcTouchReadings(t *testing.T) {
	d := newDevice(map[string]any{
		"deviceId": float64(20),
		"devType":  float64(DevTypeRcTouch),
	}, &fakeSender{}, nil)
	rc := d.(*RcTouch)

	rc.applyState(map[string]any{
		"info": []any{
			map[string]any{"text": "1222", "value": "21.5"},
			map[string]any{"text": "1223", "value": "48"},
			map[string]any{"text": "9999", "value": "3"},
		},
	})

	state, ok := rc.States().Latest()
	if !ok {
		t.Fatal("no reading observed")
	}
	if state.Temperature != 21.5 {
		t.Errorf("Temperature = %v, want 21.5", state.Temperature)
	}
	if state.Humidity != 48 {
		t.Errorf("Humidity = %v, want 48", state.Humidity)
	}
}

func TestRcTouchNumericInfoValues(t *testing.T) {
	d := newDevice(map[string]any{
		"deviceId": float64(21),
		"devType":  float64(DevTypeRcTouch),
	}, &fakeSender{}, nil)
	rc := d.(*RcTouch)

	rc.applyState(map[string]any{
		"info": []any{
			map[string]any{"text": "1222", "value": float64(19.5)},
		},
	})
	state, _ := rc.States().Latest()
	if state.Temperature != 19.5 {
		t.Errorf("Temperature = %v, want 19.5", state.Temperature)
	}
}

func TestGenericAndHeaterRawStreams(t *testing.T) {
	for _, devType := range []int{DevTypeHeater, 777} {
		d := newDevice(map[string]any{
			"deviceId": float64(30),
			"devType":  float64(devType),
		}, &fakeSender{}, nil)

		payload := map[string]any{"anything": "goes"}
		d.applyState(payload)

		var latest map[string]any
		var ok bool
		switch v := d.(type) {
		case *Heater:
			latest, ok = v.States().Latest()
		case *Generic:
			latest, ok = v.States().Latest()
		}
		if !ok || latest["anything"] != "goes" {
			t.Errorf("devType %d raw stream latest = %v, %v", devType, latest, ok)
		}
	}
}

func TestLightStreamDelivers(t *testing.T) {
	l, _ := lightFixture(true)
	sub := l.States().Subscribe()
	defer sub.Cancel()

	l.applyState(map[string]any{"switch": true, "dimmvalue": float64(10)})

	select {
	case got := <-sub.C:
		if !got.On || got.Dimm != 10 {
			t.Errorf("delivered %+v, want on at 10", got)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for state delivery")
	}
}
