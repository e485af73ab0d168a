package shl

import (
	"strconv"

	"github.com/shl-go/shl/events"
	"github.com/shl-go/shl/protocol"
)

// Device type codes as reported in the devType field.
const (
	DevTypeLightSwitch = 100
	DevTypeLightDimmer = 101
	DevTypeShade       = 102
	DevTypeHeater      = 440
	DevTypeRcTouch     = 450
)

// frameSender is the narrow handle entities hold on the bridge: just
// enough to issue commands, never ownership.
type frameSender interface {
	sendFrame(t protocol.MessageType, payload map[string]any) error
}

// Device is the common surface of every catalogue entry. Concrete
// devices are *Light, *Shade, *Heater, *RcTouch and *Generic; callers
// type-switch for the richer per-type API.
type Device interface {
	ID() int
	Name() string
	DevType() int
	CompID() int

	applyState(payload map[string]any)
}

// deviceCore carries the identity fields shared by every device kind.
type deviceCore struct {
	id      int
	name    string
	devType int
	compID  int
	sender  frameSender
	log     Logger
}

func (d *deviceCore) ID() int      { return d.id }
func (d *deviceCore) Name() string { return d.name }
func (d *deviceCore) DevType() int { return d.devType }
func (d *deviceCore) CompID() int  { return d.compID }

// newDevice classifies a catalogue payload by its devType code and
// builds the matching entity.
func newDevice(payload map[string]any, sender frameSender, log Logger) Device {
	id, _ := protocol.Int(payload, "deviceId")
	name, _ := protocol.String(payload, "name")
	devType, _ := protocol.Int(payload, "devType")
	compID, _ := protocol.Int(payload, "compId")

	core := deviceCore{id: id, name: name, devType: devType, compID: compID, sender: sender, log: log}

	switch devType {
	case DevTypeLightSwitch, DevTypeLightDimmer:
		dimmable, _ := protocol.Bool(payload, "dimmable")
		return &Light{
			deviceCore: core,
			dimmable:   dimmable,
			states:     events.NewStream[LightState](),
		}
	case DevTypeShade:
		return &Shade{deviceCore: core, states: events.NewStream[map[string]any]()}
	case DevTypeHeater:
		return &Heater{deviceCore: core, states: events.NewStream[map[string]any]()}
	case DevTypeRcTouch:
		return &RcTouch{deviceCore: core, states: events.NewStream[RcTouchState]()}
	}
	return &Generic{deviceCore: core, states: events.NewStream[map[string]any]()}
}

// LightState is the projected state of a Light.
type LightState struct {
	On bool

	// Dimm is the brightness in [0, 99]. While the light is off it
	// holds the last known brightness, so switching back on restores
	// the previous level.
	Dimm int
}

// defaultDimm is assumed when no brightness has ever been observed.
const defaultDimm = 99

// Light is a switchable, optionally dimmable device.
type Light struct {
	deviceCore
	dimmable bool

	states *events.Stream[LightState]
}

// Dimmable reports whether the light accepts brightness commands.
func (l *Light) Dimmable() bool { return l.dimmable }

// States is the light's observable state stream.
func (l *Light) States() *events.Stream[LightState] { return l.states }

// Switch turns the light on or off.
func (l *Light) Switch(on bool) error {
	return l.sender.sendFrame(protocol.MsgActionSwitchDevice, map[string]any{
		"deviceId": l.id,
		"switch":   on,
	})
}

// Dim sets the brightness. Values outside [0, 99] are clamped.
func (l *Light) Dim(value int) error {
	if value < 0 {
		value = 0
	}
	if value > 99 {
		value = 99
	}
	return l.sender.sendFrame(protocol.MsgActionSlideDevice, map[string]any{
		"deviceId":  l.id,
		"dimmvalue": value,
	})
}

func (l *Light) applyState(payload map[string]any) {
	on, _ := protocol.Bool(payload, "switch")

	dimm := defaultDimm
	switch {
	case !l.dimmable:
		// Non-dimmable lights are always reported at full brightness.
	case on:
		if v, ok := protocol.Int(payload, "dimmvalue"); ok {
			dimm = v
		}
	default:
		// Off: keep the last known brightness.
		if prev, ok := l.states.Latest(); ok {
			dimm = prev.Dimm
		}
	}

	l.states.Publish(LightState{On: on, Dimm: dimm})
}

// Shade command states on the wire.
const (
	shadeStateDown = 1
	shadeStateStop = 2
	shadeStateUp   = 3
)

// Shade is a motorised cover. The bridge reports no structured state
// for shades, so the stream carries the raw payloads.
type Shade struct {
	deviceCore

	states *events.Stream[map[string]any]
}

// States is the shade's raw payload stream.
func (s *Shade) States() *events.Stream[map[string]any] { return s.states }

// MoveDown starts closing the shade.
func (s *Shade) MoveDown() error { return s.move(shadeStateDown) }

// MoveUp starts opening the shade.
func (s *Shade) MoveUp() error { return s.move(shadeStateUp) }

// Stop halts the shade wherever it is.
func (s *Shade) Stop() error { return s.move(shadeStateStop) }

func (s *Shade) move(state int) error {
	return s.sender.sendFrame(protocol.MsgSetDeviceShadingState, map[string]any{
		"deviceId": s.id,
		"state":    state,
	})
}

func (s *Shade) applyState(payload map[string]any) {
	s.states.Publish(payload)
}

// Heater is a heating actuator; its state is opaque to the client.
type Heater struct {
	deviceCore

	states *events.Stream[map[string]any]
}

// States is the heater's raw payload stream.
func (h *Heater) States() *events.Stream[map[string]any] { return h.states }

func (h *Heater) applyState(payload map[string]any) {
	h.states.Publish(payload)
}

// Info entry codes reported by RcTouch sensors.
const (
	rcTouchInfoTemperature = "1222"
	rcTouchInfoHumidity    = "1223"
)

// RcTouchState is a temperature/humidity reading.
type RcTouchState struct {
	Temperature float64
	Humidity    float64
}

// RcTouch is a wall-mounted temperature and humidity sensor.
type RcTouch struct {
	deviceCore

	states *events.Stream[RcTouchState]
}

// States is the sensor's reading stream.
func (r *RcTouch) States() *events.Stream[RcTouchState] { return r.states }

func (r *RcTouch) applyState(payload map[string]any) {
	var state RcTouchState
	for _, entry := range protocol.Objects(payload, "info") {
		text, _ := protocol.String(entry, "text")
		switch text {
		case rcTouchInfoTemperature:
			state.Temperature = infoValue(entry)
		case rcTouchInfoHumidity:
			state.Humidity = infoValue(entry)
		}
	}
	r.states.Publish(state)
}

// infoValue reads the numeric value of an info entry. The bridge
// delivers these as strings, but numbers are tolerated too.
func infoValue(entry map[string]any) float64 {
	if s, ok := protocol.String(entry, "value"); ok {
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			return v
		}
		return 0
	}
	v, _ := protocol.Float(entry, "value")
	return v
}

// Generic covers device type codes the client has no model for.
type Generic struct {
	deviceCore

	states *events.Stream[map[string]any]
}

// States is the device's raw payload stream.
func (g *Generic) States() *events.Stream[map[string]any] { return g.states }

func (g *Generic) applyState(payload map[string]any) {
	g.states.Publish(payload)
}
