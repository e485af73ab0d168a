package shl

import (
	"sync"

	"github.com/shl-go/shl/events"
	"github.com/shl-go/shl/protocol"
)

// Mode is a room heating mode.
type Mode int

const (
	ModeCool    Mode = 1
	ModeEco     Mode = 2
	ModeComfort Mode = 3
)

func (m Mode) String() string {
	switch m {
	case ModeCool:
		return "cool"
	case ModeEco:
		return "eco"
	case ModeComfort:
		return "comfort"
	}
	return "unknown"
}

// Range returns the admissible setpoint bounds for the mode. Unknown
// modes get the eco range.
func (m Mode) Range() (min, max float64) {
	switch m {
	case ModeCool:
		return 5.0, 20.0
	case ModeComfort:
		return 18.0, 40.0
	}
	return 10.0, 30.0
}

// clamp bounds a setpoint to the mode's admissible range.
func (m Mode) clamp(setpoint float64) float64 {
	min, max := m.Range()
	if setpoint < min {
		return min
	}
	if setpoint > max {
		return max
	}
	return setpoint
}

// RctState is the room heater state.
type RctState int

const (
	RctIdle   RctState = 0
	RctActive RctState = 2
)

// defaultSetpoint is used when switching to a mode the bridge has
// never reported a setpoint for.
const defaultSetpoint = 20.0

// RoomState is one observed snapshot of a heated room. Setpoint,
// Temperature and Humidity are nil when the update did not carry them.
type RoomState struct {
	Setpoint    *float64
	Temperature *float64
	Humidity    *float64
	Power       float64
	Mode        Mode
	RctState    RctState
}

// Room is a heated zone with a mode, a setpoint, and per-mode setpoint
// memory fed from the bridge's modes array.
type Room struct {
	id     int
	name   string
	sender frameSender
	log    Logger

	mu        sync.Mutex
	setpoints map[Mode]float64

	states *events.Stream[RoomState]
}

func newRoom(payload map[string]any, sender frameSender, log Logger) *Room {
	id, _ := protocol.Int(payload, "roomId")
	name, _ := protocol.String(payload, "name")
	return &Room{
		id:        id,
		name:      name,
		sender:    sender,
		log:       log,
		setpoints: make(map[Mode]float64),
		states:    events.NewStream[RoomState](),
	}
}

// ID returns the bridge-assigned room identifier.
func (r *Room) ID() int { return r.id }

// Name returns the human-readable room name.
func (r *Room) Name() string { return r.name }

// States is the room's observable state stream.
func (r *Room) States() *events.Stream[RoomState] { return r.states }

// SetTargetTemperature changes the setpoint of the currently active
// mode. The value is clamped to the mode's range, remembered in the
// per-mode memory, and sent to the bridge.
func (r *Room) SetTargetTemperature(setpoint float64) error {
	state, ok := r.states.Latest()
	if !ok {
		return ErrNoObservedState
	}

	setpoint = state.Mode.clamp(setpoint)

	r.mu.Lock()
	r.setpoints[state.Mode] = setpoint
	r.mu.Unlock()

	return r.sendHeating(state.Mode, state.RctState, setpoint)
}

// SetMode switches the room to another heating mode, restoring the
// setpoint last seen for that mode.
func (r *Room) SetMode(mode Mode) error {
	state, ok := r.states.Latest()
	if !ok {
		return ErrNoObservedState
	}

	r.mu.Lock()
	setpoint, ok := r.setpoints[mode]
	r.mu.Unlock()
	if !ok {
		setpoint = defaultSetpoint
	}

	return r.sendHeating(mode, state.RctState, setpoint)
}

func (r *Room) sendHeating(mode Mode, state RctState, setpoint float64) error {
	return r.sender.sendFrame(protocol.MsgSetHeatingState, map[string]any{
		"roomId":    r.id,
		"mode":      int(mode),
		"state":     int(state),
		"setpoint":  setpoint,
		"confirmed": false,
	})
}

// applyState projects a room payload into a fresh RoomState. Updates
// replace the previous snapshot; only the per-mode setpoint memory is
// carried across.
func (r *Room) applyState(payload map[string]any) {
	state := RoomState{Mode: ModeEco, RctState: RctIdle}

	if v, ok := protocol.Float(payload, "setpoint"); ok {
		state.Setpoint = &v
	}
	if v, ok := protocol.Float(payload, "temp"); ok {
		state.Temperature = &v
	}
	if v, ok := protocol.Float(payload, "humidity"); ok {
		state.Humidity = &v
	}
	if v, ok := protocol.Float(payload, "power"); ok {
		state.Power = v
	}

	if v, ok := protocol.Int(payload, "currentMode"); ok {
		state.Mode = Mode(v)
	} else if v, ok := protocol.Int(payload, "mode"); ok {
		state.Mode = Mode(v)
	}
	if v, ok := protocol.Int(payload, "state"); ok {
		state.RctState = RctState(v)
	}

	if modes := protocol.Objects(payload, "modes"); len(modes) > 0 {
		r.mu.Lock()
		for _, entry := range modes {
			mode, ok := protocol.Int(entry, "mode")
			if !ok {
				continue
			}
			if value, ok := protocol.Float(entry, "value"); ok {
				r.setpoints[Mode(mode)] = value
			}
		}
		r.mu.Unlock()
	}

	r.states.Publish(state)
}

// setpointFor returns the remembered setpoint for a mode.
func (r *Room) setpointFor(mode Mode) (float64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.setpoints[mode]
	return v, ok
}
