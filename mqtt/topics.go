package mqtt

import "fmt"

// defaultBase is the topic prefix used when none is configured.
const defaultBase = "shl"

// Topics builds the topic tree the republisher uses.
//
// State topics are retained so new subscribers immediately see the
// current value; command topics are plain.
//
//	shl/bridge/status                  online/offline (retained, LWT)
//	shl/light/<id>/state               {"on":bool,"brightness":int}
//	shl/light/<id>/set                 ON | OFF
//	shl/light/<id>/brightness/set      0..99
//	shl/shade/<id>/set                 up | down | stop
//	shl/sensor/<id>/state              {"temperature":f,"humidity":f}
//	shl/room/<id>/state                room state JSON
//	shl/room/<id>/setpoint/set         float
//	shl/room/<id>/mode/set             cool | eco | comfort
type Topics struct {
	// Base overrides the topic prefix. Empty means "shl".
	Base string
}

func (t Topics) base() string {
	if t.Base == "" {
		return defaultBase
	}
	return t.Base
}

// BridgeStatus is the availability topic, also used as the LWT target.
func (t Topics) BridgeStatus() string {
	return t.base() + "/bridge/status"
}

// LightState is the retained state topic of a light.
func (t Topics) LightState(id int) string {
	return fmt.Sprintf("%s/light/%d/state", t.base(), id)
}

// LightSet is the on/off command topic of a light.
func (t Topics) LightSet(id int) string {
	return fmt.Sprintf("%s/light/%d/set", t.base(), id)
}

// LightBrightnessSet is the brightness command topic of a light.
func (t Topics) LightBrightnessSet(id int) string {
	return fmt.Sprintf("%s/light/%d/brightness/set", t.base(), id)
}

// ShadeSet is the movement command topic of a shade.
func (t Topics) ShadeSet(id int) string {
	return fmt.Sprintf("%s/shade/%d/set", t.base(), id)
}

// SensorState is the retained reading topic of an RcTouch sensor.
func (t Topics) SensorState(id int) string {
	return fmt.Sprintf("%s/sensor/%d/state", t.base(), id)
}

// RoomState is the retained state topic of a heated room.
func (t Topics) RoomState(id int) string {
	return fmt.Sprintf("%s/room/%d/state", t.base(), id)
}

// RoomSetpointSet is the target-temperature command topic of a room.
func (t Topics) RoomSetpointSet(id int) string {
	return fmt.Sprintf("%s/room/%d/setpoint/set", t.base(), id)
}

// RoomModeSet is the heating-mode command topic of a room.
func (t Topics) RoomModeSet(id int) string {
	return fmt.Sprintf("%s/room/%d/mode/set", t.base(), id)
}
