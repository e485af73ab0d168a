package mqtt

import "testing"

func TestTopicsDefaultBase(t *testing.T) {
	topics := Topics{}

	tests := []struct {
		got  string
		want string
	}{
		{topics.BridgeStatus(), "shl/bridge/status"},
		{topics.LightState(7), "shl/light/7/state"},
		{topics.LightSet(7), "shl/light/7/set"},
		{topics.LightBrightnessSet(7), "shl/light/7/brightness/set"},
		{topics.ShadeSet(12), "shl/shade/12/set"},
		{topics.SensorState(20), "shl/sensor/20/state"},
		{topics.RoomState(5), "shl/room/5/state"},
		{topics.RoomSetpointSet(5), "shl/room/5/setpoint/set"},
		{topics.RoomModeSet(5), "shl/room/5/mode/set"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("topic = %q, want %q", tt.got, tt.want)
		}
	}
}

func TestTopicsCustomBase(t *testing.T) {
	topics := Topics{Base: "home/floor1"}
	if got := topics.LightState(3); got != "home/floor1/light/3/state" {
		t.Errorf("LightState = %q", got)
	}
	if got := topics.BridgeStatus(); got != "home/floor1/bridge/status" {
		t.Errorf("BridgeStatus = %q", got)
	}
}
