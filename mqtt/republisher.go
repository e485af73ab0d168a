package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"

	shl "github.com/shl-go/shl"
	"github.com/shl-go/shl/events"
)

// Republisher mirrors the bridge catalogue onto MQTT: every light,
// sensor, and room gets a retained state topic, and command topics for
// lights, shades, and rooms feed back into the corresponding entity
// methods. Shades have no state topic.
//
// Entities are attached from the catalogue as it stands once the
// bridge reports ready; the catalogue survives bridge reconnects, so
// the attachments do too.
type Republisher struct {
	bridge *shl.Bridge
	client *Client
	topics Topics
	qos    byte
	log    Logger
}

// NewRepublisher wires a bridge to a connected broker client.
func NewRepublisher(bridge *shl.Bridge, client *Client, log Logger) *Republisher {
	return &Republisher{
		bridge: bridge,
		client: client,
		topics: client.topics,
		qos:    byte(client.cfg.QoS),
		log:    log,
	}
}

// Run attaches every catalogue entity and blocks until the context
// ends. The bridge must be running; Run waits for its initialization.
func (r *Republisher) Run(ctx context.Context) error {
	devices, err := r.bridge.GetDevices(ctx)
	if err != nil {
		return fmt.Errorf("mqtt: republisher: %w", err)
	}
	rooms, err := r.bridge.GetRooms(ctx)
	if err != nil {
		return fmt.Errorf("mqtt: republisher: %w", err)
	}

	var wg sync.WaitGroup
	for _, device := range devices {
		switch dev := device.(type) {
		case *shl.Light:
			r.attachLight(ctx, &wg, dev)
		case *shl.Shade:
			r.attachShade(dev)
		case *shl.RcTouch:
			r.attachSensor(ctx, &wg, dev)
		}
	}
	for _, room := range rooms {
		r.attachRoom(ctx, &wg, room)
	}

	<-ctx.Done()
	wg.Wait()
	return nil
}

type lightPayload struct {
	On         bool `json:"on"`
	Brightness int  `json:"brightness"`
}

type sensorPayload struct {
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
}

type roomPayload struct {
	Mode        string   `json:"mode"`
	Setpoint    *float64 `json:"setpoint"`
	Temperature *float64 `json:"temperature"`
	Humidity    *float64 `json:"humidity"`
	Power       float64  `json:"power"`
	Active      bool     `json:"active"`
}

func (r *Republisher) attachLight(ctx context.Context, wg *sync.WaitGroup, light *shl.Light) {
	id := light.ID()

	republishLoop(ctx, wg, r, light.States(), func(state shl.LightState) (string, any) {
		return r.topics.LightState(id), lightPayload{On: state.On, Brightness: state.Dimm}
	})

	r.subscribe(r.topics.LightSet(id), func(_ string, payload []byte) error {
		on, err := parseOnOff(string(payload))
		if err != nil {
			return err
		}
		return light.Switch(on)
	})
	if light.Dimmable() {
		r.subscribe(r.topics.LightBrightnessSet(id), func(_ string, payload []byte) error {
			value, err := strconv.Atoi(strings.TrimSpace(string(payload)))
			if err != nil {
				return fmt.Errorf("mqtt: brightness %q: %w", payload, err)
			}
			return light.Dim(value)
		})
	}
}

func (r *Republisher) attachShade(shade *shl.Shade) {
	r.subscribe(r.topics.ShadeSet(shade.ID()), func(_ string, payload []byte) error {
		switch strings.ToLower(strings.TrimSpace(string(payload))) {
		case "up", "open":
			return shade.MoveUp()
		case "down", "close":
			return shade.MoveDown()
		case "stop":
			return shade.Stop()
		}
		return fmt.Errorf("mqtt: unknown shade command %q", payload)
	})
}

func (r *Republisher) attachSensor(ctx context.Context, wg *sync.WaitGroup, sensor *shl.RcTouch) {
	id := sensor.ID()
	republishLoop(ctx, wg, r, sensor.States(), func(state shl.RcTouchState) (string, any) {
		return r.topics.SensorState(id), sensorPayload{
			Temperature: state.Temperature,
			Humidity:    state.Humidity,
		}
	})
}

func (r *Republisher) attachRoom(ctx context.Context, wg *sync.WaitGroup, room *shl.Room) {
	id := room.ID()

	republishLoop(ctx, wg, r, room.States(), func(state shl.RoomState) (string, any) {
		return r.topics.RoomState(id), roomPayload{
			Mode:        state.Mode.String(),
			Setpoint:    state.Setpoint,
			Temperature: state.Temperature,
			Humidity:    state.Humidity,
			Power:       state.Power,
			Active:      state.RctState == shl.RctActive,
		}
	})

	r.subscribe(r.topics.RoomSetpointSet(id), func(_ string, payload []byte) error {
		setpoint, err := strconv.ParseFloat(strings.TrimSpace(string(payload)), 64)
		if err != nil {
			return fmt.Errorf("mqtt: setpoint %q: %w", payload, err)
		}
		return room.SetTargetTemperature(setpoint)
	})
	r.subscribe(r.topics.RoomModeSet(id), func(_ string, payload []byte) error {
		mode, err := parseMode(string(payload))
		if err != nil {
			return err
		}
		return room.SetMode(mode)
	})
}

// republishLoop forwards a state stream to a retained topic until the
// context ends.
func republishLoop[T any](ctx context.Context, wg *sync.WaitGroup, r *Republisher,
	stream *events.Stream[T], render func(T) (string, any)) {

	sub := stream.Subscribe()
	stop := context.AfterFunc(ctx, sub.Cancel)

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer stop()
		for state := range sub.C {
			topic, payload := render(state)
			data, err := json.Marshal(payload)
			if err != nil {
				continue
			}
			if err := r.client.PublishRetained(topic, data); err != nil && r.log != nil {
				r.log.Warn("state publish failed", "topic", topic, "error", err)
			}
		}
	}()
}

func (r *Republisher) subscribe(topic string, handler MessageHandler) {
	if err := r.client.Subscribe(topic, r.qos, handler); err != nil && r.log != nil {
		r.log.Warn("command subscribe failed", "topic", topic, "error", err)
	}
}

func parseOnOff(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "true", "1":
		return true, nil
	case "off", "false", "0":
		return false, nil
	}
	return false, fmt.Errorf("mqtt: unknown switch command %q", s)
}

func parseMode(s string) (shl.Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cool", "1":
		return shl.ModeCool, nil
	case "eco", "2":
		return shl.ModeEco, nil
	case "comfort", "3":
		return shl.ModeComfort, nil
	}
	return 0, fmt.Errorf("mqtt: unknown mode %q", s)
}
