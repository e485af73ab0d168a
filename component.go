package shl

import (
	"github.com/shl-go/shl/events"
	"github.com/shl-go/shl/protocol"
)

// Component is a bridge-maintained grouping of devices. Its state is
// opaque to the client, so the stream carries raw payloads.
type Component struct {
	id       int
	compType int
	name     string

	states *events.Stream[map[string]any]
}

func newComponent(payload map[string]any) *Component {
	id, _ := protocol.Int(payload, "compId")
	compType, _ := protocol.Int(payload, "compType")
	name, _ := protocol.String(payload, "name")
	return &Component{
		id:       id,
		compType: compType,
		name:     name,
		states:   events.NewStream[map[string]any](),
	}
}

// ID returns the bridge-assigned component identifier.
func (c *Component) ID() int { return c.id }

// CompType returns the component type code.
func (c *Component) CompType() int { return c.compType }

// Name returns the human-readable component name.
func (c *Component) Name() string { return c.name }

// States is the component's raw payload stream.
func (c *Component) States() *events.Stream[map[string]any] { return c.states }

func (c *Component) applyState(payload map[string]any) {
	c.states.Publish(payload)
}
