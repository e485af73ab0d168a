// Package shl is a client library for an unofficial home-automation
// bridge speaking an encrypted JSON-over-WebSocket protocol. It
// establishes the secure session, keeps a live catalogue of devices,
// components and heated rooms, republishes their state on observable
// streams, and translates entity commands back into protocol frames.
//
// A Bridge reconnects indefinitely: transport failures are logged and
// retried after a delay, and the catalogue survives reconnects so
// subscribers keep their streams across sessions.
package shl

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/shl-go/shl/internal/connection"
	"github.com/shl-go/shl/protocol"
)

// initPollInterval is the cadence WaitForInitialization checks the
// lifecycle state at.
const initPollInterval = 100 * time.Millisecond

// Bridge is the supervisor and single public entry point. Construct
// with New, start with Run, stop with Close.
type Bridge struct {
	url              string
	authKey          string
	log              Logger
	reconnectDelay   time.Duration
	handshakeTimeout time.Duration
	dialer           *websocket.Dialer

	mu      sync.RWMutex
	state   State
	conn    *connection.SecureConnection
	devices map[int]Device
	comps   map[int]*Component
	rooms   map[int]*Room
	cancel  context.CancelFunc
}

// New builds a bridge client for the given host (ip, ip:port, or a
// full ws:// URL) and the auth key provisioned by the bridge owner.
// Nothing is dialled until Run.
func New(host, authKey string, opts ...Option) *Bridge {
	url := host
	if !strings.Contains(url, "://") {
		url = "ws://" + url + "/"
	}

	b := &Bridge{
		url:              url,
		authKey:          authKey,
		reconnectDelay:   defaultReconnectDelay,
		handshakeTimeout: defaultHandshakeTimeout,
		devices:          make(map[int]Device),
		comps:            make(map[int]*Component),
		rooms:            make(map[int]*Room),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// State returns the current lifecycle state.
func (b *Bridge) State() State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

// Run connects to the bridge and services it until Close or context
// cancellation, reconnecting after every failure. It blocks; start it
// in its own goroutine. Calling Run while it is already active (or
// while closing) returns ErrInvalidRunState.
func (b *Bridge) Run(ctx context.Context) error {
	b.mu.Lock()
	if b.state != StateUninitialized {
		b.mu.Unlock()
		return ErrInvalidRunState
	}
	b.state = StateInitializing
	ctx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	b.mu.Unlock()

	defer func() {
		cancel()
		b.mu.Lock()
		b.state = StateUninitialized
		b.cancel = nil
		b.mu.Unlock()
	}()

	for {
		err := b.runOnce(ctx)

		if ctx.Err() != nil || b.State() == StateClosing {
			return nil
		}
		logError(b.log, "session ended, reconnecting",
			"error", err, "delay", b.reconnectDelay)

		select {
		case <-time.After(b.reconnectDelay):
		case <-ctx.Done():
			return nil
		}
	}
}

// runOnce performs one handshake and services the resulting connection
// until it fails or is cancelled.
func (b *Bridge) runOnce(ctx context.Context) error {
	sc, err := connection.Establish(ctx, connection.Config{
		URL:              b.url,
		AuthKey:          b.authKey,
		Dialer:           b.dialer,
		HandshakeTimeout: b.handshakeTimeout,
		Logger:           b.log,
	})
	if err != nil {
		return err
	}

	b.mu.Lock()
	b.conn = sc
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		if b.conn == sc {
			b.conn = nil
		}
		b.mu.Unlock()
		sc.Close()
	}()

	dispatched := make(chan struct{})
	go func() {
		defer close(dispatched)
		for env := range sc.Messages() {
			b.dispatch(env)
		}
	}()

	err = sc.Pump(ctx)
	<-dispatched
	return err
}

// Close stops the bridge: the run loop is cancelled, the current
// connection is shut down, and the lifecycle state returns to
// uninitialized once Run exits. Safe to call more than once.
func (b *Bridge) Close() {
	b.mu.Lock()
	if b.state == StateClosing || b.state == StateUninitialized {
		b.mu.Unlock()
		return
	}
	b.state = StateClosing
	cancel := b.cancel
	sc := b.conn
	b.mu.Unlock()

	logInfo(b.log, "closing bridge")
	if cancel != nil {
		cancel()
	}
	if sc != nil {
		sc.Close()
	}
}

// WaitForInitialization blocks until the full catalogue has arrived
// and the bridge is ready, or the context ends.
func (b *Bridge) WaitForInitialization(ctx context.Context) error {
	ticker := time.NewTicker(initPollInterval)
	defer ticker.Stop()

	for {
		if b.State() == StateReady {
			return nil
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// GetDevices waits for initialization and returns a snapshot of the
// device catalogue keyed by device id.
func (b *Bridge) GetDevices(ctx context.Context) (map[int]Device, error) {
	if err := b.WaitForInitialization(ctx); err != nil {
		return nil, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[int]Device, len(b.devices))
	for id, d := range b.devices {
		out[id] = d
	}
	return out, nil
}

// GetRooms waits for initialization and returns a snapshot of the
// room catalogue keyed by room id.
func (b *Bridge) GetRooms(ctx context.Context) (map[int]*Room, error) {
	if err := b.WaitForInitialization(ctx); err != nil {
		return nil, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[int]*Room, len(b.rooms))
	for id, r := range b.rooms {
		out[id] = r
	}
	return out, nil
}

// GetComps waits for initialization and returns a snapshot of the
// component catalogue keyed by component id.
func (b *Bridge) GetComps(ctx context.Context) (map[int]*Component, error) {
	if err := b.WaitForInitialization(ctx); err != nil {
		return nil, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[int]*Component, len(b.comps))
	for id, c := range b.comps {
		out[id] = c
	}
	return out, nil
}

// Device looks a device up by id without waiting for initialization.
func (b *Bridge) Device(id int) (Device, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	d, ok := b.devices[id]
	return d, ok
}

// Room looks a room up by id without waiting for initialization.
func (b *Bridge) Room(id int) (*Room, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	r, ok := b.rooms[id]
	return r, ok
}

// Comp looks a component up by id without waiting for initialization.
func (b *Bridge) Comp(id int) (*Component, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	c, ok := b.comps[id]
	return c, ok
}

// ConnectionStats returns the counters of the current connection, or
// false when no connection exists.
func (b *Bridge) ConnectionStats() (connection.Stats, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.conn == nil {
		return connection.Stats{}, false
	}
	return b.conn.Stats(), true
}

// sendFrame issues a command frame on the current connection. Commands
// while disconnected are dropped.
func (b *Bridge) sendFrame(t protocol.MessageType, payload map[string]any) error {
	b.mu.RLock()
	sc := b.conn
	b.mu.RUnlock()

	if sc == nil {
		logDebug(b.log, "command dropped, not connected", "type", t.String())
		return nil
	}
	return sc.SendMessage(t, payload)
}
