package shl

import (
	"time"

	"github.com/gorilla/websocket"
)

const (
	defaultReconnectDelay   = 5 * time.Second
	defaultHandshakeTimeout = 15 * time.Second
)

// Option customises a Bridge at construction time.
type Option func(*Bridge)

// WithLogger installs the logger the bridge reports events through.
// Without it the bridge is silent.
func WithLogger(l Logger) Option {
	return func(b *Bridge) { b.log = l }
}

// WithReconnectDelay overrides the pause between reconnect attempts.
func WithReconnectDelay(d time.Duration) Option {
	return func(b *Bridge) { b.reconnectDelay = d }
}

// WithHandshakeTimeout overrides the per-read timeout during the
// handshake.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(b *Bridge) { b.handshakeTimeout = d }
}

// WithDialer replaces the WebSocket dialer, e.g. to set a proxy or
// custom TLS configuration.
func WithDialer(d *websocket.Dialer) Option {
	return func(b *Bridge) { b.dialer = d }
}
