// Package connection implements the encrypted transport of the bridge
// protocol: the session handshake and the framed send/receive paths
// that sit between the WebSocket and the JSON envelopes.
package connection

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/shl-go/shl/internal/crypto"
	"github.com/shl-go/shl/protocol"
)

// messageBuffer is the depth of the inbound envelope channel. The
// dispatcher normally drains it faster than the bridge produces, the
// buffer only absorbs bursts around SET_ALL_DATA.
const messageBuffer = 64

const writeTimeout = 10 * time.Second

// Stats are cumulative counters for one connection.
type Stats struct {
	FramesSent     uint64
	FramesReceived uint64
	AcksSent       uint64
	FramesDropped  uint64
}

// SecureConnection is an established, encrypted session with the
// bridge. It owns the WebSocket, the AES session material, and the
// client message counter. All sends are serialised through a single
// mutex so the counter and the wire order agree.
type SecureConnection struct {
	conn    *websocket.Conn
	session crypto.Session
	log     Logger

	// DeviceID is the bridge-assigned identifier from the first server
	// frame. Token is the session token from the login exchange.
	DeviceID string
	Token    string

	sendMu sync.Mutex
	mc     int

	messages chan protocol.Envelope

	closeOnce sync.Once
	done      chan struct{}

	framesSent     atomic.Uint64
	framesReceived atomic.Uint64
	acksSent       atomic.Uint64
	framesDropped  atomic.Uint64
}

func newSecureConnection(conn *websocket.Conn, session crypto.Session, deviceID string, log Logger) *SecureConnection {
	return &SecureConnection{
		conn:     conn,
		session:  session,
		log:      log,
		DeviceID: deviceID,
		messages: make(chan protocol.Envelope, messageBuffer),
		done:     make(chan struct{}),
	}
}

// Messages is the stream of inbound payload-carrying envelopes. It is
// closed when the pump exits.
func (c *SecureConnection) Messages() <-chan protocol.Envelope {
	return c.messages
}

// Stats returns a snapshot of the connection counters.
func (c *SecureConnection) Stats() Stats {
	return Stats{
		FramesSent:     c.framesSent.Load(),
		FramesReceived: c.framesReceived.Load(),
		AcksSent:       c.acksSent.Load(),
		FramesDropped:  c.framesDropped.Load(),
	}
}

// SendMessage assigns the next counter value to a new envelope and
// transmits it encrypted. The counter increment and the write happen
// under one lock so concurrent senders cannot reorder.
func (c *SecureConnection) SendMessage(t protocol.MessageType, payload map[string]any) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	c.mc++
	return c.writeEnvelope(protocol.NewEnvelope(t, c.mc, payload))
}

// SendRaw transmits an envelope encrypted without touching the
// counter. Used for ACK frames.
func (c *SecureConnection) SendRaw(e protocol.Envelope) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	return c.writeEnvelope(e)
}

// writeEnvelope must be called with sendMu held.
func (c *SecureConnection) writeEnvelope(e protocol.Envelope) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	data, err := e.Encode()
	if err != nil {
		return fmt.Errorf("connection: encode frame: %w", err)
	}
	frame, err := c.session.EncryptFrame(data)
	if err != nil {
		return fmt.Errorf("connection: encrypt frame: %w", err)
	}

	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return fmt.Errorf("connection: write frame: %w", err)
	}
	c.framesSent.Add(1)
	logDebug(c.log, "frame sent", "type", e.Type.String())
	return nil
}

// Pump drives the receive loop until the socket closes, the context is
// cancelled, or Close is called. On entry it sends the three priming
// frames the bridge expects before it starts streaming state.
//
// Every inbound frame carrying a counter is acknowledged before the
// next read. Envelopes with a payload are delivered on Messages; the
// channel is closed when the pump returns.
func (c *SecureConnection) Pump(ctx context.Context) error {
	defer close(c.messages)

	for _, t := range []protocol.MessageType{
		protocol.MsgQuerySessionState,
		protocol.MsgQueryCatalogue,
		protocol.MsgLoginRequest,
	} {
		if err := c.SendMessage(t, map[string]any{}); err != nil {
			return fmt.Errorf("connection: priming frame %s: %w", t, err)
		}
	}

	// Unblock the read when the caller cancels.
	stop := context.AfterFunc(ctx, func() { c.Close() })
	defer stop()

	for {
		// ReadMessage reassembles continuation fragments, so a whole
		// frame arrives in one call even when the bridge splits it.
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			return fmt.Errorf("connection: read frame: %w", err)
		}

		plaintext, err := c.session.DecryptFrame(frame)
		if err != nil {
			logWarn(c.log, "dropping undecryptable frame", "error", err)
			c.framesDropped.Add(1)
			continue
		}
		if len(plaintext) == 0 || string(plaintext) == "{}" {
			continue
		}

		env, err := protocol.Decode(plaintext)
		if err != nil {
			logWarn(c.log, "dropping malformed frame", "error", err)
			c.framesDropped.Add(1)
			continue
		}
		c.framesReceived.Add(1)

		if mc, ok := env.Counter(); ok && mc >= 0 {
			if err := c.SendRaw(protocol.NewAck(mc)); err != nil {
				return fmt.Errorf("connection: ack %d: %w", mc, err)
			}
			c.acksSent.Add(1)
		}

		if env.Payload == nil {
			logDebug(c.log, "frame without payload", "type", env.Type.String())
			continue
		}

		select {
		case c.messages <- env:
		case <-c.done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close shuts the connection down. It attempts a graceful WebSocket
// closure and is safe to call from any goroutine, any number of times.
func (c *SecureConnection) Close() {
	c.closeOnce.Do(func() {
		close(c.done)

		c.sendMu.Lock()
		defer c.sendMu.Unlock()

		deadline := time.Now().Add(time.Second)
		c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		c.conn.Close()
		logInfo(c.log, "connection closed", "device_id", c.DeviceID)
	})
}
