package connection

import (
	"context"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"github.com/shl-go/shl/internal/crypto"
	"github.com/shl-go/shl/protocol"
)

// Client identifiers the bridge expects in the hello frame. The bridge
// validates them literally, so they mirror the official app.
const (
	clientType    = "shl-app"
	clientID      = "c956e43f999f8004"
	clientVersion = "3.0.0"
)

const defaultHandshakeTimeout = 15 * time.Second

// loginUsername is fixed; the bridge authenticates on the hashed
// device/auth-key pair, not the username.
const loginUsername = "default"

// Config carries everything Establish needs to reach and authenticate
// with a bridge.
type Config struct {
	// URL is the WebSocket endpoint, e.g. "ws://192.168.1.50/".
	URL string

	// AuthKey is the shared secret provisioned by the bridge owner.
	AuthKey string

	// Dialer defaults to websocket.DefaultDialer.
	Dialer *websocket.Dialer

	// HandshakeTimeout bounds each read during the handshake.
	HandshakeTimeout time.Duration

	Logger Logger
}

// Establish dials the bridge and drives the full handshake: capability
// exchange, RSA key exchange, AES session installation, salted login,
// and token renewal. On success it returns a connection ready for
// Pump; on any failure the socket is closed.
func Establish(ctx context.Context, cfg Config) (*SecureConnection, error) {
	dialer := cfg.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	conn, _, err := dialer.DialContext(ctx, cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("connection: dial %s: %w", cfg.URL, err)
	}

	timeout := cfg.HandshakeTimeout
	if timeout <= 0 {
		timeout = defaultHandshakeTimeout
	}

	h := &handshake{conn: conn, log: cfg.Logger, authKey: cfg.AuthKey, timeout: timeout}
	sc, err := h.run()
	if err != nil {
		conn.Close()
		return nil, err
	}
	conn.SetReadDeadline(time.Time{})
	logInfo(cfg.Logger, "handshake complete", "device_id", sc.DeviceID)
	return sc, nil
}

// handshake is the strictly-sequenced connection setup: each step
// consumes exactly one server frame and either advances or fails.
// Before stepSecureKey completes, frames travel as plaintext JSON;
// afterwards everything is encrypted and writes go through the
// SecureConnection.
type handshake struct {
	conn    *websocket.Conn
	log     Logger
	authKey string
	timeout time.Duration

	// sc is set once the session key is installed. From then on read
	// decrypts and ACKs are sent encrypted.
	sc *SecureConnection

	deviceID     string
	connectionID int
}

func (h *handshake) run() (*SecureConnection, error) {
	if err := h.stepStart(); err != nil {
		return nil, err
	}
	if err := h.stepHello(); err != nil {
		return nil, err
	}
	publicKey, err := h.stepSecureInit()
	if err != nil {
		return nil, err
	}
	if err := h.stepSecureKey(publicKey); err != nil {
		return nil, err
	}
	if err := h.stepLogin(); err != nil {
		return nil, err
	}
	if err := h.stepTokens(); err != nil {
		return nil, err
	}
	return h.sc, nil
}

// stepStart consumes the unsolicited first server frame carrying the
// bridge's device id and the connection id to echo back.
func (h *handshake) stepStart() error {
	env, err := h.read()
	if err != nil {
		return err
	}
	if env.Type == protocol.MsgNack {
		info, _ := protocol.String(env.Payload, "info")
		return fmt.Errorf("%w: %s", ErrHandshakeRejected, info)
	}

	deviceID, ok := protocol.String(env.Payload, "device_id")
	if !ok {
		return fmt.Errorf("%w: first frame without device_id", ErrHandshakeProtocol)
	}
	connectionID, ok := protocol.Int(env.Payload, "connection_id")
	if !ok {
		return fmt.Errorf("%w: first frame without connection_id", ErrHandshakeProtocol)
	}
	h.deviceID = deviceID
	h.connectionID = connectionID
	return nil
}

// stepHello announces the client identity and waits for the bridge's
// verdict.
func (h *handshake) stepHello() error {
	err := h.writePlain(protocol.NewEnvelope(protocol.MsgConnectionHello, protocol.HandshakeCounter, map[string]any{
		"client_type":    clientType,
		"client_id":      clientID,
		"client_version": clientVersion,
		"connection_id":  h.connectionID,
	}))
	if err != nil {
		return err
	}

	env, err := h.read()
	if err != nil {
		return err
	}
	if env.Type == protocol.MsgConnectionDeclined {
		msg, _ := protocol.String(env.Payload, "error_message")
		return fmt.Errorf("%w: %s", ErrHandshakeRejected, msg)
	}
	return nil
}

// stepSecureInit asks for the bridge's RSA public key.
func (h *handshake) stepSecureInit() (string, error) {
	err := h.writePlain(protocol.NewEnvelope(protocol.MsgSecureInit, protocol.HandshakeCounter, nil))
	if err != nil {
		return "", err
	}

	env, err := h.read()
	if err != nil {
		return "", err
	}
	publicKey, ok := protocol.String(env.Payload, "public_key")
	if !ok {
		return "", fmt.Errorf("%w: got %s, want public key frame", ErrHandshakeProtocol, env.Type)
	}
	return publicKey, nil
}

// stepSecureKey generates the AES session, hands the RSA-wrapped
// secret to the bridge, and switches the channel to encrypted mode.
func (h *handshake) stepSecureKey(publicKey string) error {
	session, err := crypto.NewSession()
	if err != nil {
		return err
	}
	secret, err := session.WrapSecret(publicKey)
	if err != nil {
		return err
	}

	err = h.writePlain(protocol.NewEnvelope(protocol.MsgSecureKey, protocol.HandshakeCounter, map[string]any{
		"secret": secret,
	}))
	if err != nil {
		return err
	}

	// Everything after SECURE_KEY is encrypted, including the bridge's
	// SECURE_READY answer.
	h.sc = newSecureConnection(h.conn, session, h.deviceID, h.log)

	env, err := h.read()
	if err != nil {
		return err
	}
	if env.Type != protocol.MsgSecureReady {
		return fmt.Errorf("%w: got %s, want %s", ErrHandshakeProtocol, env.Type, protocol.MsgSecureReady)
	}
	return nil
}

// stepLogin submits the salted password hash and stores the issued
// token.
func (h *handshake) stepLogin() error {
	salt, err := crypto.NewSalt()
	if err != nil {
		return err
	}
	password := crypto.HashPassword(h.deviceID, h.authKey, salt)

	err = h.sc.SendMessage(protocol.MsgLoginSubmit, map[string]any{
		"username": loginUsername,
		"password": password,
		"salt":     salt,
	})
	if err != nil {
		return err
	}

	env, err := h.read()
	if err != nil {
		return err
	}
	if env.Type != protocol.MsgLoginAccept {
		return fmt.Errorf("%w: got %s, want %s", ErrHandshakeProtocol, env.Type, protocol.MsgLoginAccept)
	}
	token, ok := protocol.String(env.Payload, "token")
	if !ok {
		return fmt.Errorf("%w: login accept without token", ErrHandshakeProtocol)
	}
	h.sc.Token = token
	return nil
}

// stepTokens validates the login token, renews it, and validates the
// replacement, mirroring the official client's sequence.
func (h *handshake) stepTokens() error {
	err := h.sc.SendMessage(protocol.MsgTokenValidate, map[string]any{"token": h.sc.Token})
	if err != nil {
		return err
	}
	if _, err := h.read(); err != nil {
		return err
	}

	err = h.sc.SendMessage(protocol.MsgTokenRenew, map[string]any{"token": h.sc.Token})
	if err != nil {
		return err
	}
	env, err := h.read()
	if err != nil {
		return err
	}
	if env.Type != protocol.MsgTokenRenewed {
		return fmt.Errorf("%w: got %s, want %s", ErrHandshakeProtocol, env.Type, protocol.MsgTokenRenewed)
	}
	if token, ok := protocol.String(env.Payload, "token"); ok {
		h.sc.Token = token
	}

	err = h.sc.SendMessage(protocol.MsgTokenValidate, map[string]any{"token": h.sc.Token})
	if err != nil {
		return err
	}
	if _, err := h.read(); err != nil {
		return err
	}
	return nil
}

// read consumes the next meaningful server frame: empty keep-alive
// bodies are skipped and counter-carrying frames are acknowledged
// before the envelope is handed to the caller.
func (h *handshake) read() (protocol.Envelope, error) {
	for {
		h.conn.SetReadDeadline(time.Now().Add(h.timeout))
		_, frame, err := h.conn.ReadMessage()
		if err != nil {
			return protocol.Envelope{}, fmt.Errorf("connection: handshake read: %w", err)
		}

		data := frame
		if h.sc != nil {
			data, err = h.sc.session.DecryptFrame(frame)
			if err != nil {
				return protocol.Envelope{}, fmt.Errorf("connection: handshake decrypt: %w", err)
			}
		}
		if len(data) == 0 || string(data) == "{}" {
			continue
		}

		env, err := protocol.Decode(data)
		if err != nil {
			return protocol.Envelope{}, fmt.Errorf("connection: handshake decode: %w", err)
		}

		if mc, ok := env.Counter(); ok && mc >= 0 {
			if err := h.ack(mc); err != nil {
				return protocol.Envelope{}, err
			}
		}
		logDebug(h.log, "handshake frame", "type", env.Type.String())
		return env, nil
	}
}

func (h *handshake) ack(mc int) error {
	if h.sc != nil {
		return h.sc.SendRaw(protocol.NewAck(mc))
	}
	return h.writePlain(protocol.NewAck(mc))
}

func (h *handshake) writePlain(e protocol.Envelope) error {
	data, err := e.Encode()
	if err != nil {
		return fmt.Errorf("connection: encode handshake frame: %w", err)
	}
	h.conn.SetWriteDeadline(time.Now().Add(h.timeout))
	if err := h.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("connection: write handshake frame: %w", err)
	}
	return nil
}
