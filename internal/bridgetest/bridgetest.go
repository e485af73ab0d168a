// Package bridgetest provides a scripted in-process bridge server for
// tests: a WebSocket endpoint that speaks the full protocol, including
// the RSA/AES handshake, so clients can be exercised end to end.
package bridgetest

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/hex"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/shl-go/shl/internal/crypto"
	"github.com/shl-go/shl/protocol"
)

// Fixed identity the scripted bridge hands out.
const (
	DeviceID     = "dev-1"
	AuthKey      = "key"
	ConnectionID = 42
)

// Frame is one client frame as seen by the server.
type Frame struct {
	Type    protocol.MessageType
	MC      int
	HasMC   bool
	Payload map[string]any
}

// Server is a scripted bridge. The script function runs once per
// accepted WebSocket connection, on the server side; failures are
// reported with t.Errorf since scripts run off the test goroutine.
type Server struct {
	t      testing.TB
	server *httptest.Server

	priv   *rsa.PrivateKey
	pubPEM string

	// Per-connection state; the bridge protocol is one session per
	// socket and scripts run sequentially.
	conn    *websocket.Conn
	session crypto.Session
	secure  bool

	mu       sync.Mutex
	frames   []Frame
	sessions int
}

// New starts a scripted bridge server. The script is invoked for every
// accepted connection; the server shuts down with the test.
func New(t testing.TB, script func(s *Server)) *Server {
	t.Helper()

	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("bridgetest: generate RSA key: %v", err)
	}
	pubDER, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		t.Fatalf("bridgetest: marshal public key: %v", err)
	}

	s := &Server{
		t:      t,
		priv:   priv,
		pubPEM: string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})),
	}

	upgrader := websocket.Upgrader{}
	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("bridgetest: upgrade: %v", err)
			return
		}
		defer conn.Close()

		s.mu.Lock()
		s.sessions++
		s.mu.Unlock()

		s.conn = conn
		s.secure = false
		script(s)
	}))
	t.Cleanup(s.server.Close)
	return s
}

// URL is the ws:// endpoint of the server.
func (s *Server) URL() string {
	return "ws" + strings.TrimPrefix(s.server.URL, "http")
}

// PubPEM is the server's RSA public key in PEM form.
func (s *Server) PubPEM() string { return s.pubPEM }

// Sessions returns how many WebSocket connections have been accepted.
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions
}

// ClientFrames returns a snapshot of every recorded client frame, in
// arrival order across all connections.
func (s *Server) ClientFrames() []Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Frame, len(s.frames))
	copy(out, s.frames)
	return out
}

// Send writes a frame to the client, encrypting once the session key
// is installed.
func (s *Server) Send(e protocol.Envelope) {
	data, err := e.Encode()
	if err != nil {
		s.t.Errorf("bridgetest: encode: %v", err)
		return
	}
	if s.secure {
		data, err = s.session.EncryptFrame(data)
		if err != nil {
			s.t.Errorf("bridgetest: encrypt: %v", err)
			return
		}
	}
	if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		s.t.Errorf("bridgetest: write: %v", err)
	}
}

// Read consumes and records the next client frame. It returns false
// when the connection is gone.
func (s *Server) Read() (protocol.Envelope, bool) {
	_, frame, err := s.conn.ReadMessage()
	if err != nil {
		return protocol.Envelope{}, false
	}
	data := frame
	if s.secure {
		data, err = s.session.DecryptFrame(frame)
		if err != nil {
			s.t.Errorf("bridgetest: decrypt: %v", err)
			return protocol.Envelope{}, false
		}
	}
	env, err := protocol.Decode(data)
	if err != nil {
		s.t.Errorf("bridgetest: decode %q: %v", data, err)
		return protocol.Envelope{}, false
	}

	rec := Frame{Type: env.Type, Payload: env.Payload}
	if mc, ok := env.Counter(); ok {
		rec.MC = mc
		rec.HasMC = true
	}
	s.mu.Lock()
	s.frames = append(s.frames, rec)
	s.mu.Unlock()
	return env, true
}

// Expect reads the next client frame and checks its type.
func (s *Server) Expect(t protocol.MessageType) (protocol.Envelope, bool) {
	env, ok := s.Read()
	if !ok {
		s.t.Errorf("bridgetest: connection lost waiting for %s", t)
		return env, false
	}
	if env.Type != t {
		s.t.Errorf("bridgetest: got frame %s, want %s", env.Type, t)
		return env, false
	}
	return env, true
}

// ExpectAck reads the next client frame and checks it is an ACK
// referencing the given counter.
func (s *Server) ExpectAck(ref int) bool {
	env, ok := s.Expect(protocol.MsgAck)
	if !ok {
		return false
	}
	if env.Ref == nil || *env.Ref != ref {
		s.t.Errorf("bridgetest: ack ref = %v, want %d", env.Ref, ref)
		return false
	}
	return true
}

// ServeHandshake scripts the entire happy-path handshake, adopting the
// client's session key along the way.
func (s *Server) ServeHandshake() bool {
	s.Send(protocol.NewEnvelope(protocol.MsgConnectionStart, protocol.HandshakeCounter, map[string]any{
		"device_id":     DeviceID,
		"connection_id": ConnectionID,
	}))

	hello, ok := s.Expect(protocol.MsgConnectionHello)
	if !ok {
		return false
	}
	if ct, _ := protocol.String(hello.Payload, "client_type"); ct != "shl-app" {
		s.t.Errorf("bridgetest: hello client_type = %q, want shl-app", ct)
	}
	if id, _ := protocol.Int(hello.Payload, "connection_id"); id != ConnectionID {
		s.t.Errorf("bridgetest: hello connection_id = %d, want %d", id, ConnectionID)
	}
	s.Send(protocol.NewEnvelope(protocol.MsgConnectionAccepted, protocol.HandshakeCounter, nil))

	if _, ok := s.Expect(protocol.MsgSecureInit); !ok {
		return false
	}
	s.Send(protocol.NewEnvelope(protocol.MsgSecurePublicKey, protocol.HandshakeCounter, map[string]any{
		"public_key": s.pubPEM,
	}))

	keyFrame, ok := s.Expect(protocol.MsgSecureKey)
	if !ok || !s.InstallSession(keyFrame) {
		return false
	}
	s.Send(protocol.Envelope{Type: protocol.MsgSecureReady})

	login, ok := s.Expect(protocol.MsgLoginSubmit)
	if !ok {
		return false
	}
	salt, _ := protocol.String(login.Payload, "salt")
	password, _ := protocol.String(login.Payload, "password")
	if want := crypto.HashPassword(DeviceID, AuthKey, salt); password != want {
		s.t.Errorf("bridgetest: login password = %q, want %q", password, want)
	}
	s.Send(protocol.Envelope{Type: protocol.MsgLoginAccept, Payload: map[string]any{"token": "T1"}})

	if v, ok := s.Expect(protocol.MsgTokenValidate); !ok {
		return false
	} else if tok, _ := protocol.String(v.Payload, "token"); tok != "T1" {
		s.t.Errorf("bridgetest: first validate token = %q, want T1", tok)
	}
	s.Send(protocol.Envelope{Type: protocol.MsgTokenAccepted})

	if r, ok := s.Expect(protocol.MsgTokenRenew); !ok {
		return false
	} else if tok, _ := protocol.String(r.Payload, "token"); tok != "T1" {
		s.t.Errorf("bridgetest: renew token = %q, want T1", tok)
	}
	s.Send(protocol.Envelope{Type: protocol.MsgTokenRenewed, Payload: map[string]any{"token": "T2"}})

	if v, ok := s.Expect(protocol.MsgTokenValidate); !ok {
		return false
	} else if tok, _ := protocol.String(v.Payload, "token"); tok != "T2" {
		s.t.Errorf("bridgetest: second validate token = %q, want T2", tok)
	}
	s.Send(protocol.Envelope{Type: protocol.MsgTokenAccepted})

	return true
}

// InstallSession unwraps the RSA-wrapped secret from a SECURE_KEY
// frame and adopts the client's AES session.
func (s *Server) InstallSession(keyFrame protocol.Envelope) bool {
	secretB64, _ := protocol.String(keyFrame.Payload, "secret")
	wrapped, err := base64.StdEncoding.DecodeString(secretB64)
	if err != nil {
		s.t.Errorf("bridgetest: secret base64: %v", err)
		return false
	}
	secret, err := rsa.DecryptPKCS1v15(rand.Reader, s.priv, wrapped)
	if err != nil {
		s.t.Errorf("bridgetest: unwrap secret: %v", err)
		return false
	}
	parts := strings.Split(string(secret), ":::")
	if len(parts) != 2 {
		s.t.Errorf("bridgetest: secret %q not key:::iv", secret)
		return false
	}
	key, err1 := hex.DecodeString(parts[0])
	iv, err2 := hex.DecodeString(parts[1])
	if err1 != nil || err2 != nil {
		s.t.Errorf("bridgetest: secret hex: %v %v", err1, err2)
		return false
	}
	s.session = crypto.Session{Key: key, IV: iv}
	s.secure = true
	return true
}

// ServePriming consumes the three frames the receive pump sends when
// it starts.
func (s *Server) ServePriming() bool {
	for _, want := range []protocol.MessageType{
		protocol.MsgQuerySessionState,
		protocol.MsgQueryCatalogue,
		protocol.MsgLoginRequest,
	} {
		if _, ok := s.Expect(want); !ok {
			return false
		}
	}
	return true
}
