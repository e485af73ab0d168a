package connection

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shl-go/shl/internal/bridgetest"
	"github.com/shl-go/shl/protocol"
)

func testConfig(url string) Config {
	return Config{
		URL:              url,
		AuthKey:          bridgetest.AuthKey,
		HandshakeTimeout: 5 * time.Second,
	}
}

func TestEstablishHappyPath(t *testing.T) {
	hold := make(chan struct{})
	t.Cleanup(func() { close(hold) })

	m := bridgetest.New(t, func(s *bridgetest.Server) {
		if s.ServeHandshake() {
			<-hold
		}
	})

	sc, err := Establish(context.Background(), testConfig(m.URL()))
	if err != nil {
		t.Fatalf("Establish: %v", err)
	}
	defer sc.Close()

	if sc.DeviceID != bridgetest.DeviceID {
		t.Errorf("DeviceID = %q, want %q", sc.DeviceID, bridgetest.DeviceID)
	}
	if sc.Token != "T2" {
		t.Errorf("Token = %q, want T2", sc.Token)
	}

	want := []struct {
		typ protocol.MessageType
		mc  int
	}{
		{protocol.MsgConnectionHello, protocol.HandshakeCounter},
		{protocol.MsgSecureInit, protocol.HandshakeCounter},
		{protocol.MsgSecureKey, protocol.HandshakeCounter},
		{protocol.MsgLoginSubmit, 1},
		{protocol.MsgTokenValidate, 2},
		{protocol.MsgTokenRenew, 3},
		{protocol.MsgTokenValidate, 4},
	}

	frames := m.ClientFrames()
	if len(frames) != len(want) {
		t.Fatalf("client sent %d frames, want %d", len(frames), len(want))
	}
	for i, w := range want {
		if frames[i].Type != w.typ {
			t.Errorf("frame %d type = %s, want %s", i, frames[i].Type, w.typ)
		}
		if !frames[i].HasMC || frames[i].MC != w.mc {
			t.Errorf("frame %d mc = %d (present=%v), want %d", i, frames[i].MC, frames[i].HasMC, w.mc)
		}
	}
}

func TestEstablishNackOnFirstFrame(t *testing.T) {
	m := bridgetest.New(t, func(s *bridgetest.Server) {
		s.Send(protocol.Envelope{Type: protocol.MsgNack, Payload: map[string]any{"info": "busy"}})
	})

	_, err := Establish(context.Background(), testConfig(m.URL()))
	if !errors.Is(err, ErrHandshakeRejected) {
		t.Fatalf("err = %v, want ErrHandshakeRejected", err)
	}
}

func TestEstablishDeclinedHello(t *testing.T) {
	m := bridgetest.New(t, func(s *bridgetest.Server) {
		s.Send(protocol.NewEnvelope(protocol.MsgConnectionStart, protocol.HandshakeCounter, map[string]any{
			"device_id":     bridgetest.DeviceID,
			"connection_id": bridgetest.ConnectionID,
		}))
		if _, ok := s.Expect(protocol.MsgConnectionHello); !ok {
			return
		}
		s.Send(protocol.Envelope{
			Type:    protocol.MsgConnectionDeclined,
			Payload: map[string]any{"error_message": "unknown client"},
		})
	})

	_, err := Establish(context.Background(), testConfig(m.URL()))
	if !errors.Is(err, ErrHandshakeRejected) {
		t.Fatalf("err = %v, want ErrHandshakeRejected", err)
	}
}

func TestEstablishWrongLoginReply(t *testing.T) {
	m := bridgetest.New(t, func(s *bridgetest.Server) {
		s.Send(protocol.NewEnvelope(protocol.MsgConnectionStart, protocol.HandshakeCounter, map[string]any{
			"device_id":     bridgetest.DeviceID,
			"connection_id": bridgetest.ConnectionID,
		}))
		s.Expect(protocol.MsgConnectionHello)
		s.Send(protocol.NewEnvelope(protocol.MsgConnectionAccepted, protocol.HandshakeCounter, nil))
		s.Expect(protocol.MsgSecureInit)
		s.Send(protocol.NewEnvelope(protocol.MsgSecurePublicKey, protocol.HandshakeCounter, map[string]any{
			"public_key": s.PubPEM(),
		}))
		keyFrame, ok := s.Expect(protocol.MsgSecureKey)
		if !ok || !s.InstallSession(keyFrame) {
			return
		}
		s.Send(protocol.Envelope{Type: protocol.MsgSecureReady})
		s.Expect(protocol.MsgLoginSubmit)
		s.Send(protocol.Envelope{Type: protocol.MsgLoginDeclined})
	})

	_, err := Establish(context.Background(), testConfig(m.URL()))
	if !errors.Is(err, ErrHandshakeProtocol) {
		t.Fatalf("err = %v, want ErrHandshakeProtocol", err)
	}
}

func TestEstablishDialFailure(t *testing.T) {
	cfg := testConfig("ws://127.0.0.1:1/")
	if _, err := Establish(context.Background(), cfg); err == nil {
		t.Fatal("Establish succeeded against a closed port")
	}
}

func TestPumpPrimingAcksAndDelivery(t *testing.T) {
	served := make(chan struct{})
	hold := make(chan struct{})
	t.Cleanup(func() { close(hold) })
	m := bridgetest.New(t, func(s *bridgetest.Server) {
		defer func() {
			close(served)
			// Keep the server side open until the test finishes so the
			// pump's exit is driven by the local Close, not by the
			// server hanging up.
			<-hold
		}()
		if !s.ServeHandshake() || !s.ServePriming() {
			return
		}

		// A state frame with a counter: the client must ack before
		// anything else.
		s.Send(protocol.NewEnvelope(protocol.MsgSetDeviceState, 1, map[string]any{
			"deviceId": float64(7),
			"switch":   true,
		}))
		if !s.ExpectAck(1) {
			return
		}

		// A frame without payload is acked but not delivered.
		s.Send(protocol.NewEnvelope(protocol.MsgPong, 2, nil))
		if !s.ExpectAck(2) {
			return
		}
	})

	sc, err := Establish(context.Background(), testConfig(m.URL()))
	if err != nil {
		t.Fatalf("Establish: %v", err)
	}
	defer sc.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pumpErr := make(chan error, 1)
	go func() { pumpErr <- sc.Pump(ctx) }()

	select {
	case env := <-sc.Messages():
		if env.Type != protocol.MsgSetDeviceState {
			t.Errorf("delivered type = %s, want %s", env.Type, protocol.MsgSetDeviceState)
		}
		if id, _ := protocol.Int(env.Payload, "deviceId"); id != 7 {
			t.Errorf("delivered deviceId = %d, want 7", id)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for delivered envelope")
	}

	select {
	case <-served:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for mock script")
	}

	// The pump exits cleanly when the connection is closed locally.
	sc.Close()
	select {
	case err := <-pumpErr:
		if err != nil {
			t.Errorf("Pump returned %v after Close, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for pump exit")
	}

	// Priming frames continue the handshake counter sequence.
	var priming []bridgetest.Frame
	for _, f := range m.ClientFrames() {
		switch f.Type {
		case protocol.MsgQuerySessionState, protocol.MsgQueryCatalogue, protocol.MsgLoginRequest:
			priming = append(priming, f)
		}
	}
	if len(priming) != 3 {
		t.Fatalf("saw %d priming frames, want 3", len(priming))
	}
	for i, f := range priming {
		if f.MC != 5+i {
			t.Errorf("priming frame %d mc = %d, want %d", i, f.MC, 5+i)
		}
	}

	stats := sc.Stats()
	if stats.AcksSent != 2 {
		t.Errorf("AcksSent = %d, want 2", stats.AcksSent)
	}
	if stats.FramesReceived < 2 {
		t.Errorf("FramesReceived = %d, want at least 2", stats.FramesReceived)
	}
}

func TestSendMessageAfterClose(t *testing.T) {
	hold := make(chan struct{})
	t.Cleanup(func() { close(hold) })
	m := bridgetest.New(t, func(s *bridgetest.Server) {
		if s.ServeHandshake() {
			<-hold
		}
	})

	sc, err := Establish(context.Background(), testConfig(m.URL()))
	if err != nil {
		t.Fatalf("Establish: %v", err)
	}
	sc.Close()
	sc.Close() // idempotent

	if err := sc.SendMessage(protocol.MsgPing, nil); !errors.Is(err, ErrClosed) {
		t.Errorf("SendMessage after Close = %v, want ErrClosed", err)
	}
}
