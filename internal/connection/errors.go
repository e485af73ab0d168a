package connection

import "errors"

var (
	// ErrHandshakeRejected is returned when the bridge actively refuses
	// the connection: a NACK on the first frame or a CONNECTION_DECLINED
	// after the hello.
	ErrHandshakeRejected = errors.New("connection: handshake rejected by bridge")

	// ErrHandshakeProtocol is returned when the bridge answers a
	// handshake step with an unexpected message type.
	ErrHandshakeProtocol = errors.New("connection: unexpected handshake frame")

	// ErrClosed is returned from send operations after Close.
	ErrClosed = errors.New("connection: closed")
)
