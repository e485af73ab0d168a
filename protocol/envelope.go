// Package protocol defines the message catalogue and envelope format of
// the bridge's JSON-over-WebSocket protocol.
//
// Every frame is a JSON object with a numeric type_int, an optional
// per-connection message counter mc, and an optional payload object.
// Acknowledgement frames reference the mc of the frame they confirm
// instead of carrying their own counter.
package protocol

import "encoding/json"

// HandshakeCounter is the mc value carried by the plaintext handshake
// frames sent before a session key is installed.
const HandshakeCounter = -1

// Envelope is the wire form of a protocol frame.
//
// MC and Ref are pointers because their absence is meaningful: a frame
// without mc must not be acknowledged, and only ACK frames carry ref.
type Envelope struct {
	Type    MessageType    `json:"type_int"`
	MC      *int           `json:"mc,omitempty"`
	Ref     *int           `json:"ref,omitempty"`
	Payload map[string]any `json:"payload,omitempty"`
}

// NewEnvelope builds a frame with the given counter value.
func NewEnvelope(t MessageType, mc int, payload map[string]any) Envelope {
	return Envelope{Type: t, MC: &mc, Payload: payload}
}

// NewAck builds the acknowledgement frame for a received counter value.
// ACK frames do not bump the sender's own counter.
func NewAck(ref int) Envelope {
	return Envelope{Type: MsgAck, Ref: &ref}
}

// Counter returns the mc value and whether the frame carries one.
func (e Envelope) Counter() (int, bool) {
	if e.MC == nil {
		return 0, false
	}
	return *e.MC, true
}

// Encode serialises the envelope to its JSON wire form.
func (e Envelope) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// Decode parses a JSON frame into an envelope.
func Decode(data []byte) (Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return Envelope{}, err
	}
	return e, nil
}
