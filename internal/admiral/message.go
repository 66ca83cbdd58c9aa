package admiral

import (
	"fmt"

	"github.com/danmuck/admiral/internal/endpoint"
	"github.com/danmuck/admiral/internal/protocol/packet"
)

// EnvelopeHeaderSize is the destination and sender prefix of every payload.
const EnvelopeHeaderSize = 2

// MinEnvelopeSize is destination, sender and at least one data byte.
const MinEnvelopeSize = EnvelopeHeaderSize + 1

// Message is an admitted packet with its decoded routing identities.
type Message struct {
	Destination endpoint.Identity
	Sender      endpoint.Identity
	Packet      packet.Packet
}

// Sanitize strips the destination and sender bytes from the payload in
// place, leaving only the data meant for the destination.
func (m *Message) Sanitize() error {
	n := len(m.Packet.Payload)
	if n < EnvelopeHeaderSize {
		return fmt.Errorf("%w: payload_length=%d", ErrShortEnvelope, n)
	}
	copy(m.Packet.Payload, m.Packet.Payload[EnvelopeHeaderSize:])
	m.Packet.Payload = m.Packet.Payload[:n-EnvelopeHeaderSize]
	return nil
}
