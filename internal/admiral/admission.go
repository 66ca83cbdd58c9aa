package admiral

import (
	"errors"
	"fmt"

	"github.com/danmuck/admiral/internal/endpoint"
	"github.com/danmuck/admiral/internal/observability"
	"github.com/danmuck/admiral/internal/protocol/packet"
	"github.com/rs/zerolog/log"
)

// Admit validates one received packet against the connecting peer and
// enqueues it. peer is the registry entry the connection was identified as.
//
// The returned error is nil, ErrShortEnvelope, ErrPayloadTooLarge or
// ErrUnknownIdentity (all ErrBadPayload), ErrSpoofedSender, or ErrQueueFull.
func Admit(q *Queue, reg *endpoint.Registry, p packet.Packet, peer endpoint.Entry) (Message, error) {
	msg, err := admit(q, reg, p, peer)
	observability.RecordAdmission(peer.Name, admissionOutcome(err))
	observability.SetQueueDepth(q.Len())
	return msg, err
}

func admit(q *Queue, reg *endpoint.Registry, p packet.Packet, peer endpoint.Entry) (Message, error) {
	if p.PayloadLength() < MinEnvelopeSize {
		log.Warn().
			Str("endpoint", peer.Name).
			Int("payload_length", p.PayloadLength()).
			Msg("rejected packet shorter than envelope")
		return Message{}, fmt.Errorf("%w: payload_length=%d", ErrShortEnvelope, p.PayloadLength())
	}
	if p.PayloadLength() > slotSize {
		log.Warn().
			Str("endpoint", peer.Name).
			Int("payload_length", p.PayloadLength()).
			Msg("rejected packet larger than a queue slot")
		return Message{}, fmt.Errorf("%w: payload_length=%d max=%d", ErrPayloadTooLarge, p.PayloadLength(), slotSize)
	}

	msg := Message{
		Destination: endpoint.Identity(p.Payload[0]),
		Sender:      endpoint.Identity(p.Payload[1]),
		Packet:      p,
	}
	if !reg.Valid(msg.Destination) || !reg.Valid(msg.Sender) {
		log.Warn().
			Str("endpoint", peer.Name).
			Uint8("destination", uint8(msg.Destination)).
			Uint8("sender", uint8(msg.Sender)).
			Msg("rejected packet with unregistered identity")
		return Message{}, fmt.Errorf("%w: destination=%d sender=%d", ErrUnknownIdentity, msg.Destination, msg.Sender)
	}

	if msg.Sender != peer.ID {
		log.Error().
			Str("endpoint", peer.Name).
			Str("peer_addr", peer.Addr()).
			Str("claimed", reg.Name(msg.Sender)).
			Msg("security: peer claimed another endpoint's identity")
		return Message{}, fmt.Errorf("%w: %s claimed %s", ErrSpoofedSender, peer.Name, reg.Name(msg.Sender))
	}

	if !q.Enqueue(msg) {
		log.Warn().
			Str("endpoint", peer.Name).
			Int("capacity", q.Cap()).
			Msg("queue full, message rejected")
		return Message{}, ErrQueueFull
	}

	log.Info().
		Str("endpoint", peer.Name).
		Str("destination", reg.Name(msg.Destination)).
		Int("payload_length", p.PayloadLength()).
		Msg("message queued")
	return msg, nil
}

func admissionOutcome(err error) string {
	switch {
	case err == nil:
		return observability.OutcomeAdmitted
	case errors.Is(err, ErrSpoofedSender):
		return observability.OutcomeSpoofed
	case errors.Is(err, ErrQueueFull):
		return observability.OutcomeQueueFull
	default:
		return observability.OutcomeMalformed
	}
}
