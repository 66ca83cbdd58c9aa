package admiral

import (
	"bytes"
	"errors"
	"testing"

	"github.com/danmuck/admiral/internal/endpoint"
	"github.com/danmuck/admiral/internal/protocol/packet"
	"github.com/danmuck/admiral/internal/testutil/testlog"
)

func TestAdmitEnqueuesValidMessage(t *testing.T) {
	testlog.Start(t)

	reg := endpoint.MustDefault()
	q, _ := NewQueue(2)
	peer, _ := reg.Lookup(endpoint.Scheduler)

	msg, err := Admit(q, reg, packet.New([]byte{byte(endpoint.Hotel), byte(endpoint.Scheduler), 'g', 'o'}), peer)
	if err != nil {
		t.Fatalf("admit: %v", err)
	}
	if msg.Destination != endpoint.Hotel || msg.Sender != endpoint.Scheduler {
		t.Fatalf("unexpected envelope: %+v", msg)
	}
	if q.Len() != 1 {
		t.Fatalf("expected one queued message, len=%d", q.Len())
	}
}

func TestAdmitMinimumEnvelope(t *testing.T) {
	testlog.Start(t)

	reg := endpoint.MustDefault()
	q, _ := NewQueue(2)
	peer, _ := reg.Lookup(endpoint.Scheduler)

	_, err := Admit(q, reg, packet.New([]byte{byte(endpoint.Hotel), byte(endpoint.Scheduler)}), peer)
	if !errors.Is(err, packet.ErrBadPayload) || !errors.Is(err, ErrShortEnvelope) {
		t.Fatalf("expected short envelope rejection, got %v", err)
	}
	if q.Len() != 0 {
		t.Fatalf("rejected packet must not be queued")
	}

	if _, err := Admit(q, reg, packet.New([]byte{byte(endpoint.Hotel), byte(endpoint.Scheduler), packet.PayloadEmpty}), peer); err != nil {
		t.Fatalf("three byte envelope must be admitted: %v", err)
	}
}

func TestAdmitRejectsUnregisteredIdentities(t *testing.T) {
	testlog.Start(t)

	reg := endpoint.MustDefault()
	q, _ := NewQueue(2)
	peer, _ := reg.Lookup(endpoint.Scheduler)

	cases := [][]byte{
		{9, byte(endpoint.Scheduler), 'x'},
		{byte(endpoint.Hotel), 9, 'x'},
	}
	for _, payload := range cases {
		_, err := Admit(q, reg, packet.New(payload), peer)
		if !errors.Is(err, packet.ErrBadPayload) {
			t.Fatalf("payload %v: expected ErrBadPayload, got %v", payload, err)
		}
	}
	if q.Len() != 0 {
		t.Fatalf("rejected packets must not be queued")
	}
}

func TestAdmitRejectsSpoofedSender(t *testing.T) {
	testlog.Start(t)

	reg := endpoint.MustDefault()
	q, _ := NewQueue(2)
	peer, _ := reg.Lookup(endpoint.Scheduler)

	_, err := Admit(q, reg, packet.New([]byte{byte(endpoint.Admiral), byte(endpoint.Hotel), 'x'}), peer)
	if !errors.Is(err, ErrSpoofedSender) {
		t.Fatalf("expected ErrSpoofedSender, got %v", err)
	}
	if !errors.Is(err, packet.ErrBadPayload) {
		t.Fatalf("spoofing must classify as bad payload: %v", err)
	}
	if q.Len() != 0 {
		t.Fatalf("spoofed packet must not be queued")
	}
}

func TestAdmitQueueFull(t *testing.T) {
	testlog.Start(t)

	reg := endpoint.MustDefault()
	q, _ := NewQueue(1)
	peer, _ := reg.Lookup(endpoint.Hotel)
	p := packet.New([]byte{byte(endpoint.Scheduler), byte(endpoint.Hotel), 'x'})

	if _, err := Admit(q, reg, p, peer); err != nil {
		t.Fatalf("first admit: %v", err)
	}
	_, err := Admit(q, reg, p, peer)
	if !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	if packet.Classify(err) != packet.CodeQueueFull {
		t.Fatalf("expected queue_full classification, got %s", packet.Classify(err))
	}
}

func TestAdmitRejectsOversizedPayload(t *testing.T) {
	testlog.Start(t)

	reg := endpoint.MustDefault()
	q, _ := NewQueue(2)
	peer, _ := reg.Lookup(endpoint.Scheduler)

	payload := bytes.Repeat([]byte{'x'}, packet.MaxPayloadSize+1)
	payload[0] = byte(endpoint.Hotel)
	payload[1] = byte(endpoint.Scheduler)

	_, err := Admit(q, reg, packet.New(payload), peer)
	if !errors.Is(err, ErrPayloadTooLarge) || !errors.Is(err, packet.ErrBadPayload) {
		t.Fatalf("expected oversized payload rejection, got %v", err)
	}
	if errors.Is(err, ErrQueueFull) || packet.Classify(err) == packet.CodeQueueFull {
		t.Fatalf("oversized payload must not report a full queue: %v", err)
	}
	if q.Len() != 0 {
		t.Fatalf("oversized packet must not be queued")
	}

	if _, err := Admit(q, reg, packet.New(payload[:packet.MaxPayloadSize]), peer); err != nil {
		t.Fatalf("slot-sized payload must be admitted: %v", err)
	}
}

func TestSanitizeStripsEnvelope(t *testing.T) {
	testlog.Start(t)

	msg := Message{Packet: packet.New([]byte{2, 1, 'A', 'B', 'C'})}
	if err := msg.Sanitize(); err != nil {
		t.Fatalf("sanitize: %v", err)
	}
	if !bytes.Equal(msg.Packet.Payload, []byte("ABC")) || msg.Packet.PayloadLength() != 3 {
		t.Fatalf("unexpected sanitized payload: %q", msg.Packet.Payload)
	}

	short := Message{Packet: packet.New([]byte{2})}
	if err := short.Sanitize(); !errors.Is(err, packet.ErrBadPayload) {
		t.Fatalf("expected ErrBadPayload for short payload, got %v", err)
	}
}
