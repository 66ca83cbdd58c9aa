package main

import (
	"bytes"
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/admiral/internal/endpoint"
	"github.com/danmuck/admiral/internal/protocol/frame"
	"github.com/danmuck/admiral/internal/protocol/packet"
	"github.com/danmuck/admiral/internal/testutil/testlog"
)

func TestParseIdentity(t *testing.T) {
	testlog.Start(t)

	reg := endpoint.MustDefault()
	if id, err := parseIdentity("hotel", reg); err != nil || id != endpoint.Hotel {
		t.Fatalf("unexpected hotel identity: %d err=%v", id, err)
	}
	if id, err := parseIdentity("2", reg); err != nil || id != endpoint.Scheduler {
		t.Fatalf("unexpected numeric identity: %d err=%v", id, err)
	}
	if _, err := parseIdentity("nowhere", reg); !errors.Is(err, ErrUnknownName) {
		t.Fatalf("expected ErrUnknownName, got %v", err)
	}
}

func TestBuildPayload(t *testing.T) {
	testlog.Start(t)

	p, err := buildPayload(endpoint.Hotel, endpoint.Scheduler, "ABC")
	if err != nil {
		t.Fatalf("build payload: %v", err)
	}
	if !bytes.Equal(p, []byte{1, 2, 'A', 'B', 'C'}) {
		t.Fatalf("unexpected payload: %v", p)
	}

	p, err = buildPayload(endpoint.Hotel, endpoint.Scheduler, "")
	if err != nil || len(p) != 3 || p[2] != packet.PayloadEmpty {
		t.Fatalf("empty data must still form a minimum envelope: %v err=%v", p, err)
	}

	if _, err := buildPayload(0, 1, strings.Repeat("x", packet.MaxPayloadSize)); !errors.Is(err, ErrPayloadTooLong) {
		t.Fatalf("expected ErrPayloadTooLong, got %v", err)
	}
}

// fakeAdmiral reads one packet and answers with reply, or just closes
// when reply is nil.
func fakeAdmiral(t *testing.T, reply []byte) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		if _, err := frame.ReadPacket(conn, make([]byte, packet.MaxPacketSize)); err != nil {
			return
		}
		if reply != nil {
			_, _ = conn.Write(reply)
		}
	}()
	return ln.Addr().String()
}

func invalidResponse(t *testing.T) []byte {
	t.Helper()
	raw := make([]byte, packet.MaxPacketSize)
	res, err := packet.Serialize(raw, packet.Invalid())
	if err != nil {
		t.Fatalf("serialize invalid: %v", err)
	}
	return raw[:res.Size]
}

func TestSendTreatsCloseAsAccepted(t *testing.T) {
	testlog.Start(t)

	opts := options{Admiral: fakeAdmiral(t, nil), Wait: time.Second}
	if err := send(context.Background(), opts, []byte{1, 2, 'x'}); err != nil {
		t.Fatalf("send: %v", err)
	}
}

func TestSendReportsRejection(t *testing.T) {
	testlog.Start(t)

	opts := options{Admiral: fakeAdmiral(t, invalidResponse(t)), Wait: time.Second}
	if err := send(context.Background(), opts, []byte{1, 2, 'x'}); !errors.Is(err, ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}
}

func TestSendReportsUnparseableResponse(t *testing.T) {
	testlog.Start(t)

	// Terminated, but the declared length disagrees with the payload.
	garbled := []byte{packet.Version, 0, 0, 0, 0, 5, 'a', packet.Terminator}
	opts := options{Admiral: fakeAdmiral(t, garbled), Wait: time.Second}
	err := send(context.Background(), opts, []byte{1, 2, 'x'})
	if err == nil {
		t.Fatalf("garbled response must not be reported as accepted")
	}
	if errors.Is(err, ErrRejected) {
		t.Fatalf("garbled response is not a rejection: %v", err)
	}
	if !errors.Is(err, packet.ErrBadPayload) && !errors.Is(err, packet.ErrBadSize) {
		t.Fatalf("expected a decode error, got %v", err)
	}
}
