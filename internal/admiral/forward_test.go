package admiral

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/danmuck/admiral/internal/endpoint"
	"github.com/danmuck/admiral/internal/protocol/frame"
	"github.com/danmuck/admiral/internal/protocol/packet"
	"github.com/danmuck/admiral/internal/protocol/session"
	"github.com/danmuck/admiral/internal/testutil/testlog"
)

func fastSession() session.Config {
	cfg := session.DefaultConfig()
	cfg.ConnectTimeout = time.Second
	cfg.WriteTimeout = time.Second
	cfg.Backoff = session.BackoffConfig{InitialDelay: time.Millisecond, Multiplier: 1, MaxDelay: time.Millisecond}
	return cfg
}

func listenEntry(t *testing.T) (net.Listener, endpoint.Entry) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })
	port := ln.Addr().(*net.TCPAddr).Port
	return ln, endpoint.Entry{ID: endpoint.Hotel, Name: "hotel", Host: "127.0.0.1", Port: uint16(port)}
}

func acceptPacket(ln net.Listener) <-chan packet.Packet {
	out := make(chan packet.Packet, 1)
	go func() {
		defer close(out)
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		p, err := frame.ReadPacket(conn, make([]byte, packet.MaxPacketSize))
		if err != nil {
			return
		}
		out <- p.Clone()
	}()
	return out
}

func TestTCPForwarderDelivers(t *testing.T) {
	testlog.Start(t)

	ln, dst := listenEntry(t)
	got := acceptPacket(ln)

	fwd := NewTCPForwarder(fastSession())
	d := Delivery{Destination: dst, Sender: endpoint.Entry{Name: "scheduler"}, Packet: packet.New([]byte("ping"))}
	if err := fwd.Forward(context.Background(), d); err != nil {
		t.Fatalf("forward: %v", err)
	}

	select {
	case p, ok := <-got:
		if !ok || string(p.Payload) != "ping" {
			t.Fatalf("unexpected delivered packet: %+v ok=%v", p, ok)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("destination did not receive packet")
	}
}

func TestTCPForwarderRetriesThenSucceeds(t *testing.T) {
	testlog.Start(t)

	ln, dst := listenEntry(t)
	got := acceptPacket(ln)

	var calls atomic.Int32
	var d net.Dialer
	fwd := NewTCPForwarderWithDialer(fastSession(), func(ctx context.Context, network, addr string) (net.Conn, error) {
		if calls.Add(1) < 3 {
			return nil, errors.New("connection refused")
		}
		return d.DialContext(ctx, network, addr)
	})

	err := fwd.Forward(context.Background(), Delivery{Destination: dst, Packet: packet.New([]byte("again"))})
	if err != nil {
		t.Fatalf("forward: %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 dial attempts, got %d", calls.Load())
	}
	if p := <-got; string(p.Payload) != "again" {
		t.Fatalf("unexpected payload: %q", p.Payload)
	}
}

func TestTCPForwarderGivesUp(t *testing.T) {
	testlog.Start(t)

	var calls atomic.Int32
	fwd := NewTCPForwarderWithDialer(fastSession(), func(context.Context, string, string) (net.Conn, error) {
		calls.Add(1)
		return nil, errors.New("no route to host")
	})

	dst := endpoint.Entry{ID: endpoint.Hotel, Name: "hotel", Host: "127.0.0.1", Port: 1}
	err := fwd.Forward(context.Background(), Delivery{Destination: dst, Packet: packet.New([]byte("x"))})
	if !errors.Is(err, session.ErrAttemptsExhausted) {
		t.Fatalf("expected ErrAttemptsExhausted, got %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestTCPForwarderUnencodablePacketIsPermanent(t *testing.T) {
	testlog.Start(t)

	var calls atomic.Int32
	fwd := NewTCPForwarderWithDialer(fastSession(), func(context.Context, string, string) (net.Conn, error) {
		calls.Add(1)
		return nil, errors.New("unexpected dial")
	})

	err := fwd.Forward(context.Background(), Delivery{Packet: packet.New([]byte{'a', packet.Terminator})})
	if !errors.Is(err, session.ErrPermanent) || !errors.Is(err, packet.ErrBadInput) {
		t.Fatalf("expected permanent bad input, got %v", err)
	}
	if calls.Load() != 0 {
		t.Fatalf("unencodable packet must not dial")
	}
}
