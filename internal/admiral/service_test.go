package admiral

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/danmuck/admiral/internal/endpoint"
	"github.com/danmuck/admiral/internal/testutil/testlog"
)

func TestServiceRoutesSchedulerToHotel(t *testing.T) {
	testlog.Start(t)

	hotelLn, hotel := listenEntry(t)
	got := acceptPacket(hotelLn)
	schedPort := reservePort(t)
	listenPort := reservePort(t)

	cfg := DefaultServiceConfig()
	cfg.Name = "admiral-test"
	cfg.RetryInterval = 50 * time.Millisecond
	cfg.Server.ListenAddr = fmt.Sprintf("127.0.0.1:%d", listenPort)
	cfg.Endpoints = loopbackEntries(hotel.Port, schedPort)
	cfg.ForwardMode = ForwardTCP
	cfg.Forward = fastSession()

	svc, err := NewServiceWithConfig(cfg)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	deadline := time.Now().Add(2 * time.Second)
	for !svc.Status().Listening {
		if time.Now().After(deadline) {
			t.Fatalf("service did not start listening")
		}
		time.Sleep(5 * time.Millisecond)
	}

	resp := exchange(t, schedPort, cfg.Server.ListenAddr,
		wire(t, []byte{byte(endpoint.Hotel), byte(endpoint.Scheduler), 'r', 'u', 'n'}))
	if len(resp) != 0 {
		t.Fatalf("unexpected response: % x", resp)
	}

	select {
	case p, ok := <-got:
		if !ok || string(p.Payload) != "run" {
			t.Fatalf("hotel received unexpected packet: %+v ok=%v", p, ok)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("hotel never received the forwarded packet")
	}

	deadline = time.Now().Add(2 * time.Second)
	for svc.Status().Broker.Dispatched != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("dispatch not recorded: %+v", svc.Status().Broker)
		}
		time.Sleep(5 * time.Millisecond)
	}
	st := svc.Status()
	if st.Queue.Len != 0 || st.Queue.Generation == 0 {
		t.Fatalf("expected drained queue with a new generation: %+v", st.Queue)
	}
	if len(st.Endpoints) != 3 {
		t.Fatalf("expected 3 endpoints in status, got %d", len(st.Endpoints))
	}
}

func TestServiceRejectsInvalidConfig(t *testing.T) {
	testlog.Start(t)

	cfg := DefaultServiceConfig()
	cfg.ForwardMode = "carrier-pigeon"
	if _, err := NewServiceWithConfig(cfg); !errors.Is(err, ErrInvalidForwardMode) {
		t.Fatalf("expected ErrInvalidForwardMode, got %v", err)
	}

	cfg = DefaultServiceConfig()
	cfg.QueueCapacity = 0
	if _, err := NewServiceWithConfig(cfg); !errors.Is(err, ErrInvalidCapacity) {
		t.Fatalf("expected ErrInvalidCapacity, got %v", err)
	}

	cfg = DefaultServiceConfig()
	cfg.Endpoints = append(cfg.Endpoints, endpoint.Entry{ID: endpoint.Hotel, Name: "dup", Host: "10.0.0.1", Port: 1})
	if _, err := NewServiceWithConfig(cfg); !errors.Is(err, endpoint.ErrDuplicateIdentity) {
		t.Fatalf("expected ErrDuplicateIdentity, got %v", err)
	}
}

func TestServiceServeReturnsOnCancelWhenListenFails(t *testing.T) {
	testlog.Start(t)

	cfg := DefaultServiceConfig()
	cfg.Server.ListenAddr = "256.0.0.1:5321"
	cfg.RetryInterval = 10 * time.Millisecond
	svc, err := NewServiceWithConfig(cfg)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := svc.Serve(ctx); err != nil {
		t.Fatalf("serve: %v", err)
	}
	if svc.Status().Listening {
		t.Fatalf("failed listener must not report listening")
	}
}
