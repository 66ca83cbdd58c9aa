package admiral

import (
	"context"
	"fmt"
	"math/rand"
	"net"
	"sync"
	"time"

	"github.com/danmuck/admiral/internal/endpoint"
	"github.com/danmuck/admiral/internal/protocol/frame"
	"github.com/danmuck/admiral/internal/protocol/packet"
	"github.com/danmuck/admiral/internal/protocol/session"
	"github.com/rs/zerolog/log"
)

// Delivery is one sanitized message bound for its destination.
type Delivery struct {
	Destination endpoint.Entry
	Sender      endpoint.Entry
	Packet      packet.Packet
}

// Forwarder hands a sanitized packet to its destination.
type Forwarder interface {
	Forward(ctx context.Context, d Delivery) error
}

// LogForwarder records the delivery and does not touch the network.
type LogForwarder struct{}

func (LogForwarder) Forward(_ context.Context, d Delivery) error {
	log.Info().
		Str("destination", d.Destination.Name).
		Str("sender", d.Sender.Name).
		Int("payload_length", d.Packet.PayloadLength()).
		Msg("forwarding message")
	return nil
}

// DialFunc opens an outbound connection.
type DialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// TCPForwarder writes each delivery as one packet on a fresh connection to
// the destination's registered address, retrying per its session config.
type TCPForwarder struct {
	cfg  session.Config
	dial DialFunc

	mu  sync.Mutex
	rng *rand.Rand
}

func NewTCPForwarder(cfg session.Config) *TCPForwarder {
	var d net.Dialer
	return NewTCPForwarderWithDialer(cfg, d.DialContext)
}

func NewTCPForwarderWithDialer(cfg session.Config, dial DialFunc) *TCPForwarder {
	return &TCPForwarder{
		cfg:  cfg.WithDefaults(),
		dial: dial,
		rng:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (f *TCPForwarder) Forward(ctx context.Context, d Delivery) error {
	var wire [packet.MaxPacketSize]byte
	if _, err := packet.Serialize(wire[:], d.Packet); err != nil {
		return fmt.Errorf("%w: %w", session.ErrPermanent, err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return session.Retry(ctx, f.cfg, f.rng, func(attempt int) error {
		err := f.send(ctx, d)
		if err != nil {
			log.Warn().
				Err(err).
				Str("destination", d.Destination.Name).
				Int("attempt", attempt).
				Msg("forward attempt failed")
		}
		return err
	})
}

func (f *TCPForwarder) send(ctx context.Context, d Delivery) error {
	dialCtx, cancel := context.WithTimeout(ctx, f.cfg.ConnectTimeout)
	defer cancel()
	conn, err := f.dial(dialCtx, "tcp", d.Destination.Addr())
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := conn.SetWriteDeadline(time.Now().Add(f.cfg.WriteTimeout)); err != nil {
		return err
	}
	_, err = frame.WritePacket(conn, d.Packet)
	return err
}
