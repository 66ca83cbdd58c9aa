package admiral

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/danmuck/admiral/internal/endpoint"
	"github.com/danmuck/admiral/internal/observability"
	"github.com/rs/zerolog/log"
)

// DefaultRetryInterval is how long the broker sleeps on an empty queue.
const DefaultRetryInterval = 30 * time.Second

var ErrInvalidBrokerConfig = errors.New("admiral: invalid broker config")

// BrokerState is the dispatch loop phase.
type BrokerState int32

const (
	StateWaiting BrokerState = iota
	StateDispatching
)

func (s BrokerState) String() string {
	switch s {
	case StateWaiting:
		return "waiting"
	case StateDispatching:
		return "dispatching"
	default:
		return "unknown"
	}
}

type BrokerConfig struct {
	RetryInterval time.Duration
}

// BrokerStats counts dispatch outcomes since start.
type BrokerStats struct {
	State      string `json:"state"`
	Dispatched uint64 `json:"dispatched"`
	Dropped    uint64 `json:"dropped"`
}

// Broker is the dispatch loop. It drains the queue one message at a time,
// strips the envelope and hands the packet to its Forwarder.
type Broker struct {
	cfg       BrokerConfig
	queue     *Queue
	registry  *endpoint.Registry
	forwarder Forwarder

	state      atomic.Int32
	dispatched atomic.Uint64
	dropped    atomic.Uint64
}

func NewBroker(cfg BrokerConfig, q *Queue, reg *endpoint.Registry, fwd Forwarder) (*Broker, error) {
	if q == nil || reg == nil {
		return nil, ErrInvalidBrokerConfig
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = DefaultRetryInterval
	}
	if fwd == nil {
		fwd = LogForwarder{}
	}
	return &Broker{cfg: cfg, queue: q, registry: reg, forwarder: fwd}, nil
}

// Run dispatches until ctx is done. An empty queue parks the loop for
// RetryInterval or until the queue signals Ready.
func (b *Broker) Run(ctx context.Context) error {
	log.Info().Dur("retry_interval", b.cfg.RetryInterval).Msg("broker loop started")
	for {
		if ctx.Err() != nil {
			log.Info().Msg("broker loop stopped")
			return nil
		}
		if b.DispatchOnce(ctx) {
			continue
		}

		log.Debug().Dur("retry_in", b.cfg.RetryInterval).Msg("queue empty")
		timer := time.NewTimer(b.cfg.RetryInterval)
		select {
		case <-ctx.Done():
		case <-b.queue.Ready():
		case <-timer.C:
		}
		timer.Stop()
	}
}

// DispatchOnce processes at most one message. It reports whether a message
// was dequeued, regardless of the forward result.
func (b *Broker) DispatchOnce(ctx context.Context) bool {
	msg, ok := b.queue.Dequeue()
	if !ok {
		return false
	}
	b.state.Store(int32(StateDispatching))
	defer b.state.Store(int32(StateWaiting))
	observability.SetQueueDepth(b.queue.Len())

	b.dispatch(ctx, msg)
	return true
}

func (b *Broker) dispatch(ctx context.Context, msg Message) {
	dst, okDst := b.registry.Lookup(msg.Destination)
	src, okSrc := b.registry.Lookup(msg.Sender)
	if !okDst || !okSrc {
		b.drop(b.registry.Name(msg.Destination), 0, ErrUnknownIdentity)
		return
	}
	if err := msg.Sanitize(); err != nil {
		b.drop(dst.Name, 0, err)
		return
	}

	start := time.Now()
	err := b.forwarder.Forward(ctx, Delivery{Destination: dst, Sender: src, Packet: msg.Packet})
	elapsed := time.Since(start)
	if err != nil {
		b.drop(dst.Name, elapsed, err)
		return
	}
	b.dispatched.Add(1)
	observability.RecordDispatch(dst.Name, observability.ResultForwarded, elapsed)
	log.Info().
		Str("destination", dst.Name).
		Str("sender", src.Name).
		Int("payload_length", msg.Packet.PayloadLength()).
		Msg("message dispatched")
}

func (b *Broker) drop(destination string, elapsed time.Duration, err error) {
	b.dropped.Add(1)
	observability.RecordDispatch(destination, observability.ResultDropped, elapsed)
	log.Error().Err(err).Str("destination", destination).Msg("message dropped")
}

func (b *Broker) State() BrokerState {
	return BrokerState(b.state.Load())
}

func (b *Broker) Stats() BrokerStats {
	return BrokerStats{
		State:      b.State().String(),
		Dispatched: b.dispatched.Load(),
		Dropped:    b.dropped.Load(),
	}
}
