package admiral

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/danmuck/admiral/internal/admin"
	"github.com/danmuck/admiral/internal/endpoint"
	"github.com/danmuck/admiral/internal/logging"
	"github.com/danmuck/admiral/internal/protocol/session"
	"github.com/rs/zerolog/log"
)

var ErrInvalidForwardMode = errors.New("admiral: invalid forward mode")

// ForwardMode selects the broker's Forwarder.
type ForwardMode string

const (
	ForwardLog ForwardMode = "log"
	ForwardTCP ForwardMode = "tcp"
)

// ServiceConfig configures the standalone broker process.
type ServiceConfig struct {
	Name          string
	QueueCapacity int
	RetryInterval time.Duration
	Server        ServerConfig
	Endpoints     []endpoint.Entry
	AdminAddr     string
	CorsOrigins   []string
	ForwardMode   ForwardMode
	Forward       session.Config
}

// Admiral service defaults for the LIONS deployment.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		Name:          "admiral",
		QueueCapacity: DefaultQueueCapacity,
		RetryInterval: DefaultRetryInterval,
		Server:        DefaultServerConfig(),
		Endpoints:     endpoint.DefaultEntries(),
		AdminAddr:     "",
		ForwardMode:   ForwardLog,
		Forward:       session.DefaultConfig(),
	}
}

// Service owns the queue and runs the network and broker loops.
type Service struct {
	cfg      ServiceConfig
	registry *endpoint.Registry
	queue    *Queue
	server   *Server
	broker   *Broker
	admin    *admin.Server
	started  time.Time
}

// Status is the admin snapshot of a running service.
type Status struct {
	Name      string           `json:"name"`
	Uptime    string           `json:"uptime"`
	Listening bool             `json:"listening"`
	Queue     QueueStats       `json:"queue"`
	Network   ServerStats      `json:"network"`
	Broker    BrokerStats      `json:"broker"`
	Endpoints []endpoint.Entry `json:"endpoints"`
}

func NewService() (*Service, error) {
	return NewServiceWithConfig(DefaultServiceConfig())
}

func NewServiceWithConfig(cfg ServiceConfig) (*Service, error) {
	fwd, err := newForwarder(cfg.ForwardMode, cfg.Forward)
	if err != nil {
		return nil, err
	}
	return NewServiceWithForwarder(cfg, fwd)
}

// NewServiceWithForwarder builds a service around an explicit Forwarder;
// cfg.ForwardMode is ignored.
func NewServiceWithForwarder(cfg ServiceConfig, fwd Forwarder) (*Service, error) {
	if strings.TrimSpace(cfg.Name) == "" {
		cfg.Name = "admiral"
	}
	reg, err := endpoint.NewRegistry(cfg.Endpoints)
	if err != nil {
		return nil, err
	}
	q, err := NewQueue(cfg.QueueCapacity)
	if err != nil {
		return nil, err
	}
	srv, err := NewServer(cfg.Server, q, reg)
	if err != nil {
		return nil, err
	}
	brk, err := NewBroker(BrokerConfig{RetryInterval: cfg.RetryInterval}, q, reg, fwd)
	if err != nil {
		return nil, err
	}
	s := &Service{
		cfg:      cfg,
		registry: reg,
		queue:    q,
		server:   srv,
		broker:   brk,
		started:  time.Now(),
	}
	if strings.TrimSpace(cfg.AdminAddr) != "" {
		s.admin = admin.New(admin.Config{
			Name:        cfg.Name,
			Addr:        cfg.AdminAddr,
			CorsOrigins: cfg.CorsOrigins,
		}, func() any { return s.Status() }, s.server.Listening)
	}
	return s, nil
}

func newForwarder(mode ForwardMode, cfg session.Config) (Forwarder, error) {
	switch mode {
	case "", ForwardLog:
		return LogForwarder{}, nil
	case ForwardTCP:
		return NewTCPForwarder(cfg), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidForwardMode, mode)
	}
}

// Admiral runtime entrypoint that blocks until process signal shutdown.
func (s *Service) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return s.Serve(ctx)
}

// Serve runs both loops and the optional admin server until ctx is done.
// A loop that fails to start is logged and does not stop the others.
func (s *Service) Serve(ctx context.Context) error {
	log.Info().
		Str("service", s.cfg.Name).
		Str("listen_addr", s.cfg.Server.ListenAddr).
		Int("queue_capacity", s.queue.Cap()).
		Int("endpoints", len(s.registry.Entries())).
		Msg("admiral starting")

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := s.server.ListenAndServe(ctx); err != nil {
			log.Error().Err(err).Msg("network loop exited")
		}
	}()
	go func() {
		defer wg.Done()
		if err := s.broker.Run(ctx); err != nil {
			log.Error().Err(err).Msg("broker loop exited")
		}
	}()
	if s.admin != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.admin.ListenAndServe(ctx); err != nil {
				log.Error().Err(err).Msg("admin server exited")
			}
		}()
	}

	<-ctx.Done()
	wg.Wait()
	logging.Log(s.cfg.Name, "shutdown complete", logging.Info)
	return nil
}

func (s *Service) Status() Status {
	return Status{
		Name:      s.cfg.Name,
		Uptime:    time.Since(s.started).String(),
		Listening: s.server.Listening(),
		Queue:     s.queue.Stats(),
		Network:   s.server.Stats(),
		Broker:    s.broker.Stats(),
		Endpoints: s.registry.Entries(),
	}
}

func (s *Service) Queue() *Queue                { return s.queue }
func (s *Service) Broker() *Broker              { return s.broker }
func (s *Service) Registry() *endpoint.Registry { return s.registry }
