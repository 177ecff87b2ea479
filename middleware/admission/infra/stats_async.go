package infra

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"admission-gateway/middleware/admission/domain"

	"go.uber.org/zap"
)

const (
	DefaultStatsQueue   = 1024
	DefaultStatsTimeout = 500 * time.Millisecond
)

// AsyncStatsStore desacopla o caminho da requisição de um StatsStore lento
// (ex: Redis). Record só enfileira; uma goroutine própria grava no destino
// com timeout fixo, sem o contexto da requisição. Fila cheia descarta o
// evento e incrementa Dropped.
type AsyncStatsStore struct {
	next    domain.StatsStore
	timeout time.Duration
	logger  *zap.Logger

	mu      sync.RWMutex
	closed  bool
	events  chan domain.StatsEvent
	done    chan struct{}
	dropped atomic.Int64
}

type AsyncStatsOption func(*asyncStatsConfig)

type asyncStatsConfig struct {
	queue   int
	timeout time.Duration
	logger  *zap.Logger
}

func WithStatsQueue(n int) AsyncStatsOption {
	return func(c *asyncStatsConfig) {
		if n > 0 {
			c.queue = n
		}
	}
}

// WithStatsWriteTimeout limita cada gravação no destino.
func WithStatsWriteTimeout(d time.Duration) AsyncStatsOption {
	return func(c *asyncStatsConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithStatsLogger(l *zap.Logger) AsyncStatsOption {
	return func(c *asyncStatsConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewAsyncStatsStore já inicia o worker; chame Close para drenar e parar.
func NewAsyncStatsStore(next domain.StatsStore, opts ...AsyncStatsOption) *AsyncStatsStore {
	cfg := asyncStatsConfig{
		queue:   DefaultStatsQueue,
		timeout: DefaultStatsTimeout,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &AsyncStatsStore{
		next:    next,
		timeout: cfg.timeout,
		logger:  cfg.logger,
		events:  make(chan domain.StatsEvent, cfg.queue),
		done:    make(chan struct{}),
	}
	go s.run()
	return s
}

// Record nunca bloqueia. Depois de Close os eventos são descartados.
func (s *AsyncStatsStore) Record(_ context.Context, ev domain.StatsEvent) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		s.dropped.Add(1)
		return nil
	}

	select {
	case s.events <- ev:
	default:
		s.dropped.Add(1)
	}
	return nil
}

func (s *AsyncStatsStore) run() {
	defer close(s.done)
	for ev := range s.events {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		err := s.next.Record(ctx, ev)
		cancel()
		if err != nil {
			s.logger.Warn("admission stats record failed",
				zap.String("policy", ev.Policy),
				zap.Error(err),
			)
		}
	}
}

// Close para de aceitar eventos e espera a fila ser gravada.
func (s *AsyncStatsStore) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		<-s.done
		return
	}
	s.closed = true
	close(s.events)
	s.mu.Unlock()

	<-s.done
}

// Dropped retorna quantos eventos foram descartados.
func (s *AsyncStatsStore) Dropped() int64 { return s.dropped.Load() }
