package infra

import (
	"context"
	"sync"
	"time"

	"admission-gateway/middleware/admission/domain"

	"go.uber.org/zap"
)

const (
	DefaultSweepIdle  = 5 * time.Minute
	DefaultSweepBusy  = 1 * time.Minute
	DefaultSweepChurn = 100
)

// Sweepable é o mínimo que o Sweeper precisa do store.
type Sweepable interface {
	Len() int
	Sweep(now time.Time) int
}

// Sweeper remove periodicamente as entradas expiradas de um Store.
//
// Ele se reagenda só depois de terminar cada passada (time.Timer, não
// Ticker), então nunca existem duas varreduras ao mesmo tempo. Com o store
// vazio a passada é pulada; se muitas entradas saíram (churn alto) a
// próxima vem mais cedo.
type Sweeper struct {
	store  Sweepable
	clock  domain.Clock
	idle   time.Duration
	busy   time.Duration
	churn  int
	logger *zap.Logger

	// sweepMu garante uma passada por vez, inclusive para RunOnce externo.
	sweepMu sync.Mutex

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

type SweeperOption func(*Sweeper)

func WithSweepIdle(d time.Duration) SweeperOption {
	return func(s *Sweeper) {
		if d > 0 {
			s.idle = d
		}
	}
}

func WithSweepBusy(d time.Duration) SweeperOption {
	return func(s *Sweeper) {
		if d > 0 {
			s.busy = d
		}
	}
}

// WithSweepChurn define a partir de quantas remoções a passada é considerada de churn alto.
func WithSweepChurn(n int) SweeperOption {
	return func(s *Sweeper) {
		if n > 0 {
			s.churn = n
		}
	}
}

func WithSweepClock(c domain.Clock) SweeperOption {
	return func(s *Sweeper) {
		if c != nil {
			s.clock = c
		}
	}
}

func WithSweepLogger(l *zap.Logger) SweeperOption {
	return func(s *Sweeper) {
		if l != nil {
			s.logger = l
		}
	}
}

func NewSweeper(store Sweepable, opts ...SweeperOption) *Sweeper {
	s := &Sweeper{
		store:  store,
		clock:  SystemClock,
		idle:   DefaultSweepIdle,
		busy:   DefaultSweepBusy,
		churn:  DefaultSweepChurn,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunOnce executa uma passada e retorna quantas entradas saíram e o
// intervalo até a próxima. Chamadas concorrentes (inclusive com o loop de
// fundo) são serializadas.
func (s *Sweeper) RunOnce() (evicted int, next time.Duration) {
	s.sweepMu.Lock()
	defer s.sweepMu.Unlock()

	if s.store.Len() == 0 {
		return 0, s.idle
	}

	start := time.Now()
	evicted = s.store.Sweep(s.clock.Now())
	next = s.idle
	if evicted >= s.churn {
		next = s.busy
	}

	s.logger.Debug("admission sweep",
		zap.Int("evicted", evicted),
		zap.Int("remaining", s.store.Len()),
		zap.Duration("took", time.Since(start)),
		zap.Duration("next", next),
	)
	return evicted, next
}

// Start inicia a goroutine de limpeza. Pare cancelando o ctx ou com Stop.
// Chamadas repetidas enquanto já está rodando são ignoradas; depois que o
// loop termina (Stop ou ctx cancelado) Start volta a funcionar.
func (s *Sweeper) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.loop(ctx, s.done)
}

func (s *Sweeper) loop(ctx context.Context, done chan struct{}) {
	defer func() {
		s.mu.Lock()
		if s.done == done {
			s.cancel()
			s.cancel, s.done = nil, nil
		}
		s.mu.Unlock()
		close(done)
	}()

	t := time.NewTimer(s.idle)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}

		_, next := s.RunOnce()
		t.Reset(next)
	}
}

// Stop cancela o loop e espera a passada em andamento terminar.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}
