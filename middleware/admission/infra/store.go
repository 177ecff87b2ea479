package infra

import (
	"sync"
	"time"

	"admission-gateway/middleware/admission/domain"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"
)

const defaultShards = 32

// Store guarda o estado de contagem por (ClientKey, Policy.Name).
//
// O mapa é dividido em shards, cada um com seu mutex. Evaluate segura o
// lock do shard durante toda a leitura-modificação-escrita, então as
// chamadas para a mesma chave são linearizáveis. Sweep trava um shard por
// vez e nunca segura o store inteiro.
type Store struct {
	shards []*shard
	logger *zap.Logger
}

type shard struct {
	mu      sync.Mutex
	entries map[stateKey]*clientState
}

type stateKey struct {
	client domain.ClientKey
	policy string
}

// clientState: blockedUntil zero significa "sem bloqueio".
type clientState struct {
	count         int
	windowResetAt time.Time
	blockedUntil  time.Time
}

type StoreOption func(*Store)

// WithShards define o número de shards (n <= 0 mantém o padrão).
func WithShards(n int) StoreOption {
	return func(s *Store) {
		if n > 0 {
			s.shards = make([]*shard, n)
		}
	}
}

func WithStoreLogger(l *zap.Logger) StoreOption {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		shards: make([]*shard, defaultShards),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	for i := range s.shards {
		s.shards[i] = &shard{entries: make(map[stateKey]*clientState)}
	}
	return s
}

// todos os tiers do mesmo cliente caem no mesmo shard; o hash usa só o
// ClientKey para não alocar na concatenação com o nome da policy.
func (s *Store) shardFor(key domain.ClientKey) *shard {
	return s.shards[xxhash.Sum64String(string(key))%uint64(len(s.shards))]
}

// Evaluate aplica a máquina de estados de admissão para key sob policy e
// retorna a decisão produzida pela mesma operação atômica.
func (s *Store) Evaluate(key domain.ClientKey, policy domain.Policy, now time.Time) domain.Decision {
	dec := domain.Decision{
		Key:    key,
		Policy: policy.Name(),
		Limit:  policy.MaxRequests(),
	}
	if policy.IsZero() {
		s.logger.DPanic("evaluate called with zero policy", zap.String("key", string(key)))
		dec.RetryAfter = time.Second
		dec.ResetAt = now.Add(time.Second)
		return dec
	}

	sk := stateKey{client: key, policy: policy.Name()}
	sh := s.shardFor(key)

	sh.mu.Lock()
	defer sh.mu.Unlock()

	st, ok := sh.entries[sk]
	if ok && !st.blockedUntil.IsZero() {
		if now.Before(st.blockedUntil) {
			dec.ResetAt = st.blockedUntil
			dec.RetryAfter = st.blockedUntil.Sub(now)
			return dec
		}
		// bloqueio expirou: volta a ser Fresh
		delete(sh.entries, sk)
		ok = false
	}

	if !ok {
		st = &clientState{count: 1, windowResetAt: now.Add(policy.Window())}
		sh.entries[sk] = st
		return allow(dec, st, policy)
	}

	if !now.Before(st.windowResetAt) {
		st.count = 1
		st.windowResetAt = now.Add(policy.Window())
		return allow(dec, st, policy)
	}

	if st.count > policy.MaxRequests() {
		s.logger.DPanic("client state count above policy max",
			zap.String("key", string(key)),
			zap.String("policy", policy.Name()),
			zap.Int("count", st.count),
			zap.Int("max", policy.MaxRequests()),
		)
		st.count = policy.MaxRequests()
	}

	if st.count < policy.MaxRequests() {
		st.count++
		return allow(dec, st, policy)
	}

	if policy.Blocks() {
		until := now.Add(policy.BlockDuration())
		if until.Before(st.windowResetAt) {
			until = st.windowResetAt
		}
		st.blockedUntil = until
		dec.ResetAt = until
		dec.RetryAfter = until.Sub(now)
		return dec
	}

	// sem bloqueio: nega só esta requisição, a janela segue.
	dec.ResetAt = st.windowResetAt
	dec.RetryAfter = st.windowResetAt.Sub(now)
	return dec
}

func allow(dec domain.Decision, st *clientState, policy domain.Policy) domain.Decision {
	dec.Allowed = true
	dec.Remaining = policy.MaxRequests() - st.count
	dec.ResetAt = st.windowResetAt
	return dec
}

// Sweep remove as entradas cuja janela e bloqueio (se houver) já passaram.
// Retorna quantas foram removidas.
func (s *Store) Sweep(now time.Time) int {
	evicted := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		for k, st := range sh.entries {
			if st.expired(now) {
				delete(sh.entries, k)
				evicted++
			}
		}
		sh.mu.Unlock()
	}
	return evicted
}

func (st *clientState) expired(now time.Time) bool {
	if now.Before(st.windowResetAt) {
		return false
	}
	return st.blockedUntil.IsZero() || !now.Before(st.blockedUntil)
}

// Len retorna o número de entradas vivas.
func (s *Store) Len() int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		n += len(sh.entries)
		sh.mu.Unlock()
	}
	return n
}
