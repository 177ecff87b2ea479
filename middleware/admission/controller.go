package admission

import (
	"errors"
	"net/http"
	"time"

	"admission-gateway/middleware/admission/application"
	"admission-gateway/middleware/admission/domain"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type Options struct {
	// Store e Policies são obrigatórios.
	Store    application.Evaluator
	Policies *application.Registry

	Clock domain.Clock

	// Stats é chamado dentro de Admit e não pode bloquear; destinos com
	// I/O devem vir embrulhados em infra.AsyncStatsStore.
	Stats domain.StatsStore

	KeyFn      KeyFunc
	Resolver   Resolver
	Exemptions Exemptions
	Logger     *zap.Logger

	// DenyLogInterval limita os logs de negação (padrão 1s).
	DenyLogInterval time.Duration
}

// Controller compõe isenções, resolução do cliente, Registry e Store numa
// única chamada por requisição.
type Controller struct {
	svc     application.Service
	keyFn   KeyFunc
	exempt  Exemptions
	stats   domain.StatsStore
	clock   domain.Clock
	logger  *zap.Logger
	denyLog *rate.Sometimes
}

func New(opts Options) (*Controller, error) {
	if opts.Store == nil {
		return nil, errors.New("admission: store is required")
	}
	if opts.Policies == nil {
		return nil, errors.New("admission: policy registry is required")
	}
	if opts.Clock == nil {
		opts.Clock = domain.ClockFunc(time.Now)
	}
	if opts.KeyFn == nil {
		opts.KeyFn = opts.Resolver.KeyFunc()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.DenyLogInterval <= 0 {
		opts.DenyLogInterval = time.Second
	}

	return &Controller{
		svc: application.Service{
			Store:    opts.Store,
			Policies: opts.Policies,
			Clock:    opts.Clock,
		},
		keyFn:   opts.KeyFn,
		exempt:  opts.Exemptions,
		stats:   opts.Stats,
		clock:   opts.Clock,
		logger:  opts.Logger,
		denyLog: &rate.Sometimes{First: 1, Interval: opts.DenyLogInterval},
	}, nil
}

// Admit decide a requisição r no tier routeTag. Nunca falha: requisições
// isentas voltam com Exempt e Allowed ligados, sem tocar no Store.
func (c *Controller) Admit(r *http.Request, routeTag string) domain.Decision {
	if c.exempt.Match(r) {
		return domain.Decision{Allowed: true, Exempt: true}
	}

	key := c.keyFn(r)
	dec := c.svc.Decide(key, routeTag)

	if c.stats != nil {
		err := c.stats.Record(r.Context(), domain.StatsEvent{
			Key:     dec.Key,
			Policy:  dec.Policy,
			Allowed: dec.Allowed,
			Method:  r.Method,
			Path:    r.URL.Path,
			At:      c.clock.Now(),
		})
		if err != nil {
			c.logger.Warn("admission stats record failed", zap.Error(err))
		}
	}

	if !dec.Allowed {
		c.denyLog.Do(func() {
			c.logger.Info("admission denied",
				zap.String("key", string(dec.Key)),
				zap.String("policy", dec.Policy),
				zap.Int("retry_after_s", dec.RetryAfterSeconds()),
				zap.String("path", r.URL.Path),
			)
		})
	}
	return dec
}

// Middleware aplica Admit com o tier routeTag e traduz a decisão para HTTP.
func (c *Controller) Middleware(routeTag string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			dec := c.Admit(r, routeTag)
			if dec.Exempt {
				next.ServeHTTP(w, r)
				return
			}

			writeQuotaHeaders(w, dec)
			if !dec.Allowed {
				writeTooManyRequests(w, dec)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
