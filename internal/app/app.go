// Package app monta o controle de admissão a partir da Config: Registry,
// Store, Sweeper, estatísticas opcionais e o Controller HTTP.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"admission-gateway/internal/config"
	"admission-gateway/middleware/admission"
	"admission-gateway/middleware/admission/application"
	"admission-gateway/middleware/admission/domain"
	"admission-gateway/middleware/admission/infra"
)

// Runtime é dono do Store e do Sweeper; a vida deles é a do processo.
type Runtime struct {
	Controller *admission.Controller
	Store      *infra.Store
	Sweeper    *infra.Sweeper
	Policies   *application.Registry

	// MemoryStats só é preenchido quando as estatísticas ficam em memória.
	MemoryStats *infra.MemoryStatsStore

	closers []func()
}

func Build(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Runtime, error) {
	reg, err := application.BuildRegistry(cfg.Admission.Tiers)
	if err != nil {
		return nil, fmt.Errorf("admission tiers: %w", err)
	}

	proxies, err := admission.ParseTrustedProxies(cfg.Admission.TrustedProxies)
	if err != nil {
		return nil, err
	}

	rt := &Runtime{Policies: reg}

	var stats domain.StatsStore
	switch {
	case cfg.Stats.Enabled && cfg.Stats.RedisAddr == "":
		mem := infra.NewMemoryStatsStore(infra.WithTrackKeys(cfg.Stats.TrackKeys))
		rt.MemoryStats = mem
		rt.closers = append(rt.closers, func() { logStats(logger, mem) })
		stats = mem

	case cfg.Stats.Enabled:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Stats.RedisAddr,
			Password: cfg.Stats.RedisPassword,
			DB:       cfg.Stats.RedisDB,
		})

		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("redis stats ping: %w", err)
		}
		rt.closers = append(rt.closers, func() { _ = rdb.Close() })

		redisStats := infra.NewRedisStatsStore(rdb,
			infra.WithStatsPrefix(cfg.Stats.Prefix),
			infra.WithStatsTTL(cfg.Stats.TTL),
			infra.WithStatsBucket(cfg.Stats.Bucket),
			infra.WithStatsTrackKeys(cfg.Stats.TrackKeys),
		)
		// Admit não faz I/O: as gravações no Redis saem por uma fila própria
		async := infra.NewAsyncStatsStore(redisStats,
			infra.WithStatsQueue(cfg.Stats.Queue),
			infra.WithStatsLogger(logger.Named("stats")),
		)
		rt.closers = append(rt.closers, async.Close)
		stats = async
	}

	rt.Store = infra.NewStore(
		infra.WithShards(cfg.Admission.Shards),
		infra.WithStoreLogger(logger.Named("store")),
	)
	rt.Sweeper = infra.NewSweeper(rt.Store,
		infra.WithSweepIdle(cfg.Admission.SweepIdle),
		infra.WithSweepBusy(cfg.Admission.SweepBusy),
		infra.WithSweepChurn(cfg.Admission.SweepChurn),
		infra.WithSweepLogger(logger.Named("sweeper")),
	)

	rt.Controller, err = admission.New(admission.Options{
		Store:    rt.Store,
		Policies: reg,
		Stats:    stats,
		Resolver: admission.Resolver{
			TrustForwarded: cfg.Admission.TrustForwarded,
			TrustedProxies: proxies,
		},
		Exemptions: admission.Exemptions{
			Prefixes:      cfg.Admission.ExemptPrefixes,
			AllowLoopback: cfg.Admission.DevMode,
		},
		Logger: logger.Named("admission"),
	})
	if err != nil {
		rt.Close()
		return nil, err
	}

	rt.Sweeper.Start(ctx)
	rt.closers = append(rt.closers, rt.Sweeper.Stop)
	return rt, nil
}

// Close para o Sweeper e fecha o cliente Redis, na ordem inversa.
func (rt *Runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
	rt.closers = nil
}

// LogTiers escreve a tabela de tiers ativa.
func (rt *Runtime) LogTiers(logger *zap.Logger) {
	for _, name := range rt.Policies.Names() {
		p := rt.Policies.PolicyFor(name)
		logger.Info("admission tier",
			zap.String("tier", p.Name()),
			zap.Int("max_requests", p.MaxRequests()),
			zap.Duration("window", p.Window()),
			zap.Duration("block", p.BlockDuration()),
			zap.Bool("default", p == rt.Policies.Default()),
		)
	}
}

func logStats(logger *zap.Logger, s *infra.MemoryStatsStore) {
	total := s.Total()
	logger.Info("admission stats",
		zap.Int64("allowed", total.Allowed),
		zap.Int64("denied", total.Denied),
	)
	for tier, c := range s.ByTier() {
		logger.Info("admission stats tier",
			zap.String("tier", tier),
			zap.Int64("allowed", c.Allowed),
			zap.Int64("denied", c.Denied),
		)
	}
}
