// Package config centraliza o carregamento de configuração dos binários.
//
// Os valores vêm do ambiente; um arquivo .env no diretório corrente é
// carregado antes, sem sobrescrever variáveis já definidas.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"admission-gateway/middleware/admission"
	"admission-gateway/middleware/admission/application"
	"admission-gateway/middleware/admission/infra"
)

type Config struct {
	ListenAddr  string
	UpstreamURL string
	LogLevel    string
	Production  bool

	Admission   AdmissionConfig
	Concurrency ConcurrencyConfig
	Stats       StatsConfig
}

type AdmissionConfig struct {
	Profile        application.Profile
	Tiers          []application.TierSpec
	DevMode        bool
	ExemptPrefixes []string
	TrustForwarded bool
	TrustedProxies string

	// prefixes de rota que selecionam os tiers auth e public-read
	AuthPrefix       string
	PublicReadPrefix string

	Shards     int
	SweepIdle  time.Duration
	SweepBusy  time.Duration
	SweepChurn int
}

type ConcurrencyConfig struct {
	Max     int
	Timeout time.Duration
}

// StatsConfig sem RedisAddr mantém as contagens em memória.
type StatsConfig struct {
	Enabled       bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	Prefix        string
	TTL           time.Duration
	Bucket        string
	TrackKeys     bool
	Queue         int
}

// Load lê a configuração. defaultListen e requireUpstream variam por binário.
func Load(defaultListen string, requireUpstream bool) (Config, error) {
	_ = godotenv.Load()

	cfg := Config{}
	cfg.ListenAddr = getenvDefault("LISTEN_ADDR", defaultListen)
	cfg.UpstreamURL = os.Getenv("UPSTREAM_URL")
	cfg.LogLevel = getenvDefault("LOG_LEVEL", "info")
	cfg.Production = strings.EqualFold(getenvDefault("APP_ENV", "production"), "production")

	profile, err := application.ParseProfile(os.Getenv("ADMISSION_PROFILE"))
	if err != nil {
		return Config{}, err
	}
	tiers, err := tierOverrides(application.PresetTiers(profile))
	if err != nil {
		return Config{}, err
	}

	// loopback isento só fora de produção, a não ser que forçado
	cfg.Admission = AdmissionConfig{
		Profile:          profile,
		Tiers:            tiers,
		DevMode:          getenvBoolDefault("ADMISSION_DEV_MODE", !cfg.Production),
		ExemptPrefixes:   admission.ParsePrefixes(os.Getenv("ADMISSION_EXEMPT_PREFIXES")),
		TrustForwarded:   getenvBoolDefault("ADMISSION_TRUST_FORWARDED", true),
		TrustedProxies:   os.Getenv("ADMISSION_TRUSTED_PROXIES"),
		AuthPrefix:       routePrefix(getenvDefault("ADMISSION_AUTH_PREFIX", "/api/auth")),
		PublicReadPrefix: routePrefix(getenvDefault("ADMISSION_PUBLIC_READ_PREFIX", "/api/public")),
		Shards:           getenvIntDefault("ADMISSION_SHARDS", 32),
		SweepIdle:        getenvDurationDefault("ADMISSION_SWEEP_IDLE", infra.DefaultSweepIdle),
		SweepBusy:        getenvDurationDefault("ADMISSION_SWEEP_BUSY", infra.DefaultSweepBusy),
		SweepChurn:       getenvIntDefault("ADMISSION_SWEEP_CHURN", infra.DefaultSweepChurn),
	}
	if cfg.Production && cfg.Admission.DevMode {
		return Config{}, errors.New("ADMISSION_DEV_MODE cannot be enabled with APP_ENV=production")
	}

	cfg.Concurrency = ConcurrencyConfig{
		Max:     getenvIntDefault("CONCURRENCY_MAX", 100),
		Timeout: getenvDurationDefault("CONCURRENCY_TIMEOUT", 0),
	}

	cfg.Stats = StatsConfig{
		Enabled:       getenvBoolDefault("ADMISSION_STATS_ENABLED", false),
		RedisAddr:     os.Getenv("ADMISSION_STATS_REDIS_ADDR"),
		RedisPassword: os.Getenv("ADMISSION_STATS_REDIS_PASSWORD"),
		RedisDB:       getenvIntDefault("ADMISSION_STATS_REDIS_DB", 0),
		Prefix:        getenvDefault("ADMISSION_STATS_PREFIX", "admission:stats"),
		TTL:           getenvDurationDefault("ADMISSION_STATS_TTL", 24*time.Hour),
		Bucket:        getenvDefault("ADMISSION_STATS_BUCKET", "minute"),
		TrackKeys:     getenvBoolDefault("ADMISSION_STATS_TRACK_KEYS", false),
		Queue:         getenvIntDefault("ADMISSION_STATS_QUEUE", infra.DefaultStatsQueue),
	}

	if requireUpstream && cfg.UpstreamURL == "" {
		return Config{}, errors.New("UPSTREAM_URL is required")
	}
	if cfg.Concurrency.Max < 0 {
		return Config{}, errors.New("CONCURRENCY_MAX must be >= 0")
	}
	if cfg.Admission.Shards <= 0 {
		return Config{}, errors.New("ADMISSION_SHARDS must be > 0")
	}
	return cfg, nil
}

// tierOverrides aplica ADMISSION_<TIER>_MAX_REQUESTS, _WINDOW e _BLOCK.
// Valor malformado é erro (ao contrário dos outros getenv*, que caem no default):
// um tier mal configurado precisa derrubar a inicialização.
func tierOverrides(specs []application.TierSpec) ([]application.TierSpec, error) {
	out := make([]application.TierSpec, len(specs))
	copy(out, specs)

	for i := range out {
		prefix := "ADMISSION_" + envName(out[i].Name) + "_"

		if v, ok := lookup(prefix + "MAX_REQUESTS"); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("invalid %sMAX_REQUESTS: %w", prefix, err)
			}
			out[i].MaxRequests = n
		}
		if v, ok := lookup(prefix + "WINDOW"); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				return nil, fmt.Errorf("invalid %sWINDOW: %w", prefix, err)
			}
			out[i].Window = d
		}
		if v, ok := lookup(prefix + "BLOCK"); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				return nil, fmt.Errorf("invalid %sBLOCK: %w", prefix, err)
			}
			out[i].BlockDuration = d
		}
	}
	return out, nil
}

func routePrefix(p string) string {
	p = "/" + strings.Trim(strings.TrimSpace(p), "/")
	if p == "/" {
		return ""
	}
	return p
}

func envName(tier string) string {
	return strings.ToUpper(strings.ReplaceAll(tier, "-", "_"))
}

func lookup(k string) (string, bool) {
	v, ok := os.LookupEnv(k)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func getenvDefault(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getenvIntDefault(k string, def int) int {
	v, ok := lookup(k)
	if !ok {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getenvBoolDefault(k string, def bool) bool {
	v, ok := lookup(k)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getenvDurationDefault(k string, def time.Duration) time.Duration {
	v, ok := lookup(k)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
