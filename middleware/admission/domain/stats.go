package domain

import (
	"context"
	"time"
)

// StatsEvent representa uma decisão de admissão já tomada.
//
// Observação: cuidado com cardinalidade. Key e Path sem controle podem
// explodir o número de chaves em uma base como Redis.
type StatsEvent struct {
	Key     ClientKey
	Policy  string
	Allowed bool

	Method string
	Path   string

	At time.Time
}

// StatsStore persiste estatísticas das decisões.
// O middleware trata erro como best-effort (não derruba request).
type StatsStore interface {
	Record(ctx context.Context, ev StatsEvent) error
}
