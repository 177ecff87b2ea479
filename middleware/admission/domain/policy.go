package domain

import (
	"fmt"
	"strings"
	"time"
)

// ClientKey identifica o cliente (normalmente o IP). Vários clientes atrás do
// mesmo NAT compartilham a mesma chave.
type ClientKey string

// Policy descreve um tier de admissão. É imutável depois de construída:
// os campos são privados e só podem ser lidos pelos acessores.
type Policy struct {
	name          string
	maxRequests   int
	window        time.Duration
	blockDuration time.Duration
}

// NewPolicy valida e constrói uma Policy.
//
// blockDuration == 0 desliga o bloqueio: estourar a cota nega apenas a
// requisição corrente e a janela seguinte começa do zero.
func NewPolicy(name string, maxRequests int, window, blockDuration time.Duration) (Policy, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Policy{}, ErrEmptyPolicyName
	}
	if maxRequests <= 0 {
		return Policy{}, fmt.Errorf("policy %q: %w (got %d)", name, ErrInvalidMaxRequests, maxRequests)
	}
	if window <= 0 {
		return Policy{}, fmt.Errorf("policy %q: %w (got %s)", name, ErrInvalidWindow, window)
	}
	if blockDuration < 0 {
		return Policy{}, fmt.Errorf("policy %q: %w (got %s)", name, ErrInvalidBlockDuration, blockDuration)
	}
	return Policy{
		name:          name,
		maxRequests:   maxRequests,
		window:        window,
		blockDuration: blockDuration,
	}, nil
}

// MustPolicy é NewPolicy para valores conhecidos em tempo de compilação.
func MustPolicy(name string, maxRequests int, window, blockDuration time.Duration) Policy {
	p, err := NewPolicy(name, maxRequests, window, blockDuration)
	if err != nil {
		panic(err)
	}
	return p
}

func (p Policy) Name() string                 { return p.name }
func (p Policy) MaxRequests() int             { return p.maxRequests }
func (p Policy) Window() time.Duration        { return p.window }
func (p Policy) BlockDuration() time.Duration { return p.blockDuration }
func (p Policy) Blocks() bool                 { return p.blockDuration > 0 }

// IsZero reporta se p é o valor zero (nunca passou por NewPolicy).
func (p Policy) IsZero() bool { return p.name == "" }

func (p Policy) String() string {
	return fmt.Sprintf("%s(max=%d window=%s block=%s)", p.name, p.maxRequests, p.window, p.blockDuration)
}
