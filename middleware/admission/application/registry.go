package application

import (
	"errors"
	"fmt"
	"sort"

	"admission-gateway/middleware/admission/domain"
)

var errNoDefault = errors.New("registry requires a default policy")

// Registry resolve a policy de cada tier de rota. É montado na
// inicialização e só é lido depois disso.
type Registry struct {
	def   domain.Policy
	tiers map[string]domain.Policy
}

// NewRegistry registra def e tiers pelos seus nomes. Tags desconhecidas
// resolvem para def, nunca para "sem limite".
func NewRegistry(def domain.Policy, tiers ...domain.Policy) (*Registry, error) {
	if def.IsZero() {
		return nil, errNoDefault
	}
	r := &Registry{
		def:   def,
		tiers: map[string]domain.Policy{def.Name(): def},
	}
	for _, p := range tiers {
		if p.IsZero() {
			return nil, fmt.Errorf("registry: zero policy among tiers")
		}
		if _, ok := r.tiers[p.Name()]; ok {
			if p == def {
				continue
			}
			return nil, fmt.Errorf("registry: %q: %w", p.Name(), domain.ErrDuplicatePolicy)
		}
		r.tiers[p.Name()] = p
	}
	return r, nil
}

func (r *Registry) PolicyFor(tag string) domain.Policy {
	if p, ok := r.tiers[tag]; ok {
		return p
	}
	return r.def
}

func (r *Registry) Default() domain.Policy { return r.def }

// Names retorna os tiers registrados em ordem alfabética.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.tiers))
	for name := range r.tiers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
