package application

import (
	"time"

	"admission-gateway/middleware/admission/domain"
)

// Evaluator é o store de estado por cliente visto pela camada de aplicação.
type Evaluator interface {
	Evaluate(key domain.ClientKey, policy domain.Policy, now time.Time) domain.Decision
}

// Service concentra a regra de aplicação da admissão: resolve a policy do
// tier e delega a transição de estado ao store.
//
// Ele não sabe nada sobre HTTP (headers/status), apenas retorna uma decisão.
type Service struct {
	Store    Evaluator
	Policies *Registry
	Clock    domain.Clock
}

// notWiredRetry é o retry da negação quando o Service não tem Store ou Policies.
const notWiredRetry = time.Second

// Decide nunca falha aberto: sem Store ou Policies a requisição é negada.
func (s Service) Decide(key domain.ClientKey, routeTag string) domain.Decision {
	now := time.Now()
	if s.Clock != nil {
		now = s.Clock.Now()
	}
	if s.Store == nil || s.Policies == nil {
		return domain.Decision{
			Key:        key,
			Policy:     routeTag,
			ResetAt:    now.Add(notWiredRetry),
			RetryAfter: notWiredRetry,
		}
	}
	return s.Store.Evaluate(key, s.Policies.PolicyFor(routeTag), now)
}
