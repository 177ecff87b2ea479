package domain

import "time"

// Decision é o resultado de uma avaliação de admissão.
type Decision struct {
	Allowed bool
	// Exempt indica que a requisição casou com uma regra de isenção e o
	// motor nem foi consultado. Nesse caso os demais campos ficam zerados.
	Exempt bool

	Key    ClientKey
	Policy string

	Limit     int
	Remaining int
	ResetAt   time.Time

	// RetryAfter só é preenchido quando Allowed == false.
	RetryAfter time.Duration
}

// RetryAfterSeconds arredonda RetryAfter para cima, com mínimo de 1 segundo.
// Retorna 0 para decisões permitidas.
func (d Decision) RetryAfterSeconds() int {
	if d.Allowed {
		return 0
	}
	return CeilSeconds(d.RetryAfter)
}

// CeilSeconds converte d em segundos inteiros arredondando para cima (mínimo 1).
func CeilSeconds(d time.Duration) int {
	if d <= 0 {
		return 1
	}
	s := int(d / time.Second)
	if d%time.Second != 0 {
		s++
	}
	return s
}
