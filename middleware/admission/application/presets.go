package application

import (
	"fmt"
	"strings"
	"time"

	"admission-gateway/middleware/admission/domain"
)

const (
	TierGeneral    = "general"
	TierAuth       = "auth"
	TierPublicRead = "public-read"
)

// Profile seleciona a tabela de tiers de um serviço.
type Profile string

const (
	ProfileCMS    Profile = "cms"
	ProfilePublic Profile = "public"
)

// TierSpec são os valores crus de um tier, antes da validação de NewPolicy.
// O binário aplica overrides de ambiente sobre eles.
type TierSpec struct {
	Name          string
	MaxRequests   int
	Window        time.Duration
	BlockDuration time.Duration
}

func ParseProfile(s string) (Profile, error) {
	switch p := Profile(strings.ToLower(strings.TrimSpace(s))); p {
	case ProfileCMS, ProfilePublic:
		return p, nil
	case "":
		return ProfilePublic, nil
	default:
		return "", fmt.Errorf("unknown admission profile %q (want %q or %q)", s, ProfileCMS, ProfilePublic)
	}
}

// PresetTiers retorna os tiers padrão do perfil. O primeiro é sempre general.
func PresetTiers(p Profile) []TierSpec {
	auth := TierSpec{Name: TierAuth, MaxRequests: 10, Window: 15 * time.Minute, BlockDuration: 30 * time.Minute}

	if p == ProfileCMS {
		return []TierSpec{
			{Name: TierGeneral, MaxRequests: 5000, Window: time.Hour, BlockDuration: 5 * time.Minute},
			auth,
		}
	}
	return []TierSpec{
		{Name: TierGeneral, MaxRequests: 100, Window: 15 * time.Minute, BlockDuration: 10 * time.Minute},
		auth,
		{Name: TierPublicRead, MaxRequests: 200, Window: time.Minute, BlockDuration: 0},
	}
}

// BuildRegistry valida specs e monta o Registry. O tier general (ou, na
// falta dele, o primeiro) vira o default.
func BuildRegistry(specs []TierSpec) (*Registry, error) {
	if len(specs) == 0 {
		return nil, errNoDefault
	}

	policies := make([]domain.Policy, 0, len(specs))
	def := -1
	for i, s := range specs {
		p, err := domain.NewPolicy(s.Name, s.MaxRequests, s.Window, s.BlockDuration)
		if err != nil {
			return nil, err
		}
		if p.Name() == TierGeneral {
			def = i
		}
		policies = append(policies, p)
	}
	if def < 0 {
		def = 0
	}

	rest := make([]domain.Policy, 0, len(policies)-1)
	rest = append(rest, policies[:def]...)
	rest = append(rest, policies[def+1:]...)
	return NewRegistry(policies[def], rest...)
}
