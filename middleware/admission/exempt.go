package admission

import (
	"net/http"
	"net/netip"
	"strings"
)

// Exemptions são predicados estáticos avaliados antes do motor. Prefixes
// casam por segmento de caminho.
//
// AllowLoopback só deve ser ligado fora de produção; ele olha o endereço
// do peer, não os headers encaminhados.
type Exemptions struct {
	Prefixes      []string
	AllowLoopback bool
}

func (e Exemptions) Match(r *http.Request) bool {
	path := r.URL.Path
	for _, p := range e.Prefixes {
		if matchPrefix(path, p) {
			return true
		}
	}

	if e.AllowLoopback {
		addr, err := netip.ParseAddr(peerHost(r.RemoteAddr))
		if err == nil && addr.Unmap().IsLoopback() {
			return true
		}
	}
	return false
}

// matchPrefix respeita segmentos: "/api/auth/verify" casa com ela mesma e
// com "/api/auth/verify/...", nunca com "/api/auth/verify-reset". Prefixo
// terminado em "/" casa com qualquer coisa abaixo dele.
func matchPrefix(path, p string) bool {
	switch {
	case p == "":
		return false
	case strings.HasSuffix(p, "/"):
		return strings.HasPrefix(path, p)
	default:
		return path == p || strings.HasPrefix(path, p+"/")
	}
}

// ParsePrefixes normaliza uma lista separada por vírgula de prefixos de rota.
func ParsePrefixes(list string) []string {
	var out []string
	for _, p := range strings.Split(list, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !strings.HasPrefix(p, "/") {
			p = "/" + p
		}
		out = append(out, p)
	}
	return out
}
