package admission

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"

	"admission-gateway/middleware/admission/domain"
)

const (
	HeaderForwardedFor = "X-Forwarded-For"
	HeaderRealIP       = "X-Real-IP"

	UnknownClient domain.ClientKey = "unknown"
)

type KeyFunc func(r *http.Request) domain.ClientKey

// Resolver deriva a chave do cliente. Ordem: primeiro endereço do
// X-Forwarded-For, X-Real-IP, endereço do peer, "unknown". Nunca falha.
//
// Os headers só são considerados com TrustForwarded. Se TrustedProxies não
// estiver vazio, só são considerados quando o peer está em uma dessas redes;
// sem essa lista qualquer cliente direto consegue forjar a própria chave.
type Resolver struct {
	TrustForwarded bool
	TrustedProxies []netip.Prefix
}

func (res Resolver) Resolve(r *http.Request) domain.ClientKey {
	peer := peerHost(r.RemoteAddr)

	if res.TrustForwarded && res.trusts(peer) {
		// pega o primeiro IP do X-Forwarded-For (cliente original)
		if xff := r.Header.Get(HeaderForwardedFor); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return domain.ClientKey(ip)
			}
		}
		if ip := strings.TrimSpace(r.Header.Get(HeaderRealIP)); ip != "" {
			return domain.ClientKey(ip)
		}
	}

	if peer != "" {
		return domain.ClientKey(peer)
	}
	return UnknownClient
}

// KeyFunc adapta o Resolver para o tipo aceito em Options.
func (res Resolver) KeyFunc() KeyFunc { return res.Resolve }

func (res Resolver) trusts(peer string) bool {
	if len(res.TrustedProxies) == 0 {
		return true
	}
	addr, err := netip.ParseAddr(peer)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range res.TrustedProxies {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

func peerHost(remoteAddr string) string {
	remoteAddr = strings.TrimSpace(remoteAddr)
	if remoteAddr == "" {
		return ""
	}
	host, _, err := net.SplitHostPort(remoteAddr)
	if err == nil && host != "" {
		return host
	}
	return remoteAddr
}

// ParseTrustedProxies aceita uma lista separada por vírgula de IPs ou CIDRs.
func ParseTrustedProxies(list string) ([]netip.Prefix, error) {
	var out []netip.Prefix
	for _, item := range strings.Split(list, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if strings.Contains(item, "/") {
			p, err := netip.ParsePrefix(item)
			if err != nil {
				return nil, fmt.Errorf("invalid trusted proxy %q: %w", item, err)
			}
			out = append(out, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(item)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", item, err)
		}
		addr = addr.Unmap()
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, nil
}
