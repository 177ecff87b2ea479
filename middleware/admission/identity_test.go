package admission

import (
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"
)

func TestResolver_ForwardedForUsesFirstIP(t *testing.T) {
	res := Resolver{TrustForwarded: true}

	r := httptest.NewRequest(http.MethodGet, "http://example/", nil)
	r.RemoteAddr = "10.0.0.9:5555"
	r.Header.Set(HeaderForwardedFor, " 1.2.3.4 , 5.6.7.8")
	r.Header.Set(HeaderRealIP, "9.9.9.9")

	if got := res.Resolve(r); got != "1.2.3.4" {
		t.Fatalf("expected first XFF ip, got %q", got)
	}
}

func TestResolver_RealIPWhenNoForwardedFor(t *testing.T) {
	res := Resolver{TrustForwarded: true}

	r := httptest.NewRequest(http.MethodGet, "http://example/", nil)
	r.RemoteAddr = "10.0.0.9:5555"
	r.Header.Set(HeaderRealIP, " 9.9.9.9 ")

	if got := res.Resolve(r); got != "9.9.9.9" {
		t.Fatalf("expected X-Real-IP, got %q", got)
	}
}

func TestResolver_FallbacksToRemoteAddrHost(t *testing.T) {
	res := Resolver{TrustForwarded: true}

	r := httptest.NewRequest(http.MethodGet, "http://example/", nil)
	r.RemoteAddr = "[::1]:5555"

	if got := res.Resolve(r); got != "::1" {
		t.Fatalf("expected remote host, got %q", got)
	}
}

func TestResolver_UnknownWhenNothingPresent(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "http://example/", nil)
	r.RemoteAddr = ""

	if got := (Resolver{TrustForwarded: true}).Resolve(r); got != UnknownClient {
		t.Fatalf("expected %q, got %q", UnknownClient, got)
	}
}

func TestResolver_IgnoresHeadersWhenNotTrusted(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "http://example/", nil)
	r.RemoteAddr = "10.0.0.9:5555"
	r.Header.Set(HeaderForwardedFor, "1.2.3.4")

	if got := (Resolver{}).Resolve(r); got != "10.0.0.9" {
		t.Fatalf("expected peer address, got %q", got)
	}
}

func TestResolver_TrustedProxies(t *testing.T) {
	proxies, err := ParseTrustedProxies("10.0.0.0/8, 192.168.1.1")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	res := Resolver{TrustForwarded: true, TrustedProxies: proxies}

	fromProxy := httptest.NewRequest(http.MethodGet, "http://example/", nil)
	fromProxy.RemoteAddr = "10.1.2.3:80"
	fromProxy.Header.Set(HeaderForwardedFor, "1.2.3.4")
	if got := res.Resolve(fromProxy); got != "1.2.3.4" {
		t.Fatalf("expected forwarded ip from trusted proxy, got %q", got)
	}

	direct := httptest.NewRequest(http.MethodGet, "http://example/", nil)
	direct.RemoteAddr = "203.0.113.7:80"
	direct.Header.Set(HeaderForwardedFor, "1.2.3.4")
	if got := res.Resolve(direct); got != "203.0.113.7" {
		t.Fatalf("expected spoofed header to be ignored, got %q", got)
	}
}

func TestParseTrustedProxies(t *testing.T) {
	got, err := ParseTrustedProxies(" 10.1.2.3/8 ,, ::ffff:127.0.0.1 ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []netip.Prefix{
		netip.MustParsePrefix("10.0.0.0/8"),
		netip.MustParsePrefix("127.0.0.1/32"),
	}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("expected %v, got %v", want, got)
	}

	if _, err := ParseTrustedProxies("not-an-ip"); err == nil {
		t.Fatalf("expected error for invalid entry")
	}
}
