package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"admission-gateway/middleware/admission/application"
)

func TestRouter_SelectsTierByPath(t *testing.T) {
	cfg := baseConfig()
	cfg.Admission.AuthPrefix = "/api/auth"
	cfg.Admission.PublicReadPrefix = "/api/public"

	rt, err := Build(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer rt.Close()

	h := Router(rt, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}), cfg, zap.NewNop())

	cases := []struct {
		method, path string
		wantLimit    string
	}{
		{http.MethodPost, "/api/auth/login", "10"},
		{http.MethodGet, "/api/public/products", "200"},
		{http.MethodPost, "/api/public/orders", "100"},
		{http.MethodGet, "/anything/else", "100"},
	}
	for _, tc := range cases {
		r := httptest.NewRequest(tc.method, "http://example"+tc.path, nil)
		r.RemoteAddr = "10.0.0.1:1"
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)

		require.Equal(t, http.StatusOK, w.Code, tc.path)
		assert.Equal(t, tc.wantLimit, w.Header().Get("X-RateLimit-Limit"), "%s %s", tc.method, tc.path)
	}
}

func TestRouter_ExemptPrefixBypassesAuthTier(t *testing.T) {
	cfg := baseConfig()
	cfg.Admission.AuthPrefix = "/api/auth"

	rt, err := Build(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer rt.Close()

	h := Router(rt, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}), cfg, zap.NewNop())

	for i := 0; i < 20; i++ {
		r := httptest.NewRequest(http.MethodGet, "http://example/api/auth/verify", nil)
		r.RemoteAddr = "10.0.0.1:1"
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		require.Equal(t, http.StatusOK, w.Code)
	}
	assert.Equal(t, 0, rt.Store.Len())
	assert.Equal(t, application.TierAuth, rt.Policies.PolicyFor(application.TierAuth).Name())
}
