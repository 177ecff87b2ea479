package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"admission-gateway/internal/config"
	"admission-gateway/middleware/admission"
	"admission-gateway/middleware/admission/application"
)

// Router escolhe o tier de cada rota e encaminha para next:
//
//	{AuthPrefix}/*       -> auth
//	{PublicReadPrefix}/* -> public-read para GET/HEAD, general para o resto
//	/*                   -> general
//
// Prefixo vazio desliga a rota correspondente. Tiers ausentes no perfil
// (ex: public-read no cms) caem no default do Registry.
func Router(rt *Runtime, next http.Handler, cfg config.Config, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(admission.ConcurrencyMiddleware(admission.ConcurrencyOptions{
		Max:            cfg.Concurrency.Max,
		RejectStatus:   http.StatusServiceUnavailable,
		AcquireTimeout: cfg.Concurrency.Timeout,
		Logger:         logger.Named("concurrency"),
	}))

	general := rt.Controller.Middleware(application.TierGeneral)(next)

	if p := cfg.Admission.AuthPrefix; p != "" {
		auth := rt.Controller.Middleware(application.TierAuth)(next)
		r.Handle(p, auth)
		r.Handle(p+"/*", auth)
	}

	if p := cfg.Admission.PublicReadPrefix; p != "" {
		read := rt.Controller.Middleware(application.TierPublicRead)(next)
		byMethod := http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if req.Method == http.MethodGet || req.Method == http.MethodHead {
				read.ServeHTTP(w, req)
				return
			}
			general.ServeHTTP(w, req)
		})
		r.Handle(p, byMethod)
		r.Handle(p+"/*", byMethod)
	}

	r.Handle("/*", general)
	return r
}
