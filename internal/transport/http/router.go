package http

import (
	"net/http"

	"github.com/go-api-auth/internal/config"
	"github.com/go-api-auth/internal/transport/http/handler"
	appmiddleware "github.com/go-api-auth/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	sensitiveRL := deps.Limiter
	if sensitiveRL == nil {
		// 5 requests/second, burst of 10, on the credential endpoints.
		sensitiveRL = appmiddleware.NewRateLimiter(rate.Limit(5), 10)
	}
	authMw := appmiddleware.Auth(deps.Auth)

	healthH := handler.NewHealthHandler(deps.Checks)
	authH := handler.NewAuthHandler(deps.Auth)

	r.Get("/health", healthH.Health)

	r.Route("/api/v1/user", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(sensitiveRL.Limit).Post("/email", authH.RegisterEmail)
			r.With(sensitiveRL.Limit).Post("/signup", authH.Signup)
			r.With(sensitiveRL.Limit).Post("/signin", authH.Signin)
			r.Post("/refresh", authH.Refresh)
			r.With(authMw).Post("/logout", authH.Logout)
		})

		r.With(authMw).Get("/me", authH.Me)
	})

	return r
}
