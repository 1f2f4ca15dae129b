package http

import (
	"github.com/go-api-auth/internal/application/auth"
	"github.com/go-api-auth/internal/transport/http/handler"
	appmiddleware "github.com/go-api-auth/internal/transport/http/middleware"
)

// Deps holds everything the router needs. Checks are pinged by GET /health.
type Deps struct {
	Auth    auth.Service
	Checks  map[string]handler.Pinger
	Limiter *appmiddleware.RateLimiter // optional; a 5 req/s, burst 10 limiter is created when nil
}
