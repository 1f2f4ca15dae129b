package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-api-auth/internal/config"
	"github.com/go-api-auth/internal/domain"
	jwtinfra "github.com/go-api-auth/internal/infrastructure/jwt"
	"github.com/go-api-auth/internal/transport/http/handler"
	appmiddleware "github.com/go-api-auth/internal/transport/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/time/rate"
)

type mockAuthSvc struct{ mock.Mock }

func (m *mockAuthSvc) RegisterEmail(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

func (m *mockAuthSvc) Signup(ctx context.Context, req domain.SignupRequest) (*domain.TokenPair, error) {
	args := m.Called(ctx, req)
	p, _ := args.Get(0).(*domain.TokenPair)
	return p, args.Error(1)
}

func (m *mockAuthSvc) Signin(ctx context.Context, req domain.SigninRequest) (*domain.TokenPair, error) {
	args := m.Called(ctx, req)
	p, _ := args.Get(0).(*domain.TokenPair)
	return p, args.Error(1)
}

func (m *mockAuthSvc) Authenticate(ctx context.Context, token string) (*domain.User, *jwtinfra.Claims, error) {
	args := m.Called(ctx, token)
	u, _ := args.Get(0).(*domain.User)
	c, _ := args.Get(1).(*jwtinfra.Claims)
	return u, c, args.Error(2)
}

func (m *mockAuthSvc) Refresh(ctx context.Context, token string) (*domain.TokenPair, error) {
	args := m.Called(ctx, token)
	p, _ := args.Get(0).(*domain.TokenPair)
	return p, args.Error(1)
}

func (m *mockAuthSvc) Logout(ctx context.Context, claims *jwtinfra.Claims) error {
	return m.Called(ctx, claims).Error(0)
}

func newTestRouter(t *testing.T, svc *mockAuthSvc) http.Handler {
	t.Helper()
	rl := appmiddleware.NewRateLimiter(rate.Limit(1000), 1000)
	t.Cleanup(rl.Stop)
	return NewRouter(&config.Config{AllowedOrigins: []string{"*"}}, &Deps{
		Auth:    svc,
		Checks:  map[string]handler.Pinger{},
		Limiter: rl,
	})
}

func TestRouter_Health(t *testing.T) {
	rr := httptest.NewRecorder()
	newTestRouter(t, &mockAuthSvc{}).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRouter_LogoutNeedsBearer(t *testing.T) {
	svc := &mockAuthSvc{}
	rr := httptest.NewRecorder()
	newTestRouter(t, svc).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/user/auth/logout", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	svc.AssertNotCalled(t, "Logout", mock.Anything, mock.Anything)
}

func TestRouter_MeWithRevokedToken(t *testing.T) {
	svc := &mockAuthSvc{}
	svc.On("Authenticate", mock.Anything, "tok").Return(nil, nil, domain.ErrTokenRevoked)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/user/me", nil)
	req.Header.Set("Authorization", "Bearer tok")
	rr := httptest.NewRecorder()
	newTestRouter(t, svc).ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRouter_Signin(t *testing.T) {
	svc := &mockAuthSvc{}
	svc.On("Signin", mock.Anything, domain.SigninRequest{Email: "a@x.com", Password: "Abcdef12"}).
		Return(&domain.TokenPair{AccessToken: "a", RefreshToken: "r"}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/user/auth/signin",
		strings.NewReader(`{"email":"a@x.com","password":"Abcdef12"}`))
	rr := httptest.NewRecorder()
	newTestRouter(t, svc).ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"access_token":"a","refresh_token":"r"}`, rr.Body.String())
}

func TestRouter_UnknownRoute(t *testing.T) {
	rr := httptest.NewRecorder()
	newTestRouter(t, &mockAuthSvc{}).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/users", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
