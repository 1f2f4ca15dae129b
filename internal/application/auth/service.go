package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strconv"
	"time"

	"github.com/go-api-auth/internal/domain"
	jwtinfra "github.com/go-api-auth/internal/infrastructure/jwt"
	"github.com/go-api-auth/internal/pkg/id"
	"github.com/go-api-auth/internal/pkg/password"
)

const (
	refreshKeyPrefix = "user-refresh-"
	// Upsert retries when a random code collides with another email's code.
	maxCodeAttempts = 10
	// Subject claim carried by every minted token.
	tokenSubject = "access"
)

// StateStore is the key/value store holding the access blacklist and the
// per-user active refresh sets. Each call is atomic for its key.
type StateStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	AddToSet(ctx context.Context, key, member string) error
	SetContains(ctx context.Context, key, member string) (bool, error)
	// RemoveFromSet reports whether member was present and removed.
	RemoveFromSet(ctx context.Context, key, member string) (bool, error)
}

type TokenCodec interface {
	MintPayload(userID int64, kind domain.TokenKind, opts ...jwtinfra.MintOption) *jwtinfra.Claims
	Encode(cl *jwtinfra.Claims) (string, error)
	Decode(token string) (*jwtinfra.Claims, error)
	AccessTTL() time.Duration
}

// TaskPublisher enqueues notification tasks for the worker.
type TaskPublisher interface {
	Publish(ctx context.Context, t domain.Task) error
}

type Service interface {
	RegisterEmail(ctx context.Context, email string) error
	Signup(ctx context.Context, req domain.SignupRequest) (*domain.TokenPair, error)
	Signin(ctx context.Context, req domain.SigninRequest) (*domain.TokenPair, error)
	Authenticate(ctx context.Context, accessToken string) (*domain.User, *jwtinfra.Claims, error)
	Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error)
	Logout(ctx context.Context, claims *jwtinfra.Claims) error
}

// ServiceDeps groups all dependencies for the auth service.
type ServiceDeps struct {
	Repos      domain.Repositories
	State      StateStore
	Codec      TokenCodec
	Hasher     password.Hasher
	Tasks      TaskPublisher
	CodeLength int
	CodeTTL    time.Duration
}

type service struct {
	repos      domain.Repositories
	state      StateStore
	codec      TokenCodec
	hasher     password.Hasher
	tasks      TaskPublisher
	codeLength int
	codeTTL    time.Duration
	now        func() time.Time
}

func NewService(deps ServiceDeps) Service {
	s := &service{
		repos:      deps.Repos,
		state:      deps.State,
		codec:      deps.Codec,
		hasher:     deps.Hasher,
		tasks:      deps.Tasks,
		codeLength: deps.CodeLength,
		codeTTL:    deps.CodeTTL,
		now:        time.Now,
	}
	if s.codeLength <= 0 || s.codeLength > 9 {
		s.codeLength = 6
	}
	if s.codeTTL <= 0 {
		s.codeTTL = 15 * time.Minute
	}
	return s
}

func refreshKey(userID int64) string {
	return refreshKeyPrefix + strconv.FormatInt(userID, 10)
}

func (s *service) RegisterEmail(ctx context.Context, email string) error {
	if err := s.ensureNoUser(ctx, s.repos, email); err != nil {
		return err
	}

	var code int
	for attempt := 1; ; attempt++ {
		var err error
		code, err = s.newCode()
		if err != nil {
			return err
		}
		err = s.repos.VerificationCodes().Upsert(ctx, &domain.VerificationCode{
			Email:     email,
			Code:      code,
			ExpiresAt: s.now().Add(s.codeTTL).Unix(),
		})
		if err == nil {
			break
		}
		if !errors.Is(err, domain.ErrConflict) || attempt == maxCodeAttempts {
			return err
		}
	}

	if err := s.enqueue(ctx, domain.TaskSendVerificationCode, email, code); err != nil {
		return fmt.Errorf("queue verification code: %w", err)
	}
	return nil
}

func (s *service) Signup(ctx context.Context, req domain.SignupRequest) (*domain.TokenPair, error) {
	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	var (
		pair *domain.TokenPair
		user *domain.User
	)
	err = s.repos.WithTx(ctx, func(ctx context.Context, tx domain.Repositories) error {
		if err := s.ensureNoUser(ctx, tx, req.Email); err != nil {
			return err
		}
		v, err := tx.VerificationCodes().GetActiveByCode(ctx, req.Code, s.now())
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrVerificationCodeInvalid
		}
		if err != nil {
			return err
		}
		if v.Email != req.Email {
			return domain.ErrVerificationCodeInvalid
		}

		user, err = tx.Users().Create(ctx, req.Email, hash)
		if err != nil {
			return err
		}
		if err := tx.VerificationCodes().DeleteByEmail(ctx, req.Email); err != nil {
			return err
		}
		pair, err = s.issuePair(ctx, user)
		return err
	})
	if err != nil {
		return nil, err
	}

	if err := s.enqueue(ctx, domain.TaskSendWelcomeEmail, user.Email, 0); err != nil {
		slog.Warn("welcome email not queued", "user_id", user.ID, "err", err)
	}
	return pair, nil
}

func (s *service) Signin(ctx context.Context, req domain.SigninRequest) (*domain.TokenPair, error) {
	u, err := s.repos.Users().GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	ok, err := s.hasher.Verify(req.Password, u.PasswordHash)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrPasswordMismatch
	}
	if !u.IsActive {
		return nil, domain.ErrUserInactive
	}

	if err := s.repos.Users().UpdateLastLogin(ctx, u.ID, s.now()); err != nil {
		slog.Warn("failed to update last_login", "user_id", u.ID, "err", err)
	}
	return s.issuePair(ctx, u)
}

func (s *service) Authenticate(ctx context.Context, accessToken string) (*domain.User, *jwtinfra.Claims, error) {
	cl, err := s.codec.Decode(accessToken)
	if err != nil {
		return nil, nil, err
	}
	if cl.Type != domain.TokenAccess {
		return nil, nil, fmt.Errorf("%w: expected an access token", domain.ErrTokenInvalid)
	}

	_, revoked, err := s.state.Get(ctx, cl.ID)
	if err != nil {
		return nil, nil, err
	}
	if revoked {
		return nil, nil, domain.ErrTokenRevoked
	}

	u, err := s.activeUser(ctx, cl.UserID)
	if err != nil {
		return nil, nil, err
	}
	return u, cl, nil
}

// Refresh consumes refreshToken and issues a new pair. The jti is removed
// atomically, so of two concurrent calls with the same token only one wins.
func (s *service) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	cl, err := s.codec.Decode(refreshToken)
	if err != nil {
		return nil, err
	}
	if cl.Type != domain.TokenRefresh {
		return nil, fmt.Errorf("%w: expected a refresh token", domain.ErrTokenInvalid)
	}

	key := refreshKey(cl.UserID)
	active, err := s.state.SetContains(ctx, key, cl.ID)
	if err != nil {
		return nil, err
	}
	if !active {
		return nil, domain.ErrRefreshNotActive
	}

	u, err := s.activeUser(ctx, cl.UserID)
	if err != nil {
		return nil, err
	}

	removed, err := s.state.RemoveFromSet(ctx, key, cl.ID)
	if err != nil {
		return nil, err
	}
	if !removed {
		return nil, domain.ErrRefreshNotActive
	}
	return s.issuePair(ctx, u)
}

// Logout blacklists the access token and revokes every refresh token of
// the user, on all devices.
func (s *service) Logout(ctx context.Context, cl *jwtinfra.Claims) error {
	if err := s.state.Set(ctx, cl.ID, "", s.codec.AccessTTL()); err != nil {
		return err
	}
	return s.state.Delete(ctx, refreshKey(cl.UserID))
}

func (s *service) issuePair(ctx context.Context, u *domain.User) (*domain.TokenPair, error) {
	now := s.now()
	opts := []jwtinfra.MintOption{
		jwtinfra.WithIssuedAt(now),
		jwtinfra.WithSubject(tokenSubject),
		jwtinfra.WithEmail(u.Email),
	}
	access, err := s.codec.Encode(s.codec.MintPayload(u.ID, domain.TokenAccess, opts...))
	if err != nil {
		return nil, err
	}
	refreshClaims := s.codec.MintPayload(u.ID, domain.TokenRefresh, opts...)
	refresh, err := s.codec.Encode(refreshClaims)
	if err != nil {
		return nil, err
	}
	if err := s.state.AddToSet(ctx, refreshKey(u.ID), refreshClaims.ID); err != nil {
		return nil, err
	}
	return &domain.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *service) activeUser(ctx context.Context, userID int64) (*domain.User, error) {
	u, err := s.repos.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !u.IsActive {
		return nil, domain.ErrUserInactive
	}
	return u, nil
}

func (s *service) ensureNoUser(ctx context.Context, repos domain.Repositories, email string) error {
	_, err := repos.Users().GetByEmail(ctx, email)
	switch {
	case err == nil:
		return domain.ErrUserAlreadyExists
	case errors.Is(err, domain.ErrUserNotFound):
		return nil
	default:
		return err
	}
}

// newCode draws a uniformly random code with exactly codeLength digits.
func (s *service) newCode() (int, error) {
	lo := int64(1)
	for i := 1; i < s.codeLength; i++ {
		lo *= 10
	}
	n, err := rand.Int(rand.Reader, big.NewInt(9*lo))
	if err != nil {
		return 0, err
	}
	return int(lo + n.Int64()), nil
}

func (s *service) enqueue(ctx context.Context, kind domain.TaskKind, email string, code int) error {
	return s.tasks.Publish(ctx, domain.Task{
		ID:        id.New(),
		Kind:      kind,
		Email:     email,
		Code:      code,
		CreatedAt: s.now().Unix(),
	})
}
