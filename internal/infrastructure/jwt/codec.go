package jwtinfra

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-api-auth/internal/config"
	"github.com/go-api-auth/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims holds the JWT payload fields.
type Claims struct {
	UserID   int64            `json:"user_id"`
	Type     domain.TokenKind `json:"type"`
	Email    string           `json:"email,omitempty"`
	DeviceID string           `json:"device_id,omitempty"`
	OrigIAT  int64            `json:"orig_iat,omitempty"`
	jwt.RegisteredClaims
}

// Lifetimes is the expiry policy per token kind.
type Lifetimes struct {
	Access  time.Duration
	Refresh time.Duration
}

func (l Lifetimes) For(kind domain.TokenKind) time.Duration {
	if kind == domain.TokenRefresh {
		return l.Refresh
	}
	return l.Access
}

// Codec mints, signs and verifies tokens with the RSA key pair.
type Codec struct {
	keys         *KeyPair
	method       jwt.SigningMethod
	lifetimes    Lifetimes
	issuer       string
	audience     string
	leeway       time.Duration
	verifyExp    bool
	allowRefresh bool
	now          func() time.Time
}

func NewCodec(keys *KeyPair, cfg config.JWT) (*Codec, error) {
	method := jwt.GetSigningMethod(cfg.Algorithm)
	switch method.(type) {
	case *jwt.SigningMethodRSA, *jwt.SigningMethodRSAPSS:
	default:
		return nil, fmt.Errorf("unsupported jwt algorithm %q", cfg.Algorithm)
	}
	return &Codec{
		keys:         keys,
		method:       method,
		lifetimes:    Lifetimes{Access: cfg.AccessTTL, Refresh: cfg.RefreshTTL},
		issuer:       cfg.Issuer,
		audience:     cfg.Audience,
		leeway:       cfg.Leeway,
		verifyExp:    cfg.VerifyExpiration,
		allowRefresh: cfg.AllowRefresh,
		now:          time.Now,
	}, nil
}

// AccessTTL is the access token lifetime; logout uses it for blacklist entries.
func (c *Codec) AccessTTL() time.Duration { return c.lifetimes.Access }

type MintOption func(*Claims)

func WithIssuedAt(t time.Time) MintOption {
	return func(cl *Claims) { cl.IssuedAt = jwt.NewNumericDate(t) }
}

func WithSubject(sub string) MintOption {
	return func(cl *Claims) { cl.Subject = sub }
}

func WithEmail(email string) MintOption {
	return func(cl *Claims) { cl.Email = email }
}

func WithDeviceID(id string) MintOption {
	return func(cl *Claims) { cl.DeviceID = id }
}

// MintPayload builds claims for a new token. Every call gets a fresh jti.
func (c *Codec) MintPayload(userID int64, kind domain.TokenKind, opts ...MintOption) *Claims {
	now := c.now()
	cl := &Claims{
		UserID: userID,
		Type:   kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       uuid.NewString(),
			Issuer:   c.issuer,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	for _, opt := range opts {
		opt(cl)
	}
	cl.ExpiresAt = jwt.NewNumericDate(cl.IssuedAt.Add(c.lifetimes.For(kind)))
	if c.allowRefresh {
		cl.OrigIAT = now.Unix()
	}
	if c.audience != "" {
		cl.Audience = jwt.ClaimStrings{c.audience}
	}
	return cl
}

func (c *Codec) Encode(cl *Claims) (string, error) {
	return jwt.NewWithClaims(c.method, cl).SignedString(c.keys.Private)
}

// Decode verifies the signature and the registered claims. Errors wrap
// domain.ErrTokenInvalid, domain.ErrTokenExpired or domain.ErrTokenClaimMismatch.
func (c *Codec) Decode(tokenStr string) (*Claims, error) {
	cl := &Claims{}
	_, err := jwt.ParseWithClaims(tokenStr, cl, func(*jwt.Token) (interface{}, error) {
		return c.keys.Public, nil
	}, jwt.WithValidMethods([]string{c.method.Alg()}), jwt.WithoutClaimsValidation())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTokenInvalid, err)
	}
	if err := c.validate(cl); err != nil {
		return nil, err
	}
	return cl, nil
}

func (c *Codec) validate(cl *Claims) error {
	if cl.IssuedAt == nil {
		return fmt.Errorf("%w: iat is required", domain.ErrTokenClaimMismatch)
	}
	if !cl.Type.Valid() {
		return fmt.Errorf("%w: unknown token type %q", domain.ErrTokenClaimMismatch, cl.Type)
	}

	opts := []jwt.ParserOption{
		jwt.WithLeeway(c.leeway),
		jwt.WithIssuedAt(),
		jwt.WithIssuer(c.issuer),
		jwt.WithTimeFunc(c.now),
	}
	if c.audience != "" {
		opts = append(opts, jwt.WithAudience(c.audience))
	}
	rc := cl.RegisteredClaims
	if c.verifyExp {
		opts = append(opts, jwt.WithExpirationRequired())
	} else {
		rc.ExpiresAt = nil
	}

	err := jwt.NewValidator(opts...).Validate(rc)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", domain.ErrTokenExpired, err)
	case errors.Is(err, jwt.ErrTokenInvalidAudience),
		errors.Is(err, jwt.ErrTokenInvalidIssuer),
		errors.Is(err, jwt.ErrTokenRequiredClaimMissing),
		errors.Is(err, jwt.ErrTokenUsedBeforeIssued),
		errors.Is(err, jwt.ErrTokenNotValidYet):
		return fmt.Errorf("%w: %v", domain.ErrTokenClaimMismatch, err)
	default:
		return fmt.Errorf("%w: %v", domain.ErrTokenInvalid, err)
	}
}
