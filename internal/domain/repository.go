package domain

import (
	"context"
	"time"
)

// UserRepository persists User records.
type UserRepository interface {
	// Create returns ErrUserAlreadyExists when the email is taken.
	Create(ctx context.Context, email, passwordHash string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id int64) (*User, error)
	UpdateLastLogin(ctx context.Context, id int64, at time.Time) error
}

// VerificationCodeRepository persists verification codes.
type VerificationCodeRepository interface {
	// Upsert replaces the code for v.Email. It returns an error wrapping
	// ErrConflict when v.Code is already held by another email.
	Upsert(ctx context.Context, v *VerificationCode) error
	// GetActiveByCode returns the unexpired code row, or ErrNotFound.
	GetActiveByCode(ctx context.Context, code int, now time.Time) (*VerificationCode, error)
	DeleteByEmail(ctx context.Context, email string) error
}

// Repositories vends repositories bound to one database handle.
// Inside WithTx every repository returned by tx shares the transaction.
type Repositories interface {
	Users() UserRepository
	VerificationCodes() VerificationCodeRepository
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Repositories) error) error
}
