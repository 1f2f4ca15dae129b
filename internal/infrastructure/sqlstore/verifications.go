package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-api-auth/internal/domain"
	"github.com/jmoiron/sqlx"
)

// VerificationRepo manages the verification_code table.
// One row per email; code is unique across rows.
type VerificationRepo struct {
	db sqlx.ExtContext
}

func NewVerificationRepo(db sqlx.ExtContext) *VerificationRepo {
	return &VerificationRepo{db: db}
}

func (r *VerificationRepo) Upsert(ctx context.Context, v *domain.VerificationCode) error {
	now := time.Now().Unix()
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO verification_code (email, code, expiration_at, created_at, modified_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (email) DO UPDATE SET
			code = excluded.code,
			expiration_at = excluded.expiration_at,
			modified_at = excluded.modified_at`),
		v.Email, v.Code, v.ExpiresAt, now, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("code already in use: %w", domain.ErrConflict)
		}
		return fmt.Errorf("upsert verification code: %w", err)
	}
	return nil
}

func (r *VerificationRepo) GetActiveByCode(ctx context.Context, code int, now time.Time) (*domain.VerificationCode, error) {
	var v domain.VerificationCode
	err := sqlx.GetContext(ctx, r.db, &v,
		r.db.Rebind(`SELECT email, code, expiration_at FROM verification_code WHERE code = ? AND expiration_at > ?`),
		code, now.Unix(),
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("verification code: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get verification code: %w", err)
	}
	return &v, nil
}

func (r *VerificationRepo) DeleteByEmail(ctx context.Context, email string) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM verification_code WHERE email = ?`), email)
	if err != nil {
		return fmt.Errorf("delete verification code: %w", err)
	}
	return nil
}
