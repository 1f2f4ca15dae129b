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

const userColumns = "id, email, password, is_active, is_staff, is_superuser, last_login, date_joined"

type userRow struct {
	ID          int64         `db:"id"`
	Email       string        `db:"email"`
	Password    string        `db:"password"`
	IsActive    bool          `db:"is_active"`
	IsStaff     bool          `db:"is_staff"`
	IsSuperuser bool          `db:"is_superuser"`
	LastLogin   sql.NullInt64 `db:"last_login"`
	DateJoined  int64         `db:"date_joined"`
}

func (r *userRow) toDomain() *domain.User {
	u := &domain.User{
		ID:           r.ID,
		Email:        r.Email,
		PasswordHash: r.Password,
		IsActive:     r.IsActive,
		IsStaff:      r.IsStaff,
		IsSuperuser:  r.IsSuperuser,
		DateJoined:   time.Unix(r.DateJoined, 0).UTC(),
	}
	if r.LastLogin.Valid {
		t := time.Unix(r.LastLogin.Int64, 0).UTC()
		u.LastLogin = &t
	}
	return u
}

// UserRepo manages the user_user table.
type UserRepo struct {
	db sqlx.ExtContext
}

func NewUserRepo(db sqlx.ExtContext) *UserRepo {
	return &UserRepo{db: db}
}

func (r *UserRepo) Create(ctx context.Context, email, passwordHash string) (*domain.User, error) {
	joined := time.Now().UTC().Truncate(time.Second)
	var id int64
	err := r.db.QueryRowxContext(ctx,
		r.db.Rebind(`INSERT INTO user_user (email, password, date_joined) VALUES (?, ?, ?) RETURNING id`),
		email, passwordHash, joined.Unix(),
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrUserAlreadyExists
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return &domain.User{
		ID:           id,
		Email:        email,
		PasswordHash: passwordHash,
		IsActive:     true,
		DateJoined:   joined,
	}, nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx, "email = ?", email)
}

func (r *UserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.getOne(ctx, "id = ?", id)
}

func (r *UserRepo) getOne(ctx context.Context, where string, arg interface{}) (*domain.User, error) {
	var row userRow
	err := sqlx.GetContext(ctx, r.db, &row, r.db.Rebind("SELECT "+userColumns+" FROM user_user WHERE "+where), arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return row.toDomain(), nil
}

func (r *UserRepo) UpdateLastLogin(ctx context.Context, id int64, at time.Time) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE user_user SET last_login = ? WHERE id = ?`), at.Unix(), id)
	if err != nil {
		return fmt.Errorf("update last_login: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// SetActive is used by administrative tooling and tests.
func (r *UserRepo) SetActive(ctx context.Context, id int64, active bool) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE user_user SET is_active = ? WHERE id = ?`), active, id)
	return err
}
