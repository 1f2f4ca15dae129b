package domain

// VerificationCode proves an email address is reachable.
// At most one row per email; Code is unique across rows.
// ExpiresAt is a Unix timestamp (seconds).
type VerificationCode struct {
	Email     string `json:"email" db:"email"`
	Code      int    `json:"code" db:"code"`
	ExpiresAt int64  `json:"expires_at" db:"expiration_at"`
}
