package domain

// TaskKind names a background notification job.
type TaskKind string

const (
	TaskSendVerificationCode TaskKind = "send_verification_code"
	TaskSendWelcomeEmail     TaskKind = "send_post_signup_email"
)

// Task is the payload placed on the notification queue.
type Task struct {
	ID        string   `json:"id"`
	Kind      TaskKind `json:"kind"`
	Email     string   `json:"email"`
	Code      int      `json:"code,omitempty"`
	CreatedAt int64    `json:"created_at"`
}
