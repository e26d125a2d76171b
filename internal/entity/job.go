package entity

import (
	"encoding/json"
	"time"

	"github.com/ledgerbot-dev/ledgerbot/constants"
)

// Job is a persisted unit of asynchronous work tracked through
// pending/processing/completed/failed states.
type Job struct {
	ID           int64               `json:"id"`
	Type         constants.JobType   `json:"type"`
	Status       constants.JobStatus `json:"status"`
	Payload      json.RawMessage     `json:"payload"`
	Attempts     int                 `json:"attempts"`
	MaxAttempts  int                 `json:"max_attempts"`
	ErrorMessage *string             `json:"error_message,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

// FinalAttempt reports whether the current attempt is the last one the
// scheduler will make before the job goes terminal.
func (j *Job) FinalAttempt() bool {
	return j.Attempts >= j.MaxAttempts
}

// ReceiptPayload is the payload shape for JobTypeReceipt.
type ReceiptPayload struct {
	ReceiptID       int64  `json:"receipt_id"`
	TransactionID   int64  `json:"transaction_id"`
	UserID          int64  `json:"user_id"`
	ChatID          int64  `json:"chat_id,omitempty"`
	ImagePath       string `json:"image_path"`
	UserDescription string `json:"user_description,omitempty"`
}

// EmailPayload is the payload shape for JobTypeEmail (reserved).
type EmailPayload struct {
	EmailID int64  `json:"email_id"`
	UserID  int64  `json:"user_id"`
	Body    string `json:"body,omitempty"`
}
