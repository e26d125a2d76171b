package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ledgerbot-dev/ledgerbot/constants"
	"github.com/ledgerbot-dev/ledgerbot/internal/entity"
)

// EmailHandler is the reserved email-extraction channel. It acknowledges the
// job so enqueued email work drains cleanly instead of piling up as failures.
type EmailHandler struct {
	log *slog.Logger
}

func NewEmailHandler(log *slog.Logger) *EmailHandler {
	if log == nil {
		log = slog.Default()
	}
	return &EmailHandler{log: log}
}

func (h *EmailHandler) Type() constants.JobType { return constants.JobTypeEmail }

func (h *EmailHandler) Handle(_ context.Context, job *entity.Job) error {
	var p entity.EmailPayload
	if err := json.Unmarshal(job.Payload, &p); err != nil {
		return fmt.Errorf("decode email payload: %w", err)
	}
	h.log.Info("email extraction not yet implemented, acknowledging",
		"job_id", job.ID, "email_id", p.EmailID)
	return nil
}
