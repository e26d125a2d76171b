package queue

import (
	"context"

	"github.com/ledgerbot-dev/ledgerbot/constants"
	"github.com/ledgerbot-dev/ledgerbot/internal/entity"
)

// Handler executes one job type. Implementations report failure through the
// returned error; the scheduler owns all status bookkeeping and retry
// accounting.
type Handler interface {
	Type() constants.JobType
	Handle(ctx context.Context, job *entity.Job) error
}
