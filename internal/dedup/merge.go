package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/ledgerbot-dev/ledgerbot/constants"
	"github.com/ledgerbot-dev/ledgerbot/internal/entity"
)

// Merge folds a duplicate transaction into the primary and deletes the
// duplicate row. Destructive and irreversible: callers must treat the
// decision as final. Field conflicts resolve deterministically:
//
//   - longer description wins
//   - non-empty merchant wins over empty
//   - category comes from whichever row has the higher confidence score
//   - transaction date prefers the bot-sourced value (a photographed receipt
//     timestamps more accurately than a typed entry)
//   - confidence score is the max of the two
//   - verified if either was verified
func (d *Detector) Merge(ctx context.Context, primary, duplicate *entity.Transaction) (*entity.Transaction, error) {
	merged := *primary

	if len(duplicate.Description) > len(primary.Description) {
		merged.Description = duplicate.Description
	}
	if merged.Merchant == "" {
		merged.Merchant = duplicate.Merchant
	}
	if duplicate.ConfidenceScore > primary.ConfidenceScore {
		merged.Category = duplicate.Category
	}
	merged.TransactionDate = preferBotDate(primary, duplicate)
	if duplicate.ConfidenceScore > merged.ConfidenceScore {
		merged.ConfidenceScore = duplicate.ConfidenceScore
	}
	merged.IsVerified = primary.IsVerified || duplicate.IsVerified

	if err := d.txs.Update(ctx, &merged); err != nil {
		return nil, fmt.Errorf("update primary transaction: %w", err)
	}
	if err := d.txs.Delete(ctx, duplicate.ID); err != nil {
		return nil, fmt.Errorf("delete duplicate transaction: %w", err)
	}

	d.log.Info("duplicates merged",
		"primary_id", primary.ID,
		"duplicate_id", duplicate.ID,
		"confidence", merged.ConfidenceScore,
	)
	return &merged, nil
}

func preferBotDate(primary, duplicate *entity.Transaction) time.Time {
	if primary.Source == constants.SourceBot {
		return primary.TransactionDate
	}
	if duplicate.Source == constants.SourceBot {
		return duplicate.TransactionDate
	}
	return primary.TransactionDate
}
