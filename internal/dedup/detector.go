package dedup

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerbot-dev/ledgerbot/internal/entity"
	"github.com/ledgerbot-dev/ledgerbot/internal/repository"
)

// Tolerances control how forgiving each similarity factor is.
type Tolerances struct {
	Amount      decimal.Decimal // absolute amount difference for a full score
	Window      time.Duration   // time window for a full score and history fetch
	Description float64         // minimum string similarity to count at all
	Merchant    float64
}

// DefaultTolerances returns the production settings: one cent, five minutes,
// 80% string similarity.
func DefaultTolerances() Tolerances {
	return Tolerances{
		Amount:      decimal.NewFromFloat(0.01),
		Window:      5 * time.Minute,
		Description: 0.8,
		Merchant:    0.8,
	}
}

// Factor weights. Amount dominates, category barely matters.
var weights = map[string]float64{
	"amount":      0.30,
	"time":        0.20,
	"description": 0.20,
	"merchant":    0.15,
	"source":      0.10,
	"category":    0.05,
}

// FactorScores holds the per-factor similarity in [0,1].
type FactorScores struct {
	Amount      float64 `json:"amount"`
	Time        float64 `json:"time"`
	Description float64 `json:"description"`
	Merchant    float64 `json:"merchant"`
	Source      float64 `json:"source"`
	Category    float64 `json:"category"`
}

// Similarity is the outcome of comparing one candidate/existing pair.
type Similarity struct {
	IsDuplicate bool
	Confidence  float64
	Score       float64
	Reasons     []string
	Details     FactorScores
}

// Match pairs an existing transaction with its similarity to the candidate.
type Match struct {
	Transaction *entity.Transaction
	Confidence  float64
	Score       float64
	Reasons     []string
	Details     FactorScores
}

// Result is the answer to a FindDuplicates call. Not persisted.
type Result struct {
	IsDuplicate bool
	Duplicates  []Match // sorted by confidence, highest first
	Confidence  float64
	BestMatch   *Match
}

// Detector flags transaction candidates that very likely describe the same
// real-world purchase as an existing transaction captured through another
// channel.
type Detector struct {
	txs        repository.TransactionRepository
	tolerances Tolerances
	log        *slog.Logger
}

func NewDetector(txs repository.TransactionRepository, log *slog.Logger) *Detector {
	if log == nil {
		log = slog.Default()
	}
	return &Detector{txs: txs, tolerances: DefaultTolerances(), log: log}
}

// Options override per-call tolerances; zero fields keep the defaults.
type Options struct {
	Window time.Duration
}

// FindDuplicates fetches the user's transactions within ±window of the
// candidate's date and scores each pair across six factors.
func (d *Detector) FindDuplicates(ctx context.Context, candidate *entity.Transaction, userID int64, opts Options) (Result, error) {
	tol := d.tolerances
	if opts.Window > 0 {
		tol.Window = opts.Window
	}

	from := candidate.TransactionDate.Add(-tol.Window)
	to := candidate.TransactionDate.Add(tol.Window)
	history, err := d.txs.ListByUserBetween(ctx, userID, from, to)
	if err != nil {
		return Result{}, fmt.Errorf("fetch recent transactions: %w", err)
	}

	var matches []Match
	for _, existing := range history {
		if existing.ID != 0 && existing.ID == candidate.ID {
			continue
		}
		sim := d.Compare(candidate, existing, tol)
		if sim.IsDuplicate {
			matches = append(matches, Match{
				Transaction: existing,
				Confidence:  sim.Confidence,
				Score:       sim.Score,
				Reasons:     sim.Reasons,
				Details:     sim.Details,
			})
		}
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].Confidence > matches[j].Confidence })

	res := Result{IsDuplicate: len(matches) > 0, Duplicates: matches}
	if len(matches) > 0 {
		res.Confidence = matches[0].Confidence
		res.BestMatch = &matches[0]
	}

	d.log.Info("duplicate check done",
		"user_id", userID,
		"compared", len(history),
		"matches", len(matches),
		"confidence", res.Confidence,
	)
	return res, nil
}

// Compare scores one candidate/existing pair. Exported for callers that
// already hold both rows.
func (d *Detector) Compare(a, b *entity.Transaction, tol Tolerances) Similarity {
	details := FactorScores{
		Amount:      compareAmounts(a.Amount, b.Amount, tol.Amount),
		Time:        compareTimes(a.TransactionDate, b.TransactionDate, tol.Window),
		Description: compareStrings(a.Description, b.Description, tol.Description),
		Merchant:    compareStrings(a.Merchant, b.Merchant, tol.Merchant),
		Source:      compareSources(a.Source, b.Source),
		Category:    0.0,
	}
	if a.Category != "" && a.Category == b.Category {
		details.Category = 1.0
	}

	factors := map[string]float64{
		"amount":      details.Amount,
		"time":        details.Time,
		"description": details.Description,
		"merchant":    details.Merchant,
		"source":      details.Source,
		"category":    details.Category,
	}

	var total, maxPossible float64
	var reasons []string
	for _, name := range []string{"amount", "time", "description", "merchant", "source", "category"} {
		total += factors[name] * weights[name]
		maxPossible += weights[name]
		if factors[name] > 0.7 {
			reasons = append(reasons, name+"_match")
		}
	}
	confidence := total / maxPossible

	return Similarity{
		IsDuplicate: isDuplicateByRules(details, confidence),
		Confidence:  confidence,
		Score:       total,
		Reasons:     reasons,
		Details:     details,
	}
}

// isDuplicateByRules flags a pair when any rule holds: a high blended
// confidence, or a couple of strong individual signals alongside an exact
// amount.
func isDuplicateByRules(s FactorScores, confidence float64) bool {
	if confidence >= 0.85 {
		return true
	}
	if s.Amount == 1.0 && s.Time >= 0.8 {
		return true
	}
	if s.Amount == 1.0 && s.Description >= 0.7 && s.Source >= 0.5 {
		return true
	}
	if s.Description >= 0.9 && s.Merchant >= 0.9 && s.Amount >= 0.8 {
		return true
	}
	return false
}

// FindCrossSourceMatches is a wider sweep for the reserved email channel:
// 24-hour window, different source, amounts within one cent. Matches get a
// fixed 0.9 confidence.
func (d *Detector) FindCrossSourceMatches(ctx context.Context, candidate *entity.Transaction, userID int64) ([]Match, error) {
	const window = 24 * time.Hour

	from := candidate.TransactionDate.Add(-window)
	to := candidate.TransactionDate.Add(window)
	history, err := d.txs.ListByUserBetween(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("fetch recent transactions: %w", err)
	}

	cent := decimal.NewFromFloat(0.01)
	var matches []Match
	for _, existing := range history {
		if existing.Source == candidate.Source {
			continue
		}
		if existing.Amount.Sub(candidate.Amount).Abs().Cmp(cent) > 0 {
			continue
		}
		matches = append(matches, Match{
			Transaction: existing,
			Confidence:  0.9,
			Reasons:     []string{"cross_source_amount_match"},
		})
	}
	return matches, nil
}
