package entity

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerbot-dev/ledgerbot/constants"
)

// Transaction is a committed row in the system of record.
type Transaction struct {
	ID              int64              `json:"id"`
	UserID          int64              `json:"user_id"`
	Amount          decimal.Decimal    `json:"amount"`
	Currency        string             `json:"currency"`
	Description     string             `json:"description,omitempty"`
	Category        constants.Category `json:"category"`
	Merchant        string             `json:"merchant,omitempty"`
	TransactionDate time.Time          `json:"transaction_date"`
	Source          constants.Source   `json:"source"`
	SourceReference string             `json:"source_reference,omitempty"`
	ConfidenceScore float64            `json:"confidence_score"`
	IsVerified      bool               `json:"is_verified"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

// Candidate is the normalized output of one extraction call. It is owned by
// the pipeline until a user confirms it or it is discarded; it is never
// written to the store directly.
type Candidate struct {
	Amount        decimal.Decimal    `json:"amount"`
	Currency      string             `json:"currency"`
	Description   string             `json:"description,omitempty"`
	Merchant      string             `json:"merchant"`
	Date          time.Time          `json:"date"`
	Category      constants.Category `json:"category"`
	PaymentMethod string             `json:"payment_method,omitempty"`
	Confidence    float64            `json:"confidence"`
}

// Valid reports whether the candidate carries enough data to be shown to a
// user: a positive amount and a transaction date.
func (c Candidate) Valid() bool {
	return c.Amount.IsPositive() && !c.Date.IsZero()
}
