package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerbot-dev/ledgerbot/constants"
	"github.com/ledgerbot-dev/ledgerbot/internal/entity"
)

// TransactionRepository is the system of record the queue writes extraction
// results into and the duplicate detector reads history from.
type TransactionRepository interface {
	Create(ctx context.Context, tx *entity.Transaction) error
	Get(ctx context.Context, id int64) (*entity.Transaction, error)
	Update(ctx context.Context, tx *entity.Transaction) error
	Delete(ctx context.Context, id int64) error
	// ListByUserBetween returns a user's transactions whose transaction_date
	// falls in [from, to], newest first.
	ListByUserBetween(ctx context.Context, userID int64, from, to time.Time) ([]*entity.Transaction, error)
}

type transactionRepo struct {
	db  *sql.DB
	log *slog.Logger
}

func NewTransactionRepository(db *sql.DB, log *slog.Logger) TransactionRepository {
	if log == nil {
		log = slog.Default()
	}
	return &transactionRepo{db: db, log: log}
}

const txColumns = `id, user_id, amount, currency, description, category, merchant,
	transaction_date, source, source_reference, confidence_score, is_verified,
	created_at, updated_at`

func (r *transactionRepo) Create(ctx context.Context, tx *entity.Transaction) error {
	if tx.Currency == "" {
		tx.Currency = "SGD"
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions
		 (user_id, amount, currency, description, category, merchant,
		  transaction_date, source, source_reference, confidence_score, is_verified)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.UserID, tx.Amount.String(), tx.Currency, tx.Description, string(tx.Category),
		tx.Merchant, tx.TransactionDate.UTC().Format(timeFormat), string(tx.Source),
		tx.SourceReference, tx.ConfidenceScore, tx.IsVerified,
	)
	if err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}
	tx.ID, _ = res.LastInsertId()
	tx.CreatedAt = time.Now().UTC()
	tx.UpdatedAt = tx.CreatedAt
	return nil
}

func (r *transactionRepo) Get(ctx context.Context, id int64) (*entity.Transaction, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+txColumns+` FROM transactions WHERE id = ?`, id)
	tx, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("transaction %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return tx, nil
}

func (r *transactionRepo) Update(ctx context.Context, tx *entity.Transaction) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET
		 amount = ?, currency = ?, description = ?, category = ?, merchant = ?,
		 transaction_date = ?, source = ?, source_reference = ?,
		 confidence_score = ?, is_verified = ?,
		 updated_at = strftime('%Y-%m-%dT%H:%M:%SZ', 'now')
		 WHERE id = ?`,
		tx.Amount.String(), tx.Currency, tx.Description, string(tx.Category), tx.Merchant,
		tx.TransactionDate.UTC().Format(timeFormat), string(tx.Source), tx.SourceReference,
		tx.ConfidenceScore, tx.IsVerified, tx.ID,
	)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	tx.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *transactionRepo) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	r.log.Info("transaction deleted", "transaction_id", id)
	return nil
}

func (r *transactionRepo) ListByUserBetween(ctx context.Context, userID int64, from, to time.Time) ([]*entity.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+txColumns+` FROM transactions
		 WHERE user_id = ? AND transaction_date BETWEEN ? AND ?
		 ORDER BY transaction_date DESC`,
		userID, from.UTC().Format(timeFormat), to.UTC().Format(timeFormat))
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*entity.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

func scanTransaction(row rowScanner) (*entity.Transaction, error) {
	tx := &entity.Transaction{}
	var amountStr, source, dateStr, createdStr, updatedStr string
	var description, category, merchant, sourceRef sql.NullString

	if err := row.Scan(&tx.ID, &tx.UserID, &amountStr, &tx.Currency, &description,
		&category, &merchant, &dateStr, &source, &sourceRef,
		&tx.ConfidenceScore, &tx.IsVerified, &createdStr, &updatedStr); err != nil {
		return nil, err
	}

	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", amountStr, err)
	}
	tx.Amount = amount
	tx.Description = description.String
	tx.Category = constants.Category(category.String)
	tx.Merchant = merchant.String
	tx.Source = constants.Source(source)
	tx.SourceReference = sourceRef.String
	tx.TransactionDate, _ = time.Parse(time.RFC3339, dateStr)
	tx.CreatedAt, _ = time.Parse(time.RFC3339, createdStr)
	tx.UpdatedAt, _ = time.Parse(time.RFC3339, updatedStr)
	return tx, nil
}
