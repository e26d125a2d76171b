package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ledgerbot-dev/ledgerbot/constants"
	"github.com/ledgerbot-dev/ledgerbot/internal/entity"
)

// ReceiptRepository tracks uploaded receipt images and their extraction
// lifecycle.
type ReceiptRepository interface {
	Create(ctx context.Context, rc *entity.Receipt) error
	Get(ctx context.Context, id int64) (*entity.Receipt, error)
	// UpdateStatus advances the processing state. confidence and rawResponse
	// are optional; nil leaves the stored value untouched.
	UpdateStatus(ctx context.Context, id int64, status constants.ReceiptStatus, confidence *float64, rawResponse json.RawMessage) error
}

type receiptRepo struct {
	db  *sql.DB
	log *slog.Logger
}

func NewReceiptRepository(db *sql.DB, log *slog.Logger) ReceiptRepository {
	if log == nil {
		log = slog.Default()
	}
	return &receiptRepo{db: db, log: log}
}

func (r *receiptRepo) Create(ctx context.Context, rc *entity.Receipt) error {
	if rc.ProcessingStatus == "" {
		rc.ProcessingStatus = constants.ReceiptStatusPending
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO receipts (transaction_id, image_path, ai_confidence, ai_raw_response, processing_status)
		 VALUES (?, ?, ?, ?, ?)`,
		rc.TransactionID, rc.ImagePath, rc.AIConfidence, nullableJSON(rc.AIRawResponse),
		string(rc.ProcessingStatus),
	)
	if err != nil {
		return fmt.Errorf("create receipt: %w", err)
	}
	rc.ID, _ = res.LastInsertId()
	rc.CreatedAt = time.Now().UTC()
	return nil
}

func (r *receiptRepo) Get(ctx context.Context, id int64) (*entity.Receipt, error) {
	rc := &entity.Receipt{}
	var status, createdStr string
	var confidence sql.NullFloat64
	var raw sql.NullString

	err := r.db.QueryRowContext(ctx,
		`SELECT id, transaction_id, image_path, ai_confidence, ai_raw_response, processing_status, created_at
		 FROM receipts WHERE id = ?`, id).
		Scan(&rc.ID, &rc.TransactionID, &rc.ImagePath, &confidence, &raw, &status, &createdStr)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("receipt %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get receipt: %w", err)
	}

	if confidence.Valid {
		rc.AIConfidence = &confidence.Float64
	}
	if raw.Valid {
		rc.AIRawResponse = json.RawMessage(raw.String)
	}
	rc.ProcessingStatus = constants.ReceiptStatus(status)
	rc.CreatedAt, _ = time.Parse(time.RFC3339, createdStr)
	return rc, nil
}

func (r *receiptRepo) UpdateStatus(ctx context.Context, id int64, status constants.ReceiptStatus, confidence *float64, rawResponse json.RawMessage) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE receipts SET processing_status = ?,
		 ai_confidence = COALESCE(?, ai_confidence),
		 ai_raw_response = COALESCE(?, ai_raw_response)
		 WHERE id = ?`,
		string(status), confidence, nullableJSON(rawResponse), id)
	if err != nil {
		return fmt.Errorf("update receipt status: %w", err)
	}
	r.log.Info("receipt status updated", "receipt_id", id, "status", status)
	return nil
}

func nullableJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
