package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ledgerbot-dev/ledgerbot/constants"
	"github.com/ledgerbot-dev/ledgerbot/internal/entity"
	"github.com/ledgerbot-dev/ledgerbot/internal/extract"
	"github.com/ledgerbot-dev/ledgerbot/internal/notify"
	"github.com/ledgerbot-dev/ledgerbot/internal/repository"
	"github.com/ledgerbot-dev/ledgerbot/internal/session"
)

// ErrInvalidCandidate means extraction produced data no user should be asked
// to confirm (non-positive amount, nothing recognizable). Retried like any
// other failure: a later attempt may get a better model response.
var ErrInvalidCandidate = errors.New("extracted candidate is invalid")

const remediationMessage = "Sorry, I couldn't extract transaction details from your receipt. Please try:\n" +
	"• taking a clearer photo\n" +
	"• entering the transaction manually\n" +
	"• sending the receipt again"

// ReceiptHandler runs one receipt-extraction job: advance the receipt's
// status, call the AI extractor, and either park the candidate for user
// confirmation or clean up the placeholder transaction on final failure.
// Extraction output is never committed directly; a human confirms it first.
type ReceiptHandler struct {
	receipts  repository.ReceiptRepository
	txs       repository.TransactionRepository
	extractor extract.Extractor
	notifier  notify.Notifier
	sessions  *session.Store

	defaultCurrency string
	log             *slog.Logger
}

func NewReceiptHandler(
	receipts repository.ReceiptRepository,
	txs repository.TransactionRepository,
	extractor extract.Extractor,
	notifier notify.Notifier,
	sessions *session.Store,
	defaultCurrency string,
	log *slog.Logger,
) *ReceiptHandler {
	if log == nil {
		log = slog.Default()
	}
	return &ReceiptHandler{
		receipts:        receipts,
		txs:             txs,
		extractor:       extractor,
		notifier:        notifier,
		sessions:        sessions,
		defaultCurrency: defaultCurrency,
		log:             log,
	}
}

func (h *ReceiptHandler) Type() constants.JobType { return constants.JobTypeReceipt }

func (h *ReceiptHandler) Handle(ctx context.Context, job *entity.Job) error {
	var p entity.ReceiptPayload
	if err := json.Unmarshal(job.Payload, &p); err != nil {
		return fmt.Errorf("decode receipt payload: %w", err)
	}

	if err := h.receipts.UpdateStatus(ctx, p.ReceiptID, constants.ReceiptStatusProcessing, nil, nil); err != nil {
		return fmt.Errorf("mark receipt processing: %w", err)
	}
	h.notifier.JobStarted(ctx, p.UserID, p.ChatID, p.ReceiptID)

	candidate, raw, err := h.extractor.ExtractTransaction(ctx, extract.Request{
		ImagePath:       p.ImagePath,
		DefaultCurrency: h.defaultCurrency,
	})
	if err != nil {
		return h.fail(ctx, job, p, nil, fmt.Errorf("extract receipt: %w", err))
	}

	if !candidate.Valid() {
		return h.fail(ctx, job, p, raw, fmt.Errorf("%w: amount=%s merchant=%q",
			ErrInvalidCandidate, candidate.Amount.String(), candidate.Merchant))
	}

	// A description typed by the user alongside the photo beats the model's.
	if p.UserDescription != "" {
		candidate.Description = p.UserDescription
	}

	if err := h.receipts.UpdateStatus(ctx, p.ReceiptID, constants.ReceiptStatusProcessed, &candidate.Confidence, raw); err != nil {
		return fmt.Errorf("mark receipt processed: %w", err)
	}

	// Hand off to the confirmation flow. The placeholder transaction stays
	// until the user confirms or cancels from here.
	h.sessions.Put(p.ChatID, session.State{
		Step:      session.StepConfirmingExtraction,
		ReceiptID: p.ReceiptID,
		Candidate: &candidate,
	})
	h.notifier.JobCompleted(ctx, p.UserID, p.ChatID, p.ReceiptID)
	h.notifier.Send(ctx, p.ChatID, confirmationMessage(candidate))

	h.log.Info("receipt extracted",
		"receipt_id", p.ReceiptID,
		"amount", candidate.Amount.String(),
		"merchant", candidate.Merchant,
		"confidence", candidate.Confidence,
	)
	return nil
}

// fail records the attempt on the receipt and, on the final attempt only,
// performs the compensating cleanup: delete the placeholder transaction so no
// ghost row stays visible, and tell the user what to do instead. The user
// hears about it exactly once.
func (h *ReceiptHandler) fail(ctx context.Context, job *entity.Job, p entity.ReceiptPayload, raw json.RawMessage, cause error) error {
	lowConfidence := 0.1
	if err := h.receipts.UpdateStatus(ctx, p.ReceiptID, constants.ReceiptStatusFailed, &lowConfidence, raw); err != nil {
		h.log.Error("mark receipt failed errored", "receipt_id", p.ReceiptID, "error", err)
	}

	if job.FinalAttempt() {
		if err := h.txs.Delete(ctx, p.TransactionID); err != nil {
			h.log.Error("placeholder cleanup failed", "transaction_id", p.TransactionID, "error", err)
		}
		h.notifier.JobFailed(ctx, p.UserID, p.ChatID, cause.Error())
		h.notifier.Send(ctx, p.ChatID, remediationMessage)
	}
	return cause
}

func confirmationMessage(c entity.Candidate) string {
	desc := c.Description
	if desc == "" {
		desc = "(no description - add one when editing)"
	}
	return fmt.Sprintf(
		"Receipt processed! Please confirm the details:\n\n"+
			"Amount: %s %s\nDescription: %s\nMerchant: %s\nCategory: %s\nDate: %s\n\n"+
			"Is this correct?",
		c.Currency, c.Amount.StringFixed(2), desc, c.Merchant, c.Category,
		c.Date.Format("2006-01-02 15:04"),
	)
}
