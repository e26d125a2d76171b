package notify

import (
	"context"
	"log/slog"
)

// Notifier pushes messages to a user's conversation. Calls are
// fire-and-forget: the pipeline never blocks on, or fails because of,
// delivery.
type Notifier interface {
	JobStarted(ctx context.Context, userID, chatID int64, receiptID int64)
	JobCompleted(ctx context.Context, userID, chatID int64, receiptID int64)
	JobFailed(ctx context.Context, userID, chatID int64, message string)
	Send(ctx context.Context, chatID int64, message string)
}

// LogNotifier is the default sink when no messaging platform is wired in.
type LogNotifier struct {
	log *slog.Logger
}

func NewLogNotifier(log *slog.Logger) *LogNotifier {
	if log == nil {
		log = slog.Default()
	}
	return &LogNotifier{log: log}
}

func (n *LogNotifier) JobStarted(_ context.Context, userID, chatID, receiptID int64) {
	n.log.Info("notify: processing started", "user_id", userID, "chat_id", chatID, "receipt_id", receiptID)
}

func (n *LogNotifier) JobCompleted(_ context.Context, userID, chatID, receiptID int64) {
	n.log.Info("notify: processing completed", "user_id", userID, "chat_id", chatID, "receipt_id", receiptID)
}

func (n *LogNotifier) JobFailed(_ context.Context, userID, chatID int64, message string) {
	n.log.Warn("notify: processing failed", "user_id", userID, "chat_id", chatID, "message", message)
}

func (n *LogNotifier) Send(_ context.Context, chatID int64, message string) {
	n.log.Info("notify: message", "chat_id", chatID, "message", message)
}
