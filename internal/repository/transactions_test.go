package repository

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerbot-dev/ledgerbot/constants"
	"github.com/ledgerbot-dev/ledgerbot/internal/entity"
	"github.com/ledgerbot-dev/ledgerbot/internal/platform/sqlite"
)

func setupTransactions(t *testing.T) TransactionRepository {
	t.Helper()
	db, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewTransactionRepository(db.DB, slog.Default())
}

func TestTransactionRepository_RoundTrip(t *testing.T) {
	txs := setupTransactions(t)
	ctx := context.Background()

	tx := &entity.Transaction{
		UserID:          7,
		Amount:          decimal.RequireFromString("12.50"),
		Description:     "grande latte",
		Category:        constants.FoodAndDining,
		Merchant:        "Starbucks",
		TransactionDate: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Source:          constants.SourceBot,
		ConfidenceScore: 0.92,
	}
	require.NoError(t, txs.Create(ctx, tx))
	require.NotZero(t, tx.ID)

	stored, err := txs.Get(ctx, tx.ID)
	require.NoError(t, err)
	assert.True(t, stored.Amount.Equal(tx.Amount), "amount survives the round trip exactly")
	assert.Equal(t, "SGD", stored.Currency, "default currency applied")
	assert.Equal(t, constants.SourceBot, stored.Source)
	assert.True(t, stored.TransactionDate.Equal(tx.TransactionDate))
	assert.Equal(t, 0.92, stored.ConfidenceScore)
}

func TestTransactionRepository_Update(t *testing.T) {
	txs := setupTransactions(t)
	ctx := context.Background()

	tx := &entity.Transaction{
		UserID:          7,
		Amount:          decimal.RequireFromString("12.50"),
		Category:        constants.Others,
		TransactionDate: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Source:          constants.SourceManual,
	}
	require.NoError(t, txs.Create(ctx, tx))

	tx.Description = "corrected"
	tx.Category = constants.FoodAndDining
	tx.IsVerified = true
	require.NoError(t, txs.Update(ctx, tx))

	stored, err := txs.Get(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, "corrected", stored.Description)
	assert.Equal(t, constants.FoodAndDining, stored.Category)
	assert.True(t, stored.IsVerified)
}

func TestTransactionRepository_DeleteThenGet(t *testing.T) {
	txs := setupTransactions(t)
	ctx := context.Background()

	tx := &entity.Transaction{
		UserID:          7,
		Amount:          decimal.RequireFromString("5.00"),
		TransactionDate: time.Now().UTC(),
		Source:          constants.SourceBot,
	}
	require.NoError(t, txs.Create(ctx, tx))
	require.NoError(t, txs.Delete(ctx, tx.ID))

	_, err := txs.Get(ctx, tx.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestTransactionRepository_ListByUserBetween(t *testing.T) {
	txs := setupTransactions(t)
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	var ids []int64
	for _, offset := range []time.Duration{0, 10 * time.Minute, 2 * time.Hour} {
		tx := &entity.Transaction{
			UserID:          7,
			Amount:          decimal.RequireFromString("10.00"),
			TransactionDate: base.Add(offset),
			Source:          constants.SourceBot,
		}
		require.NoError(t, txs.Create(ctx, tx))
		ids = append(ids, tx.ID)
	}

	// another user's row never leaks in
	other := &entity.Transaction{
		UserID:          8,
		Amount:          decimal.RequireFromString("10.00"),
		TransactionDate: base,
		Source:          constants.SourceBot,
	}
	require.NoError(t, txs.Create(ctx, other))

	got, err := txs.ListByUserBetween(ctx, 7, base, base.Add(30*time.Minute))
	require.NoError(t, err)
	require.Len(t, got, 2)

	// newest first
	assert.Equal(t, ids[1], got[0].ID)
	assert.Equal(t, ids[0], got[1].ID)
}
