package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerbot-dev/ledgerbot/constants"
	"github.com/ledgerbot-dev/ledgerbot/internal/extract"
)

func generateStub(t *testing.T, response string, capture *map[string]any) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/generate", r.URL.Path)
		if capture != nil {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(capture))
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"response": response})
	}
}

func writeTempImage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "receipt.jpg")
	require.NoError(t, os.WriteFile(path, []byte("not a real jpeg"), 0o644))
	return path
}

func TestExtractTransaction_VisionPath(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(generateStub(t,
		"```json\n{\"amount\": 12.50, \"merchant\": \"Starbucks\", \"category\": \"Food & Dining\", \"confidence\": 0.9}\n```",
		&captured))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, Model: "llava:latest"}, nil)

	candidate, raw, err := client.ExtractTransaction(context.Background(), extract.Request{
		ImagePath:       writeTempImage(t),
		DefaultCurrency: "SGD",
	})
	require.NoError(t, err)

	assert.True(t, candidate.Amount.Equal(decimal.RequireFromString("12.50")))
	assert.Equal(t, "Starbucks", candidate.Merchant)
	assert.Equal(t, constants.FoodAndDining, candidate.Category)
	assert.Equal(t, 0.9, candidate.Confidence)
	assert.JSONEq(t, `{"amount": 12.50, "merchant": "Starbucks", "category": "Food & Dining", "confidence": 0.9}`, string(raw))

	// the image was attached and streaming disabled
	assert.Equal(t, "llava:latest", captured["model"])
	assert.Equal(t, false, captured["stream"])
	images, ok := captured["images"].([]any)
	require.True(t, ok)
	require.Len(t, images, 1)
	assert.NotEmpty(t, images[0])
}

func TestExtractTransaction_TextPath(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(generateStub(t, `{"amount": "8.00", "merchant": "Kopitiam"}`, &captured))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL}, nil)

	candidate, _, err := client.ExtractTransaction(context.Background(), extract.Request{
		Text:            "spent 8 dollars at the kopitiam",
		DefaultCurrency: "SGD",
	})
	require.NoError(t, err)
	assert.True(t, candidate.Amount.Equal(decimal.RequireFromString("8.00")))
	assert.Equal(t, "Kopitiam", candidate.Merchant)

	_, hasImages := captured["images"]
	assert.False(t, hasImages)
	assert.Contains(t, captured["prompt"], "spent 8 dollars at the kopitiam")
}

func TestExtractTransaction_NeedsImageOrText(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://127.0.0.1:1"}, nil)
	_, _, err := client.ExtractTransaction(context.Background(), extract.Request{})
	require.Error(t, err)
}

func TestExtractTransaction_EmptyResponse(t *testing.T) {
	srv := httptest.NewServer(generateStub(t, "   ", nil))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL}, nil)
	_, _, err := client.ExtractTransaction(context.Background(), extract.Request{Text: "anything"})
	require.ErrorIs(t, err, extract.ErrEmptyResponse)
}

func TestExtractTransaction_NoJSONInResponse(t *testing.T) {
	srv := httptest.NewServer(generateStub(t, "I cannot see a receipt in this image.", nil))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL}, nil)
	_, _, err := client.ExtractTransaction(context.Background(), extract.Request{Text: "anything"})
	require.ErrorIs(t, err, extract.ErrNoJSON)
}

func TestExtractTransaction_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL}, nil)
	_, _, err := client.ExtractTransaction(context.Background(), extract.Request{Text: "anything"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"models": []map[string]any{{"name": "llava:latest"}, {"name": "llama3:8b"}},
		})
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL}, nil)
	models, err := client.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"llava:latest", "llama3:8b"}, models)
}

func TestNewClientDefaults(t *testing.T) {
	client := NewClient(Config{}, nil)
	assert.Equal(t, "llava:latest", client.cfg.Model)
	assert.Equal(t, 0.1, client.cfg.Temperature)
	assert.Equal(t, 0.9, client.cfg.TopP)
	assert.NotZero(t, client.cfg.Timeout)
}
