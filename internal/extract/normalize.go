package extract

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerbot-dev/ledgerbot/constants"
	"github.com/ledgerbot-dev/ledgerbot/internal/entity"
)

var reAmountNoise = regexp.MustCompile(`[^\d.\-]`)

// Normalize turns the loosely-typed JSON object a model returns into a
// Candidate with canonical types and defaults filled in. The amount must be
// present and parseable; everything else degrades gracefully.
func Normalize(m map[string]any, defaultCurrency string, now time.Time) (entity.Candidate, error) {
	if defaultCurrency == "" {
		defaultCurrency = "SGD"
	}

	amount, err := parseAmount(m["amount"])
	if err != nil {
		return entity.Candidate{}, err
	}

	c := entity.Candidate{
		Amount:        amount,
		Currency:      stringField(m, "currency", defaultCurrency),
		Description:   stringField(m, "description", ""),
		Merchant:      stringField(m, "merchant", "Unknown"),
		Date:          parseDate(stringField(m, "date", ""), now),
		PaymentMethod: stringField(m, "payment_method", ""),
		Confidence:    clampConfidence(m["confidence"]),
	}
	c.Category, _ = constants.Canonicalize(stringField(m, "category", ""))
	return c, nil
}

func parseAmount(v any) (decimal.Decimal, error) {
	switch t := v.(type) {
	case float64:
		return decimal.NewFromFloat(t), nil
	case string:
		cleaned := reAmountNoise.ReplaceAllString(t, "")
		if cleaned == "" {
			return decimal.Decimal{}, fmt.Errorf("amount %q: no digits", t)
		}
		d, err := decimal.NewFromString(cleaned)
		if err != nil {
			return decimal.Decimal{}, fmt.Errorf("amount %q: %w", t, err)
		}
		return d, nil
	case nil:
		return decimal.Decimal{}, fmt.Errorf("amount missing")
	default:
		return decimal.Decimal{}, fmt.Errorf("amount has unexpected type %T", v)
	}
}

func parseDate(s string, now time.Time) time.Time {
	if s == "" {
		return now
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return now
}

func stringField(m map[string]any, key, fallback string) string {
	if v, ok := m[key].(string); ok {
		s := strings.TrimSpace(v)
		if s != "" && !strings.EqualFold(s, "null") {
			return s
		}
	}
	return fallback
}

func clampConfidence(v any) float64 {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case string:
		if _, err := fmt.Sscanf(strings.TrimSpace(t), "%f", &f); err != nil {
			return 0.5
		}
	default:
		return 0.5
	}
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
