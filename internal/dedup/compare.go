package dedup

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerbot-dev/ledgerbot/constants"
)

// compareAmounts scores two amounts against a tolerance band: exact within
// tolerance, then progressively wider bands at 5x and 10x.
func compareAmounts(a, b, tolerance decimal.Decimal) float64 {
	diff := a.Sub(b).Abs()
	switch {
	case diff.Cmp(tolerance) <= 0:
		return 1.0
	case diff.Cmp(tolerance.Mul(decimal.NewFromInt(5))) <= 0:
		return 0.8
	case diff.Cmp(tolerance.Mul(decimal.NewFromInt(10))) <= 0:
		return 0.5
	default:
		return 0.0
	}
}

// compareTimes scores two timestamps against a window, widening at 2x and 5x.
func compareTimes(a, b time.Time, window time.Duration) float64 {
	diff := a.Sub(b)
	if diff < 0 {
		diff = -diff
	}
	switch {
	case diff <= window:
		return 1.0
	case diff <= 2*window:
		return 0.8
	case diff <= 5*window:
		return 0.5
	default:
		return 0.0
	}
}

// compareStrings is case-insensitive Levenshtein similarity, accepted only
// above the threshold. Either side empty scores zero.
func compareStrings(a, b string, threshold float64) float64 {
	s1 := strings.ToLower(strings.TrimSpace(a))
	s2 := strings.ToLower(strings.TrimSpace(b))
	if s1 == "" || s2 == "" {
		return 0.0
	}
	if s1 == s2 {
		return 1.0
	}
	maxLen := len([]rune(s1))
	if l := len([]rune(s2)); l > maxLen {
		maxLen = l
	}
	sim := 1.0 - float64(levenshtein(s1, s2))/float64(maxLen)
	if sim >= threshold {
		return sim
	}
	return 0.0
}

// compareSources scores the capture-channel pair. Same-source duplicates are
// out of scope for this detector, so same source scores zero. The bot/manual
// pair is the canonical case of one purchase reported twice and scores 1.0;
// any other cross-source pair gets a moderate score.
func compareSources(a, b constants.Source) float64 {
	if a == b {
		return 0.0
	}
	if (a == constants.SourceBot && b == constants.SourceManual) ||
		(a == constants.SourceManual && b == constants.SourceBot) {
		return 1.0
	}
	return 0.5
}
