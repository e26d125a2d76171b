package extract

import (
	"context"
	"errors"

	"github.com/ledgerbot-dev/ledgerbot/internal/entity"
)

// Request describes one extraction call. Exactly one of ImagePath or Text is
// normally set: a receipt photo goes through the vision path, pre-extracted
// or manually entered text through the text path.
type Request struct {
	ImagePath string
	Text      string

	DefaultCurrency string
	Timezone        string
}

// Extractor turns transaction evidence into a normalized candidate. It also
// returns the raw JSON the model produced so callers can attach it for audit.
// A response that cannot be parsed into JSON is an error, never a
// zero-confidence success.
type Extractor interface {
	ExtractTransaction(ctx context.Context, req Request) (entity.Candidate, []byte, error)
}

var (
	// ErrNoJSON means the model response contained nothing parseable as a
	// JSON object, even after cleanup and the regex fallback.
	ErrNoJSON = errors.New("no valid JSON in model response")

	// ErrEmptyResponse means the service answered but the response body
	// carried no generated text.
	ErrEmptyResponse = errors.New("empty model response")
)
