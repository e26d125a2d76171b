package entity

import (
	"encoding/json"
	"time"

	"github.com/ledgerbot-dev/ledgerbot/constants"
)

// Receipt links an uploaded image to its placeholder transaction and tracks
// the extraction lifecycle for that image.
type Receipt struct {
	ID               int64                   `json:"id"`
	TransactionID    int64                   `json:"transaction_id"`
	ImagePath        string                  `json:"image_path"`
	AIConfidence     *float64                `json:"ai_confidence,omitempty"`
	AIRawResponse    json.RawMessage         `json:"ai_raw_response,omitempty"`
	ProcessingStatus constants.ReceiptStatus `json:"processing_status"`
	CreatedAt        time.Time               `json:"created_at"`
}
