package analysis

import (
	"encoding/json"
	"time"
)

const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

type Analysis struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Tasks      []string  `json:"tasks"`
	Language   string    `json:"language,omitempty"`
	Status     string    `json:"status"`
	RowCount   int       `json:"row_count"`
	PayloadURL string    `json:"payload_url,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Row is one input document of an analysis. Position is its zero-based index
// in the submitted order and doubles as the wire correlation id within the
// row's batch.
type Row struct {
	AnalysisID string          `json:"analysis_id"`
	Position   int             `json:"position"`
	Text       string          `json:"text"`
	Language   string          `json:"language,omitempty"`
	Status     string          `json:"status"`
	Result     json.RawMessage `json:"result,omitempty"`
	Error      string          `json:"error,omitempty"`
}

// RowUpdate carries one row's outcome back into storage.
type RowUpdate struct {
	Position int
	Status   string
	Result   json.RawMessage
	Error    string
}
