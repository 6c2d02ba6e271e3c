package job

import (
	"encoding/json"
	"time"
)

// Job is a batch task that exhausted its queue retries. The payload is the
// original task body so a retry re-enters the pipeline unchanged.
type Job struct {
	ID         string          `json:"id"`
	AnalysisID string          `json:"analysis_id"`
	Handler    string          `json:"handler"`
	Payload    json.RawMessage `json:"payload"`
	Error      string          `json:"error"`
	Retries    int             `json:"retries"`
	CreatedAt  time.Time       `json:"created_at"`
}
