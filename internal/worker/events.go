package worker

// TaskRow is one row of a batch task, already clamped to the per-document
// char limit at submission time.
type TaskRow struct {
	Text     string `json:"text"`
	Language string `json:"language,omitempty"`
}

// BatchTask is the payload published per row-batch on analysis.batch.
// Offset is the global position of the batch's first row: within the batch
// rows are correlated by their 0-based index, and Offset+index recovers the
// analysis-wide position.
type BatchTask struct {
	AnalysisID    string    `json:"analysis_id"`
	Offset        int       `json:"offset"`
	Rows          []TaskRow `json:"rows"`
	Kinds         []string  `json:"kinds"`
	Language      string    `json:"language,omitempty"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// IndexTask is the payload published per successfully analyzed row on
// analysis.index, consumed by the vector indexer.
type IndexTask struct {
	AnalysisID    string `json:"analysis_id"`
	AnalysisName  string `json:"analysis_name"`
	Position      int    `json:"position"`
	Text          string `json:"text"`
	Language      string `json:"language,omitempty"`
	Summary       string `json:"summary,omitempty"`
	CorrelationID string `json:"correlation_id,omitempty"`
}
