package textapi

import "encoding/json"

// Row is one logical input unit. Its identity is its zero-based position in
// the submitted slice; that position, rendered as a string, is the
// correlation id used on the wire.
type Row struct {
	Text     string `json:"text"`
	Language string `json:"language,omitempty"`
}

// Document is one entry of an outbound batch request.
type Document struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	Language string `json:"language,omitempty"`
}

// RowResult is the per-row outcome of a batch call. Exactly one of Result
// and Error is set for matched rows; both are empty for a correlation gap
// (the service returned fewer entries than requested).
type RowResult struct {
	ID     int             `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
	// Gap marks rows the service never answered for. Kept explicit so
	// callers can distinguish "empty result" from "no result at all".
	Gap bool `json:"gap,omitempty"`
}

// TaskKind identifies one analysis task of a multi-task request.
type TaskKind string

const (
	TaskSentiment  TaskKind = "sentiment"
	TaskKeyPhrases TaskKind = "keyPhrases"
	TaskEntities   TaskKind = "entities"
)

// TaskOrder is the fixed order task slots appear in merged rows, independent
// of which kinds were requested or succeeded.
var TaskOrder = []TaskKind{TaskSentiment, TaskKeyPhrases, TaskEntities}

// TaskSlot is one (result, error) pair of a merged row.
type TaskSlot struct {
	Kind   TaskKind        `json:"kind"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// MergedRow is the fan-in output for one document across all surviving task
// kinds. Slots follow TaskOrder.
type MergedRow struct {
	ID    int        `json:"id"`
	Slots []TaskSlot `json:"slots"`
}

// batchResult is the wire shape shared by every batch-returning endpoint:
// two unordered collections keyed by correlation id.
type batchResult struct {
	Documents []documentResult `json:"documents"`
	Errors    []documentError  `json:"errors"`
}

type documentResult struct {
	ID     string          `json:"id"`
	Result json.RawMessage `json:"-"`

	raw json.RawMessage
}

// UnmarshalJSON keeps the full document object as the row result while still
// extracting the id for correlation. Endpoints shape their payloads
// differently (sentiment scores, phrase lists, entity lists); the correlator
// does not interpret them.
func (d *documentResult) UnmarshalJSON(b []byte) error {
	var probe struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(b, &probe); err != nil {
		return err
	}
	d.ID = probe.ID
	d.raw = append([]byte(nil), b...)
	d.Result = d.raw
	return nil
}

type documentError struct {
	ID    string `json:"id"`
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// taskGroup is one task kind's section of an LRO status body: its own state
// plus, when succeeded, its own document/error collections.
type taskGroup struct {
	State   string       `json:"state"`
	Results *batchResult `json:"results,omitempty"`
}

// taskResponses collects the per-kind groups of a multi-task status body.
// A nil group means the kind was not requested.
type taskResponses struct {
	Sentiment  *taskGroup `json:"sentimentTasks,omitempty"`
	KeyPhrases *taskGroup `json:"keyPhraseTasks,omitempty"`
	Entities   *taskGroup `json:"entityTasks,omitempty"`
}

func (t *taskResponses) group(kind TaskKind) *taskGroup {
	switch kind {
	case TaskSentiment:
		return t.Sentiment
	case TaskKeyPhrases:
		return t.KeyPhrases
	case TaskEntities:
		return t.Entities
	}
	return nil
}

// OutcomeState is the terminal state of a driven operation.
type OutcomeState string

const (
	StateReady  OutcomeState = "ready"
	StateFailed OutcomeState = "failed"
)

// Outcome is the terminal result of Submit. Failed is a valid terminal
// state, not an error: it means the remote computation failed, while the
// polling machinery worked.
type Outcome struct {
	State OutcomeState
	Body  []byte
}
