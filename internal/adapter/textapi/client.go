package textapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// KeySource supplies the API key per call, so keys rotated at runtime (via
// settings) take effect without rebuilding the client.
type KeySource interface {
	AnalyticsKey(ctx context.Context) (string, error)
}

type staticKey string

func (k staticKey) AnalyticsKey(context.Context) (string, error) { return string(k), nil }

// Config carries the knobs of the analytics client. BackoffSchedule bounds
// transient retries per request; MaxPollTries and PollDelay bound the LRO
// poll loop. Language is the scalar broadcast to rows without their own.
type Config struct {
	Endpoint        string
	APIKey          string
	Keys            KeySource // overrides APIKey when set
	Language        string
	MaxPollTries    int
	PollDelay       time.Duration
	BackoffSchedule []time.Duration
	HTTPClient      *http.Client
}

// Client calls the remote text analytics API. Every operation shares the
// same sender/poller/correlator core and differs only in how it builds its
// request and parses its result. A Client holds no per-call state and is
// safe for concurrent use.
type Client struct {
	baseURL  string
	keys     KeySource
	language string
	poller   *Poller
}

func NewClient(cfg Config) *Client {
	keys := cfg.Keys
	if keys == nil {
		keys = staticKey(cfg.APIKey)
	}
	c := &Client{
		baseURL:  cfg.Endpoint,
		keys:     keys,
		language: cfg.Language,
	}
	sender := NewSender(cfg.HTTPClient, cfg.BackoffSchedule)
	c.poller = NewPoller(sender, cfg.MaxPollTries, cfg.PollDelay, func(req *http.Request) {
		if key, err := keys.AnalyticsKey(req.Context()); err == nil && key != "" {
			req.Header.Set("Api-Key", key)
		}
	})
	return c
}

// BatchOutcome is the row-aligned result of a single-task operation. Failed
// marks a remote terminal failure of the whole batch: Rows is empty and
// Message carries the remote detail. Callers report it per affected row.
type BatchOutcome struct {
	Rows    []RowResult
	Failed  bool
	Message string
}

// AnalyzeOutcome is the merged result of a multi-task operation. Empty Rows
// with Failed unset means every requested task group failed.
type AnalyzeOutcome struct {
	Rows    []MergedRow
	Failed  bool
	Message string
}

// Sentiment scores each row's sentiment in one batch call.
func (c *Client) Sentiment(ctx context.Context, rows []Row) (*BatchOutcome, error) {
	return c.batchOp(ctx, "/v1/sentiment", rows)
}

// KeyPhrases extracts key phrases for each row in one batch call.
func (c *Client) KeyPhrases(ctx context.Context, rows []Row) (*BatchOutcome, error) {
	return c.batchOp(ctx, "/v1/keyPhrases", rows)
}

// Entities recognizes named entities for each row in one batch call.
func (c *Client) Entities(ctx context.Context, rows []Row) (*BatchOutcome, error) {
	return c.batchOp(ctx, "/v1/entities", rows)
}

func (c *Client) batchOp(ctx context.Context, path string, rows []Row) (*BatchOutcome, error) {
	docs := encodeDocuments(rows, c.language)
	outcome, err := c.poller.Submit(ctx, c.buildJSON(path, batchRequest{Documents: docs}))
	if err != nil {
		return nil, err
	}

	if outcome.State == StateFailed {
		return &BatchOutcome{Failed: true, Message: failureMessage(outcome.Body)}, nil
	}

	var result batchResult
	if err := json.Unmarshal(outcome.Body, &result); err != nil {
		return nil, fmt.Errorf("parse batch response: %w", err)
	}
	return &BatchOutcome{Rows: reconcile(ctx, &result, len(rows))}, nil
}

// Analyze runs several independent analysis tasks over one batch as a single
// long-running operation, then merges the per-task results per document.
func (c *Client) Analyze(ctx context.Context, rows []Row, kinds []TaskKind) (*AnalyzeOutcome, error) {
	docs := encodeDocuments(rows, c.language)

	tasks := map[string]any{}
	for _, kind := range kinds {
		switch kind {
		case TaskSentiment:
			tasks["sentimentTasks"] = map[string]any{}
		case TaskKeyPhrases:
			tasks["keyPhraseTasks"] = map[string]any{}
		case TaskEntities:
			tasks["entityTasks"] = map[string]any{}
		}
	}

	payload := map[string]any{
		"analysisInput": batchRequest{Documents: docs},
		"tasks":         tasks,
	}

	outcome, err := c.poller.Submit(ctx, c.buildJSON("/v1/analyze", payload))
	if err != nil {
		return nil, err
	}

	if outcome.State == StateFailed {
		return &AnalyzeOutcome{Failed: true, Message: failureMessage(outcome.Body)}, nil
	}

	var status struct {
		Tasks taskResponses `json:"tasks"`
	}
	if err := json.Unmarshal(outcome.Body, &status); err != nil {
		return nil, fmt.Errorf("parse analyze response: %w", err)
	}
	return &AnalyzeOutcome{Rows: mergeTasks(ctx, &status.Tasks, len(rows))}, nil
}

// buildJSON returns a request builder producing a fresh request per attempt,
// so retried sends re-read the body from the start.
func (c *Client) buildJSON(path string, payload any) func(ctx context.Context) (*http.Request, error) {
	return func(ctx context.Context) (*http.Request, error) {
		body, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		key, err := c.keys.AnalyticsKey(ctx)
		if err != nil {
			return nil, fmt.Errorf("resolve analytics key: %w", err)
		}
		if key != "" {
			req.Header.Set("Api-Key", key)
		}
		return req, nil
	}
}

func failureMessage(body []byte) string {
	var shape struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(body, &shape); err == nil {
		if shape.Error.Message != "" {
			return shape.Error.Message
		}
		if len(shape.Errors) > 0 && shape.Errors[0].Message != "" {
			return shape.Errors[0].Message
		}
	}
	return "analysis failed"
}
