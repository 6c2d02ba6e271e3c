package textapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Poller drives a request to a terminal state. Synchronous responses are
// returned directly; a 202 with an operation location enters the poll loop.
type Poller struct {
	sender    *Sender
	maxTries  int
	pollDelay time.Duration
	headers   func(*http.Request)
}

func NewPoller(sender *Sender, maxTries int, pollDelay time.Duration, headers func(*http.Request)) *Poller {
	if maxTries <= 0 {
		maxTries = 1
	}
	return &Poller{sender: sender, maxTries: maxTries, pollDelay: pollDelay, headers: headers}
}

type pollState int

const (
	pollPending pollState = iota
	pollReady
	pollFailed
)

// Submit sends the request and, if the service deferred it, polls the status
// location until a terminal state. A remote failure is a valid terminal
// Outcome, not an error; only infrastructure problems (timeout, unknown
// status, transport) surface as errors.
func (p *Poller) Submit(ctx context.Context, build func(ctx context.Context) (*http.Request, error)) (*Outcome, error) {
	resp, err := p.sender.Send(ctx, build)
	if err != nil {
		return nil, err
	}
	body, err := readBody(resp)
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return &Outcome{State: StateReady, Body: body}, nil
	case resp.StatusCode == http.StatusAccepted:
		location := resp.Header.Get("Operation-Location")
		if location == "" {
			location = resp.Header.Get("Location")
		}
		if location == "" {
			return nil, ErrNoLocation
		}
		return p.poll(ctx, location)
	default:
		return nil, fmt.Errorf("analytics api error: %d: %s", resp.StatusCode, body)
	}
}

func (p *Poller) poll(ctx context.Context, location string) (*Outcome, error) {
	for try := 0; try < p.maxTries; try++ {
		if try > 0 {
			timer := time.NewTimer(p.pollDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}

		state, body, err := p.queryStatus(ctx, location)
		if err != nil {
			return nil, err
		}

		switch state {
		case pollReady:
			return &Outcome{State: StateReady, Body: body}, nil
		case pollFailed:
			return &Outcome{State: StateFailed, Body: body}, nil
		case pollPending:
			slog.DebugContext(ctx, "operation pending", "try", try+1, "max_tries", p.maxTries)
		}
	}

	return nil, &PollTimeoutError{Tries: p.maxTries}
}

func (p *Poller) queryStatus(ctx context.Context, location string) (pollState, []byte, error) {
	resp, err := p.sender.Send(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
		if err != nil {
			return nil, err
		}
		if p.headers != nil {
			p.headers(req)
		}
		return req, nil
	})
	if err != nil {
		return pollPending, nil, err
	}
	body, err := readBody(resp)
	if err != nil {
		return pollPending, nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return pollPending, nil, fmt.Errorf("status check error: %d: %s", resp.StatusCode, body)
	}

	status, ok := extractStatus(body)
	if !ok {
		return pollPending, nil, &UnknownStatusError{}
	}

	switch status {
	case "notStarted", "running":
		return pollPending, body, nil
	case "succeeded":
		return pollReady, body, nil
	case "failed", "cancelled":
		return pollFailed, body, nil
	default:
		return pollPending, nil, &UnknownStatusError{Status: status}
	}
}

// extractStatus pulls the operation status out of a parsed status body.
// Different service versions nest it differently; the known shapes are
// checked in fixed priority order: top-level "status", then
// "properties.status", then top-level "state".
func extractStatus(body []byte) (string, bool) {
	var shape struct {
		Status     string `json:"status"`
		Properties struct {
			Status string `json:"status"`
		} `json:"properties"`
		State string `json:"state"`
	}
	if err := json.Unmarshal(body, &shape); err != nil {
		return "", false
	}
	switch {
	case shape.Status != "":
		return shape.Status, true
	case shape.Properties.Status != "":
		return shape.Properties.Status, true
	case shape.State != "":
		return shape.State, true
	}
	return "", false
}

func readBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}
