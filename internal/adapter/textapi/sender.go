package textapi

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Sender sends one HTTP request with a finite, ordered backoff schedule.
// An empty schedule means a single attempt. The request is rebuilt for every
// attempt so the body can be re-read.
type Sender struct {
	client   *http.Client
	schedule []time.Duration
}

func NewSender(client *http.Client, schedule []time.Duration) *Sender {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Sender{client: client, schedule: schedule}
}

// Send attempts the request, retrying transient failures (network errors and
// retryable status codes) after each delay in the schedule. Once the schedule
// is exhausted the last failure is returned as-is: a failed response is
// returned with a nil error so callers can read the body, a transport error
// as an error. Non-retryable responses return immediately.
func (s *Sender) Send(ctx context.Context, build func(ctx context.Context) (*http.Request, error)) (*http.Response, error) {
	var lastResp *http.Response
	var lastErr error

	for attempt := 0; attempt <= len(s.schedule); attempt++ {
		if attempt > 0 {
			delay := s.schedule[attempt-1]
			slog.DebugContext(ctx, "retrying request", "attempt", attempt, "delay", delay)
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}

		req, err := build(ctx)
		if err != nil {
			return nil, err
		}

		resp, err := s.client.Do(req)
		if err != nil {
			if lastResp != nil {
				drain(lastResp)
			}
			lastResp, lastErr = nil, err
			continue
		}

		if !retryableStatus(resp.StatusCode) {
			if lastResp != nil {
				drain(lastResp)
			}
			return resp, nil
		}

		// Retryable response: keep it as the last failure but release the
		// connection before the next attempt.
		if lastResp != nil {
			drain(lastResp)
		}
		lastResp, lastErr = resp, nil
	}

	if lastResp != nil {
		return lastResp, nil
	}
	return nil, lastErr
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	_ = resp.Body.Close()
}
