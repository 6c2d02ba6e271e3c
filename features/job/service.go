package job

import (
	"context"
	"encoding/json"

	"textlens/internal/config"
)

type EventPublisher interface {
	Publish(topic string, body []byte) error
}

type Service struct {
	repo Repository
	pub  EventPublisher
}

func NewService(repo Repository, pub EventPublisher) *Service {
	return &Service{repo: repo, pub: pub}
}

// SaveFailed records a dead batch task so it can be retried manually once
// the underlying issue clears.
func (s *Service) SaveFailed(ctx context.Context, analysisID, handler string, payload []byte, message string) error {
	return s.repo.Save(ctx, &Job{
		AnalysisID: analysisID,
		Handler:    handler,
		Payload:    json.RawMessage(payload),
		Error:      message,
	})
}

func (s *Service) List(ctx context.Context) ([]Job, error) {
	return s.repo.List(ctx)
}

func (s *Service) Retry(ctx context.Context, id string) error {
	// 1. Get Job
	job, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}

	// 2. Publish back onto the batch topic
	if err := s.pub.Publish(config.TopicAnalysisBatch, job.Payload); err != nil {
		return err
	}

	// 3. Delete Job
	return s.repo.Delete(ctx, id)
}

func (s *Service) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}
