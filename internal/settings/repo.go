package settings

import (
	"context"
	"database/sql"
)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Get(ctx context.Context) (*Settings, error) {
	s := &Settings{}
	query := `SELECT id, analytics_api_key, rerank_provider, rerank_api_key, gemini_api_key, search_alpha, search_top_k FROM settings WHERE id = 1`
	err := r.db.QueryRowContext(ctx, query).Scan(&s.ID, &s.AnalyticsAPIKey, &s.RerankProvider, &s.RerankAPIKey, &s.GeminiAPIKey, &s.SearchAlpha, &s.SearchTopK)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *PostgresRepo) Update(ctx context.Context, s *Settings) error {
	query := `
		UPDATE settings
		SET analytics_api_key = $1, rerank_provider = $2, rerank_api_key = $3, gemini_api_key = $4, search_alpha = $5, search_top_k = $6, updated_at = NOW()
		WHERE id = 1
	`
	_, err := r.db.ExecContext(ctx, query, s.AnalyticsAPIKey, s.RerankProvider, s.RerankAPIKey, s.GeminiAPIKey, s.SearchAlpha, s.SearchTopK)
	return err
}
