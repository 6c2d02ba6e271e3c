package analysis

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/lib/pq"
)

type Repository interface {
	Save(ctx context.Context, a *Analysis) error
	Get(ctx context.Context, id string) (*Analysis, error)
	List(ctx context.Context) ([]Analysis, error)
	UpdateStatus(ctx context.Context, id, status string) error
	Count(ctx context.Context) (int, error)
	CountByStatus(ctx context.Context, status string) (int, error)

	BulkCreateRows(ctx context.Context, rows []Row) error
	GetRows(ctx context.Context, analysisID string) ([]Row, error)
	UpdateRows(ctx context.Context, analysisID string, updates []RowUpdate) error
	MarkRowsFailed(ctx context.Context, analysisID string, from, to int, message string) error
	CountPendingRows(ctx context.Context, analysisID string) (int, error)
	CountRows(ctx context.Context) (int, error)
	CountRowErrors(ctx context.Context) (int, error)
}

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Save(ctx context.Context, a *Analysis) error {
	query := `INSERT INTO analyses (name, tasks, language, status, row_count, payload_url)
	          VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, created_at, updated_at`
	return r.db.QueryRowContext(ctx, query,
		a.Name, pq.Array(a.Tasks), a.Language, a.Status, a.RowCount, a.PayloadURL,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (*Analysis, error) {
	a := &Analysis{}
	query := `SELECT id, name, tasks, COALESCE(language, ''), status, row_count, COALESCE(payload_url, ''), created_at, updated_at
	          FROM analyses WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&a.ID, &a.Name, pq.Array(&a.Tasks), &a.Language, &a.Status, &a.RowCount, &a.PayloadURL, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *PostgresRepo) List(ctx context.Context) ([]Analysis, error) {
	query := `SELECT id, name, tasks, COALESCE(language, ''), status, row_count, COALESCE(payload_url, ''), created_at, updated_at
	          FROM analyses ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Analysis
	for rows.Next() {
		var a Analysis
		if err := rows.Scan(&a.ID, &a.Name, pq.Array(&a.Tasks), &a.Language, &a.Status, &a.RowCount, &a.PayloadURL, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) UpdateStatus(ctx context.Context, id, status string) error {
	query := `UPDATE analyses SET status = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, status, id)
	return err
}

func (r *PostgresRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM analyses`).Scan(&count)
	return count, err
}

func (r *PostgresRepo) CountByStatus(ctx context.Context, status string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM analyses WHERE status = $1`, status).Scan(&count)
	return count, err
}

func (r *PostgresRepo) BulkCreateRows(ctx context.Context, rows []Row) error {
	if len(rows) == 0 {
		return nil
	}

	txn, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer txn.Rollback()

	stmt, err := txn.PrepareContext(ctx, pq.CopyIn("analysis_rows", "analysis_id", "position", "text", "language", "status"))
	if err != nil {
		return err
	}

	for _, row := range rows {
		status := row.Status
		if status == "" {
			status = StatusPending
		}
		if _, err := stmt.ExecContext(ctx, row.AnalysisID, row.Position, row.Text, row.Language, status); err != nil {
			stmt.Close()
			return err
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		stmt.Close()
		return err
	}
	if err := stmt.Close(); err != nil {
		return err
	}

	return txn.Commit()
}

func (r *PostgresRepo) GetRows(ctx context.Context, analysisID string) ([]Row, error) {
	query := `SELECT analysis_id, position, text, COALESCE(language, ''), status, result, COALESCE(error, '')
	          FROM analysis_rows WHERE analysis_id = $1 ORDER BY position ASC`
	rows, err := r.db.QueryContext(ctx, query, analysisID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var row Row
		var result []byte
		if err := rows.Scan(&row.AnalysisID, &row.Position, &row.Text, &row.Language, &row.Status, &result, &row.Error); err != nil {
			return nil, err
		}
		if len(result) > 0 {
			row.Result = json.RawMessage(result)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) UpdateRows(ctx context.Context, analysisID string, updates []RowUpdate) error {
	txn, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer txn.Rollback()

	query := `UPDATE analysis_rows SET status = $1, result = $2, error = $3, updated_at = NOW()
	          WHERE analysis_id = $4 AND position = $5`
	for _, u := range updates {
		var result any
		if len(u.Result) > 0 {
			result = []byte(u.Result)
		}
		if _, err := txn.ExecContext(ctx, query, u.Status, result, u.Error, analysisID, u.Position); err != nil {
			return err
		}
	}
	return txn.Commit()
}

func (r *PostgresRepo) MarkRowsFailed(ctx context.Context, analysisID string, from, to int, message string) error {
	query := `UPDATE analysis_rows SET status = $1, error = $2, updated_at = NOW()
	          WHERE analysis_id = $3 AND position >= $4 AND position < $5`
	_, err := r.db.ExecContext(ctx, query, StatusFailed, message, analysisID, from, to)
	return err
}

func (r *PostgresRepo) CountPendingRows(ctx context.Context, analysisID string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM analysis_rows WHERE analysis_id = $1 AND status = $2`
	err := r.db.QueryRowContext(ctx, query, analysisID, StatusPending).Scan(&count)
	return count, err
}

func (r *PostgresRepo) CountRows(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM analysis_rows`).Scan(&count)
	return count, err
}

func (r *PostgresRepo) CountRowErrors(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM analysis_rows WHERE error <> ''`).Scan(&count)
	return count, err
}
