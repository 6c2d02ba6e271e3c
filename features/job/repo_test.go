package job_test

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"textlens/features/job"
)

func TestPostgresRepo_Save(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := job.NewPostgresRepo(db)

	j := &job.Job{
		AnalysisID: "an-1",
		Handler:    "analysis-worker",
		Payload:    json.RawMessage(`{"offset":0}`),
		Error:      "poll timeout",
	}

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO failed_jobs (analysis_id, handler, payload, error)")).
		WithArgs(j.AnalysisID, j.Handler, []byte(j.Payload), j.Error).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "retries"}).AddRow("job-1", time.Now(), 0))

	err = repo.Save(context.Background(), j)
	assert.NoError(t, err)
	assert.Equal(t, "job-1", j.ID)
}

func TestPostgresRepo_Get(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := job.NewPostgresRepo(db)

	rows := sqlmock.NewRows([]string{"id", "analysis_id", "handler", "payload", "error", "retries", "created_at"}).
		AddRow("job-1", "an-1", "analysis-worker", []byte(`{"offset":0}`), "poll timeout", 0, time.Now())

	mock.ExpectQuery("SELECT id, analysis_id, handler, payload, error, retries, created_at FROM failed_jobs WHERE id = \\$1").
		WithArgs("job-1").
		WillReturnRows(rows)

	j, err := repo.Get(context.Background(), "job-1")
	assert.NoError(t, err)
	assert.Equal(t, "an-1", j.AnalysisID)
	assert.JSONEq(t, `{"offset":0}`, string(j.Payload))
}

func TestPostgresRepo_Delete(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := job.NewPostgresRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM failed_jobs WHERE id = $1")).
		WithArgs("job-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.Delete(context.Background(), "job-1")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
