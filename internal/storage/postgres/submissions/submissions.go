package submissionstorage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/zanzhit/flameguard/internal/domain/errs"
	"github.com/zanzhit/flameguard/internal/domain/models"
	"github.com/zanzhit/flameguard/internal/storage/postgres"
)

type SubmissionStorage struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *SubmissionStorage {
	return &SubmissionStorage{
		db: db,
	}
}

func (s *SubmissionStorage) SaveSubmission(ctx context.Context, sub models.Submission) error {
	const op = "storage.postgres.submissions.SaveSubmission"

	query := fmt.Sprintf(`INSERT INTO %s (id, filename, size, content_type, status, video_log_id, error, created_at, updated_at)
		VALUES (:id, :filename, :size, :content_type, :status, :video_log_id, :error, :created_at, :updated_at)`,
		postgres.SubmissionsTable)

	if _, err := s.db.NamedExecContext(ctx, query, sub); err != nil {
		return fmt.Errorf("%s: %w: %w", op, errs.ErrWriteToDB, err)
	}

	return nil
}

func (s *SubmissionStorage) UpdateSubmission(ctx context.Context, sub models.Submission) error {
	const op = "storage.postgres.submissions.UpdateSubmission"

	query := fmt.Sprintf(`UPDATE %s SET status = :status, video_log_id = :video_log_id, error = :error, updated_at = :updated_at
		WHERE id = :id`, postgres.SubmissionsTable)

	res, err := s.db.NamedExecContext(ctx, query, sub)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", op, errs.ErrWriteToDB, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, errs.ErrSubmissionNotFound)
	}

	return nil
}

func (s *SubmissionStorage) Submission(ctx context.Context, id string) (models.Submission, error) {
	const op = "storage.postgres.submissions.Submission"

	var sub models.Submission
	query := fmt.Sprintf(`SELECT id, filename, size, content_type, status, video_log_id, error, created_at, updated_at
		FROM %s WHERE id = $1`, postgres.SubmissionsTable)

	if err := s.db.GetContext(ctx, &sub, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Submission{}, fmt.Errorf("%s: %w", op, errs.ErrSubmissionNotFound)
		}

		return models.Submission{}, fmt.Errorf("%s: %w", op, err)
	}

	return sub, nil
}

// Submissions returns the newest submissions first.
func (s *SubmissionStorage) Submissions(ctx context.Context, limit int) ([]models.Submission, error) {
	const op = "storage.postgres.submissions.Submissions"

	subs := []models.Submission{}
	query := fmt.Sprintf(`SELECT id, filename, size, content_type, status, video_log_id, error, created_at, updated_at
		FROM %s ORDER BY created_at DESC LIMIT $1`, postgres.SubmissionsTable)

	if err := s.db.SelectContext(ctx, &subs, query, limit); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return subs, nil
}
