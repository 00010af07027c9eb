package submissionstorage

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/zanzhit/flameguard/internal/domain/errs"
	"github.com/zanzhit/flameguard/internal/domain/models"
	"github.com/zanzhit/flameguard/internal/storage/postgres"
)

// TestSubmissionStorageIntegration runs the journal against a real Postgres
// container. It requires Docker.
func TestSubmissionStorageIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("testcontainers panicked: %v", r)
			}
		}()
		_, err = testcontainers.NewDockerClientWithOpts(ctx)
		return
	}()
	if err != nil {
		t.Skipf("docker not available: %v", err)
	}

	pgContainer, err := tcpostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		tcpostgres.WithDatabase("flameguard_test"),
		tcpostgres.WithUsername("user"),
		tcpostgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Skipf("failed to start postgres container: %v", err)
	}
	defer func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Fatalf("failed to terminate container: %v", err)
		}
	}()

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	m, err := migrate.New("file://../../../../migrations", connStr)
	if err != nil {
		t.Fatalf("failed to create migrator: %v", err)
	}
	if err := m.Up(); err != nil {
		t.Fatalf("failed to apply migrations: %v", err)
	}

	db, err := postgres.Connect(ctx, connStr)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer db.Close()

	s := New(db)

	created := time.Now().UTC().Truncate(time.Millisecond)
	first := models.Submission{
		ID:          "sub-1",
		Filename:    "forest.mp4",
		Size:        1536,
		ContentType: "video/mp4",
		Status:      models.SubmissionUploading,
		CreatedAt:   created,
		UpdatedAt:   created,
	}
	second := first
	second.ID = "sub-2"
	second.CreatedAt = created.Add(time.Second)

	for _, sub := range []models.Submission{first, second} {
		if err := s.SaveSubmission(ctx, sub); err != nil {
			t.Fatalf("SaveSubmission(%s): %v", sub.ID, err)
		}
	}

	logID := int64(42)
	first.Status = models.SubmissionProcessed
	first.VideoLogID = &logID
	first.UpdatedAt = created.Add(2 * time.Second)
	if err := s.UpdateSubmission(ctx, first); err != nil {
		t.Fatalf("UpdateSubmission: %v", err)
	}

	got, err := s.Submission(ctx, "sub-1")
	if err != nil {
		t.Fatalf("Submission: %v", err)
	}
	if got.Status != models.SubmissionProcessed || got.VideoLogID == nil || *got.VideoLogID != 42 {
		t.Errorf("unexpected submission %+v", got)
	}

	list, err := s.Submissions(ctx, 10)
	if err != nil {
		t.Fatalf("Submissions: %v", err)
	}
	if len(list) != 2 || list[0].ID != "sub-2" {
		t.Errorf("expected newest first, got %+v", list)
	}

	if _, err := s.Submission(ctx, "missing"); !errors.Is(err, errs.ErrSubmissionNotFound) {
		t.Errorf("expected ErrSubmissionNotFound, got %v", err)
	}

	missing := first
	missing.ID = "missing"
	if err := s.UpdateSubmission(ctx, missing); !errors.Is(err, errs.ErrSubmissionNotFound) {
		t.Errorf("expected ErrSubmissionNotFound, got %v", err)
	}
}
