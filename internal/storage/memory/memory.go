// Package memory keeps the submission journal in process when no database is
// configured. Entries are lost on restart.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/zanzhit/flameguard/internal/domain/errs"
	"github.com/zanzhit/flameguard/internal/domain/models"
)

type SubmissionStorage struct {
	mu   sync.RWMutex
	subs map[string]models.Submission
}

func New() *SubmissionStorage {
	return &SubmissionStorage{subs: make(map[string]models.Submission)}
}

func (s *SubmissionStorage) SaveSubmission(_ context.Context, sub models.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.subs[sub.ID] = sub

	return nil
}

func (s *SubmissionStorage) UpdateSubmission(_ context.Context, sub models.Submission) error {
	const op = "storage.memory.UpdateSubmission"

	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.subs[sub.ID]
	if !ok {
		return fmt.Errorf("%s: %w", op, errs.ErrSubmissionNotFound)
	}

	cur.Status = sub.Status
	cur.VideoLogID = sub.VideoLogID
	cur.Error = sub.Error
	cur.UpdatedAt = sub.UpdatedAt
	s.subs[sub.ID] = cur

	return nil
}

func (s *SubmissionStorage) Submission(_ context.Context, id string) (models.Submission, error) {
	const op = "storage.memory.Submission"

	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.subs[id]
	if !ok {
		return models.Submission{}, fmt.Errorf("%s: %w", op, errs.ErrSubmissionNotFound)
	}

	return sub, nil
}

func (s *SubmissionStorage) Submissions(_ context.Context, limit int) ([]models.Submission, error) {
	s.mu.RLock()
	subs := make([]models.Submission, 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	s.mu.RUnlock()

	sort.Slice(subs, func(i, j int) bool { return subs[i].CreatedAt.After(subs[j].CreatedAt) })

	if limit > 0 && len(subs) > limit {
		subs = subs[:limit]
	}

	return subs, nil
}
