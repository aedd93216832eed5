// Package memory keeps applications in process memory. It backs local runs
// without a database and the service tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/m3rciful/teambot/internal/application"
)

type record struct {
	app application.Application
	seq uint64
}

// Store is an application.Repository guarded by a single mutex, so every
// conditional update is trivially atomic.
type Store struct {
	mu      sync.RWMutex
	records map[uuid.UUID]*record
	seq     uint64
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{records: make(map[uuid.UUID]*record)}
}

var _ application.Repository = (*Store)(nil)

func (s *Store) FindLatestByUser(_ context.Context, userID int64) (*application.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *record
	for _, r := range s.records {
		if r.app.UserID != userID {
			continue
		}
		if latest == nil || newer(r, latest) {
			latest = r
		}
	}
	if latest == nil {
		return nil, application.ErrNotFound
	}
	return snapshot(latest), nil
}

func (s *Store) FindByID(_ context.Context, id uuid.UUID) (*application.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[id]
	if !ok {
		return nil, application.ErrNotFound
	}
	return snapshot(r), nil
}

func (s *Store) Create(_ context.Context, app application.Application) (*application.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		if r.app.UserID != app.UserID {
			continue
		}
		if r.app.Status == application.StatusNew || r.app.Status == application.StatusPending {
			return nil, application.ErrDraftExists
		}
	}
	if app.ID == uuid.Nil {
		app.ID = uuid.New()
	}
	s.seq++
	r := &record{app: app.Clone(), seq: s.seq}
	s.records[app.ID] = r
	return snapshot(r), nil
}

func (s *Store) UpdateProfile(_ context.Context, id uuid.UUID, username, fullName *string, at time.Time) (*application.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok {
		return nil, application.ErrNotFound
	}
	r.app.Username = copyString(username)
	r.app.FullName = copyString(fullName)
	r.app.UpdatedAt = at
	return snapshot(r), nil
}

func (s *Store) Advance(_ context.Context, id uuid.UUID, from application.Step, ch application.Change) (*application.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok {
		return nil, application.ErrNotFound
	}
	if r.app.Step != from {
		return nil, application.ErrConflict
	}
	if ch.Source != nil {
		v := *ch.Source
		r.app.Source = &v
	}
	if ch.Availability != nil {
		v := *ch.Availability
		r.app.Availability = &v
	}
	if ch.HasExperience != nil {
		v := *ch.HasExperience
		r.app.HasExperience = &v
	}
	if ch.Status != nil {
		r.app.Status = *ch.Status
	}
	if ch.SubmittedAt != nil {
		v := *ch.SubmittedAt
		r.app.SubmittedAt = &v
	}
	r.app.Step = ch.Next
	r.app.UpdatedAt = ch.UpdatedAt
	return snapshot(r), nil
}

func (s *Store) Reset(_ context.Context, id uuid.UUID, at time.Time) (*application.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok {
		return nil, application.ErrNotFound
	}
	if r.app.Status != application.StatusNew {
		return nil, application.ErrConflict
	}
	r.app.Source = nil
	r.app.Availability = nil
	r.app.HasExperience = nil
	r.app.Step = application.StepSource
	r.app.UpdatedAt = at
	return snapshot(r), nil
}

func (s *Store) Decide(_ context.Context, id uuid.UUID, status application.Status, reviewerID int64, at time.Time) (*application.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok {
		return nil, application.ErrNotFound
	}
	if r.app.Status != application.StatusPending {
		return nil, application.ErrConflict
	}
	reviewedAt := at
	reviewer := reviewerID
	r.app.Status = status
	r.app.ReviewedAt = &reviewedAt
	r.app.ReviewedBy = &reviewer
	r.app.UpdatedAt = at
	return snapshot(r), nil
}

func (s *Store) CountByStatus(_ context.Context) (map[application.Status]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[application.Status]int)
	for _, r := range s.records {
		out[r.app.Status]++
	}
	return out, nil
}

// Len returns the number of stored applications.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// newer orders by creation time, then by insertion order for equal times.
func newer(a, b *record) bool {
	if !a.app.CreatedAt.Equal(b.app.CreatedAt) {
		return a.app.CreatedAt.After(b.app.CreatedAt)
	}
	return a.seq > b.seq
}

func snapshot(r *record) *application.Application {
	out := r.app.Clone()
	return &out
}

func copyString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
