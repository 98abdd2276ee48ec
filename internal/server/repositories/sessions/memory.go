package sessions

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/authcore/internal/common"
	"github.com/dmitrijs2005/authcore/internal/server/models"
)

// InMemoryRepository keeps sessions in a map guarded by a mutex.
type InMemoryRepository struct {
	mu       sync.Mutex
	sessions map[string]models.Session
	now      func() time.Time
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		sessions: make(map[string]models.Session),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (r *InMemoryRepository) Create(_ context.Context, accountID, userAgent string) (*models.Session, error) {
	now := r.now()
	s := models.Session{
		ID:        uuid.NewString(),
		AccountID: accountID,
		Valid:     true,
		UserAgent: userAgent,
		CreatedAt: now,
		UpdatedAt: now,
	}

	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()

	return &s, nil
}

func (r *InMemoryRepository) Get(_ context.Context, id string) (*models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &s, nil
}

func (r *InMemoryRepository) Invalidate(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return common.ErrorNotFound
	}
	if s.Valid {
		s.Valid = false
		s.UpdatedAt = r.now()
		r.sessions[id] = s
	}
	return nil
}

func (r *InMemoryRepository) ListValid(_ context.Context, accountID string) ([]models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []models.Session
	for _, s := range r.sessions {
		if s.AccountID == accountID && s.Valid {
			out = append(out, s)
		}
	}
	sortByCreated(out)
	return out, nil
}

func (r *InMemoryRepository) InvalidateAll(_ context.Context, accountID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	now := r.now()
	for id, s := range r.sessions {
		if s.AccountID == accountID && s.Valid {
			s.Valid = false
			s.UpdatedAt = now
			r.sessions[id] = s
			n++
		}
	}
	return n, nil
}

func sortByCreated(s []models.Session) {
	sort.SliceStable(s, func(i, j int) bool {
		if s[i].CreatedAt.Equal(s[j].CreatedAt) {
			return s[i].ID < s[j].ID
		}
		return s[i].CreatedAt.Before(s[j].CreatedAt)
	})
}

var _ Repository = (*InMemoryRepository)(nil)
