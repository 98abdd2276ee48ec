package accounts

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/authcore/internal/common"
	"github.com/dmitrijs2005/authcore/internal/server/models"
)

// InMemoryRepository is a map-backed Repository for tests and local runs.
type InMemoryRepository struct {
	mu       sync.RWMutex
	accounts map[string]models.Account
	byEmail  map[string]string
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		accounts: make(map[string]models.Account),
		byEmail:  make(map[string]string),
	}
}

func (r *InMemoryRepository) Create(_ context.Context, account *models.Account) (*models.Account, error) {
	a := *account
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	a.Email = models.NormalizeEmail(a.Email)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byEmail[a.Email]; ok {
		return nil, common.ErrorAlreadyExists
	}
	if _, ok := r.accounts[a.ID]; ok {
		return nil, common.ErrorAlreadyExists
	}
	r.accounts[a.ID] = a
	r.byEmail[a.Email] = a.ID
	return &a, nil
}

func (r *InMemoryRepository) GetByEmail(_ context.Context, email string) (*models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[models.NormalizeEmail(email)]
	if !ok {
		return nil, common.ErrorNotFound
	}
	a := r.accounts[id]
	return &a, nil
}

func (r *InMemoryRepository) GetByID(_ context.Context, id string) (*models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.accounts[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &a, nil
}

func (r *InMemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.accounts[id]
	if !ok {
		return common.ErrorNotFound
	}
	delete(r.byEmail, a.Email)
	delete(r.accounts, id)
	return nil
}

var _ Repository = (*InMemoryRepository)(nil)
