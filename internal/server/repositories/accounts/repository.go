// Package accounts declares the account store consumed by the auth core and
// provides PostgreSQL and in-memory implementations.
package accounts

import (
	"context"

	"github.com/dmitrijs2005/authcore/internal/server/models"
)

// Repository reads and maintains account records. Emails are stored and
// looked up in models.NormalizeEmail form. Missing accounts yield
// common.ErrorNotFound.
type Repository interface {
	Create(ctx context.Context, account *models.Account) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	GetByID(ctx context.Context, id string) (*models.Account, error)
	Delete(ctx context.Context, id string) error
}
