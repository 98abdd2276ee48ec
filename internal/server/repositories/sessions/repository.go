// Package sessions persists login sessions. A session starts valid and can only
// be invalidated; no implementation ever flips Valid back to true.
package sessions

import (
	"context"

	"github.com/dmitrijs2005/authcore/internal/server/models"
)

// Repository is the session store used by the session service.
// Unknown session IDs yield common.ErrorNotFound.
type Repository interface {
	// Create stores a new valid session for accountID.
	Create(ctx context.Context, accountID, userAgent string) (*models.Session, error)
	Get(ctx context.Context, id string) (*models.Session, error)
	// Invalidate marks the session invalid. Invalidating an already
	// invalid session succeeds.
	Invalidate(ctx context.Context, id string) error
	// ListValid returns the valid sessions of accountID, oldest first.
	ListValid(ctx context.Context, accountID string) ([]models.Session, error)
	// InvalidateAll invalidates every valid session of accountID and
	// reports how many were changed.
	InvalidateAll(ctx context.Context, accountID string) (int64, error)
}
