// Package users declares the account store and its PostgreSQL implementation.
package users

import (
	"context"

	"github.com/dmitrijs2005/travelkeeper/internal/server/models"
)

// Repository persists accounts. Lookups return common.ErrorNotFound for
// missing rows; Create returns common.ErrorAlreadyExists for a taken email.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)

	// LockByID reads the user row with a row lock held until the surrounding
	// transaction ends.
	LockByID(ctx context.Context, id string) (*models.User, error)

	Delete(ctx context.Context, id string) error
}
