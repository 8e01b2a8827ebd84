// Package refreshtokens declares the server-side repository contract for
// managing refresh tokens in persistent storage.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/travelkeeper/internal/server/models"
)

// Repository defines operations for issuing, retrieving, and revoking refresh tokens.
type Repository interface {
	// Create stores a new refresh token for userID that expires at expiresAt.
	Create(ctx context.Context, userID string, token string, expiresAt time.Time) error

	// FindByToken looks up a refresh token by its exact token string.
	// It returns common.ErrorNotFound when the token is absent.
	FindByToken(ctx context.Context, token string) (*models.RefreshToken, error)

	// Delete removes a refresh token by its token string. Deleting a non-existent
	// token is not an error.
	Delete(ctx context.Context, token string) error

	// DeleteByUser removes every refresh token owned by userID and reports how
	// many were removed.
	DeleteByUser(ctx context.Context, userID string) (int64, error)

	// ListActiveByUser returns the tokens of userID that are still valid at now.
	ListActiveByUser(ctx context.Context, userID string, now time.Time) ([]models.RefreshToken, error)
}
