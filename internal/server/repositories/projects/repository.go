// Package projects stores travel projects.
package projects

import (
	"context"

	"github.com/dmitrijs2005/travelkeeper/internal/server/models"
)

// Repository persists projects. Places are not loaded here; see the places
// repository. Missing rows yield common.ErrorNotFound.
type Repository interface {
	Create(ctx context.Context, project *models.Project) (*models.Project, error)
	List(ctx context.Context, skip, limit int) ([]*models.Project, error)
	GetByID(ctx context.Context, id int64) (*models.Project, error)

	// LockByID reads the project with a row lock held until the surrounding
	// transaction ends. Place inserts and project deletion take it first.
	LockByID(ctx context.Context, id int64) (*models.Project, error)

	// Update writes name, description and start date and refreshes updated_at.
	Update(ctx context.Context, project *models.Project) (*models.Project, error)
	Delete(ctx context.Context, id int64) error
}
