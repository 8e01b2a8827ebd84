// Package places stores the catalog artworks attached to projects.
package places

import (
	"context"

	"github.com/dmitrijs2005/travelkeeper/internal/server/models"
)

// Repository persists places. Missing rows yield common.ErrorNotFound and a
// repeated (project, external id) pair yields common.ErrorAlreadyExists.
type Repository interface {
	Create(ctx context.Context, place *models.Place) (*models.Place, error)
	ListByProject(ctx context.Context, projectID int64) ([]models.Place, error)

	// ListByProjectIDs groups the places of several projects by project id.
	// Projects without places are absent from the map.
	ListByProjectIDs(ctx context.Context, projectIDs []int64) (map[int64][]models.Place, error)

	GetByID(ctx context.Context, id int64) (*models.Place, error)

	// Update writes notes and the visited flag.
	Update(ctx context.Context, place *models.Place) (*models.Place, error)
	DeleteByProject(ctx context.Context, projectID int64) (int64, error)
}
