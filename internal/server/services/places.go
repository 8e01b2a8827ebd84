package services

import (
	"context"
	"database/sql"
	"errors"

	"github.com/dmitrijs2005/travelkeeper/internal/common"
	"github.com/dmitrijs2005/travelkeeper/internal/dbx"
	"github.com/dmitrijs2005/travelkeeper/internal/logging"
	"github.com/dmitrijs2005/travelkeeper/internal/server/models"
	"github.com/dmitrijs2005/travelkeeper/internal/server/repositories/repomanager"
)

// PlaceInput is a catalog artwork to attach to a project.
type PlaceInput struct {
	ExternalID string
	Notes      *string
}

// PlacePatch lists the fields to change. A nil IsVisited keeps the flag.
type PlacePatch struct {
	Notes     Nullable[string]
	IsVisited *bool
}

type PlaceService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	catalog     Catalog
	log         logging.Logger
}

func NewPlaceService(db *sql.DB, m repomanager.RepositoryManager, catalog Catalog, log logging.Logger) *PlaceService {
	return &PlaceService{
		db:          db,
		repomanager: m,
		catalog:     catalog,
		log:         log.With("module", "places"),
	}
}

// Add attaches a place to a project. The project row is locked so the
// place limit holds under concurrent adds.
func (s *PlaceService) Add(ctx context.Context, projectID int64, in PlaceInput) (*models.Place, error) {
	ok, err := s.catalog.Exists(ctx, in.ExternalID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, common.ErrInvalidExternalPlace
	}

	var place *models.Place

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := s.repomanager.Projects(tx).LockByID(ctx, projectID); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrProjectNotFound
			}
			return err
		}

		repo := s.repomanager.Places(tx)

		existing, err := repo.ListByProject(ctx, projectID)
		if err != nil {
			return err
		}
		if len(existing) >= common.MaxPlacesPerProject {
			return common.ErrProjectPlaceLimit
		}
		for _, p := range existing {
			if p.ExternalID == in.ExternalID {
				return common.ErrPlaceAlreadyInProject
			}
		}

		created, err := repo.Create(ctx, &models.Place{
			ProjectID:  projectID,
			ExternalID: in.ExternalID,
			Notes:      in.Notes,
		})
		if err != nil {
			switch {
			case errors.Is(err, common.ErrorAlreadyExists):
				return common.ErrPlaceAlreadyInProject
			case errors.Is(err, common.ErrorNotFound):
				return common.ErrProjectNotFound
			}
			return err
		}

		place = created
		return nil
	})
	if err != nil {
		return nil, classify(err)
	}

	s.log.Info(ctx, "place added", "project_id", projectID, "place_id", place.ID)
	return place, nil
}

// ListForProject returns the places of an existing project.
func (s *PlaceService) ListForProject(ctx context.Context, projectID int64) ([]models.Place, error) {
	if _, err := s.repomanager.Projects(s.db).GetByID(ctx, projectID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrProjectNotFound
		}
		return nil, common.StorageError(err)
	}

	list, err := s.repomanager.Places(s.db).ListByProject(ctx, projectID)
	if err != nil {
		return nil, common.StorageError(err)
	}
	return list, nil
}

func (s *PlaceService) Get(ctx context.Context, placeID int64) (*models.Place, error) {
	place, err := s.repomanager.Places(s.db).GetByID(ctx, placeID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrPlaceNotFound
		}
		return nil, common.StorageError(err)
	}
	return place, nil
}

// Update applies the fields present in patch.
func (s *PlaceService) Update(ctx context.Context, placeID int64, patch PlacePatch) (*models.Place, error) {
	var place *models.Place

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Places(tx)

		current, err := repo.GetByID(ctx, placeID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrPlaceNotFound
			}
			return err
		}

		if patch.Notes.Set {
			current.Notes = patch.Notes.Value
		}
		if patch.IsVisited != nil {
			current.IsVisited = *patch.IsVisited
		}

		updated, err := repo.Update(ctx, current)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrPlaceNotFound
			}
			return err
		}

		place = updated
		return nil
	})
	if err != nil {
		return nil, classify(err)
	}
	return place, nil
}
