package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/travelkeeper/internal/common"
	"github.com/dmitrijs2005/travelkeeper/internal/dbx"
	"github.com/dmitrijs2005/travelkeeper/internal/logging"
	"github.com/dmitrijs2005/travelkeeper/internal/server/models"
	"github.com/dmitrijs2005/travelkeeper/internal/server/repositories/repomanager"
)

// Paging limits for project listings.
const (
	DefaultListLimit = 100
	MaxListLimit     = 100
	maxNameLength    = 255
)

// Catalog answers whether an artwork id exists in the third-party catalog.
type Catalog interface {
	Exists(ctx context.Context, externalID string) (bool, error)
}

// Nullable is a patch field that can be absent, set to a value or cleared.
// Set reports presence; a nil Value with Set clears the column.
type Nullable[T any] struct {
	Set   bool
	Value *T
}

// ProjectInput is a new project, optionally with its first places.
type ProjectInput struct {
	Name        string
	Description *string
	StartDate   *time.Time
	Places      []PlaceInput
}

// ProjectPatch lists the fields to change. A nil Name keeps the current name.
type ProjectPatch struct {
	Name        *string
	Description Nullable[string]
	StartDate   Nullable[time.Time]
}

type ProjectService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	catalog     Catalog
	log         logging.Logger
}

func NewProjectService(db *sql.DB, m repomanager.RepositoryManager, catalog Catalog, log logging.Logger) *ProjectService {
	return &ProjectService{
		db:          db,
		repomanager: m,
		catalog:     catalog,
		log:         log.With("module", "projects"),
	}
}

func validateProjectName(name string) error {
	n := utf8.RuneCountInString(name)
	if n < 1 {
		return common.NewValidationError("name", "String should have at least 1 character")
	}
	if n > maxNameLength {
		return common.NewValidationError("name", fmt.Sprintf("String should have at most %d characters", maxNameLength))
	}
	return nil
}

// Create stores a project and its places in one transaction. Every place is
// checked against the catalog before anything is written.
func (s *ProjectService) Create(ctx context.Context, in ProjectInput) (*models.Project, error) {
	if err := validateProjectName(in.Name); err != nil {
		return nil, err
	}
	if len(in.Places) > common.MaxPlacesPerProject {
		return nil, common.ErrProjectPlaceLimit
	}

	seen := make(map[string]struct{}, len(in.Places))
	for _, p := range in.Places {
		if _, dup := seen[p.ExternalID]; dup {
			return nil, common.ErrPlaceAlreadyInProject
		}
		seen[p.ExternalID] = struct{}{}
	}

	for _, p := range in.Places {
		ok, err := s.catalog.Exists(ctx, p.ExternalID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, common.WithDetail(common.ErrInvalidExternalPlace, fmt.Sprintf("ID %s is invalid", p.ExternalID))
		}
	}

	var project *models.Project

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		created, err := s.repomanager.Projects(tx).Create(ctx, &models.Project{
			Name:        in.Name,
			Description: in.Description,
			StartDate:   in.StartDate,
		})
		if err != nil {
			return err
		}

		placesRepo := s.repomanager.Places(tx)
		created.Places = make([]models.Place, 0, len(in.Places))
		for _, p := range in.Places {
			place, err := placesRepo.Create(ctx, &models.Place{
				ProjectID:  created.ID,
				ExternalID: p.ExternalID,
				Notes:      p.Notes,
			})
			if err != nil {
				if errors.Is(err, common.ErrorAlreadyExists) {
					return common.ErrPlaceAlreadyInProject
				}
				return err
			}
			created.Places = append(created.Places, *place)
		}

		project = created
		return nil
	})
	if err != nil {
		return nil, classify(err)
	}

	s.log.Info(ctx, "project created", "project_id", project.ID, "places", len(project.Places))
	return project, nil
}

// List returns a page of projects with their places. A limit outside
// [1, MaxListLimit] is clamped.
func (s *ProjectService) List(ctx context.Context, skip, limit int) ([]*models.Project, error) {
	if skip < 0 {
		return nil, common.NewValidationError("skip", "Input should be greater than or equal to 0")
	}
	limit = max(1, min(limit, MaxListLimit))

	list, err := s.repomanager.Projects(s.db).List(ctx, skip, limit)
	if err != nil {
		return nil, common.StorageError(err)
	}

	ids := make([]int64, len(list))
	for i, p := range list {
		ids[i] = p.ID
	}

	byProject, err := s.repomanager.Places(s.db).ListByProjectIDs(ctx, ids)
	if err != nil {
		return nil, common.StorageError(err)
	}

	for _, p := range list {
		p.Places = byProject[p.ID]
		if p.Places == nil {
			p.Places = []models.Place{}
		}
	}
	return list, nil
}

// Get returns one project with its places.
func (s *ProjectService) Get(ctx context.Context, id int64) (*models.Project, error) {
	project, err := s.repomanager.Projects(s.db).GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrProjectNotFound
		}
		return nil, common.StorageError(err)
	}

	project.Places, err = s.repomanager.Places(s.db).ListByProject(ctx, id)
	if err != nil {
		return nil, common.StorageError(err)
	}
	return project, nil
}

// Update applies the fields present in patch.
func (s *ProjectService) Update(ctx context.Context, id int64, patch ProjectPatch) (*models.Project, error) {
	if patch.Name != nil {
		if err := validateProjectName(*patch.Name); err != nil {
			return nil, err
		}
	}

	var project *models.Project

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Projects(tx)

		current, err := repo.LockByID(ctx, id)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrProjectNotFound
			}
			return err
		}

		if patch.Name != nil {
			current.Name = *patch.Name
		}
		if patch.Description.Set {
			current.Description = patch.Description.Value
		}
		if patch.StartDate.Set {
			current.StartDate = patch.StartDate.Value
		}

		updated, err := repo.Update(ctx, current)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrProjectNotFound
			}
			return err
		}

		updated.Places, err = s.repomanager.Places(tx).ListByProject(ctx, id)
		if err != nil {
			return err
		}

		project = updated
		return nil
	})
	if err != nil {
		return nil, classify(err)
	}
	return project, nil
}

// Delete removes a project and its places unless one of them is visited.
func (s *ProjectService) Delete(ctx context.Context, id int64) error {
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		projects := s.repomanager.Projects(tx)
		placesRepo := s.repomanager.Places(tx)

		if _, err := projects.LockByID(ctx, id); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrProjectNotFound
			}
			return err
		}

		places, err := placesRepo.ListByProject(ctx, id)
		if err != nil {
			return err
		}
		for _, p := range places {
			if p.IsVisited {
				return common.ErrProjectHasVisitedPlaces
			}
		}

		if _, err := placesRepo.DeleteByProject(ctx, id); err != nil {
			return err
		}
		if err := projects.Delete(ctx, id); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrProjectNotFound
			}
			return err
		}
		return nil
	})
	if err != nil {
		return classify(err)
	}

	s.log.Info(ctx, "project deleted", "project_id", id)
	return nil
}
