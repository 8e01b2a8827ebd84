package places

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/travelkeeper/internal/common"
	"github.com/dmitrijs2005/travelkeeper/internal/dbx"
	"github.com/dmitrijs2005/travelkeeper/internal/server/models"
)

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const placeColumns = `id, project_id, external_id, notes, is_visited, created_at`

func (r *PostgresRepository) Create(ctx context.Context, place *models.Place) (*models.Place, error) {
	query := `
		INSERT INTO places (project_id, external_id, notes, is_visited)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query, place.ProjectID, place.ExternalID, place.Notes, place.IsVisited).
		Scan(&place.ID, &place.CreatedAt)
	if err != nil {
		switch {
		case dbx.IsUniqueViolation(err):
			return nil, common.ErrorAlreadyExists
		case dbx.IsForeignKeyViolation(err):
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return place, nil
}

func (r *PostgresRepository) ListByProject(ctx context.Context, projectID int64) ([]models.Place, error) {
	query := `
		SELECT ` + placeColumns + `
		FROM places
		WHERE project_id = $1
		ORDER BY id
	`
	rows, err := r.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]models.Place, 0)
	for rows.Next() {
		p, err := scanPlace(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) ListByProjectIDs(ctx context.Context, projectIDs []int64) (map[int64][]models.Place, error) {
	result := make(map[int64][]models.Place, len(projectIDs))
	if len(projectIDs) == 0 {
		return result, nil
	}

	var in strings.Builder
	args := make([]any, len(projectIDs))
	for i, id := range projectIDs {
		if i > 0 {
			in.WriteString(", ")
		}
		in.WriteString("$" + strconv.Itoa(i+1))
		args[i] = id
	}

	query := `
		SELECT ` + placeColumns + `
		FROM places
		WHERE project_id IN (` + in.String() + `)
		ORDER BY project_id, id
	`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanPlace(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result[p.ProjectID] = append(result[p.ProjectID], *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.Place, error) {
	query := `
		SELECT ` + placeColumns + `
		FROM places
		WHERE id = $1
	`
	p, err := scanPlace(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) Update(ctx context.Context, place *models.Place) (*models.Place, error) {
	query := `
		UPDATE places
		SET notes = $2, is_visited = $3
		WHERE id = $1
		RETURNING project_id, external_id, created_at
	`
	err := r.db.QueryRowContext(ctx, query, place.ID, place.Notes, place.IsVisited).
		Scan(&place.ProjectID, &place.ExternalID, &place.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return place, nil
}

func (r *PostgresRepository) DeleteByProject(ctx context.Context, projectID int64) (int64, error) {
	query := `
		DELETE FROM places
		WHERE project_id = $1
	`
	res, err := r.db.ExecContext(ctx, query, projectID)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected error: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPlace(s scanner) (*models.Place, error) {
	p := &models.Place{}
	if err := s.Scan(&p.ID, &p.ProjectID, &p.ExternalID, &p.Notes, &p.IsVisited, &p.CreatedAt); err != nil {
		return nil, err
	}
	return p, nil
}
