package models

import "time"

// Project is a travel plan. Places is filled by listing queries only.
type Project struct {
	ID          int64
	Name        string
	Description *string
	StartDate   *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Places      []Place
}

// Place is a catalog artwork attached to a project.
type Place struct {
	ID         int64
	ProjectID  int64
	ExternalID string
	Notes      *string
	IsVisited  bool
	CreatedAt  time.Time
}
