package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/travelkeeper/internal/dbx"
	"github.com/dmitrijs2005/travelkeeper/internal/server/repositories/places"
	"github.com/dmitrijs2005/travelkeeper/internal/server/repositories/projects"
	"github.com/dmitrijs2005/travelkeeper/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/travelkeeper/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DBTX, so services can use
// the same code inside and outside a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Projects(db dbx.DBTX) projects.Repository
	Places(db dbx.DBTX) places.Repository
}
