// Package repomanager hands out repositories bound to a DB handle or a
// transaction, and owns schema migrations.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/prtfnx/ttrpg-system-sub001/internal/dbx"
	"github.com/prtfnx/ttrpg-system-sub001/internal/server/repositories/assets"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Assets(db dbx.DBTX) assets.Repository
}
