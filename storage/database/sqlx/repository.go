// Package sqlxrepos implements the core repositories on top of jmoiron/sqlx.
// Queries are written with `?` bindvars and rebound for the executor's driver.
package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/marksheet/core"
)

type repository struct {
	exec core.DBExecutor
}

func (repo repository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return repo.exec
}

// selectIn runs a query with a single `IN (?)` list.
func selectIn(ctx context.Context, exe core.DBExecutor, dest interface{}, query string, args ...interface{}) error {
	q, args, err := sqlx.In(query, args...)
	if err != nil {
		return errors.Wrap(err, "expanding IN query")
	}
	return exe.SelectContext(ctx, dest, exe.Rebind(q), args...)
}
