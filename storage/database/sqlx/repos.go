// Package sqlxrepos implements the repositories on PostgreSQL with sqlx.
package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/coursedesk/core"
)

// postgres error codes
const (
	foreignKeyViolation = "23503"
	uniqueViolation     = "23505"
)

var errOrderRejected = errors.New("order rejected: ids do not all belong to the scope")

type base struct {
	exec core.DBExecutor
}

func (repo base) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return repo.exec
}

func (repo base) deleteByID(ctx context.Context, table, id string, notFound error, exec []core.DBExecutor) error {
	if !validID(id) {
		return notFound
	}
	res, err := repo.getExec(exec).ExecContext(ctx, `DELETE FROM `+table+` WHERE id = $1`, id)
	if err != nil {
		return errors.Wrapf(err, "deleting from %s", table)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "counting deleted rows")
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// trapNoRowsErr maps psql "no rows" err to notFound
func trapNoRowsErr(err error, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

func pqCode(err error) string {
	if pqErr, ok := errors.Cause(err).(*pq.Error); ok {
		return string(pqErr.Code)
	}
	return ""
}

// checkAllUpdated rejects a full-order write that did not touch every id.
func checkAllUpdated(res sql.Result, ids []string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "counting updated rows")
	}
	if int(n) != len(ids) {
		return errOrderRejected
	}
	return nil
}
