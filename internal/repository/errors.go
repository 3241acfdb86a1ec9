// Package repository implements store.Store on MySQL.  Each repository
// owns one table group and exposes ...Tx methods that run inside a
// caller-supplied transaction; SQLStore stitches them into units of
// work.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/train-seat-reservation/internal/domain"
)

// MySQL server error numbers the engine reacts to.
const (
	errDupEntry        = 1062
	errLockWaitTimeout = 1205
	errDeadlock        = 1213
)

// mapError translates driver errors into the domain taxonomy.  resource
// and id describe the row a missing result refers to.
func mapError(op, resource string, id uint64, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NotFoundError{Resource: resource, ID: id, Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.TransientError{Op: op, Err: err}
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case errDupEntry:
			return domain.ConflictError{Resource: resource, Msg: "already exists", Err: err}
		case errDeadlock, errLockWaitTimeout:
			return domain.TransientError{Op: op, Err: err}
		}
	}
	return err
}

// isDuplicate reports a unique key violation.
func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == errDupEntry
}
