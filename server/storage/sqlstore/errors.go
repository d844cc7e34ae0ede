package sqlstore

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"

	"github.com/cyp0633/caldora/server/storage"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
)

const pgUniqueViolation = "23505"

// classify maps driver errors onto the storage sentinels. The original error
// stays in the chain for logging.
func (s *Store) classify(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("%w: %w", storage.ErrNotFound, err)
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, driver.ErrBadConn),
		errors.Is(err, sql.ErrConnDone):
		s.logger.Warn("database unavailable", "error", err)
		return fmt.Errorf("%w: %w", storage.ErrStorageUnavailable, err)
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code {
		case sqlite3.ErrBusy, sqlite3.ErrLocked:
			s.logger.Warn("database busy", "error", err)
			return fmt.Errorf("%w: %w", storage.ErrStorageUnavailable, err)
		case sqlite3.ErrConstraint:
			if liteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey {
				return fmt.Errorf("%w: %w", storage.ErrNotFound, err)
			}
			return fmt.Errorf("%w: %w", storage.ErrConflict, err)
		}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%w: %w", storage.ErrConflict, err)
		case "23503": // foreign_key_violation
			return fmt.Errorf("%w: %w", storage.ErrNotFound, err)
		case "40001", "40P01": // serialization_failure, deadlock_detected
			return fmt.Errorf("%w: %w", storage.ErrStorageUnavailable, err)
		}
	}
	if pgconn.SafeToRetry(err) || pgconn.Timeout(err) {
		return fmt.Errorf("%w: %w", storage.ErrStorageUnavailable, err)
	}
	return err
}
