// Package sqlstore implements storage.Storage on top of database/sql for
// SQLite (mattn/go-sqlite3) and PostgreSQL (pgx).
//
// Every event write runs in a transaction that reads the current row, hands it
// to the caller's CheckFunc and then performs an UPDATE guarded by the row
// version, so no other write can slip in between the check and the write.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cyp0633/caldora/server/storage"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

// Dialect selects SQL flavour differences.
type Dialect int

const (
	SQLite Dialect = iota
	Postgres
)

func (d Dialect) String() string {
	if d == Postgres {
		return "postgres"
	}
	return "sqlite"
}

// Store is a SQL backed storage.Storage.
type Store struct {
	db      *sql.DB
	dialect Dialect
	timeout time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

var _ storage.Storage = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithTimeout bounds every store operation. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(s *Store) { s.timeout = d }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// OpenSQLite opens (creating if needed) the SQLite database at path.
func OpenSQLite(path string, opts ...Option) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	// _txlock=immediate takes the write lock at BEGIN, which serializes the
	// read-check-write sequence of concurrent event writes.
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(2)

	return New(db, SQLite, opts...)
}

// OpenPostgres connects to PostgreSQL through the pgx database/sql driver.
func OpenPostgres(dsn string, opts ...Option) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	return New(db, Postgres, opts...)
}

// New wraps an open database, verifies the connection and applies migrations.
func New(db *sql.DB, dialect Dialect, opts ...Option) (*Store, error) {
	s := &Store{
		db:      db,
		dialect: dialect,
		timeout: 5 * time.Second,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	migrations := sqliteMigrations
	if s.dialect == Postgres {
		migrations = postgresMigrations
	}
	for i, stmt := range migrations {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("applying migration %d: %w", i, err)
		}
	}
	s.logger.Debug("database migrations applied", "dialect", s.dialect, "count", len(migrations))
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// bound applies the configured operation timeout.
func (s *Store) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// rebind rewrites ? placeholders into $n for PostgreSQL.
func (s *Store) rebind(query string) string {
	if s.dialect != Postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *Store) forUpdate() string {
	if s.dialect == Postgres {
		return " FOR UPDATE"
	}
	return ""
}

// withTx runs fn in a transaction and commits if it returns nil.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return s.classify(fmt.Errorf("beginning transaction: %w", err))
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			s.logger.Warn("rollback failed", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return s.classify(fmt.Errorf("committing transaction: %w", err))
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	return s.classify(s.db.PingContext(ctx))
}

// User operations

const userColumns = `id, username, email, password_hash, created_at, updated_at`

func (s *Store) scanUser(row interface{ Scan(...any) error }) (*storage.User, error) {
	u := &storage.User{}
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	return u, nil
}

func (s *Store) GetUser(ctx context.Context, userID string) (*storage.User, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+userColumns+` FROM users WHERE id = ?`), userID)
	u, err := s.scanUser(row)
	if err != nil {
		return nil, s.classify(fmt.Errorf("user %s: %w", userID, err))
	}
	return u, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*storage.User, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+userColumns+` FROM users WHERE username = ?`), username)
	u, err := s.scanUser(row)
	if err != nil {
		return nil, s.classify(fmt.Errorf("user %s: %w", username, err))
	}
	return u, nil
}

func (s *Store) CreateUser(ctx context.Context, user *storage.User) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	now := s.now().UTC().Truncate(time.Microsecond)
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO users (id, username, email, password_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`),
		user.ID, user.Username, user.Email, user.PasswordHash, now, now)
	if err != nil {
		return s.classify(fmt.Errorf("inserting user %s: %w", user.Username, err))
	}
	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

// Calendar operations

const calendarColumns = `c.id, c.owner_id, c.name, c.description, c.color, c.is_public, c.revision, c.created_at, c.updated_at`

func (s *Store) scanCalendar(row interface{ Scan(...any) error }) (*storage.Calendar, error) {
	c := &storage.Calendar{}
	var desc sql.NullString
	if err := row.Scan(&c.ID, &c.OwnerID, &c.Name, &desc, &c.Color, &c.IsPublic, &c.Revision, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	if desc.Valid {
		c.Description = &desc.String
	}
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	return c, nil
}

func (s *Store) ListCalendars(ctx context.Context, userID string) ([]storage.Calendar, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT `+calendarColumns+`
		FROM calendars c
		WHERE c.owner_id = ?
		   OR c.is_public = ?
		   OR EXISTS (SELECT 1 FROM shares s WHERE s.calendar_id = c.id AND s.shared_with_user_id = ?)
		ORDER BY c.name, c.id`), userID, true, userID)
	if err != nil {
		return nil, s.classify(fmt.Errorf("querying calendars: %w", err))
	}
	defer rows.Close()

	var calendars []storage.Calendar
	for rows.Next() {
		c, err := s.scanCalendar(rows)
		if err != nil {
			return nil, s.classify(fmt.Errorf("scanning calendar: %w", err))
		}
		calendars = append(calendars, *c)
	}
	return calendars, s.classify(rows.Err())
}

func (s *Store) GetCalendar(ctx context.Context, calendarID string) (*storage.Calendar, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+calendarColumns+` FROM calendars c WHERE c.id = ?`), calendarID)
	c, err := s.scanCalendar(row)
	if err != nil {
		return nil, s.classify(fmt.Errorf("calendar %s: %w", calendarID, err))
	}
	return c, nil
}

func (s *Store) CreateCalendar(ctx context.Context, cal *storage.Calendar) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	now := s.now().UTC().Truncate(time.Microsecond)
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO calendars (id, owner_id, name, description, color, is_public, revision, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?)`),
		cal.ID, cal.OwnerID, cal.Name, nullString(cal.Description), cal.Color, cal.IsPublic, now, now)
	if err != nil {
		return s.classify(fmt.Errorf("inserting calendar %s: %w", cal.ID, err))
	}
	cal.CreatedAt = now
	cal.UpdatedAt = now
	cal.Revision = 0
	return nil
}

func (s *Store) UpdateCalendar(ctx context.Context, cal *storage.Calendar) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	return s.withTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, s.rebind(`SELECT `+calendarColumns+` FROM calendars c WHERE c.id = ?`+s.forUpdate()), cal.ID)
		stored, err := s.scanCalendar(row)
		if err != nil {
			return s.classify(fmt.Errorf("calendar %s: %w", cal.ID, err))
		}

		stored.Name = cal.Name
		stored.Description = cal.Description
		stored.Color = cal.Color
		stored.IsPublic = cal.IsPublic
		stored.UpdatedAt = storage.Touch(stored.UpdatedAt, s.now())

		_, err = tx.ExecContext(ctx, s.rebind(`
			UPDATE calendars SET name = ?, description = ?, color = ?, is_public = ?, updated_at = ?
			WHERE id = ?`),
			stored.Name, nullString(stored.Description), stored.Color, stored.IsPublic, stored.UpdatedAt, stored.ID)
		if err != nil {
			return s.classify(fmt.Errorf("updating calendar %s: %w", cal.ID, err))
		}
		*cal = *stored
		return nil
	})
}

// DeleteCalendar removes the events and shares explicitly so the cascade does
// not depend on foreign key enforcement being enabled.
func (s *Store) DeleteCalendar(ctx context.Context, calendarID string) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, stmt := range []string{
			`DELETE FROM events WHERE calendar_id = ?`,
			`DELETE FROM shares WHERE calendar_id = ?`,
		} {
			if _, err := tx.ExecContext(ctx, s.rebind(stmt), calendarID); err != nil {
				return s.classify(fmt.Errorf("deleting calendar %s: %w", calendarID, err))
			}
		}
		res, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM calendars WHERE id = ?`), calendarID)
		if err != nil {
			return s.classify(fmt.Errorf("deleting calendar %s: %w", calendarID, err))
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("calendar %s: %w", calendarID, storage.ErrNotFound)
		}
		s.logger.Debug("calendar deleted with its events and shares", "calendar_id", calendarID)
		return nil
	})
}

func (s *Store) CalendarAccess(ctx context.Context, calendarID, userID string) (storage.Permission, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	var owner string
	var public bool
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT owner_id, is_public FROM calendars WHERE id = ?`), calendarID).
		Scan(&owner, &public)
	if err != nil {
		return storage.PermissionNone, s.classify(fmt.Errorf("calendar %s: %w", calendarID, err))
	}
	if owner == userID {
		return storage.PermissionAdmin, nil
	}

	perm := storage.PermissionNone
	if public {
		perm = storage.PermissionRead
	}

	var level string
	err = s.db.QueryRowContext(ctx, s.rebind(`
		SELECT permission FROM shares WHERE calendar_id = ? AND shared_with_user_id = ?`),
		calendarID, userID).Scan(&level)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return perm, nil
	case err != nil:
		return storage.PermissionNone, s.classify(fmt.Errorf("share lookup: %w", err))
	}
	shared, err := storage.ParsePermission(level)
	if err != nil {
		return storage.PermissionNone, err
	}
	if shared > perm {
		perm = shared
	}
	return perm, nil
}

// Event operations

const eventColumns = `calendar_id, id, title, description, location, start_time, end_time, is_all_day, version, created_at, updated_at`

func (s *Store) scanEvent(row interface{ Scan(...any) error }, extra ...any) (*storage.Event, error) {
	e := &storage.Event{}
	var desc, loc sql.NullString
	dest := []any{&e.CalendarID, &e.ID, &e.Title, &desc, &loc, &e.Start, &e.End, &e.AllDay, &e.Version, &e.CreatedAt, &e.UpdatedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	if desc.Valid {
		e.Description = &desc.String
	}
	if loc.Valid {
		e.Location = &loc.String
	}
	e.Normalize()
	return e, nil
}

func (s *Store) ListEvents(ctx context.Context, calendarID string) ([]storage.Event, error) {
	return s.QueryEvents(ctx, calendarID, nil)
}

// QueryEvents narrows the rows in SQL by the outermost VEVENT time-range (with
// a day of slack for all-day events) and applies the exact filter in Go.
func (s *Store) QueryEvents(ctx context.Context, calendarID string, filter *storage.Filter) ([]storage.Event, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	var exists int
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT 1 FROM calendars WHERE id = ?`), calendarID).Scan(&exists)
	if err != nil {
		return nil, s.classify(fmt.Errorf("calendar %s: %w", calendarID, err))
	}

	query := `SELECT ` + eventColumns + ` FROM events WHERE calendar_id = ? AND deleted_at IS NULL`
	args := []any{calendarID}
	if tr := eventTimeRange(filter); tr != nil {
		if tr.End != nil {
			query += ` AND start_time <= ?`
			args = append(args, tr.End.UTC())
		}
		if tr.Start != nil {
			// An all-day event whose end does not follow its start still
			// covers its first day, so its start bounds it too.
			lower := tr.Start.UTC().Add(-24 * time.Hour)
			query += ` AND (end_time >= ? OR (is_all_day = ? AND start_time >= ?))`
			args = append(args, lower, true, lower)
		}
	}
	query += ` ORDER BY start_time, id`

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, s.classify(fmt.Errorf("querying events: %w", err))
	}
	defer rows.Close()

	var events []storage.Event
	for rows.Next() {
		ev, err := s.scanEvent(rows)
		if err != nil {
			return nil, s.classify(fmt.Errorf("scanning event: %w", err))
		}
		if filter.Match(ev) {
			events = append(events, *ev)
		}
	}
	return events, s.classify(rows.Err())
}

// eventTimeRange returns the time-range of a VCALENDAR > VEVENT filter when it
// is safe to push into SQL.
func eventTimeRange(f *storage.Filter) *storage.TimeRange {
	if f == nil || f.Test == "anyof" || len(f.Children) != 1 {
		return nil
	}
	child := f.Children[0]
	if !strings.EqualFold(child.Component, "VEVENT") || child.IsNotDefined {
		return nil
	}
	return child.TimeRange
}

func (s *Store) GetEvent(ctx context.Context, calendarID, eventID string) (*storage.Event, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	row := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT `+eventColumns+` FROM events
		WHERE calendar_id = ? AND id = ? AND deleted_at IS NULL`), calendarID, eventID)
	ev, err := s.scanEvent(row)
	if err != nil {
		return nil, s.classify(fmt.Errorf("event %s/%s: %w", calendarID, eventID, err))
	}
	return ev, nil
}

// lockEvent reads the current row inside tx. It returns the live event (nil
// if absent) and whether a tombstone occupies the path.
func (s *Store) lockEvent(ctx context.Context, tx *sql.Tx, calendarID, eventID string) (*storage.Event, bool, error) {
	var deletedAt sql.NullTime
	row := tx.QueryRowContext(ctx, s.rebind(`
		SELECT `+eventColumns+`, deleted_at FROM events
		WHERE calendar_id = ? AND id = ?`+s.forUpdate()), calendarID, eventID)
	ev, err := s.scanEvent(row, &deletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, s.classify(fmt.Errorf("reading event %s/%s: %w", calendarID, eventID, err))
	}
	if deletedAt.Valid {
		return nil, true, nil
	}
	return ev, false, nil
}

func (s *Store) bumpRevision(ctx context.Context, tx *sql.Tx, calendarID string) error {
	_, err := tx.ExecContext(ctx, s.rebind(`UPDATE calendars SET revision = revision + 1 WHERE id = ?`), calendarID)
	if err != nil {
		return s.classify(fmt.Errorf("bumping revision of %s: %w", calendarID, err))
	}
	return nil
}

func (s *Store) PutEvent(ctx context.Context, event *storage.Event, check storage.CheckFunc) (bool, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	event.Normalize()
	created := false
	stored := *event

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, s.rebind(`SELECT 1 FROM calendars WHERE id = ?`), event.CalendarID).Scan(&exists)
		if err != nil {
			return s.classify(fmt.Errorf("calendar %s: %w", event.CalendarID, err))
		}

		current, tombstoned, err := s.lockEvent(ctx, tx, event.CalendarID, event.ID)
		if err != nil {
			return err
		}
		if err := check(current); err != nil {
			return err
		}
		if tombstoned {
			return fmt.Errorf("event %s/%s was deleted and its path is retired: %w", event.CalendarID, event.ID, storage.ErrConflict)
		}

		now := s.now()
		if current == nil {
			created = true
			stored.UpdatedAt = storage.Touch(time.Time{}, now)
			stored.CreatedAt = stored.UpdatedAt
			stored.Version = 1
			_, err = tx.ExecContext(ctx, s.rebind(`
				INSERT INTO events (calendar_id, id, title, description, location, start_time, end_time,
				                    is_all_day, version, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
				stored.CalendarID, stored.ID, stored.Title, nullString(stored.Description), nullString(stored.Location),
				stored.Start, stored.End, stored.AllDay, stored.Version, stored.CreatedAt, stored.UpdatedAt)
			if err != nil {
				return s.classify(fmt.Errorf("inserting event %s: %w", stored.ID, err))
			}
		} else {
			stored.CreatedAt = current.CreatedAt
			stored.UpdatedAt = storage.Touch(current.UpdatedAt, now)
			stored.Version = current.Version + 1
			res, err := tx.ExecContext(ctx, s.rebind(`
				UPDATE events
				SET title = ?, description = ?, location = ?, start_time = ?, end_time = ?,
				    is_all_day = ?, version = ?, updated_at = ?
				WHERE calendar_id = ? AND id = ? AND version = ? AND deleted_at IS NULL`),
				stored.Title, nullString(stored.Description), nullString(stored.Location), stored.Start, stored.End,
				stored.AllDay, stored.Version, stored.UpdatedAt,
				stored.CalendarID, stored.ID, current.Version)
			if err != nil {
				return s.classify(fmt.Errorf("updating event %s: %w", stored.ID, err))
			}
			if n, err := res.RowsAffected(); err != nil || n != 1 {
				return fmt.Errorf("event %s changed concurrently: %w", stored.ID, storage.ErrConflict)
			}
		}
		return s.bumpRevision(ctx, tx, stored.CalendarID)
	})
	if err != nil {
		return false, err
	}
	*event = stored
	return created, nil
}

func (s *Store) DeleteEvent(ctx context.Context, calendarID, eventID string, check storage.CheckFunc) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	return s.withTx(ctx, func(tx *sql.Tx) error {
		current, _, err := s.lockEvent(ctx, tx, calendarID, eventID)
		if err != nil {
			return err
		}
		if current == nil {
			return fmt.Errorf("event %s/%s: %w", calendarID, eventID, storage.ErrNotFound)
		}
		if err := check(current); err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, s.rebind(`
			UPDATE events SET deleted_at = ?
			WHERE calendar_id = ? AND id = ? AND version = ? AND deleted_at IS NULL`),
			s.now().UTC().Truncate(time.Microsecond), calendarID, eventID, current.Version)
		if err != nil {
			return s.classify(fmt.Errorf("deleting event %s: %w", eventID, err))
		}
		if n, err := res.RowsAffected(); err != nil || n != 1 {
			return fmt.Errorf("event %s changed concurrently: %w", eventID, storage.ErrConflict)
		}
		return s.bumpRevision(ctx, tx, calendarID)
	})
}

func (s *Store) PurgeTombstones(ctx context.Context, before time.Time) (int64, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	res, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM events WHERE deleted_at IS NOT NULL AND deleted_at < ?`),
		before.UTC())
	if err != nil {
		return 0, s.classify(fmt.Errorf("purging tombstones: %w", err))
	}
	return res.RowsAffected()
}

// Share operations

func (s *Store) ListShares(ctx context.Context, calendarID string) ([]storage.Share, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT id, calendar_id, owner_id, shared_with_user_id, permission, created_at
		FROM shares WHERE calendar_id = ? ORDER BY id`), calendarID)
	if err != nil {
		return nil, s.classify(fmt.Errorf("querying shares: %w", err))
	}
	defer rows.Close()

	var shares []storage.Share
	for rows.Next() {
		var sh storage.Share
		var level string
		if err := rows.Scan(&sh.ID, &sh.CalendarID, &sh.OwnerID, &sh.SharedWithUserID, &level, &sh.CreatedAt); err != nil {
			return nil, s.classify(fmt.Errorf("scanning share: %w", err))
		}
		if sh.Permission, err = storage.ParsePermission(level); err != nil {
			return nil, err
		}
		sh.CreatedAt = sh.CreatedAt.UTC()
		shares = append(shares, sh)
	}
	return shares, s.classify(rows.Err())
}

func (s *Store) CreateShare(ctx context.Context, share *storage.Share) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	now := s.now().UTC().Truncate(time.Microsecond)
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO shares (id, calendar_id, owner_id, shared_with_user_id, permission, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`),
		share.ID, share.CalendarID, share.OwnerID, share.SharedWithUserID, share.Permission.String(), now)
	if err != nil {
		return s.classify(fmt.Errorf("inserting share: %w", err))
	}
	share.CreatedAt = now
	return nil
}

func (s *Store) DeleteShare(ctx context.Context, calendarID, shareID string) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	res, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM shares WHERE id = ? AND calendar_id = ?`), shareID, calendarID)
	if err != nil {
		return s.classify(fmt.Errorf("deleting share %s: %w", shareID, err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("share %s: %w", shareID, storage.ErrNotFound)
	}
	return nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
