package storage

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Storage connects the calendar server to its relational backend. Implementations
// must return the sentinel errors below (wrapped with %w is fine) so callers can
// classify failures.
type Storage interface {
	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error

	// GetUser retrieves a user by id.
	GetUser(ctx context.Context, userID string) (*User, error)
	// GetUserByUsername retrieves a user by login name.
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	// CreateUser stores a new user. ErrConflict if the username is taken.
	CreateUser(ctx context.Context, user *User) error

	// ListCalendars returns every calendar visible to the user: owned, public and shared.
	ListCalendars(ctx context.Context, userID string) ([]Calendar, error)
	// GetCalendar retrieves a calendar by id regardless of visibility.
	GetCalendar(ctx context.Context, calendarID string) (*Calendar, error)
	// CreateCalendar stores a new calendar. ErrConflict if the id is taken.
	CreateCalendar(ctx context.Context, cal *Calendar) error
	// UpdateCalendar overwrites the mutable calendar fields.
	UpdateCalendar(ctx context.Context, cal *Calendar) error
	// DeleteCalendar removes a calendar together with its events and shares.
	DeleteCalendar(ctx context.Context, calendarID string) error

	// CalendarAccess resolves the permission a user holds on a calendar.
	// PermissionNone is returned (without error) when the calendar exists but
	// the user cannot see it.
	CalendarAccess(ctx context.Context, calendarID, userID string) (Permission, error)

	// ListEvents returns the live events of a calendar.
	ListEvents(ctx context.Context, calendarID string) ([]Event, error)
	// QueryEvents returns the live events of a calendar matching the filter.
	// A nil filter matches every event.
	QueryEvents(ctx context.Context, calendarID string, filter *Filter) ([]Event, error)
	// GetEvent retrieves a live event.
	GetEvent(ctx context.Context, calendarID, eventID string) (*Event, error)
	// PutEvent creates or updates an event in one atomic step. check is called
	// with the current event (nil when absent) while the row is locked; a
	// non-nil error from check aborts the write and is returned unchanged.
	// On success event holds the stored values and created reports whether
	// the row is new.
	PutEvent(ctx context.Context, event *Event, check CheckFunc) (created bool, err error)
	// DeleteEvent tombstones an event in one atomic step, consulting check
	// the same way PutEvent does.
	DeleteEvent(ctx context.Context, calendarID, eventID string, check CheckFunc) error
	// PurgeTombstones removes tombstones deleted before the given instant and
	// returns how many rows were purged.
	PurgeTombstones(ctx context.Context, before time.Time) (int64, error)

	// ListShares returns the shares of a calendar.
	ListShares(ctx context.Context, calendarID string) ([]Share, error)
	// CreateShare grants a permission. ErrConflict if the grantee already has a share.
	CreateShare(ctx context.Context, share *Share) error
	// DeleteShare revokes a share.
	DeleteShare(ctx context.Context, calendarID, shareID string) error
}

// CheckFunc inspects the current state of an event inside the store's atomic
// write. current is nil if no live event exists at the target.
type CheckFunc func(current *Event) error

// User is an account that owns calendars.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Calendar is a calendar collection.
type Calendar struct {
	ID          string
	OwnerID     string
	Name        string
	Description *string
	Color       string
	IsPublic    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
	// Revision increases whenever an event in the calendar is written or
	// deleted; it feeds the collection tag.
	Revision int64
}

// Event is a single VEVENT stored as structured columns.
type Event struct {
	ID          string
	CalendarID  string
	Title       string
	Description *string
	Location    *string
	Start       time.Time
	End         time.Time
	AllDay      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
	// Version is the row version used by conditional updates. It is not part
	// of the entity tag.
	Version int64
}

// Validate checks the invariants of a client-supplied event.
func (e *Event) Validate() error {
	if e.ID == "" || e.CalendarID == "" {
		return fmt.Errorf("%w: event and calendar id are required", ErrInvalidInput)
	}
	if e.Title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if e.Start.IsZero() {
		return fmt.Errorf("%w: start is required", ErrInvalidInput)
	}
	if !e.AllDay && e.End.Before(e.Start) {
		return fmt.Errorf("%w: end precedes start", ErrInvalidInput)
	}
	return nil
}

// EffectiveEnd is the end used for time-range matching. An all-day event
// without a later end covers the whole day of its start.
func (e *Event) EffectiveEnd() time.Time {
	if e.AllDay && !e.End.After(e.Start) {
		return e.Start.Add(24 * time.Hour)
	}
	return e.End
}

// Normalize converts the event times to UTC with microsecond precision, the
// finest precision every backend stores.
func (e *Event) Normalize() {
	e.Start = e.Start.UTC().Truncate(time.Microsecond)
	e.End = e.End.UTC().Truncate(time.Microsecond)
	e.CreatedAt = e.CreatedAt.UTC()
	e.UpdatedAt = e.UpdatedAt.UTC()
}

// Touch stamps a mutation. The new timestamp is truncated to microseconds so
// it survives every backend unchanged, and is always strictly after prev.
func Touch(prev, now time.Time) time.Time {
	now = now.UTC().Truncate(time.Microsecond)
	if !now.After(prev) {
		now = prev.Add(time.Microsecond)
	}
	return now
}

// Share grants another user access to a calendar.
type Share struct {
	ID               string
	CalendarID       string
	OwnerID          string
	SharedWithUserID string
	Permission       Permission
	CreatedAt        time.Time
}

// Permission is the access level a principal holds on a calendar.
type Permission int

const (
	PermissionNone Permission = iota
	PermissionRead
	PermissionWrite
	PermissionAdmin
)

// String returns the wire name of the permission.
func (p Permission) String() string {
	switch p {
	case PermissionRead:
		return "read"
	case PermissionWrite:
		return "write"
	case PermissionAdmin:
		return "admin"
	default:
		return "none"
	}
}

// ParsePermission converts a wire name into a Permission.
func ParsePermission(s string) (Permission, error) {
	switch s {
	case "read":
		return PermissionRead, nil
	case "write":
		return PermissionWrite, nil
	case "admin":
		return PermissionAdmin, nil
	}
	return PermissionNone, fmt.Errorf("%w: unknown permission level %q", ErrInvalidInput, s)
}

// CanRead reports whether the permission allows reading.
func (p Permission) CanRead() bool { return p >= PermissionRead }

// CanWrite reports whether the permission allows writing events.
func (p Permission) CanWrite() bool { return p >= PermissionWrite }

var (
	// ErrNotFound is returned when a requested resource doesn't exist
	ErrNotFound = errors.New("resource not found")
	// ErrInvalidInput is returned when the input parameters are invalid
	ErrInvalidInput = errors.New("invalid input parameters")
	// ErrPermissionDenied is returned when the operation is not allowed
	ErrPermissionDenied = errors.New("permission denied")
	// ErrConflict is returned when there's a conflict with an existing resource
	ErrConflict = errors.New("resource conflict")
	// ErrStorageUnavailable is returned when the storage backend is unavailable
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// ResourceType indicates the type of CalDAV resource identified by the URL path.
// This is distinct from CalDAV prop "resourcetype".
type ResourceType int

const (
	ResourceUnknown ResourceType = iota
	ResourceRoot
	ResourceCollection
	ResourceObject
)

// String provides a human-readable representation of the ResourceType.
func (rt ResourceType) String() string {
	switch rt {
	case ResourceRoot:
		return "Root"
	case ResourceCollection:
		return "Collection"
	case ResourceObject:
		return "Object"
	default:
		return "Unknown"
	}
}
