// Package calendar is the single place where visibility, permissions, the
// concurrency guard and store writes meet. Both the CalDAV handler and the
// REST API go through it, so an event carries the same entity tag and obeys
// the same preconditions on either surface.
package calendar

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/cyp0633/caldora/internal/apperr"
	"github.com/cyp0633/caldora/internal/etag"
	"github.com/cyp0633/caldora/internal/guard"
	"github.com/cyp0633/caldora/internal/locks"
	"github.com/cyp0633/caldora/server/storage"
	"github.com/google/uuid"
	"github.com/samber/mo"
)

// Service implements calendar and event operations on behalf of a principal.
type Service struct {
	store  storage.Storage
	guard  guard.Guard
	locker locks.Locker
	logger *slog.Logger
	newID  func() string
}

// Option configures a Service.
type Option func(*Service)

// WithLocker replaces the default in-process locker.
func WithLocker(l locks.Locker) Option {
	return func(s *Service) { s.locker = l }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// New creates a Service.
func New(store storage.Storage, g guard.Guard, opts ...Option) *Service {
	s := &Service{
		store:  store,
		guard:  g,
		locker: locks.NewLocalLocker(),
		logger: slog.Default(),
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PutResult describes a successful event write.
type PutResult struct {
	Event   storage.Event
	Created bool
	ETag    string
}

// Guard returns the concurrency guard in use.
func (s *Service) Guard() guard.Guard { return s.guard }

// Ping checks the store.
func (s *Service) Ping(ctx context.Context) error {
	return wrap(s.store.Ping(ctx), "store unreachable")
}

// ListCalendars returns the calendars the user owns, can see publicly or has
// been shared.
func (s *Service) ListCalendars(ctx context.Context, userID string) ([]storage.Calendar, error) {
	cals, err := s.store.ListCalendars(ctx, userID)
	if err != nil {
		return nil, wrap(err, "failed to list calendars")
	}
	return cals, nil
}

// GetCalendar returns a visible calendar together with the caller's permission.
func (s *Service) GetCalendar(ctx context.Context, userID, calendarID string) (*storage.Calendar, storage.Permission, error) {
	perm, err := s.access(ctx, userID, calendarID, storage.PermissionRead)
	if err != nil {
		return nil, storage.PermissionNone, err
	}
	cal, err := s.store.GetCalendar(ctx, calendarID)
	if err != nil {
		return nil, storage.PermissionNone, wrap(err, "calendar not found")
	}
	return cal, perm, nil
}

// CreateCalendar stores a calendar owned by userID. An empty ID is replaced by
// a fresh uuid.
func (s *Service) CreateCalendar(ctx context.Context, userID string, cal *storage.Calendar) error {
	cal.OwnerID = userID
	if cal.ID == "" {
		cal.ID = s.newID()
	}
	if strings.TrimSpace(cal.Name) == "" {
		cal.Name = cal.ID
	}
	if strings.ContainsAny(cal.ID, "/\\") {
		return apperr.BadRequest("calendar id must not contain slashes", nil)
	}
	if err := s.store.CreateCalendar(ctx, cal); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return apperr.Conflict("calendar already exists")
		}
		return wrap(err, "failed to create calendar")
	}
	s.logger.Info("calendar created", "calendar_id", cal.ID, "owner_id", userID)
	return nil
}

// UpdateCalendar overwrites name, description, color and visibility. Admin only.
func (s *Service) UpdateCalendar(ctx context.Context, userID string, cal *storage.Calendar) error {
	if _, err := s.access(ctx, userID, cal.ID, storage.PermissionAdmin); err != nil {
		return err
	}
	if strings.TrimSpace(cal.Name) == "" {
		return apperr.BadRequest("calendar name is required", nil)
	}
	if err := s.store.UpdateCalendar(ctx, cal); err != nil {
		return wrap(err, "failed to update calendar")
	}
	return nil
}

// DeleteCalendar removes a calendar with its events and shares. Admin only.
func (s *Service) DeleteCalendar(ctx context.Context, userID, calendarID string) error {
	if _, err := s.access(ctx, userID, calendarID, storage.PermissionAdmin); err != nil {
		return err
	}
	if err := s.store.DeleteCalendar(ctx, calendarID); err != nil {
		return wrap(err, "failed to delete calendar")
	}
	s.logger.Info("calendar deleted", "calendar_id", calendarID, "user_id", userID)
	return nil
}

// ListEvents returns the events of a visible calendar that match filter. A
// nil filter returns every event.
func (s *Service) ListEvents(ctx context.Context, userID, calendarID string, filter *storage.Filter) ([]storage.Event, error) {
	if _, err := s.access(ctx, userID, calendarID, storage.PermissionRead); err != nil {
		return nil, err
	}
	events, err := s.store.QueryEvents(ctx, calendarID, filter)
	if err != nil {
		return nil, wrap(err, "failed to list events")
	}
	return events, nil
}

// GetEvent returns a live event of a visible calendar.
func (s *Service) GetEvent(ctx context.Context, userID, calendarID, eventID string) (*storage.Event, error) {
	if _, err := s.access(ctx, userID, calendarID, storage.PermissionRead); err != nil {
		return nil, err
	}
	ev, err := s.store.GetEvent(ctx, calendarID, eventID)
	if err != nil {
		return nil, wrap(err, "event not found")
	}
	return ev, nil
}

// PutEvent creates or replaces ev under the caller's conditions. The guard is
// evaluated against the stored row inside the store's atomic write while the
// resource lock is held, so two writers holding the same tag cannot both win.
func (s *Service) PutEvent(ctx context.Context, userID string, ev *storage.Event, cond guard.Conditions) (*PutResult, error) {
	return s.write(ctx, userID, ev, func(current *storage.Event) error {
		return s.authorize(current, cond, guard.OpPut)
	})
}

// CreateEvent stores a new event under a fresh id. It carries no
// precondition and never replaces an existing event.
func (s *Service) CreateEvent(ctx context.Context, userID string, ev *storage.Event) (*PutResult, error) {
	ev.ID = s.newID()
	return s.write(ctx, userID, ev, func(current *storage.Event) error {
		if current != nil {
			return apperr.Conflict("event already exists")
		}
		return nil
	})
}

func (s *Service) write(ctx context.Context, userID string, ev *storage.Event, check storage.CheckFunc) (*PutResult, error) {
	if err := ev.Validate(); err != nil {
		return nil, apperr.BadRequest(strings.TrimPrefix(err.Error(), storage.ErrInvalidInput.Error()+": "), err)
	}
	if _, err := s.access(ctx, userID, ev.CalendarID, storage.PermissionWrite); err != nil {
		return nil, err
	}

	unlock, err := s.lock(ctx, ev.CalendarID, ev.ID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	created, err := s.store.PutEvent(ctx, ev, check)
	if err != nil {
		s.logger.Warn("event write rejected",
			"calendar_id", ev.CalendarID,
			"event_id", ev.ID,
			"error", err)
		return nil, wrap(err, "failed to store event")
	}

	tag := etag.Compute(*ev)
	s.logger.Info("event stored",
		"calendar_id", ev.CalendarID,
		"event_id", ev.ID,
		"created", created,
		"etag", tag)
	return &PutResult{Event: *ev, Created: created, ETag: tag}, nil
}

// DeleteEvent tombstones an event under the caller's conditions.
func (s *Service) DeleteEvent(ctx context.Context, userID, calendarID, eventID string, cond guard.Conditions) error {
	if _, err := s.access(ctx, userID, calendarID, storage.PermissionWrite); err != nil {
		return err
	}

	unlock, err := s.lock(ctx, calendarID, eventID)
	if err != nil {
		return err
	}
	defer unlock()

	err = s.store.DeleteEvent(ctx, calendarID, eventID, func(current *storage.Event) error {
		return s.authorize(current, cond, guard.OpDelete)
	})
	if err != nil {
		return wrap(err, "event not found")
	}
	s.logger.Info("event deleted", "calendar_id", calendarID, "event_id", eventID)
	return nil
}

// ListShares returns the shares of a calendar. Admin only.
func (s *Service) ListShares(ctx context.Context, userID, calendarID string) ([]storage.Share, error) {
	if _, err := s.access(ctx, userID, calendarID, storage.PermissionAdmin); err != nil {
		return nil, err
	}
	shares, err := s.store.ListShares(ctx, calendarID)
	if err != nil {
		return nil, wrap(err, "failed to list shares")
	}
	return shares, nil
}

// ShareCalendar grants perm on a calendar to the user called username. Admin only.
func (s *Service) ShareCalendar(ctx context.Context, userID, calendarID, username string, perm storage.Permission) (*storage.Share, error) {
	if _, err := s.access(ctx, userID, calendarID, storage.PermissionAdmin); err != nil {
		return nil, err
	}
	if perm == storage.PermissionNone {
		return nil, apperr.BadRequest("permission is required", nil)
	}
	grantee, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, wrap(err, "user not found")
	}
	cal, err := s.store.GetCalendar(ctx, calendarID)
	if err != nil {
		return nil, wrap(err, "calendar not found")
	}
	if grantee.ID == cal.OwnerID {
		return nil, apperr.BadRequest("cannot share a calendar with its owner", nil)
	}

	share := &storage.Share{
		ID:               s.newID(),
		CalendarID:       calendarID,
		OwnerID:          cal.OwnerID,
		SharedWithUserID: grantee.ID,
		Permission:       perm,
	}
	if err := s.store.CreateShare(ctx, share); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return nil, apperr.Conflict("calendar is already shared with this user")
		}
		return nil, wrap(err, "failed to share calendar")
	}
	s.logger.Info("calendar shared",
		"calendar_id", calendarID,
		"shared_with", grantee.ID,
		"permission", perm)
	return share, nil
}

// Unshare revokes a share. Admin only.
func (s *Service) Unshare(ctx context.Context, userID, calendarID, shareID string) error {
	if _, err := s.access(ctx, userID, calendarID, storage.PermissionAdmin); err != nil {
		return err
	}
	if err := s.store.DeleteShare(ctx, calendarID, shareID); err != nil {
		return wrap(err, "share not found")
	}
	return nil
}

// access resolves the caller's permission on a calendar and requires need.
// Calendars the caller cannot see are reported as absent. An empty userID is
// the anonymous caller, who may only read public calendars.
func (s *Service) access(ctx context.Context, userID, calendarID string, need storage.Permission) (storage.Permission, error) {
	perm, err := s.store.CalendarAccess(ctx, calendarID, userID)
	if err != nil {
		return storage.PermissionNone, wrap(err, "calendar not found")
	}
	if userID == "" && perm > storage.PermissionRead {
		perm = storage.PermissionRead
	}
	if !perm.CanRead() {
		return perm, apperr.NotFound("calendar not found")
	}
	if perm < need {
		return perm, apperr.Forbidden("insufficient permission on calendar")
	}
	return perm, nil
}

func (s *Service) authorize(current *storage.Event, cond guard.Conditions, op guard.Operation) error {
	tag := mo.None[string]()
	if current != nil {
		tag = mo.Some(etag.Compute(*current))
	}
	switch s.guard.Authorize(tag, cond, op) {
	case guard.Conflict:
		return apperr.Conflict("entity tag does not match the current resource")
	case guard.PreconditionMissing:
		return apperr.PreconditionMissing("If-Match or If-None-Match is required")
	}
	return nil
}

func (s *Service) lock(ctx context.Context, calendarID, eventID string) (func(), error) {
	unlock, err := s.locker.Lock(ctx, calendarID+"/"+eventID)
	if err != nil {
		s.logger.Warn("failed to lock event",
			"calendar_id", calendarID,
			"event_id", eventID,
			"error", err)
		return nil, apperr.Transient("resource is busy, retry later", err)
	}
	return unlock, nil
}

// wrap classifies a store error, keeping application errors as they are.
func wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	return &apperr.Error{Kind: apperr.KindOf(err), Message: msg, Cause: err}
}
