// Package memory is an in-memory storage.Storage used by tests and by the
// "memory" database type.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cyp0633/caldora/server/storage"
)

// Store implements storage.Storage interface using in-memory maps. A single
// RWMutex makes every write, including its CheckFunc, atomic.
type Store struct {
	mu        sync.RWMutex
	users     map[string]*storage.User
	calendars map[string]*storage.Calendar
	events    map[string]*eventRow // key: calendarID/eventID
	shares    map[string]*storage.Share
	now       func() time.Time
}

type eventRow struct {
	event     storage.Event
	deletedAt *time.Time
}

var _ storage.Storage = (*Store)(nil)

// New creates a new in-memory storage
func New() *Store {
	return &Store{
		users:     make(map[string]*storage.User),
		calendars: make(map[string]*storage.Calendar),
		events:    make(map[string]*eventRow),
		shares:    make(map[string]*storage.Share),
		now:       time.Now,
	}
}

func eventKey(calendarID, eventID string) string {
	return calendarID + "/" + eventID
}

func (s *Store) Ping(_ context.Context) error { return nil }

// User operations

func (s *Store) GetUser(_ context.Context, userID string) (*storage.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[userID]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", userID, storage.ErrNotFound)
	}
	u := *user
	return &u, nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (*storage.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.users {
		if user.Username == username {
			u := *user
			return &u, nil
		}
	}
	return nil, fmt.Errorf("user %s: %w", username, storage.ErrNotFound)
}

func (s *Store) CreateUser(_ context.Context, user *storage.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[user.ID]; exists {
		return fmt.Errorf("user %s: %w", user.ID, storage.ErrConflict)
	}
	for _, u := range s.users {
		if u.Username == user.Username {
			return fmt.Errorf("username %s: %w", user.Username, storage.ErrConflict)
		}
	}

	now := s.now().UTC().Truncate(time.Microsecond)
	user.CreatedAt = now
	user.UpdatedAt = now
	u := *user
	s.users[user.ID] = &u
	return nil
}

// Calendar operations

func (s *Store) ListCalendars(_ context.Context, userID string) ([]storage.Calendar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var calendars []storage.Calendar
	for _, cal := range s.calendars {
		if s.accessLocked(cal, userID).CanRead() {
			calendars = append(calendars, *cal)
		}
	}
	sort.Slice(calendars, func(i, j int) bool {
		if calendars[i].Name != calendars[j].Name {
			return calendars[i].Name < calendars[j].Name
		}
		return calendars[i].ID < calendars[j].ID
	})
	return calendars, nil
}

func (s *Store) GetCalendar(_ context.Context, calendarID string) (*storage.Calendar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cal, ok := s.calendars[calendarID]
	if !ok {
		return nil, fmt.Errorf("calendar %s: %w", calendarID, storage.ErrNotFound)
	}
	c := *cal
	return &c, nil
}

func (s *Store) CreateCalendar(_ context.Context, cal *storage.Calendar) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.calendars[cal.ID]; exists {
		return fmt.Errorf("calendar %s: %w", cal.ID, storage.ErrConflict)
	}

	now := s.now().UTC().Truncate(time.Microsecond)
	cal.CreatedAt = now
	cal.UpdatedAt = now
	cal.Revision = 0
	c := *cal
	s.calendars[cal.ID] = &c
	return nil
}

func (s *Store) UpdateCalendar(_ context.Context, cal *storage.Calendar) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, exists := s.calendars[cal.ID]
	if !exists {
		return fmt.Errorf("calendar %s: %w", cal.ID, storage.ErrNotFound)
	}

	stored.Name = cal.Name
	stored.Description = cal.Description
	stored.Color = cal.Color
	stored.IsPublic = cal.IsPublic
	stored.UpdatedAt = storage.Touch(stored.UpdatedAt, s.now())
	*cal = *stored
	return nil
}

func (s *Store) DeleteCalendar(_ context.Context, calendarID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.calendars[calendarID]; !exists {
		return fmt.Errorf("calendar %s: %w", calendarID, storage.ErrNotFound)
	}

	for key, row := range s.events {
		if row.event.CalendarID == calendarID {
			delete(s.events, key)
		}
	}
	for id, share := range s.shares {
		if share.CalendarID == calendarID {
			delete(s.shares, id)
		}
	}
	delete(s.calendars, calendarID)
	return nil
}

func (s *Store) CalendarAccess(_ context.Context, calendarID, userID string) (storage.Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cal, ok := s.calendars[calendarID]
	if !ok {
		return storage.PermissionNone, fmt.Errorf("calendar %s: %w", calendarID, storage.ErrNotFound)
	}
	return s.accessLocked(cal, userID), nil
}

func (s *Store) accessLocked(cal *storage.Calendar, userID string) storage.Permission {
	if cal.OwnerID == userID {
		return storage.PermissionAdmin
	}
	perm := storage.PermissionNone
	if cal.IsPublic {
		perm = storage.PermissionRead
	}
	for _, share := range s.shares {
		if share.CalendarID == cal.ID && share.SharedWithUserID == userID && share.Permission > perm {
			perm = share.Permission
		}
	}
	return perm
}

// Event operations

func (s *Store) ListEvents(ctx context.Context, calendarID string) ([]storage.Event, error) {
	return s.QueryEvents(ctx, calendarID, nil)
}

func (s *Store) QueryEvents(_ context.Context, calendarID string, filter *storage.Filter) ([]storage.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.calendars[calendarID]; !ok {
		return nil, fmt.Errorf("calendar %s: %w", calendarID, storage.ErrNotFound)
	}

	var events []storage.Event
	for _, row := range s.events {
		if row.deletedAt != nil || row.event.CalendarID != calendarID {
			continue
		}
		if filter.Match(&row.event) {
			events = append(events, row.event)
		}
	}
	sort.Slice(events, func(i, j int) bool {
		if !events[i].Start.Equal(events[j].Start) {
			return events[i].Start.Before(events[j].Start)
		}
		return events[i].ID < events[j].ID
	})
	return events, nil
}

func (s *Store) GetEvent(_ context.Context, calendarID, eventID string) (*storage.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.events[eventKey(calendarID, eventID)]
	if !ok || row.deletedAt != nil {
		return nil, fmt.Errorf("event %s/%s: %w", calendarID, eventID, storage.ErrNotFound)
	}
	ev := row.event
	return &ev, nil
}

func (s *Store) PutEvent(_ context.Context, event *storage.Event, check storage.CheckFunc) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cal, ok := s.calendars[event.CalendarID]
	if !ok {
		return false, fmt.Errorf("calendar %s: %w", event.CalendarID, storage.ErrNotFound)
	}

	key := eventKey(event.CalendarID, event.ID)
	row, exists := s.events[key]

	var current *storage.Event
	if exists && row.deletedAt == nil {
		ev := row.event
		current = &ev
	}
	if err := check(current); err != nil {
		return false, err
	}
	if exists && row.deletedAt != nil {
		return false, fmt.Errorf("event %s was deleted and its path is retired: %w", key, storage.ErrConflict)
	}

	event.Normalize()
	now := s.now()
	if current == nil {
		event.UpdatedAt = storage.Touch(time.Time{}, now)
		event.CreatedAt = event.UpdatedAt
		event.Version = 1
	} else {
		event.CreatedAt = current.CreatedAt
		event.UpdatedAt = storage.Touch(current.UpdatedAt, now)
		event.Version = current.Version + 1
	}
	s.events[key] = &eventRow{event: *event}
	cal.Revision++
	return current == nil, nil
}

func (s *Store) DeleteEvent(_ context.Context, calendarID, eventID string, check storage.CheckFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := eventKey(calendarID, eventID)
	row, ok := s.events[key]
	if !ok || row.deletedAt != nil {
		return fmt.Errorf("event %s: %w", key, storage.ErrNotFound)
	}
	current := row.event
	if err := check(&current); err != nil {
		return err
	}

	deletedAt := s.now().UTC()
	row.deletedAt = &deletedAt
	if cal, ok := s.calendars[calendarID]; ok {
		cal.Revision++
	}
	return nil
}

func (s *Store) PurgeTombstones(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var purged int64
	for key, row := range s.events {
		if row.deletedAt != nil && row.deletedAt.Before(before) {
			delete(s.events, key)
			purged++
		}
	}
	return purged, nil
}

// Share operations

func (s *Store) ListShares(_ context.Context, calendarID string) ([]storage.Share, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var shares []storage.Share
	for _, share := range s.shares {
		if share.CalendarID == calendarID {
			shares = append(shares, *share)
		}
	}
	sort.Slice(shares, func(i, j int) bool { return shares[i].ID < shares[j].ID })
	return shares, nil
}

func (s *Store) CreateShare(_ context.Context, share *storage.Share) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.calendars[share.CalendarID]; !ok {
		return fmt.Errorf("calendar %s: %w", share.CalendarID, storage.ErrNotFound)
	}
	if _, ok := s.users[share.SharedWithUserID]; !ok {
		return fmt.Errorf("user %s: %w", share.SharedWithUserID, storage.ErrNotFound)
	}
	for _, existing := range s.shares {
		if existing.CalendarID == share.CalendarID && existing.SharedWithUserID == share.SharedWithUserID {
			return fmt.Errorf("share for %s: %w", share.SharedWithUserID, storage.ErrConflict)
		}
	}

	share.CreatedAt = s.now().UTC().Truncate(time.Microsecond)
	sh := *share
	s.shares[share.ID] = &sh
	return nil
}

func (s *Store) DeleteShare(_ context.Context, calendarID, shareID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	share, ok := s.shares[shareID]
	if !ok || share.CalendarID != calendarID {
		return fmt.Errorf("share %s: %w", shareID, storage.ErrNotFound)
	}
	delete(s.shares, shareID)
	return nil
}
