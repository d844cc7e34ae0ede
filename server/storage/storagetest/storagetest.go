// Package storagetest holds a behavioral test suite every storage.Storage
// implementation must pass.
package storagetest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cyp0633/caldora/internal/etag"
	"github.com/cyp0633/caldora/server/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns a fresh, empty store.
type Factory func(t *testing.T) storage.Storage

var errStale = errors.New("stale")

// Run executes the suite against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("Users", func(t *testing.T) { testUsers(t, newStore(t)) })
	t.Run("CalendarVisibility", func(t *testing.T) { testCalendarVisibility(t, newStore(t)) })
	t.Run("CalendarLifecycle", func(t *testing.T) { testCalendarLifecycle(t, newStore(t)) })
	t.Run("EventLifecycle", func(t *testing.T) { testEventLifecycle(t, newStore(t)) })
	t.Run("RejectedCheckLeavesStoreUnchanged", func(t *testing.T) { testRejectedCheck(t, newStore(t)) })
	t.Run("Tombstones", func(t *testing.T) { testTombstones(t, newStore(t)) })
	t.Run("CascadeDelete", func(t *testing.T) { testCascadeDelete(t, newStore(t)) })
	t.Run("QueryEvents", func(t *testing.T) { testQueryEvents(t, newStore(t)) })
	t.Run("QueryAllDayEvents", func(t *testing.T) { testQueryAllDayEvents(t, newStore(t)) })
	t.Run("ConcurrentConditionalPuts", func(t *testing.T) { testConcurrentPuts(t, newStore(t)) })
}

func seedUser(t *testing.T, s storage.Storage, id string) *storage.User {
	t.Helper()
	u := &storage.User{ID: id, Username: id, Email: id + "@example.com", PasswordHash: "x"}
	require.NoError(t, s.CreateUser(context.Background(), u))
	return u
}

func seedCalendar(t *testing.T, s storage.Storage, id, owner string, public bool) *storage.Calendar {
	t.Helper()
	cal := &storage.Calendar{ID: id, OwnerID: owner, Name: id, Color: "#3366ff", IsPublic: public}
	require.NoError(t, s.CreateCalendar(context.Background(), cal))
	return cal
}

func newEvent(calendarID, id, title string, start time.Time) *storage.Event {
	return &storage.Event{
		ID:         id,
		CalendarID: calendarID,
		Title:      title,
		Start:      start,
		End:        start.Add(time.Hour),
	}
}

func allow(*storage.Event) error { return nil }

// ifMatch mimics the calendar service: the write proceeds only while the
// stored event still carries the expected tag.
func ifMatch(tag string) storage.CheckFunc {
	return func(current *storage.Event) error {
		if current == nil || etag.Compute(*current) != tag {
			return errStale
		}
		return nil
	}
}

func testUsers(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	alice := seedUser(t, s, "alice")

	got, err := s.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.ID)

	got, err = s.GetUser(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", got.Email)

	err = s.CreateUser(ctx, &storage.User{ID: "other", Username: "alice", Email: "x@example.com"})
	assert.ErrorIs(t, err, storage.ErrConflict)

	_, err = s.GetUser(ctx, "nobody")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func testCalendarVisibility(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	seedUser(t, s, "alice")
	seedUser(t, s, "bob")
	seedUser(t, s, "carol")

	seedCalendar(t, s, "alice-private", "alice", false)
	seedCalendar(t, s, "alice-public", "alice", true)
	seedCalendar(t, s, "alice-shared", "alice", false)
	seedCalendar(t, s, "bob-private", "bob", false)

	require.NoError(t, s.CreateShare(ctx, &storage.Share{
		ID: "share-1", CalendarID: "alice-shared", OwnerID: "alice",
		SharedWithUserID: "bob", Permission: storage.PermissionWrite,
	}))

	ids := func(user string) []string {
		cals, err := s.ListCalendars(ctx, user)
		require.NoError(t, err)
		var out []string
		for _, c := range cals {
			out = append(out, c.ID)
		}
		return out
	}

	assert.ElementsMatch(t, []string{"alice-private", "alice-public", "alice-shared"}, ids("alice"))
	assert.ElementsMatch(t, []string{"alice-public", "alice-shared", "bob-private"}, ids("bob"))
	assert.ElementsMatch(t, []string{"alice-public"}, ids("carol"))

	access := func(cal, user string) storage.Permission {
		p, err := s.CalendarAccess(ctx, cal, user)
		require.NoError(t, err)
		return p
	}
	assert.Equal(t, storage.PermissionAdmin, access("alice-private", "alice"))
	assert.Equal(t, storage.PermissionNone, access("alice-private", "bob"))
	assert.Equal(t, storage.PermissionRead, access("alice-public", "carol"))
	assert.Equal(t, storage.PermissionWrite, access("alice-shared", "bob"))

	_, err := s.CalendarAccess(ctx, "missing", "alice")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	err = s.CreateShare(ctx, &storage.Share{
		ID: "share-2", CalendarID: "alice-shared", OwnerID: "alice",
		SharedWithUserID: "bob", Permission: storage.PermissionRead,
	})
	assert.ErrorIs(t, err, storage.ErrConflict)

	shares, err := s.ListShares(ctx, "alice-shared")
	require.NoError(t, err)
	require.Len(t, shares, 1)
	assert.Equal(t, storage.PermissionWrite, shares[0].Permission)

	require.NoError(t, s.DeleteShare(ctx, "alice-shared", "share-1"))
	assert.Equal(t, storage.PermissionNone, access("alice-shared", "bob"))
	assert.ErrorIs(t, s.DeleteShare(ctx, "alice-shared", "share-1"), storage.ErrNotFound)
}

func testCalendarLifecycle(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	seedUser(t, s, "alice")
	cal := seedCalendar(t, s, "work", "alice", false)

	assert.ErrorIs(t, s.CreateCalendar(ctx, &storage.Calendar{ID: "work", OwnerID: "alice", Name: "dup"}), storage.ErrConflict)

	desc := "team calendar"
	update := &storage.Calendar{ID: "work", Name: "Work", Description: &desc, Color: "#ff0000", IsPublic: true}
	require.NoError(t, s.UpdateCalendar(ctx, update))

	got, err := s.GetCalendar(ctx, "work")
	require.NoError(t, err)
	assert.Equal(t, "Work", got.Name)
	require.NotNil(t, got.Description)
	assert.Equal(t, desc, *got.Description)
	assert.True(t, got.IsPublic)
	assert.Equal(t, "alice", got.OwnerID)
	assert.True(t, got.UpdatedAt.After(cal.UpdatedAt))

	assert.ErrorIs(t, s.UpdateCalendar(ctx, &storage.Calendar{ID: "missing"}), storage.ErrNotFound)
}

func testEventLifecycle(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	seedUser(t, s, "alice")
	seedCalendar(t, s, "work", "alice", false)
	before, err := s.GetCalendar(ctx, "work")
	require.NoError(t, err)

	start := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	ev := newEvent("work", "standup", "Standup", start)
	created, err := s.PutEvent(ctx, ev, allow)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(1), ev.Version)

	stored, err := s.GetEvent(ctx, "work", "standup")
	require.NoError(t, err)
	t1 := etag.Compute(*stored)
	assert.Equal(t, etag.Compute(*ev), t1, "returned event must carry the stored values")

	again, err := s.GetEvent(ctx, "work", "standup")
	require.NoError(t, err)
	assert.Equal(t, t1, etag.Compute(*again), "tag must be stable across reads")

	update := newEvent("work", "standup", "Daily standup", start)
	created, err = s.PutEvent(ctx, update, ifMatch(t1))
	require.NoError(t, err)
	assert.False(t, created)

	stored, err = s.GetEvent(ctx, "work", "standup")
	require.NoError(t, err)
	assert.Equal(t, "Daily standup", stored.Title)
	assert.NotEqual(t, t1, etag.Compute(*stored))
	assert.Equal(t, int64(2), stored.Version)
	assert.True(t, stored.CreatedAt.Equal(ev.CreatedAt))

	after, err := s.GetCalendar(ctx, "work")
	require.NoError(t, err)
	assert.NotEqual(t, etag.CTag(*before), etag.CTag(*after))

	_, err = s.PutEvent(ctx, newEvent("missing", "x", "x", start), allow)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func testRejectedCheck(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	seedUser(t, s, "alice")
	seedCalendar(t, s, "work", "alice", false)

	start := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	_, err := s.PutEvent(ctx, newEvent("work", "standup", "Standup", start), allow)
	require.NoError(t, err)
	original, err := s.GetEvent(ctx, "work", "standup")
	require.NoError(t, err)

	_, err = s.PutEvent(ctx, newEvent("work", "standup", "Hijacked", start), ifMatch(`"stale"`))
	assert.ErrorIs(t, err, errStale)

	err = s.DeleteEvent(ctx, "work", "standup", ifMatch(`"stale"`))
	assert.ErrorIs(t, err, errStale)

	current, err := s.GetEvent(ctx, "work", "standup")
	require.NoError(t, err)
	assert.Equal(t, "Standup", current.Title)
	assert.Equal(t, etag.Compute(*original), etag.Compute(*current))
}

func testTombstones(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	seedUser(t, s, "alice")
	seedCalendar(t, s, "work", "alice", false)

	start := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	_, err := s.PutEvent(ctx, newEvent("work", "standup", "Standup", start), allow)
	require.NoError(t, err)

	require.NoError(t, s.DeleteEvent(ctx, "work", "standup", allow))
	_, err = s.GetEvent(ctx, "work", "standup")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, s.DeleteEvent(ctx, "work", "standup", allow), storage.ErrNotFound)

	events, err := s.ListEvents(ctx, "work")
	require.NoError(t, err)
	assert.Empty(t, events)

	_, err = s.PutEvent(ctx, newEvent("work", "standup", "Again", start), allow)
	assert.ErrorIs(t, err, storage.ErrConflict, "path of a deleted event is not reused")

	purged, err := s.PurgeTombstones(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(0), purged)

	purged, err = s.PurgeTombstones(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	created, err := s.PutEvent(ctx, newEvent("work", "standup", "Again", start), allow)
	require.NoError(t, err)
	assert.True(t, created)
}

func testCascadeDelete(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	seedUser(t, s, "alice")
	seedUser(t, s, "bob")
	seedCalendar(t, s, "work", "alice", false)
	seedCalendar(t, s, "home", "alice", false)

	start := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	for _, id := range []string{"a", "b"} {
		_, err := s.PutEvent(ctx, newEvent("work", id, id, start), allow)
		require.NoError(t, err)
	}
	_, err := s.PutEvent(ctx, newEvent("home", "c", "c", start), allow)
	require.NoError(t, err)
	require.NoError(t, s.CreateShare(ctx, &storage.Share{
		ID: "s1", CalendarID: "work", OwnerID: "alice", SharedWithUserID: "bob", Permission: storage.PermissionRead,
	}))

	require.NoError(t, s.DeleteCalendar(ctx, "work"))

	_, err = s.GetCalendar(ctx, "work")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = s.GetEvent(ctx, "work", "a")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	shares, err := s.ListShares(ctx, "work")
	require.NoError(t, err)
	assert.Empty(t, shares)

	_, err = s.GetEvent(ctx, "home", "c")
	assert.NoError(t, err)

	assert.ErrorIs(t, s.DeleteCalendar(ctx, "work"), storage.ErrNotFound)
}

func testQueryEvents(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	seedUser(t, s, "alice")
	seedCalendar(t, s, "work", "alice", false)

	day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	for i, title := range []string{"early", "morning", "noon", "evening"} {
		_, err := s.PutEvent(ctx, newEvent("work", title, title, day.Add(time.Duration(6+4*i)*time.Hour)), allow)
		require.NoError(t, err)
	}

	from := day.Add(9 * time.Hour)
	to := day.Add(14 * time.Hour)
	filter := &storage.Filter{Component: "VCALENDAR", Children: []storage.Filter{{
		Component: "VEVENT",
		TimeRange: &storage.TimeRange{Start: &from, End: &to},
	}}}

	events, err := s.QueryEvents(ctx, "work", filter)
	require.NoError(t, err)
	var titles []string
	for _, ev := range events {
		titles = append(titles, ev.Title)
	}
	// early 06-07, morning 10-11, noon 14-15, evening 18-19
	assert.Equal(t, []string{"morning", "noon"}, titles)

	all, err := s.QueryEvents(ctx, "work", nil)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	_, err = s.QueryEvents(ctx, "missing", nil)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func testQueryAllDayEvents(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	seedUser(t, s, "alice")
	seedCalendar(t, s, "work", "alice", false)

	day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	for _, ev := range []struct {
		id         string
		start, end time.Time
	}{
		{"end-before-start", day, day.Add(-24 * time.Hour)},
		{"end-at-start", day, day},
		{"two-days", day.Add(-24 * time.Hour), day.Add(24 * time.Hour)},
		{"day-before", day.Add(-24 * time.Hour), day.Add(-24 * time.Hour)},
		{"day-after", day.Add(24 * time.Hour), day.Add(48 * time.Hour)},
	} {
		e := newEvent("work", ev.id, ev.id, ev.start)
		e.End = ev.end
		e.AllDay = true
		_, err := s.PutEvent(ctx, e, allow)
		require.NoError(t, err)
	}

	from := day.Add(12 * time.Hour)
	to := day.Add(13 * time.Hour)
	filter := &storage.Filter{Component: "VCALENDAR", Children: []storage.Filter{{
		Component: "VEVENT",
		TimeRange: &storage.TimeRange{Start: &from, End: &to},
	}}}

	events, err := s.QueryEvents(ctx, "work", filter)
	require.NoError(t, err)
	var ids []string
	for _, ev := range events {
		ids = append(ids, ev.ID)
	}
	assert.ElementsMatch(t, []string{"end-before-start", "end-at-start", "two-days"}, ids)
}

func testConcurrentPuts(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	seedUser(t, s, "alice")
	seedCalendar(t, s, "work", "alice", false)

	start := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	_, err := s.PutEvent(ctx, newEvent("work", "standup", "Standup", start), allow)
	require.NoError(t, err)
	current, err := s.GetEvent(ctx, "work", "standup")
	require.NoError(t, err)
	tag := etag.Compute(*current)

	const writers = 8
	var wg sync.WaitGroup
	results := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ev := newEvent("work", "standup", "writer", start.Add(time.Duration(i)*time.Minute))
			_, err := s.PutEvent(ctx, ev, ifMatch(tag))
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	var won, lost int
	for err := range results {
		switch {
		case err == nil:
			won++
		case errors.Is(err, errStale):
			lost++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, won)
	assert.Equal(t, writers-1, lost)
}
