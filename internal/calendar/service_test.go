package calendar

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/cyp0633/caldora/internal/apperr"
	"github.com/cyp0633/caldora/internal/etag"
	"github.com/cyp0633/caldora/internal/guard"
	"github.com/cyp0633/caldora/server/storage"
	"github.com/cyp0633/caldora/server/storage/memory"
	"github.com/cyp0633/caldora/server/storage/sqlstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testStart = time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

type fixture struct {
	store storage.Storage
	svc   *Service
}

func newFixture(t *testing.T, store storage.Storage, mode guard.Mode) *fixture {
	t.Helper()
	ctx := context.Background()
	for _, name := range []string{"alice", "bob", "carol"} {
		require.NoError(t, store.CreateUser(ctx, &storage.User{
			ID: name, Username: name, Email: name + "@example.com", PasswordHash: "x",
		}))
	}
	svc := New(store, guard.New(mode), WithLogger(testLogger()))
	require.NoError(t, svc.CreateCalendar(ctx, "alice", &storage.Calendar{ID: "work", Name: "Work"}))
	return &fixture{store: store, svc: svc}
}

func newEvent(id, title string) *storage.Event {
	return &storage.Event{
		ID:         id,
		CalendarID: "work",
		Title:      title,
		Start:      testStart,
		End:        testStart.Add(time.Hour),
	}
}

func stores(t *testing.T) map[string]func(t *testing.T) storage.Storage {
	return map[string]func(t *testing.T) storage.Storage{
		"memory": func(t *testing.T) storage.Storage { return memory.New() },
		"sqlite": func(t *testing.T) storage.Storage {
			s, err := sqlstore.OpenSQLite(filepath.Join(t.TempDir(), "caldora.db"), sqlstore.WithLogger(testLogger()))
			require.NoError(t, err)
			t.Cleanup(func() { s.Close() })
			return s
		},
	}
}

func TestStrictModeScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, memory.New(), guard.ModeStrict)

	// Unconditional write is rejected in strict mode.
	_, err := f.svc.PutEvent(ctx, "alice", newEvent("standup", "Standup"), guard.Conditions{})
	assert.Equal(t, apperr.KindPreconditionMissing, apperr.KindOf(err))

	created, err := f.svc.PutEvent(ctx, "alice", newEvent("standup", "Standup"), guard.Conditions{IfNoneMatch: "*"})
	require.NoError(t, err)
	assert.True(t, created.Created)
	t1 := created.ETag

	updated, err := f.svc.PutEvent(ctx, "alice", newEvent("standup", "Daily standup"), guard.Conditions{IfMatch: t1})
	require.NoError(t, err)
	assert.False(t, updated.Created)
	t2 := updated.ETag
	assert.NotEqual(t, t1, t2)

	// A client still holding T1 loses and the stored event keeps T2.
	_, err = f.svc.PutEvent(ctx, "alice", newEvent("standup", "Stale edit"), guard.Conditions{IfMatch: t1})
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	stored, err := f.svc.GetEvent(ctx, "alice", "work", "standup")
	require.NoError(t, err)
	assert.Equal(t, "Daily standup", stored.Title)
	assert.Equal(t, t2, etag.Compute(*stored))

	err = f.svc.DeleteEvent(ctx, "alice", "work", "standup", guard.Conditions{})
	assert.Equal(t, apperr.KindPreconditionMissing, apperr.KindOf(err))
	err = f.svc.DeleteEvent(ctx, "alice", "work", "standup", guard.Conditions{IfMatch: t1})
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	require.NoError(t, f.svc.DeleteEvent(ctx, "alice", "work", "standup", guard.Conditions{IfMatch: t2}))

	_, err = f.svc.GetEvent(ctx, "alice", "work", "standup")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestPermissiveModeAllowsUnconditionalWrites(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, memory.New(), guard.ModePermissive)

	first, err := f.svc.PutEvent(ctx, "alice", newEvent("standup", "Standup"), guard.Conditions{})
	require.NoError(t, err)
	assert.True(t, first.Created)

	second, err := f.svc.PutEvent(ctx, "alice", newEvent("standup", "Renamed"), guard.Conditions{})
	require.NoError(t, err)
	assert.False(t, second.Created)

	// A stale tag is still refused.
	_, err = f.svc.PutEvent(ctx, "alice", newEvent("standup", "Stale"), guard.Conditions{IfMatch: first.ETag})
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestConcurrentPutsHaveOneWinner(t *testing.T) {
	for name, newStore := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t, newStore(t), guard.ModeStrict)

			res, err := f.svc.PutEvent(ctx, "alice", newEvent("standup", "Standup"), guard.Conditions{IfNoneMatch: "*"})
			require.NoError(t, err)
			tag := res.ETag

			const writers = 6
			var wg sync.WaitGroup
			errs := make(chan error, writers)
			for i := 0; i < writers; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					ev := newEvent("standup", "writer")
					ev.Start = testStart.Add(time.Duration(i) * time.Minute)
					ev.End = ev.Start.Add(time.Hour)
					_, err := f.svc.PutEvent(ctx, "alice", ev, guard.Conditions{IfMatch: tag})
					errs <- err
				}(i)
			}
			wg.Wait()
			close(errs)

			var won, conflicts int
			for err := range errs {
				switch {
				case err == nil:
					won++
				case apperr.KindOf(err) == apperr.KindConflict:
					conflicts++
				default:
					t.Errorf("unexpected error: %v", err)
				}
			}
			assert.Equal(t, 1, won)
			assert.Equal(t, writers-1, conflicts)
		})
	}
}

func TestConcurrentCreatesHaveOneWinner(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, memory.New(), guard.ModeStrict)

	const writers = 5
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.PutEvent(ctx, "alice", newEvent("launch", "Launch"), guard.Conditions{IfNoneMatch: "*"})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var won int
	for err := range errs {
		if err == nil {
			won++
			continue
		}
		assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	}
	assert.Equal(t, 1, won)
}

func TestVisibilityAndPermissions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, memory.New(), guard.ModeStrict)

	// bob cannot see the private calendar at all.
	_, _, err := f.svc.GetCalendar(ctx, "bob", "work")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	_, err = f.svc.ListEvents(ctx, "bob", "work", nil)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	share, err := f.svc.ShareCalendar(ctx, "alice", "work", "bob", storage.PermissionRead)
	require.NoError(t, err)
	assert.Equal(t, "alice", share.OwnerID)

	cal, perm, err := f.svc.GetCalendar(ctx, "bob", "work")
	require.NoError(t, err)
	assert.Equal(t, "Work", cal.Name)
	assert.Equal(t, storage.PermissionRead, perm)

	// Read-only access to a write target is forbidden.
	_, err = f.svc.PutEvent(ctx, "bob", newEvent("x", "X"), guard.Conditions{IfNoneMatch: "*"})
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
	err = f.svc.DeleteCalendar(ctx, "bob", "work")
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	_, err = f.svc.ShareCalendar(ctx, "alice", "work", "bob", storage.PermissionWrite)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	_, err = f.svc.ShareCalendar(ctx, "alice", "work", "nobody", storage.PermissionRead)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	_, err = f.svc.ShareCalendar(ctx, "alice", "work", "alice", storage.PermissionRead)
	assert.Equal(t, apperr.KindBadRequest, apperr.KindOf(err))

	require.NoError(t, f.svc.Unshare(ctx, "alice", "work", share.ID))
	_, _, err = f.svc.GetCalendar(ctx, "bob", "work")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestPublicCalendarIsReadable(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, memory.New(), guard.ModeStrict)
	require.NoError(t, f.svc.CreateCalendar(ctx, "alice", &storage.Calendar{ID: "holidays", Name: "Holidays", IsPublic: true}))

	cals, err := f.svc.ListCalendars(ctx, "carol")
	require.NoError(t, err)
	require.Len(t, cals, 1)
	assert.Equal(t, "holidays", cals[0].ID)

	_, err = f.svc.CreateEvent(ctx, "carol", &storage.Event{CalendarID: "holidays", Title: "x", Start: testStart, End: testStart})
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}

func TestCreateEventAssignsID(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, memory.New(), guard.ModeStrict)
	f.svc.newID = func() string { return "fixed-id" }

	res, err := f.svc.CreateEvent(ctx, "alice", &storage.Event{CalendarID: "work", Title: "Review", Start: testStart, End: testStart.Add(time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, "fixed-id", res.Event.ID)
	assert.True(t, res.Created)
	assert.Equal(t, etag.Compute(res.Event), res.ETag)

	_, err = f.svc.CreateEvent(ctx, "alice", &storage.Event{CalendarID: "work", Title: "Again", Start: testStart, End: testStart})
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestInvalidEventIsBadRequest(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, memory.New(), guard.ModePermissive)

	ev := newEvent("backwards", "Backwards")
	ev.End = ev.Start.Add(-time.Hour)
	_, err := f.svc.PutEvent(ctx, "alice", ev, guard.Conditions{})
	require.Error(t, err)
	assert.Equal(t, apperr.KindBadRequest, apperr.KindOf(err))
	assert.Equal(t, "end precedes start", apperr.PublicMessage(err))
}

func TestDeleteCalendarCascades(t *testing.T) {
	for name, newStore := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t, newStore(t), guard.ModePermissive)

			_, err := f.svc.PutEvent(ctx, "alice", newEvent("a", "A"), guard.Conditions{})
			require.NoError(t, err)
			_, err = f.svc.ShareCalendar(ctx, "alice", "work", "bob", storage.PermissionWrite)
			require.NoError(t, err)

			// A writer is not an admin.
			err = f.svc.DeleteCalendar(ctx, "bob", "work")
			assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

			require.NoError(t, f.svc.DeleteCalendar(ctx, "alice", "work"))

			_, err = f.store.GetEvent(ctx, "work", "a")
			assert.ErrorIs(t, err, storage.ErrNotFound)
			shares, err := f.store.ListShares(ctx, "work")
			require.NoError(t, err)
			assert.Empty(t, shares)
		})
	}
}

func TestCreateCalendarConflict(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, memory.New(), guard.ModeStrict)

	err := f.svc.CreateCalendar(ctx, "bob", &storage.Calendar{ID: "work"})
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	err = f.svc.CreateCalendar(ctx, "bob", &storage.Calendar{ID: "a/b"})
	assert.Equal(t, apperr.KindBadRequest, apperr.KindOf(err))
}

type blockingLocker struct{}

func (blockingLocker) Lock(ctx context.Context, _ string) (func(), error) {
	<-ctx.Done()
	return nil, errors.Join(errors.New("lock not acquired"), ctx.Err())
}

func TestLockTimeoutIsTransient(t *testing.T) {
	store := memory.New()
	f := newFixture(t, store, guard.ModePermissive)
	svc := New(store, guard.New(guard.ModePermissive), WithLocker(blockingLocker{}), WithLogger(testLogger()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := svc.PutEvent(ctx, "alice", newEvent("a", "A"), guard.Conditions{})
	assert.Equal(t, apperr.KindTransient, apperr.KindOf(err))

	_, err = f.store.GetEvent(context.Background(), "work", "a")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
