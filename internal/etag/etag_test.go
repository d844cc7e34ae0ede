package etag

import (
	"testing"
	"time"

	"github.com/cyp0633/caldora/server/storage"
	"github.com/stretchr/testify/assert"
)

func baseEvent() storage.Event {
	start := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	desc := "quarterly planning"
	return storage.Event{
		ID:          "standup",
		CalendarID:  "work",
		Title:       "Planning",
		Description: &desc,
		Start:       start,
		End:         start.Add(time.Hour),
		UpdatedAt:   start.Add(-24 * time.Hour),
	}
}

func TestComputeIsStable(t *testing.T) {
	ev := baseEvent()
	first := Compute(ev)

	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Compute(ev))
	}
	assert.Regexp(t, `^"[0-9a-f]{32}"$`, first)
}

func TestComputeIgnoresBookkeepingFields(t *testing.T) {
	ev := baseEvent()
	other := ev
	other.Version = 42
	other.CreatedAt = time.Now()

	assert.Equal(t, Compute(ev), Compute(other))
}

func TestComputeIsZoneIndependent(t *testing.T) {
	ev := baseEvent()
	shifted := ev
	zone := time.FixedZone("UTC+8", 8*3600)
	shifted.Start = ev.Start.In(zone)
	shifted.End = ev.End.In(zone)
	shifted.UpdatedAt = ev.UpdatedAt.In(zone)

	assert.Equal(t, Compute(ev), Compute(shifted))
}

func TestComputeChangesWithEveryField(t *testing.T) {
	base := Compute(baseEvent())
	empty := ""

	mutations := map[string]func(*storage.Event){
		"title":             func(e *storage.Event) { e.Title = "Retro" },
		"description":       func(e *storage.Event) { e.Description = nil },
		"empty description": func(e *storage.Event) { e.Description = &empty },
		"location":          func(e *storage.Event) { l := "Room 1"; e.Location = &l },
		"start":             func(e *storage.Event) { e.Start = e.Start.Add(time.Minute) },
		"end":               func(e *storage.Event) { e.End = e.End.Add(time.Minute) },
		"all day":           func(e *storage.Event) { e.AllDay = true },
		"updated at":        func(e *storage.Event) { e.UpdatedAt = e.UpdatedAt.Add(time.Microsecond) },
	}

	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			ev := baseEvent()
			mutate(&ev)
			assert.NotEqual(t, base, Compute(ev))
		})
	}
}

func TestComputeDistinguishesRevertedContent(t *testing.T) {
	original := baseEvent()

	// Same content as before, but the row was written twice since.
	reverted := original
	reverted.UpdatedAt = storage.Touch(storage.Touch(original.UpdatedAt, time.Now()), time.Now())

	assert.NotEqual(t, Compute(original), Compute(reverted))
}

func TestCTag(t *testing.T) {
	cal := storage.Calendar{ID: "work", UpdatedAt: time.Now(), Revision: 3}
	tag := CTag(cal)

	assert.Equal(t, tag, CTag(cal))

	cal.Revision++
	assert.NotEqual(t, tag, CTag(cal))
}
