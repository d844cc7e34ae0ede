// Package etag computes entity tags for events and collection tags for calendars.
//
// Tags are never stored. They are recomputed from the row on every read, so
// the REST API and the CalDAV handler always agree on the tag of an event.
package etag

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/cyp0633/caldora/server/storage"
)

const sep = "\x1f"

// Compute returns the strong entity tag of an event, quoted as it appears in
// the ETag header. It depends on title, description, location, start, end,
// the all-day flag and the last update time, and on nothing else.
func Compute(ev storage.Event) string {
	var b strings.Builder
	b.WriteString(ev.Title)
	b.WriteString(sep)
	writeOptional(&b, ev.Description)
	b.WriteString(sep)
	writeOptional(&b, ev.Location)
	b.WriteString(sep)
	b.WriteString(stamp(ev.Start))
	b.WriteString(sep)
	b.WriteString(stamp(ev.End))
	b.WriteString(sep)
	b.WriteString(strconv.FormatBool(ev.AllDay))
	b.WriteString(sep)
	b.WriteString(stamp(ev.UpdatedAt))
	return quote(b.String())
}

// CTag returns the collection tag of a calendar. It changes whenever the
// calendar itself or any event inside it changes.
func CTag(cal storage.Calendar) string {
	return quote(cal.ID + sep + stamp(cal.UpdatedAt) + sep + strconv.FormatInt(cal.Revision, 10))
}

// writeOptional distinguishes an absent field from an empty one.
func writeOptional(b *strings.Builder, s *string) {
	if s == nil {
		b.WriteString("\x00")
		return
	}
	b.WriteString("=")
	b.WriteString(*s)
}

func stamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func quote(s string) string {
	sum := sha256.Sum256([]byte(s))
	return `"` + hex.EncodeToString(sum[:16]) + `"`
}
