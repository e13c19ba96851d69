// internal/room/activity.go
package room

import (
	"time"

	"github.com/google/uuid"
)

const (
	// MaxActivityEntries caps how much history a room keeps.
	MaxActivityEntries = 200
	// ActivityFeedSize is how many entries a client view carries.
	ActivityFeedSize = 50
)

// ActivityEntry is one line of the room's public history. Descriptions never
// name a card face.
type ActivityEntry struct {
	ID          uuid.UUID `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	Player      string    `json:"player"`
	Description string    `json:"description"`
}

// ActivityLog is a bounded, oldest-first list of entries. Not safe for
// concurrent use; the owning Room serializes access.
type ActivityLog struct {
	entries []ActivityEntry
}

// Append adds e, evicting the oldest entry once the log is full.
func (l *ActivityLog) Append(e ActivityEntry) {
	if len(l.entries) >= MaxActivityEntries {
		drop := len(l.entries) - MaxActivityEntries + 1
		l.entries = append(l.entries[:0], l.entries[drop:]...)
	}
	l.entries = append(l.entries, e)
}

// Recent returns a copy of the newest n entries, oldest first.
func (l *ActivityLog) Recent(n int) []ActivityEntry {
	if n > len(l.entries) {
		n = len(l.entries)
	}
	if n < 0 {
		n = 0
	}
	out := make([]ActivityEntry, n)
	copy(out, l.entries[len(l.entries)-n:])
	return out
}

// Len returns the number of retained entries.
func (l *ActivityLog) Len() int {
	return len(l.entries)
}
