package notes

import (
	"encoding/json"
	"fmt"
	"time"
)

// TimeLayout is the ISO-8601 layout used for timestamps on the wire.
const TimeLayout = time.RFC3339

// RemoteEntry is a note as exchanged with the note service.
// SyncID travels as "id" and is omitted from request bodies.
type RemoteEntry struct {
	SyncID      string
	Title       string
	Description string
	Color       Color
	ImageURL    string
	Created     time.Time
	Edited      time.Time
	Viewed      time.Time
}

type wireEntry struct {
	ID          string `json:"id,omitempty"`
	Title       string `json:"title"`
	Color       Color  `json:"color"`
	ImageURL    string `json:"imageUrl"`
	Description string `json:"description"`
	Created     string `json:"created"`
	Edited      string `json:"edited"`
	Viewed      string `json:"viewed"`
}

// FormatTime renders t in wire form (UTC, second precision).
func FormatTime(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(TimeLayout)
}

// ParseTime parses a wire timestamp and normalizes it to UTC.
func ParseTime(s string) (time.Time, error) {
	t, err := time.Parse(TimeLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC().Truncate(time.Second), nil
}

// MarshalJSON implements json.Marshaler.
func (e RemoteEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireEntry{
		ID:          e.SyncID,
		Title:       e.Title,
		Color:       e.Color,
		ImageURL:    e.ImageURL,
		Description: e.Description,
		Created:     FormatTime(e.Created),
		Edited:      FormatTime(e.Edited),
		Viewed:      FormatTime(e.Viewed),
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (e *RemoteEntry) UnmarshalJSON(data []byte) error {
	var w wireEntry
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	parsed := RemoteEntry{
		SyncID:      w.ID,
		Title:       w.Title,
		Description: w.Description,
		Color:       w.Color,
		ImageURL:    w.ImageURL,
	}
	stamps := []struct {
		field string
		raw   string
		dst   *time.Time
	}{
		{"created", w.Created, &parsed.Created},
		{"edited", w.Edited, &parsed.Edited},
		{"viewed", w.Viewed, &parsed.Viewed},
	}
	for _, s := range stamps {
		t, err := ParseTime(s.raw)
		if err != nil {
			return fmt.Errorf("parse %s: %w", s.field, err)
		}
		*s.dst = t
	}
	*e = parsed
	return nil
}

// Local converts a remote entry into a NoteEntry carrying its syncId.
// LocalID is left empty for the store to assign.
func (e RemoteEntry) Local() NoteEntry {
	return NoteEntry{
		SyncID:      e.SyncID,
		Title:       e.Title,
		Description: e.Description,
		Color:       e.Color,
		ImageURL:    e.ImageURL,
		Created:     e.Created.UTC(),
		Edited:      e.Edited.UTC(),
		Viewed:      e.Viewed.UTC(),
	}
}

// SameContent reports whether two entries carry identical synchronized fields,
// ignoring the syncId.
func (e RemoteEntry) SameContent(o RemoteEntry) bool {
	return e.Title == o.Title &&
		e.Description == o.Description &&
		e.Color == o.Color &&
		e.ImageURL == o.ImageURL &&
		EditedEqual(e.Created, o.Created) &&
		EditedEqual(e.Edited, o.Edited) &&
		EditedEqual(e.Viewed, o.Viewed)
}
