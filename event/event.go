// Package event defines the structured types emitted by the capture pipeline.
// These are the public API contract: any consumer (the popup surface, custom
// sinks, the automation server) works against these types.
package event

import "time"

// Kind is the logical capture stream a snapshot belongs to. Deduplication is
// scoped per kind: each kind keeps its own last-emitted record.
type Kind string

const (
	KindEmailCompose Kind = "email_compose"
	KindEmailRead    Kind = "email_read"
	KindArticle      Kind = "article_read"
)

// Well-known snapshot field names. Which fields a snapshot carries depends on
// its Kind; absent fields are stored as empty strings, never omitted.
const (
	FieldTo      = "email_to"
	FieldFrom    = "email_from"
	FieldSubject = "email_subject"
	FieldBody    = "email_body"
	FieldTitle   = "title"
	FieldContent = "content"
)

// Snapshot is an immutable structured extraction of observable fields at one
// point in time. Later extractions supersede it; it is never mutated.
type Snapshot struct {
	Kind       Kind
	URL        string
	Fields     map[string]string
	ObservedAt time.Time
}

// SameFields reports structural equality over Fields only. ObservedAt and URL
// are excluded: a re-extraction that reads identical fields is the same
// logical capture even if time passed or the fragment changed.
func (s Snapshot) SameFields(other Snapshot) bool {
	if len(s.Fields) != len(other.Fields) {
		return false
	}
	for k, v := range s.Fields {
		ov, ok := other.Fields[k]
		if !ok || ov != v {
			return false
		}
	}
	return true
}

// Clone returns a deep copy. Snapshots cross goroutine boundaries between the
// observer loop and sinks; cloning keeps the original immutable.
func (s Snapshot) Clone() Snapshot {
	fields := make(map[string]string, len(s.Fields))
	for k, v := range s.Fields {
		fields[k] = v
	}
	return Snapshot{Kind: s.Kind, URL: s.URL, Fields: fields, ObservedAt: s.ObservedAt}
}

// Event is the wire record sent to the automation server. One event per
// accepted snapshot; immutable once constructed.
type Event struct {
	ID        string            `json:"id"`
	EventType Kind              `json:"event_type"`
	URL       string            `json:"url"`
	Timestamp string            `json:"timestamp"` // RFC 3339
	Fields    map[string]string `json:"-"`
}

// FromSnapshot derives the wire event for a snapshot. The id should come from
// the caller's generator so the ID strategy stays a startup-time decision.
func FromSnapshot(id string, snap Snapshot) Event {
	return Event{
		ID:        id,
		EventType: snap.Kind,
		URL:       snap.URL,
		Timestamp: snap.ObservedAt.UTC().Format(time.RFC3339),
		Fields:    snap.Fields,
	}
}

// Summary is the display-relevant digest of an event kept in the capped
// recent-events list on the client side.
type Summary struct {
	Subject   string `json:"subject"`
	Timestamp string `json:"timestamp"`
	Type      Kind   `json:"type"`
}

// Summarize builds the recent-events digest for an event. The subject falls
// back through title, then email subject, then a generic label.
func Summarize(ev Event) Summary {
	subject := ev.Fields[FieldTitle]
	if subject == "" {
		subject = ev.Fields[FieldSubject]
	}
	if subject == "" {
		subject = "No subject"
	}
	return Summary{Subject: subject, Timestamp: ev.Timestamp, Type: ev.EventType}
}
