package extract

import (
	"unicode/utf8"

	"github.com/hazyhaar/capsync/event"
)

var readSubjectSelectors = []string{
	`h2.hP`,
	`.hP`,
	`h2[data-legacy-thread-id]`,
}

var readBodySelectors = []string{
	`.a3s.aiL`,
	`.a3s`,
	`.ii.gt`,
}

type readExtractor struct{}

func (readExtractor) Kind() event.Kind { return event.KindEmailRead }

// Extract reads the currently opened message. The sender comes from the
// address attribute when present, falling back to the display name node;
// an unresolvable sender is reported as "Unknown", not a failed capture.
func (readExtractor) Extract(s Surface) (event.Snapshot, error) {
	subject := firstText(s, readSubjectSelectors...)
	body := firstText(s, readBodySelectors...)

	if subject == "" && body == "" {
		return event.Snapshot{}, ErrNoCapture
	}
	if utf8.RuneCountInString(body) <= minReadBody {
		return event.Snapshot{}, ErrNoCapture
	}

	from := CleanText(s.Attr(`.gD`, "email"))
	if from == "" {
		from = firstText(s, `.go`, `[email]`)
	}
	if from == "" {
		from = "Unknown"
	}

	fields := map[string]string{
		event.FieldFrom:    from,
		event.FieldSubject: subject,
		event.FieldBody:    truncate(body, bodyLimit),
	}
	return newSnapshot(event.KindEmailRead, s.URL(), fields), nil
}
