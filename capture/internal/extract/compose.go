package extract

import (
	"unicode/utf8"

	"github.com/hazyhaar/capsync/event"
)

// Compose dialog detection. The observed mail surface renders the compose
// window as a dialog; the legacy layout uses the .nH.aHU container.
var composeContainers = []string{
	`[role="dialog"]`,
	`.nH.aHU`,
}

var composeToSelectors = []string{
	`[role="dialog"] [name="to"]`,
	`[role="dialog"] [aria-label*="To"]`,
	`[name="to"]`,
}

var composeSubjectSelectors = []string{
	`[role="dialog"] [name="subjectbox"]`,
	`[role="dialog"] input[aria-label*="Subject"]`,
	`[name="subjectbox"]`,
}

var composeBodySelectors = []string{
	`[role="dialog"] [contenteditable="true"][role="textbox"]`,
	`[role="dialog"] [contenteditable="true"]`,
	`[contenteditable="true"][role="textbox"]`,
}

type composeExtractor struct{}

func (composeExtractor) Kind() event.Kind { return event.KindEmailCompose }

// Extract reads recipient, subject and body from an open compose dialog.
// No dialog, or a body at or below the minimum length, is no capture.
func (composeExtractor) Extract(s Surface) (event.Snapshot, error) {
	if firstHTML(s, composeContainers...) == "" {
		return event.Snapshot{}, ErrNoCapture
	}

	body := firstText(s, composeBodySelectors...)
	if utf8.RuneCountInString(body) <= minComposeBody {
		return event.Snapshot{}, ErrNoCapture
	}

	fields := map[string]string{
		event.FieldTo:      firstText(s, composeToSelectors...),
		event.FieldSubject: firstText(s, composeSubjectSelectors...),
		event.FieldBody:    body,
	}
	return newSnapshot(event.KindEmailCompose, s.URL(), fields), nil
}
