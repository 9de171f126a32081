// Package extract reads structured snapshots from observed surfaces.
//
// Extractors are pure functions of the surface's current state: given a
// read-only Surface view they either produce an event.Snapshot or report
// ErrNoCapture. They tolerate missing fields (absent field → empty string)
// and never panic; a missing container is simply "no capture".
package extract

import (
	"errors"
	"fmt"
	"time"

	"github.com/hazyhaar/capsync/event"
)

// ErrNoCapture means the surface is not in a capturable state right now:
// no compose dialog open, no article found, or content below the minimum
// length gate. Callers skip silently and wait for the next evaluation.
var ErrNoCapture = errors.New("extract: no capture available")

// Minimum content lengths, in characters, below which an extraction is
// discarded as noise.
const (
	minComposeBody = 5
	minReadBody    = 20
	minArticleBody = 100
)

// bodyLimit caps read/article content on the wire.
const bodyLimit = 500

// Surface is the minimal read-only view of a live page. The browser
// implementation answers these via CDP evaluation; tests use a map.
type Surface interface {
	// URL returns the surface's current location.
	URL() string
	// Text returns the visible text or input value of the first node matching
	// selector, or "" when nothing matches.
	Text(selector string) string
	// HTML returns the outer HTML of the first node matching selector, or ""
	// when nothing matches.
	HTML(selector string) string
	// Attr returns the named attribute of the first node matching selector,
	// or "" when absent.
	Attr(selector, name string) string
}

// Extractor produces a snapshot for one capture kind.
type Extractor interface {
	Kind() event.Kind
	Extract(s Surface) (event.Snapshot, error)
}

// ForKind returns the extractor for a capture kind.
func ForKind(kind event.Kind) (Extractor, error) {
	switch kind {
	case event.KindEmailCompose:
		return composeExtractor{}, nil
	case event.KindEmailRead:
		return readExtractor{}, nil
	case event.KindArticle:
		return newArticleExtractor(), nil
	default:
		return nil, fmt.Errorf("extract: unknown kind %q", kind)
	}
}

// firstText walks a selector fallback chain and returns the first non-empty
// text, cleaned.
func firstText(s Surface, selectors ...string) string {
	for _, sel := range selectors {
		if text := CleanText(s.Text(sel)); text != "" {
			return text
		}
	}
	return ""
}

// firstHTML walks a selector fallback chain and returns the first non-empty
// outer HTML.
func firstHTML(s Surface, selectors ...string) string {
	for _, sel := range selectors {
		if h := s.HTML(sel); h != "" {
			return h
		}
	}
	return ""
}

// truncate limits s to limit characters (not bytes), so multibyte content
// never splits mid-rune.
func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}

func newSnapshot(kind event.Kind, url string, fields map[string]string) event.Snapshot {
	return event.Snapshot{
		Kind:       kind,
		URL:        url,
		Fields:     fields,
		ObservedAt: time.Now(),
	}
}
