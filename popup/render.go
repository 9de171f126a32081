package popup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/atotto/clipboard"

	"github.com/hazyhaar/capsync/event"
	"github.com/hazyhaar/capsync/serverapi"
	"github.com/hazyhaar/capsync/statestore"
)

// ErrEmailFallback reports that server-side sending failed and the email
// text was placed on the clipboard instead. The interrupt is still
// acknowledged when this is returned.
var ErrEmailFallback = errors.New("popup: email content placed on clipboard")

var boldRe = regexp.MustCompile(`\*\*(.*?)\*\*`)

func stripBold(s string) string {
	return boldRe.ReplaceAllString(s, "$1")
}

func fileSizeKB(n int64) string {
	return fmt.Sprintf("%.1f KB", float64(n)/1024)
}

// Preview renders the one-line interrupt card text for a result: markdown
// bold stripped, newlines flattened, ellipsized at 80 runes.
func Preview(r serverapi.Result) string {
	switch r.Type {
	case serverapi.ResultText:
		content := strings.ReplaceAll(stripBold(r.Content), "\n", " ")
		runes := []rune(content)
		if len(runes) > 80 {
			return string(runes[:80]) + "..."
		}
		return content
	case serverapi.ResultFileNotification:
		return "File processed: " + r.Title
	default:
		return "Result ready"
	}
}

// Detail renders the full result view as plain text.
func Detail(r serverapi.Result) string {
	if r.Type != serverapi.ResultFileNotification {
		return stripBold(r.Content)
	}

	name := r.Title
	if name == "" {
		name = "Unknown file"
	}
	path := r.FilePath
	if path == "" {
		path = "Downloads"
	}
	return fmt.Sprintf("%s\n\nFile: %s\nSize: %s\nPath: %s\n\nMessage: %s",
		name, name, fileSizeKB(r.FileSize), path, r.Message)
}

// emailText is the clipboard fallback body when server-side sending fails:
// the plain-text rendering prefixed with a Subject header line.
func emailText(r serverapi.Result) string {
	if r.Type == serverapi.ResultFileNotification {
		name := r.Title
		if name == "" {
			name = "Unknown file"
		}
		return "Subject: File Notification - " + name + "\n\n" + Detail(r)
	}
	content := r.Content
	if content == "" {
		content = "No content available"
	}
	return "Subject: Capsync Result\n\n" + stripBold(content)
}

// EventIcon maps an event type to its activity-list glyph.
func EventIcon(kind event.Kind) string {
	switch kind {
	case event.KindEmailCompose:
		return "✉️"
	case event.KindEmailRead:
		return "📬"
	case event.KindArticle:
		return "📖"
	default:
		return "📌"
	}
}

// Actions performs the user-initiated operations on the current result.
// Clipboard access is injected so tests run without a display server.
type Actions struct {
	api       *serverapi.Client
	store     *statestore.Store
	lifecycle *Lifecycle
	logger    *slog.Logger
	writeClip func(string) error
}

// NewActions wires result actions against the server client, state store
// and lifecycle.
func NewActions(api *serverapi.Client, store *statestore.Store, lc *Lifecycle, logger *slog.Logger) *Actions {
	if logger == nil {
		logger = slog.Default()
	}
	return &Actions{
		api:       api,
		store:     store,
		lifecycle: lc,
		logger:    logger,
		writeClip: clipboard.WriteAll,
	}
}

// Email sends the current result to the stored user address through the
// server. When the server refuses or is unreachable the rendered email text
// lands on the clipboard instead. The interrupt is acknowledged either way.
func (a *Actions) Email(ctx context.Context) error {
	r, ok := a.lifecycle.Current()
	if !ok {
		return fmt.Errorf("popup: email: no result held")
	}

	recipient, err := a.store.UserEmail(ctx)
	if err != nil {
		return fmt.Errorf("popup: email: %w", err)
	}

	sendErr := a.api.SendEmail(ctx, r, recipient)
	if sendErr != nil {
		a.logger.Warn("actions: send-email failed, falling back to clipboard",
			"error", sendErr)
		if clipErr := a.writeClip(emailText(r)); clipErr != nil {
			return fmt.Errorf("popup: email fallback: %w", clipErr)
		}
	}

	if err := a.lifecycle.Acknowledge(ctx); err != nil {
		return err
	}
	if sendErr != nil {
		return fmt.Errorf("%w: %v", ErrEmailFallback, sendErr)
	}
	return nil
}

// Copy places the plain-text rendering of the current result on the
// clipboard and acknowledges the interrupt.
func (a *Actions) Copy(ctx context.Context) error {
	r, ok := a.lifecycle.Current()
	if !ok {
		return fmt.Errorf("popup: copy: no result held")
	}
	if err := a.writeClip(Detail(r)); err != nil {
		return fmt.Errorf("popup: copy: %w", err)
	}
	return a.lifecycle.Acknowledge(ctx)
}
