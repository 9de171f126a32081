package popup

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/hazyhaar/capsync/idgen"
	"github.com/hazyhaar/capsync/serverapi"
	"github.com/hazyhaar/capsync/statestore"
)

// Templates is the built-in workflow catalog, addressable by name.
var Templates = map[string]string{
	"pdf":       "When I download a PDF, summarize it and email me the key points",
	"email":     "When I compose an email, analyze the tone, suggest improvements, and email me the analysis",
	"article":   "When I read a Medium article, extract 3 key takeaways and email me",
	"emailRead": "When I open and read an email, summarize the key points and action items, then email me",
	"file":      "When I download a file, analyze its content type, suggest relevant tags, and organize it into the appropriate folder",
}

// WorkflowEntry is a workflow as displayed: server fields plus the
// local-only active toggle.
type WorkflowEntry struct {
	serverapi.Workflow
	Active bool
}

// Workflows keeps the displayed workflow list in sync with the server.
// Creation goes through the server first; a local entry appears only once
// the server accepted it. The active toggle never leaves this process and
// is overwritten by the next server refresh.
type Workflows struct {
	mu     sync.Mutex
	api    *serverapi.Client
	store  *statestore.Store
	newID  idgen.Generator
	logger *slog.Logger
	list   []WorkflowEntry
}

// NewWorkflows creates the workflow store.
func NewWorkflows(api *serverapi.Client, store *statestore.Store, logger *slog.Logger) *Workflows {
	if logger == nil {
		logger = slog.Default()
	}
	return &Workflows{api: api, store: store, newID: idgen.Default, logger: logger}
}

// rewriteQuery resolves "email me" phrasing against the stored user address
// and appends a delivery clause when the query names no address at all.
func rewriteQuery(query, userEmail string) string {
	lower := strings.ToLower(query)
	switch {
	case strings.Contains(lower, "email me"):
		return replaceFold(query, "email me", "email "+userEmail)
	case !strings.Contains(lower, "@"):
		return query + " and email results to " + userEmail
	default:
		return query
	}
}

// replaceFold replaces every case-insensitive occurrence of old with repl.
func replaceFold(s, old, repl string) string {
	var b strings.Builder
	lower := strings.ToLower(s)
	old = strings.ToLower(old)
	for {
		i := strings.Index(lower, old)
		if i < 0 {
			b.WriteString(s)
			return b.String()
		}
		b.WriteString(s[:i])
		b.WriteString(repl)
		s, lower = s[i+len(old):], lower[i+len(old):]
	}
}

// Add creates a workflow on the server and, on success, in the local list.
// The template catalog is consulted when query names a template. Server
// rejection leaves the local list untouched and surfaces the error.
func (w *Workflows) Add(ctx context.Context, query string) (WorkflowEntry, error) {
	if t, ok := Templates[query]; ok {
		query = t
	}

	userEmail, err := w.store.UserEmail(ctx)
	if err != nil {
		return WorkflowEntry{}, fmt.Errorf("popup: add workflow: %w", err)
	}
	if userEmail != "" {
		query = rewriteQuery(query, userEmail)
	}

	if err := w.api.CreateWorkflow(ctx, query); err != nil {
		return WorkflowEntry{}, fmt.Errorf("popup: add workflow: %w", err)
	}

	entry := WorkflowEntry{
		Workflow: serverapi.Workflow{ID: w.newID(), Query: query},
		Active:   true,
	}

	w.mu.Lock()
	w.list = append(w.list, entry)
	w.mu.Unlock()

	w.logger.Info("workflows: created", "id", entry.ID)
	return entry, nil
}

// Toggle flips a workflow's active flag. The change is local-only: nothing
// is sent to the server and the next refresh overwrites it.
func (w *Workflows) Toggle(id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i := range w.list {
		if w.list[i].ID == id {
			w.list[i].Active = !w.list[i].Active
			return w.list[i].Active
		}
	}
	return false
}

// Refresh replaces the list with the server's, in server order, all active.
// Locally added entries the server does not yet report are kept at the tail
// in add order.
func (w *Workflows) Refresh(server []serverapi.Workflow) {
	w.mu.Lock()
	defer w.mu.Unlock()

	known := make(map[string]bool, len(server))
	next := make([]WorkflowEntry, 0, len(server)+len(w.list))
	for _, wf := range server {
		known[wf.Query] = true
		next = append(next, WorkflowEntry{Workflow: wf, Active: true})
	}
	for _, e := range w.list {
		if !known[e.Query] {
			next = append(next, e)
		}
	}
	w.list = next
}

// ListAll returns the current display list.
func (w *Workflows) ListAll() []WorkflowEntry {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]WorkflowEntry, len(w.list))
	copy(out, w.list)
	return out
}
