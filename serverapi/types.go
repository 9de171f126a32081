// Package serverapi is the typed HTTP client for the automation server
// contract. It performs single-attempt requests: the pipeline's delivery
// policy (no retry, no queue) is decided by callers, not buried here.
package serverapi

import "fmt"

// Result is a server-origin workflow outcome. The client never creates or
// mutates one; identity is ID.
type Result struct {
	ID      string `json:"id"`
	Type    string `json:"type"` // "result" | "notification"
	Content string `json:"content,omitempty"`

	// Notification fields.
	Title    string `json:"title,omitempty"`
	FileSize int64  `json:"file_size,omitempty"`
	FilePath string `json:"file_path,omitempty"`
	Message  string `json:"message,omitempty"`
}

// Result type tags.
const (
	ResultText             = "result"
	ResultFileNotification = "notification"
)

// Workflow is a server-side workflow definition.
type Workflow struct {
	ID        string `json:"id"`
	Query     string `json:"query"`
	CreatedAt string `json:"created_at"`
}

// EventRecord is one entry of the server's event list.
type EventRecord struct {
	Timestamp string            `json:"timestamp"`
	Payload   map[string]string `json:"payload"`
}

// StatusError is a non-2xx response. Background callers swallow it; user
// initiated actions surface it.
type StatusError struct {
	Op   string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("serverapi: %s: status %d", e.Op, e.Code)
}
