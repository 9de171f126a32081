package popup

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hazyhaar/capsync/devserver"
	"github.com/hazyhaar/capsync/serverapi"
	"github.com/hazyhaar/capsync/statestore"
)

func TestRewriteQuery(t *testing.T) {
	cases := []struct {
		name, query, want string
	}{
		{
			name:  "email me rewritten",
			query: "Summarize my articles and email me",
			want:  "Summarize my articles and email me@example.com",
		},
		{
			name:  "no address gets delivery clause",
			query: "Summarize my articles",
			want:  "Summarize my articles and email results to me@example.com",
		},
		{
			name:  "explicit address untouched",
			query: "Send summaries to boss@example.com",
			want:  "Send summaries to boss@example.com",
		},
		{
			name:  "email me case-insensitive",
			query: "Email Me the key points",
			want:  "email me@example.com the key points",
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := rewriteQuery(c.query, "me@example.com"); got != c.want {
				t.Errorf("rewriteQuery(%q): got %q, want %q", c.query, got, c.want)
			}
		})
	}
}

func TestWorkflows_AddRequiresServerAcceptance(t *testing.T) {
	refused := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer refused.Close()

	store := statestore.OpenMemory(t)
	w := NewWorkflows(serverapi.New(refused.URL), store, nil)

	if _, err := w.Add(context.Background(), "do the thing"); err == nil {
		t.Fatal("server refusal: want error")
	}
	if len(w.ListAll()) != 0 {
		t.Fatal("refused workflow appeared locally")
	}
}

func TestWorkflows_AddUsesTemplateAndUserEmail(t *testing.T) {
	dev := devserver.New(nil)
	ts := httptest.NewServer(dev.Router())
	defer ts.Close()

	ctx := context.Background()
	store := statestore.OpenMemory(t)
	store.SetUserEmail(ctx, "me@example.com")
	api := serverapi.New(ts.URL)
	w := NewWorkflows(api, store, nil)

	entry, err := w.Add(ctx, "pdf")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	want := "When I download a PDF, summarize it and email me@example.com the key points"
	if entry.Query != want {
		t.Errorf("query: got %q, want %q", entry.Query, want)
	}

	server, err := api.ListWorkflows(ctx)
	if err != nil {
		t.Fatalf("ListWorkflows: %v", err)
	}
	if len(server) != 1 || server[0].Query != want {
		t.Errorf("server side: got %+v", server)
	}
}

func TestWorkflows_RefreshKeepsUnconfirmedAtTail(t *testing.T) {
	dev := devserver.New(nil)
	ts := httptest.NewServer(dev.Router())
	defer ts.Close()

	ctx := context.Background()
	store := statestore.OpenMemory(t)
	w := NewWorkflows(serverapi.New(ts.URL), store, nil)

	if _, err := w.Add(ctx, "watch things for a@b.example"); err != nil {
		t.Fatalf("Add: %v", err)
	}

	// A refresh that does not yet include the local entry.
	w.Refresh([]serverapi.Workflow{{ID: "9", Query: "server-side workflow for x@y.example"}})

	list := w.ListAll()
	if len(list) != 2 {
		t.Fatalf("list: got %d entries, want 2", len(list))
	}
	if list[0].ID != "9" {
		t.Errorf("server order first: got %+v", list[0])
	}
	if list[1].Query != "watch things for a@b.example" {
		t.Errorf("unconfirmed tail: got %+v", list[1])
	}
}
