package devserver

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/hazyhaar/capsync/event"
	"github.com/hazyhaar/capsync/serverapi"
)

func TestContractRoundTrip(t *testing.T) {
	dev := New(nil)
	ts := httptest.NewServer(dev.Router())
	defer ts.Close()

	ctx := context.Background()
	api := serverapi.New(ts.URL)

	if !api.Ping(ctx) {
		t.Fatal("Ping: want live")
	}

	ev := event.Event{
		ID:        "ev-1",
		EventType: event.KindEmailRead,
		URL:       "https://mail.example.com/msg",
		Fields: map[string]string{
			event.FieldSubject: "hello",
			event.FieldFrom:    "a@example.com",
		},
	}
	if err := api.PostEvent(ctx, ev); err != nil {
		t.Fatalf("PostEvent: %v", err)
	}

	events, err := api.ListEvents(ctx)
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(events) != 1 || events[0].Payload["email_subject"] != "hello" {
		t.Fatalf("events: got %+v", events)
	}

	if err := api.CreateWorkflow(ctx, "summarize to a@b.example"); err != nil {
		t.Fatalf("CreateWorkflow: %v", err)
	}
	workflows, err := api.ListWorkflows(ctx)
	if err != nil {
		t.Fatalf("ListWorkflows: %v", err)
	}
	if len(workflows) != 1 || workflows[0].ID == "" {
		t.Fatalf("workflows: got %+v", workflows)
	}

	dev.PushResult(serverapi.Result{ID: "r1", Type: serverapi.ResultText, Content: "done"})
	results, err := api.ListResults(ctx)
	if err != nil {
		t.Fatalf("ListResults: %v", err)
	}
	if len(results) != 1 || results[0].ID != "r1" {
		t.Fatalf("results: got %+v", results)
	}

	if err := api.SendEmail(ctx, results[0], "me@example.com"); err != nil {
		t.Fatalf("SendEmail: %v", err)
	}
	if emails := dev.Emails(); len(emails) != 1 || emails[0].Recipient != "me@example.com" {
		t.Fatalf("emails: got %+v", emails)
	}
}

func TestCreateWorkflowRequiresQuery(t *testing.T) {
	dev := New(nil)
	ts := httptest.NewServer(dev.Router())
	defer ts.Close()

	if err := serverapi.New(ts.URL).CreateWorkflow(context.Background(), ""); err == nil {
		t.Fatal("empty query: want error")
	}
}
