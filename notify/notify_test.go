package notify

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func testReport() Report {
	return Report{
		RunID:         "run-1",
		Date:          "2026-09-01",
		Stage:         "postvalidate",
		Errors:        []string{"error rate too high: 75.0% of 4 checked"},
		Warnings:      []string{"marker 3: fetch failed"},
		Checked:       4,
		Updated:       1,
		SoftErrors:    3,
		PresidentNew:  2,
		CabinetNew:    1,
		VoteDelta:     20,
		StatusChanges: 1,
	}
}

func TestFailureSendsToBotEndpoint(t *testing.T) {
	var gotPath string
	var gotBody sendMessageRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		data, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(data, &gotBody); err != nil {
			t.Errorf("request body: %v", err)
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	n := New(Config{BotToken: "tok123", ChatID: "-100", APIBase: srv.URL},
		WithLogger(slog.New(slog.DiscardHandler)))

	if err := n.Failure(context.Background(), testReport()); err != nil {
		t.Fatalf("failure: %v", err)
	}
	if gotPath != "/bottok123/sendMessage" {
		t.Errorf("path: %q", gotPath)
	}
	if gotBody.ChatID != "-100" {
		t.Errorf("chat_id: %q", gotBody.ChatID)
	}
	for _, want := range []string{"FAILED", "postvalidate", "error rate too high", "soft errors 3"} {
		if !strings.Contains(gotBody.Text, want) {
			t.Errorf("text missing %q:\n%s", want, gotBody.Text)
		}
	}
}

func TestSuccessSummary(t *testing.T) {
	var gotBody sendMessageRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		json.Unmarshal(data, &gotBody)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	n := New(Config{BotToken: "tok", ChatID: "7", APIBase: srv.URL},
		WithLogger(slog.New(slog.DiscardHandler)))

	if err := n.Success(context.Background(), testReport()); err != nil {
		t.Fatalf("success: %v", err)
	}
	for _, want := range []string{"2 president / 1 cabinet", "vote delta +20", "status changes 1"} {
		if !strings.Contains(gotBody.Text, want) {
			t.Errorf("text missing %q:\n%s", want, gotBody.Text)
		}
	}
}

func TestMissingCredentialsSkipsWithoutError(t *testing.T) {
	// WHY: Notification is best-effort; an unconfigured notifier must never
	// turn a successful run into a failure.
	n := New(Config{}, WithLogger(slog.New(slog.DiscardHandler)))
	if n.Enabled() {
		t.Fatal("empty config reported enabled")
	}
	if err := n.Failure(context.Background(), testReport()); err != nil {
		t.Errorf("failure with no credentials: %v", err)
	}
	if err := n.Success(context.Background(), testReport()); err != nil {
		t.Errorf("success with no credentials: %v", err)
	}
}

func TestTelegramRefusalIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"ok":false,"description":"chat not found"}`))
	}))
	defer srv.Close()

	n := New(Config{BotToken: "tok", ChatID: "7", APIBase: srv.URL},
		WithLogger(slog.New(slog.DiscardHandler)))

	err := n.Success(context.Background(), testReport())
	if err == nil || !strings.Contains(err.Error(), "chat not found") {
		t.Errorf("err: %v", err)
	}
}
