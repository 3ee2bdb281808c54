package observability

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestEventLog_WriteAndRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	log, err := NewJSONLEventLog(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer log.Close()

	events := []Event{
		{Time: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC), Level: "INFO", Type: EventRunCreated, RunID: "run-1", Message: "run created"},
		{Time: time.Date(2025, 6, 1, 11, 0, 0, 0, time.UTC), Level: "INFO", Type: EventTaskExecuted, RunID: "run-1", Message: "use case 1 executed", Data: map[string]any{"number": 1}},
		{Time: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC), Level: "ERROR", Type: EventWorkflowFailure, RunID: "run-2", Message: "clone failed"},
	}
	for _, event := range events {
		if err := log.Write(event); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	all, err := log.Read(EventFilter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 events, got %d", len(all))
	}
	if all[0].Type != EventRunCreated || all[0].RunID != "run-1" {
		t.Errorf("unexpected first event: %+v", all[0])
	}
}

func TestEventLog_FilterByRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	log, err := NewJSONLEventLog(path)
	if err != nil {
		t.Fatal(err)
	}
	defer log.Close()

	Info(log, "run-1", EventRunCreated, "run created", nil)
	Info(log, "run-2", EventRunCreated, "run created", nil)
	Error(log, "run-2", "clone failed", nil)

	run2, err := log.Read(EventFilter{RunID: "run-2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(run2) != 2 {
		t.Fatalf("expected 2 events for run-2, got %d", len(run2))
	}

	errors, err := log.Read(EventFilter{Level: "ERROR"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(errors) != 1 || errors[0].RunID != "run-2" {
		t.Errorf("unexpected error events: %+v", errors)
	}
}

func TestEventLog_SkipsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	content := `{"time":"2025-06-01T10:00:00Z","level":"INFO","type":"run.created","run_id":"run-1","msg":"ok"}
this line is not JSON
{"time":"2025-06-01T11:00:00Z","level":"INFO","type":"run.cloned","run_id":"run-1","msg":"ok"}
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	log, err := NewJSONLEventLog(path)
	if err != nil {
		t.Fatal(err)
	}
	defer log.Close()

	events, err := log.Read(EventFilter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 2 {
		t.Errorf("expected 2 parseable events, got %d", len(events))
	}
}

func TestEventLog_ReadMissingFile(t *testing.T) {
	log := &jsonlEventLog{path: filepath.Join(t.TempDir(), "missing.jsonl")}

	events, err := log.Read(EventFilter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if events != nil {
		t.Errorf("expected nil events, got %v", events)
	}
}
