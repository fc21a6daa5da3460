package ingest

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/reweave/reweave/internal/processor"
	"github.com/reweave/reweave/internal/thread"
)

const testExport = `{
	"name": "dev chat",
	"type": "private_supergroup",
	"id": 321,
	"messages": [
		{"id": 1, "type": "message", "date": "2026-03-02T12:00:00", "from_id": "user100", "text": "hi"},
		{"id": 2, "type": "message", "date": "2026-03-02T12:00:05", "from_id": "user100", "text": "there"},
		{"id": 3, "type": "message", "date": "2026-03-02T12:01:00", "from_id": "user200", "text": "hey", "reply_to_message_id": 1}
	]
}`

type captureStore struct {
	results []thread.Result
}

func (c *captureStore) SaveResult(_ context.Context, _ uuid.UUID, res thread.Result) error {
	c.results = append(c.results, res)
	return nil
}

type capturePub struct {
	subjects []string
}

func (c *capturePub) Publish(subject string, _ any) error {
	c.subjects = append(c.subjects, subject)
	return nil
}

func writeExport(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write export: %v", err)
	}
	return path
}

func testRunner(t *testing.T, dir string, cs *captureStore, cp *capturePub) *Runner {
	t.Helper()
	cfg := Config{
		Dir:       dir,
		StatePath: filepath.Join(t.TempDir(), "state.json"),
	}
	var pub processor.Publisher
	if cp != nil {
		pub = cp
	}
	return NewRunner(cfg, thread.DefaultOptions(), cs, pub, slog.Default())
}

func TestRunner_ProcessesExports(t *testing.T) {
	dir := t.TempDir()
	writeExport(t, dir, "devchat.json", testExport)

	cs := &captureStore{}
	cp := &capturePub{}
	r := testRunner(t, dir, cs, cp)

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(cs.results) != 1 {
		t.Fatalf("expected 1 persisted run, got %d", len(cs.results))
	}
	if cs.results[0].Stats.ChunksExported != 1 {
		t.Errorf("chunks exported = %d, want 1", cs.results[0].Stats.ChunksExported)
	}
	if len(cp.subjects) != 1 {
		t.Errorf("published %d events, want 1", len(cp.subjects))
	}
}

func TestRunner_SkipsProcessedOnSecondRun(t *testing.T) {
	dir := t.TempDir()
	writeExport(t, dir, "devchat.json", testExport)

	cs := &captureStore{}
	cfg := Config{Dir: dir, StatePath: filepath.Join(t.TempDir(), "state.json")}
	r := NewRunner(cfg, thread.DefaultOptions(), cs, nil, slog.Default())

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if len(cs.results) != 1 {
		t.Errorf("expected 1 persisted run across both invocations, got %d", len(cs.results))
	}
}

func TestRunner_DuplicateContentSkippedByFingerprint(t *testing.T) {
	dir := t.TempDir()
	writeExport(t, dir, "a.json", testExport)
	writeExport(t, dir, "a-copy.json", testExport)

	cs := &captureStore{}
	r := testRunner(t, dir, cs, nil)

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(cs.results) != 1 {
		t.Errorf("expected the renamed copy to be skipped, persisted %d runs", len(cs.results))
	}
}

func TestRunner_DryRunPersistsNothing(t *testing.T) {
	dir := t.TempDir()
	writeExport(t, dir, "devchat.json", testExport)

	cs := &captureStore{}
	cp := &capturePub{}
	cfg := Config{
		Dir:       dir,
		StatePath: filepath.Join(t.TempDir(), "state.json"),
		DryRun:    true,
	}
	r := NewRunner(cfg, thread.DefaultOptions(), cs, cp, slog.Default())

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(cs.results) != 0 || len(cp.subjects) != 0 {
		t.Errorf("dry run persisted %d runs and published %d events", len(cs.results), len(cp.subjects))
	}
}

func TestRunner_MalformedFileRecordedAndSkipped(t *testing.T) {
	dir := t.TempDir()
	writeExport(t, dir, "bad.json", "{broken")
	writeExport(t, dir, "good.json", testExport)

	cs := &captureStore{}
	statePath := filepath.Join(t.TempDir(), "state.json")
	cfg := Config{Dir: dir, StatePath: statePath}
	r := NewRunner(cfg, thread.DefaultOptions(), cs, nil, slog.Default())

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(cs.results) != 1 {
		t.Errorf("expected the good file to still be processed, got %d runs", len(cs.results))
	}

	state, err := LoadState(statePath)
	if err != nil {
		t.Fatalf("load state: %v", err)
	}
	if len(state.Errors) != 1 {
		t.Errorf("state errors = %v, want 1 entry", state.Errors)
	}
}

func TestRunner_MinMessagesFloor(t *testing.T) {
	dir := t.TempDir()
	writeExport(t, dir, "devchat.json", testExport)

	cs := &captureStore{}
	cfg := Config{
		Dir:         dir,
		StatePath:   filepath.Join(t.TempDir(), "state.json"),
		MinMessages: 10,
	}
	r := NewRunner(cfg, thread.DefaultOptions(), cs, nil, slog.Default())

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(cs.results) != 0 {
		t.Errorf("batch under the floor was still processed")
	}
}
