package ingest

import (
	"path/filepath"
	"testing"
)

func TestState_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	s, err := LoadState(path)
	if err != nil {
		t.Fatalf("load fresh state: %v", err)
	}
	if len(s.FilesProcessed) != 0 {
		t.Fatalf("fresh state has %d processed files", len(s.FilesProcessed))
	}

	s.MarkProcessed("/exports/a.json", "1:1-9:5")
	s.RunsCompleted = 1
	s.ChunksExported = 3
	s.AddError("parse /exports/b.json: bad json")
	if err := s.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := LoadState(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !loaded.IsProcessed("/exports/a.json") {
		t.Error("processed file lost on reload")
	}
	if !loaded.SeenFingerprint("1:1-9:5") {
		t.Error("fingerprint lost on reload")
	}
	if loaded.IsProcessed("/exports/b.json") {
		t.Error("unprocessed file reported as processed")
	}
	if loaded.ChunksExported != 3 || loaded.RunsCompleted != 1 {
		t.Errorf("counters = %d runs / %d chunks", loaded.RunsCompleted, loaded.ChunksExported)
	}
	if len(loaded.Errors) != 1 {
		t.Errorf("errors = %v", loaded.Errors)
	}
}

func TestFingerprint_Key(t *testing.T) {
	fp := Fingerprint{GroupID: 42, FirstID: 10, LastID: 99, Count: 17}
	if fp.Key() != "42:10-99:17" {
		t.Errorf("key = %q", fp.Key())
	}
}
