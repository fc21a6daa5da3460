package processor

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/reweave/reweave/internal/bus"
	"github.com/reweave/reweave/internal/thread"
)

type fakeStore struct {
	saved []thread.Result
	err   error
}

func (f *fakeStore) SaveResult(_ context.Context, _ uuid.UUID, res thread.Result) error {
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, res)
	return nil
}

type fakePublisher struct {
	subjects []string
	payloads []any
}

func (f *fakePublisher) Publish(subject string, data any) error {
	f.subjects = append(f.subjects, subject)
	f.payloads = append(f.payloads, data)
	return nil
}

func testEvent() BatchEvent {
	base := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	return BatchEvent{
		Group: thread.GroupInfo{Source: "telegram", GroupID: 7, GroupName: "g"},
		Messages: []thread.Message{
			{ID: 1, Date: base.Format(time.RFC3339), SenderID: 100, Text: "hi"},
			{ID: 2, Date: base.Add(5 * time.Second).Format(time.RFC3339), SenderID: 100, Text: "there"},
			{ID: 3, Date: base.Add(time.Minute).Format(time.RFC3339), SenderID: 200, Text: "hey", ExplicitReplyID: 1},
		},
	}
}

func TestProcessBatch_PersistsAndPublishes(t *testing.T) {
	fs := &fakeStore{}
	fp := &fakePublisher{}
	p := New(fs, fp, thread.DefaultOptions(), slog.Default())

	result, err := p.ProcessBatch(context.Background(), testEvent())
	if err != nil {
		t.Fatalf("ProcessBatch: %v", err)
	}
	if result.Stats.ChunksExported != 1 {
		t.Errorf("chunks exported = %d, want 1", result.Stats.ChunksExported)
	}
	if len(fs.saved) != 1 {
		t.Fatalf("expected 1 saved run, got %d", len(fs.saved))
	}
	if len(fp.subjects) != 1 || fp.subjects[0] != bus.SubjectChunksExported {
		t.Errorf("published subjects = %v", fp.subjects)
	}

	evt, ok := fp.payloads[0].(ExportEvent)
	if !ok {
		t.Fatalf("payload type = %T", fp.payloads[0])
	}
	if evt.RunID == "" {
		t.Error("export event run id is empty")
	}
	if len(evt.Chunks) != 1 {
		t.Errorf("export event chunks = %d, want 1", len(evt.Chunks))
	}
}

func TestProcessBatch_NilCollaborators(t *testing.T) {
	p := New(nil, nil, thread.DefaultOptions(), slog.Default())

	result, err := p.ProcessBatch(context.Background(), testEvent())
	if err != nil {
		t.Fatalf("ProcessBatch without store/bus: %v", err)
	}
	if result.Stats.ChunksExported != 1 {
		t.Errorf("chunks exported = %d, want 1", result.Stats.ChunksExported)
	}
}

func TestProcessBatch_ClearsSelfAndForwardLinks(t *testing.T) {
	base := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	evt := BatchEvent{
		Group: thread.GroupInfo{Source: "telegram", GroupID: 7, GroupName: "g"},
		Messages: []thread.Message{
			{ID: 1, Date: base.Format(time.RFC3339), SenderID: 100, Text: "hi"},
			// Self-reference: must be treated as unlinked, so proximity
			// inference can still tie this message to its neighbor.
			{ID: 2, Date: base.Add(10 * time.Second).Format(time.RFC3339), SenderID: 200, Text: "hey", ExplicitReplyID: 2},
		},
	}

	p := New(nil, nil, thread.DefaultOptions(), slog.Default())
	result, err := p.ProcessBatch(context.Background(), evt)
	if err != nil {
		t.Fatalf("ProcessBatch: %v", err)
	}

	if result.Stats.ChunksExported != 1 {
		t.Fatalf("chunks exported = %d, want 1 (self-link cleared, proximity applied)", result.Stats.ChunksExported)
	}
	if result.Chunks[0].MessageCountOriginal != 2 {
		t.Errorf("message_count_original = %d, want 2", result.Chunks[0].MessageCountOriginal)
	}
	if evt.Messages[1].ExplicitReplyID != 2 {
		t.Errorf("caller's event was mutated: explicit = %d", evt.Messages[1].ExplicitReplyID)
	}
}

func TestHandleBatchStored_MalformedPayloadIgnored(t *testing.T) {
	fs := &fakeStore{}
	p := New(fs, nil, thread.DefaultOptions(), slog.Default())

	p.HandleBatchStored(bus.SubjectBatchStored, []byte("{not json"))

	if len(fs.saved) != 0 {
		t.Errorf("malformed payload still saved %d runs", len(fs.saved))
	}
}

func TestHandleBatchStored_RoundTrip(t *testing.T) {
	fs := &fakeStore{}
	p := New(fs, nil, thread.DefaultOptions(), slog.Default())

	data, err := json.Marshal(testEvent())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	p.HandleBatchStored(bus.SubjectBatchStored, data)

	if len(fs.saved) != 1 {
		t.Fatalf("expected 1 saved run, got %d", len(fs.saved))
	}
	if fs.saved[0].Group.GroupID != 7 {
		t.Errorf("saved group id = %d, want 7", fs.saved[0].Group.GroupID)
	}
}
