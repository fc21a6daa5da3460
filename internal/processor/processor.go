// Package processor ties the reconstruction engine to the service edges:
// batches arrive over the bus, results land in the store and are republished
// for the embedding/indexing side.
package processor

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"
	"github.com/reweave/reweave/internal/bus"
	"github.com/reweave/reweave/internal/thread"
)

// BatchEvent is the wire form of one fetched message batch.
type BatchEvent struct {
	Group    thread.GroupInfo `json:"group_info"`
	Messages []thread.Message `json:"messages"`
}

// ExportEvent is published for every completed run.
type ExportEvent struct {
	RunID string `json:"run_id"`
	thread.Result
}

// ResultStore persists completed runs.
type ResultStore interface {
	SaveResult(ctx context.Context, runID uuid.UUID, res thread.Result) error
}

// Publisher emits events onto the bus.
type Publisher interface {
	Publish(subject string, data any) error
}

// Processor runs the reconstruction pipeline for incoming batches. Store and
// publisher are optional; a nil collaborator simply skips that side effect.
type Processor struct {
	store  ResultStore
	pub    Publisher
	opts   thread.Options
	logger *slog.Logger
}

func New(s ResultStore, pub Publisher, opts thread.Options, logger *slog.Logger) *Processor {
	return &Processor{
		store:  s,
		pub:    pub,
		opts:   opts,
		logger: logger,
	}
}

// HandleBatchStored is the bus handler for chat.batch.stored. Errors are
// logged and the event dropped; one bad batch never takes the service down.
func (p *Processor) HandleBatchStored(subject string, data []byte) {
	var evt BatchEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		p.logger.Error("failed to parse batch event", "subject", subject, "error", err)
		return
	}

	if _, err := p.ProcessBatch(context.Background(), evt); err != nil {
		p.logger.Error("batch processing failed",
			"group_id", evt.Group.GroupID,
			"error", err,
		)
	}
}

// ProcessBatch reconstructs one batch, persists the run and publishes the
// export event. The reconstruction itself cannot fail; only the store and
// bus edges can.
func (p *Processor) ProcessBatch(ctx context.Context, evt BatchEvent) (thread.Result, error) {
	result := thread.Process(sanitize(evt.Messages), evt.Group, p.opts)
	runID := uuid.New()

	p.logger.Info("batch processed",
		"run_id", runID,
		"group_id", evt.Group.GroupID,
		"messages", result.Stats.TotalMessages,
		"threads", result.Stats.RawThreadsBuilt,
		"chunks", result.Stats.ChunksExported,
	)

	if p.store != nil {
		if err := p.store.SaveResult(ctx, runID, result); err != nil {
			return result, err
		}
	}

	if p.pub != nil {
		if err := p.pub.Publish(bus.SubjectChunksExported, ExportEvent{
			RunID:  runID.String(),
			Result: result,
		}); err != nil {
			return result, err
		}
	}

	return result, nil
}

// sanitize clears explicit reply links that claim a self- or forward-
// reference. The input slice is left untouched.
func sanitize(msgs []thread.Message) []thread.Message {
	out := make([]thread.Message, len(msgs))
	copy(out, msgs)
	for i := range out {
		if !thread.ValidExplicitReply(out[i].ID, out[i].ExplicitReplyID) {
			out[i].ExplicitReplyID = 0
		}
	}
	return out
}
