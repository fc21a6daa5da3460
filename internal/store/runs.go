package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/reweave/reweave/internal/thread"
)

// RunRecord is a stored processing run row.
type RunRecord struct {
	ID        uuid.UUID    `json:"id"`
	Source    string       `json:"source"`
	GroupID   int64        `json:"group_id"`
	GroupName string       `json:"group_name"`
	Stats     thread.Stats `json:"stats"`
	CreatedAt time.Time    `json:"created_at"`
}

// SaveResult writes one processing run and its chunks in a single
// transaction. Chunk ids are deterministic, so re-ingesting the same batch
// inserts nothing new for chunks that already exist.
func (s *Store) SaveResult(ctx context.Context, runID uuid.UUID, res thread.Result) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO processing_runs (
			id, source, group_id, group_name,
			time_threshold_min, id_threshold, min_participants,
			total_messages, same_user_chained, aba_inferred, proximity_inferred,
			raw_threads_built, threads_filtered_out, chunks_exported
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		runID, res.Group.Source, res.Group.GroupID, res.Group.GroupName,
		res.Params.TimeThresholdMinutes, res.Params.IDThreshold, res.Params.MinParticipants,
		res.Stats.TotalMessages, res.Stats.SameUserChained, res.Stats.ABAInferred,
		res.Stats.ProximityInferred, res.Stats.RawThreadsBuilt,
		res.Stats.ThreadsFilteredOut, res.Stats.ChunksExported,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, c := range res.Chunks {
		_, err = tx.Exec(ctx, `
			INSERT INTO conversation_chunks (
				id, run_id, source, group_id, group_name, root_message_id,
				start_date, end_date, participant_count,
				message_count_original, turn_count_condensed, content
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			ON CONFLICT (id) DO NOTHING`,
			c.ID, runID, c.Source, c.GroupID, c.GroupName, c.RootMessageID,
			c.StartDate, c.EndDate, c.ParticipantCount,
			c.MessageCountOriginal, c.TurnCountCondensed, c.Content,
		)
		if err != nil {
			return fmt.Errorf("insert chunk %s: %w", c.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// RecentRuns returns the most recent processing runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, source, group_id, group_name,
		       total_messages, same_user_chained, aba_inferred, proximity_inferred,
		       raw_threads_built, threads_filtered_out, chunks_exported, created_at
		FROM processing_runs
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var r RunRecord
		if err := rows.Scan(
			&r.ID, &r.Source, &r.GroupID, &r.GroupName,
			&r.Stats.TotalMessages, &r.Stats.SameUserChained, &r.Stats.ABAInferred,
			&r.Stats.ProximityInferred, &r.Stats.RawThreadsBuilt,
			&r.Stats.ThreadsFilteredOut, &r.Stats.ChunksExported, &r.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// CountChunks returns the total number of stored conversation chunks.
func (s *Store) CountChunks(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM conversation_chunks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return n, nil
}
