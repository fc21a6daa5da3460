package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store persists processing runs and their conversation chunks in Postgres.
type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

// EnsureSchema creates the reweave tables if they do not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS processing_runs (
			id                   uuid PRIMARY KEY,
			source               text NOT NULL,
			group_id             bigint NOT NULL,
			group_name           text NOT NULL,
			time_threshold_min   double precision NOT NULL,
			id_threshold         bigint NOT NULL,
			min_participants     int NOT NULL,
			total_messages       int NOT NULL,
			same_user_chained    int NOT NULL,
			aba_inferred         int NOT NULL,
			proximity_inferred   int NOT NULL,
			raw_threads_built    int NOT NULL,
			threads_filtered_out int NOT NULL,
			chunks_exported      int NOT NULL,
			created_at           timestamptz NOT NULL DEFAULT now()
		);
		CREATE TABLE IF NOT EXISTS conversation_chunks (
			id                     text PRIMARY KEY,
			run_id                 uuid NOT NULL REFERENCES processing_runs(id),
			source                 text NOT NULL,
			group_id               bigint NOT NULL,
			group_name             text NOT NULL,
			root_message_id        bigint NOT NULL,
			start_date             text NOT NULL,
			end_date               text NOT NULL,
			participant_count      int NOT NULL,
			message_count_original int NOT NULL,
			turn_count_condensed   int NOT NULL,
			content                text NOT NULL,
			created_at             timestamptz NOT NULL DEFAULT now()
		);`)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
