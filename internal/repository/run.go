package repository

import (
	"context"
	"database/sql"
	"fmt"
	"playoff-migration/internal/constants"
	"playoff-migration/internal/domain"
	"strings"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

// RunRepository is the SQLite journal of migration runs.
type RunRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewRunRepository(sqlDB *sql.DB, logger zerolog.Logger) *RunRepository {
	return &RunRepository{db: sqlDB, logger: logger}
}

func (r *RunRepository) StartRun(ctx context.Context, info domain.RunInfo) (string, error) {
	id := info.ID
	if id == "" {
		var err error
		id, err = gonanoid.New(constants.RunIDLength)
		if err != nil {
			return "", fmt.Errorf("failed to generate nanoid: %w", err)
		}
	}
	if info.StartedAt.IsZero() {
		info.StartedAt = time.Now()
	}

	kinds := make([]string, len(info.Kinds))
	for i, k := range info.Kinds {
		kinds[i] = string(k)
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO runs (id, variant, source_role, source_game, destination_role, destination_game, kinds, status, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, info.Variant, info.SourceRole, info.SourceGame, info.DestinationRole, info.DestinationGame,
		strings.Join(kinds, ","), domain.RunRunning, info.StartedAt.UTC(),
	)
	if err != nil {
		r.logger.Error().Err(err).Str("run_id", id).Msg("failed to insert run")
		return "", fmt.Errorf("failed to insert run: %w", err)
	}

	r.logger.Debug().Str("run_id", id).Msg("run started")
	return id, nil
}

func (r *RunRepository) RecordStep(ctx context.Context, runID string, step domain.RunStep) error {
	if step.At.IsZero() {
		step.At = time.Now()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO run_steps (run_id, kind, entity_id, operation, status, error, at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		runID, string(step.Kind), step.EntityID, step.Operation, step.Status, step.Error, step.At.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert step of run %s: %w", runID, err)
	}
	return nil
}

func (r *RunRepository) FinishRun(ctx context.Context, runID string, runErr error) error {
	status := domain.RunSucceeded
	errText := ""
	if runErr != nil {
		status = domain.RunFailed
		errText = runErr.Error()
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE runs SET status = ?, error = ?, finished_at = ? WHERE id = ?`,
		status, errText, time.Now().UTC(), runID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run %s: %w", runID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: run %s", domain.ErrNotFound, runID)
	}

	r.logger.Debug().Str("run_id", runID).Str("status", status).Msg("run finished")
	return nil
}

// ListRuns returns the most recent runs first.
func (r *RunRepository) ListRuns(ctx context.Context, limit int) ([]domain.RunInfo, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, variant, source_role, source_game, destination_role, destination_game, kinds, status, error, started_at, finished_at
		FROM runs ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.RunInfo
	for rows.Next() {
		var (
			info     domain.RunInfo
			kinds    string
			finished sql.NullTime
		)
		if err := rows.Scan(&info.ID, &info.Variant, &info.SourceRole, &info.SourceGame, &info.DestinationRole,
			&info.DestinationGame, &kinds, &info.Status, &info.Error, &info.StartedAt, &finished); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if kinds != "" {
			for _, k := range strings.Split(kinds, ",") {
				info.Kinds = append(info.Kinds, domain.Kind(k))
			}
		}
		if finished.Valid {
			t := finished.Time
			info.FinishedAt = &t
		}
		runs = append(runs, info)
	}
	return runs, rows.Err()
}

// Steps returns the steps of a run in the order they were recorded.
func (r *RunRepository) Steps(ctx context.Context, runID string) ([]domain.RunStep, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT kind, entity_id, operation, status, error, at
		FROM run_steps WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list steps of run %s: %w", runID, err)
	}
	defer rows.Close()

	var steps []domain.RunStep
	for rows.Next() {
		var (
			step domain.RunStep
			kind string
		)
		if err := rows.Scan(&kind, &step.EntityID, &step.Operation, &step.Status, &step.Error, &step.At); err != nil {
			return nil, fmt.Errorf("failed to scan step: %w", err)
		}
		step.Kind = domain.Kind(kind)
		steps = append(steps, step)
	}
	return steps, rows.Err()
}
