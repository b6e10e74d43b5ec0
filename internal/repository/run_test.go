package repository

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"playoff-migration/internal/database"
	"playoff-migration/internal/domain"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func openJournal(t *testing.T) *RunRepository {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "journal.db"), zerolog.Nop())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewRunRepository(db, zerolog.Nop())
}

func TestRunLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := openJournal(t)

	id, err := repo.StartRun(ctx, domain.RunInfo{
		Variant:         "plain",
		SourceRole:      "original",
		SourceGame:      "game-a",
		DestinationRole: "cloned",
		DestinationGame: "game-b",
		Kinds:           []domain.Kind{domain.KindTeamDesign, domain.KindMetricDesign},
	})
	if err != nil {
		t.Fatalf("StartRun returned error: %v", err)
	}
	if len(id) != 12 {
		t.Fatalf("expected a 12 character run id, got %q", id)
	}

	steps := []domain.RunStep{
		{Kind: domain.KindTeamDesign, EntityID: "old", Operation: domain.OpDelete, Status: domain.StepOK},
		{Kind: domain.KindTeamDesign, EntityID: "squadra", Operation: domain.OpCreate, Status: domain.StepOK},
		{Kind: domain.KindMetricDesign, EntityID: "punti", Operation: domain.OpCreate, Status: domain.StepFailed, Error: "503"},
	}
	for _, s := range steps {
		if err := repo.RecordStep(ctx, id, s); err != nil {
			t.Fatalf("RecordStep returned error: %v", err)
		}
	}

	if err := repo.FinishRun(ctx, id, fmt.Errorf("metric-design: %w", domain.ErrUnavailable)); err != nil {
		t.Fatalf("FinishRun returned error: %v", err)
	}

	runs, err := repo.ListRuns(ctx, 10)
	if err != nil {
		t.Fatalf("ListRuns returned error: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected one run, got %d", len(runs))
	}
	run := runs[0]
	if run.ID != id || run.Status != domain.RunFailed || run.Error != "metric-design: remote unavailable" {
		t.Errorf("unexpected run %+v", run)
	}
	if len(run.Kinds) != 2 || run.Kinds[1] != domain.KindMetricDesign {
		t.Errorf("unexpected kinds %v", run.Kinds)
	}
	if run.SourceGame != "game-a" || run.DestinationRole != "cloned" {
		t.Errorf("unexpected run fields %+v", run)
	}
	if run.FinishedAt == nil || run.FinishedAt.Before(run.StartedAt.Add(-time.Second)) {
		t.Errorf("expected finished_at after started_at, got %v / %v", run.FinishedAt, run.StartedAt)
	}

	got, err := repo.Steps(ctx, id)
	if err != nil {
		t.Fatalf("Steps returned error: %v", err)
	}
	if len(got) != len(steps) {
		t.Fatalf("expected %d steps, got %d", len(steps), len(got))
	}
	for i := range steps {
		if got[i].EntityID != steps[i].EntityID || got[i].Status != steps[i].Status || got[i].Kind != steps[i].Kind {
			t.Errorf("step %d = %+v, want %+v", i, got[i], steps[i])
		}
		if got[i].At.IsZero() {
			t.Errorf("step %d has no timestamp", i)
		}
	}
	if got[2].Error != "503" {
		t.Errorf("expected step error to be kept, got %q", got[2].Error)
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := openJournal(t)
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	for i, id := range []string{"first", "second", "third"} {
		if _, err := repo.StartRun(ctx, domain.RunInfo{
			ID: id, Variant: "plain", SourceRole: "original", DestinationRole: "cloned",
			StartedAt: base.Add(time.Duration(i) * time.Minute),
		}); err != nil {
			t.Fatalf("StartRun returned error: %v", err)
		}
	}
	if err := repo.FinishRun(ctx, "second", nil); err != nil {
		t.Fatalf("FinishRun returned error: %v", err)
	}

	runs, err := repo.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("ListRuns returned error: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "third" || runs[1].ID != "second" {
		t.Fatalf("unexpected order %+v", runs)
	}
	if runs[0].Status != domain.RunRunning || runs[0].FinishedAt != nil {
		t.Errorf("unfinished run reported as %+v", runs[0])
	}
	if runs[1].Status != domain.RunSucceeded || runs[1].Error != "" {
		t.Errorf("finished run reported as %+v", runs[1])
	}
}

func TestFinishUnknownRun(t *testing.T) {
	repo := openJournal(t)

	if err := repo.FinishRun(context.Background(), "nope", nil); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStepsOfUnknownRun(t *testing.T) {
	steps, err := openJournal(t).Steps(context.Background(), "nope")
	if err != nil || len(steps) != 0 {
		t.Fatalf("Steps = %v, %v", steps, err)
	}
}
