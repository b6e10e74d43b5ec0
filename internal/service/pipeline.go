package service

import (
	"context"
	"errors"
	"fmt"
	"playoff-migration/internal/constants"
	"playoff-migration/internal/domain"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

// Journal records runs and their steps.
type Journal interface {
	StartRun(ctx context.Context, info domain.RunInfo) (string, error)
	RecordStep(ctx context.Context, runID string, step domain.RunStep) error
	FinishRun(ctx context.Context, runID string, runErr error) error
}

// NopJournal discards everything; it only hands out run ids.
type NopJournal struct{}

func (NopJournal) StartRun(ctx context.Context, info domain.RunInfo) (string, error) {
	if info.ID != "" {
		return info.ID, nil
	}
	return gonanoid.New(constants.RunIDLength)
}

func (NopJournal) RecordStep(ctx context.Context, runID string, step domain.RunStep) error {
	return nil
}

func (NopJournal) FinishRun(ctx context.Context, runID string, runErr error) error {
	return nil
}

type PipelineParams struct {
	Source          Game
	Destination     Game
	SourceRole      string
	DestinationRole string
	// Scopes switches on the scoped variant: custom leaderboard scopes and
	// feed scopes recomputed from this table.
	Scopes  *domain.ScopeTable
	Journal Journal
	Logger  zerolog.Logger
}

// Pipeline copies entity kinds from a source game to a destination game by
// wiping the destination collection and recreating it from the source.
type Pipeline struct {
	source          Game
	destination     Game
	sourceRole      string
	destinationRole string
	reader          *Reader
	writer          *Writer
	projector       *Projector
	resolver        *ScopeResolver
	journal         Journal
	logger          zerolog.Logger
}

func NewPipeline(p PipelineParams) (*Pipeline, error) {
	if p.Source == nil || p.Destination == nil {
		return nil, fmt.Errorf("%w: pipeline needs a source and a destination game", domain.ErrInvalidArgument)
	}
	journal := p.Journal
	if journal == nil {
		journal = NopJournal{}
	}

	pl := &Pipeline{
		source:          p.Source,
		destination:     p.Destination,
		sourceRole:      p.SourceRole,
		destinationRole: p.DestinationRole,
		reader:          NewReader(p.Logger),
		writer:          NewWriter(p.Logger),
		projector:       NewProjector(p.Scopes != nil),
		journal:         journal,
		logger:          p.Logger,
	}
	if p.Scopes != nil {
		pl.resolver = NewScopeResolver(p.Scopes)
	}
	return pl, nil
}

func (p *Pipeline) variant() string {
	if p.resolver != nil {
		return "scoped"
	}
	return "plain"
}

// run carries the state of one Run call.
type run struct {
	id      string
	logger  zerolog.Logger
	reports map[domain.Kind]*domain.KindReport
}

// Run synchronizes kinds in the given order and stops at the first
// unrecovered failure. The returned report covers everything done so far.
func (p *Pipeline) Run(ctx context.Context, kinds []domain.Kind) (map[domain.Kind]*domain.KindReport, error) {
	info := domain.RunInfo{
		Variant:         p.variant(),
		SourceRole:      p.sourceRole,
		DestinationRole: p.destinationRole,
		Kinds:           kinds,
		StartedAt:       time.Now(),
	}
	if id, err := p.reader.GameID(ctx, p.source); err == nil {
		info.SourceGame = id
	} else {
		p.logger.Warn().Err(err).Msg("failed to read source game id")
	}
	if id, err := p.reader.GameID(ctx, p.destination); err == nil {
		info.DestinationGame = id
	} else {
		p.logger.Warn().Err(err).Msg("failed to read destination game id")
	}

	runID, err := p.journal.StartRun(ctx, info)
	if err != nil {
		return nil, fmt.Errorf("failed to start run: %w", err)
	}

	r := &run{
		id: runID,
		logger: p.logger.With().
			Str("run_id", runID).
			Str("source", p.sourceRole).
			Str("destination", p.destinationRole).
			Str("variant", info.Variant).
			Logger(),
		reports: make(map[domain.Kind]*domain.KindReport, len(kinds)),
	}

	r.logger.Info().
		Str("source_game", info.SourceGame).
		Str("destination_game", info.DestinationGame).
		Int("kinds", len(kinds)).
		Msg("migration started")

	runErr := p.runKinds(ctx, r, kinds)

	// the journal must record the outcome even when ctx was cancelled
	finishCtx, cancel := context.WithTimeout(context.Background(), constants.DatabaseTimeout)
	defer cancel()
	if err := p.journal.FinishRun(finishCtx, runID, runErr); err != nil {
		r.logger.Warn().Err(err).Msg("failed to finish run in journal")
	}

	if runErr != nil {
		r.logger.Error().Err(runErr).Msg("migration failed")
		return r.reports, runErr
	}
	r.logger.Info().Msg("migration finished")
	return r.reports, nil
}

func (p *Pipeline) runKinds(ctx context.Context, r *run, kinds []domain.Kind) error {
	for _, kind := range kinds {
		r.reports[kind] = &domain.KindReport{}
		start := time.Now()

		r.logger.Info().Str("kind", string(kind)).Msg("migrating kind")

		var err error
		switch kind {
		case domain.KindTeamMembership:
			err = p.forEachSourcePlayer(ctx, r, func(playerID string, profile *domain.PlayerProfile) error {
				return p.replayMemberships(ctx, r, kind, playerID, profile.Teams)
			})
		case domain.KindPlayerFeed:
			err = p.forEachSourcePlayer(ctx, r, func(playerID string, profile *domain.PlayerProfile) error {
				return p.replayFeed(ctx, r, kind, playerID, profile.Teams)
			})
		default:
			err = p.syncCollection(ctx, r, kind)
		}
		if err != nil {
			return fmt.Errorf("%s: %w", kind, err)
		}

		rep := r.reports[kind]
		r.logger.Info().
			Str("kind", string(kind)).
			Int("deleted", rep.Deleted).
			Int("created", rep.Created).
			Int("skipped", rep.Skipped).
			Int("joined", rep.Joined).
			Int("replayed", rep.Replayed).
			Dur("took", time.Since(start)).
			Msg("kind migrated")
	}
	return nil
}

func (p *Pipeline) syncCollection(ctx context.Context, r *run, kind domain.Kind) error {
	rep := r.reports[kind]

	ids, err := p.reader.ListIDs(ctx, p.source, kind)
	if err != nil {
		return err
	}

	rep.Deleted, err = p.writer.Wipe(ctx, p.reader, p.destination, kind, func(id string, err error) {
		p.record(r, kind, id, domain.OpDelete, err)
	})
	if err != nil {
		return err
	}

	for _, id := range ids {
		doc, err := p.reader.GetOne(ctx, p.source, kind, id)
		if err != nil {
			p.record(r, kind, id, domain.OpCreate, err)
			return err
		}

		projected, err := p.projector.Project(kind, doc)
		if errors.Is(err, domain.ErrMissingField) {
			r.logger.Warn().Err(err).Str("kind", string(kind)).Str("id", id).Msg("skipping inconsistent entity")
			p.skip(r, kind, id, domain.OpCreate, err)
			rep.Skipped++
			continue
		}
		if err != nil {
			p.record(r, kind, id, domain.OpCreate, err)
			return err
		}

		err = p.writer.Create(ctx, p.destination, kind, projected)
		p.record(r, kind, id, domain.OpCreate, err)
		if err != nil {
			return err
		}
		rep.Created++

		if kind == domain.KindPlayerInstance {
			profile, err := profileOf(doc)
			if err != nil {
				return err
			}
			if err := p.replayMemberships(ctx, r, kind, id, profile.Teams); err != nil {
				return err
			}
			if err := p.replayFeed(ctx, r, kind, id, profile.Teams); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *Pipeline) forEachSourcePlayer(ctx context.Context, r *run, fn func(playerID string, profile *domain.PlayerProfile) error) error {
	ids, err := p.reader.ListIDs(ctx, p.source, domain.KindPlayerInstance)
	if err != nil {
		return err
	}
	for _, id := range ids {
		doc, err := p.reader.GetOne(ctx, p.source, domain.KindPlayerInstance, id)
		if err != nil {
			return err
		}
		profile, err := profileOf(doc)
		if err != nil {
			return err
		}
		if err := fn(id, profile); err != nil {
			return err
		}
	}
	return nil
}

// replayMemberships joins the player to each of its source teams in the
// destination. Team ids survive migration, so source ids are used as is.
func (p *Pipeline) replayMemberships(ctx context.Context, r *run, kind domain.Kind, playerID string, teams []domain.PlayerTeam) error {
	rep := r.reports[kind]
	for _, team := range teams {
		m, err := Membership(playerID, team)
		if errors.Is(err, domain.ErrMissingField) {
			r.logger.Warn().Err(err).Str("player_id", playerID).Str("team_id", team.ID).Msg("skipping membership")
			p.skip(r, domain.KindTeamMembership, playerID+"@"+team.ID, domain.OpJoin, err)
			rep.Skipped++
			continue
		}
		if err != nil {
			return err
		}

		err = p.writer.JoinTeam(ctx, p.destination, team.ID, m)
		p.record(r, domain.KindTeamMembership, playerID+"@"+team.ID, domain.OpJoin, err)
		if err != nil {
			return err
		}
		rep.Joined++
	}
	return nil
}

// replayFeed plays every action entry of the source feed again in the
// destination, in retrieval order. Other events are ignored.
func (p *Pipeline) replayFeed(ctx context.Context, r *run, kind domain.Kind, playerID string, teams []domain.PlayerTeam) error {
	rep := r.reports[kind]

	feed, err := p.reader.GetPlayerFeed(ctx, p.source, playerID)
	if err != nil {
		return err
	}

	for _, entry := range feed {
		if !entry.IsAction() {
			continue
		}
		replay, err := Replay(entry)
		if errors.Is(err, domain.ErrMissingField) {
			p.skip(r, domain.KindPlayerFeed, playerID, domain.OpReplay, err)
			rep.Skipped++
			continue
		}
		if err != nil {
			return err
		}

		if p.resolver != nil {
			scopes, ok, err := p.resolver.Resolve(playerID, replay.ID, teams)
			if err != nil {
				return err
			}
			if ok {
				replay.Scopes = scopes
			}
		}

		err = p.writer.ReplayAction(ctx, p.destination, replay.ID, playerID, domain.ActionPayload{
			Variables: replay.Variables,
			Scopes:    replay.Scopes,
		})
		p.record(r, domain.KindPlayerFeed, playerID+"/"+replay.ID, domain.OpReplay, err)
		if err != nil {
			return err
		}
		rep.Replayed++
	}

	r.logger.Debug().Str("player_id", playerID).Int("feed", len(feed)).Msg("feed replayed")
	return nil
}

func (p *Pipeline) record(r *run, kind domain.Kind, id, op string, err error) {
	step := domain.RunStep{Kind: kind, EntityID: id, Operation: op, Status: domain.StepOK, At: time.Now()}
	if err != nil {
		step.Status = domain.StepFailed
		step.Error = err.Error()
	}
	p.writeStep(r, step)
}

func (p *Pipeline) skip(r *run, kind domain.Kind, id, op string, err error) {
	p.writeStep(r, domain.RunStep{
		Kind:      kind,
		EntityID:  id,
		Operation: op,
		Status:    domain.StepSkipped,
		Error:     err.Error(),
		At:        time.Now(),
	})
}

// writeStep journals on its own context so the step that failed because the
// run was cancelled is still recorded.
func (p *Pipeline) writeStep(r *run, step domain.RunStep) {
	ctx, cancel := context.WithTimeout(context.Background(), constants.DatabaseTimeout)
	defer cancel()
	if err := p.journal.RecordStep(ctx, r.id, step); err != nil {
		r.logger.Warn().Err(err).Str("kind", string(step.Kind)).Str("id", step.EntityID).Msg("failed to record step")
	}
}
