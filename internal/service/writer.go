package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"playoff-migration/internal/constants"
	"playoff-migration/internal/domain"

	"github.com/rs/zerolog"
)

type Writer struct {
	logger zerolog.Logger
}

func NewWriter(logger zerolog.Logger) *Writer {
	return &Writer{logger: logger}
}

func (w *Writer) Create(ctx context.Context, g Game, kind domain.Kind, doc domain.Document) error {
	if err := domain.Require(domain.Arg{Name: "document", Value: doc}); err != nil {
		return err
	}
	paths, err := pathsFor(kind)
	if err != nil {
		return err
	}
	if _, err := g.Post(ctx, paths.collection, nil, doc); err != nil {
		return fmt.Errorf("failed to create %s %v: %w", kind, doc["id"], err)
	}
	return nil
}

func (w *Writer) Destroy(ctx context.Context, g Game, kind domain.Kind, id string) error {
	if err := domain.Require(domain.Arg{Name: "id", Value: id}); err != nil {
		return err
	}
	path, err := itemPath(kind, id)
	if err != nil {
		return err
	}
	if _, err := g.Delete(ctx, path, nil); err != nil {
		return fmt.Errorf("failed to delete %s %s: %w", kind, id, err)
	}
	return nil
}

func (w *Writer) JoinTeam(ctx context.Context, g Game, teamID string, m domain.Membership) error {
	if err := domain.Require(
		domain.Arg{Name: "team_id", Value: teamID},
		domain.Arg{Name: "player_id", Value: m.PlayerID},
		domain.Arg{Name: "requested_roles", Value: m.RequestedRoles},
	); err != nil {
		return err
	}
	if _, err := g.Post(ctx, teamPath(teamID, "/join"), nil, m); err != nil {
		return fmt.Errorf("failed to join player %s to team %s: %w", m.PlayerID, teamID, err)
	}
	return nil
}

func (w *Writer) ReplayAction(ctx context.Context, g Game, actionID, playerID string, payload domain.ActionPayload) error {
	if err := domain.Require(
		domain.Arg{Name: "action_id", Value: actionID},
		domain.Arg{Name: "player_id", Value: playerID},
	); err != nil {
		return err
	}
	if payload.Variables == nil {
		payload.Variables = map[string]any{}
	}
	if payload.Scopes == nil {
		payload.Scopes = []domain.ScopeRef{}
	}

	query := url.Values{}
	query.Set("player_id", playerID)

	path := constants.RuntimeActions + url.PathEscape(actionID) + "/play"
	if _, err := g.Post(ctx, path, query, payload); err != nil {
		return fmt.Errorf("failed to play action %s for player %s: %w", actionID, playerID, err)
	}
	return nil
}

// Wipe deletes every entity of kind in g. Entities already gone count as
// deleted, so wiping an empty or half-wiped collection succeeds.
func (w *Writer) Wipe(ctx context.Context, r *Reader, g Game, kind domain.Kind, onDeleted func(id string, err error)) (int, error) {
	ids, err := r.ListIDs(ctx, g, kind)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, id := range ids {
		err := w.Destroy(ctx, g, kind, id)
		if errors.Is(err, domain.ErrNotFound) {
			w.logger.Debug().Str("kind", string(kind)).Str("id", id).Msg("already deleted")
			err = nil
		}
		if onDeleted != nil {
			onDeleted(id, err)
		}
		if err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}
