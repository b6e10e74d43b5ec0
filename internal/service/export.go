package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"playoff-migration/internal/domain"
	"sort"

	"github.com/rs/zerolog"
)

var exportFiles = map[domain.Kind]string{
	domain.KindTeamDesign:        "teams_design.json",
	domain.KindMetricDesign:      "metrics_design.json",
	domain.KindActionDesign:      "actions_design.json",
	domain.KindLeaderboardDesign: "leaderboards_design.json",
	domain.KindTeamInstance:      "teams_instances.json",
	domain.KindPlayerInstance:    "players.json",
	domain.KindTeamMembership:    "players_in_team.json",
	domain.KindPlayerFeed:        "players_feed.json",
}

func ExportFile(kind domain.Kind) (string, bool) {
	name, ok := exportFiles[kind]
	return name, ok
}

// Exporter writes projected entities of a game to JSON files, one per kind.
type Exporter struct {
	reader    *Reader
	projector *Projector
	logger    zerolog.Logger
}

func NewExporter(logger zerolog.Logger) *Exporter {
	return &Exporter{reader: NewReader(logger), projector: NewProjector(false), logger: logger}
}

func (e *Exporter) Export(ctx context.Context, g Game, dir string, kinds []domain.Kind) (map[domain.Kind]int, error) {
	if err := domain.Require(domain.Arg{Name: "dir", Value: dir}); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create export dir: %w", err)
	}

	counts := make(map[domain.Kind]int, len(kinds))
	for _, kind := range kinds {
		name, ok := exportFiles[kind]
		if !ok {
			return counts, fmt.Errorf("%w: kind %q can't be exported", domain.ErrInvalidArgument, kind)
		}

		var (
			content any
			n       int
			err     error
		)
		switch kind {
		case domain.KindTeamMembership:
			content, n, err = e.memberships(ctx, g)
		case domain.KindPlayerFeed:
			content, n, err = e.feeds(ctx, g)
		default:
			content, n, err = e.documents(ctx, g, kind)
		}
		if err != nil {
			return counts, fmt.Errorf("failed to export %s: %w", kind, err)
		}

		path := filepath.Join(dir, name)
		if err := writeJSON(path, content); err != nil {
			return counts, err
		}
		counts[kind] = n

		e.logger.Info().Str("kind", string(kind)).Str("file", path).Int("count", n).Msg("kind exported")
	}
	return counts, nil
}

func (e *Exporter) documents(ctx context.Context, g Game, kind domain.Kind) (map[string]domain.Document, int, error) {
	ids, err := e.reader.ListIDs(ctx, g, kind)
	if err != nil {
		return nil, 0, err
	}
	out := make(map[string]domain.Document, len(ids))
	for _, id := range ids {
		doc, err := e.reader.GetOne(ctx, g, kind, id)
		if err != nil {
			return nil, 0, err
		}
		projected, err := e.projector.Project(kind, doc)
		if errors.Is(err, domain.ErrMissingField) {
			e.logger.Warn().Err(err).Str("kind", string(kind)).Str("id", id).Msg("skipping inconsistent entity")
			continue
		}
		if err != nil {
			return nil, 0, err
		}
		out[id] = projected
	}
	return out, len(out), nil
}

func (e *Exporter) memberships(ctx context.Context, g Game) (map[string][]domain.Membership, int, error) {
	ids, err := e.reader.ListIDs(ctx, g, domain.KindPlayerInstance)
	if err != nil {
		return nil, 0, err
	}
	out := make(map[string][]domain.Membership)
	n := 0
	for _, id := range ids {
		doc, err := e.reader.GetOne(ctx, g, domain.KindPlayerInstance, id)
		if err != nil {
			return nil, 0, err
		}
		profile, err := profileOf(doc)
		if err != nil {
			return nil, 0, err
		}
		for _, team := range profile.Teams {
			m, err := Membership(id, team)
			if err != nil {
				e.logger.Warn().Err(err).Str("player_id", id).Str("team_id", team.ID).Msg("skipping membership")
				continue
			}
			out[team.ID] = append(out[team.ID], m)
			n++
		}
	}
	return out, n, nil
}

func (e *Exporter) feeds(ctx context.Context, g Game) (map[string][]domain.ReplayEntry, int, error) {
	ids, err := e.reader.ListIDs(ctx, g, domain.KindPlayerInstance)
	if err != nil {
		return nil, 0, err
	}
	out := make(map[string][]domain.ReplayEntry)
	n := 0
	for _, id := range ids {
		feed, err := e.reader.GetPlayerFeed(ctx, g, id)
		if err != nil {
			return nil, 0, err
		}
		for _, entry := range feed {
			if !entry.IsAction() {
				continue
			}
			replay, err := Replay(entry)
			if err != nil {
				e.logger.Warn().Err(err).Str("player_id", id).Msg("skipping feed entry")
				continue
			}
			out[id] = append(out[id], replay)
			n++
		}
	}
	return out, n, nil
}

// Importer recreates entities in a game from files written by Exporter.
type Importer struct {
	reader *Reader
	writer *Writer
	logger zerolog.Logger
}

func NewImporter(logger zerolog.Logger) *Importer {
	return &Importer{reader: NewReader(logger), writer: NewWriter(logger), logger: logger}
}

// Import wipes each document kind in g before recreating it from dir.
// Memberships and feeds are replayed on top of what is there.
func (im *Importer) Import(ctx context.Context, g Game, dir string, kinds []domain.Kind) (map[domain.Kind]*domain.KindReport, error) {
	reports := make(map[domain.Kind]*domain.KindReport, len(kinds))
	for _, kind := range kinds {
		name, ok := exportFiles[kind]
		if !ok {
			return reports, fmt.Errorf("%w: kind %q can't be imported", domain.ErrInvalidArgument, kind)
		}
		path := filepath.Join(dir, name)
		rep := &domain.KindReport{}
		reports[kind] = rep

		var err error
		switch kind {
		case domain.KindTeamMembership:
			err = im.memberships(ctx, g, path, rep)
		case domain.KindPlayerFeed:
			err = im.feeds(ctx, g, path, rep)
		default:
			err = im.documents(ctx, g, kind, path, rep)
		}
		if err != nil {
			return reports, fmt.Errorf("failed to import %s: %w", kind, err)
		}

		im.logger.Info().Str("kind", string(kind)).Str("file", path).Msg("kind imported")
	}
	return reports, nil
}

func (im *Importer) documents(ctx context.Context, g Game, kind domain.Kind, path string, rep *domain.KindReport) error {
	var docs map[string]domain.Document
	if err := readJSON(path, &docs); err != nil {
		return err
	}

	deleted, err := im.writer.Wipe(ctx, im.reader, g, kind, nil)
	rep.Deleted = deleted
	if err != nil {
		return err
	}

	for _, id := range sortedKeys(docs) {
		if err := im.writer.Create(ctx, g, kind, docs[id]); err != nil {
			return err
		}
		rep.Created++
	}
	return nil
}

func (im *Importer) memberships(ctx context.Context, g Game, path string, rep *domain.KindReport) error {
	var byTeam map[string][]domain.Membership
	if err := readJSON(path, &byTeam); err != nil {
		return err
	}
	for _, teamID := range sortedKeys(byTeam) {
		for _, m := range byTeam[teamID] {
			if err := im.writer.JoinTeam(ctx, g, teamID, m); err != nil {
				return err
			}
			rep.Joined++
		}
	}
	return nil
}

func (im *Importer) feeds(ctx context.Context, g Game, path string, rep *domain.KindReport) error {
	var byPlayer map[string][]domain.ReplayEntry
	if err := readJSON(path, &byPlayer); err != nil {
		return err
	}
	for _, playerID := range sortedKeys(byPlayer) {
		for _, entry := range byPlayer[playerID] {
			payload := domain.ActionPayload{Variables: entry.Variables, Scopes: entry.Scopes}
			if err := im.writer.ReplayAction(ctx, g, entry.ID, playerID, payload); err != nil {
				return err
			}
			rep.Replayed++
		}
	}
	return nil
}

// writeJSON writes v indented by four spaces with object keys sorted.
func writeJSON(path string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	// decoding into any turns structs into maps, which encode sorted
	var generic any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&generic); err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	out, err := json.MarshalIndent(generic, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, append(out, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func readJSON(path string, v any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
