package service

import (
	"context"
	"errors"
	"fmt"
	"playoff-migration/internal/constants"
	"playoff-migration/internal/domain"
	"testing"

	"github.com/rs/zerolog"
)

func TestListIDsPaginates(t *testing.T) {
	g := newFakeGame("source")
	for i := 0; i < 250; i++ {
		g.add(t, domain.KindPlayerInstance, domain.Document{"id": fmt.Sprintf("p%03d", i), "alias": "x"})
	}

	ids, err := NewReader(zerolog.Nop()).ListIDs(context.Background(), g, domain.KindPlayerInstance)
	if err != nil {
		t.Fatalf("ListIDs returned error: %v", err)
	}

	if len(ids) != 250 {
		t.Fatalf("expected 250 ids, got %d", len(ids))
	}
	for i, id := range ids {
		if want := fmt.Sprintf("p%03d", i); id != want {
			t.Fatalf("id %d = %s, want %s", i, id, want)
		}
	}

	var skips []string
	for _, c := range g.callsTo("GET", constants.AdminPlayersPath) {
		if c.query.Get("skip") == "" {
			continue
		}
		if c.query.Get("limit") != "100" {
			t.Errorf("expected limit=100, got %q", c.query.Get("limit"))
		}
		skips = append(skips, c.query.Get("skip"))
	}
	if fmt.Sprint(skips) != "[0 100 200]" {
		t.Fatalf("expected page requests at skip 0,100,200, got %v", skips)
	}
}

func TestListIDsEmptyCollection(t *testing.T) {
	g := newFakeGame("source")

	ids, err := NewReader(zerolog.Nop()).ListIDs(context.Background(), g, domain.KindTeamInstance)
	if err != nil {
		t.Fatalf("ListIDs returned error: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("expected no ids, got %v", ids)
	}
	if n := len(g.callsTo("GET", constants.AdminTeamsPath)); n != 1 {
		t.Fatalf("expected only the count request, got %d", n)
	}
}

func TestListIDsDesignIsOneRequest(t *testing.T) {
	g := newFakeGame("source")
	g.add(t, domain.KindMetricDesign,
		domain.Document{"id": "punti"},
		domain.Document{"id": "creativita"},
	)

	ids, err := NewReader(zerolog.Nop()).ListIDs(context.Background(), g, domain.KindMetricDesign)
	if err != nil {
		t.Fatalf("ListIDs returned error: %v", err)
	}
	if fmt.Sprint(ids) != "[punti creativita]" {
		t.Fatalf("unexpected ids %v", ids)
	}
	if len(g.calls) != 1 {
		t.Fatalf("expected one request, got %d", len(g.calls))
	}
}

func TestListIDsPropagatesFailure(t *testing.T) {
	g := newFakeGame("source")
	g.failures["GET "+constants.AdminTeamsPath] = fmt.Errorf("boom: %w", domain.ErrUnavailable)

	_, err := NewReader(zerolog.Nop()).ListIDs(context.Background(), g, domain.KindTeamInstance)
	if !errors.Is(err, domain.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestGetOne(t *testing.T) {
	g := newFakeGame("source")
	g.add(t, domain.KindActionDesign, domain.Document{"id": "sfida_focus", "name": "Focus"})
	r := NewReader(zerolog.Nop())

	doc, err := r.GetOne(context.Background(), g, domain.KindActionDesign, "sfida_focus")
	if err != nil {
		t.Fatalf("GetOne returned error: %v", err)
	}
	if doc["name"] != "Focus" {
		t.Fatalf("unexpected document %#v", doc)
	}

	if _, err := r.GetOne(context.Background(), g, domain.KindActionDesign, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := r.GetOne(context.Background(), g, domain.KindActionDesign, ""); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestGetPlayerFeed(t *testing.T) {
	g := newFakeGame("source")
	g.setFeed(t, "p1", []domain.Document{
		{"event": "action", "action": map[string]any{"id": "sfida_focus", "vars": map[string]any{}}, "scopes": []any{}},
		{"event": "level", "changes": []any{}},
	})
	r := NewReader(zerolog.Nop())

	feed, err := r.GetPlayerFeed(context.Background(), g, "p1")
	if err != nil {
		t.Fatalf("GetPlayerFeed returned error: %v", err)
	}
	if len(feed) != 2 || !feed[0].IsAction() || feed[1].IsAction() {
		t.Fatalf("unexpected feed %#v", feed)
	}
	if c := g.callsTo("GET", playerPath("p1", "/activity")); len(c) != 1 || c[0].query.Get("start") != "0" {
		t.Fatalf("expected one feed request starting at 0, got %#v", c)
	}

	// the fake answers null for players without activity
	empty, err := r.GetPlayerFeed(context.Background(), g, "p2")
	if err != nil {
		t.Fatalf("GetPlayerFeed returned error: %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Fatalf("expected an empty non-nil feed, got %#v", empty)
	}
}

func TestGameIDAndMembers(t *testing.T) {
	g := newFakeGame("my-game")
	g.joins = append(g.joins, joinCall{teamID: "globale"}, joinCall{teamID: "globale"}, joinCall{teamID: "other"})
	r := NewReader(zerolog.Nop())

	id, err := r.GameID(context.Background(), g)
	if err != nil || id != "my-game" {
		t.Fatalf("GameID = %q, %v", id, err)
	}

	n, err := r.TeamMemberCount(context.Background(), g, "globale")
	if err != nil || n != 2 {
		t.Fatalf("TeamMemberCount = %d, %v", n, err)
	}
}

func TestGetLeaderboardQuery(t *testing.T) {
	g := newFakeGame("source")
	path := constants.RuntimeBoards + "globale_punti"
	g.responses[path] = `{"data":[{"player":{"id":"p1"},"score":"12"}]}`

	board, err := NewReader(zerolog.Nop()).GetLeaderboard(context.Background(), g, "globale_punti", domain.LeaderboardOptions{
		PlayerID: "p1",
		Limit:    10,
		ScopeID:  "globale",
	})
	if err != nil {
		t.Fatalf("GetLeaderboard returned error: %v", err)
	}
	if _, ok := board["data"]; !ok {
		t.Fatalf("expected board data, got %#v", board)
	}

	calls := g.callsTo("GET", path)
	if len(calls) != 1 {
		t.Fatalf("expected one leaderboard request, got %d", len(calls))
	}
	q := calls[0].query
	if q.Get("cycle") != "alltime" || q.Get("player_id") != "p1" || q.Get("limit") != "10" || q.Get("scope_id") != "globale" {
		t.Fatalf("unexpected query %v", q)
	}
	if q.Has("team_instance_id") {
		t.Fatalf("team_instance_id must be omitted when empty: %v", q)
	}
}
