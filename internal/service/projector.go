package service

import (
	"fmt"
	"playoff-migration/internal/domain"
	"strconv"
)

// field copies one value from a source document. path walks nested
// objects; text coerces the value to a string.
type field struct {
	name string
	path []string
	text bool
}

func copyOf(name string) field { return field{name: name, path: []string{name}} }

var schemas = map[domain.Kind][]field{
	domain.KindTeamDesign: {
		copyOf("name"), copyOf("id"), copyOf("permissions"),
		copyOf("creator_roles"), copyOf("settings"), copyOf("_hues"),
	},
	domain.KindMetricDesign: {
		copyOf("id"), copyOf("name"), copyOf("type"), copyOf("constraints"),
	},
	domain.KindActionDesign: {
		copyOf("id"), copyOf("name"), copyOf("requires"), copyOf("rules"), copyOf("variables"),
	},
	domain.KindLeaderboardDesign: {
		copyOf("id"), copyOf("name"), copyOf("entity_type"), copyOf("scope"),
		copyOf("metric"), copyOf("cycles"),
	},
	domain.KindTeamInstance: {
		copyOf("id"), copyOf("name"), copyOf("access"),
		{name: "definition", path: []string{"definition", "id"}},
	},
	domain.KindPlayerInstance: {
		{name: "id", path: []string{"id"}, text: true},
		{name: "alias", path: []string{"alias"}, text: true},
	},
}

// Projector reduces vendor documents to creation payloads.
type Projector struct {
	// scoped rewrites leaderboard scopes to custom ones
	scoped bool
}

func NewProjector(scoped bool) *Projector {
	return &Projector{scoped: scoped}
}

// Project returns a new document holding exactly the schema fields of kind
// plus description when raw has one. raw is never modified.
func (p *Projector) Project(kind domain.Kind, raw domain.Document) (domain.Document, error) {
	if err := domain.Require(domain.Arg{Name: "document", Value: raw}); err != nil {
		return nil, err
	}

	switch kind {
	case domain.KindTeamMembership:
		return projectMembership(raw)
	case domain.KindPlayerFeed:
		return projectFeedEntry(raw)
	}

	fields, ok := schemas[kind]
	if !ok {
		return nil, fmt.Errorf("%w: unknown kind %q", domain.ErrInvalidArgument, kind)
	}

	out := make(domain.Document, len(fields)+1)
	for _, f := range fields {
		v, ok := lookup(raw, f.path)
		if !ok {
			return nil, fmt.Errorf("%w: %s has no %s", domain.ErrMissingField, kind, f.name)
		}
		if f.text {
			v = text(v)
		}
		out[f.name] = clone(v)
	}

	if desc, ok := raw["description"]; ok {
		out["description"] = clone(desc)
	}

	if p.scoped && kind == domain.KindLeaderboardDesign {
		out["scope"] = map[string]any{"type": "custom"}
	}

	return out, nil
}

// Membership builds the join request for one of a player's teams. Every
// granted role is requested.
func Membership(playerID string, team domain.PlayerTeam) (domain.Membership, error) {
	if err := domain.Require(
		domain.Arg{Name: "player_id", Value: playerID},
		domain.Arg{Name: "team_id", Value: team.ID},
	); err != nil {
		return domain.Membership{}, err
	}
	if len(team.Roles) == 0 {
		return domain.Membership{}, fmt.Errorf("%w: team %s of player %s has no roles", domain.ErrMissingField, team.ID, playerID)
	}

	roles := make(map[string]bool, len(team.Roles))
	for _, role := range team.Roles {
		roles[role] = true
	}
	return domain.Membership{RequestedRoles: roles, PlayerID: playerID}, nil
}

// Replay extracts the replayable part of an action feed entry.
func Replay(entry domain.FeedEntry) (domain.ReplayEntry, error) {
	if !entry.IsAction() {
		return domain.ReplayEntry{}, fmt.Errorf("%w: feed entry %q is not an action", domain.ErrInvalidArgument, entry.Event)
	}
	if entry.Action.ID == "" {
		return domain.ReplayEntry{}, fmt.Errorf("%w: action feed entry has no action id", domain.ErrMissingField)
	}

	vars := entry.Action.Vars
	if vars == nil {
		vars = map[string]any{}
	}
	scopes := entry.Scopes
	if scopes == nil {
		scopes = []domain.ScopeRef{}
	}
	return domain.ReplayEntry{ID: entry.Action.ID, Variables: vars, Scopes: scopes}, nil
}

// projectMembership expects a player's team entry carrying player_id.
func projectMembership(raw domain.Document) (domain.Document, error) {
	playerID, ok := lookup(raw, []string{"player_id"})
	if !ok {
		return nil, fmt.Errorf("%w: %s has no player_id", domain.ErrMissingField, domain.KindTeamMembership)
	}
	teamID, ok := lookup(raw, []string{"id"})
	if !ok {
		return nil, fmt.Errorf("%w: %s has no id", domain.ErrMissingField, domain.KindTeamMembership)
	}
	team := domain.PlayerTeam{ID: text(teamID)}
	if roles, ok := raw["roles"].([]any); ok {
		for _, r := range roles {
			team.Roles = append(team.Roles, text(r))
		}
	}

	m, err := Membership(text(playerID), team)
	if err != nil {
		return nil, err
	}
	requested := make(map[string]any, len(m.RequestedRoles))
	for role, v := range m.RequestedRoles {
		requested[role] = v
	}
	return domain.Document{"requested_roles": requested, "player_id": m.PlayerID}, nil
}

func projectFeedEntry(raw domain.Document) (domain.Document, error) {
	action, ok := raw["action"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no action", domain.ErrMissingField, domain.KindPlayerFeed)
	}
	id, ok := action["id"]
	if !ok {
		return nil, fmt.Errorf("%w: %s has no action.id", domain.ErrMissingField, domain.KindPlayerFeed)
	}
	vars, ok := action["vars"]
	if !ok || vars == nil {
		vars = map[string]any{}
	}
	scopes, ok := raw["scopes"]
	if !ok || scopes == nil {
		scopes = []any{}
	}
	return domain.Document{
		"id":        text(id),
		"variables": clone(vars),
		"scopes":    clone(scopes),
	}, nil
}

func lookup(doc map[string]any, path []string) (any, bool) {
	var cur any = doc
	for _, key := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			if d, isDoc := cur.(domain.Document); isDoc {
				m = d
			} else {
				return nil, false
			}
		}
		cur, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func text(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}

func clone(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = clone(val)
		}
		return out
	case domain.Document:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = clone(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = clone(val)
		}
		return out
	default:
		return v
	}
}
