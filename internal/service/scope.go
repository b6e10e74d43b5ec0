package service

import (
	"fmt"
	"playoff-migration/internal/domain"
)

// ScopeResolver computes the leaderboard scopes a replayed action must
// target from the player's teams.
type ScopeResolver struct {
	table *domain.ScopeTable
}

func NewScopeResolver(table *domain.ScopeTable) *ScopeResolver {
	return &ScopeResolver{table: table}
}

// Resolve returns the scopes for actionID played by playerID. ok is false
// when none of the player's teams is in the table; callers then keep the
// scopes recorded on the source feed entry. The first recognised team in
// list order decides.
func (r *ScopeResolver) Resolve(playerID, actionID string, teams []domain.PlayerTeam) (scopes []domain.ScopeRef, ok bool, err error) {
	if err := domain.Require(
		domain.Arg{Name: "player_id", Value: playerID},
		domain.Arg{Name: "action_id", Value: actionID},
	); err != nil {
		return nil, false, err
	}

	for _, team := range teams {
		if r.table.GlobalTeam != "" && team.ID == r.table.GlobalTeam {
			scopes, err := r.globalScopes(playerID, actionID)
			if err != nil {
				return nil, false, err
			}
			return scopes, true, nil
		}
		if r.isCrossTeam(team.ID) {
			return refs(playerID, r.table.CrossTeamScopes), true, nil
		}
	}
	return nil, false, nil
}

func (r *ScopeResolver) globalScopes(playerID, actionID string) ([]domain.ScopeRef, error) {
	board, ok := r.table.ActionLeaderboards[actionID]
	if !ok {
		return nil, fmt.Errorf("%w: no leaderboard for action %q", domain.ErrUnknownAction, actionID)
	}
	return append(refs(playerID, r.table.GlobalScopes), domain.ScopeRef{ID: board, EntityID: playerID}), nil
}

func (r *ScopeResolver) isCrossTeam(teamID string) bool {
	for _, id := range r.table.CrossTeams {
		if id == teamID {
			return true
		}
	}
	return false
}

func refs(entityID string, ids []string) []domain.ScopeRef {
	out := make([]domain.ScopeRef, 0, len(ids)+1)
	for _, id := range ids {
		out = append(out, domain.ScopeRef{ID: id, EntityID: entityID})
	}
	return out
}
