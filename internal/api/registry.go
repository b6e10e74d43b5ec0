package api

import (
	"fmt"
	"playoff-migration/internal/config"
	"playoff-migration/internal/domain"
	"sort"

	"github.com/rs/zerolog"
)

// Registry maps a game role tag to its client. New roles are new entries.
type Registry struct {
	games map[string]*PlayoffClient
}

func NewRegistry(cfg *config.Config, logger zerolog.Logger) *Registry {
	r := &Registry{games: make(map[string]*PlayoffClient, len(cfg.Games))}
	for role, creds := range cfg.Games {
		r.games[role] = NewPlayoffClient(creds, logger)
	}
	return r
}

func (r *Registry) Game(role string) (*PlayoffClient, error) {
	client, ok := r.games[role]
	if !ok {
		return nil, fmt.Errorf("%w: no credentials for game role %q (configured: %v)", domain.ErrInvalidArgument, role, r.Roles())
	}
	return client, nil
}

func (r *Registry) Roles() []string {
	roles := make([]string, 0, len(r.games))
	for role := range r.games {
		roles = append(roles, role)
	}
	sort.Strings(roles)
	return roles
}
