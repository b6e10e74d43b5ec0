package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"playoff-migration/internal/domain"

	"github.com/rs/zerolog"
)

//go:embed data/scopes.json
var defaultScopeTable []byte

// LoadScopeTable reads the scope table from cfg.ScopeTablePath, or the
// embedded default when no path is set.
func LoadScopeTable(cfg *Config, logger zerolog.Logger) (*domain.ScopeTable, error) {
	raw := defaultScopeTable
	source := "embedded"

	if cfg.ScopeTablePath != "" {
		data, err := os.ReadFile(cfg.ScopeTablePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read scope table: %w", err)
		}
		raw = data
		source = cfg.ScopeTablePath
	}

	table, err := ParseScopeTable(raw)
	if err != nil {
		return nil, err
	}

	logger.Debug().
		Str("source", source).
		Int("actions", len(table.ActionLeaderboards)).
		Msg("scope table loaded")

	return table, nil
}

func ParseScopeTable(raw []byte) (*domain.ScopeTable, error) {
	var table domain.ScopeTable
	if err := json.Unmarshal(raw, &table); err != nil {
		return nil, fmt.Errorf("failed to parse scope table: %w", err)
	}
	if table.GlobalTeam == "" && len(table.CrossTeams) == 0 {
		return nil, fmt.Errorf("scope table names no team")
	}
	return &table, nil
}
