package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

const (
	RoleOriginal = "original"
	RoleCloned   = "cloned"
	RoleScoped   = "scoped"

	defaultHostname = "playoff.cc"
)

// GameCredentials holds everything needed to open one Playoff game handle.
type GameCredentials struct {
	Role         string
	ClientID     string
	ClientSecret string
	Hostname     string
	Insecure     bool
	APIURL       string
	TokenURL     string
}

type Config struct {
	Games          map[string]GameCredentials
	DBPath         string
	LogLevel       string
	ExportDir      string
	ScopeTablePath string
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	cfg := &Config{
		Games:          make(map[string]GameCredentials),
		DBPath:         getEnv("DB_PATH", "playoff-migration.db"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		ExportDir:      getEnv("EXPORT_DIR", "playoff-data"),
		ScopeTablePath: getEnv("SCOPE_TABLE_PATH", ""),
	}

	roles := strings.Split(getEnv("PLAYOFF_ROLES", strings.Join([]string{RoleOriginal, RoleCloned, RoleScoped}, ",")), ",")
	for _, role := range roles {
		role = strings.ToLower(strings.TrimSpace(role))
		if role == "" {
			continue
		}
		creds, ok := loadGame(role)
		if !ok {
			logger.Debug().Str("role", role).Msg("no credentials for game role, skipping")
			continue
		}
		cfg.Games[role] = creds
	}

	// a command naming an unconfigured role fails in the registry
	if len(cfg.Games) == 0 {
		logger.Warn().Msg("no game credentials configured: set <ROLE>_CLIENT_ID and <ROLE>_CLIENT_SECRET")
	}

	logger.Info().
		Strs("roles", cfg.Roles()).
		Str("db_path", cfg.DBPath).
		Str("log_level", cfg.LogLevel).
		Str("export_dir", cfg.ExportDir).
		Msg("configuration loaded")

	return cfg, nil
}

// Roles returns the configured game roles in sorted order.
func (c *Config) Roles() []string {
	roles := make([]string, 0, len(c.Games))
	for role := range c.Games {
		roles = append(roles, role)
	}
	sort.Strings(roles)
	return roles
}

func loadGame(role string) (GameCredentials, bool) {
	prefix := strings.ToUpper(role) + "_"

	creds := GameCredentials{
		Role:         role,
		ClientID:     getEnv(prefix+"CLIENT_ID", ""),
		ClientSecret: getEnv(prefix+"CLIENT_SECRET", ""),
		Hostname:     getEnv(prefix+"HOSTNAME", defaultHostname),
		Insecure:     strings.EqualFold(getEnv(prefix+"INSECURE", "false"), "true"),
	}
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return GameCredentials{}, false
	}

	scheme := "https"
	if creds.Insecure {
		scheme = "http"
	}
	creds.APIURL = getEnv(prefix+"API_URL", fmt.Sprintf("%s://api.%s/v2", scheme, creds.Hostname))
	creds.TokenURL = getEnv(prefix+"TOKEN_URL", fmt.Sprintf("%s://%s/auth/token", scheme, creds.Hostname))

	return creds, true
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
