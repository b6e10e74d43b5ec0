package constants

import "time"

const (
	PageSize = 100
)

const (
	ExternalAPITimeout = 10 * time.Second
	DatabaseTimeout    = 5 * time.Second
	RunTimeout         = 2 * time.Hour
)

const (
	DBMaxOpenConns    = 1
	DBMaxIdleConns    = 1
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
)

const (
	// refresh the access token this long before the vendor expiry
	TokenExpiryMargin = 30 * time.Second
	ShutdownTimeout   = 5 * time.Second
)

const (
	RunIDLength = 12
)

const (
	DesignPath       = "/design/versions/latest/"
	AdminRootPath    = "/admin/"
	AdminTeamsPath   = "/admin/teams"
	AdminPlayersPath = "/admin/players"
	RuntimeActions   = "/runtime/actions/"
	RuntimeBoards    = "/runtime/leaderboards/"
)
