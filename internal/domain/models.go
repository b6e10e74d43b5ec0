package domain

// Kind names one family of Playoff entities that can be synchronized.
type Kind string

const (
	KindTeamDesign        Kind = "team-design"
	KindMetricDesign      Kind = "metric-design"
	KindActionDesign      Kind = "action-design"
	KindLeaderboardDesign Kind = "leaderboard-design"
	KindTeamInstance      Kind = "team-instance"
	KindPlayerInstance    Kind = "player-instance"
	KindTeamMembership    Kind = "team-membership"
	KindPlayerFeed        Kind = "player-feed-entry"
)

// DesignKinds is the order used when migrating design: actions and
// leaderboards reference metrics, so metrics go first.
var DesignKinds = []Kind{
	KindTeamDesign,
	KindMetricDesign,
	KindActionDesign,
	KindLeaderboardDesign,
}

// DataKinds is the order used when migrating instances. Player instances
// replay memberships and feeds themselves.
var DataKinds = []Kind{
	KindTeamInstance,
	KindPlayerInstance,
}

var AllKinds = []Kind{
	KindTeamDesign,
	KindMetricDesign,
	KindActionDesign,
	KindLeaderboardDesign,
	KindTeamInstance,
	KindPlayerInstance,
	KindTeamMembership,
	KindPlayerFeed,
}

func ParseKind(s string) (Kind, bool) {
	for _, k := range AllKinds {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

// Document is an entity as the vendor returns it.
type Document map[string]any

type PlayerTeam struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Roles []string `json:"roles"`
}

// PlayerProfile is the part of a player document that drives membership
// replay. Alias stays in the raw document since the vendor does not always
// send it as a string.
type PlayerProfile struct {
	ID    string       `json:"id"`
	Teams []PlayerTeam `json:"teams"`
}

type ScopeRef struct {
	ID       string `json:"id"`
	EntityID string `json:"entity_id"`
}

type FeedAction struct {
	ID   string         `json:"id"`
	Vars map[string]any `json:"vars"`
}

type FeedEntry struct {
	ID        string      `json:"id,omitempty"`
	Event     string      `json:"event"`
	Timestamp any         `json:"timestamp,omitempty"`
	Action    *FeedAction `json:"action,omitempty"`
	Scopes    []ScopeRef  `json:"scopes"`
}

// IsAction reports whether the entry records a replayable action.
func (e FeedEntry) IsAction() bool {
	return e.Event == "action" && e.Action != nil
}

type Membership struct {
	RequestedRoles map[string]bool `json:"requested_roles"`
	PlayerID       string          `json:"player_id"`
}

type ActionPayload struct {
	Variables map[string]any `json:"variables"`
	Scopes    []ScopeRef     `json:"scopes"`
}

// ReplayEntry is the exported shape of one replayable feed entry.
type ReplayEntry struct {
	ID        string         `json:"id"`
	Variables map[string]any `json:"variables"`
	Scopes    []ScopeRef     `json:"scopes"`
}

// ScopeTable is the deployment-specific content used by the scoped
// variant of feed replay.
type ScopeTable struct {
	GlobalTeam         string            `json:"global_team"`
	GlobalScopes       []string          `json:"global_scopes"`
	CrossTeams         []string          `json:"cross_teams"`
	CrossTeamScopes    []string          `json:"cross_team_scopes"`
	ActionLeaderboards map[string]string `json:"action_leaderboards"`
}

type LeaderboardOptions struct {
	PlayerID       string
	Limit          int
	TeamInstanceID string
	ScopeID        string
}
