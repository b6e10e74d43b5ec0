package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"playoff-migration/internal/api"
	"playoff-migration/internal/constants"
	"playoff-migration/internal/domain"
	"strconv"

	"github.com/rs/zerolog"
)

type Reader struct {
	logger zerolog.Logger
}

func NewReader(logger zerolog.Logger) *Reader {
	return &Reader{logger: logger}
}

type listPage struct {
	Total int `json:"total"`
	Data  []struct {
		ID string `json:"id"`
	} `json:"data"`
}

// ListIDs returns every id of kind in game, in listing order.
func (r *Reader) ListIDs(ctx context.Context, g Game, kind domain.Kind) ([]string, error) {
	paths, err := pathsFor(kind)
	if err != nil {
		return nil, err
	}

	if !paths.paginated {
		docs, err := api.Fetch[[]domain.Document](ctx, g, paths.collection, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", kind, err)
		}
		if docs == nil {
			return []string{}, nil
		}
		ids := make([]string, 0, len(*docs))
		for _, doc := range *docs {
			id, ok := doc["id"].(string)
			if !ok {
				return nil, fmt.Errorf("%w: %s listing entry without id", domain.ErrMissingField, kind)
			}
			ids = append(ids, id)
		}
		return ids, nil
	}

	head, err := api.Fetch[listPage](ctx, g, paths.collection, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to count %s: %w", kind, err)
	}
	total := 0
	if head != nil {
		total = head.Total
	}

	pages, err := PageCount(total)
	if err != nil {
		return nil, err
	}

	r.logger.Debug().Str("kind", string(kind)).Int("total", total).Int("pages", pages).Msg("listing collection")

	ids := make([]string, 0, total)
	for i := 0; i < pages; i++ {
		query := url.Values{}
		query.Set("skip", strconv.Itoa(i*constants.PageSize))
		query.Set("limit", strconv.Itoa(constants.PageSize))

		page, err := api.Fetch[listPage](ctx, g, paths.collection, query)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s page %d: %w", kind, i, err)
		}
		if page == nil {
			continue
		}
		for _, item := range page.Data {
			ids = append(ids, item.ID)
		}
	}
	return ids, nil
}

func (r *Reader) GetOne(ctx context.Context, g Game, kind domain.Kind, id string) (domain.Document, error) {
	if err := domain.Require(domain.Arg{Name: "id", Value: id}); err != nil {
		return nil, err
	}
	path, err := itemPath(kind, id)
	if err != nil {
		return nil, err
	}

	doc, err := api.Fetch[domain.Document](ctx, g, path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s %s: %w", kind, id, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: %s %s", domain.ErrNotFound, kind, id)
	}
	return *doc, nil
}

// GetPlayerFeed returns the player's activity. A null feed is empty.
func (r *Reader) GetPlayerFeed(ctx context.Context, g Game, playerID string) ([]domain.FeedEntry, error) {
	if err := domain.Require(domain.Arg{Name: "player_id", Value: playerID}); err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("start", "0")

	feed, err := api.Fetch[[]domain.FeedEntry](ctx, g, playerPath(playerID, "/activity"), query)
	if err != nil {
		return nil, fmt.Errorf("failed to get feed of player %s: %w", playerID, err)
	}
	if feed == nil {
		return []domain.FeedEntry{}, nil
	}
	return *feed, nil
}

func (r *Reader) GameID(ctx context.Context, g Game) (string, error) {
	info, err := api.Fetch[struct {
		Game struct {
			ID string `json:"id"`
		} `json:"game"`
	}](ctx, g, constants.AdminRootPath, nil)
	if err != nil {
		return "", fmt.Errorf("failed to get game info: %w", err)
	}
	if info == nil {
		return "", nil
	}
	return info.Game.ID, nil
}

func (r *Reader) TeamMemberCount(ctx context.Context, g Game, teamID string) (int, error) {
	if err := domain.Require(domain.Arg{Name: "team_id", Value: teamID}); err != nil {
		return 0, err
	}
	page, err := api.Fetch[listPage](ctx, g, teamPath(teamID, "/members"), nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count members of team %s: %w", teamID, err)
	}
	if page == nil {
		return 0, nil
	}
	return page.Total, nil
}

// GetLeaderboard reads the all-time standings of a runtime leaderboard.
func (r *Reader) GetLeaderboard(ctx context.Context, g Game, leaderboardID string, opts domain.LeaderboardOptions) (domain.Document, error) {
	if err := domain.Require(domain.Arg{Name: "leaderboard_id", Value: leaderboardID}); err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("cycle", "alltime")
	if opts.PlayerID != "" {
		query.Set("player_id", opts.PlayerID)
	}
	if opts.Limit > 0 {
		query.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.TeamInstanceID != "" {
		query.Set("team_instance_id", opts.TeamInstanceID)
	}
	if opts.ScopeID != "" {
		query.Set("scope_id", opts.ScopeID)
	}

	board, err := api.Fetch[domain.Document](ctx, g, constants.RuntimeBoards+url.PathEscape(leaderboardID), query)
	if err != nil {
		return nil, fmt.Errorf("failed to get leaderboard %s: %w", leaderboardID, err)
	}
	if board == nil {
		return domain.Document{}, nil
	}
	return *board, nil
}

// profileOf decodes the team list of a player document.
func profileOf(doc domain.Document) (*domain.PlayerProfile, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var profile domain.PlayerProfile
	if err := json.Unmarshal(raw, &profile); err != nil {
		return nil, fmt.Errorf("failed to decode player profile: %w", err)
	}
	return &profile, nil
}
