package service

import (
	"context"
	"fmt"
	"net/url"
	"playoff-migration/internal/api"
	"playoff-migration/internal/constants"
	"playoff-migration/internal/domain"
)

// Game is one authenticated Playoff game handle.
type Game interface {
	api.Getter
	Post(ctx context.Context, path string, query url.Values, body any) ([]byte, error)
	Delete(ctx context.Context, path string, query url.Values) ([]byte, error)
}

type kindPaths struct {
	collection string
	// admin collections answer {total, data} and page; design ones answer
	// a plain array
	paginated bool
}

var collections = map[domain.Kind]kindPaths{
	domain.KindTeamDesign:        {collection: constants.DesignPath + "teams"},
	domain.KindMetricDesign:      {collection: constants.DesignPath + "metrics"},
	domain.KindActionDesign:      {collection: constants.DesignPath + "actions"},
	domain.KindLeaderboardDesign: {collection: constants.DesignPath + "leaderboards"},
	domain.KindTeamInstance:      {collection: constants.AdminTeamsPath, paginated: true},
	domain.KindPlayerInstance:    {collection: constants.AdminPlayersPath, paginated: true},
}

func pathsFor(kind domain.Kind) (kindPaths, error) {
	p, ok := collections[kind]
	if !ok {
		return kindPaths{}, fmt.Errorf("%w: kind %q has no collection", domain.ErrInvalidArgument, kind)
	}
	return p, nil
}

func itemPath(kind domain.Kind, id string) (string, error) {
	p, err := pathsFor(kind)
	if err != nil {
		return "", err
	}
	return p.collection + "/" + url.PathEscape(id), nil
}

func teamPath(teamID, sub string) string {
	return constants.AdminTeamsPath + "/" + url.PathEscape(teamID) + sub
}

func playerPath(playerID, sub string) string {
	return constants.AdminPlayersPath + "/" + url.PathEscape(playerID) + sub
}
