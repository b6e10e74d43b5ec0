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
	"strings"
	"testing"
)

type fakeCall struct {
	method string
	path   string
	query  url.Values
	body   []byte
}

type fakeCollection struct {
	paginated bool
	order     []string
	docs      map[string]domain.Document
}

type joinCall struct {
	teamID     string
	membership domain.Membership
}

type playCall struct {
	actionID string
	playerID string
	payload  domain.ActionPayload
}

// fakeGame is an in-memory Playoff game speaking the REST paths the
// pipeline uses.
type fakeGame struct {
	id          string
	collections map[string]*fakeCollection
	feeds       map[string]json.RawMessage
	responses   map[string]string
	joins       []joinCall
	plays       []playCall
	calls       []fakeCall
	// failures and hooks keyed by "METHOD path"
	failures map[string]error
	hooks    map[string]func()
}

func newFakeGame(id string) *fakeGame {
	g := &fakeGame{
		id:          id,
		collections: make(map[string]*fakeCollection),
		feeds:       make(map[string]json.RawMessage),
		responses:   make(map[string]string),
		failures:    make(map[string]error),
		hooks:       make(map[string]func()),
	}
	for _, p := range collections {
		g.collections[p.collection] = &fakeCollection{paginated: p.paginated, docs: make(map[string]domain.Document)}
	}
	return g
}

func (g *fakeGame) add(t *testing.T, kind domain.Kind, docs ...domain.Document) {
	t.Helper()
	p, err := pathsFor(kind)
	if err != nil {
		t.Fatalf("no collection for %s: %v", kind, err)
	}
	c := g.collections[p.collection]
	for _, doc := range docs {
		id := text(doc["id"])
		if _, exists := c.docs[id]; !exists {
			c.order = append(c.order, id)
		}
		c.docs[id] = doc
	}
}

func (g *fakeGame) setFeed(t *testing.T, playerID string, entries []domain.Document) {
	t.Helper()
	raw, err := json.Marshal(entries)
	if err != nil {
		t.Fatalf("failed to encode feed: %v", err)
	}
	g.feeds[playerID] = raw
}

func (g *fakeGame) ids(kind domain.Kind) []string {
	p, _ := pathsFor(kind)
	return append([]string(nil), g.collections[p.collection].order...)
}

func (g *fakeGame) doc(kind domain.Kind, id string) domain.Document {
	p, _ := pathsFor(kind)
	return g.collections[p.collection].docs[id]
}

func (g *fakeGame) callsTo(method, path string) []fakeCall {
	var out []fakeCall
	for _, c := range g.calls {
		if c.method == method && c.path == path {
			out = append(out, c)
		}
	}
	return out
}

func (g *fakeGame) writes() int {
	n := 0
	for _, c := range g.calls {
		if c.method != "GET" {
			n++
		}
	}
	return n
}

func notFound(method, path string) error {
	return &api.Error{Method: method, Path: path, Status: 404, Code: "not_found", Message: "not found"}
}

func encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

// split returns the collection and item id of an item path.
func (g *fakeGame) split(path string) (*fakeCollection, string, bool) {
	for prefix, c := range g.collections {
		if strings.HasPrefix(path, prefix+"/") {
			id, err := url.PathUnescape(strings.TrimPrefix(path, prefix+"/"))
			if err != nil || strings.Contains(id, "/") {
				return nil, "", false
			}
			return c, id, true
		}
	}
	return nil, "", false
}

func (g *fakeGame) Get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	g.calls = append(g.calls, fakeCall{method: "GET", path: path, query: query})
	if err := g.fail("GET " + path); err != nil {
		return nil, err
	}

	if body, ok := g.responses[path]; ok {
		return []byte(body), nil
	}

	if path == constants.AdminRootPath {
		return encode(map[string]any{"game": map[string]any{"id": g.id}})
	}

	if strings.HasPrefix(path, constants.AdminPlayersPath+"/") && strings.HasSuffix(path, "/activity") {
		id := strings.TrimSuffix(strings.TrimPrefix(path, constants.AdminPlayersPath+"/"), "/activity")
		if feed, ok := g.feeds[id]; ok {
			return feed, nil
		}
		return []byte("null"), nil
	}

	if strings.HasPrefix(path, constants.AdminTeamsPath+"/") && strings.HasSuffix(path, "/members") {
		id := strings.TrimSuffix(strings.TrimPrefix(path, constants.AdminTeamsPath+"/"), "/members")
		n := 0
		for _, j := range g.joins {
			if j.teamID == id {
				n++
			}
		}
		return encode(map[string]any{"total": n, "data": []any{}})
	}

	if c, ok := g.collections[path]; ok {
		docs := make([]domain.Document, 0, len(c.order))
		for _, id := range c.order {
			docs = append(docs, c.docs[id])
		}
		if !c.paginated {
			return encode(docs)
		}
		if query.Get("skip") == "" {
			return encode(map[string]any{"total": len(docs), "data": []any{}})
		}
		skip, _ := strconv.Atoi(query.Get("skip"))
		limit, _ := strconv.Atoi(query.Get("limit"))
		end := skip + limit
		if skip > len(docs) {
			skip = len(docs)
		}
		if end > len(docs) {
			end = len(docs)
		}
		return encode(map[string]any{"total": len(docs), "data": docs[skip:end]})
	}

	if c, id, ok := g.split(path); ok {
		doc, exists := c.docs[id]
		if !exists {
			return nil, notFound("GET", path)
		}
		return encode(doc)
	}

	return nil, notFound("GET", path)
}

func (g *fakeGame) Post(ctx context.Context, path string, query url.Values, body any) ([]byte, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	g.calls = append(g.calls, fakeCall{method: "POST", path: path, query: query, body: raw})
	if err := g.fail("POST " + path); err != nil {
		return nil, err
	}

	if c, ok := g.collections[path]; ok {
		var doc domain.Document
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, err
		}
		id := text(doc["id"])
		if _, exists := c.docs[id]; exists {
			return nil, &api.Error{Method: "POST", Path: path, Status: 409, Code: "conflict", Message: "already exists"}
		}
		c.order = append(c.order, id)
		c.docs[id] = doc
		return raw, nil
	}

	if strings.HasPrefix(path, constants.AdminTeamsPath+"/") && strings.HasSuffix(path, "/join") {
		var m domain.Membership
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, err
		}
		teamID := strings.TrimSuffix(strings.TrimPrefix(path, constants.AdminTeamsPath+"/"), "/join")
		g.joins = append(g.joins, joinCall{teamID: teamID, membership: m})
		return []byte("{}"), nil
	}

	if strings.HasPrefix(path, constants.RuntimeActions) && strings.HasSuffix(path, "/play") {
		var payload domain.ActionPayload
		if err := json.Unmarshal(raw, &payload); err != nil {
			return nil, err
		}
		actionID := strings.TrimSuffix(strings.TrimPrefix(path, constants.RuntimeActions), "/play")
		g.plays = append(g.plays, playCall{actionID: actionID, playerID: query.Get("player_id"), payload: payload})
		return []byte("{}"), nil
	}

	return nil, fmt.Errorf("fake game: unexpected POST %s", path)
}

func (g *fakeGame) Delete(ctx context.Context, path string, query url.Values) ([]byte, error) {
	g.calls = append(g.calls, fakeCall{method: "DELETE", path: path, query: query})
	if err := g.fail("DELETE " + path); err != nil {
		return nil, err
	}

	c, id, ok := g.split(path)
	if !ok {
		return nil, notFound("DELETE", path)
	}
	if _, exists := c.docs[id]; !exists {
		return nil, notFound("DELETE", path)
	}
	delete(c.docs, id)
	for i, existing := range c.order {
		if existing == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return []byte("{}"), nil
}

func (g *fakeGame) fail(key string) error {
	if hook := g.hooks[key]; hook != nil {
		hook()
	}
	return g.failures[key]
}

// memJournal refuses writes on a finished context, like the SQLite journal.
type memJournal struct {
	runs     []domain.RunInfo
	steps    []domain.RunStep
	finished []error
}

func (j *memJournal) StartRun(ctx context.Context, info domain.RunInfo) (string, error) {
	info.ID = fmt.Sprintf("run-%d", len(j.runs)+1)
	j.runs = append(j.runs, info)
	return info.ID, nil
}

func (j *memJournal) RecordStep(ctx context.Context, runID string, step domain.RunStep) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	j.steps = append(j.steps, step)
	return nil
}

func (j *memJournal) FinishRun(ctx context.Context, runID string, runErr error) error {
	j.finished = append(j.finished, runErr)
	return nil
}

func (j *memJournal) stepsWith(status string) []domain.RunStep {
	var out []domain.RunStep
	for _, s := range j.steps {
		if s.Status == status {
			out = append(out, s)
		}
	}
	return out
}
