package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"playoff-migration/internal/config"
	"playoff-migration/internal/constants"
	"playoff-migration/internal/domain"
	"playoff-migration/internal/middleware"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
)

// PlayoffClient is an authenticated handle on one Playoff game.
type PlayoffClient struct {
	role         string
	apiURL       string
	tokenURL     string
	clientID     string
	clientSecret string
	client       *fasthttp.Client
	logger       zerolog.Logger

	tokenMu     sync.Mutex
	token       string
	tokenExpiry time.Time

	rateLimitMu sync.RWMutex
	rateLimit   RateLimitInfo
}

type RateLimitInfo struct {
	Limit     int `json:"limit"`
	Remaining int `json:"remaining"`

	// seconds until reset
	Reset int `json:"reset"`

	UpdatedAt time.Time `json:"updated_at"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func NewPlayoffClient(creds config.GameCredentials, logger zerolog.Logger) *PlayoffClient {
	return &PlayoffClient{
		role:         creds.Role,
		apiURL:       strings.TrimRight(creds.APIURL, "/"),
		tokenURL:     creds.TokenURL,
		clientID:     creds.ClientID,
		clientSecret: creds.ClientSecret,
		client: &fasthttp.Client{
			MaxConnsPerHost:     16,
			ReadTimeout:         constants.ExternalAPITimeout,
			WriteTimeout:        constants.ExternalAPITimeout,
			MaxIdleConnDuration: 1 * time.Minute,
		},
		logger: logger.With().Str("game", creds.Role).Logger(),
	}
}

func (c *PlayoffClient) Role() string {
	return c.role
}

func (c *PlayoffClient) GetRateLimitInfo() RateLimitInfo {
	c.rateLimitMu.RLock()
	defer c.rateLimitMu.RUnlock()
	return c.rateLimit
}

func (c *PlayoffClient) Get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	return c.do(ctx, fasthttp.MethodGet, path, query, nil)
}

func (c *PlayoffClient) Post(ctx context.Context, path string, query url.Values, body any) ([]byte, error) {
	return c.do(ctx, fasthttp.MethodPost, path, query, body)
}

func (c *PlayoffClient) Delete(ctx context.Context, path string, query url.Values) ([]byte, error) {
	return c.do(ctx, fasthttp.MethodDelete, path, query, nil)
}

func (c *PlayoffClient) do(ctx context.Context, method, path string, query url.Values, body any) ([]byte, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	uri := c.apiURL + path
	if len(query) > 0 {
		uri += "?" + query.Encode()
	}

	req.SetRequestURI(uri)
	req.Header.SetMethod(method)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	requestID := middleware.GetRequestID(ctx)
	if requestID == "" {
		requestID = uuid.New().String()
	}
	req.Header.Set("X-Request-ID", requestID)

	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		req.Header.SetContentType("application/json")
		req.SetBody(payload)
	}

	c.logger.Debug().Str("method", method).Str("path", path).Msg("playoff request")

	if err := c.execute(ctx, req, resp); err != nil {
		return nil, &Error{Method: method, Path: path, Message: err.Error(), Err: err}
	}

	c.updateRateLimit(resp)

	if status := resp.StatusCode(); status < 200 || status > 299 {
		return nil, newError(method, path, status, resp.Body())
	}

	return append([]byte(nil), resp.Body()...), nil
}

func (c *PlayoffClient) execute(ctx context.Context, req *fasthttp.Request, resp *fasthttp.Response) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	deadline, ok := ctx.Deadline()
	if ok {
		return c.client.DoDeadline(req, resp, deadline)
	}
	return c.client.Do(req, resp)
}

// accessToken returns a cached client-credentials token, fetching a new one
// when the cached token is missing or about to expire.
func (c *PlayoffClient) accessToken(ctx context.Context) (string, error) {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()

	if c.token != "" && time.Now().Add(constants.TokenExpiryMargin).Before(c.tokenExpiry) {
		return c.token, nil
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	form := url.Values{}
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)
	form.Set("grant_type", "client_credentials")

	req.SetRequestURI(c.tokenURL)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/x-www-form-urlencoded")
	req.SetBodyString(form.Encode())

	if err := c.execute(ctx, req, resp); err != nil {
		return "", &Error{Method: fasthttp.MethodPost, Path: "/auth/token", Message: err.Error(), Err: err}
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		// a 404 here is a bad hostname, not a missing entity
		return "", &Error{
			Method:  fasthttp.MethodPost,
			Path:    "/auth/token",
			Message: fmt.Sprintf("token request failed with status %d", resp.StatusCode()),
		}
	}

	var tok tokenResponse
	if err := json.Unmarshal(resp.Body(), &tok); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if tok.AccessToken == "" {
		return "", &Error{Method: fasthttp.MethodPost, Path: "/auth/token", Message: "empty access token"}
	}

	c.token = tok.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)

	c.logger.Debug().Time("expires_at", c.tokenExpiry).Msg("access token refreshed")
	return c.token, nil
}

func (c *PlayoffClient) updateRateLimit(resp *fasthttp.Response) {
	c.rateLimitMu.Lock()
	defer c.rateLimitMu.Unlock()

	if limit := string(resp.Header.Peek("X-Ratelimit-Limit")); limit != "" {
		if val, err := strconv.Atoi(limit); err == nil {
			c.rateLimit.Limit = val
		}
	}
	if remaining := string(resp.Header.Peek("X-Ratelimit-Remaining")); remaining != "" {
		if val, err := strconv.Atoi(remaining); err == nil {
			c.rateLimit.Remaining = val
		}
	}
	if reset := string(resp.Header.Peek("X-Ratelimit-Reset")); reset != "" {
		if val, err := strconv.Atoi(reset); err == nil {
			c.rateLimit.Reset = val
		}
	}
	c.rateLimit.UpdatedAt = time.Now()
}

// Error is a failed Playoff call. Status is zero for transport and auth
// failures; Err then holds the transport cause, such as context.Canceled.
type Error struct {
	Method  string
	Path    string
	Status  int
	Code    string
	Message string
	Err     error
}

func newError(method, path string, status int, body []byte) *Error {
	e := &Error{Method: method, Path: path, Status: status}
	var payload errorResponse
	if err := json.Unmarshal(body, &payload); err == nil {
		e.Code = payload.Error
		e.Message = payload.ErrorDescription
	}
	if e.Message == "" {
		e.Message = strings.TrimSpace(string(body))
	}
	return e
}

func (e *Error) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("playoff %s %s: %s", e.Method, e.Path, e.Message)
	}
	return fmt.Sprintf("playoff %s %s: %d %s: %s", e.Method, e.Path, e.Status, e.Code, e.Message)
}

func (e *Error) Unwrap() []error {
	if e.Status == fasthttp.StatusNotFound {
		return []error{domain.ErrNotFound}
	}
	if e.Err != nil {
		return []error{domain.ErrUnavailable, e.Err}
	}
	return []error{domain.ErrUnavailable}
}

// Getter is the read side of a game handle.
type Getter interface {
	Get(ctx context.Context, path string, query url.Values) ([]byte, error)
}

// Fetch GETs path and decodes the body into T. A null or empty body yields
// a nil result and no error.
func Fetch[T any](ctx context.Context, g Getter, path string, query url.Values) (*T, error) {
	body, err := g.Get(ctx, path, query)
	if err != nil {
		return nil, err
	}
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" || trimmed == "null" {
		return nil, nil
	}

	var result T
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return &result, nil
}
