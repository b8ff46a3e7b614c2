// Package api implements the HTTP client for the Evolution Mapper backend.
// All tree construction, dating, legend computation, and silhouette lookup
// happen server-side; this package only speaks the wire contract and
// normalizes responses into pkg/model types.
package api

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"

	"github.com/jarrodharvey/evolution-mapper-frontend/pkg/debug"
	"github.com/jarrodharvey/evolution-mapper-frontend/pkg/model"
)

// DefaultTimeout bounds a single request. Tree generation can run long on
// the backend, but the client polls progress separately, so even the
// generation POST gets a generous-but-finite bound.
const DefaultTimeout = 60 * time.Second

// DefaultSilhouetteSize is the pixel size requested for node silhouettes.
const DefaultSilhouetteSize = 64

// Sentinel errors for the error taxonomy callers branch on.
var (
	// ErrAuth means the API key was rejected (HTTP 401).
	ErrAuth = errors.New("authentication failed: check your API key")
	// ErrRateLimited means the backend asked us to back off (HTTP 429).
	ErrRateLimited = errors.New("rate limit exceeded: wait before retrying")
	// ErrNoSilhouette means the backend has no image for a uuid (HTTP 404
	// or an empty payload). Callers negative-cache this.
	ErrNoSilhouette = errors.New("no silhouette available")
)

// StatusError is any other non-2xx response.
type StatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("backend returned %s: %s", e.Status, e.Body)
	}
	return fmt.Sprintf("backend returned %s", e.Status)
}

// Client talks to the Evolution Mapper backend. Safe for concurrent use:
// credentials may be swapped from the config reload path while worker and
// resolver goroutines issue requests.
type Client struct {
	mu         sync.RWMutex
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a client for the given base URL and API key.
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
}

// SetCredentials swaps the backend endpoint and key, e.g. after a config
// reload. In-flight requests keep their original values.
func (c *Client) SetCredentials(baseURL, apiKey string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.baseURL = strings.TrimRight(baseURL, "/")
	c.apiKey = apiKey
}

// creds reads the current endpoint and key under the lock.
func (c *Client) creds() (baseURL, apiKey string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.baseURL, c.apiKey
}

// BaseURL returns the configured backend base URL.
func (c *Client) BaseURL() string {
	baseURL, _ := c.creds()
	return baseURL
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	_, apiKey := c.creds()
	req.Header.Set("X-API-Key", apiKey)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		resp.Body.Close()
		return nil, ErrAuth
	case resp.StatusCode == http.StatusTooManyRequests:
		resp.Body.Close()
		return nil, ErrRateLimited
	}
	return resp, nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	baseURL, _ := c.creds()
	u := baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) postForm(ctx context.Context, path string, form url.Values, out any) error {
	baseURL, _ := c.creds()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+path,
		strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &StatusError{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       strings.TrimSpace(string(body)),
	}
}

// SearchSpecies performs a fuzzy species search. Queries shorter than two
// characters return an empty result without touching the network.
func (c *Client) SearchSpecies(ctx context.Context, query string, limit int) ([]model.Species, error) {
	if len(strings.TrimSpace(query)) < 2 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}
	q := url.Values{}
	q.Set("search", query)
	q.Set("limit", strconv.Itoa(limit))
	var resp speciesSearchResponse
	if err := c.getJSON(ctx, "/api/species", q, &resp); err != nil {
		return nil, fmt.Errorf("species search: %w", err)
	}
	out := make([]model.Species, 0, len(resp.Species))
	for _, rec := range resp.Species {
		out = append(out, model.Species{
			Common:      rec.Common.String(),
			Scientific:  rec.Scientific.String(),
			HasDatelife: rec.HasDatelife.Bool(),
		})
	}
	return out, nil
}

// RandomSpecies draws count random species. Some backend versions bundle a
// pre-rendered tree with the draw; when present its HTML is returned too.
func (c *Client) RandomSpecies(ctx context.Context, count int) (model.Selection, string, error) {
	q := url.Values{}
	q.Set("count", strconv.Itoa(count))
	var resp randomSpeciesResponse
	if err := c.getJSON(ctx, "/api/random-species", q, &resp); err != nil {
		return nil, "", fmt.Errorf("random species: %w", err)
	}
	if !resp.Success.Bool() || resp.SelectedSpecies == nil {
		msg := resp.Error.String()
		if msg == "" {
			msg = "failed to get random species"
		}
		return nil, "", errors.New(msg)
	}
	commons := resp.SelectedSpecies.CommonNames.Strings()
	scis := resp.SelectedSpecies.ScientificNames.Strings()
	sel := make(model.Selection, 0, len(commons))
	for i, common := range commons {
		sp := model.Species{Common: common, Scientific: common}
		if i < len(scis) && scis[i] != "" {
			sp.Scientific = scis[i]
		}
		if i < len(resp.SelectedSpecies.HasDatelife) {
			sp.HasDatelife = resp.SelectedSpecies.HasDatelife[i].Bool()
		}
		sel = append(sel, sp)
	}
	return sel, resp.HTML.String(), nil
}

// ProgressToken obtains a fresh correlation token for one generation
// attempt. Tokens are single-use.
func (c *Client) ProgressToken(ctx context.Context) (string, error) {
	var resp tokenResponse
	if err := c.getJSON(ctx, "/api/get_progress_token", nil, &resp); err != nil {
		return "", fmt.Errorf("progress token: %w", err)
	}
	if !resp.Success.Bool() || resp.Token == "" {
		msg := resp.Error.String()
		if msg == "" {
			msg = "backend did not return a progress token"
		}
		return "", errors.New(msg)
	}
	return resp.Token.String(), nil
}

// Progress polls generation status for a token.
func (c *Client) Progress(ctx context.Context, token string) (model.ProgressSnapshot, error) {
	q := url.Values{}
	q.Set("progress_token", token)
	var resp progressResponse
	if err := c.getJSON(ctx, "/api/progress", q, &resp); err != nil {
		return model.ProgressSnapshot{}, fmt.Errorf("progress poll: %w", err)
	}
	return toSnapshot(resp), nil
}

// TreeRequest is the input to GenerateTree.
type TreeRequest struct {
	CommonNames      []string
	ScientificNames  []string
	ProgressToken    string
	ExpansionSpeedMs int
	AllowPartial     bool
}

// GenerateTree requests a dated phylogenetic tree for the selection. The
// caller validates selection bounds first; this method only speaks HTTP.
func (c *Client) GenerateTree(ctx context.Context, req TreeRequest) (*model.TreeResult, error) {
	form := url.Values{}
	form.Set("common_names", strings.Join(req.CommonNames, ","))
	form.Set("scientific_names", strings.Join(req.ScientificNames, ","))
	if req.ProgressToken != "" {
		form.Set("progress_token", req.ProgressToken)
	}
	if req.ExpansionSpeedMs > 0 {
		form.Set("expansion_speed", strconv.Itoa(req.ExpansionSpeedMs))
	}
	if req.AllowPartial {
		form.Set("allow_partial_response", "true")
	}

	start := time.Now()
	var resp treeResponse
	if err := c.postForm(ctx, "/api/full-tree-dated", form, &resp); err != nil {
		return nil, fmt.Errorf("tree generation: %w", err)
	}
	debug.LogTiming("tree generation request", time.Since(start))

	return &model.TreeResult{
		Success:       resp.Success.Bool(),
		HTML:          resp.HTML.String(),
		Tree:          toNode(resp.TreeJSON),
		Coverage:      resp.Coverage.String(),
		MissingCommon: resp.MissingCommonNames.Strings(),
		MissingSci:    resp.MissingSciNames.Strings(),
		DroppedCommon: resp.DroppedCommonNames.Strings(),
		LegendType:    resp.LegendType.String(),
		ErrMessage:    resp.Error.String(),
	}, nil
}

// Legend fetches the legend entries for a tree type. An empty legendType
// asks the backend for its default legend.
func (c *Client) Legend(ctx context.Context, legendType string) (model.Legend, error) {
	q := url.Values{}
	if legendType != "" {
		q.Set("type", legendType)
	}
	var resp legendResponse
	if err := c.getJSON(ctx, "/api/legend", q, &resp); err != nil {
		return model.Legend{}, fmt.Errorf("legend: %w", err)
	}
	if !resp.Success.Bool() || resp.Legend == nil {
		msg := resp.Error.String()
		if msg == "" {
			msg = "failed to fetch legend data"
		}
		return model.Legend{}, errors.New(msg)
	}
	return toLegend(resp), nil
}

// FetchSilhouette fetches one silhouette image and normalizes the payload
// into a data-URL string. Returns ErrNoSilhouette for 404s and empty
// payloads so callers can negative-cache the key.
func (c *Client) FetchSilhouette(ctx context.Context, uuid, color string, size int) (string, error) {
	if size <= 0 {
		size = DefaultSilhouetteSize
	}
	q := url.Values{}
	q.Set("uuid", uuid)
	q.Set("color", color)
	q.Set("size", strconv.Itoa(size))

	baseURL, _ := c.creds()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		baseURL+"/api/get-phylopic?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}
	resp, err := c.do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", ErrNoSilhouette
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", statusError(resp)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("read silhouette body: %w", err)
	}
	if len(body) == 0 {
		return "", ErrNoSilhouette
	}

	// Raw image bytes: base64 them directly.
	if ct := resp.Header.Get("Content-Type"); strings.HasPrefix(ct, "image/") {
		return "data:" + ct + ";base64," + base64.StdEncoding.EncodeToString(body), nil
	}

	// JSON envelope: the payload field name varies across backend versions.
	var env phylopicEnvelope
	if err := json.Unmarshal(body, &env); err == nil {
		for _, candidate := range []FlexString{env.DataURL, env.Image, env.Data, env.PNG} {
			if candidate != "" {
				return normalizeDataURL(candidate.String()), nil
			}
		}
		if env.Error != "" || !env.Success.Bool() {
			return "", ErrNoSilhouette
		}
		return "", ErrNoSilhouette
	}

	// Raw text/base64 body.
	payload := strings.TrimSpace(string(body))
	if payload == "" {
		return "", ErrNoSilhouette
	}
	return normalizeDataURL(payload), nil
}

// normalizeDataURL turns any accepted payload shape into a data-URL.
func normalizeDataURL(payload string) string {
	if strings.HasPrefix(payload, "data:") {
		return payload
	}
	return "data:image/png;base64," + payload
}

// Citations returns the scholarly acknowledgement list.
func (c *Client) Citations(ctx context.Context) ([]Citation, error) {
	var resp citationsResponse
	if err := c.getJSON(ctx, "/api/citations", nil, &resp); err != nil {
		return nil, fmt.Errorf("citations: %w", err)
	}
	return resp.Citations, nil
}

// Attributions returns the image/data attribution list.
func (c *Client) Attributions(ctx context.Context) ([]Attribution, error) {
	var resp attributionsResponse
	if err := c.getJSON(ctx, "/api/attributions", nil, &resp); err != nil {
		return nil, fmt.Errorf("attributions: %w", err)
	}
	return resp.Attributions, nil
}
