// Package tmdb looks up films and series in The Movie Database API v3.
package tmdb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultBaseURL      = "https://api.themoviedb.org/3"
	DefaultImageBaseURL = "https://image.tmdb.org/t/p/w500"
	DefaultTimeout      = 4 * time.Second

	langRU = "ru-RU"
	langEN = "en-US"

	// error bodies are logged up to this many bytes
	bodySnippetLimit = 600
)

// Movie is the metadata shown to the user
type Movie struct {
	ID        int64
	MediaType string // "movie" or "tv"
	Title     string
	Year      string
	Overview  string
	Rating    *float64
	PosterURL string
}

// APIError is returned for HTTP statuses >= 400
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("tmdb: status %d", e.Status)
}

// Observer receives the duration of every API call
type Observer func(endpoint string, d time.Duration)

// Client talks to TMDB
type Client struct {
	httpClient   *http.Client
	apiKey       string
	baseURL      string
	imageBaseURL string
	timeout      time.Duration
	debug        bool
	logger       *zap.Logger
	observe      Observer
}

// Option configures a Client
type Option func(*Client)

func WithBaseURL(u string) Option      { return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") } }
func WithImageBaseURL(u string) Option { return func(c *Client) { c.imageBaseURL = u } }
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}
func WithTimeout(d time.Duration) Option { return func(c *Client) { c.timeout = d } }
func WithDebug(on bool) Option           { return func(c *Client) { c.debug = on } }
func WithObserver(o Observer) Option     { return func(c *Client) { c.observe = o } }

// NewClient creates a TMDB client. Proxies from the environment are ignored.
func NewClient(apiKey string, logger *zap.Logger, opts ...Option) *Client {
	c := &Client{
		apiKey:       apiKey,
		baseURL:      DefaultBaseURL,
		imageBaseURL: DefaultImageBaseURL,
		timeout:      DefaultTimeout,
		logger:       logger.Named("tmdb"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.Proxy = nil
		c.httpClient = &http.Client{Transport: transport}
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.imageBaseURL == "" {
		c.imageBaseURL = DefaultImageBaseURL
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	return c
}

// Lookup finds the best match for query and enriches it with the details
// endpoint. The whole lookup shares one timeout. A nil Movie with a nil
// error means nothing matched.
func (c *Client) Lookup(ctx context.Context, query string) (*Movie, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	m, err := c.SearchBest(ctx, query)
	if err != nil || m == nil {
		return nil, err
	}

	detailed, err := c.FetchDetails(ctx, m.MediaType, m.ID)
	if err != nil {
		// the search hit is still usable
		c.logger.Warn("details lookup failed, using search result",
			zap.Int64("id", m.ID), zap.String("type", m.MediaType), zap.Error(err))
		return m, nil
	}
	return detailed, nil
}

// SearchBest searches in Russian first and falls back to English. The
// error is non-nil only when both searches failed.
func (c *Client) SearchBest(ctx context.Context, query string) (*Movie, error) {
	ru, errRU := c.searchMulti(ctx, query, langRU)
	if m := pickFirst(ru, query, c.imageBaseURL); m != nil {
		if c.debug {
			c.logger.Info("picked RU", movieFields(m)...)
		}
		return m, nil
	}

	en, errEN := c.searchMulti(ctx, query, langEN)
	m := pickFirst(en, query, c.imageBaseURL)
	if m != nil {
		if c.debug {
			c.logger.Info("picked EN", movieFields(m)...)
		}
		return m, nil
	}

	if errRU != nil && errEN != nil {
		return nil, fmt.Errorf("tmdb search %q: %w", query, errEN)
	}
	return nil, nil
}

// FetchDetails loads the full record for one film or series in Russian
func (c *Client) FetchDetails(ctx context.Context, mediaType string, id int64) (*Movie, error) {
	endpoint := fmt.Sprintf("/%s/%d", mediaType, id)
	params := url.Values{"language": {langRU}}

	var r result
	if err := c.get(ctx, endpoint, params, &r); err != nil {
		c.logger.Warn("details request failed",
			zap.Int64("id", id), zap.String("type", mediaType), zap.Error(err))
		return nil, err
	}

	title, date := r.titleAndDate(mediaType)
	if title == "" {
		title = fmt.Sprintf("%d", id)
	}

	m := &Movie{
		ID:        id,
		MediaType: mediaType,
		Title:     title,
		Year:      pickYear(date),
		Overview:  r.Overview,
		Rating:    r.rating(),
		PosterURL: posterURL(c.imageBaseURL, r.PosterPath),
	}
	if c.debug {
		c.logger.Info("details ok", movieFields(m)...)
	}
	return m, nil
}

func (c *Client) searchMulti(ctx context.Context, query, language string) ([]result, error) {
	params := url.Values{
		"query":         {query},
		"language":      {language},
		"include_adult": {"false"},
		"page":          {"1"},
	}

	var page searchPage
	if err := c.get(ctx, "/search/multi", params, &page); err != nil {
		c.logger.Warn("search request failed",
			zap.String("lang", language), zap.String("query", query), zap.Error(err))
		return nil, err
	}
	if c.debug {
		c.logger.Info("search results",
			zap.String("lang", language), zap.String("query", query), zap.Int("count", len(page.Results)))
	}
	return page.Results, nil
}

// get performs one GET and decodes the JSON body into out
func (c *Client) get(ctx context.Context, endpoint string, params url.Values, out interface{}) error {
	params.Set("api_key", c.apiKey)
	u := c.baseURL + endpoint + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start)
	if c.observe != nil {
		c.observe(observedEndpoint(endpoint), elapsed)
	}
	if err != nil {
		return fmt.Errorf("GET %s: %w", endpoint, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if c.debug {
		// never log the query string, it carries the api key
		c.logger.Info("GET",
			zap.String("url", c.baseURL+endpoint),
			zap.String("lang", params.Get("language")),
			zap.Int("status", resp.StatusCode),
			zap.Int64("time_ms", elapsed.Milliseconds()))
	}

	if resp.StatusCode >= 400 {
		body := readSnippet(resp.Body, bodySnippetLimit)
		c.logger.Warn("error status",
			zap.String("endpoint", endpoint),
			zap.Int("status", resp.StatusCode),
			zap.String("body", body))
		return &APIError{Status: resp.StatusCode, Body: body}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", endpoint, err)
	}
	return nil
}

// observedEndpoint collapses ids so metrics labels stay bounded
func observedEndpoint(endpoint string) string {
	switch {
	case strings.HasPrefix(endpoint, "/movie/"):
		return "details_movie"
	case strings.HasPrefix(endpoint, "/tv/"):
		return "details_tv"
	case endpoint == "/search/multi":
		return "search"
	default:
		return "other"
	}
}

func readSnippet(r io.Reader, limit int) string {
	data, err := io.ReadAll(io.LimitReader(r, 64*1024))
	if err != nil {
		return ""
	}
	text := strings.Join(strings.Fields(string(data)), " ")
	if len(text) > limit {
		text = text[:limit]
	}
	return text
}

func movieFields(m *Movie) []zap.Field {
	return []zap.Field{
		zap.String("title", m.Title),
		zap.String("year", m.Year),
		zap.Int64("id", m.ID),
		zap.String("type", m.MediaType),
	}
}
