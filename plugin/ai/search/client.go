// Package search is the client for the web search gateway and the page
// fetcher used by URL intake.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"github.com/hrygo/cogniflow/plugin/ai"
	"github.com/hrygo/cogniflow/plugin/ai/timeout"
)

// MaxQueryRunes is the longest query the gateway accepts.
const MaxQueryRunes = 70

// Request is a single web search.
type Request struct {
	Query  string
	UserID string
	// Count overrides the configured result count when positive.
	Count int
}

// Result is one search hit.
type Result struct {
	Title       string `json:"title"`
	Content     string `json:"content"`
	Link        string `json:"link"`
	Media       string `json:"media"`
	Icon        string `json:"icon,omitempty"`
	PublishDate string `json:"publish_date,omitempty"`
}

// Response is the gateway response body.
type Response struct {
	ID      string   `json:"id,omitempty"`
	Results []Result `json:"search_result"`
}

// Error is returned for non-2xx gateway responses.
type Error struct {
	StatusCode int
	Body       string
}

func (e *Error) Error() string {
	return fmt.Sprintf("search gateway returned %d: %s", e.StatusCode, e.Body)
}

// Searcher runs web searches.
type Searcher interface {
	Search(ctx context.Context, req Request) (*Response, error)
}

type requestBody struct {
	SearchQuery         string `json:"search_query"`
	SearchEngine        string `json:"search_engine"`
	SearchIntent        bool   `json:"search_intent"`
	Count               int    `json:"count"`
	ContentSize         string `json:"content_size,omitempty"`
	SearchRecencyFilter string `json:"search_recency_filter,omitempty"`
	RequestID           string `json:"request_id"`
	UserID              string `json:"user_id,omitempty"`
}

// Client calls the web search gateway.
type Client struct {
	config     ai.SearchConfig
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a search client. A non-positive QPS disables limiting.
func NewClient(cfg ai.SearchConfig) *Client {
	if cfg.Engine == "" {
		cfg.Engine = "search_std"
	}
	if cfg.Count <= 0 {
		cfg.Count = 5
	}

	limit := rate.Inf
	if cfg.QPS > 0 {
		limit = rate.Limit(cfg.QPS)
	}

	return &Client{
		config: cfg,
		httpClient: &http.Client{
			Timeout: timeout.SearchTimeout,
		},
		limiter: rate.NewLimiter(limit, 1),
	}
}

// TruncateQuery shortens q to the gateway's query limit.
func TruncateQuery(q string) string {
	q = strings.TrimSpace(q)
	if utf8.RuneCountInString(q) <= MaxQueryRunes {
		return q
	}
	return string([]rune(q)[:MaxQueryRunes])
}

// Search runs a web search.
func (c *Client) Search(ctx context.Context, req Request) (*Response, error) {
	query := TruncateQuery(req.Query)
	if query == "" {
		return nil, errors.New("search query is empty")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(err, "wait for search rate limit")
	}

	count := c.config.Count
	if req.Count > 0 {
		count = req.Count
	}
	body, err := json.Marshal(requestBody{
		SearchQuery:         query,
		SearchEngine:        c.config.Engine,
		SearchIntent:        false,
		Count:               count,
		ContentSize:         c.config.ContentSize,
		SearchRecencyFilter: c.config.Recency,
		RequestID:           uuid.NewString(),
		UserID:              req.UserID,
	})
	if err != nil {
		return nil, errors.Wrap(err, "marshal search request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.URL, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "create search request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, "send search request")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &Error{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(excerpt))}
	}

	var result Response
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, errors.Wrap(err, "decode search response")
	}

	slog.Debug("web search completed",
		"query", query,
		"results", len(result.Results),
		"latency_ms", time.Since(start).Milliseconds())
	return &result, nil
}
