// internal/api/client.go
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/FrenchBattlesMap/viewer/pkg/core"
)

// DefaultTimeout bounds every request when no timeout is configured.
const DefaultTimeout = 30 * time.Second

// Client handles communication with the battles data service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a new API client. A non-positive timeout uses DefaultTimeout.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     slog.Default(),
	}
}

// SetLogger replaces the logger used for skipped records.
func (c *Client) SetLogger(l *slog.Logger) {
	if l != nil {
		c.logger = l
	}
}

// BaseURL returns the service root without trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// FetchError reports a failed battles query.
type FetchError struct {
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch battles: status %d: %v", e.Status, e.Err)
	}
	return fmt.Sprintf("fetch battles: %v", e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// EnrichError reports a failed enrichment request.
type EnrichError struct {
	ID     int
	Status int
	Err    error
}

func (e *EnrichError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("enrich battle %d: status %d: %v", e.ID, e.Status, e.Err)
	}
	return fmt.Sprintf("enrich battle %d: %v", e.ID, e.Err)
}

func (e *EnrichError) Unwrap() error {
	return e.Err
}

// Healthcheck checks if the data service is reachable.
func (c *Client) Healthcheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/docs", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("healthcheck request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("healthcheck returned status %d", resp.StatusCode)
	}
	return nil
}

// FetchBattles queries the battles of [start, end]. Entries that are null or
// do not decode as a battle come back as nil so the caller can drop them.
func (c *Client) FetchBattles(ctx context.Context, start, end int) ([]*core.Battle, error) {
	q := url.Values{}
	q.Set("start_year", strconv.Itoa(start))
	q.Set("end_year", strconv.Itoa(end))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/battles?"+q.Encode(), nil)
	if err != nil {
		return nil, &FetchError{Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{Status: resp.StatusCode, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	var raw []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, &FetchError{Status: resp.StatusCode, Err: fmt.Errorf("decode battles: %w", err)}
	}
	if raw == nil {
		return nil, &FetchError{Status: resp.StatusCode, Err: fmt.Errorf("decode battles: body is not an array")}
	}

	battles := make([]*core.Battle, len(raw))
	for i, msg := range raw {
		var b *core.Battle
		if err := json.Unmarshal(msg, &b); err != nil {
			c.logger.Warn("Skipping undecodable battle", "index", i, "error", err)
			continue
		}
		battles[i] = b
	}
	return battles, nil
}

// Enrich asks the service to enrich one battle and returns its opaque reply.
func (c *Client) Enrich(ctx context.Context, id int) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/api/battles/%d/enrich", c.baseURL, id), nil)
	if err != nil {
		return nil, &EnrichError{ID: id, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &EnrichError{ID: id, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &EnrichError{ID: id, Status: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &EnrichError{ID: id, Status: resp.StatusCode, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}
	if !json.Valid(body) {
		return nil, &EnrichError{ID: id, Status: resp.StatusCode, Err: fmt.Errorf("response is not JSON")}
	}
	return json.RawMessage(body), nil
}

// TimeSpan is the earliest and latest battle year known to the service.
type TimeSpan struct {
	Earliest *int `json:"earliest"`
	Latest   *int `json:"latest"`
}

// Statistics summarizes the service's battle collection.
type Statistics struct {
	TotalBattles        int            `json:"total_battles"`
	TimeSpan            TimeSpan       `json:"time_span"`
	TypesDistribution   map[string]int `json:"types_distribution"`
	CenturyDistribution map[string]int `json:"century_distribution"`
}

// Statistics fetches the collection summary.
func (c *Client) Statistics(ctx context.Context) (*Statistics, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/statistics", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("statistics request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("statistics returned status %d", resp.StatusCode)
	}

	var stats Statistics
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return nil, fmt.Errorf("decode statistics: %w", err)
	}
	return &stats, nil
}
