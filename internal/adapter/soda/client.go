// Package soda reads incident snapshots from a Socrata (SODA) CSV export.
package soda

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/incident-aoi-notifier/internal/domain"
)

// Client fetches the full feed snapshot over HTTP.
type Client struct {
	baseURL    string
	appToken   string
	limit      int
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a feed client for the CSV resource at baseURL.
func NewClient(baseURL, appToken string, limit int, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL:  baseURL,
		appToken: appToken,
		limit:    limit,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Fetch downloads the snapshot and returns its rows in feed order.
// Every failure, including a missing identity column, is a *domain.FetchError.
func (c *Client) Fetch(ctx context.Context) ([]domain.FeedRow, error) {
	rows, err := c.fetch(ctx)
	if err != nil {
		return nil, &domain.FetchError{Err: err}
	}
	return rows, nil
}

func (c *Client) fetch(ctx context.Context) ([]domain.FeedRow, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.requestURL(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "text/csv")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("feed request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("feed API error: status %d: %s", resp.StatusCode, body)
	}

	rows, err := decode(resp.Body)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("feed fetched", "rows", len(rows), "duration", time.Since(start))
	return rows, nil
}

func (c *Client) requestURL() string {
	params := url.Values{
		"$limit":  {strconv.Itoa(c.limit)},
		"$select": {":*, *"},
	}
	if c.appToken != "" {
		params.Set("$$app_token", c.appToken)
	}
	return c.baseURL + "?" + params.Encode()
}

// decode reads a CSV body whose first record is the header row.
func decode(r io.Reader) ([]domain.FeedRow, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("feed is empty: no header row")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}
	if missing := missingColumns(columns); len(missing) > 0 {
		return nil, fmt.Errorf("feed is missing required columns: %s", strings.Join(missing, ", "))
	}

	var rows []domain.FeedRow
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(rows)+1, err)
		}
		row := make(domain.FeedRow, len(columns))
		for i, col := range columns {
			row[col] = record[i]
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func missingColumns(columns []string) []string {
	present := make(map[string]bool, len(columns))
	for _, c := range columns {
		present[c] = true
	}
	var missing []string
	for _, c := range domain.IdentityColumns {
		if !present[c] {
			missing = append(missing, c)
		}
	}
	return missing
}
