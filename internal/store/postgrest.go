// Package store implements the read path of the remote story store.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/mapofsmiles/companion/internal/config"
	"github.com/mapofsmiles/companion/internal/domain"
)

// PostgREST queries the stories table through the store's REST interface.
type PostgREST struct {
	baseURL string
	anonKey string
	table   string
	client  *http.Client
	logger  *zap.Logger
}

// NewPostgREST creates a REST store client
func NewPostgREST(cfg config.StoreConfig, logger *zap.Logger) *PostgREST {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &PostgREST{
		baseURL: cfg.URL,
		anonKey: cfg.AnonKey,
		table:   cfg.Table,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

func (s *PostgREST) IsConfigured() bool {
	return config.IsSet(s.baseURL) && config.IsSet(s.anonKey)
}

// FindInWindow fetches stories with the query's status inside its window,
// newest first.
func (s *PostgREST) FindInWindow(ctx context.Context, q domain.StoryQuery) ([]*domain.Story, error) {
	endpoint, err := s.queryURL(q)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build store request: %w", err)
	}
	req.Header.Set("apikey", s.anonKey)
	req.Header.Set("Authorization", "Bearer "+s.anonKey)
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("store request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var rows []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("failed to decode stories: %w", err)
	}

	// A malformed row is skipped so the rest of the page still renders.
	stories := make([]*domain.Story, 0, len(rows))
	for i, row := range rows {
		var story domain.Story
		if err := json.Unmarshal(row, &story); err != nil {
			s.logger.Warn("skipping malformed story row", zap.Int("row", i), zap.Error(err))
			continue
		}
		stories = append(stories, &story)
	}
	return stories, nil
}

func (s *PostgREST) queryURL(q domain.StoryQuery) (string, error) {
	u, err := url.Parse(fmt.Sprintf("%s/rest/v1/%s", s.baseURL, url.PathEscape(s.table)))
	if err != nil {
		return "", fmt.Errorf("invalid store url: %w", err)
	}

	limit := q.Limit
	if limit <= 0 {
		limit = domain.NearbyPageSize
	}
	status := q.Status
	if status == "" {
		status = domain.StatusApproved
	}

	params := url.Values{}
	params.Add("select", "*")
	params.Add("status", "eq."+string(status))
	params.Add("lat", "gte."+formatCoord(q.Window.MinLat))
	params.Add("lat", "lte."+formatCoord(q.Window.MaxLat))
	params.Add("lng", "gte."+formatCoord(q.Window.MinLng))
	params.Add("lng", "lte."+formatCoord(q.Window.MaxLng))
	params.Add("order", "created_at.desc")
	params.Add("limit", strconv.Itoa(limit))
	u.RawQuery = params.Encode()

	return u.String(), nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// HTTPError is a non-success reply from the store.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("store returned HTTP %d", e.StatusCode)
}
