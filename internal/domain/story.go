package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// LocalIDPrefix marks stories inserted optimistically after a submission.
// The store never assigns ids with this prefix.
const LocalIDPrefix = "temp-"

// NearbyPageSize caps a single nearby query.
const NearbyPageSize = 100

type StoryStatus string

const (
	StatusPending  StoryStatus = "pending"
	StatusApproved StoryStatus = "approved"
)

type Story struct {
	ID        string      `json:"id"`
	Lat       float64     `json:"lat"`
	Lng       float64     `json:"lng"`
	Text      string      `json:"text"`
	Emotion   Emotion     `json:"emotion"`
	CreatedAt time.Time   `json:"created_at"`
	Status    StoryStatus `json:"status"`
}

// UnmarshalJSON accepts numeric ids as well as strings, since the store
// may key rows by bigint or uuid.
func (s *Story) UnmarshalJSON(data []byte) error {
	type alias Story
	aux := struct {
		ID json.RawMessage `json:"id"`
		*alias
	}{alias: (*alias)(s)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	id, err := parseStoryID(aux.ID)
	if err != nil {
		return err
	}
	s.ID = id
	return nil
}

func parseStoryID(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", fmt.Errorf("story id is missing")
	}
	if raw[0] == '"' {
		var id string
		if err := json.Unmarshal(raw, &id); err != nil {
			return "", fmt.Errorf("invalid story id: %w", err)
		}
		return id, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("invalid story id: %w", err)
	}
	if _, err := strconv.ParseInt(n.String(), 10, 64); err != nil {
		return "", fmt.Errorf("invalid story id %s: %w", n, err)
	}
	return n.String(), nil
}

// IsLocal reports whether the story was synthesized locally and has not
// been confirmed by the store.
func (s *Story) IsLocal() bool {
	return len(s.ID) >= len(LocalIDPrefix) && s.ID[:len(LocalIDPrefix)] == LocalIDPrefix
}

func (s *Story) Position() Position {
	return Position{Lat: s.Lat, Lng: s.Lng}
}

// NewLocalStory builds the optimistic copy of an accepted submission.
func NewLocalStory(sub Submission, now time.Time) *Story {
	return &Story{
		ID:        fmt.Sprintf("%s%d", LocalIDPrefix, now.UnixMilli()),
		Lat:       sub.Lat,
		Lng:       sub.Lng,
		Text:      sub.Text,
		Emotion:   sub.Emotion,
		CreatedAt: now.UTC(),
		Status:    StatusApproved,
	}
}

// StoryQuery selects stories inside a window, newest first.
type StoryQuery struct {
	Window GeoWindow
	Status StoryStatus
	Limit  int
}

// StoryStore is the read path of the remote story store.
type StoryStore interface {
	FindInWindow(ctx context.Context, q StoryQuery) ([]*Story, error)
	IsConfigured() bool
}

// Submission is the payload posted to the submission endpoint.
type Submission struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Text    string  `json:"text"`
	Emotion Emotion `json:"emotion"`
}

// SubmitResponse is the decoded endpoint reply. StatusCode carries the HTTP status.
type SubmitResponse struct {
	OK         bool   `json:"ok"`
	Message    string `json:"message,omitempty"`
	StatusCode int    `json:"-"`
}

// Accepted requires both a success status and the body flag.
func (r *SubmitResponse) Accepted() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300 && r.OK
}

type SubmitEndpoint interface {
	Submit(ctx context.Context, sub Submission) (*SubmitResponse, error)
	IsConfigured() bool
}

// Renderer is the map surface. Only the marker registry talks to it.
type Renderer interface {
	AddMarker(story *Story)
	ClearMarkers()
}
