package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/mapofsmiles/companion/internal/domain"
	"github.com/mapofsmiles/companion/internal/session"
	"github.com/mapofsmiles/companion/internal/stories"
	"github.com/mapofsmiles/companion/pkg/response"
)

type StoryHandler struct {
	session *session.Session
	logger  *zap.Logger
}

func NewStoryHandler(sess *session.Session, logger *zap.Logger) *StoryHandler {
	return &StoryHandler{
		session: sess,
		logger:  logger,
	}
}

// SubmitRequest is the story form
type SubmitRequest struct {
	Text    string         `json:"text"`
	Emotion domain.Emotion `json:"emotion"`
}

// NearbyRequest asks for an immediate fetch
type NearbyRequest struct {
	Lat    *float64 `json:"lat"`
	Lng    *float64 `json:"lng"`
	Radius float64  `json:"radius,omitempty"`
}

// Submit handles a new story. Rejections are 422 with the user-facing message.
func (h *StoryHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	res := h.session.Submit(r.Context(), req.Text, req.Emotion)
	if !res.Success {
		response.Unprocessable(w, "NOT_ACCEPTED", res.Message)
		return
	}

	response.Created(w, res)
}

// Nearby runs a fetch and reports what it did. When no position is given the
// current one is used.
func (h *StoryHandler) Nearby(w http.ResponseWriter, r *http.Request) {
	var req NearbyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(w, "invalid request body")
		return
	}

	if req.Radius < 0 {
		response.BadRequest(w, "radius must not be negative")
		return
	}

	var (
		report stories.FetchReport
		err    error
	)
	switch {
	case req.Lat != nil && req.Lng != nil:
		if !validCoordinate(*req.Lat, *req.Lng) {
			response.BadRequest(w, "lat and lng must be in range")
			return
		}
		report, err = h.session.LoadNearby(r.Context(), domain.NewPosition(*req.Lat, *req.Lng), req.Radius)
	default:
		report, err = h.session.LoadAroundCurrent(r.Context(), req.Radius)
	}

	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNoPosition):
			response.Conflict(w, "NO_POSITION", stories.MsgNoLocation)
		case errors.Is(err, domain.ErrStoreNotConfigured):
			response.ServiceUnavailable(w, "NOT_CONFIGURED", "Story store not configured")
		default:
			h.logger.Error("nearby fetch failed", zap.Error(err))
			response.Error(w, http.StatusBadGateway, "STORE_UNAVAILABLE", "failed to load stories")
		}
		return
	}

	response.OK(w, report)
}
