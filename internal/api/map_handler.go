package api

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/mapofsmiles/companion/internal/config"
	"github.com/mapofsmiles/companion/internal/domain"
	"github.com/mapofsmiles/companion/internal/session"
	"github.com/mapofsmiles/companion/internal/tracker"
	"github.com/mapofsmiles/companion/pkg/response"
)

// MapHandler handles position reports and marker management from the map page
type MapHandler struct {
	session   *session.Session
	cfg       *config.Config
	readiness Readiness
	logger    *zap.Logger
}

// NewMapHandler creates a new map handler
func NewMapHandler(sess *session.Session, cfg *config.Config, readiness Readiness, logger *zap.Logger) *MapHandler {
	return &MapHandler{
		session:   sess,
		cfg:       cfg,
		readiness: readiness,
		logger:    logger,
	}
}

// FixRequest mirrors the browser's GeolocationCoordinates
type FixRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Accuracy  float64  `json:"accuracy"`
}

// LocationErrorRequest carries a geolocation error code
type LocationErrorRequest struct {
	Code string `json:"code"`
}

// PointRequest is a bare coordinate
type PointRequest struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

// EmotionInfo describes one selectable emotion
type EmotionInfo struct {
	Tag  domain.Emotion `json:"tag"`
	Icon string         `json:"icon"`
}

// ClientConfig is the public part of the configuration
type ClientConfig struct {
	DefaultCenter  domain.Position `json:"default_center"`
	DefaultZoom    int             `json:"default_zoom"`
	MinZoom        int             `json:"min_zoom"`
	MaxZoom        int             `json:"max_zoom"`
	MinLength      int             `json:"min_length"`
	MaxLength      int             `json:"max_length"`
	DefaultRadius  float64         `json:"default_radius"`
	LoadRadius     float64         `json:"load_radius"`
	Emotions       []EmotionInfo   `json:"emotions"`
	StoreReady     bool            `json:"store_ready"`
	SubmitReady    bool            `json:"submit_ready"`
	InitialTimeout int64           `json:"initial_fix_timeout_ms"`
}

// LocationErrorResponse echoes the typed failure
type LocationErrorResponse struct {
	Reason  tracker.Reason `json:"reason"`
	Message string         `json:"message"`
}

// Config returns the map settings the page needs at startup
func (h *MapHandler) Config(w http.ResponseWriter, r *http.Request) {
	emotions := make([]EmotionInfo, 0, len(h.cfg.Stories.Emotions))
	for _, e := range h.cfg.Stories.Emotions {
		emotions = append(emotions, EmotionInfo{Tag: e, Icon: e.Icon()})
	}

	response.OK(w, ClientConfig{
		DefaultCenter:  h.cfg.Map.DefaultCenter,
		DefaultZoom:    h.cfg.Map.DefaultZoom,
		MinZoom:        h.cfg.Map.MinZoom,
		MaxZoom:        h.cfg.Map.MaxZoom,
		MinLength:      h.cfg.Stories.MinLength,
		MaxLength:      h.cfg.Stories.MaxLength,
		DefaultRadius:  h.cfg.Stories.DefaultRadius,
		LoadRadius:     h.cfg.Stories.LoadRadius,
		Emotions:       emotions,
		StoreReady:     h.readiness.StoreConfigured(),
		SubmitReady:    h.readiness.SubmitConfigured(),
		InitialTimeout: h.cfg.Geo.InitialFixTimeout.Milliseconds(),
	})
}

// ReportFix handles a GPS fix from the browser
func (h *MapHandler) ReportFix(w http.ResponseWriter, r *http.Request) {
	var req FixRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if req.Latitude == nil || req.Longitude == nil || !validCoordinate(*req.Latitude, *req.Longitude) {
		response.BadRequest(w, "latitude and longitude are required and must be in range")
		return
	}
	if req.Accuracy < 0 {
		response.BadRequest(w, "accuracy must not be negative")
		return
	}

	h.session.ReportFix(domain.NewFix(*req.Latitude, *req.Longitude, req.Accuracy))
	response.Accepted(w, h.session.Positions())
}

// ReportError handles a geolocation failure from the browser
func (h *MapHandler) ReportError(w http.ResponseWriter, r *http.Request) {
	var req LocationErrorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	locErr := h.session.ReportLocationError(tracker.ParseReason(req.Code))
	response.Accepted(w, LocationErrorResponse{Reason: locErr.Reason, Message: locErr.Message()})
}

// GetPosition returns the current, GPS and selected positions
func (h *MapHandler) GetPosition(w http.ResponseWriter, r *http.Request) {
	response.OK(w, h.session.Positions())
}

// SelectPosition handles a map click that overrides GPS
func (h *MapHandler) SelectPosition(w http.ResponseWriter, r *http.Request) {
	pos, ok := decodePoint(w, r)
	if !ok {
		return
	}

	h.session.SelectPosition(pos)
	response.OK(w, h.session.Positions())
}

// ClearSelection drops the override
func (h *MapHandler) ClearSelection(w http.ResponseWriter, r *http.Request) {
	h.session.ClearSelection()
	response.NoContent(w)
}

// MapMoved loads stories around a new map center
func (h *MapHandler) MapMoved(w http.ResponseWriter, r *http.Request) {
	pos, ok := decodePoint(w, r)
	if !ok {
		return
	}

	h.session.MapMoved(pos)
	response.Accepted(w, nil)
}

// GetMarkers returns the stories currently on the map
func (h *MapHandler) GetMarkers(w http.ResponseWriter, r *http.Request) {
	response.OK(w, h.session.Markers())
}

// ClearMarkers removes every marker
func (h *MapHandler) ClearMarkers(w http.ResponseWriter, r *http.Request) {
	h.session.ClearMarkers()
	response.NoContent(w)
}

func decodePoint(w http.ResponseWriter, r *http.Request) (domain.Position, bool) {
	var req PointRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return domain.Position{}, false
	}
	if req.Lat == nil || req.Lng == nil || !validCoordinate(*req.Lat, *req.Lng) {
		response.BadRequest(w, "lat and lng are required and must be in range")
		return domain.Position{}, false
	}
	return domain.NewPosition(*req.Lat, *req.Lng), true
}

func validCoordinate(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}
