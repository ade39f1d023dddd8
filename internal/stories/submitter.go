package stories

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mapofsmiles/companion/internal/domain"
	"github.com/mapofsmiles/companion/internal/metrics"
	"github.com/mapofsmiles/companion/pkg/validator"
)

// Messages returned to the user.
const (
	MsgShared        = "Story shared!"
	MsgNotConfigured = "Backend not configured"
	MsgNoLocation    = "Location not available"
	MsgRejected      = "Could not share story"
	MsgNetworkError  = "Network error. Try again."
)

// Positioner supplies the position a story is posted from.
type Positioner interface {
	CurrentPosition() (domain.Position, bool)
}

// Rules bound what may be submitted.
type Rules struct {
	MinLength int
	MaxLength int
	Emotions  []domain.Emotion
}

// Result is the outcome of a submission. Story is the optimistic copy
// registered on success.
type Result struct {
	Success bool          `json:"success"`
	Message string        `json:"message"`
	Story   *domain.Story `json:"story,omitempty"`
}

// Submitter validates and posts stories, then renders accepted ones
// immediately under a temporary id.
type Submitter struct {
	endpoint  domain.SubmitEndpoint
	positions Positioner
	registry  Registry
	validator *validator.Validator
	now       func() time.Time
	logger    *zap.Logger
}

func NewSubmitter(endpoint domain.SubmitEndpoint, positions Positioner, registry Registry, rules Rules, logger *zap.Logger) *Submitter {
	return &Submitter{
		endpoint:  endpoint,
		positions: positions,
		registry:  registry,
		validator: newValidator(rules),
		now:       time.Now,
		logger:    logger,
	}
}

// Validate runs the local checks done before any network call.
func (s *Submitter) Validate(text string, emotion domain.Emotion) validator.ValidationErrors {
	return s.validator.ValidateSubmission(text, string(emotion))
}

func newValidator(rules Rules) *validator.Validator {
	emotions := make([]string, len(rules.Emotions))
	for i, e := range rules.Emotions {
		emotions[i] = string(e)
	}
	return validator.New(rules.MinLength, rules.MaxLength, emotions)
}

// Submit posts the story. Failures never change local state and are
// reported in the result, not as errors.
func (s *Submitter) Submit(ctx context.Context, text string, emotion domain.Emotion) Result {
	if errs := s.Validate(text, emotion); errs.HasErrors() {
		metrics.RecordSubmit(metrics.SubmitInvalid)
		return Result{Message: errs.First()}
	}

	if !s.endpoint.IsConfigured() {
		metrics.RecordSubmit(metrics.SubmitNotConfigured)
		s.logger.Error("submission endpoint not configured", zap.Error(domain.ErrSubmitNotConfigured))
		return Result{Message: MsgNotConfigured}
	}

	pos, ok := s.positions.CurrentPosition()
	if !ok {
		metrics.RecordSubmit(metrics.SubmitInvalid)
		return Result{Message: MsgNoLocation}
	}

	sub := domain.Submission{
		Lat:     pos.Lat,
		Lng:     pos.Lng,
		Text:    strings.TrimSpace(text),
		Emotion: emotion,
	}

	reply, err := s.endpoint.Submit(ctx, sub)
	if err != nil {
		metrics.RecordSubmit(metrics.SubmitNetworkError)
		if !errors.Is(err, context.Canceled) {
			s.logger.Error("error submitting story", zap.Error(err))
		}
		return Result{Message: MsgNetworkError}
	}

	if !reply.Accepted() {
		metrics.RecordSubmit(metrics.SubmitRejected)
		s.logger.Warn("story rejected",
			zap.Int("status", reply.StatusCode),
			zap.String("message", reply.Message),
		)
		msg := reply.Message
		if msg == "" {
			msg = MsgRejected
		}
		return Result{Message: msg}
	}

	story := domain.NewLocalStory(sub, s.now())
	s.registry.Register(story)

	metrics.RecordSubmit(metrics.SubmitAccepted)
	s.logger.Info("story submitted", zap.String("temp_id", story.ID))
	return Result{Success: true, Message: MsgShared, Story: story}
}
