// Package questionnaire stores questionnaire submissions and announces them
// to the rest of the system.
package questionnaire

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/justestif/go-spotify-taste-engine/internal/db"
	"github.com/justestif/go-spotify-taste-engine/internal/events"
	"github.com/justestif/go-spotify-taste-engine/internal/logging"
	"github.com/justestif/go-spotify-taste-engine/internal/validation"
)

// HistorySize is the number of earlier submissions returned by Submit.
const HistorySize = 5

// Service handles questionnaire submissions.
type Service struct {
	store     db.Store
	publisher events.Publisher
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithPublisher sets where submission events are published. Without one no
// event is emitted.
func WithPublisher(p events.Publisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

// WithClock sets the time source used for submission timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// New creates a questionnaire service.
func New(store db.Store, opts ...Option) *Service {
	s := &Service{store: store, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submission is the result of Submit.
type Submission struct {
	Questionnaire db.Questionnaire   `json:"questionnaire"`
	Previous      []db.Questionnaire `json:"previous"`
}

type submitRequest struct {
	Answers []answer `validate:"required,min=1,dive"`
}

type answer struct {
	QuestionID string `validate:"required"`
	OptionID   string `validate:"required"`
}

// Submit stores a questionnaire and returns it along with up to HistorySize
// earlier submissions, newest first.
//
// The event announcing the submission is published only after the write
// succeeds. Publishing is best-effort: a failure is logged and Submit still
// succeeds.
func (s *Service) Submit(ctx context.Context, userID string, answers []db.Answer) (*Submission, error) {
	req := submitRequest{Answers: make([]answer, len(answers))}
	for i, a := range answers {
		req.Answers[i] = answer{QuestionID: a.QuestionID, OptionID: a.OptionID}
	}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	previous, err := s.store.Questionnaires().ListByUser(ctx, userID, HistorySize)
	if err != nil {
		return nil, fmt.Errorf("listing previous questionnaires: %w", err)
	}

	q := db.Questionnaire{
		ID:        uuid.NewString(),
		UserID:    userID,
		Answers:   answers,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.Questionnaires().Insert(ctx, &q); err != nil {
		return nil, fmt.Errorf("saving questionnaire: %w", err)
	}

	if s.publisher != nil {
		ev := events.QuestionnaireSubmitted{QuestionnaireID: q.ID, UserID: userID, SubmittedAt: q.CreatedAt}
		if err := s.publisher.Publish(ctx, events.TopicQuestionnaireSubmitted, ev); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("questionnaire_id", q.ID).Msg("questionnaire event not published")
		}
	}

	if previous == nil {
		previous = []db.Questionnaire{}
	}
	return &Submission{Questionnaire: q, Previous: previous}, nil
}

// List returns the user's questionnaires, newest first. limit <= 0 returns
// all of them.
func (s *Service) List(ctx context.Context, userID string, limit int) ([]db.Questionnaire, error) {
	list, err := s.store.Questionnaires().ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing questionnaires: %w", err)
	}
	return list, nil
}
