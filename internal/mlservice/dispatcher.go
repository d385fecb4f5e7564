package mlservice

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/justestif/go-spotify-taste-engine/internal/db"
	"github.com/justestif/go-spotify-taste-engine/internal/events"
	"github.com/justestif/go-spotify-taste-engine/internal/logging"
)

// Processor accepts training data.
type Processor interface {
	ProcessData(ctx context.Context, p *Payload) error
}

// Dispatcher forwards submitted questionnaires to the ML service.
type Dispatcher struct {
	store     db.Store
	processor Processor
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(store db.Store, processor Processor) *Dispatcher {
	return &Dispatcher{store: store, processor: processor}
}

// Register subscribes the dispatcher to questionnaire submissions.
func (d *Dispatcher) Register(bus *events.Bus) {
	bus.Handle("ml.process-data", events.TopicQuestionnaireSubmitted, d.Handle)
}

// Handle processes one submission event. Failures are logged and the event
// is acknowledged anyway; the ML service is never retried from here.
func (d *Dispatcher) Handle(ctx context.Context, msg *message.Message) error {
	var ev events.QuestionnaireSubmitted
	if err := events.Decode(msg, &ev); err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("dropping malformed questionnaire event")
		return nil
	}
	log := logging.Ctx(ctx).With().
		Str("user_id", ev.UserID).
		Str("questionnaire_id", ev.QuestionnaireID).
		Logger()

	payload, err := d.BuildPayload(ctx, ev)
	if err != nil {
		log.Error().Err(err).Msg("building ml payload")
		return nil
	}
	if err := d.processor.ProcessData(ctx, payload); err != nil {
		log.Warn().Err(err).Msg("ml service did not accept data")
		return nil
	}

	log.Info().
		Int("preferences", len(payload.Preferences)).
		Int("previous_questionnaires", len(payload.PreviousQuestionnaires)).
		Msg("sent data to ml service")
	return nil
}

// BuildPayload gathers the user's history for the questionnaire in ev.
func (d *Dispatcher) BuildPayload(ctx context.Context, ev events.QuestionnaireSubmitted) (*Payload, error) {
	current, err := d.store.Questionnaires().Get(ctx, ev.QuestionnaireID, ev.UserID)
	if err != nil {
		return nil, fmt.Errorf("loading questionnaire: %w", err)
	}

	all, err := d.store.Questionnaires().ListByUser(ctx, ev.UserID, 0)
	if err != nil {
		return nil, fmt.Errorf("listing questionnaires: %w", err)
	}
	previous := make([]db.Questionnaire, 0, len(all))
	for _, q := range all {
		if q.ID != current.ID {
			previous = append(previous, q)
		}
	}

	prefs, err := d.store.Preferences().ListByUser(ctx, ev.UserID)
	if err != nil {
		return nil, fmt.Errorf("listing preferences: %w", err)
	}
	ids := make([]string, 0, len(prefs))
	seen := make(map[string]bool)
	for _, p := range prefs {
		if !seen[p.SongID] {
			seen[p.SongID] = true
			ids = append(ids, p.SongID)
		}
	}

	songs, err := d.store.Songs().GetMany(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("loading interacted songs: %w", err)
	}
	total, err := d.store.Songs().Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting songs: %w", err)
	}

	if prefs == nil {
		prefs = []db.Preference{}
	}
	if songs == nil {
		songs = []db.Song{}
	}
	return &Payload{
		UserID:                 ev.UserID,
		CurrentQuestionnaire:   *current,
		PreviousQuestionnaires: previous,
		Preferences:            prefs,
		InteractedSongs:        songs,
		TotalSongsInDB:         total,
	}, nil
}
