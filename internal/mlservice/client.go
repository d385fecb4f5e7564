// Package mlservice talks to the external recommendation model service.
// Every call is best-effort: callers treat errors as "no model output" and
// a circuit breaker stops hammering the service while it is down.
package mlservice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/justestif/go-spotify-taste-engine/internal/db"
	"github.com/justestif/go-spotify-taste-engine/internal/logging"
	"github.com/justestif/go-spotify-taste-engine/internal/metrics"
)

// Endpoints.
const (
	ProcessDataPath = "/api/process-data"
	RecommendPath   = "/api/recommend"
)

// Defaults.
const (
	DefaultTimeout          = 10 * time.Second
	DefaultFailureThreshold = 5
	DefaultOpenTimeout      = 30 * time.Second
)

// StatusError is returned when the service answers with a non-2xx status.
type StatusError struct {
	Endpoint string
	Status   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("ml service %s returned status %d", e.Endpoint, e.Status)
}

// Client calls the ML service.
type Client struct {
	http             *resty.Client
	breaker          *gobreaker.CircuitBreaker[struct{}]
	timeout          time.Duration
	failureThreshold uint32
	openTimeout      time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithFailureThreshold sets how many consecutive failures open the breaker.
func WithFailureThreshold(n uint32) Option {
	return func(c *Client) {
		c.failureThreshold = n
	}
}

// WithOpenTimeout sets how long the breaker stays open before probing.
func WithOpenTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.openTimeout = d
	}
}

// New creates a client for the service at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		timeout:          DefaultTimeout,
		failureThreshold: DefaultFailureThreshold,
		openTimeout:      DefaultOpenTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.http = resty.New().
		SetBaseURL(baseURL).
		SetTimeout(c.timeout).
		SetHeader("Content-Type", "application/json").
		SetJSONMarshaler(json.Marshal).
		SetJSONUnmarshaler(json.Unmarshal)

	threshold := c.failureThreshold
	c.breaker = gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "ml-service",
		MaxRequests: 1,
		Timeout:     c.openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	})
	return c
}

// State returns the breaker state.
func (c *Client) State() gobreaker.State {
	return c.breaker.State()
}

// Payload is everything the model needs to learn from a new questionnaire.
type Payload struct {
	UserID                 string             `json:"userId"`
	CurrentQuestionnaire   db.Questionnaire   `json:"currentQuestionnaire"`
	PreviousQuestionnaires []db.Questionnaire `json:"previousQuestionnaires"`
	Preferences            []db.Preference    `json:"preferences"`
	InteractedSongs        []db.Song          `json:"interactedSongs"`
	TotalSongsInDB         int64              `json:"totalSongsInDb"`
}

// ProcessData sends a user's training data to the service.
func (c *Client) ProcessData(ctx context.Context, p *Payload) error {
	return c.post(ctx, ProcessDataPath, p, nil)
}

// RecommendRequest asks for scored songs matching a playlist request.
type RecommendRequest struct {
	UserID          string `json:"userId"`
	QuestionnaireID string `json:"questionnaireId,omitempty"`
	Mood            string `json:"mood"`
	Activity        string `json:"activity"`
	Tempo           string `json:"tempo"`
	Discovery       string `json:"discovery"`
	Limit           int    `json:"limit"`
}

// ScoredSong is one model suggestion.
type ScoredSong struct {
	SongID string  `json:"songId"`
	Score  float64 `json:"score"`
}

type recommendResponse struct {
	Recommendations []ScoredSong `json:"recommendations"`
}

// Recommend returns the model's scored songs for req, best first.
func (c *Client) Recommend(ctx context.Context, req RecommendRequest) ([]ScoredSong, error) {
	var out recommendResponse
	if err := c.post(ctx, RecommendPath, req, &out); err != nil {
		return nil, err
	}
	return out.Recommendations, nil
}

func (c *Client) post(ctx context.Context, endpoint string, body, result any) error {
	_, err := c.breaker.Execute(func() (struct{}, error) {
		req := c.http.R().SetContext(ctx).SetBody(body)
		if result != nil {
			req.SetResult(result)
		}
		resp, err := req.Post(endpoint)
		if err != nil {
			return struct{}{}, fmt.Errorf("calling ml service %s: %w", endpoint, err)
		}
		if resp.IsError() {
			return struct{}{}, &StatusError{Endpoint: endpoint, Status: resp.StatusCode()}
		}
		return struct{}{}, nil
	})

	switch {
	case err == nil:
		metrics.MLRequests.WithLabelValues(endpoint, "success").Inc()
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.MLRequests.WithLabelValues(endpoint, "rejected").Inc()
	default:
		metrics.MLRequests.WithLabelValues(endpoint, "failure").Inc()
	}
	return err
}
