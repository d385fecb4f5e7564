package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/justestif/go-spotify-taste-engine/internal/auth"
	"github.com/justestif/go-spotify-taste-engine/internal/db"
	"github.com/justestif/go-spotify-taste-engine/internal/preferences"
	"github.com/justestif/go-spotify-taste-engine/internal/questionnaire"
	"github.com/justestif/go-spotify-taste-engine/internal/recommend"
	"github.com/justestif/go-spotify-taste-engine/internal/sampler"
	"github.com/justestif/go-spotify-taste-engine/internal/taste"
)

// Services are the domain services behind the API.
type Services struct {
	Sampler         *sampler.Sampler
	Preferences     *preferences.Service
	Questionnaires  *questionnaire.Service
	Recommendations *recommend.Service
	Taste           *taste.Service
}

// Handlers contains HTTP handlers for the API.
type Handlers struct {
	svc Services
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(svc Services) *Handlers {
	return &Handlers{svc: svc}
}

// Health reports liveness (GET /healthz).
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// SampleSongs returns unrated songs to rate (GET /api/songs/sample).
func (h *Handlers) SampleSongs(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserID(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	limit, err := queryLimit(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	result, err := h.svc.Sampler.Sample(r.Context(), userID, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type preferenceRequest struct {
	SongID string             `json:"songId"`
	Rating preferences.Rating `json:"rating"`
}

type countResponse struct {
	Count int64 `json:"count"`
	Liked int64 `json:"liked,omitempty"`
}

// RecordPreference stores a rating (POST /api/preferences).
func (h *Handlers) RecordPreference(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserID(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req preferenceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	count, err := h.svc.Preferences.Record(r.Context(), userID, req.SongID, req.Rating)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, countResponse{Count: count})
}

// CountPreferences returns how many ratings the user has made
// (GET /api/preferences/count).
func (h *Handlers) CountPreferences(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserID(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	count, err := h.svc.Preferences.Count(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	liked, err := h.svc.Preferences.CountLiked(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, countResponse{Count: count, Liked: liked})
}

type questionnaireRequest struct {
	Answers []db.Answer `json:"answers"`
}

// SubmitQuestionnaire stores a questionnaire (POST /api/questionnaires).
func (h *Handlers) SubmitQuestionnaire(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserID(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req questionnaireRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	sub, err := h.svc.Questionnaires.Submit(r.Context(), userID, req.Answers)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

// ListQuestionnaires returns the user's submissions, newest first
// (GET /api/questionnaires).
func (h *Handlers) ListQuestionnaires(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserID(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	limit, err := queryLimit(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	list, err := h.svc.Questionnaires.List(r.Context(), userID, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if list == nil {
		list = []db.Questionnaire{}
	}
	writeJSON(w, http.StatusOK, list)
}

// GenerateRecommendation creates a playlist recommendation
// (POST /api/recommendations).
func (h *Handlers) GenerateRecommendation(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserID(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	var params recommend.Params
	if err := decodeJSON(w, r, &params); err != nil {
		writeError(w, r, err)
		return
	}

	rec, err := h.svc.Recommendations.Generate(r.Context(), userID, params)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// ListRecommendations returns the user's recommendations, newest first
// (GET /api/recommendations).
func (h *Handlers) ListRecommendations(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserID(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	limit, err := queryLimit(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	list, err := h.svc.Recommendations.List(r.Context(), userID, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if list == nil {
		list = []db.Recommendation{}
	}
	writeJSON(w, http.StatusOK, list)
}

// GetRecommendation returns one recommendation (GET /api/recommendations/{id}).
func (h *Handlers) GetRecommendation(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserID(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	rec, err := h.svc.Recommendations.Get(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

type renameRequest struct {
	PlaylistName string `json:"playlistName"`
}

// RenameRecommendation sets a playlist name
// (PATCH /api/recommendations/{id}).
func (h *Handlers) RenameRecommendation(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserID(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req renameRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	rec, err := h.svc.Recommendations.Rename(r.Context(), chi.URLParam(r, "id"), userID, req.PlaylistName)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// TasteProfile returns the user's taste clusters (GET /api/taste).
func (h *Handlers) TasteProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserID(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	profile, err := h.svc.Taste.Profile(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}
