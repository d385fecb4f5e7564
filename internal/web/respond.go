package web

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/justestif/go-spotify-taste-engine/internal/auth"
	"github.com/justestif/go-spotify-taste-engine/internal/db"
	"github.com/justestif/go-spotify-taste-engine/internal/logging"
	"github.com/justestif/go-spotify-taste-engine/internal/validation"
)

const maxBodyBytes = 1 << 20

type errorBody struct {
	Error  string             `json:"error"`
	Fields []validation.Error `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn().Err(err).Msg("writing response body")
	}
}

// writeError maps err onto a status code and a JSON error body.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var fieldErr *validation.Error
	var reqErr *validation.RequestError

	switch {
	case errors.Is(err, auth.ErrUnauthenticated):
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unauthenticated"})
	case errors.As(err, &reqErr):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "validation failed", Fields: reqErr.Errors})
	case errors.As(err, &fieldErr):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: fieldErr.Error()})
	case errors.Is(err, db.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
	default:
		logging.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal server error"})
	}
}

// decodeJSON reads a JSON request body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return validation.New("request body is required")
		}
		return validation.Newf("invalid JSON body: %v", err)
	}
	return nil
}

// queryLimit parses the optional non-negative "limit" query parameter.
func queryLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, &validation.Error{Field: "limit", Reason: "must be a non-negative integer"}
	}
	return n, nil
}
