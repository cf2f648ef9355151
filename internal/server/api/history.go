package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ayusman/senas/internal/store"
)

type predictionResponse struct {
	ID         string  `json:"id"`
	Kind       string  `json:"kind"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	RequestID  string  `json:"request_id,omitempty"`
	CreatedAt  string  `json:"created_at"`
}

type listPredictionsResponse struct {
	Predictions []predictionResponse `json:"predictions"`
	Total       int                  `json:"total"`
}

// toResponse converts a store.Prediction to a predictionResponse.
func toResponse(p *store.Prediction) predictionResponse {
	return predictionResponse{
		ID:         p.ID,
		Kind:       string(p.Kind),
		Label:      p.Label,
		Confidence: p.Confidence,
		RequestID:  p.RequestID,
		CreatedAt:  p.CreatedAt.Format(time.RFC3339),
	}
}

// HistoryHandler serves the recorded predictions.
type HistoryHandler struct {
	store  *store.Store
	logger *slog.Logger
}

// NewHistoryHandler creates a new HistoryHandler with the given store.
func NewHistoryHandler(s *store.Store, logger *slog.Logger) *HistoryHandler {
	return &HistoryHandler{store: s, logger: logger}
}

// ServeHTTP implements the http.Handler interface and routes requests to appropriate methods.
func (h *HistoryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Expected paths: /api/predictions or /api/predictions/{id}
	path := strings.TrimPrefix(r.URL.Path, "/api/predictions")
	path = strings.TrimPrefix(path, "/")

	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	if path == "" {
		h.list(w, r)
		return
	}
	h.get(w, r, path)
}

// list handles GET /api/predictions?kind=&limit=.
func (h *HistoryHandler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	kind := store.Kind(q.Get("kind"))
	if kind != "" && !kind.Valid() {
		writeError(w, http.StatusBadRequest, "kind must be sign or emotion")
		return
	}

	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	predictions, err := h.store.Predictions().List(r.Context(), kind, limit)
	if err != nil {
		h.logger.Error("failed to list predictions", "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to list predictions")
		return
	}

	total, err := h.store.Predictions().Count(r.Context(), kind)
	if err != nil {
		h.logger.Error("failed to count predictions", "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to list predictions")
		return
	}

	response := listPredictionsResponse{
		Predictions: make([]predictionResponse, 0, len(predictions)),
		Total:       total,
	}
	for _, p := range predictions {
		response.Predictions = append(response.Predictions, toResponse(p))
	}

	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/predictions/{id}.
func (h *HistoryHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	p, err := h.store.Predictions().GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Prediction not found")
			return
		}
		h.logger.Error("failed to get prediction", "id", id, "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to get prediction")
		return
	}

	writeJSON(w, http.StatusOK, toResponse(p))
}
