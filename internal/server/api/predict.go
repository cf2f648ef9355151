package api

import (
	"log/slog"
	"net/http"

	"github.com/ayusman/senas/internal/app"
)

const msgBadFeatures = "features must be a list of 63 numbers"

type predictRequest struct {
	Features []float64 `json:"features"`
}

// PredictHandler serves POST /api/predict/.
type PredictHandler struct {
	app      *app.App
	logger   *slog.Logger
	maxBytes int64
}

// NewPredictHandler creates a new PredictHandler.
func NewPredictHandler(a *app.App, logger *slog.Logger, maxBytes int64) *PredictHandler {
	return &PredictHandler{app: a, logger: logger, maxBytes: maxBytes}
}

// ServeHTTP implements the http.Handler interface.
func (h *PredictHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	if h.app == nil || h.app.Model() == nil {
		writeError(w, http.StatusInternalServerError, msgUnavailable)
		return
	}

	var req predictRequest
	if err := decodeJSON(w, r, h.maxBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgBadFeatures)
		return
	}

	result, err := h.app.PredictSign(r.Context(), req.Features)
	if err != nil {
		writeAppError(w, r, h.logger, err, msgBadFeatures)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
