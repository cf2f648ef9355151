package api

import (
	"log/slog"
	"net/http"

	"github.com/ayusman/senas/internal/app"
)

const msgBadImage = "image_b64 must be a base64 data URL"

type emotionRequest struct {
	ImageB64 string `json:"image_b64"`
}

// EmotionHandler serves POST /api/predict_emotion/.
type EmotionHandler struct {
	app      *app.App
	logger   *slog.Logger
	maxBytes int64
}

// NewEmotionHandler creates a new EmotionHandler.
func NewEmotionHandler(a *app.App, logger *slog.Logger, maxBytes int64) *EmotionHandler {
	return &EmotionHandler{app: a, logger: logger, maxBytes: maxBytes}
}

// ServeHTTP implements the http.Handler interface.
func (h *EmotionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	if h.app == nil || h.app.Detector() == nil {
		writeError(w, http.StatusInternalServerError, msgUnavailable)
		return
	}

	var req emotionRequest
	if err := decodeJSON(w, r, h.maxBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	result, err := h.app.PredictEmotion(r.Context(), req.ImageB64)
	if err != nil {
		writeAppError(w, r, h.logger, err, msgBadImage)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
