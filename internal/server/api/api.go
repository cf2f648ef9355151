// Package api provides HTTP API handlers for the sign and emotion prediction service.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/ayusman/senas/internal/app"
	"github.com/ayusman/senas/internal/logging"
)

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code. A value that cannot
// be encoded is answered with a 500 before any header is sent.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	var body []byte
	if data != nil {
		var err error
		body, err = json.Marshal(data)
		if err != nil {
			slog.Error("failed to encode response", "status", status, "err", err)
			status = http.StatusInternalServerError
			body, _ = json.Marshal(errorResponse{Error: msgInternal})
		}
		body = append(body, '\n')
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func methodNotAllowed(w http.ResponseWriter, allow string) {
	w.Header().Set("Allow", allow)
	writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
}

// Public messages per error kind. Causes never reach the client.
const (
	msgUnavailable = "Model not loaded"
	msgDecode      = "Could not decode image"
	msgInference   = "Prediction failed"
	msgInternal    = "Internal error"
)

// ErrorStatus maps an app error to a status code and a fixed public message.
// validationMsg is used for validation errors.
func ErrorStatus(err error, validationMsg string) (int, string) {
	switch app.KindOf(err) {
	case app.KindValidation:
		return http.StatusBadRequest, validationMsg
	case app.KindDecode:
		return http.StatusInternalServerError, msgDecode
	case app.KindInference:
		return http.StatusInternalServerError, msgInference
	case app.KindUnavailable:
		return http.StatusInternalServerError, msgUnavailable
	default:
		return http.StatusInternalServerError, msgInternal
	}
}

// writeAppError writes the public form of err and logs the cause with the request ID.
func writeAppError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error, validationMsg string) {
	status, message := ErrorStatus(err, validationMsg)

	level := slog.LevelError
	if status < http.StatusInternalServerError {
		level = slog.LevelWarn
	}
	logger.Log(r.Context(), level, "request failed",
		"request_id", logging.RequestID(r.Context()),
		"path", r.URL.Path,
		"status", status,
		"err", err)

	writeError(w, status, message)
}

// decodeJSON reads a single JSON document of at most maxBytes into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, maxBytes int64, v any) error {
	body := r.Body
	if maxBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, maxBytes)
	}

	dec := json.NewDecoder(body)
	if err := dec.Decode(v); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("unexpected data after JSON body")
	}
	return nil
}
