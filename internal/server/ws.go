package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/senas/internal/app"
	"github.com/ayusman/senas/internal/hand"
	"github.com/ayusman/senas/internal/logging"
	"github.com/ayusman/senas/internal/server/api"
)

const (
	streamWriteTimeout = 5 * time.Second
	streamIdleTimeout  = 2 * time.Minute

	msgBadStreamInput = "send 63 features or 21 landmarks"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow any origin
	},
}

type streamRequest struct {
	Features  []float64      `json:"features"`
	Landmarks []hand.Point3D `json:"landmarks"`
}

type streamError struct {
	Error string `json:"error"`
}

// StreamHandler answers sign predictions over a WebSocket, one reply per message.
type StreamHandler struct {
	app      *app.App
	logger   *slog.Logger
	maxBytes int64
}

// NewStreamHandler creates a new StreamHandler.
func NewStreamHandler(a *app.App, logger *slog.Logger, maxBytes int64) *StreamHandler {
	return &StreamHandler{app: a, logger: logger, maxBytes: maxBytes}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade error", "err", err)
		return
	}
	defer conn.Close()

	if h.maxBytes > 0 {
		conn.SetReadLimit(h.maxBytes)
	}

	requestID := logging.RequestID(r.Context())
	h.logger.Debug("stream opened", "request_id", requestID, "remote", r.RemoteAddr)

	for {
		conn.SetReadDeadline(time.Now().Add(streamIdleTimeout))
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("stream closed", "request_id", requestID, "err", err)
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		reply := h.handleMessage(r, data)

		conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
		if err := conn.WriteJSON(reply); err != nil {
			h.logger.Debug("stream write failed", "request_id", requestID, "err", err)
			return
		}
	}
}

// handleMessage turns one stream message into a prediction or an error reply.
func (h *StreamHandler) handleMessage(r *http.Request, data []byte) any {
	if h.app == nil {
		_, msg := api.ErrorStatus(&app.Error{Kind: app.KindUnavailable, Op: "stream"}, msgBadStreamInput)
		return streamError{Error: msg}
	}

	var req streamRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return streamError{Error: "invalid JSON"}
	}

	var (
		result app.SignResult
		err    error
	)
	switch {
	case req.Landmarks != nil:
		result, err = h.app.PredictLandmarks(r.Context(), req.Landmarks)
	case req.Features != nil:
		result, err = h.app.PredictSign(r.Context(), req.Features)
	default:
		err = &app.Error{Kind: app.KindValidation, Op: "stream", Err: errors.New("empty message")}
	}

	if err != nil {
		status, msg := api.ErrorStatus(err, msgBadStreamInput)
		if status >= http.StatusInternalServerError {
			h.logger.Error("stream prediction failed",
				"request_id", logging.RequestID(r.Context()),
				"err", err)
		}
		return streamError{Error: msg}
	}
	return result
}
