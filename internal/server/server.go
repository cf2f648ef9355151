// Package server provides the HTTP server for the sign and emotion prediction service.
package server

import (
	"encoding/json"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/ayusman/senas/internal/app"
	"github.com/ayusman/senas/internal/config"
	"github.com/ayusman/senas/internal/server/api"
)

// Config holds the server configuration.
type Config struct {
	// StaticDir serves the browser shell from disk. It takes precedence over Assets.
	StaticDir string

	// Assets serves the browser shell from an embedded filesystem.
	Assets fs.FS

	App          *app.App
	Logger       *slog.Logger
	MaxBodyBytes int64
}

// Server represents the HTTP server for the prediction service.
type Server struct {
	config  Config
	mux     *http.ServeMux
	handler http.Handler
	logger  *slog.Logger
	start   time.Time
}

// New creates a new Server with the given configuration.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = config.DefaultMaxBodyBytes
	}

	s := &Server{
		config: cfg,
		mux:    http.NewServeMux(),
		logger: logger,
		start:  time.Now(),
	}
	s.setupRoutes()
	s.handler = requestID(accessLog(logger, cors(s.mux)))
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	predict := api.NewPredictHandler(s.config.App, s.logger, s.config.MaxBodyBytes)
	s.mux.Handle("/api/predict", predict)
	s.mux.Handle("/api/predict/", predict)

	emotion := api.NewEmotionHandler(s.config.App, s.logger, s.config.MaxBodyBytes)
	s.mux.Handle("/api/predict_emotion", emotion)
	s.mux.Handle("/api/predict_emotion/", emotion)

	// Register history API handler if a Store is configured
	if s.config.App != nil && s.config.App.Store() != nil {
		history := api.NewHistoryHandler(s.config.App.Store(), s.logger)
		s.mux.Handle("/api/predictions", history)
		s.mux.Handle("/api/predictions/", history)
	}

	s.mux.Handle("/api/stream", NewStreamHandler(s.config.App, s.logger, s.config.MaxBodyBytes))

	// Serve the browser shell from disk or the embedded assets
	switch {
	case s.config.StaticDir != "":
		s.mux.Handle("/", http.FileServer(http.Dir(s.config.StaticDir)))
	case s.config.Assets != nil:
		s.mux.Handle("/", http.FileServerFS(s.config.Assets))
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

type healthResponse struct {
	Status         string   `json:"status"`
	Uptime         string   `json:"uptime"`
	ModelLoaded    bool     `json:"model_loaded"`
	ModelType      string   `json:"model_type,omitempty"`
	ModelSource    string   `json:"model_source,omitempty"`
	Classes        []string `json:"classes"`
	DetectorLoaded bool     `json:"detector_loaded"`
	HistoryEnabled bool     `json:"history_enabled"`
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := healthResponse{
		Status:  "ok",
		Uptime:  time.Since(s.start).String(),
		Classes: []string{},
	}
	if s.config.App != nil {
		st := s.config.App.Status()
		response.ModelLoaded = st.ModelLoaded
		response.ModelType = st.ModelType
		response.ModelSource = st.ModelSource
		response.DetectorLoaded = st.DetectorLoaded
		response.HistoryEnabled = st.HistoryEnabled
		if st.Classes != nil {
			response.Classes = st.Classes
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}
