package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/ayusman/senas/internal/app"
	"github.com/ayusman/senas/internal/emotion"
	"github.com/ayusman/senas/internal/logging"
	"github.com/ayusman/senas/testdata"
)

func newTestApp(t *testing.T, withModel bool, det emotion.Detector) *app.App {
	t.Helper()
	cfg := app.Config{Detector: det, Logger: logging.Discard(), Threshold: 0.2}
	if withModel {
		m, err := testdata.LoadModel(testdata.GoldenModel)
		if err != nil {
			t.Fatalf("failed to load model: %v", err)
		}
		cfg.Model = m
	}
	return app.New(cfg)
}

func TestServer_Health(t *testing.T) {
	s := New(Config{Logger: logging.Discard()})

	t.Run("returns 200 with JSON response", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
		}

		contentType := rec.Header().Get("Content-Type")
		if contentType != "application/json" {
			t.Errorf("expected Content-Type application/json, got %s", contentType)
		}

		var response map[string]interface{}
		if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}

		if response["status"] != "ok" {
			t.Errorf("expected status 'ok', got %v", response["status"])
		}

		for _, field := range []string{"uptime", "model_loaded", "classes", "detector_loaded"} {
			if _, exists := response[field]; !exists {
				t.Errorf("expected %q field in response", field)
			}
		}
		if response["model_loaded"] != false {
			t.Errorf("expected model_loaded false, got %v", response["model_loaded"])
		}
	})

	t.Run("reports loaded models", func(t *testing.T) {
		s := New(Config{App: newTestApp(t, true, emotion.NewMockDetector()), Logger: logging.Discard()})

		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		var response healthResponse
		if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if !response.ModelLoaded || !response.DetectorLoaded {
			t.Errorf("expected both models loaded, got %+v", response)
		}
		if response.ModelType != "logistic_regression" {
			t.Errorf("expected logistic_regression, got %s", response.ModelType)
		}
		if len(response.Classes) != 3 {
			t.Errorf("expected 3 classes, got %v", response.Classes)
		}
	})

	t.Run("only allows GET method", func(t *testing.T) {
		methods := []string{http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch}

		for _, method := range methods {
			req := httptest.NewRequest(method, "/api/health", nil)
			rec := httptest.NewRecorder()

			s.ServeHTTP(rec, req)

			if rec.Code != http.StatusMethodNotAllowed {
				t.Errorf("method %s: expected status %d, got %d", method, http.StatusMethodNotAllowed, rec.Code)
			}
		}
	})
}

func TestServer_PredictRoutes(t *testing.T) {
	s := New(Config{App: newTestApp(t, true, emotion.NewMockDetector()), Logger: logging.Discard()})
	body := `{"features": [` + strings.TrimSuffix(strings.Repeat("0,", 63), ",") + `]}`

	for _, path := range []string{"/api/predict/", "/api/predict"} {
		t.Run(path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
			rec := httptest.NewRecorder()

			s.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
			}

			var got app.SignResult
			if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if got.Label != "A" {
				t.Errorf("expected A, got %s", got.Label)
			}
		})
	}

	jpegData, err := testdata.BlackJPEG(1, 1)
	if err != nil {
		t.Fatalf("failed to build jpeg: %v", err)
	}
	emotionBody, _ := json.Marshal(map[string]string{"image_b64": testdata.DataURL("image/jpeg", jpegData)})

	for _, path := range []string{"/api/predict_emotion/", "/api/predict_emotion"} {
		t.Run(path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(string(emotionBody)))
			rec := httptest.NewRecorder()

			s.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
			}

			var got app.EmotionResult
			if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if got.Emotion != app.NoFace {
				t.Errorf("expected %q, got %q", app.NoFace, got.Emotion)
			}
		})
	}
}

func TestServer_UnsetModelsReturn500(t *testing.T) {
	s := New(Config{Logger: logging.Discard()})

	for _, path := range []string{"/api/predict/", "/api/predict_emotion/"} {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{}`))
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("%s: expected status %d, got %d", path, http.StatusInternalServerError, rec.Code)
		}
	}
}

func TestServer_HistoryRouteRequiresStore(t *testing.T) {
	s := New(Config{App: newTestApp(t, true, nil), Logger: logging.Discard()})

	req := httptest.NewRequest(http.MethodGet, "/api/predictions/", nil)
	rec := httptest.NewRecorder()

	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestServer_NotFound(t *testing.T) {
	s := New(Config{Logger: logging.Discard()})

	req := httptest.NewRequest(http.MethodGet, "/api/nonexistent", nil)
	rec := httptest.NewRecorder()

	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestServer_Middleware(t *testing.T) {
	s := New(Config{Logger: logging.Discard()})

	t.Run("generates request id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Header().Get(RequestIDHeader) == "" {
			t.Error("expected a generated request id")
		}
	})

	t.Run("echoes request id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		req.Header.Set(RequestIDHeader, "client-id-1")
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if got := rec.Header().Get(RequestIDHeader); got != "client-id-1" {
			t.Errorf("expected client-id-1, got %q", got)
		}
	})

	t.Run("answers CORS preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/predict/", nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Errorf("expected status %d, got %d", http.StatusNoContent, rec.Code)
		}
		if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
			t.Error("expected Access-Control-Allow-Origin *")
		}
	})
}

func TestServer_StaticFiles(t *testing.T) {
	tmpDir := t.TempDir()

	testContent := "<html><body>Hello, World!</body></html>"
	if err := os.WriteFile(filepath.Join(tmpDir, "index.html"), []byte(testContent), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	cssContent := "body { color: red; }"
	if err := os.WriteFile(filepath.Join(tmpDir, "style.css"), []byte(cssContent), 0644); err != nil {
		t.Fatalf("failed to create test CSS file: %v", err)
	}

	s := New(Config{StaticDir: tmpDir, Logger: logging.Discard()})

	t.Run("serves index.html at root path", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
		}

		if rec.Body.String() != testContent {
			t.Errorf("expected body %q, got %q", testContent, rec.Body.String())
		}
	})

	t.Run("serves static files from configured directory", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/style.css", nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Body.String() != cssContent {
			t.Errorf("expected body %q, got %q", cssContent, rec.Body.String())
		}
	})

	t.Run("returns 404 for non-existent static files", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/nonexistent.html", nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
		}
	})
}

func TestServer_EmbeddedAssets(t *testing.T) {
	assets := fstest.MapFS{
		"index.html": {Data: []byte("<html>embedded</html>")},
	}
	s := New(Config{Assets: assets, Logger: logging.Discard()})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "embedded") {
		t.Errorf("expected embedded index, got %q", rec.Body.String())
	}
}

func TestServer_NoStaticDir(t *testing.T) {
	s := New(Config{Logger: logging.Discard()})

	t.Run("root path returns 404 when no static assets configured", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
		}
	})
}

func TestNew(t *testing.T) {
	t.Run("creates server with config", func(t *testing.T) {
		cfg := Config{StaticDir: "/some/path"}
		s := New(cfg)

		if s == nil {
			t.Fatal("expected non-nil server")
		}

		if s.config.StaticDir != cfg.StaticDir {
			t.Errorf("expected StaticDir %s, got %s", cfg.StaticDir, s.config.StaticDir)
		}
		if s.config.MaxBodyBytes <= 0 {
			t.Error("expected a default body limit")
		}
	})

	t.Run("server implements http.Handler", func(t *testing.T) {
		s := New(Config{})
		var _ http.Handler = s
	})
}
