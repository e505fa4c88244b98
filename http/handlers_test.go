package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"housing/ml"
	"housing/service"
)

const examplePayload = `{"MedInc":3.5,"HouseAge":30.0,"AveRooms":6.0,"AveBedrms":1.0,"Population":800.0,"AveOccup":3.0,"Latitude":34.0,"Longitude":-118.0}`

func trainArtifact(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "artifacts", "housing_model.json")
	trainer := ml.NewTrainer(ml.TrainerConfig{
		Source:       ml.SyntheticSource{Rows: ml.DefaultSyntheticRows, Seed: ml.DefaultSeed},
		ArtifactPath: path,
		Seed:         ml.DefaultSeed,
	}, zaptest.NewLogger(t))
	if _, err := trainer.Train(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return path
}

// newTestServer initialises a model cache from artifactPath the way the
// serve command does.
func newTestServer(t *testing.T, artifactPath string) *Server {
	t.Helper()
	return newTestServerWithLogger(t, artifactPath, zaptest.NewLogger(t))
}

func newTestServerWithLogger(t *testing.T, artifactPath string, logger *zap.Logger) *Server {
	t.Helper()
	cache := ml.NewModelCache()
	if err := cache.Init(artifactPath); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(cache.Close)

	svc, err := service.New(cache, service.Config{PredictionCacheSize: 8}, logger)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	config := DefaultServerConfig()
	config.MaxBodyBytes = 4096
	return NewServer(config, svc, logger)
}

func doRequest(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)
	return rr
}

func TestHealthHandler(t *testing.T) {
	srv := newTestServer(t, filepath.Join(t.TempDir(), "missing.json"))

	rr := doRequest(t, srv, http.MethodGet, "/health", "")
	if rr.Code != http.StatusOK {
		t.Errorf("handler returned wrong status code: got %v want %v", rr.Code, http.StatusOK)
	}

	expected := `{"status":"ok","version":"0.1.0"}`
	if rr.Body.String() != expected+"\n" {
		t.Errorf("handler returned unexpected body: got %v want %v", rr.Body.String(), expected)
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("expected request id header")
	}
}

func TestPredictWithoutArtifact(t *testing.T) {
	srv := newTestServer(t, filepath.Join(t.TempDir(), "missing.json"))

	if rr := doRequest(t, srv, http.MethodGet, "/health", ""); rr.Code != http.StatusOK {
		t.Fatalf("expected 200 from health, got %d", rr.Code)
	}

	rr := doRequest(t, srv, http.MethodPost, "/predict", examplePayload)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d: %s", rr.Code, rr.Body.String())
	}
	var payload map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if payload["detail"] != notReadyDetail {
		t.Fatalf("unexpected detail: %v", payload["detail"])
	}
}

func TestPredictWithArtifact(t *testing.T) {
	srv := newTestServer(t, trainArtifact(t))

	rr := doRequest(t, srv, http.MethodPost, "/predict", examplePayload)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var payload map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if _, ok := payload["predicted_price"].(float64); !ok {
		t.Fatalf("expected float predicted_price, got %v", payload)
	}
}

func TestPredictMissingFieldWithArtifact(t *testing.T) {
	srv := newTestServer(t, trainArtifact(t))

	body := `{"MedInc":3.5,"HouseAge":30.0,"AveRooms":6.0,"AveBedrms":1.0,"Population":800.0,"AveOccup":3.0,"Latitude":34.0}`
	rr := doRequest(t, srv, http.MethodPost, "/predict", body)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rr.Code, rr.Body.String())
	}

	var payload struct {
		Detail []service.Issue `json:"detail"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(payload.Detail) != 1 || payload.Detail[0].Loc[1] != "Longitude" || payload.Detail[0].Type != "missing" {
		t.Fatalf("unexpected detail: %+v", payload.Detail)
	}
}

func TestPredictInvalidInputWithoutArtifact(t *testing.T) {
	srv := newTestServer(t, filepath.Join(t.TempDir(), "missing.json"))

	rr := doRequest(t, srv, http.MethodPost, "/predict", `{"MedInc":"lots"}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 before model lookup, got %d", rr.Code)
	}
}

func TestPredictMalformedJSON(t *testing.T) {
	srv := newTestServer(t, trainArtifact(t))

	rr := doRequest(t, srv, http.MethodPost, "/predict", `{"MedInc":`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rr.Code)
	}
}

func TestPredictBodyTooLarge(t *testing.T) {
	srv := newTestServer(t, trainArtifact(t))

	body := `{"MedInc":"` + string(bytes.Repeat([]byte("1"), 8192)) + `"}`
	rr := doRequest(t, srv, http.MethodPost, "/predict", body)
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", rr.Code)
	}
}

func TestPredictMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, trainArtifact(t))

	rr := doRequest(t, srv, http.MethodGet, "/predict", "")
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t, filepath.Join(t.TempDir(), "missing.json"))

	req := httptest.NewRequest(http.MethodOptions, "/predict", nil)
	req.Header.Set("Origin", "http://example.com")
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
	if rr.Header().Get("Access-Control-Allow-Origin") != "http://example.com" {
		t.Fatalf("unexpected allow origin: %q", rr.Header().Get("Access-Control-Allow-Origin"))
	}
}
