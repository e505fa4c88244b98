package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"housing/ml"
	"housing/service"
)

const notReadyDetail = "model not loaded: run training first"

type handlers struct {
	svc          *service.Service
	logger       *zap.Logger
	maxBodyBytes int64
	streams      *streamRegistry
}

func newHandlers(svc *service.Service, logger *zap.Logger, maxBodyBytes int64) *handlers {
	return &handlers{
		svc:          svc,
		logger:       logger,
		maxBodyBytes: maxBodyBytes,
		streams:      newStreamRegistry(),
	}
}

func (h *handlers) register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("POST /predict", h.handlePredict)
	mux.HandleFunc("GET /ws/predict", h.handlePredictStream)
}

func (h *handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.svc.Health())
}

func (h *handlers) handlePredict(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondJSON(w, http.StatusRequestEntityTooLarge, errorBody{Detail: "request body too large"})
			return
		}
		respondJSON(w, http.StatusBadRequest, errorBody{Detail: "failed to read request body"})
		return
	}

	status, payload := h.predict(r, body)
	respondJSON(w, status, payload)
}

// predict maps the service outcome to a status code and response body.
func (h *handlers) predict(r *http.Request, body []byte) (int, any) {
	in, err := service.DecodeHouseInput(bytes.NewReader(body))
	if err == nil {
		var result service.PredictionResult
		result, err = h.svc.Predict(r.Context(), in)
		if err == nil {
			return http.StatusOK, result
		}
	}

	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity, errorBody{Detail: verr.Issues}
	case errors.Is(err, ml.ErrModelNotReady):
		h.logger.Warn("prediction requested without a loaded model", zap.String("request_id", GetRequestID(r.Context())))
		return http.StatusServiceUnavailable, errorBody{Detail: notReadyDetail}
	default:
		h.logger.Error("prediction failed", zap.Error(err), zap.String("request_id", GetRequestID(r.Context())))
		return http.StatusInternalServerError, errorBody{Detail: "internal server error"}
	}
}

type errorBody struct {
	Detail any `json:"detail"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
