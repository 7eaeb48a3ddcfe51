// Package api maps the risk engine surface onto JSON endpoints.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/vitalsight-ai/platform/pkg/api/metrics"
	"github.com/vitalsight-ai/platform/pkg/common/logger"
	"github.com/vitalsight-ai/platform/pkg/common/models"
	"github.com/vitalsight-ai/platform/pkg/patient"
	"github.com/vitalsight-ai/platform/pkg/risk"
)

type Handler struct {
	service *risk.Service
}

func NewHandler(service *risk.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/patients/{id}/predict", h.handlePredict).Methods(http.MethodPost)
	r.HandleFunc("/patients/{id}/predictions", h.handleListPredictions).Methods(http.MethodGet)
	r.HandleFunc("/patients/{id}/report", h.handleReport).Methods(http.MethodGet)
	r.HandleFunc("/predictions/batch", h.handleBatchPredict).Methods(http.MethodPost)
	r.HandleFunc("/predictions/{id}/explanation", h.handleExplain).Methods(http.MethodGet)
	r.HandleFunc("/score", h.handleScore).Methods(http.MethodPost)
	r.HandleFunc("/explainability/global-importance", h.handleGlobalImportance).Methods(http.MethodGet)
	r.HandleFunc("/explainability/features/{name}", h.handleFeatureAnalysis).Methods(http.MethodGet)
	r.HandleFunc("/models/status", h.handleModelStatus).Methods(http.MethodGet)
}

type predictRequest struct {
	PredictionType string `json:"prediction_type"`
	WindowDays     int    `json:"prediction_window"`
}

func (h *Handler) handlePredict(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	publicID := mux.Vars(r)["id"]

	var req predictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	record, err := h.service.PredictRisk(r.Context(), publicID, req.PredictionType, req.WindowDays)
	metrics.ObservePrediction(err != nil)
	if err != nil {
		if errors.Is(err, risk.ErrPersistence) {
			// Score computed but not recorded; hand it back flagged.
			logger.Log.WithError(err).WithField("patient_id", publicID).Error("prediction not persisted")
			writeJSONStatus(w, http.StatusAccepted, record)
			return
		}
		h.writeError(w, err, "prediction failed")
		return
	}

	writeJSON(w, record)
}

func (h *Handler) handleListPredictions(w http.ResponseWriter, r *http.Request) {
	publicID := mux.Vars(r)["id"]
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	records, err := h.service.ListPredictions(r.Context(), publicID, limit)
	if err != nil {
		h.writeError(w, err, "failed to list predictions")
		return
	}
	writeJSON(w, records)
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	publicID := mux.Vars(r)["id"]
	includeRecommendations := r.URL.Query().Get("include_recommendations") != "false"

	report, err := h.service.GeneratePatientReport(r.Context(), publicID, includeRecommendations)
	if err != nil {
		h.writeError(w, err, "failed to generate report")
		return
	}
	writeJSON(w, report)
}

type batchPredictRequest struct {
	PatientIDs     []string `json:"patient_ids"`
	PredictionType string   `json:"prediction_type"`
}

func (h *Handler) handleBatchPredict(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var req batchPredictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	metrics.ObserveBatchRun()
	outcome, err := h.service.BatchPredict(r.Context(), req.PatientIDs, req.PredictionType)
	if err != nil {
		h.writeError(w, err, "batch prediction failed")
		return
	}
	writeJSON(w, outcome)
}

func (h *Handler) handleExplain(w http.ResponseWriter, r *http.Request) {
	predictionID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid prediction id", http.StatusBadRequest)
		return
	}

	explanation, err := h.service.ExplainPrediction(r.Context(), predictionID)
	if err != nil {
		h.writeError(w, err, "failed to explain prediction")
		return
	}
	metrics.ObserveExplanation()
	writeJSON(w, explanation)
}

type scoreRequest struct {
	PatientID string               `json:"patient_id"`
	Features  models.FeatureVector `json:"features"`
}

type scoreResponse struct {
	Score       models.RiskScore      `json:"score"`
	Attribution models.AttributionSet `json:"feature_importance"`
}

// handleScore computes an unpersisted what-if score from a supplied vector.
// An optional patient_id prefills gaps from that patient's cached vector.
func (h *Handler) handleScore(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var req scoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	score, attribution, err := h.service.ScoreVector(r.Context(), req.PatientID, req.Features)
	if err != nil {
		h.writeError(w, err, "scoring failed")
		return
	}
	writeJSON(w, scoreResponse{Score: score, Attribution: attribution})
}

func (h *Handler) handleGlobalImportance(w http.ResponseWriter, r *http.Request) {
	predictionType := r.URL.Query().Get("type")
	topN, _ := strconv.Atoi(r.URL.Query().Get("top_n"))

	writeJSON(w, h.service.GetGlobalFeatureImportance(predictionType, topN))
}

func (h *Handler) handleFeatureAnalysis(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.service.AnalyzeFeature(mux.Vars(r)["name"]))
}

func (h *Handler) handleModelStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.service.ModelStatus())
}

func (h *Handler) writeError(w http.ResponseWriter, err error, message string) {
	switch {
	case errors.Is(err, patient.ErrPatientNotFound):
		http.Error(w, "patient not found", http.StatusNotFound)
	case errors.Is(err, patient.ErrPredictionNotFound):
		http.Error(w, "prediction not found", http.StatusNotFound)
	default:
		logger.Log.WithError(err).Error(message)
		http.Error(w, message, http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, payload interface{}) {
	writeJSONStatus(w, http.StatusOK, payload)
}

func writeJSONStatus(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Log.WithError(err).Error("failed to encode response")
	}
}
