package handlers

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-analyst/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-analyst/pkg/logging"
	"github.com/ekaya-inc/ekaya-analyst/pkg/models"
	"github.com/ekaya-inc/ekaya-analyst/pkg/services"
)

// ResolveRequest is the body of POST /api/resolve.
type ResolveRequest struct {
	Question string                    `json:"question"`
	History  []models.ConversationTurn `json:"history,omitempty"`
	UseCache *bool                     `json:"use_cache,omitempty"` // defaults to true
}

// InsightsRequest is the body of POST /api/insights.
// Result is normally the data of a previous /api/resolve response.
type InsightsRequest struct {
	Question string                   `json:"question"`
	Result   *models.ResolutionResult `json:"result"`
}

// InsightsResponse carries the narrative summary.
type InsightsResponse struct {
	Insights string `json:"insights"`
}

// PerformanceRecommendationsResponse wraps the recommendation list.
type PerformanceRecommendationsResponse struct {
	Recommendations []string `json:"recommendations"`
}

// AnalystHandler exposes question resolution, insights, and the cache and
// performance controls of a QueryResolver.
type AnalystHandler struct {
	resolver services.QueryResolver
	logger   *zap.Logger
}

func NewAnalystHandler(resolver services.QueryResolver, logger *zap.Logger) *AnalystHandler {
	return &AnalystHandler{
		resolver: resolver,
		logger:   logger.Named("analyst-handler"),
	}
}

// RegisterRoutes registers the analyst handler's routes on the given mux.
func (h *AnalystHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/resolve", h.Resolve)
	mux.HandleFunc("POST /api/insights", h.Insights)

	mux.HandleFunc("GET /api/cache/stats", h.CacheStats)
	mux.HandleFunc("DELETE /api/cache", h.ClearCache)

	mux.HandleFunc("GET /api/performance/stats", h.PerformanceStats)
	mux.HandleFunc("GET /api/performance/recommendations", h.PerformanceRecommendations)
	mux.HandleFunc("DELETE /api/performance", h.ClearPerformance)
}

// Resolve handles POST /api/resolve.
// Pipeline failures are reported in the envelope with status 200; the HTTP
// status only reflects malformed requests.
func (h *AnalystHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	var req ResolveRequest
	if err := decodeBody(r, &req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	question := strings.TrimSpace(req.Question)
	if question == "" {
		if err := ErrorResponse(w, http.StatusBadRequest, "missing_question", apperrors.ErrEmptyQuestion.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	useCache := req.UseCache == nil || *req.UseCache
	result := h.resolver.Resolve(r.Context(), question, req.History, useCache)

	if !result.Success {
		h.logger.Info("Question not resolved",
			zap.String("failure", string(result.Failure)),
			zap.String("sql", logging.SanitizeQuery(result.SQLText())),
			zap.String("error", result.Error))
	}

	response := ApiResponse{Success: result.Success, Data: result, Error: result.Error}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Insights handles POST /api/insights.
func (h *AnalystHandler) Insights(w http.ResponseWriter, r *http.Request) {
	var req InsightsRequest
	if err := decodeBody(r, &req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if strings.TrimSpace(req.Question) == "" {
		if err := ErrorResponse(w, http.StatusBadRequest, "missing_question", apperrors.ErrEmptyQuestion.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	text := h.resolver.GenerateInsights(r.Context(), req.Question, req.Result)

	response := ApiResponse{Success: true, Data: InsightsResponse{Insights: text}}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// CacheStats handles GET /api/cache/stats.
func (h *AnalystHandler) CacheStats(w http.ResponseWriter, r *http.Request) {
	response := ApiResponse{Success: true, Data: h.resolver.CacheStats()}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// ClearCache handles DELETE /api/cache.
func (h *AnalystHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	h.resolver.ClearCache()
	h.logger.Info("Result cache cleared")

	response := ApiResponse{Success: true, Message: "Cache cleared"}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// PerformanceStats handles GET /api/performance/stats.
func (h *AnalystHandler) PerformanceStats(w http.ResponseWriter, r *http.Request) {
	response := ApiResponse{Success: true, Data: h.resolver.PerformanceStats()}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// PerformanceRecommendations handles GET /api/performance/recommendations.
func (h *AnalystHandler) PerformanceRecommendations(w http.ResponseWriter, r *http.Request) {
	data := PerformanceRecommendationsResponse{Recommendations: h.resolver.PerformanceRecommendations()}
	if data.Recommendations == nil {
		data.Recommendations = []string{}
	}

	response := ApiResponse{Success: true, Data: data}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// ClearPerformance handles DELETE /api/performance.
func (h *AnalystHandler) ClearPerformance(w http.ResponseWriter, r *http.Request) {
	h.resolver.ClearPerformanceHistory()
	h.logger.Info("Performance history cleared")

	response := ApiResponse{Success: true, Message: "Performance history cleared"}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
