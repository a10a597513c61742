package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-analyst/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-analyst/pkg/models"
	"github.com/ekaya-inc/ekaya-analyst/pkg/services"
)

// ListHistoryResponse is returned by GET /api/history.
type ListHistoryResponse struct {
	Entries []*models.QueryHistoryEntry `json:"entries"`
	Total   int                         `json:"total"`
}

// HistoryHandler lists persisted resolutions.
type HistoryHandler struct {
	service services.QueryHistoryService
	logger  *zap.Logger
}

// NewHistoryHandler creates a HistoryHandler. A nil service means history is
// disabled and every request is answered with 404.
func NewHistoryHandler(service services.QueryHistoryService, logger *zap.Logger) *HistoryHandler {
	return &HistoryHandler{
		service: service,
		logger:  logger.Named("history-handler"),
	}
}

// RegisterRoutes registers the history handler's routes on the given mux.
func (h *HistoryHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/history", h.List)
}

// List handles GET /api/history?tables=a,b&since=RFC3339&limit=n.
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		if err := ErrorResponse(w, http.StatusNotFound, "history_disabled", apperrors.ErrHistoryDisabled.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	filters, err := parseHistoryFilters(r)
	if err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_filter", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	entries, total, err := h.service.List(r.Context(), filters)
	if err != nil {
		if err := ErrorResponse(w, http.StatusInternalServerError, "list_failed", "Failed to list query history"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}
	if entries == nil {
		entries = []*models.QueryHistoryEntry{}
	}

	response := ApiResponse{Success: true, Data: ListHistoryResponse{Entries: entries, Total: total}}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

func parseHistoryFilters(r *http.Request) (models.QueryHistoryFilters, error) {
	q := r.URL.Query()
	var filters models.QueryHistoryFilters

	if tables := q.Get("tables"); tables != "" {
		for _, t := range strings.Split(tables, ",") {
			if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
				filters.TablesUsed = append(filters.TablesUsed, t)
			}
		}
	}

	if since := q.Get("since"); since != "" {
		ts, err := time.Parse(time.RFC3339, since)
		if err != nil {
			return filters, errors.New("since must be an RFC 3339 timestamp")
		}
		filters.Since = &ts
	}

	if limit := q.Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 0 {
			return filters, errors.New("limit must be a non-negative integer")
		}
		filters.Limit = n
	}

	return filters, nil
}
