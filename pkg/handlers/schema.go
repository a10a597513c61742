package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-analyst/pkg/services"
)

// SchemaRefresher reloads the datasource schema and anything derived from it.
type SchemaRefresher interface {
	Refresh(ctx context.Context) error
}

// SchemaResponse is returned by GET /api/schema.
type SchemaResponse struct {
	Summary string `json:"summary"`
}

// SchemaHandler serves the schema summary the oracle sees.
type SchemaHandler struct {
	schema    services.SchemaSummarizer
	refresher SchemaRefresher
	logger    *zap.Logger
}

// NewSchemaHandler creates a SchemaHandler. refresher may be nil, in which
// case the refresh route is not registered.
func NewSchemaHandler(schema services.SchemaSummarizer, refresher SchemaRefresher, logger *zap.Logger) *SchemaHandler {
	return &SchemaHandler{
		schema:    schema,
		refresher: refresher,
		logger:    logger.Named("schema-handler"),
	}
}

// RegisterRoutes registers the schema handler's routes on the given mux.
func (h *SchemaHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/schema", h.Get)
	if h.refresher != nil {
		mux.HandleFunc("POST /api/schema/refresh", h.Refresh)
	}
}

// Get handles GET /api/schema.
func (h *SchemaHandler) Get(w http.ResponseWriter, r *http.Request) {
	summary, err := h.schema.SchemaSummary(r.Context())
	if err != nil {
		h.logger.Error("Failed to load schema summary", zap.Error(err))
		if err := ErrorResponse(w, http.StatusBadGateway, "schema_unavailable", "Failed to load datasource schema"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	response := ApiResponse{Success: true, Data: SchemaResponse{Summary: summary}}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Refresh handles POST /api/schema/refresh.
func (h *SchemaHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.refresher.Refresh(r.Context()); err != nil {
		h.logger.Error("Failed to refresh schema", zap.Error(err))
		if err := ErrorResponse(w, http.StatusBadGateway, "refresh_failed", "Failed to refresh datasource schema"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	h.logger.Info("Schema refreshed")
	response := ApiResponse{Success: true, Message: "Schema refreshed"}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
