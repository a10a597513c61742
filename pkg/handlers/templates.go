package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-analyst/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-analyst/pkg/services"
	"github.com/ekaya-inc/ekaya-analyst/pkg/templates"
)

// ListTemplatesResponse is returned by GET /api/templates.
type ListTemplatesResponse struct {
	Templates  []templates.Template `json:"templates"`
	Categories []string             `json:"categories"`
}

// RunTemplateRequest is the optional body of POST /api/templates/{id}/run.
type RunTemplateRequest struct {
	Limit int `json:"limit,omitempty"`
}

// TemplateHandler exposes the prebuilt query library.
type TemplateHandler struct {
	service services.TemplateService
	logger  *zap.Logger
}

func NewTemplateHandler(service services.TemplateService, logger *zap.Logger) *TemplateHandler {
	return &TemplateHandler{
		service: service,
		logger:  logger.Named("template-handler"),
	}
}

// RegisterRoutes registers the template handler's routes on the given mux.
func (h *TemplateHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/templates", h.List)
	mux.HandleFunc("GET /api/templates/{id}", h.Get)
	mux.HandleFunc("POST /api/templates/{id}/run", h.Run)
}

// List handles GET /api/templates?category=name.
func (h *TemplateHandler) List(w http.ResponseWriter, r *http.Request) {
	data := ListTemplatesResponse{
		Templates:  h.service.List(r.URL.Query().Get("category")),
		Categories: h.service.Categories(),
	}
	response := ApiResponse{Success: true, Data: data}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Get handles GET /api/templates/{id}.
func (h *TemplateHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	for _, t := range h.service.List("") {
		if t.ID == id {
			if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: t}); err != nil {
				h.logger.Error("Failed to write response", zap.Error(err))
			}
			return
		}
	}
	if err := ErrorResponse(w, http.StatusNotFound, "template_not_found", "Unknown template: "+id); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}

// Run handles POST /api/templates/{id}/run. Like /api/resolve, validation
// and execution failures come back in the envelope with status 200.
func (h *TemplateHandler) Run(w http.ResponseWriter, r *http.Request) {
	var req RunTemplateRequest
	if err := decodeBody(r, &req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	id := r.PathValue("id")
	result, err := h.service.Run(r.Context(), id, req.Limit)
	if errors.Is(err, apperrors.ErrNotFound) {
		if err := ErrorResponse(w, http.StatusNotFound, "template_not_found", "Unknown template: "+id); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}
	if err != nil {
		h.logger.Error("Template run failed", zap.String("template", id), zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "run_failed", "Failed to run template"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	response := ApiResponse{Success: result.Success, Data: result, Error: result.Error}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
