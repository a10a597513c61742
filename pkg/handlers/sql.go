package handlers

import (
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-analyst/pkg/apperrors"
	sqlutil "github.com/ekaya-inc/ekaya-analyst/pkg/sql"
)

// SQLRequest is the body of the /api/sql endpoints.
type SQLRequest struct {
	SQL string `json:"sql"`
	// ElapsedMs is an observed execution time; lint adds a speed rating when set.
	ElapsedMs int64 `json:"elapsed_ms,omitempty"`
}

// ExplainResponse pairs the explanation with the pipeline's complexity tag.
type ExplainResponse struct {
	sqlutil.Explanation
	ComplexityTag string `json:"complexity_tag"`
}

// SQLHandler runs the static SQL tools without touching the datasource.
type SQLHandler struct {
	validator *sqlutil.Validator
	logger    *zap.Logger
}

func NewSQLHandler(validator *sqlutil.Validator, logger *zap.Logger) *SQLHandler {
	if validator == nil {
		validator = sqlutil.NewValidator(nil)
	}
	return &SQLHandler{
		validator: validator,
		logger:    logger.Named("sql-handler"),
	}
}

// RegisterRoutes registers the SQL handler's routes on the given mux.
func (h *SQLHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/sql/validate", h.Validate)
	mux.HandleFunc("POST /api/sql/explain", h.Explain)
	mux.HandleFunc("POST /api/sql/lint", h.Lint)
}

// Validate handles POST /api/sql/validate.
func (h *SQLHandler) Validate(w http.ResponseWriter, r *http.Request) {
	req, ok := h.parseRequest(w, r)
	if !ok {
		return
	}

	verdict := h.validator.Validate(req.SQL)

	response := ApiResponse{Success: true, Data: verdict}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Explain handles POST /api/sql/explain.
func (h *SQLHandler) Explain(w http.ResponseWriter, r *http.Request) {
	req, ok := h.parseRequest(w, r)
	if !ok {
		return
	}

	data := ExplainResponse{
		Explanation:   sqlutil.Explain(req.SQL),
		ComplexityTag: sqlutil.ComplexityTag(req.SQL),
	}

	response := ApiResponse{Success: true, Data: data}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Lint handles POST /api/sql/lint.
func (h *SQLHandler) Lint(w http.ResponseWriter, r *http.Request) {
	req, ok := h.parseRequest(w, r)
	if !ok {
		return
	}

	analysis := sqlutil.Analyze(req.SQL, time.Duration(req.ElapsedMs)*time.Millisecond)

	response := ApiResponse{Success: true, Data: analysis}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

func (h *SQLHandler) parseRequest(w http.ResponseWriter, r *http.Request) (SQLRequest, bool) {
	var req SQLRequest
	if err := decodeBody(r, &req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return req, false
	}

	if strings.TrimSpace(req.SQL) == "" {
		if err := ErrorResponse(w, http.StatusBadRequest, "missing_sql", apperrors.ErrEmptySQL.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return req, false
	}
	return req, true
}
