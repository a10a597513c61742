package handlers

import (
	"net/http"
	"os"
	"runtime"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-analyst/pkg/config"
	"github.com/ekaya-inc/ekaya-analyst/pkg/llm"
)

// ServiceName identifies this binary in ping responses.
const ServiceName = "ekaya-analyst"

// OracleStatus reports the state of the completion oracle.
type OracleStatus interface {
	BreakerState() llm.CircuitState
	Model() string
}

// PingResponse contains service status and version information.
type PingResponse struct {
	Status      string `json:"status"`
	Version     string `json:"version"`
	Service     string `json:"service"`
	GoVersion   string `json:"go_version"`
	Hostname    string `json:"hostname"`
	Environment string `json:"environment"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status     string        `json:"status"`
	Datasource string        `json:"datasource"`
	Oracle     *OracleHealth `json:"oracle,omitempty"`
}

// OracleHealth describes the oracle's circuit breaker.
type OracleHealth struct {
	Model   string `json:"model"`
	Breaker string `json:"breaker"`
}

// HealthHandler handles health check and ping endpoints.
type HealthHandler struct {
	cfg    *config.Config
	oracle OracleStatus
	logger *zap.Logger
}

// NewHealthHandler creates a new HealthHandler. oracle may be nil.
func NewHealthHandler(cfg *config.Config, oracle OracleStatus, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{cfg: cfg, oracle: oracle, logger: logger}
}

// RegisterRoutes registers the health handler's routes on the given mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /ping", h.Ping)
}

// Health handles GET /health requests.
// Status is "degraded" while the oracle breaker is open; the service still
// answers cached questions in that state.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:     "ok",
		Datasource: h.cfg.Datasource.Type,
	}

	if h.oracle != nil {
		state := h.oracle.BreakerState()
		response.Oracle = &OracleHealth{
			Model:   h.oracle.Model(),
			Breaker: state.String(),
		}
		if state == llm.CircuitOpen {
			response.Status = "degraded"
		}
	}

	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode health response", zap.Error(err))
	}
}

// Ping handles GET /ping requests.
// Returns detailed service information including version and environment.
func (h *HealthHandler) Ping(w http.ResponseWriter, r *http.Request) {
	hostname, err := os.Hostname()
	if err != nil {
		http.Error(w, "failed to get hostname", http.StatusInternalServerError)
		return
	}

	response := PingResponse{
		Status:      "ok",
		Version:     h.cfg.Version,
		Service:     ServiceName,
		GoVersion:   runtime.Version(),
		Hostname:    hostname,
		Environment: h.cfg.Env,
	}

	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode ping response", zap.Error(err))
	}
}
