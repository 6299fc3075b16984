package handlers

import (
	"context"
	"net/http"
	"time"

	"peerprep/interview/internal/config"
	"peerprep/interview/internal/llm"
	"peerprep/interview/internal/utils"
)

type ReadinessCheck struct {
	Status  string `json:"status"` // "ok" | "failed" | "disabled"
	Message string `json:"message,omitempty"`
}

type ReadinessResponse struct {
	Status  string                    `json:"status"` // "ready" | "not_ready"
	Service string                    `json:"service"`
	Checks  map[string]ReadinessCheck `json:"checks"`
	Archive map[string]int64          `json:"archive,omitempty"`
}

// Pinger is implemented by every store.Backend.
type Pinger interface {
	Ping(ctx context.Context) error
}

type TemplateLister interface {
	GetTemplates() []string
}

type ArchiveStats interface {
	Stats(ctx context.Context) (map[string]int64, error)
}

type HealthHandler struct {
	store         Pinger
	archive       ArchiveStats
	provider      llm.Provider
	promptManager TemplateLister
	config        *config.Config
}

func NewHealthHandler(store Pinger, archive ArchiveStats, provider llm.Provider, promptManager TemplateLister, cfg *config.Config) *HealthHandler {
	return &HealthHandler{
		store:         store,
		archive:       archive,
		provider:      provider,
		promptManager: promptManager,
		config:        cfg,
	}
}

func (handler *HealthHandler) HealthzHandler(writer http.ResponseWriter, request *http.Request) {
	utils.JSON(writer, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "interview",
		"version": "1.0.0",
	})
}

// ReadyzHandler fails when the session store or prompt templates are
// unavailable. A missing evaluation provider only disables live interviews.
func (handler *HealthHandler) ReadyzHandler(writer http.ResponseWriter, request *http.Request) {
	ctx, cancel := context.WithTimeout(request.Context(), 2*time.Second)
	defer cancel()

	checks := make(map[string]ReadinessCheck)
	allChecksPass := true

	if handler.store == nil {
		checks["session_store"] = ReadinessCheck{Status: "failed", Message: "Session store not initialized"}
		allChecksPass = false
	} else if err := handler.store.Ping(ctx); err != nil {
		checks["session_store"] = ReadinessCheck{Status: "failed", Message: err.Error()}
		allChecksPass = false
	} else {
		checks["session_store"] = ReadinessCheck{Status: "ok"}
	}

	if handler.promptManager == nil || len(handler.promptManager.GetTemplates()) == 0 {
		checks["prompt_manager"] = ReadinessCheck{Status: "failed", Message: "No prompt templates loaded"}
		allChecksPass = false
	} else {
		checks["prompt_manager"] = ReadinessCheck{Status: "ok"}
	}

	if handler.provider == nil {
		checks["provider"] = ReadinessCheck{Status: "disabled", Message: "Evaluation provider not configured"}
	} else {
		checks["provider"] = ReadinessCheck{Status: "ok"}
	}

	if handler.config == nil {
		checks["configuration"] = ReadinessCheck{Status: "failed", Message: "Configuration not loaded"}
		allChecksPass = false
	} else {
		checks["configuration"] = ReadinessCheck{Status: "ok"}
	}

	response := ReadinessResponse{
		Service: "interview",
		Checks:  checks,
	}

	if handler.archive == nil {
		checks["archive"] = ReadinessCheck{Status: "disabled", Message: "Transcript archive not configured"}
	} else if stats, err := handler.archive.Stats(ctx); err != nil {
		checks["archive"] = ReadinessCheck{Status: "failed", Message: err.Error()}
		allChecksPass = false
	} else {
		checks["archive"] = ReadinessCheck{Status: "ok"}
		response.Archive = stats
	}

	if allChecksPass {
		response.Status = "ready"
		utils.JSON(writer, http.StatusOK, response)
	} else {
		response.Status = "not_ready"
		utils.JSON(writer, http.StatusServiceUnavailable, response)
	}
}
