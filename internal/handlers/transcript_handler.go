package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"peerprep/interview/internal/middleware"
	"peerprep/interview/internal/models"
	"peerprep/interview/internal/store"
	"peerprep/interview/internal/utils"
)

const (
	defaultTranscriptLimit = 20
	maxTranscriptLimit     = 100
)

// TranscriptReader is implemented by store.TranscriptArchive.
type TranscriptReader interface {
	Get(ctx context.Context, conversationID string) (*models.TranscriptRecord, error)
	ListByCandidate(ctx context.Context, candidateID string, limit int) ([]models.TranscriptRecord, error)
}

type TranscriptHandler struct {
	archive TranscriptReader
	logger  *zap.Logger
}

func NewTranscriptHandler(archive TranscriptReader, logger *zap.Logger) *TranscriptHandler {
	return &TranscriptHandler{archive: archive, logger: logger}
}

func (h *TranscriptHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	limit := defaultTranscriptLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxTranscriptLimit {
			utils.Error(w, http.StatusBadRequest, "invalid_limit", "Limit must be between 1 and 100")
			return
		}
		limit = n
	}

	candidateID := middleware.CandidateID(r.Context())
	recs, err := h.archive.ListByCandidate(r.Context(), candidateID, limit)
	if err != nil {
		h.logger.Error("Failed to list transcripts", zap.Error(err), zap.String("candidate_id", candidateID))
		utils.Error(w, http.StatusInternalServerError, "internal_error", "Failed to list transcripts")
		return
	}
	if recs == nil {
		recs = []models.TranscriptRecord{}
	}
	utils.JSON(w, http.StatusOK, map[string]interface{}{
		"transcripts": recs,
		"count":       len(recs),
	})
}

// GetHandler returns one archived transcript. Transcripts of other candidates
// are reported as missing.
func (h *TranscriptHandler) GetHandler(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "conversation_id")
	rec, err := h.archive.Get(r.Context(), conversationID)
	if errors.Is(err, store.ErrNotFound) || (err == nil && rec.CandidateID != middleware.CandidateID(r.Context())) {
		utils.Error(w, http.StatusNotFound, "not_found", "Transcript not found")
		return
	}
	if err != nil {
		h.logger.Error("Failed to load transcript", zap.Error(err), zap.String("conversation_id", conversationID))
		utils.Error(w, http.StatusInternalServerError, "internal_error", "Failed to load transcript")
		return
	}

	if r.URL.Query().Get("format") == "markdown" {
		utils.Markdown(w, http.StatusOK, rec.Transcript)
		return
	}
	utils.JSON(w, http.StatusOK, rec)
}
