package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"peerprep/interview/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TranscriptArchive stores finished live interviews for review and export.
type TranscriptArchive struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewTranscriptArchive(db *gorm.DB, logger *zap.Logger) *TranscriptArchive {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TranscriptArchive{db: db, logger: logger}
}

// Save inserts rec, or updates it when the conversation was archived before.
func (a *TranscriptArchive) Save(ctx context.Context, rec *models.TranscriptRecord) error {
	var existing models.TranscriptRecord
	err := a.db.WithContext(ctx).Where("conversation_id = ?", rec.ConversationID).First(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := a.db.WithContext(ctx).Create(rec).Error; err != nil {
			return fmt.Errorf("failed to archive transcript: %w", err)
		}
	case err != nil:
		return fmt.Errorf("failed to look up transcript: %w", err)
	default:
		rec.ID = existing.ID
		rec.CreatedAt = existing.CreatedAt
		if err := a.db.WithContext(ctx).Save(rec).Error; err != nil {
			return fmt.Errorf("failed to update transcript: %w", err)
		}
	}

	a.logger.Info("archived transcript",
		zap.String("conversation_id", rec.ConversationID),
		zap.String("candidate_id", rec.CandidateID),
		zap.Bool("evaluation_available", rec.Available))
	return nil
}

func (a *TranscriptArchive) Get(ctx context.Context, conversationID string) (*models.TranscriptRecord, error) {
	var rec models.TranscriptRecord
	err := a.db.WithContext(ctx).Where("conversation_id = ?", conversationID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transcript %s: %w", conversationID, err)
	}
	return &rec, nil
}

// ListByCandidate returns a candidate's transcripts, newest first.
func (a *TranscriptArchive) ListByCandidate(ctx context.Context, candidateID string, limit int) ([]models.TranscriptRecord, error) {
	var recs []models.TranscriptRecord
	query := a.db.WithContext(ctx).Where("candidate_id = ?", candidateID).Order("completed_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to list transcripts: %w", err)
	}
	return recs, nil
}

// Unexported returns transcripts not yet exported, oldest first.
func (a *TranscriptArchive) Unexported(ctx context.Context, limit int) ([]models.TranscriptRecord, error) {
	var recs []models.TranscriptRecord
	query := a.db.WithContext(ctx).Where("exported = ?", false).Order("completed_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to get unexported transcripts: %w", err)
	}
	return recs, nil
}

func (a *TranscriptArchive) MarkExported(ctx context.Context, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	result := a.db.WithContext(ctx).Model(&models.TranscriptRecord{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{
			"exported":    true,
			"exported_at": time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to mark transcripts as exported: %w", result.Error)
	}
	a.logger.Info("marked transcripts as exported", zap.Int64("count", result.RowsAffected))
	return nil
}

// ExportToJSONL renders transcripts with an available evaluation as JSONL,
// one transcript/evaluation pair per line.
func ExportToJSONL(recs []models.TranscriptRecord) ([]byte, int, error) {
	var out []byte
	lines := 0
	for _, rec := range recs {
		if !rec.Available || rec.Feedback == "" {
			continue
		}
		point := models.TrainingDataPoint{
			Contents: []models.TrainingContent{
				{Role: "user", Parts: []models.TrainingPart{{Text: rec.Transcript}}},
				{Role: "model", Parts: []models.TrainingPart{{Text: rec.Feedback}}},
			},
		}
		data, err := json.Marshal(point)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to marshal transcript %s: %w", rec.ConversationID, err)
		}
		if lines > 0 {
			out = append(out, '\n')
		}
		out = append(out, data...)
		lines++
	}
	return out, lines, nil
}

// Stats reports archive counters for the readiness endpoint.
func (a *TranscriptArchive) Stats(ctx context.Context) (map[string]int64, error) {
	stats := make(map[string]int64)
	db := a.db.WithContext(ctx)

	var total, evaluated, unexported int64
	if err := db.Model(&models.TranscriptRecord{}).Count(&total).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.TranscriptRecord{}).Where("available = ?", true).Count(&evaluated).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.TranscriptRecord{}).Where("exported = ?", false).Count(&unexported).Error; err != nil {
		return nil, err
	}
	stats["total_count"] = total
	stats["evaluated_count"] = evaluated
	stats["unexported_count"] = unexported
	return stats, nil
}

// AutoMigrate creates the tables used by GormStore and TranscriptArchive.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&models.SessionRecord{}, &models.TranscriptRecord{})
}
