package jobs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"peerprep/interview/internal/metrics"
	"peerprep/interview/internal/models"
	"peerprep/interview/internal/store"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// TranscriptSource is implemented by store.TranscriptArchive.
type TranscriptSource interface {
	Unexported(ctx context.Context, limit int) ([]models.TranscriptRecord, error)
	MarkExported(ctx context.Context, ids []uint) error
}

// TranscriptExporterJob periodically writes evaluated transcripts to JSONL files.
type TranscriptExporterJob struct {
	source TranscriptSource
	config *ExporterConfig
	cron   *cron.Cron
	logger *zap.Logger
	now    func() time.Time
}

type ExporterConfig struct {
	Schedule      string // Cron schedule (e.g., "0 2 * * *" for 2 AM daily)
	ExportDir     string
	ExportEnabled bool
	BatchSize     int // 0 exports everything pending
	Timeout       time.Duration
}

func NewTranscriptExporterJob(source TranscriptSource, config *ExporterConfig, logger *zap.Logger) *TranscriptExporterJob {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Minute
	}
	return &TranscriptExporterJob{
		source: source,
		config: config,
		cron:   cron.New(),
		logger: logger,
		now:    time.Now,
	}
}

// Start begins the scheduled export job
func (j *TranscriptExporterJob) Start() error {
	if !j.config.ExportEnabled {
		j.logger.Info("transcript export is disabled, skipping scheduler")
		return nil
	}

	_, err := j.cron.AddFunc(j.config.Schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), j.config.Timeout)
		defer cancel()
		if _, err := j.RunExport(ctx); err != nil {
			j.logger.Error("transcript export failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule export job: %w", err)
	}

	j.cron.Start()
	j.logger.Info("transcript exporter started", zap.String("schedule", j.config.Schedule))
	return nil
}

// Stop waits for a running export to finish.
func (j *TranscriptExporterJob) Stop() {
	if j.cron != nil {
		<-j.cron.Stop().Done()
		j.logger.Info("transcript exporter stopped")
	}
}

// RunExport performs a single export run and returns the written file path,
// empty when nothing was written. Transcripts without an evaluation are
// marked exported without being written so they are not fetched again.
func (j *TranscriptExporterJob) RunExport(ctx context.Context) (string, error) {
	recs, err := j.source.Unexported(ctx, j.config.BatchSize)
	if err != nil {
		return "", fmt.Errorf("failed to get unexported transcripts: %w", err)
	}
	if len(recs) == 0 {
		j.logger.Debug("no unexported transcripts found")
		return "", nil
	}

	data, lines, err := store.ExportToJSONL(recs)
	if err != nil {
		return "", fmt.Errorf("failed to export to JSONL: %w", err)
	}

	ids := make([]uint, len(recs))
	for i, rec := range recs {
		ids[i] = rec.ID
	}

	if lines == 0 {
		j.logger.Info("no evaluated transcripts to export, skipping file creation", zap.Int("skipped", len(recs)))
		return "", j.source.MarkExported(ctx, ids)
	}

	if err := os.MkdirAll(j.config.ExportDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	filename := fmt.Sprintf("transcripts_export_%s.jsonl", j.now().Format("20060102_150405"))
	path := filepath.Join(j.config.ExportDir, filename)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}

	if err := j.source.MarkExported(ctx, ids); err != nil {
		return path, fmt.Errorf("failed to mark as exported: %w", err)
	}

	metrics.TranscriptsExported(lines)
	j.logger.Info("exported transcripts", zap.Int("count", lines), zap.String("file", path))
	return path, nil
}
