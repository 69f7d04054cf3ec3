package service

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/aiimpactmedia/casting/internal/client"
	"github.com/aiimpactmedia/casting/internal/metrics"
	"github.com/aiimpactmedia/casting/internal/model"
)

// StagingService uploads submission media to R2, one file at a time
type StagingService struct {
	r2Client client.StorageClient
	baseURL  string
	logger   *zap.Logger
	now      func() time.Time
}

// NewStagingService creates a staging service. A nil r2Client stages to
// mock locators under baseURL.
func NewStagingService(r2Client client.StorageClient, baseURL string, logger *zap.Logger) *StagingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StagingService{
		r2Client: r2Client,
		baseURL:  strings.TrimRight(baseURL, "/"),
		logger:   logger.With(zap.String("component", "staging")),
		now:      time.Now,
	}
}

// FolderName returns the per-submission folder for an owner handle
func FolderName(handle string, at time.Time) string {
	h := strings.ReplaceAll(strings.TrimSpace(handle), "@", "")
	h = strings.ReplaceAll(h, "/", "_")
	return fmt.Sprintf("Casting_%s_%d", h, at.UnixMilli())
}

// Stage uploads files sequentially. Any single failure aborts the batch and
// removes what was already uploaded.
func (s *StagingService) Stage(ctx context.Context, ownerHandle string, files []model.Artifact, onStaged func(done int, name string)) ([]string, error) {
	folder := FolderName(ownerHandle, s.now())
	log := s.logger.With(zap.String("folder", folder))
	log.Info("staging media", zap.Int("files", len(files)))

	locators := make([]string, 0, len(files))
	keys := make([]string, 0, len(files))

	for i, f := range files {
		if err := ctx.Err(); err != nil {
			s.rollback(log, keys)
			return nil, fmt.Errorf("staging cancelled: %w", err)
		}

		key := fmt.Sprintf("casting/%s/%02d_%s", folder, i+1, safeName(f.Name))

		locator, err := s.upload(ctx, key, f)
		if err != nil {
			s.rollback(log, keys)
			return nil, fmt.Errorf("failed to stage %s: %w", f.Name, err)
		}

		log.Debug("staged file",
			zap.String("name", f.Name),
			zap.String("key", key),
			zap.String("size", fmt.Sprintf("%.2f KB", float64(f.Size)/1024)),
		)
		metrics.StagedFilesTotal.WithLabelValues(kindOf(f)).Inc()

		locators = append(locators, locator)
		keys = append(keys, key)
		if onStaged != nil {
			onStaged(i+1, f.Name)
		}
	}

	return locators, nil
}

func (s *StagingService) upload(ctx context.Context, key string, f model.Artifact) (string, error) {
	// Use mock locator if client is not configured
	if s.r2Client == nil {
		return s.baseURL + "/" + key, nil
	}
	return s.r2Client.Upload(ctx, key, bytes.NewReader(f.Data), int64(len(f.Data)), f.ContentType)
}

func (s *StagingService) rollback(log *zap.Logger, keys []string) {
	if s.r2Client == nil || len(keys) == 0 {
		return
	}
	// the request context may already be done
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, key := range keys {
		if err := s.r2Client.Delete(ctx, key); err != nil {
			log.Warn("failed to remove staged file", zap.String("key", key), zap.Error(err))
		}
	}
}

func safeName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "file"
	}
	return strings.ReplaceAll(name, " ", "_")
}

func kindOf(f model.Artifact) string {
	if f.IsAudio() {
		return "audio"
	}
	return "photo"
}
