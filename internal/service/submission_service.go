package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aiimpactmedia/casting/internal/metrics"
	"github.com/aiimpactmedia/casting/internal/model"
)

// Progress checkpoints. Staging fills 0..stagingShare.
const (
	stagingShare      = 80
	persistingPercent = 90
	notifyingPercent  = 95
)

// SubmissionService runs the casting submission pipeline:
// assemble media, stage, persist, notify.
type SubmissionService struct {
	stager   Stager
	store    SubmissionStore
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
}

// NewSubmissionService creates a new submission service
func NewSubmissionService(stager Stager, store SubmissionStore, notifier Notifier, logger *zap.Logger) *SubmissionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubmissionService{
		stager:   stager,
		store:    store,
		notifier: notifier,
		logger:   logger.With(zap.String("component", "submission")),
		now:      time.Now,
	}
}

// AssembleMedia orders photos first, then the audio artifact if any. A
// recorded blob is given a timestamped file name.
func AssembleMedia(draft model.ApplicantDraft, now time.Time) []model.Artifact {
	files := make([]model.Artifact, 0, len(draft.Photos)+1)
	files = append(files, draft.Photos...)

	if a, ok := draft.Audio.Artifact(); ok {
		if draft.Audio.Source() == model.AudioRecorded {
			a.Name = fmt.Sprintf("recording_%d.mp3", now.UnixMilli())
		}
		files = append(files, a)
	}
	return files
}

// Submit stages every media item, then appends a Pending record and sends
// the confirmation. Only staging and persistence faults fail the call.
func (s *SubmissionService) Submit(ctx context.Context, draft model.ApplicantDraft, obs ProgressObserver) (model.SubmissionRecord, error) {
	if obs == nil {
		obs = nopObserver{}
	}
	if missing := draft.MissingForSubmit(); len(missing) > 0 {
		return model.SubmissionRecord{}, &model.ValidationError{Field: missing[0], Message: "required"}
	}

	start := s.now()
	log := s.logger.With(zap.String("handle", draft.SocialHandle))

	rec, err := s.run(ctx, draft, obs, start, log)
	metrics.SubmissionDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.SubmissionsTotal.WithLabelValues(metrics.OutcomeFailure).Inc()
		log.Error("submission failed", zap.Error(err))
		obs.Failed(err)
		return model.SubmissionRecord{}, err
	}

	metrics.SubmissionsTotal.WithLabelValues(metrics.OutcomeSuccess).Inc()
	obs.Completed(rec)
	return rec, nil
}

func (s *SubmissionService) run(ctx context.Context, draft model.ApplicantDraft, obs ProgressObserver, start time.Time, log *zap.Logger) (model.SubmissionRecord, error) {
	files := AssembleMedia(draft, start)
	total := len(files)

	obs.Progress(model.PhaseStaging, 0, "")
	locators, err := s.stager.Stage(ctx, draft.SocialHandle, files, func(done int, name string) {
		obs.Progress(model.PhaseStaging, done*stagingShare/total, name)
	})
	if err != nil {
		return model.SubmissionRecord{}, fmt.Errorf("%w: %w", model.ErrStagingFailed, err)
	}
	if len(locators) != total {
		return model.SubmissionRecord{}, fmt.Errorf("%w: got %d locators for %d files", model.ErrStagingFailed, len(locators), total)
	}

	now := s.now()
	rec := model.SubmissionRecord{
		ID:           uuid.New().String(),
		Name:         draft.Name,
		Email:        draft.Email,
		Platform:     draft.Platform,
		SocialHandle: draft.SocialHandle,
		Bio:          draft.Bio,
		Files:        locators,
		Signature:    draft.Signature,
		Timestamp:    now.UnixMilli(),
		CreatedAt:    now.UTC(),
		Status:       model.SubmissionStatusPending,
	}

	obs.Progress(model.PhasePersisting, persistingPercent, "")
	if err := s.store.Append(ctx, rec); err != nil {
		return model.SubmissionRecord{}, fmt.Errorf("%w: %w", model.ErrPersistenceFailed, err)
	}
	log = log.With(zap.String("submissionId", rec.ID))
	log.Info("submission persisted", zap.Int("files", total))

	obs.Progress(model.PhaseNotifying, notifyingPercent, "")
	if s.notifier != nil {
		if err := s.notifier.Notify(ctx, rec.Email, rec.Name, model.NotificationCasting); err != nil {
			log.Warn("confirmation not sent", zap.Error(fmt.Errorf("%w: %w", model.ErrNotificationFailed, err)))
		}
	}

	return rec, nil
}
