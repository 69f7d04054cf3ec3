package service

import (
	"context"

	"github.com/aiimpactmedia/casting/internal/model"
)

// Stager transfers media to remote storage. It returns one locator per
// input file in input order, or fails the whole batch.
type Stager interface {
	Stage(ctx context.Context, ownerHandle string, files []model.Artifact, onStaged func(done int, name string)) ([]string, error)
}

// SubmissionStore is an append-only record list. Append must be a single
// indivisible write.
type SubmissionStore interface {
	Append(ctx context.Context, rec model.SubmissionRecord) error
	List(ctx context.Context) ([]model.SubmissionRecord, error)
}

// ReviewStore adds the admin status mutation to SubmissionStore
type ReviewStore interface {
	SubmissionStore
	UpdateStatus(ctx context.Context, id string, status model.SubmissionStatus) (model.SubmissionRecord, error)
}

// Notifier sends a confirmation to an applicant or sponsor
type Notifier interface {
	Notify(ctx context.Context, email, name string, kind model.NotificationKind) error
}

// ProgressObserver receives pipeline events for one submission
type ProgressObserver interface {
	Progress(phase model.PipelinePhase, percent int, current string)
	Completed(rec model.SubmissionRecord)
	Failed(err error)
}

type nopObserver struct{}

func (nopObserver) Progress(model.PipelinePhase, int, string) {}
func (nopObserver) Completed(model.SubmissionRecord)          {}
func (nopObserver) Failed(error)                              {}
