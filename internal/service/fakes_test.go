package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/hibiken/asynq"

	"github.com/aiimpactmedia/casting/internal/model"
)

type fakeStorage struct {
	mu      sync.Mutex
	failOn  int
	uploads []string
	bodies  []string
	deletes []string
}

func (f *fakeStorage) Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn > 0 && len(f.uploads)+1 == f.failOn {
		return "", errors.New("network down")
	}
	b, _ := io.ReadAll(body)
	f.uploads = append(f.uploads, key)
	f.bodies = append(f.bodies, string(b))
	return f.GetPublicURL(key), nil
}

func (f *fakeStorage) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, key)
	return nil
}

func (f *fakeStorage) GetPublicURL(key string) string {
	return "https://r2.test/" + key
}

type fakeStore struct {
	mu      sync.Mutex
	err     error
	records []model.SubmissionRecord
}

func (f *fakeStore) Append(ctx context.Context, rec model.SubmissionRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, rec)
	return nil
}

func (f *fakeStore) List(ctx context.Context) ([]model.SubmissionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return append([]model.SubmissionRecord(nil), f.records...), nil
}

func (f *fakeStore) UpdateStatus(ctx context.Context, id string, status model.SubmissionStatus) (model.SubmissionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.records {
		if f.records[i].ID == id {
			f.records[i].Status = status
			return f.records[i], nil
		}
	}
	return model.SubmissionRecord{}, model.ErrRecordNotFound
}

func (f *fakeStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

type notification struct {
	email string
	name  string
	kind  model.NotificationKind
}

type fakeNotifier struct {
	mu   sync.Mutex
	err  error
	sent []notification
}

func (f *fakeNotifier) Notify(ctx context.Context, email, name string, kind model.NotificationKind) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, notification{email, name, kind})
	return f.err
}

type progressEvent struct {
	phase   model.PipelinePhase
	percent int
	current string
}

type recordingObserver struct {
	mu        sync.Mutex
	events    []progressEvent
	completed *model.SubmissionRecord
	failed    error
}

func (o *recordingObserver) Progress(phase model.PipelinePhase, percent int, current string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, progressEvent{phase, percent, current})
}

func (o *recordingObserver) Completed(rec model.SubmissionRecord) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.completed = &rec
}

func (o *recordingObserver) Failed(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failed = err
}

type fakeLLM struct {
	configured bool
	out        string
	err        error
	calls      int
	lastUser   string
}

func (f *fakeLLM) ChatCompletion(ctx context.Context, system, user string) (string, error) {
	f.calls++
	f.lastUser = user
	return f.out, f.err
}

func (f *fakeLLM) IsConfigured() bool { return f.configured }

type fakeEnqueuer struct {
	err   error
	tasks []*asynq.Task
	opts  [][]asynq.Option
}

func (f *fakeEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	f.opts = append(f.opts, opts)
	return &asynq.TaskInfo{ID: fmt.Sprintf("task-%d", len(f.tasks))}, nil
}

func completeDraft(photos int, audio model.Audio) model.ApplicantDraft {
	d := model.NewDraft()
	d.Name = "Jane Doe"
	d.Email = "jane@example.com"
	d.SocialHandle = "@jane"
	d.Bio = "Stage actor"
	d.Consent = true
	d.Signature = "data:image/svg+xml;base64,PHN2Zy8+"
	for i := 0; i < photos; i++ {
		d.Photos = append(d.Photos, model.Artifact{
			Name:        fmt.Sprintf("photo%d.jpg", i+1),
			ContentType: "image/jpeg",
			Size:        5,
			Data:        []byte(fmt.Sprintf("img-%d", i+1)),
		})
	}
	d.Audio = audio
	return d
}
