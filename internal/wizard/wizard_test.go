package wizard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/aiimpactmedia/casting/internal/media"
	"github.com/aiimpactmedia/casting/internal/model"
	"github.com/aiimpactmedia/casting/internal/service"
)

type fakeSubmitter struct {
	calls   atomic.Int32
	release chan struct{}
	started chan struct{}
	err     error
	mu      sync.Mutex
	drafts  []model.ApplicantDraft
}

func (f *fakeSubmitter) Submit(ctx context.Context, draft model.ApplicantDraft, obs service.ProgressObserver) (model.SubmissionRecord, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.drafts = append(f.drafts, draft)
	f.mu.Unlock()

	if f.started != nil {
		close(f.started)
	}
	if f.release != nil {
		<-f.release
	}
	if f.err != nil {
		return model.SubmissionRecord{}, f.err
	}
	return model.SubmissionRecord{ID: fmt.Sprintf("rec-%d", f.calls.Load()), Status: model.SubmissionStatusPending}, nil
}

type fakeFeedback struct {
	calls atomic.Int32
	block chan struct{}
}

func (f *fakeFeedback) CastingFeedback(ctx context.Context, name, bio string) string {
	f.calls.Add(1)
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return "cancelled"
		}
	}
	return "Feedback for " + name
}

var validProfile = model.ProfileUpdateRequest{
	Name:         "Jane Doe",
	Email:        "jane@example.com",
	SocialHandle: "@jane",
	Bio:          "Stage actor",
}

var signatureStrokes = model.SignatureRequest{
	Width:   100,
	Height:  50,
	Strokes: [][]model.Point{{{X: 1, Y: 1}, {X: 10, Y: 10}}},
}

func newWizard(t *testing.T, sub Submitter, fb FeedbackProvider) *Wizard {
	t.Helper()
	w := New(Options{
		SessionID: "s-1",
		Device:    media.NewPushDevice(true),
		Submitter: sub,
		Feedback:  fb,
		Logger:    zaptest.NewLogger(t),
	})
	t.Cleanup(w.Close)
	return w
}

// readyToSubmit puts w on the media step with consent and signature
func readyToSubmit(t *testing.T, w *Wizard) {
	t.Helper()
	require.NoError(t, w.UpdateProfile(validProfile))
	require.NoError(t, w.Next())
	require.NoError(t, w.SetConsent(true))
	_, err := w.SetSignature(signatureStrokes)
	require.NoError(t, err)
}

func TestNew_StartsOnProfileWithDefaultPlatform(t *testing.T) {
	w := newWizard(t, &fakeSubmitter{}, nil)

	v := w.View()
	assert.Equal(t, model.StepProfile, v.Step)
	assert.Equal(t, model.PlatformInstagram, v.Profile.Platform)
	assert.Equal(t, model.RecordingIdle, v.Recording)
}

func TestNext_RejectsMissingProfileFields(t *testing.T) {
	fields := []string{"name", "email", "socialHandle", "bio"}

	for _, field := range fields {
		t.Run(field, func(t *testing.T) {
			w := newWizard(t, &fakeSubmitter{}, nil)
			req := validProfile
			switch field {
			case "name":
				req.Name = ""
			case "email":
				req.Email = "  "
			case "socialHandle":
				req.SocialHandle = ""
			case "bio":
				req.Bio = ""
			}
			require.NoError(t, w.UpdateProfile(req))
			before := w.Draft()

			err := w.Next()

			var verr *model.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, field, verr.Field)
			assert.Equal(t, model.StepProfile, w.View().Step)
			assert.Equal(t, before, w.Draft())
			assert.NotEmpty(t, w.View().Message)
		})
	}
}

func TestNext_AdvancesWithCompleteProfile(t *testing.T) {
	w := newWizard(t, &fakeSubmitter{}, nil)
	require.NoError(t, w.UpdateProfile(validProfile))

	require.NoError(t, w.Next())
	assert.Equal(t, model.StepMedia, w.View().Step)

	// no skipping ahead from media
	assert.ErrorIs(t, w.Next(), model.ErrInvalidStep)
}

func TestUpdateProfile_KeepsPlatformWhenOmitted(t *testing.T) {
	w := newWizard(t, &fakeSubmitter{}, nil)

	req := validProfile
	req.Platform = model.PlatformTikTok
	require.NoError(t, w.UpdateProfile(req))
	require.NoError(t, w.UpdateProfile(validProfile))

	assert.Equal(t, model.PlatformTikTok, w.View().Profile.Platform)

	req.Platform = "MySpace"
	var verr *model.ValidationError
	assert.ErrorAs(t, w.UpdateProfile(req), &verr)
}

func TestBack_PreservesDraft(t *testing.T) {
	w := newWizard(t, &fakeSubmitter{}, nil)
	readyToSubmit(t, w)
	_, err := w.AddPhotos([]model.Artifact{{Name: "a.jpg", ContentType: "image/jpeg"}})
	require.NoError(t, err)
	require.NoError(t, w.UploadAudio(model.Artifact{Name: "s.mp3", ContentType: "audio/mpeg"}))

	require.NoError(t, w.Back())
	assert.Equal(t, model.StepProfile, w.View().Step)
	require.NoError(t, w.Next())

	v := w.View()
	assert.Len(t, v.Photos, 1)
	require.NotNil(t, v.Audio)
	assert.True(t, v.Consent)
	assert.True(t, v.Signed)
}

func TestMediaOperations_RequireMediaStep(t *testing.T) {
	w := newWizard(t, &fakeSubmitter{}, nil)

	_, err := w.AddPhotos(nil)
	assert.ErrorIs(t, err, model.ErrInvalidStep)
	assert.ErrorIs(t, w.SetConsent(true), model.ErrInvalidStep)
	assert.ErrorIs(t, w.StartRecording(context.Background()), model.ErrInvalidStep)
	assert.ErrorIs(t, w.Back(), model.ErrInvalidStep)
}

func TestSubmit_RequiresConsent(t *testing.T) {
	sub := &fakeSubmitter{}
	w := newWizard(t, sub, nil)
	readyToSubmit(t, w)
	require.NoError(t, w.SetConsent(false))

	_, err := w.Submit(context.Background())

	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "consent", verr.Field)
	assert.Equal(t, model.StepMedia, w.View().Step)
	assert.Equal(t, ConsentRequiredMessage, w.View().Message)
	assert.Zero(t, sub.calls.Load())
}

func TestSubmit_RequiresSignature(t *testing.T) {
	sub := &fakeSubmitter{}
	w := newWizard(t, sub, nil)
	readyToSubmit(t, w)
	require.NoError(t, w.ClearSignature())

	_, err := w.Submit(context.Background())

	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "signature", verr.Field)
	assert.Equal(t, model.StepMedia, w.View().Step)
	assert.Zero(t, sub.calls.Load())

	// consent missing too: consent is reported first
	require.NoError(t, w.SetConsent(false))
	_, err = w.Submit(context.Background())
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "consent", verr.Field)
}

func TestSubmit_Success(t *testing.T) {
	sub := &fakeSubmitter{}
	w := newWizard(t, sub, nil)
	readyToSubmit(t, w)
	_, err := w.AddPhotos([]model.Artifact{
		{Name: "1.jpg", ContentType: "image/jpeg"},
		{Name: "2.jpg", ContentType: "image/jpeg"},
	})
	require.NoError(t, err)

	rec, err := w.Submit(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "rec-1", rec.ID)
	v := w.View()
	assert.Equal(t, model.StepComplete, v.Step)
	require.NotNil(t, v.Submission)
	assert.Equal(t, "rec-1", v.Submission.ID)

	require.Len(t, sub.drafts, 1)
	d := sub.drafts[0]
	assert.Equal(t, "Jane Doe", d.Name)
	assert.Len(t, d.Photos, 2)
	assert.True(t, d.Consent)
	assert.NotEmpty(t, d.Signature)

	// complete is terminal
	_, err = w.Submit(context.Background())
	assert.ErrorIs(t, err, model.ErrInvalidStep)
	assert.ErrorIs(t, w.Back(), model.ErrInvalidStep)
}

func TestSubmit_FailureReturnsToMedia(t *testing.T) {
	sub := &fakeSubmitter{err: fmt.Errorf("%w: boom", model.ErrStagingFailed)}
	w := newWizard(t, sub, nil)
	readyToSubmit(t, w)

	_, err := w.Submit(context.Background())

	assert.ErrorIs(t, err, model.ErrSubmissionFailed)
	assert.ErrorIs(t, err, model.ErrStagingFailed)
	v := w.View()
	assert.Equal(t, model.StepMedia, v.Step)
	assert.Equal(t, model.SubmissionFailedMessage, v.Message)
	assert.Nil(t, v.Submission)

	// retry is a fresh call
	sub.err = nil
	_, err = w.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), sub.calls.Load())
}

func TestSubmit_ConcurrentCallsRunPipelineOnce(t *testing.T) {
	sub := &fakeSubmitter{release: make(chan struct{}), started: make(chan struct{})}
	w := newWizard(t, sub, nil)
	readyToSubmit(t, w)

	var wg sync.WaitGroup
	results := make(chan error, 2)
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := w.Submit(context.Background())
		results <- err
	}()

	<-sub.started
	assert.Equal(t, model.StepSubmitting, w.View().Step)

	_, err := w.Submit(context.Background())
	assert.ErrorIs(t, err, model.ErrSubmissionInProgress)
	assert.ErrorIs(t, w.Back(), model.ErrSubmissionInProgress)

	close(sub.release)
	wg.Wait()
	assert.NoError(t, <-results)
	assert.Equal(t, int32(1), sub.calls.Load())
	assert.Equal(t, model.StepComplete, w.View().Step)
}

func TestSubmit_FinalizesActiveRecording(t *testing.T) {
	sub := &fakeSubmitter{}
	w := newWizard(t, sub, nil)
	readyToSubmit(t, w)

	require.NoError(t, w.StartRecording(context.Background()))
	require.NoError(t, w.PushAudio([]byte("voice")))

	_, err := w.Submit(context.Background())
	require.NoError(t, err)

	audio := sub.drafts[0].Audio
	assert.Equal(t, model.AudioRecorded, audio.Source())
	a, _ := audio.Artifact()
	assert.Equal(t, "voice", string(a.Data))
}

func TestSubmit_SilentRecordingKeepsUpload(t *testing.T) {
	sub := &fakeSubmitter{}
	w := newWizard(t, sub, nil)
	readyToSubmit(t, w)

	require.NoError(t, w.UploadAudio(model.Artifact{
		Name:        "demo.mp3",
		ContentType: "audio/mpeg",
		Size:        4,
		Data:        []byte("ID3x"),
	}))
	require.NoError(t, w.StartRecording(context.Background()))

	_, err := w.Submit(context.Background())
	require.NoError(t, err)

	require.Len(t, sub.drafts, 1)
	audio := sub.drafts[0].Audio
	assert.Equal(t, model.AudioUploaded, audio.Source())
	a, _ := audio.Artifact()
	assert.Equal(t, "demo.mp3", a.Name)
	assert.Equal(t, int64(4), a.Size)
}

func TestReset_DuringSubmitDropsLateResult(t *testing.T) {
	sub := &fakeSubmitter{release: make(chan struct{}), started: make(chan struct{})}
	w := newWizard(t, sub, nil)
	readyToSubmit(t, w)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = w.Submit(context.Background())
	}()
	<-sub.started

	w.Reset()
	close(sub.release)
	<-done

	v := w.View()
	assert.Equal(t, model.StepProfile, v.Step)
	assert.Nil(t, v.Submission)
	assert.Equal(t, "", v.Profile.Name)
}

func TestReset_ReleasesRecordingDevice(t *testing.T) {
	dev := media.NewPushDevice(true)
	w := New(Options{SessionID: "s", Device: dev, Submitter: &fakeSubmitter{}, Logger: zaptest.NewLogger(t)})
	defer w.Close()
	readyToSubmit(t, w)

	require.NoError(t, w.StartRecording(context.Background()))
	w.Reset()

	assert.ErrorIs(t, dev.Push([]byte("x")), media.ErrNotRecording)
	assert.Equal(t, model.RecordingIdle, w.View().Recording)
	assert.Nil(t, w.View().Audio)
}

func TestStartRecording_CaptureFaultSetsMessage(t *testing.T) {
	w := New(Options{SessionID: "s", Device: media.NewPushDevice(false), Submitter: &fakeSubmitter{}, Logger: zaptest.NewLogger(t)})
	defer w.Close()
	readyToSubmit(t, w)

	err := w.StartRecording(context.Background())

	var fault *model.CaptureUnavailableError
	require.ErrorAs(t, err, &fault)
	v := w.View()
	assert.Equal(t, model.RecordingIdle, v.Recording)
	assert.Equal(t, fault.Remediation(), v.Message)
}

func TestRequestFeedback(t *testing.T) {
	fb := &fakeFeedback{block: make(chan struct{})}
	w := newWizard(t, &fakeSubmitter{}, fb)

	_, err := w.RequestFeedback()
	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)

	require.NoError(t, w.UpdateProfile(validProfile))
	started, err := w.RequestFeedback()
	require.NoError(t, err)
	assert.True(t, started)

	// pending request is not duplicated and does not gate progression
	again, err := w.RequestFeedback()
	require.NoError(t, err)
	assert.False(t, again)
	assert.True(t, w.View().FeedbackPending)
	require.NoError(t, w.Next())

	close(fb.block)
	assert.Eventually(t, func() bool {
		v := w.View()
		return !v.FeedbackPending && v.Feedback == "Feedback for Jane Doe"
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, int32(1), fb.calls.Load())
	assert.Equal(t, model.StepMedia, w.View().Step)
}

func TestRequestFeedback_DroppedAfterReset(t *testing.T) {
	fb := &fakeFeedback{block: make(chan struct{})}
	w := newWizard(t, &fakeSubmitter{}, fb)
	require.NoError(t, w.UpdateProfile(validProfile))

	_, err := w.RequestFeedback()
	require.NoError(t, err)
	w.Reset()

	assert.Eventually(t, func() bool { return fb.calls.Load() == 1 }, time.Second, 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	v := w.View()
	assert.Empty(t, v.Feedback)
	assert.False(t, v.FeedbackPending)
}

func TestClose_RejectsFurtherUse(t *testing.T) {
	w := newWizard(t, &fakeSubmitter{}, nil)
	w.Close()

	assert.ErrorIs(t, w.UpdateProfile(validProfile), model.ErrSessionNotFound)
	assert.True(t, errors.Is(w.Next(), model.ErrSessionNotFound))
}
