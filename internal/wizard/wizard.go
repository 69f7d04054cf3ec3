// Package wizard drives an applicant through the casting steps: profile,
// media, then a single guarded submission.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/aiimpactmedia/casting/internal/media"
	"github.com/aiimpactmedia/casting/internal/model"
	"github.com/aiimpactmedia/casting/internal/service"
	"github.com/aiimpactmedia/casting/internal/signature"
)

const (
	ConsentRequiredMessage   = "You must agree to the release and waiver to submit."
	SignatureRequiredMessage = "Please sign the form before submitting."
)

// Submitter runs the submission pipeline
type Submitter interface {
	Submit(ctx context.Context, draft model.ApplicantDraft, obs service.ProgressObserver) (model.SubmissionRecord, error)
}

// FeedbackProvider returns AI text for a (name, bio) pair. It never fails.
type FeedbackProvider interface {
	CastingFeedback(ctx context.Context, name, bio string) string
}

// Options configures a new Wizard
type Options struct {
	SessionID string
	Device    media.Device
	Submitter Submitter
	Feedback  FeedbackProvider
	Observer  service.ProgressObserver
	Validate  *validator.Validate
	Logger    *zap.Logger
}

// Wizard is the state machine for one applicant draft. All methods are
// safe for concurrent use.
type Wizard struct {
	mu sync.Mutex

	id        string
	device    media.Device
	submitter Submitter
	feedback  FeedbackProvider
	observer  service.ProgressObserver
	validate  *validator.Validate
	logger    *zap.Logger

	step    model.Step
	profile model.Profile
	consent bool
	media   *media.Controller
	pad     *signature.Pad
	message string
	record  *model.SubmissionRecord

	feedbackText    string
	feedbackPending bool

	// generation changes on Reset so late async results can be dropped
	generation uint64
	ctx        context.Context
	cancel     context.CancelFunc
	lastActive time.Time
	closed     bool
}

// New creates a wizard on the Profile step with an empty draft
func New(opts Options) *Wizard {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	validate := opts.Validate
	if validate == nil {
		validate = validator.New()
	}

	w := &Wizard{
		id:        opts.SessionID,
		device:    opts.Device,
		submitter: opts.Submitter,
		feedback:  opts.Feedback,
		observer:  opts.Observer,
		validate:  validate,
		logger:    logger.With(zap.String("sessionId", opts.SessionID)),
	}
	w.resetLocked()
	return w
}

// ID returns the session id
func (w *Wizard) ID() string {
	return w.id
}

// UpdateProfile replaces the identity fields. Only allowed on Profile.
func (w *Wizard) UpdateProfile(req model.ProfileUpdateRequest) error {
	if err := w.validate.Struct(req); err != nil {
		return toValidationError(err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.requireStep(model.StepProfile); err != nil {
		return err
	}

	platform := req.Platform
	if platform == "" {
		platform = w.profile.Platform
	}
	w.profile = model.Profile{
		Name:         strings.TrimSpace(req.Name),
		Email:        strings.TrimSpace(req.Email),
		Platform:     platform,
		SocialHandle: strings.TrimSpace(req.SocialHandle),
		Bio:          strings.TrimSpace(req.Bio),
	}
	w.message = ""
	return nil
}

// Next moves Profile to Media when every identity field is present
func (w *Wizard) Next() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.requireStep(model.StepProfile); err != nil {
		return err
	}
	if err := w.validate.Struct(w.profile); err != nil {
		verr := toValidationError(err)
		w.message = verr.Message
		return verr
	}

	w.step = model.StepMedia
	w.message = ""
	w.logger.Debug("step changed", zap.String("step", string(w.step)))
	return nil
}

// Back returns from Media to Profile keeping all draft data
func (w *Wizard) Back() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.requireStep(model.StepMedia); err != nil {
		return err
	}
	w.step = model.StepProfile
	w.message = ""
	return nil
}

// SetConsent records the release and waiver acceptance
func (w *Wizard) SetConsent(accepted bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.requireStep(model.StepMedia); err != nil {
		return err
	}
	w.consent = accepted
	return nil
}

// SetSignature replaces the signature with the given strokes. An empty
// drawing clears it.
func (w *Wizard) SetSignature(req model.SignatureRequest) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.requireStep(model.StepMedia); err != nil {
		return "", err
	}
	return w.pad.Capture(req), nil
}

// ClearSignature wipes the signature pad
func (w *Wizard) ClearSignature() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.requireStep(model.StepMedia); err != nil {
		return err
	}
	w.pad.Clear()
	return nil
}

// AddPhotos forwards to the media controller
func (w *Wizard) AddPhotos(files []model.Artifact) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.requireStep(model.StepMedia); err != nil {
		return 0, err
	}
	return w.media.AddPhotos(files), nil
}

func (w *Wizard) RemovePhoto(index int) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.requireStep(model.StepMedia); err != nil {
		return err
	}
	w.media.RemovePhoto(index)
	return nil
}

func (w *Wizard) UploadAudio(f model.Artifact) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.requireStep(model.StepMedia); err != nil {
		return err
	}
	return w.media.UploadAudio(f)
}

func (w *Wizard) ClearAudio() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.requireStep(model.StepMedia); err != nil {
		return err
	}
	w.media.ClearAudio()
	return nil
}

// StartRecording begins a live capture. Capture faults leave the wizard's
// message set to the reason-specific remediation text.
func (w *Wizard) StartRecording(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.requireStep(model.StepMedia); err != nil {
		return err
	}
	err := w.media.StartRecording(ctx)
	var fault *model.CaptureUnavailableError
	if errors.As(err, &fault) {
		w.message = fault.Remediation()
	}
	return err
}

// StopRecording finalizes the capture. Returns false if nothing was recording.
func (w *Wizard) StopRecording() (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.requireStep(model.StepMedia); err != nil {
		return false, err
	}
	return w.media.StopRecording(), nil
}

// PushAudio feeds a captured chunk to a push-fed microphone
func (w *Wizard) PushAudio(chunk []byte) error {
	w.mu.Lock()
	dev, ok := w.device.(*media.PushDevice)
	w.mu.Unlock()

	if !ok {
		return media.ErrNotRecording
	}
	return dev.Push(chunk)
}

// Preview returns the artifact behind a live preview handle
func (w *Wizard) Preview(id string) (model.Artifact, bool) {
	w.mu.Lock()
	c := w.media
	w.mu.Unlock()
	return c.Preview(id)
}

// Submit gates on consent and signature, then runs the pipeline once. A
// second call while the first is in flight fails with
// model.ErrSubmissionInProgress.
func (w *Wizard) Submit(ctx context.Context) (model.SubmissionRecord, error) {
	w.mu.Lock()
	if w.step == model.StepSubmitting {
		w.mu.Unlock()
		return model.SubmissionRecord{}, model.ErrSubmissionInProgress
	}
	if err := w.requireStep(model.StepMedia); err != nil {
		w.mu.Unlock()
		return model.SubmissionRecord{}, err
	}
	if !w.consent {
		w.message = ConsentRequiredMessage
		w.mu.Unlock()
		return model.SubmissionRecord{}, &model.ValidationError{Field: "consent", Message: ConsentRequiredMessage}
	}
	if w.pad.Value() == "" {
		w.message = SignatureRequiredMessage
		w.mu.Unlock()
		return model.SubmissionRecord{}, &model.ValidationError{Field: "signature", Message: SignatureRequiredMessage}
	}

	// a capture still running is finalized into the draft
	w.media.StopRecording()
	draft := w.draftLocked()
	gen := w.generation
	w.step = model.StepSubmitting
	w.message = ""
	w.mu.Unlock()

	w.logger.Info("submitting", zap.Int("photos", len(draft.Photos)), zap.Bool("audio", !draft.Audio.IsEmpty()))
	rec, err := w.submitter.Submit(ctx, draft, w.observer)

	w.mu.Lock()
	defer w.mu.Unlock()

	if gen != w.generation {
		w.logger.Info("discarding submission result after reset", zap.Error(err))
		if err != nil {
			return model.SubmissionRecord{}, fmt.Errorf("%w: %w", model.ErrSubmissionFailed, err)
		}
		return rec, nil
	}

	if err != nil {
		w.step = model.StepMedia
		w.message = model.SubmissionFailedMessage
		return model.SubmissionRecord{}, fmt.Errorf("%w: %w", model.ErrSubmissionFailed, err)
	}

	w.step = model.StepComplete
	w.record = &rec
	w.media.Close()
	return rec, nil
}

// RequestFeedback asks for AI feedback on the current name and bio in the
// background. It never changes the step. Returns false when a request is
// already pending or the inputs are missing.
func (w *Wizard) RequestFeedback() (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.requireStep(model.StepProfile); err != nil {
		return false, err
	}
	if w.profile.Name == "" || w.profile.Bio == "" {
		return false, &model.ValidationError{Field: "bio", Message: "Name and bio are required for feedback."}
	}
	if w.feedbackPending || w.feedback == nil {
		return false, nil
	}

	w.feedbackPending = true
	gen := w.generation
	ctx := w.ctx
	name, bio := w.profile.Name, w.profile.Bio

	go func() {
		text := w.feedback.CastingFeedback(ctx, name, bio)

		w.mu.Lock()
		defer w.mu.Unlock()
		if gen != w.generation {
			return
		}
		w.feedbackText = text
		w.feedbackPending = false
	}()
	return true, nil
}

// Reset discards the draft and starts over on Profile. Any recording is
// cancelled and its device released.
func (w *Wizard) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.teardownLocked()
	w.resetLocked()
}

// Close releases every resource held by the wizard
func (w *Wizard) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}
	w.closed = true
	w.teardownLocked()
	w.generation++
}

// Touch marks the wizard as used now
func (w *Wizard) Touch() {
	w.mu.Lock()
	w.lastActive = time.Now()
	w.mu.Unlock()
}

// IdleSince reports the last time the wizard was touched
func (w *Wizard) IdleSince() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastActive
}

// Draft returns a snapshot of the accumulated draft
func (w *Wizard) Draft() model.ApplicantDraft {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.draftLocked()
}

// View is a read-only snapshot for rendering
type View struct {
	SessionID       string                  `json:"sessionId"`
	Step            model.Step              `json:"step"`
	Profile         model.Profile           `json:"profile"`
	Photos          []media.PhotoView       `json:"photos"`
	Audio           *media.AudioView        `json:"audio"`
	Recording       model.RecordingState    `json:"recording"`
	Consent         bool                    `json:"consent"`
	Signed          bool                    `json:"signed"`
	Feedback        string                  `json:"feedback,omitempty"`
	FeedbackPending bool                    `json:"feedbackPending"`
	Message         string                  `json:"message,omitempty"`
	Submission      *model.SubmissionRecord `json:"submission,omitempty"`
}

// View returns the current snapshot
func (w *Wizard) View() View {
	w.mu.Lock()
	defer w.mu.Unlock()

	return View{
		SessionID:       w.id,
		Step:            w.step,
		Profile:         w.profile,
		Photos:          w.media.PhotoViews(),
		Audio:           w.media.AudioView(),
		Recording:       w.media.State(),
		Consent:         w.consent,
		Signed:          w.pad.Value() != "",
		Feedback:        w.feedbackText,
		FeedbackPending: w.feedbackPending,
		Message:         w.message,
		Submission:      w.record,
	}
}

// requireStep must be called with w.mu held
func (w *Wizard) requireStep(step model.Step) error {
	if w.closed {
		return model.ErrSessionNotFound
	}
	if w.step == model.StepSubmitting {
		return model.ErrSubmissionInProgress
	}
	if w.step != step {
		return fmt.Errorf("%w: in %s, need %s", model.ErrInvalidStep, w.step, step)
	}
	return nil
}

func (w *Wizard) draftLocked() model.ApplicantDraft {
	d := model.ApplicantDraft{
		Profile:   w.profile,
		Photos:    w.media.Photos(),
		Audio:     w.media.Audio(),
		Consent:   w.consent,
		Signature: w.pad.Value(),
	}
	return d.Clone()
}

func (w *Wizard) teardownLocked() {
	if w.cancel != nil {
		w.cancel()
	}
	if w.media != nil {
		w.media.Close()
	}
}

func (w *Wizard) resetLocked() {
	w.ctx, w.cancel = context.WithCancel(context.Background())
	w.generation++

	draft := model.NewDraft()
	w.step = model.StepProfile
	w.profile = draft.Profile
	w.consent = false
	w.media = media.NewController(w.device, w.logger)
	w.pad = signature.NewPad(signature.DefaultWidth, signature.DefaultHeight)
	w.message = ""
	w.record = nil
	w.feedbackText = ""
	w.feedbackPending = false
	w.lastActive = time.Now()
}

// toValidationError maps the first validator failure to a ValidationError
func toValidationError(err error) *model.ValidationError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &model.ValidationError{Field: "request", Message: err.Error()}
	}
	fe := verrs[0]
	field := lowerFirst(fe.Field())
	msg := fmt.Sprintf("%s is invalid", field)
	if fe.Tag() == "required" {
		msg = fmt.Sprintf("%s is required", field)
	}
	return &model.ValidationError{Field: field, Message: msg}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
