package media

import (
	"bytes"
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/aiimpactmedia/casting/internal/model"
)

const (
	recordingContentType = "audio/mp3"
	recordingDisplayName = "Recording.mp3"
)

// PhotoView describes a held photo and its preview handle
type PhotoView struct {
	Index       int    `json:"index"`
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
	PreviewID   string `json:"previewId"`
}

// AudioView describes the held audio artifact
type AudioView struct {
	Source    model.AudioSource `json:"source"`
	Name      string            `json:"name"`
	Size      int64             `json:"size"`
	PreviewID string            `json:"previewId"`
}

// recordingSession owns an acquired stream while recording
type recordingSession struct {
	stream Stream
	chunks [][]byte
	done   chan struct{}
}

func (s *recordingSession) drain() {
	defer close(s.done)
	for chunk := range s.stream.Chunks() {
		if len(chunk) > 0 {
			s.chunks = append(s.chunks, chunk)
		}
	}
}

// Controller manages photo selection and the single audio slot, including
// the live recording lifecycle. Every preview it creates is released when
// superseded or when the controller is closed.
type Controller struct {
	mu       sync.Mutex
	device   Device
	previews *PreviewPool
	logger   *zap.Logger

	photos        []model.Artifact
	photoPreviews []*Preview
	audio         model.Audio
	audioPreview  *Preview

	state   model.RecordingState
	session *recordingSession
	closed  bool
}

// NewController creates a controller recording from device
func NewController(device Device, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		device:   device,
		previews: NewPreviewPool(),
		logger:   logger.With(zap.String("component", "media")),
		state:    model.RecordingIdle,
	}
}

// AddPhotos appends the image-typed files and keeps only the first
// MaxPhotos of the combined sequence. Returns how many new files were kept.
func (c *Controller) AddPhotos(files []model.Artifact) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	added := 0
	for _, f := range files {
		if !f.IsImage() {
			continue
		}
		if len(c.photos) >= model.MaxPhotos {
			break
		}
		c.photos = append(c.photos, f)
		c.photoPreviews = append(c.photoPreviews, c.previews.Acquire(f))
		added++
	}
	return added
}

// RemovePhoto drops the photo at index. Out of range is a no-op.
func (c *Controller) RemovePhoto(index int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if index < 0 || index >= len(c.photos) {
		return false
	}
	c.photoPreviews[index].Release()
	c.photos = append(c.photos[:index], c.photos[index+1:]...)
	c.photoPreviews = append(c.photoPreviews[:index], c.photoPreviews[index+1:]...)
	return true
}

// UploadAudio replaces whatever audio is held with f
func (c *Controller) UploadAudio(f model.Artifact) error {
	if !f.IsAudio() {
		return &model.ValidationError{Field: "audio", Message: "Please choose an audio file (MP3 or similar)."}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.setAudio(model.UploadedAudio(f), f)
	return nil
}

// ClearAudio empties the audio slot
func (c *Controller) ClearAudio() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.audioPreview.Release()
	c.audioPreview = nil
	c.audio = model.Audio{}
}

// StartRecording acquires the device and begins buffering chunks. It is a
// no-op while a recording is already active.
func (c *Controller) StartRecording(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return model.ErrInvalidStep
	}
	if c.state == model.RecordingActive {
		return nil
	}
	if c.device == nil {
		return classifyCaptureFault(ErrDeviceNotFound)
	}

	stream, err := c.device.Acquire(ctx)
	if err != nil {
		fault := classifyCaptureFault(err)
		c.logger.Info("microphone unavailable", zap.String("reason", string(fault.Reason)), zap.Error(err))
		return fault
	}

	session := &recordingSession{stream: stream, done: make(chan struct{})}
	go session.drain()

	c.session = session
	c.state = model.RecordingActive
	c.logger.Debug("recording started")
	return nil
}

// StopRecording finalizes the buffered chunks into the audio slot and
// releases the device. Returns false when nothing was recording. A capture
// that produced no audio leaves the slot untouched and returns to Idle.
func (c *Controller) StopRecording() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != model.RecordingActive {
		return false
	}

	chunks := c.endSession()
	data := bytes.Join(chunks, nil)
	if len(data) == 0 {
		c.state = model.RecordingIdle
		c.logger.Debug("recording discarded, no audio captured")
		return true
	}
	artifact := model.Artifact{
		Name:        recordingDisplayName,
		ContentType: recordingContentType,
		Size:        int64(len(data)),
		Data:        data,
	}
	c.setAudio(model.RecordedAudio(artifact), artifact)
	c.state = model.RecordingStopped
	c.logger.Debug("recording stopped", zap.Int64("bytes", artifact.Size))
	return true
}

// Close cancels any active recording and releases every preview
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true

	if c.state == model.RecordingActive {
		c.endSession()
		c.state = model.RecordingIdle
	}
	for _, p := range c.photoPreviews {
		p.Release()
	}
	c.audioPreview.Release()
	c.photoPreviews = nil
	c.audioPreview = nil
}

// State returns the recording state
func (c *Controller) State() model.RecordingState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Photos returns a copy of the held photos in insertion order
func (c *Controller) Photos() []model.Artifact {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.Artifact(nil), c.photos...)
}

// Audio returns the audio slot
func (c *Controller) Audio() model.Audio {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.audio
}

// PhotoViews describes the held photos
func (c *Controller) PhotoViews() []PhotoView {
	c.mu.Lock()
	defer c.mu.Unlock()

	views := make([]PhotoView, 0, len(c.photos))
	for i, p := range c.photos {
		views = append(views, PhotoView{
			Index:       i,
			Name:        p.Name,
			ContentType: p.ContentType,
			Size:        p.Size,
			PreviewID:   c.previewID(i),
		})
	}
	return views
}

// AudioView describes the audio slot, nil when empty
func (c *Controller) AudioView() *AudioView {
	c.mu.Lock()
	defer c.mu.Unlock()

	a, ok := c.audio.Artifact()
	if !ok {
		return nil
	}
	return &AudioView{
		Source:    c.audio.Source(),
		Name:      a.Name,
		Size:      a.Size,
		PreviewID: previewID(c.audioPreview),
	}
}

// previewID must be called with c.mu held
func (c *Controller) previewID(i int) string {
	if i >= len(c.photoPreviews) {
		return ""
	}
	return previewID(c.photoPreviews[i])
}

func previewID(p *Preview) string {
	if p == nil {
		return ""
	}
	return p.ID
}

// Preview returns the artifact behind a live preview handle
func (c *Controller) Preview(id string) (model.Artifact, bool) {
	return c.previews.Lookup(id)
}

// LivePreviews returns how many preview handles are still held
func (c *Controller) LivePreviews() int {
	return c.previews.Live()
}

// setAudio must be called with c.mu held
func (c *Controller) setAudio(audio model.Audio, a model.Artifact) {
	c.audioPreview.Release()
	c.audio = audio
	c.audioPreview = c.previews.Acquire(a)
}

// endSession must be called with c.mu held
func (c *Controller) endSession() [][]byte {
	s := c.session
	c.session = nil
	if err := s.stream.Close(); err != nil {
		c.logger.Warn("failed to release microphone", zap.Error(err))
	}
	<-s.done
	return s.chunks
}
