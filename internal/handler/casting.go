package handler

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/aiimpactmedia/casting/internal/media"
	"github.com/aiimpactmedia/casting/internal/model"
	"github.com/aiimpactmedia/casting/internal/wizard"
	"github.com/aiimpactmedia/casting/pkg/response"
)

const (
	maxPhotoSize = 15 * 1024 * 1024 // 15MB
	maxAudioSize = 50 * 1024 * 1024 // 50MB
	maxChunkSize = 1024 * 1024
)

type CastingHandler struct {
	sessions  *wizard.Registry
	validator *validator.Validate
	logger    *zap.Logger
}

func NewCastingHandler(sessions *wizard.Registry, v *validator.Validate, logger *zap.Logger) *CastingHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CastingHandler{
		sessions:  sessions,
		validator: v,
		logger:    logger.With(zap.String("component", "casting-handler")),
	}
}

// Register mounts the session routes on r. Rate limiters are applied per
// route by the caller.
func (h *CastingHandler) Register(r fiber.Router, submitLimit, feedbackLimit fiber.Handler) {
	r.Post("/sessions", h.Create)
	s := r.Group("/sessions/:id")
	s.Get("/", h.Get)
	s.Delete("/", h.Delete)
	s.Post("/reset", h.Reset)
	s.Put("/profile", h.UpdateProfile)
	s.Post("/next", h.Next)
	s.Post("/back", h.Back)
	s.Post("/feedback", feedbackLimit, h.Feedback)
	s.Post("/photos", h.AddPhotos)
	s.Delete("/photos/:index", h.RemovePhoto)
	s.Post("/audio", h.UploadAudio)
	s.Delete("/audio", h.ClearAudio)
	s.Post("/recording/start", h.StartRecording)
	s.Post("/recording/chunks", h.PushChunk)
	s.Post("/recording/stop", h.StopRecording)
	s.Put("/consent", h.SetConsent)
	s.Put("/signature", h.SetSignature)
	s.Delete("/signature", h.ClearSignature)
	s.Get("/previews/:previewId", h.Preview)
	s.Post("/submit", submitLimit, h.Submit)
}

// Create handles POST /api/casting/sessions
func (h *CastingHandler) Create(c *fiber.Ctx) error {
	w := h.sessions.Create()
	return response.Created(c, w.View())
}

// Get handles GET /api/casting/sessions/:id
func (h *CastingHandler) Get(c *fiber.Ctx) error {
	w, err := h.session(c)
	if err != nil {
		return h.fail(c, err)
	}
	return response.OK(c, w.View())
}

// Delete handles DELETE /api/casting/sessions/:id
func (h *CastingHandler) Delete(c *fiber.Ctx) error {
	if err := h.sessions.Remove(c.Params("id")); err != nil {
		return h.fail(c, err)
	}
	return response.NoContent(c)
}

// Reset handles POST /api/casting/sessions/:id/reset
func (h *CastingHandler) Reset(c *fiber.Ctx) error {
	w, err := h.session(c)
	if err != nil {
		return h.fail(c, err)
	}
	w.Reset()
	return response.OK(c, w.View())
}

// UpdateProfile handles PUT /api/casting/sessions/:id/profile
func (h *CastingHandler) UpdateProfile(c *fiber.Ctx) error {
	w, err := h.session(c)
	if err != nil {
		return h.fail(c, err)
	}

	var req model.ProfileUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}
	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	if err := w.UpdateProfile(req); err != nil {
		return h.fail(c, err)
	}
	return response.OK(c, w.View())
}

// Next handles POST /api/casting/sessions/:id/next
func (h *CastingHandler) Next(c *fiber.Ctx) error {
	return h.transition(c, (*wizard.Wizard).Next)
}

// Back handles POST /api/casting/sessions/:id/back
func (h *CastingHandler) Back(c *fiber.Ctx) error {
	return h.transition(c, (*wizard.Wizard).Back)
}

// Feedback handles POST /api/casting/sessions/:id/feedback
func (h *CastingHandler) Feedback(c *fiber.Ctx) error {
	w, err := h.session(c)
	if err != nil {
		return h.fail(c, err)
	}
	if _, err := w.RequestFeedback(); err != nil {
		return h.fail(c, err)
	}
	return response.Accepted(c, w.View())
}

// AddPhotos handles POST /api/casting/sessions/:id/photos
func (h *CastingHandler) AddPhotos(c *fiber.Ctx) error {
	w, err := h.session(c)
	if err != nil {
		return h.fail(c, err)
	}

	form, err := c.MultipartForm()
	if err != nil {
		return response.ValidationError(c, "Multipart form is required", nil)
	}
	headers := form.File["photos"]
	if len(headers) == 0 {
		return response.ValidationError(c, "At least one photo is required", nil)
	}

	files := make([]model.Artifact, 0, len(headers))
	for _, fh := range headers {
		if fh.Size > maxPhotoSize {
			return response.ValidationError(c, "Photo size exceeds 15MB limit", map[string]interface{}{
				"file":     fh.Filename,
				"maxSize":  maxPhotoSize,
				"fileSize": fh.Size,
			})
		}
		a, err := readArtifact(fh)
		if err != nil {
			return response.ServiceError(c, "Failed to read file")
		}
		files = append(files, a)
	}

	added, err := w.AddPhotos(files)
	if err != nil {
		return h.fail(c, err)
	}
	return response.OK(c, fiber.Map{
		"added":   added,
		"session": w.View(),
	})
}

// RemovePhoto handles DELETE /api/casting/sessions/:id/photos/:index
func (h *CastingHandler) RemovePhoto(c *fiber.Ctx) error {
	w, err := h.session(c)
	if err != nil {
		return h.fail(c, err)
	}
	index, err := strconv.Atoi(c.Params("index"))
	if err != nil {
		return response.ValidationError(c, "Photo index must be a number", nil)
	}
	if err := w.RemovePhoto(index); err != nil {
		return h.fail(c, err)
	}
	return response.OK(c, w.View())
}

// UploadAudio handles POST /api/casting/sessions/:id/audio
func (h *CastingHandler) UploadAudio(c *fiber.Ctx) error {
	w, err := h.session(c)
	if err != nil {
		return h.fail(c, err)
	}

	fh, err := c.FormFile("audio")
	if err != nil {
		return response.ValidationError(c, "Audio file is required", nil)
	}
	if fh.Size > maxAudioSize {
		return response.ValidationError(c, "File size exceeds 50MB limit", map[string]interface{}{
			"maxSize":  maxAudioSize,
			"fileSize": fh.Size,
		})
	}

	a, err := readArtifact(fh)
	if err != nil {
		return response.ServiceError(c, "Failed to read file")
	}
	if err := w.UploadAudio(a); err != nil {
		return h.fail(c, err)
	}
	return response.OK(c, w.View())
}

// ClearAudio handles DELETE /api/casting/sessions/:id/audio
func (h *CastingHandler) ClearAudio(c *fiber.Ctx) error {
	return h.transition(c, (*wizard.Wizard).ClearAudio)
}

// StartRecording handles POST /api/casting/sessions/:id/recording/start
func (h *CastingHandler) StartRecording(c *fiber.Ctx) error {
	w, err := h.session(c)
	if err != nil {
		return h.fail(c, err)
	}
	if err := w.StartRecording(c.UserContext()); err != nil {
		return h.fail(c, err)
	}
	return response.OK(c, w.View())
}

// PushChunk handles POST /api/casting/sessions/:id/recording/chunks. The
// body is one raw encoded audio chunk.
func (h *CastingHandler) PushChunk(c *fiber.Ctx) error {
	w, err := h.session(c)
	if err != nil {
		return h.fail(c, err)
	}
	body := c.Body()
	if len(body) == 0 {
		return response.ValidationError(c, "Chunk body is required", nil)
	}
	if len(body) > maxChunkSize {
		return response.ValidationError(c, "Chunk exceeds 1MB limit", nil)
	}
	if err := w.PushAudio(body); err != nil {
		return h.fail(c, err)
	}
	return response.NoContent(c)
}

// StopRecording handles POST /api/casting/sessions/:id/recording/stop
func (h *CastingHandler) StopRecording(c *fiber.Ctx) error {
	w, err := h.session(c)
	if err != nil {
		return h.fail(c, err)
	}
	if _, err := w.StopRecording(); err != nil {
		return h.fail(c, err)
	}
	return response.OK(c, w.View())
}

// SetConsent handles PUT /api/casting/sessions/:id/consent
func (h *CastingHandler) SetConsent(c *fiber.Ctx) error {
	w, err := h.session(c)
	if err != nil {
		return h.fail(c, err)
	}
	var req model.ConsentRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}
	if err := w.SetConsent(req.Accepted); err != nil {
		return h.fail(c, err)
	}
	return response.OK(c, w.View())
}

// SetSignature handles PUT /api/casting/sessions/:id/signature
func (h *CastingHandler) SetSignature(c *fiber.Ctx) error {
	w, err := h.session(c)
	if err != nil {
		return h.fail(c, err)
	}

	var req model.SignatureRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}
	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	if _, err := w.SetSignature(req); err != nil {
		return h.fail(c, err)
	}
	return response.OK(c, w.View())
}

// ClearSignature handles DELETE /api/casting/sessions/:id/signature
func (h *CastingHandler) ClearSignature(c *fiber.Ctx) error {
	return h.transition(c, (*wizard.Wizard).ClearSignature)
}

// Preview handles GET /api/casting/sessions/:id/previews/:previewId
func (h *CastingHandler) Preview(c *fiber.Ctx) error {
	w, err := h.session(c)
	if err != nil {
		return h.fail(c, err)
	}
	a, ok := w.Preview(c.Params("previewId"))
	if !ok {
		return response.NotFound(c, "Preview not found")
	}
	c.Set(fiber.HeaderContentType, previewContentType(a.ContentType))
	c.Set(fiber.HeaderXContentTypeOptions, "nosniff")
	c.Set(fiber.HeaderContentDisposition, "inline")
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.Send(a.Data)
}

var previewTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// previewContentType echoes only known media types back to the browser
func previewContentType(declared string) string {
	ct := strings.ToLower(strings.TrimSpace(strings.SplitN(declared, ";", 2)[0]))
	if previewTypes[ct] || (strings.HasPrefix(ct, "audio/") && !strings.ContainsAny(ct, " \t\r\n")) {
		return ct
	}
	return fiber.MIMEOctetStream
}

// Submit handles POST /api/casting/sessions/:id/submit. Progress is
// streamed on /ws/casting/:id while the pipeline runs.
func (h *CastingHandler) Submit(c *fiber.Ctx) error {
	w, err := h.session(c)
	if err != nil {
		return h.fail(c, err)
	}
	rec, err := w.Submit(c.UserContext())
	if err != nil {
		return h.fail(c, err)
	}
	return response.Created(c, rec)
}

func (h *CastingHandler) session(c *fiber.Ctx) (*wizard.Wizard, error) {
	return h.sessions.Get(c.Params("id"))
}

func (h *CastingHandler) transition(c *fiber.Ctx, op func(*wizard.Wizard) error) error {
	w, err := h.session(c)
	if err != nil {
		return h.fail(c, err)
	}
	if err := op(w); err != nil {
		return h.fail(c, err)
	}
	return response.OK(c, w.View())
}

// fail maps wizard and pipeline errors onto HTTP responses
func (h *CastingHandler) fail(c *fiber.Ctx, err error) error {
	var verr *model.ValidationError
	var fault *model.CaptureUnavailableError

	switch {
	case errors.As(err, &verr):
		return response.ValidationError(c, verr.Message, map[string]string{"field": verr.Field})
	case errors.As(err, &fault):
		return response.CaptureUnavailable(c, fault.Remediation(), string(fault.Reason))
	case errors.Is(err, model.ErrSessionNotFound):
		return response.NotFound(c, "Session not found")
	case errors.Is(err, model.ErrSubmissionInProgress):
		return response.Conflict(c, "A submission is already in progress")
	case errors.Is(err, model.ErrInvalidStep):
		return response.Conflict(c, "Operation not allowed in the current step")
	case errors.Is(err, media.ErrNotRecording):
		return response.Conflict(c, "No active recording")
	case errors.Is(err, media.ErrStreamFull):
		return response.Error(c, fiber.StatusServiceUnavailable, response.CodeServiceError, "Recording buffer full, retry the chunk", nil)
	case errors.Is(err, model.ErrSubmissionFailed):
		h.logger.Warn("submission failed", zap.String("sessionId", c.Params("id")), zap.Error(err))
		return response.SubmissionFailed(c, model.SubmissionFailedMessage)
	default:
		h.logger.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
		return response.ServiceError(c, "Internal error")
	}
}

func readArtifact(fh *multipart.FileHeader) (model.Artifact, error) {
	f, err := fh.Open()
	if err != nil {
		return model.Artifact{}, fmt.Errorf("failed to open %s: %w", fh.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return model.Artifact{}, fmt.Errorf("failed to read %s: %w", fh.Filename, err)
	}
	return model.Artifact{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        int64(len(data)),
		Data:        data,
	}, nil
}

// formatValidationErrors formats validator errors for response
func formatValidationErrors(err error) interface{} {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		errors := make(map[string]string)
		for _, e := range validationErrors {
			errors[e.Field()] = e.Tag()
		}
		return errors
	}
	return nil
}
