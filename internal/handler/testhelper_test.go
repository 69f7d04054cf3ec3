package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap/zaptest"

	"github.com/aiimpactmedia/casting/internal/media"
	"github.com/aiimpactmedia/casting/internal/middleware"
	"github.com/aiimpactmedia/casting/internal/service"
	"github.com/aiimpactmedia/casting/internal/store"
	"github.com/aiimpactmedia/casting/internal/websocket"
	"github.com/aiimpactmedia/casting/internal/wizard"
)

const testJWTSecret = "test-secret-for-handlers"

// testApp holds all components needed for testing
type testApp struct {
	app      *fiber.App
	store    *store.MemoryStore
	sessions *wizard.Registry
	auth     *middleware.AuthMiddleware
}

// setupApp wires the same routes as main.go with unconfigured external
// clients, so staging, feedback and notifications use their fallbacks.
func setupApp(t *testing.T, micAvailable bool) *testApp {
	t.Helper()

	logger := zaptest.NewLogger(t)
	validate := validator.New()
	hub := websocket.NewHub(logger)

	memStore := store.NewMemoryStore()
	stagingService := service.NewStagingService(nil, "https://storage.test", logger)
	notificationService := service.NewNotificationService(nil, logger)
	feedbackService := service.NewFeedbackService(nil, logger)
	submissionService := service.NewSubmissionService(stagingService, memStore, notificationService, logger)
	sponsorService := service.NewSponsorService(feedbackService, notificationService, logger)
	adminService := service.NewAdminService(memStore)

	sessions := wizard.NewRegistry(func(id string) wizard.Options {
		return wizard.Options{
			SessionID: id,
			Device:    media.NewPushDevice(micAvailable),
			Submitter: submissionService,
			Feedback:  feedbackService,
			Observer:  hub.Observer(id),
			Validate:  validate,
			Logger:    logger,
		}
	}, time.Hour, logger)

	authMiddleware := middleware.NewAuthMiddleware(testJWTSecret)
	rateLimiter := middleware.NewRateLimiter(nil, logger)

	castingHandler := NewCastingHandler(sessions, validate, logger)
	adminHandler := NewAdminHandler(adminService, validate)
	sponsorHandler := NewSponsorHandler(sponsorService, validate)

	app := fiber.New(fiber.Config{
		BodyLimit: 50 * 1024 * 1024,
	})

	api := app.Group("/api")
	castingHandler.Register(api.Group("/casting"), rateLimiter.SubmitLimit(10000), rateLimiter.FeedbackLimit(10000))
	api.Post("/sponsors", rateLimiter.SponsorLimit(10000), sponsorHandler.Submit)

	admin := api.Group("/admin", authMiddleware.RequireAdmin())
	admin.Get("/submissions", adminHandler.List)
	admin.Patch("/submissions/:id/status", adminHandler.UpdateStatus)

	return &testApp{app: app, store: memStore, sessions: sessions, auth: authMiddleware}
}

// doRequest sends a JSON request through the app
func (ta *testApp) doRequest(t *testing.T, method, path string, body interface{}, token string) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, path, reader)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return ta.send(t, req)
}

func (ta *testApp) send(t *testing.T, req *http.Request) *http.Response {
	t.Helper()
	resp, err := ta.app.Test(req, 5000)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

type filePart struct {
	field       string
	name        string
	contentType string
	data        []byte
}

// doMultipart sends a multipart/form-data request
func (ta *testApp) doMultipart(t *testing.T, path string, parts ...filePart) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for _, p := range parts {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+p.field+`"; filename="`+p.name+`"`)
		h.Set("Content-Type", p.contentType)
		part, err := writer.CreatePart(h)
		if err != nil {
			t.Fatalf("failed to create part: %v", err)
		}
		_, _ = part.Write(p.data)
	}
	writer.Close()

	req, err := http.NewRequest(http.MethodPost, path, &buf)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return ta.send(t, req)
}

// parseJSON reads and unmarshals the response body
func parseJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	var result map[string]interface{}
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, string(body))
	}
	return result
}

// assertStatus checks the HTTP status code
func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected status %d, got %d\nbody: %s", expected, resp.StatusCode, strings.TrimSpace(string(body)))
	}
}

// assertErrorCode checks the error code in an error response
func assertErrorCode(t *testing.T, result map[string]interface{}, expected string) {
	t.Helper()
	errObj, ok := result["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error object in response, got: %v", result)
	}
	if code := errObj["code"]; code != expected {
		t.Fatalf("expected error code %q, got %q", expected, code)
	}
}

func (ta *testApp) adminToken(t *testing.T) string {
	t.Helper()
	token, err := ta.auth.GenerateToken("admin-1", "ops@aiimpactmedia.com", middleware.RoleAdmin, time.Hour)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	return token
}

// createSession starts a session and returns its base path
func (ta *testApp) createSession(t *testing.T) string {
	t.Helper()
	resp := ta.doRequest(t, http.MethodPost, "/api/casting/sessions", nil, "")
	assertStatus(t, resp, http.StatusCreated)
	result := parseJSON(t, resp)
	id, _ := result["sessionId"].(string)
	if id == "" {
		t.Fatalf("missing sessionId in %v", result)
	}
	return "/api/casting/sessions/" + id
}

var completeProfile = map[string]interface{}{
	"name":         "Jane Doe",
	"email":        "jane@example.com",
	"platform":     "TikTok",
	"socialHandle": "@jane",
	"bio":          "Singer and dancer from Austin.",
}

var testSignature = map[string]interface{}{
	"width":  500,
	"height": 200,
	"strokes": [][]map[string]float64{
		{{"x": 10, "y": 10}, {"x": 40, "y": 60}},
	},
}

// toMedia fills the profile and advances to the media step
func (ta *testApp) toMedia(t *testing.T, base string) {
	t.Helper()
	assertStatus(t, ta.doRequest(t, http.MethodPut, base+"/profile", completeProfile, ""), http.StatusOK)
	assertStatus(t, ta.doRequest(t, http.MethodPost, base+"/next", nil, ""), http.StatusOK)
}
