package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/aiimpactmedia/casting/internal/model"
	"github.com/aiimpactmedia/casting/internal/service"
	"github.com/aiimpactmedia/casting/pkg/response"
)

type AdminHandler struct {
	service   *service.AdminService
	validator *validator.Validate
}

func NewAdminHandler(svc *service.AdminService, v *validator.Validate) *AdminHandler {
	return &AdminHandler{
		service:   svc,
		validator: v,
	}
}

// List handles GET /api/admin/submissions
func (h *AdminHandler) List(c *fiber.Ctx) error {
	result, err := h.service.List(c.UserContext())
	if err != nil {
		return response.ServiceError(c, "Failed to load submissions")
	}
	return response.OK(c, result)
}

// UpdateStatus handles PATCH /api/admin/submissions/:id/status
func (h *AdminHandler) UpdateStatus(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return response.ValidationError(c, "Submission ID is required", nil)
	}

	var req model.StatusUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}
	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	rec, err := h.service.UpdateStatus(c.UserContext(), id, req.Status)
	switch {
	case errors.Is(err, model.ErrRecordNotFound):
		return response.NotFound(c, "Submission not found")
	case errors.Is(err, model.ErrInvalidStatus):
		return response.ValidationError(c, "Invalid status", nil)
	case err != nil:
		return response.ServiceError(c, "Failed to update submission")
	}
	return response.OK(c, rec)
}
