package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/aiimpactmedia/casting/internal/model"
	"github.com/aiimpactmedia/casting/internal/service"
	"github.com/aiimpactmedia/casting/pkg/response"
)

type SponsorHandler struct {
	service   *service.SponsorService
	validator *validator.Validate
}

func NewSponsorHandler(svc *service.SponsorService, v *validator.Validate) *SponsorHandler {
	return &SponsorHandler{
		service:   svc,
		validator: v,
	}
}

// Submit handles POST /api/sponsors
func (h *SponsorHandler) Submit(c *fiber.Ctx) error {
	var req model.SponsorInquiryRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.service.Submit(c.UserContext(), &req)
	if err != nil {
		return response.ServiceError(c, err.Error())
	}

	return response.Created(c, result)
}
