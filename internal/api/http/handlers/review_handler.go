package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/mortgage-service/internal/api/dto"
	"github.com/spec-kit/mortgage-service/internal/auth"
	"github.com/spec-kit/mortgage-service/internal/domain"
	"github.com/spec-kit/mortgage-service/internal/service"
	apperrors "github.com/spec-kit/mortgage-service/pkg/util"
)

// ReviewHandler manages loan-officer review endpoints.
type ReviewHandler struct {
	service *service.ApplicationService
}

// NewReviewHandler constructs handler.
func NewReviewHandler(applicationService *service.ApplicationService) *ReviewHandler {
	return &ReviewHandler{service: applicationService}
}

// List GET /review/applications?status=SUBMITTED.
func (h *ReviewHandler) List(c *fiber.Ctx) error {
	status := domain.ApplicationStatus(c.Query("status", string(domain.StatusSubmitted)))
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)

	apps, err := h.service.ListByStatus(c.Context(), status, pageSize, (page-1)*pageSize)
	if err != nil {
		return err
	}
	items := make([]dto.ApplicationSummary, 0, len(apps))
	for i := range apps {
		items = append(items, applicationSummary(&apps[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /review/applications/:id.
func (h *ReviewHandler) Get(c *fiber.Ctx) error {
	app, history, err := h.service.GetApplicationForOfficer(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": applicationDetail(app, history)})
}

// UpdateStatus POST /review/applications/:id/status.
func (h *ReviewHandler) UpdateStatus(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Officer == nil {
		return apperrors.NewUnauthorized("officer required")
	}
	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Status == "" {
		return apperrors.NewValidationError("status required", nil)
	}
	app, err := h.service.UpdateStatus(c.Context(), principal.Actor(), c.Params("id"), req.Status, req.Notes)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": applicationSummary(app)})
}
