package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/mortgage-service/internal/api/dto"
	"github.com/spec-kit/mortgage-service/internal/auth"
	"github.com/spec-kit/mortgage-service/internal/domain"
	"github.com/spec-kit/mortgage-service/internal/service"
	apperrors "github.com/spec-kit/mortgage-service/pkg/util"
)

// ApplicationsHandler manages borrower-facing application endpoints.
type ApplicationsHandler struct {
	service *service.ApplicationService
}

// NewApplicationsHandler constructs handler.
func NewApplicationsHandler(applicationService *service.ApplicationService) *ApplicationsHandler {
	return &ApplicationsHandler{service: applicationService}
}

// Create POST /applications.
func (h *ApplicationsHandler) Create(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("borrower required")
	}
	var req dto.ApplicationRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	app, err := h.service.CreateApplication(c.Context(), principal.User, applicationInput(req))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": applicationSummary(app)})
}

// List GET /applications.
func (h *ApplicationsHandler) List(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("borrower required")
	}
	filter := parseListQuery(c)
	apps, err := h.service.ListBorrowerApplications(c.Context(), principal.User.ID, filter)
	if err != nil {
		return err
	}
	items := make([]dto.ApplicationSummary, 0, len(apps))
	for i := range apps {
		items = append(items, applicationSummary(&apps[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /applications/:id.
func (h *ApplicationsHandler) Get(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("borrower required")
	}
	app, history, err := h.service.GetApplicationForBorrower(c.Context(), principal.User.ID, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": applicationDetail(app, history)})
}

// UpdateDraft PATCH /applications/:id.
func (h *ApplicationsHandler) UpdateDraft(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("borrower required")
	}
	var req dto.ApplicationRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	app, err := h.service.UpdateDraft(c.Context(), principal.User.ID, c.Params("id"), applicationInput(req))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": applicationSummary(app)})
}

// UpdateStatus POST /applications/:id/status.
func (h *ApplicationsHandler) UpdateStatus(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
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

// Withdraw POST /applications/:id/withdraw.
func (h *ApplicationsHandler) Withdraw(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("borrower required")
	}
	var req dto.UpdateStatusRequest
	_ = c.BodyParser(&req)
	app, err := h.service.Withdraw(c.Context(), principal.User.ID, c.Params("id"), req.Notes)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": applicationSummary(app)})
}

func parseListQuery(c *fiber.Ctx) service.ApplicationListFilter {
	filter := service.ApplicationListFilter{}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			filter.Statuses = append(filter.Statuses, domain.ApplicationStatus(strings.TrimSpace(part)))
		}
	}
	if from := parseTime(c.Query("created_from")); from != nil {
		filter.CreatedFrom = from
	}
	if to := parseTime(c.Query("created_to")); to != nil {
		filter.CreatedTo = to
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}

func parseTime(val string) *time.Time {
	if val == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return nil
	}
	return &t
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func applicationInput(req dto.ApplicationRequest) service.ApplicationInput {
	return service.ApplicationInput{
		BorrowerName:       req.BorrowerName,
		Email:              req.Email,
		Phone:              req.Phone,
		SSNLast4:           req.SSNLast4,
		AnnualIncome:       req.AnnualIncome,
		EmploymentStatus:   req.EmploymentStatus,
		Employer:           req.Employer,
		PropertyAddress:    req.PropertyAddress,
		PropertyType:       req.PropertyType,
		EstimatedValue:     req.EstimatedValue,
		LoanAmount:         req.LoanAmount,
		LoanType:           req.LoanType,
		DownPaymentPercent: req.DownPaymentPercent,
		Notes:              req.Notes,
	}
}

func applicationSummary(app *domain.Application) dto.ApplicationSummary {
	return dto.ApplicationSummary{
		ID:          app.ID,
		ExternalKey: app.ExternalKey,
		Status:      app.Status,
		LoanAmount:  app.LoanAmount,
		LoanType:    app.LoanType,
		CreatedAt:   app.CreatedAt,
		UpdatedAt:   app.UpdatedAt,
	}
}

func applicationDetail(app *domain.Application, history []domain.StatusHistoryEntry) dto.ApplicationDetailResponse {
	historyResp := make([]dto.StatusHistoryResponse, 0, len(history))
	for _, entry := range history {
		historyResp = append(historyResp, dto.StatusHistoryResponse{
			ID:             entry.ID,
			PreviousStatus: entry.PreviousStatus,
			NewStatus:      entry.NewStatus,
			ChangedByType:  entry.ChangedByType,
			ChangedByID:    entry.ChangedByID,
			Notes:          entry.Notes,
			CreatedAt:      entry.CreatedAt,
		})
	}
	return dto.ApplicationDetailResponse{
		ID:                 app.ID,
		ExternalKey:        app.ExternalKey,
		BorrowerID:         app.BorrowerID,
		Status:             app.Status,
		BorrowerName:       app.BorrowerName,
		Email:              app.Email,
		Phone:              app.Phone,
		SSNLast4:           app.SSNLast4,
		AnnualIncome:       app.AnnualIncome,
		EmploymentStatus:   app.EmploymentStatus,
		Employer:           app.Employer,
		PropertyAddress:    app.PropertyAddress,
		PropertyType:       app.PropertyType,
		EstimatedValue:     app.EstimatedValue,
		LoanAmount:         app.LoanAmount,
		LoanType:           app.LoanType,
		DownPaymentPercent: app.DownPaymentPercent,
		Notes:              app.Notes,
		CreatedAt:          app.CreatedAt,
		UpdatedAt:          app.UpdatedAt,
		History:            historyResp,
	}
}
