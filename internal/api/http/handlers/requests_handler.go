package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/opsdesk/internal/api/dto"
	"github.com/spec-kit/opsdesk/internal/auth"
	"github.com/spec-kit/opsdesk/internal/domain"
	"github.com/spec-kit/opsdesk/internal/service"
	apperrors "github.com/spec-kit/opsdesk/pkg/util"
)

// RequestsHandler manages requester-facing request endpoints.
type RequestsHandler struct {
	service *service.RequestService
}

// NewRequestsHandler constructs handler.
func NewRequestsHandler(requestService *service.RequestService) *RequestsHandler {
	return &RequestsHandler{service: requestService}
}

// CreateRequest POST /requests.
func (h *RequestsHandler) CreateRequest(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.CreateRequestRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Title) == "" {
		return apperrors.NewValidationError("title required", nil)
	}

	input := service.RequestCreateInput{
		CategoryID:  req.CategoryID,
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
	}
	request, _, err := h.service.CreateRequest(c.Context(), principal.User.ID, input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": requestSummary(request)})
}

// ListRequests GET /requests.
func (h *RequestsHandler) ListRequests(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	filter := parseUserRequestQuery(c)
	requests, err := h.service.ListUserRequests(c.Context(), principal.User.ID, filter)
	if err != nil {
		return err
	}
	items := make([]dto.RequestSummary, 0, len(requests))
	for i := range requests {
		items = append(items, requestSummary(&requests[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetRequest GET /requests/:id.
func (h *RequestsHandler) GetRequest(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	request, tasks, status, err := h.service.GetRequestForUser(c.Context(), principal.User.ID, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": requestDetail(request, tasks, status)})
}

// GetRequestSLA GET /requests/:id/sla.
func (h *RequestsHandler) GetRequestSLA(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	_, _, status, err := h.service.GetRequestForUser(c.Context(), principal.User.ID, c.Params("id"))
	if err != nil {
		return err
	}
	if status == nil {
		return apperrors.NewConflict("no deadline set", nil)
	}
	return c.JSON(fiber.Map{"data": slaStatusResponse(status)})
}

// ApproveCompletion POST /requests/:id/approve.
func (h *RequestsHandler) ApproveCompletion(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	request, err := h.service.ApproveCompletion(c.Context(), principal.User.ID, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": requestSummary(request)})
}

// CancelRequest POST /requests/:id/cancel.
func (h *RequestsHandler) CancelRequest(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	request, err := h.service.CancelRequest(c.Context(), principal.User.ID, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": requestSummary(request)})
}

func parseUserRequestQuery(c *fiber.Ctx) service.RequestUserFilter {
	filter := service.RequestUserFilter{}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			filter.Statuses = append(filter.Statuses, domain.RequestStatus(strings.TrimSpace(part)))
		}
	}
	if priorityStr := c.Query("priority"); priorityStr != "" {
		for _, part := range strings.Split(priorityStr, ",") {
			filter.Priorities = append(filter.Priorities, domain.Priority(strings.TrimSpace(part)))
		}
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
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

func requestSummary(request *domain.Request) dto.RequestSummary {
	return dto.RequestSummary{
		ID:          request.ID,
		ExternalKey: request.ExternalKey,
		CategoryID:  request.CategoryID,
		AssigneeID:  request.AssigneeID,
		Title:       request.Title,
		Status:      request.Status,
		Priority:    request.Priority,
		SLADeadline: request.SLADeadline,
		SLAStatus:   request.SLAStatus,
		CreatedAt:   request.CreatedAt,
		UpdatedAt:   request.UpdatedAt,
	}
}

func requestDetail(request *domain.Request, tasks []domain.Task, status *domain.SLAStatusResult) dto.RequestDetailResponse {
	taskItems := make([]dto.TaskSummary, 0, len(tasks))
	for i := range tasks {
		taskItems = append(taskItems, taskSummary(&tasks[i]))
	}
	return dto.RequestDetailResponse{
		ID:          request.ID,
		ExternalKey: request.ExternalKey,
		CategoryID:  request.CategoryID,
		AssigneeID:  request.AssigneeID,
		Title:       request.Title,
		Description: request.Description,
		Status:      request.Status,
		Priority:    request.Priority,
		SLA:         slaStatusResponse(status),
		Tasks:       taskItems,
		CreatedAt:   request.CreatedAt,
		UpdatedAt:   request.UpdatedAt,
		CompletedAt: request.CompletedAt,
	}
}

func slaStatusResponse(status *domain.SLAStatusResult) *dto.SLAStatusResponse {
	if status == nil {
		return nil
	}
	return &dto.SLAStatusResponse{
		Status:               status.Status,
		TimeRemainingMinutes: status.TimeRemainingMinutes,
		PercentageRemaining:  status.PercentageRemaining,
		Deadline:             status.Deadline,
		EffectiveDeadline:    status.EffectiveDeadline,
		TotalPausedMinutes:   status.TotalPausedMinutes,
		IsPaused:             status.IsPaused,
	}
}
