package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/opsdesk/internal/api/dto"
	"github.com/spec-kit/opsdesk/internal/auth"
	"github.com/spec-kit/opsdesk/internal/domain"
	"github.com/spec-kit/opsdesk/internal/service"
	apperrors "github.com/spec-kit/opsdesk/pkg/util"
)

// OpsRequestsHandler handles operator request workflow endpoints.
type OpsRequestsHandler struct {
	requests    *service.RequestService
	assignments *service.AssignmentService
	tracking    *service.SLATrackingService
}

// NewOpsRequestsHandler constructs handler.
func NewOpsRequestsHandler(requestService *service.RequestService, assignmentService *service.AssignmentService, tracking *service.SLATrackingService) *OpsRequestsHandler {
	return &OpsRequestsHandler{requests: requestService, assignments: assignmentService, tracking: tracking}
}

// ListRequests GET /ops/requests.
func (h *OpsRequestsHandler) ListRequests(c *fiber.Ctx) error {
	operator, err := operatorPrincipal(c)
	if err != nil {
		return err
	}
	filter := parseOperatorRequestQuery(c)
	requests, err := h.requests.ListOperatorRequests(c.Context(), operator, filter)
	if err != nil {
		return err
	}
	items := make([]dto.RequestSummary, 0, len(requests))
	for i := range requests {
		items = append(items, requestSummary(&requests[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetRequest GET /ops/requests/:id.
func (h *OpsRequestsHandler) GetRequest(c *fiber.Ctx) error {
	operator, err := operatorPrincipal(c)
	if err != nil {
		return err
	}
	request, tasks, status, err := h.requests.GetRequestForOperator(c.Context(), operator, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": requestDetail(request, tasks, status)})
}

// StartWork POST /ops/requests/:id/start.
func (h *OpsRequestsHandler) StartWork(c *fiber.Ctx) error {
	operator, err := operatorPrincipal(c)
	if err != nil {
		return err
	}
	request, err := h.requests.StartWork(c.Context(), operator, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": requestSummary(request)})
}

// WaitOnRequester POST /ops/requests/:id/wait. Pauses the SLA clock while
// the ball is in the requester's court.
func (h *OpsRequestsHandler) WaitOnRequester(c *fiber.Ctx) error {
	operator, err := operatorPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.StatusChangeRequest
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	request, err := h.requests.WaitOnRequester(c.Context(), operator, c.Params("id"), req.Comment)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": requestSummary(request)})
}

// ResumeFromRequester POST /ops/requests/:id/resume.
func (h *OpsRequestsHandler) ResumeFromRequester(c *fiber.Ctx) error {
	operator, err := operatorPrincipal(c)
	if err != nil {
		return err
	}
	request, err := h.requests.ResumeFromRequester(c.Context(), operator, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": requestSummary(request)})
}

// SubmitForApproval POST /ops/requests/:id/submit.
func (h *OpsRequestsHandler) SubmitForApproval(c *fiber.Ctx) error {
	operator, err := operatorPrincipal(c)
	if err != nil {
		return err
	}
	request, err := h.requests.SubmitForApproval(c.Context(), operator, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": requestSummary(request)})
}

// SelfAssign POST /ops/requests/:id/assign/self.
func (h *OpsRequestsHandler) SelfAssign(c *fiber.Ctx) error {
	operator, err := operatorPrincipal(c)
	if err != nil {
		return err
	}
	request, err := h.assignments.SelfAssign(c.Context(), operator, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": requestSummary(request)})
}

// Assign POST /ops/requests/:id/assign.
func (h *OpsRequestsHandler) Assign(c *fiber.Ctx) error {
	operator, err := operatorPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.AssignRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.OperatorID == "" {
		return apperrors.NewValidationError("operator_id required", nil)
	}
	request, err := h.assignments.AssignToOperator(c.Context(), operator, c.Params("id"), req.OperatorID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": requestSummary(request)})
}

// Unassign DELETE /ops/requests/:id/assign.
func (h *OpsRequestsHandler) Unassign(c *fiber.Ctx) error {
	operator, err := operatorPrincipal(c)
	if err != nil {
		return err
	}
	request, err := h.assignments.Unassign(c.Context(), operator, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": requestSummary(request)})
}

// RefreshSLA POST /ops/requests/:id/sla/refresh. Recomputes and persists
// the request's SLA status on demand, outside the sweep interval.
func (h *OpsRequestsHandler) RefreshSLA(c *fiber.Ctx) error {
	if _, err := operatorPrincipal(c); err != nil {
		return err
	}
	result, err := h.tracking.RefreshStatus(c.Context(), domain.EntityKindRequest, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"status":                 result.Status,
		"time_remaining_minutes": result.TimeRemainingMinutes,
	}})
}

func operatorPrincipal(c *fiber.Ctx) (*domain.Operator, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Operator == nil {
		return nil, apperrors.NewUnauthorized("operator required")
	}
	return principal.Operator, nil
}

func parseOperatorRequestQuery(c *fiber.Ctx) service.RequestOperatorFilter {
	filter := service.RequestOperatorFilter{}
	if categoryID := c.Query("category_id"); categoryID != "" {
		filter.CategoryID = &categoryID
	}
	if assigneeID := c.Query("assignee_id"); assigneeID != "" {
		filter.AssigneeID = &assigneeID
	}
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
	if slaStr := c.Query("sla_status"); slaStr != "" {
		for _, part := range strings.Split(slaStr, ",") {
			filter.SLAStatuses = append(filter.SLAStatuses, domain.SLAStatus(strings.TrimSpace(part)))
		}
	}
	if search := c.Query("q"); search != "" {
		filter.SearchTerm = &search
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}
