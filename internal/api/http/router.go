package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/opsdesk/internal/api/http/handlers"
	"github.com/spec-kit/opsdesk/internal/auth"
	"github.com/spec-kit/opsdesk/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Operators      *handlers.OperatorsHandler
	Requests       *handlers.RequestsHandler
	OpsRequests    *handlers.OpsRequestsHandler
	Tasks          *handlers.TasksHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/users/register", cfg.Users.Register)
	authGroup.Post("/users/login", cfg.Users.Login)
	authGroup.Post("/operators/login", cfg.Operators.Login)

	// Requester surface.
	requests := app.Group("/requests", cfg.AuthMiddleware.Handle, auth.RequireUser())
	requests.Post("", cfg.Requests.CreateRequest)
	requests.Get("", cfg.Requests.ListRequests)
	requests.Get("/:id", cfg.Requests.GetRequest)
	requests.Get("/:id/sla", cfg.Requests.GetRequestSLA)
	requests.Post("/:id/approve", cfg.Requests.ApproveCompletion)
	requests.Post("/:id/cancel", cfg.Requests.CancelRequest)

	// Operator surface.
	ops := app.Group("/ops", cfg.AuthMiddleware.Handle, auth.RequireOperatorRole(domain.OperatorRoleAgent, domain.OperatorRoleLead, domain.OperatorRoleAdmin))
	ops.Get("/requests", cfg.OpsRequests.ListRequests)
	ops.Get("/requests/:id", cfg.OpsRequests.GetRequest)
	ops.Post("/requests/:id/start", cfg.OpsRequests.StartWork)
	ops.Post("/requests/:id/wait", cfg.OpsRequests.WaitOnRequester)
	ops.Post("/requests/:id/resume", cfg.OpsRequests.ResumeFromRequester)
	ops.Post("/requests/:id/submit", cfg.OpsRequests.SubmitForApproval)
	ops.Post("/requests/:id/assign/self", cfg.OpsRequests.SelfAssign)
	ops.Post("/requests/:id/assign", cfg.OpsRequests.Assign)
	ops.Delete("/requests/:id/assign", cfg.OpsRequests.Unassign)
	ops.Post("/requests/:id/sla/refresh", cfg.OpsRequests.RefreshSLA)

	ops.Post("/requests/:id/tasks", cfg.Tasks.CreateTask)
	ops.Get("/requests/:id/tasks", cfg.Tasks.ListTasks)
	ops.Get("/tasks/:id", cfg.Tasks.GetTask)
	ops.Post("/tasks/:id/transition", cfg.Tasks.TransitionTask)
	ops.Post("/tasks/:id/sla/pause", cfg.Tasks.PauseTask)
	ops.Post("/tasks/:id/sla/resume", cfg.Tasks.ResumeTask)

	// Org administration.
	org := app.Group("/org", cfg.AuthMiddleware.Handle, auth.RequireAnyRole())
	org.Get("/categories", cfg.Operators.ListCategories)

	orgAdmin := app.Group("/org", cfg.AuthMiddleware.Handle, auth.RequireOperatorRole(domain.OperatorRoleAdmin))
	orgAdmin.Post("/categories", cfg.Operators.CreateCategory)
	orgAdmin.Post("/operators", cfg.Operators.CreateOperator)
	orgAdmin.Get("/operators", cfg.Operators.ListOperators)
}
