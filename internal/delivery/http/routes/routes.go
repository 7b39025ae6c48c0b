package routes

import (
	"hospital-jobs/internal/delivery/http/handler"

	"github.com/gofiber/fiber/v3"
)

type Registry struct {
	health   *handler.HealthHandler
	pipeline *handler.PipelineHandler
	status   *handler.PipelineStatusHandler
	ws       fiber.Handler
	auth     fiber.Handler
}

func NewRegistry(
	pipeline *handler.PipelineHandler,
	status *handler.PipelineStatusHandler,
	ws fiber.Handler,
	auth fiber.Handler,
) *Registry {
	return &Registry{
		health:   handler.NewHealthHandler(),
		pipeline: pipeline,
		status:   status,
		ws:       ws,
		auth:     auth,
	}
}

func (r *Registry) Register(app *fiber.App) {
	if app == nil {
		return
	}

	r.health.RegisterRoutes(app)
	r.registerFunctions(app)
	r.registerAPI(app)
	if r.ws != nil {
		app.Get("/ws/pipeline", r.ws)
	}
}

// registerFunctions mounts the scheduler entry points under the paths the
// external cron already calls.
func (r *Registry) registerFunctions(app *fiber.App) {
	if r.pipeline == nil {
		return
	}
	r.pipeline.RegisterRoutes(app.Group("/functions/v1"), r.auth)
}

func (r *Registry) registerAPI(app *fiber.App) {
	if r.status == nil {
		return
	}
	r.status.RegisterRoutes(app.Group("/api/v1"), r.auth)
}
