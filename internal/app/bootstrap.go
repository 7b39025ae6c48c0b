package app

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"hospital-jobs/internal/config"
	"hospital-jobs/internal/delivery/http/handler"
	"hospital-jobs/internal/delivery/http/middleware"
	"hospital-jobs/internal/delivery/http/routes"
	"hospital-jobs/internal/ws"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
)

type App struct {
	Fiber     *fiber.App
	Container *Container
}

func New(c *Container) *App {
	f := fiber.New(fiber.Config{
		AppName: c.Config.App.AppName,
	})

	registerGlobalMiddleware(f, c.Config, c.Logger)
	registerRoutes(f, c)

	return &App{Fiber: f, Container: c}
}

// Bootstrap builds the container, migrates the store and starts the websocket
// hub. The returned cleanup stops the hub and releases connections.
func Bootstrap(cfg config.Config) (*App, func() error, error) {
	logger := log.New(log.Writer(), "", log.LstdFlags)

	c, err := NewContainer(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Database.ConnectTimeout+30*time.Second)
	applied, err := c.Migrate(ctx)
	cancel()
	if err != nil {
		_ = c.Close()
		return nil, nil, err
	}
	logger.Printf("[Migration] applied=%d", applied)

	hubCtx, stopHub := context.WithCancel(context.Background())
	go c.Hub.Run(hubCtx)

	cleanup := func() error {
		stopHub()
		return c.Close()
	}
	return New(c), cleanup, nil
}

func registerGlobalMiddleware(app *fiber.App, cfg config.Config, logger *log.Logger) {
	if app == nil {
		return
	}

	app.Use(middleware.NewAccessLogMiddleware(logger, "/health").Middleware())
	app.Use(middleware.NewErrorMiddleware(logger).Middleware())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.App.CORSAllowOrigins,
		AllowMethods: []string{fiber.MethodGet, fiber.MethodPost, fiber.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Cron-Secret", "X-Request-ID", "apikey", "x-client-info"},
	}))
}

func registerRoutes(app *fiber.App, c *Container) {
	if app == nil || c == nil {
		return
	}

	auth := middleware.NewTriggerAuth(c.Config.Auth.CronSecret, c.JWT, c.Roles, c.Config.Auth.AdminRole, c.Logger)

	routes.NewRegistry(
		handler.NewPipelineHandler(c.PipelineUC, c.Logger),
		handler.NewPipelineStatusHandler(c.PipelineStatus, c.Logger),
		ws.NewHandler(c.Hub, c.Config.App.CORSAllowOrigins, c.Logger).HandlePipelineWS,
		auth.Middleware(),
	).Register(app)
}

func ListenAddr(port string) (string, error) {
	p := strings.TrimSpace(port)
	if p == "" {
		return "", fmt.Errorf("empty HTTP port")
	}
	if strings.HasPrefix(p, ":") {
		return p, nil
	}
	return ":" + p, nil
}
