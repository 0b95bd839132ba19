// Package api exposes the engine over HTTP.
package api

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	recoverer "github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/sicko7947/automation/engine"
)

// ChangeHook is called after a workflow definition or status changes
type ChangeHook func(ctx context.Context) error

// EventPublisher queues a domain event for asynchronous delivery
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, payload map[string]any) error
}

// API serves the HTTP surface of the engine
type API struct {
	engine   *engine.Engine
	logger   zerolog.Logger
	validate *validator.Validate
	gatherer prometheus.Gatherer
	onChange ChangeHook
	events   EventPublisher
}

// Option configures the API
type Option func(*API)

// WithGatherer serves metrics from gatherer on /metrics
func WithGatherer(gatherer prometheus.Gatherer) Option {
	return func(a *API) {
		a.gatherer = gatherer
	}
}

// WithChangeHook registers a hook run after every workflow change
func WithChangeHook(hook ChangeHook) Option {
	return func(a *API) {
		a.onChange = hook
	}
}

// WithEventPublisher sends ingested events through publisher instead of
// handing them to the engine in the request
func WithEventPublisher(publisher EventPublisher) Option {
	return func(a *API) {
		a.events = publisher
	}
}

// New creates the API
func New(eng *engine.Engine, logger zerolog.Logger, opts ...Option) *API {
	a := &API{
		engine:   eng,
		logger:   logger.With().Str("component", "api").Logger(),
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// App builds the fiber application
func (a *API) App() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "automation",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	})

	app.Use(recoverer.New())
	app.Use(a.requestLogger)

	app.Get("/health", a.Health)
	if a.gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(a.gatherer, promhttp.HandlerOpts{})))
	}

	v1 := app.Group("/api/v1")
	v1.Post("/events/:type", a.PublishEvent)

	w := v1.Group("/workflows")
	w.Get("/", a.ListWorkflows)
	w.Post("/", a.CreateWorkflow)
	w.Get("/:id", a.GetWorkflow)
	w.Put("/:id", a.UpdateWorkflow)
	w.Post("/:id/activate", a.ActivateWorkflow)
	w.Post("/:id/pause", a.PauseWorkflow)
	w.Post("/:id/test", a.TestWorkflow)
	w.Get("/:id/executions", a.ListExecutions)
	w.Get("/:id/stats", a.WorkflowStats)

	v1.Get("/executions/:id", a.GetExecution)

	return app
}

func (a *API) requestLogger(c fiber.Ctx) error {
	start := time.Now()
	err := c.Next()

	a.logger.Debug().
		Str("method", c.Method()).
		Str("path", c.Path()).
		Int("status", c.Response().StatusCode()).
		Dur("duration", time.Since(start)).
		Msg("Request handled")

	return err
}

// changed runs the change hook. Failures are logged; the request already succeeded.
func (a *API) changed(ctx context.Context) {
	if a.onChange == nil {
		return
	}
	if err := a.onChange(ctx); err != nil {
		a.logger.Error().Err(err).Msg("Change hook failed")
	}
}
