package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog"
	"github.com/sicko7947/automation"
	"github.com/sicko7947/automation/api"
	"github.com/sicko7947/automation/capability"
	"github.com/sicko7947/automation/engine"
	"github.com/sicko7947/automation/eventbus"
	"github.com/sicko7947/automation/scheduler"
	"github.com/sicko7947/automation/telemetry"
	cli "github.com/urfave/cli/v3"
)

const shutdownTimeout = 30 * time.Second

func run(ctx context.Context, command *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := automation.NewLogger(command.String("log-level"), command.Bool("log-pretty"))
	logger.Info().Str("version", version).Msg("Starting automation engine")

	engineOpts := []engine.EngineOption{
		engine.WithLogger(logger),
		engine.WithConfig(engine.EngineConfig{
			MaxConcurrentDispatches: int(command.Int("max-concurrent-dispatches")),
			ActionTimeout:           command.Duration("action-timeout"),
		}),
	}

	if command.Bool("otel-enabled") {
		tp, err := telemetry.NewTracerProvider(ctx, "automation", version)
		if err != nil {
			return fmt.Errorf("failed to initialize tracing: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("Failed to shutdown tracer provider")
			}
		}()
		engineOpts = append(engineOpts, engine.WithTracer(tp.Tracer(engine.TracerName)))
	}

	st, err := newStore(ctx, command, logger)
	if err != nil {
		return err
	}

	metrics := engine.NewMetrics("automation")
	engineOpts = append(engineOpts, engine.WithMetrics(metrics))

	caps := capability.NewComposite(
		capability.NewLogging(logger),
		capability.NewWebhook(capability.WithRateLimit(command.Float("webhook-rate"), 5)),
	)

	eng := engine.NewEngine(st, caps, engineOpts...)

	sched := scheduler.NewScheduler(st, eng, logger)
	if err := sched.Reload(ctx); err != nil {
		// One bad expression should not keep the others from running
		logger.Error().Err(err).Msg("Some scheduled workflows could not be registered")
	}
	sched.Start()

	publisher, subscriber, err := newEventBus(command, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close event publisher")
		}
		if err := subscriber.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close event subscriber")
		}
	}()

	listener := eventbus.NewListener(subscriber, eng, logger)
	listenerErr := make(chan error, 1)
	listenerStopped := make(chan struct{})
	go func() {
		defer close(listenerStopped)
		listenerErr <- listener.Run(ctx)
	}()

	apiOpts := []api.Option{
		api.WithGatherer(metrics.Registry()),
		api.WithChangeHook(sched.Reload),
	}
	if command.Bool("queue-events") {
		apiOpts = append(apiOpts, api.WithEventPublisher(eventbus.NewPublisher(publisher)))
	}

	server := api.New(eng, logger, apiOpts...)
	app := server.App()

	serverErr := make(chan error, 1)
	go func() {
		addr := command.String("listen-addr")
		logger.Info().Str("addr", addr).Msg("HTTP API listening")
		serverErr <- app.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true})
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("Shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			logger.Error().Err(err).Msg("HTTP server stopped")
		}
	case err := <-listenerErr:
		if err != nil {
			logger.Error().Err(err).Msg("Event listener stopped")
		}
	}
	stop()

	return shutdown(logger, app, sched, listenerStopped, eng)
}

// shutdown stops intake first, then waits for in-flight runs. The listener
// must have returned before waiting on the engine, since a message still
// being handled can start another run.
func shutdown(logger zerolog.Logger, app *fiber.App, sched *scheduler.Scheduler, listenerStopped <-chan struct{}, eng *engine.Engine) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	if err := app.ShutdownWithContext(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}

	select {
	case <-sched.Stop().Done():
	case <-ctx.Done():
	}

	select {
	case <-listenerStopped:
	case <-ctx.Done():
		errs = append(errs, errors.New("event listener did not stop in time"))
	}

	done := make(chan struct{})
	go func() {
		eng.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info().Msg("All executions finished")
	case <-ctx.Done():
		logger.Warn().Msg("Timed out waiting for executions, in-flight runs stay pending or running")
	}

	return errors.Join(errs...)
}

func newEventBus(command *cli.Command, logger zerolog.Logger) (message.Publisher, message.Subscriber, error) {
	wmLogger := eventbus.NewLoggerAdapter(logger)

	switch bus := command.String("event-bus"); bus {
	case "gochannel":
		pubSub := eventbus.NewGoChannel(wmLogger)
		return pubSub, pubSub, nil
	case "kafka":
		return eventbus.NewKafka(command.StringSlice("kafka-brokers"), command.String("kafka-consumer-group"), wmLogger)
	default:
		return nil, nil, fmt.Errorf("unsupported event bus %q", bus)
	}
}
