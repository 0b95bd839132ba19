// Command automation runs the workflow engine with its HTTP API, event bus
// listener and cron scheduler.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	cli "github.com/urfave/cli/v3"
)

// version is set at build time
var version = "dev"

func main() {
	cmd := &cli.Command{
		Name:                  "automation",
		Usage:                 "Run the business automation workflow engine",
		Version:               version,
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "listen-addr",
				Usage:   "Address the HTTP API listens on",
				Value:   ":8080",
				Sources: cli.EnvVars("LISTEN_ADDR"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (trace, debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.BoolFlag{
				Name:    "log-pretty",
				Usage:   "Human readable console logs instead of JSON",
				Sources: cli.EnvVars("LOG_PRETTY"),
			},
			&cli.StringFlag{
				Name:    "store",
				Usage:   "Persistence backend (memory, dynamodb)",
				Value:   "memory",
				Sources: cli.EnvVars("STORE"),
			},
			&cli.StringFlag{
				Name:    "dynamodb-table",
				Usage:   "DynamoDB table name",
				Value:   "automation",
				Sources: cli.EnvVars("DYNAMODB_TABLE"),
			},
			&cli.StringFlag{
				Name:    "dynamodb-endpoint",
				Usage:   "Override the DynamoDB endpoint (e.g. DynamoDB Local)",
				Sources: cli.EnvVars("DYNAMODB_ENDPOINT"),
			},
			&cli.BoolFlag{
				Name:    "dynamodb-create-table",
				Usage:   "Create the DynamoDB table on startup if it does not exist",
				Sources: cli.EnvVars("DYNAMODB_CREATE_TABLE"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus (gochannel, kafka)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS"),
			},
			&cli.BoolFlag{
				Name:    "queue-events",
				Usage:   "Route events posted to the HTTP API through the event bus",
				Sources: cli.EnvVars("QUEUE_EVENTS"),
			},
			&cli.StringSliceFlag{
				Name:    "kafka-brokers",
				Usage:   "Kafka broker addresses",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.StringFlag{
				Name:    "kafka-consumer-group",
				Usage:   "Kafka consumer group",
				Value:   "cg-automation",
				Sources: cli.EnvVars("KAFKA_CONSUMER_GROUP"),
			},
			&cli.IntFlag{
				Name:    "max-concurrent-dispatches",
				Usage:   "Capability calls in flight across all runs (0 = unbounded)",
				Value:   0,
				Sources: cli.EnvVars("MAX_CONCURRENT_DISPATCHES"),
			},
			&cli.DurationFlag{
				Name:    "action-timeout",
				Usage:   "Timeout for a single capability call",
				Value:   30 * time.Second,
				Sources: cli.EnvVars("ACTION_TIMEOUT"),
			},
			&cli.FloatFlag{
				Name:    "webhook-rate",
				Usage:   "Outbound webhook requests per second (0 = unlimited)",
				Value:   10,
				Sources: cli.EnvVars("WEBHOOK_RATE"),
			},
			&cli.BoolFlag{
				Name:    "otel-enabled",
				Usage:   "Export traces over OTLP/HTTP",
				Sources: cli.EnvVars("OTEL_ENABLED"),
			},
		},
		Action: run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
