package main

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/rs/zerolog"
	"github.com/sicko7947/automation"
	"github.com/sicko7947/automation/store"
	cli "github.com/urfave/cli/v3"
)

func newStore(ctx context.Context, command *cli.Command, logger zerolog.Logger) (automation.Store, error) {
	switch backend := command.String("store"); backend {
	case "memory":
		logger.Warn().Msg("Using in-memory store, data is lost on restart")
		return store.NewMemoryStore(), nil

	case "dynamodb":
		cfg, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load aws config: %w", err)
		}

		endpoint := command.String("dynamodb-endpoint")
		client := dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
			if endpoint != "" {
				o.BaseEndpoint = aws.String(endpoint)
			}
		})

		table := command.String("dynamodb-table")
		if command.Bool("dynamodb-create-table") {
			if err := store.CreateTable(ctx, client, table); err != nil {
				return nil, err
			}
		}

		logger.Info().Str("table", table).Msg("Using DynamoDB store")
		return store.NewDynamoDBStore(client, table), nil

	default:
		return nil, fmt.Errorf("unsupported store %q", backend)
	}
}
