package main

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/fx"

	"github.com/numera/numera/internal/cache"
	"github.com/numera/numera/internal/config"
	"github.com/numera/numera/internal/dynamodb"
	"github.com/numera/numera/internal/logger"
	"github.com/numera/numera/internal/postgres"
	"github.com/numera/numera/internal/publisher"
	"github.com/numera/numera/internal/pubsub/memory"
	"github.com/numera/numera/internal/pyroscope"
	"github.com/numera/numera/internal/repository"
	"github.com/numera/numera/internal/s3"
	"github.com/numera/numera/internal/sentry"
	"github.com/numera/numera/internal/service"
	"github.com/numera/numera/internal/types"
	"github.com/numera/numera/internal/validator"
)

func init() {
	// Set UTC timezone for the entire application
	time.Local = time.UTC
}

func main() {
	var opts []fx.Option

	// Core dependencies
	opts = append(opts,
		fx.Provide(
			// Config
			config.NewConfig,

			// Logger
			logger.NewLogger,

			// Cache
			cache.Initialize,
			provideCache,

			// Ledger store
			dynamodb.NewClient,
			provideStoreClient,

			// Event publisher
			memory.NewPubSub,
			publisher.NewPublisher,

			// Artifact storage
			s3.NewService,

			// Repositories
			repository.NewDocumentRepository,
			repository.NewSequenceRepository,
			repository.NewExpenseRepository,

			// Services
			service.NewServiceParams,
			service.NewNumberingService,
			service.NewDocumentService,
			service.NewSettlementService,
			service.NewReportDataService,
			service.NewMetricsService,
			service.NewReportService,
		),
	)

	// Expense store
	opts = append(opts, postgres.Module())

	// Monitoring
	opts = append(opts, sentry.Module(), pyroscope.Module())

	// The dto layer reads the request validator from a package global;
	// install it eagerly.
	opts = append(opts, fx.Invoke(
		validator.NewValidator,
		startWorker,
	))

	app := fx.New(opts...)
	app.Run()
}

// provideCache exposes the in-memory cache through the interface the
// services and repositories consume.
func provideCache(c *cache.InMemoryCache) cache.Cache {
	return c
}

// provideStoreClient narrows the ledger store client to the transactional
// surface the services depend on.
func provideStoreClient(client dynamodb.IClient) service.StoreClient {
	return client
}

// startWorker wires the lifecycle for the ledger worker. The blank service
// parameters force the full engine graph to be constructed at boot so wiring
// failures surface immediately.
func startWorker(
	lc fx.Lifecycle,
	cfg *config.Configuration,
	client dynamodb.IClient,
	db *postgres.DB,
	eventPublisher publisher.LedgerEventPublisher,
	_ service.NumberingService,
	_ service.DocumentService,
	_ service.SettlementService,
	_ service.ReportDataService,
	_ service.MetricsService,
	_ service.ReportService,
	sentryService *sentry.Service,
	log *logger.Logger,
) {
	mode := cfg.Deployment.Mode
	if mode == "" {
		mode = types.ModeLocal
	}

	switch mode {
	case types.ModeLocal, types.ModeWorker:
		registerWorkerHooks(lc, cfg, client, db, eventPublisher, sentryService, log)
	default:
		log.Fatalf("Unknown deployment mode: %s", mode)
	}
}

func registerWorkerHooks(
	lc fx.Lifecycle,
	cfg *config.Configuration,
	client dynamodb.IClient,
	db *postgres.DB,
	eventPublisher publisher.LedgerEventPublisher,
	sentryService *sentry.Service,
	log *logger.Logger,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()

			// Fail fast when the ledger table is unreachable instead of
			// surfacing the problem on the first write.
			_, err := client.DB().DescribeTable(pingCtx, &awsdynamodb.DescribeTableInput{
				TableName: aws.String(client.Table()),
			})
			if err != nil {
				sentryService.CaptureException(err)
				log.Errorw("ledger store unreachable",
					"table", client.Table(),
					"error", err,
				)
				return err
			}

			log.Infow("ledger worker started",
				"mode", cfg.Deployment.Mode,
				"table", client.Table(),
			)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("shutting down ledger worker")

			if err := eventPublisher.Close(); err != nil {
				log.Errorw("failed to close event publisher", "error", err)
			}
			db.Close()

			log.Info("ledger worker stopped")
			return nil
		},
	})
}
