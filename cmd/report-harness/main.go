package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/k0kubun/pp"

	"github.com/numera/numera/internal/api/dto"
	"github.com/numera/numera/internal/cache"
	"github.com/numera/numera/internal/config"
	"github.com/numera/numera/internal/dynamodb"
	"github.com/numera/numera/internal/logger"
	"github.com/numera/numera/internal/postgres"
	"github.com/numera/numera/internal/repository"
	"github.com/numera/numera/internal/service"
	"github.com/numera/numera/internal/types"
	"github.com/numera/numera/internal/validator"
)

// Report harness for manual verification against the books. Fetches a
// customer's range from the live stores and pretty-prints the result.
func main() {
	// Parse command line flags
	customerID := flag.String("customer", "", "Customer id to report on")
	startDate := flag.String("start", "", "Range start as DD/MM/YYYY, defaults to one month ago")
	endDate := flag.String("end", "", "Range end as DD/MM/YYYY, defaults to today")
	kind := flag.String("kind", types.ReportKindBalance.String(), "Report kind: revenue, expenses or balance")
	showRecords := flag.Bool("records", false, "Also print the normalized report rows")
	flag.Parse()

	if *customerID == "" {
		log.Fatal("Please provide a customer id using the -customer flag")
	}

	now := time.Now().UTC()
	if *endDate == "" {
		*endDate = now.Format(types.DisplayDateFormat)
	}
	if *startDate == "" {
		// Clamped so a month-end run still lands on a valid day.
		*startDate = types.AddClampedDate(now, 0, -1, 0).Format(types.DisplayDateFormat)
	}

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger, err := logger.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	validator.NewValidator()

	// Connect to the ledger store
	client, err := dynamodb.NewClient(cfg, logger)
	if err != nil {
		logger.Fatalw("Failed to connect to ledger store", "error", err)
	}

	// Connect to the expense ledger
	db, err := postgres.NewDB(cfg, logger)
	if err != nil {
		logger.Fatalw("Failed to connect to expense ledger", "error", err)
	}
	defer db.Close()

	// The harness only reads, so artifact storage and the event publisher
	// stay unwired.
	params := service.NewServiceParams(
		logger,
		cfg,
		client,
		cache.Initialize(logger),
		nil,
		repository.NewDocumentRepository(client, logger),
		repository.NewSequenceRepository(client, logger),
		repository.NewExpenseRepository(db, logger),
		nil,
	)
	reportService := service.NewReportService(params)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	req := dto.GetReportRequest{
		CustomerID: *customerID,
		StartDate:  *startDate,
		EndDate:    *endDate,
		Kind:       types.ReportKind(*kind),
	}

	metrics, err := reportService.GetReportMetrics(ctx, req)
	if err != nil {
		logger.Fatalw("Failed to compute report metrics",
			"customer_id", req.CustomerID,
			"kind", req.Kind,
			"error", err,
		)
	}

	fmt.Printf("Metrics for customer %s, %s to %s (%s):\n", req.CustomerID, req.StartDate, req.EndDate, req.Kind)
	if metrics.Metrics.PrimaryCurrency != "" {
		fmt.Printf("Primary currency: %s (%s)\n",
			metrics.Metrics.PrimaryCurrency,
			types.GetCurrencySymbol(metrics.Metrics.PrimaryCurrency))
	}
	pp.Println(metrics)

	if *showRecords {
		data, err := reportService.GetReportData(ctx, req)
		if err != nil {
			logger.Fatalw("Failed to fetch report rows",
				"customer_id", req.CustomerID,
				"kind", req.Kind,
				"error", err,
			)
		}

		fmt.Printf("%d report rows:\n", len(data.Records))
		pp.Println(data.Records)
	}
}
