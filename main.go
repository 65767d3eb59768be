package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"library_backend/aiclient"
	"library_backend/api"
	"library_backend/chapteringest"
	"library_backend/core"
	"library_backend/core/validation"
	"library_backend/db"
	"library_backend/logging"
	"library_backend/pdfextract"
	"library_backend/summary"
)

func main() {
	// Service management commands (install/uninstall/start/stop) exit here
	if HandleServiceCommand(os.Args) {
		return
	}

	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		// Use fmt here since logger isn't initialized yet
		fmt.Printf("Warning: .env file not found: %v\n", err)
	}

	isDevelopment := os.Getenv("DEV_MODE") == "true"

	logger, err := logging.NewLogger(isDevelopment, core.GetEnvOrDefault("LOG_FILE", "library.log"))
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(core.ExitCodeError)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Printf("Failed to sync logger: %v\n", syncErr)
		}
	}()

	config, err := core.LoadConfig()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	exitCode := runStartupValidation(config, logger)
	if exitCode != core.ExitCodeSuccess {
		os.Exit(exitCode)
	}

	logger.Info("Configuration loaded",
		zap.Bool("ai_enabled", config.AIEnabled()),
		zap.String("ai_model", config.OpenAIModel),
		zap.Duration("ai_timeout", config.AITimeout),
		zap.Int("cache_ttl_days", config.CacheTTLDays),
		zap.Duration("cleanup_interval", config.CleanupInterval),
		zap.String("database_path", config.DatabasePath),
		zap.String("storage_root", config.StorageRoot),
		zap.Int("port", config.Port),
		zap.Bool("dev_mode", isDevelopment),
	)

	// Under the Windows service manager this blocks until the service is
	// stopped; everywhere else it reports not-a-service and falls through.
	isService, err := RunAsService(func(ctx context.Context) error {
		return run(ctx, config, logger)
	})
	if isService {
		if err != nil {
			logger.Fatal("Service run failed", zap.Error(err))
		}
		return
	}

	if err := run(context.Background(), config, logger); err != nil {
		logger.Fatal("Fatal error", zap.Error(err))
	}
}

// run wires the services together and blocks until shutdown. Cancelling ctx
// requests a graceful stop; in foreground mode ctx never fires and shutdown
// is driven by signals instead.
func run(ctx context.Context, config *core.Config, logger *logging.Logger) error {
	database, err := db.NewDatabaseWithConfig(db.DatabaseConfig{
		Path:           config.DatabasePath,
		MigrationsPath: config.MigrationsPath,
	})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	if err := database.Migrate(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	repo := db.NewRepository(database)

	ai := aiclient.NewClient(aiclient.Config{
		Enabled: config.AIEnabled(),
		APIKey:  config.OpenAIAPIKey,
		BaseURL: config.OpenAIBaseURL,
		Model:   config.OpenAIModel,
		Timeout: config.AITimeout,
	}, logger)

	summaries := summary.NewService(repo, ai, config.CacheTTLDays, logger)

	store, err := chapteringest.NewPageStore(config.StorageRoot)
	if err != nil {
		return fmt.Errorf("failed to open page store: %w", err)
	}

	extractor := pdfextract.NewExtractor(pdfextract.ExtractorConfig{
		DPI: config.PDFExtractDPI,
	})
	processor := chapteringest.NewProcessor(repo, store, extractor, logger)

	sweepCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Background sweep of expired summary cache rows
	repo.StartCleanupScheduler(sweepCtx, db.CleanupSchedulerConfig{
		TTLDays:  config.CacheTTLDays,
		Interval: config.CleanupInterval,
		OnCleanup: func(result db.CleanupResult, err error) {
			if err != nil {
				logger.Errorw("summary cache sweep failed", "error", err.Error())
				return
			}
			if result.SummariesDeleted > 0 {
				logger.Infow("summary cache sweep complete",
					"deleted", result.SummariesDeleted,
					"duration", result.Duration.String())
			}
		},
	})

	handlers := api.NewHandlers(summaries, processor, repo, logger)

	serverConfig := api.DefaultServerConfig()
	serverConfig.Port = config.Port
	server := api.NewServer(serverConfig, handlers, logger)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		logger.Info("Stop requested, shutting down")

		if err := server.Shutdown(context.Background()); err != nil {
			logger.Error("Shutdown error", zap.Error(err))
		}
		cancel()
		return nil
	case sig := <-sigChan:
		logger.Info("Received signal, shutting down", zap.String("signal", sig.String()))

		if err := server.Shutdown(context.Background()); err != nil {
			logger.Error("Shutdown error", zap.Error(err))
		}
		cancel()

		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Printf("Failed to sync logger: %v\n", syncErr)
		}
		switch sig {
		case syscall.SIGTERM:
			os.Exit(core.ExitCodeSIGTERM)
		default:
			os.Exit(core.ExitCodeSIGINT)
		}
		return nil
	}
}

// runStartupValidation checks the environment before heavy initialization.
//
// Returns the appropriate exit code:
//   - ExitCodeSuccess (0) if all validations pass (warnings allowed)
//   - ExitCodeError (1) if any validation fails
func runStartupValidation(config *core.Config, logger *logging.Logger) int {
	logger.Info("Starting startup validation...")

	suite := validation.NewValidationSuite().WithShowProgress(true)
	result := suite.Validate(config)

	if !result.Success {
		logger.Error("Startup validation failed",
			zap.Int("passed", result.PassedSteps),
			zap.Int("failed", result.FailedSteps),
			zap.Duration("duration", result.Duration),
		)

		for _, step := range result.Steps {
			if step.Status == validation.StepFailed {
				logger.Error("Validation step failed",
					zap.String("step", step.Name),
					zap.String("message", step.Message),
					zap.Error(step.Error),
				)
			}
		}

		return core.ExitCodeError
	}

	logger.Info("Startup validation passed",
		zap.Int("checks_passed", result.PassedSteps),
		zap.Int("warnings", result.Warnings),
		zap.Duration("duration", result.Duration),
	)

	return core.ExitCodeSuccess
}
