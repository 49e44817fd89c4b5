package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"goannotate/adapters/filestore"
	"goannotate/adapters/postgres"
	"goannotate/ai"
	"goannotate/app"
	"goannotate/internal/config"
	"goannotate/internal/errors"
	"goannotate/ports"
	"goannotate/ui"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	testCases, interactions, err := initStores(appConfig)
	if err != nil {
		log.Fatalf("Store initialization failed: %v", err)
	}
	configs, err := filestore.NewConfigStore(appConfig.Store.DataDir)
	if err != nil {
		log.Fatalf("Config store initialization failed: %v", err)
	}

	aiConfig := ai.Config{
		APIKey:      appConfig.AI.APIKey,
		BaseURL:     appConfig.AI.BaseURL,
		Model:       appConfig.AI.Model,
		Temperature: appConfig.AI.Temperature,
		MaxTokens:   appConfig.AI.MaxTokens,
		Timeout:     appConfig.AI.Timeout,
	}
	extractor := ai.NewExtractor(aiConfig)
	judge := ai.NewJudge(aiConfig)

	generator := app.NewGeneratorService(testCases, interactions)
	session := app.NewSessionService(testCases, configs, generator)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	steps, err := interactions.ListSteps(ctx)
	if err != nil {
		log.Fatalf("Failed to load recorded interactions: %v", err)
	}
	log.Printf("[Main] Loaded %d recorded steps", len(steps))

	processor := app.NewProcessorService(testCases, extractor, judge, steps,
		appConfig.Processor.MaxConcurrent, appConfig.Processor.PollInterval)
	go func() {
		if err := processor.Run(ctx); err != nil && err != context.Canceled {
			log.Printf("[Main] Processor stopped: %v", err)
		}
	}()

	server := ui.NewApp(session, interactions)
	go func() {
		if err := server.Serve(ui.Config{Port: appConfig.Server.Port}); err != nil {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("[Main] Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("[Main] Server shutdown: %v", err)
	}
}

// initStores builds the test case repository for the configured backend and
// the file-based interaction store, which both backends share.
func initStores(appConfig *config.Config) (ports.TestCaseRepository, *filestore.InteractionStore, error) {
	interactions, err := filestore.NewInteractionStore(appConfig.Store.InteractionDir)
	if err != nil {
		return nil, nil, err
	}

	switch appConfig.Store.Backend {
	case "postgres":
		db, err := postgres.Connect(appConfig.Store.DatabaseURL)
		if err != nil {
			return nil, nil, errors.Wrap(err, "failed to connect to postgres")
		}
		return postgres.NewTestCaseRepository(db), interactions, nil
	default:
		repo, err := filestore.NewTestCaseRepository(appConfig.Store.TestCaseDir)
		if err != nil {
			return nil, nil, errors.Wrap(err, "failed to open test case store")
		}
		return repo, interactions, nil
	}
}
