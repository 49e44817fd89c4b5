package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"goannotate/adapters/filestore"
	"goannotate/app"
	"goannotate/domain/feedback"
	"goannotate/domain/trace"
)

// validate checks a feedback config document against recorded interaction
// data without activating anything: the config must parse and at least one
// raw input at its granularity must pass the attribute matchers.
func main() {
	configPath := flag.String("config", "", "path to a feedback config JSON document")
	interactionDir := flag.String("interactions", ".annotations/interactions", "directory of recorded interactions")
	flag.Parse()

	if *configPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	data, err := os.ReadFile(*configPath)
	if err != nil {
		log.Fatalf("Failed to read config file: %v", err)
	}
	cfg, err := feedback.ParseConfig(data)
	if err != nil {
		log.Fatalf("Config is invalid: %v", err)
	}
	fmt.Printf("Config is valid: id=%s granularity=%s spec=%s\n", cfg.ID, cfg.Granularity, cfg.Spec.Kind)

	store, err := filestore.NewInteractionStore(*interactionDir)
	if err != nil {
		log.Fatalf("Failed to open interaction store: %v", err)
	}
	steps, err := store.ListSteps(context.Background())
	if err != nil {
		log.Fatalf("Failed to read recorded steps: %v", err)
	}
	if len(steps) == 0 {
		log.Fatalf("No recorded steps found under %s", *interactionDir)
	}

	objects := trace.ObjectsAt(cfg.Granularity, steps)
	matched := app.FilterObjects(*cfg, steps)
	fmt.Printf("Recorded data: %d steps, %d %s objects, %d passing matchers\n",
		len(steps), len(objects), cfg.Granularity, len(matched))

	if len(matched) == 0 {
		log.Fatal("Config matches zero raw inputs; activation would be rejected")
	}

	limit := len(matched)
	if limit > 3 {
		limit = 3
	}
	for _, obj := range matched[:limit] {
		fmt.Printf("  matched %s %s\n", obj.Kind, obj.ID())
	}
}
