package main

import (
	"context"
	"log"
	"net/http"

	"github.com/joho/godotenv"

	"storyreel/api"
	"storyreel/config"
	"storyreel/events"
	"storyreel/export"
	"storyreel/imagecache"
	"storyreel/imageedit"
	"storyreel/imagegen"
	"storyreel/llm"
	"storyreel/pipeline"
	"storyreel/prompt"
	"storyreel/storage"
	"storyreel/transcribe"
)

func main() {
	// Load environment variables from .env if present (non-fatal if missing)
	_ = godotenv.Load()

	cfg := config.Load()
	ctx := context.Background()

	llmClient, err := llm.NewClient(cfg)
	if err != nil {
		log.Fatalf("LLM client: %v", err)
	}
	log.Printf("Using LLM model %s", llmClient.ModelName())

	transcriber := transcribe.NewClient(cfg.TranscribeBaseURL, cfg.TranscribeAPIKey)
	synthesizer := prompt.NewSynthesizer(llmClient)
	images := imagegen.NewClient(cfg)
	editor := imageedit.NewClient(cfg.ImageEditBaseURL, cfg.ImageEditAPIKey)
	exporter := export.NewEngine()

	cache := imagecache.New(cfg)
	if cache != nil {
		defer cache.Close()
		log.Printf("Image cache enabled at %s", cfg.RedisAddr)
	}

	producer, err := events.NewProducer(cfg)
	if err != nil {
		log.Fatalf("Kafka producer: %v", err)
	}
	if producer != nil {
		defer producer.Close()
		log.Printf("Publishing stage events to %s", cfg.KafkaTopic)
	}

	artifacts, err := storage.NewArtifactStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Artifact store: %v", err)
	}
	if artifacts.Enabled() {
		log.Printf("Uploading exports to s3://%s/%s", cfg.S3Bucket, cfg.S3Prefix)
	}

	runner := pipeline.NewRunner(cfg, transcriber, synthesizer, images, cache, exporter, producer)
	r := api.NewRouter(cfg, runner, artifacts, editor)

	addr := ":" + cfg.Port
	log.Printf("Starting API server on %s", addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
