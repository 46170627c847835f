package config

import (
	"os"
	"strconv"
)

// Config carries every collaborator credential and endpoint. It is built once
// in main and passed into each client constructor; nothing reads the
// environment after startup.
type Config struct {
	// HTTP listen port
	Port string

	// Speech-to-text collaborator
	TranscribeAPIKey  string
	TranscribeBaseURL string
	LanguageCode      string

	// Prompt LLM collaborator
	CohereAPIKey  string
	OpenAIAPIKey  string
	OpenAIBaseURL string
	LLMModel      string

	// Image generation collaborator (two-phase submit/poll)
	ImageGenAPIKey  string
	ImageGenBaseURL string
	ImageGenModel   string

	// Image editing collaborator
	ImageEditAPIKey  string
	ImageEditBaseURL string

	// Optional Redis prompt->image cache
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Optional S3 artifact store
	S3Bucket string
	S3Prefix string
	S3Region string

	// Optional Kafka event stream
	KafkaBrokers string
	KafkaTopic   string
}

// Load reads configuration from the environment. Callers should run
// godotenv.Load first so a local .env is honoured.
func Load() Config {
	cfg := Config{
		Port:              getEnvOrDefault("PORT", "8080"),
		TranscribeAPIKey:  os.Getenv("ELEVENLABS_API_KEY"),
		TranscribeBaseURL: getEnvOrDefault("ELEVENLABS_BASE_URL", "https://api.elevenlabs.io"),
		LanguageCode:      getEnvOrDefault("TRANSCRIBE_LANGUAGE", "pt"),
		CohereAPIKey:      os.Getenv("COHERE_API_KEY"),
		OpenAIAPIKey:      os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:     getEnvOrDefault("OPENAI_BASE_URL", "https://api.openai.com"),
		LLMModel:          getEnvOrDefault("LLM_MODEL", ""),
		ImageGenAPIKey:    os.Getenv("REPLICATE_API_TOKEN"),
		ImageGenBaseURL:   getEnvOrDefault("REPLICATE_BASE_URL", "https://api.replicate.com"),
		ImageGenModel:     getEnvOrDefault("IMAGE_MODEL", "black-forest-labs/flux-schnell"),
		ImageEditAPIKey:   os.Getenv("OPENAI_API_KEY"),
		ImageEditBaseURL:  getEnvOrDefault("IMAGE_EDIT_BASE_URL", "https://api.openai.com"),
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		RedisPassword:     os.Getenv("REDIS_PASS"),
		S3Bucket:          os.Getenv("S3_BUCKET"),
		S3Prefix:          getEnvOrDefault("S3_PREFIX", "exports/"),
		S3Region:          os.Getenv("AWS_REGION"),
		KafkaBrokers:      os.Getenv("KAFKA_BROKERS"),
		KafkaTopic:        getEnvOrDefault("KAFKA_TOPIC", "storyreel.pipeline"),
	}

	if v := os.Getenv("REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.RedisDB = db
		}
	}

	return cfg
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
