package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	APIPort            string
	BackendAPIKey      string // API key for authenticating requests (empty = no auth, dev mode)
	CorsAllowedOrigins string // Comma-separated allowed origins (empty = *, matching the UI's expectations)

	// AWS / object store
	Region string // REMOTION_APP_REGION wins over AWS_REGION when both are set
	Bucket string // Default artifact bucket when a request does not name one

	// Remote rendering engine
	RemotionFunctionName string
	RemotionServeURL     string

	// Speech synthesis
	TTSProvider  string // "polly" (default) or "openai"
	DefaultVoice string // "VoiceId" or "VoiceId:engine"
	OpenAIKey    string // required only when TTSProvider is "openai"

	// Deck content generation (optional)
	GoogleAPIKey string

	// Concatenation backend: "remotion" (default) or "ffmpeg"
	ConcatBackend string

	// Deck fan-out
	MaxConcurrentSlides int
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	_ = godotenv.Load()

	region := getEnv("REMOTION_APP_REGION", "")
	if region == "" {
		region = getEnv("AWS_REGION", "us-east-1")
	}

	cfg := &Config{
		APIPort:              getEnv("API_PORT", "8080"),
		BackendAPIKey:        getEnv("BACKEND_API_KEY", ""),
		CorsAllowedOrigins:   getEnv("CORS_ALLOWED_ORIGINS", ""),
		Region:               region,
		Bucket:               getEnv("S3_BUCKET_NAME", ""),
		RemotionFunctionName: getEnv("REMOTION_APP_FUNCTION_NAME", ""),
		RemotionServeURL:     getEnv("REMOTION_APP_SERVE_URL", ""),
		TTSProvider:          getEnv("TTS_PROVIDER", "polly"),
		DefaultVoice:         getEnv("DEFAULT_VOICE", "Ruth:generative"),
		OpenAIKey:            getEnv("OPENAI_API_KEY", ""),
		GoogleAPIKey:         getEnv("GOOGLE_API_KEY", ""),
		ConcatBackend:        getEnv("CONCAT_BACKEND", "remotion"),
		MaxConcurrentSlides:  getEnvInt("MAX_CONCURRENT_SLIDES", 3),
	}

	// Validate required fields
	if cfg.RemotionFunctionName == "" {
		return nil, fmt.Errorf("REMOTION_APP_FUNCTION_NAME is required")
	}

	if cfg.RemotionServeURL == "" {
		return nil, fmt.Errorf("REMOTION_APP_SERVE_URL is required")
	}

	if cfg.TTSProvider != "polly" && cfg.TTSProvider != "openai" {
		return nil, fmt.Errorf("TTS_PROVIDER must be polly or openai, got %q", cfg.TTSProvider)
	}

	if cfg.TTSProvider == "openai" && cfg.OpenAIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required when TTS_PROVIDER is openai")
	}

	if cfg.ConcatBackend != "remotion" && cfg.ConcatBackend != "ffmpeg" {
		return nil, fmt.Errorf("CONCAT_BACKEND must be remotion or ffmpeg, got %q", cfg.ConcatBackend)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		i, err := strconv.Atoi(value)
		if err == nil {
			return i
		}
	}
	return defaultValue
}
