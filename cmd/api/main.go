package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	lambdasvc "github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/polly"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/RobinNagpal/slidecast/internal/api"
	"github.com/RobinNagpal/slidecast/internal/config"
	"github.com/RobinNagpal/slidecast/internal/remotion"
	"github.com/RobinNagpal/slidecast/internal/runtime"
	"github.com/RobinNagpal/slidecast/internal/services"
	"github.com/RobinNagpal/slidecast/internal/storage"
)

func main() {
	env := runtime.Detect()

	if env.IsLambda() {
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	log.Info().Msg("Starting Slidecast API...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(cfg.Region))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load AWS config")
	}

	store := storage.New(s3.NewFromConfig(awsCfg))
	engine := remotion.New(lambdasvc.NewFromConfig(awsCfg), cfg.RemotionFunctionName, cfg.RemotionServeURL)

	var speech services.SpeechService
	switch cfg.TTSProvider {
	case "openai":
		speech = services.NewOpenAITTSService(cfg.OpenAIKey)
		log.Info().Msg("TTS provider: OpenAI")
	default:
		speech = services.NewPollyService(polly.NewFromConfig(awsCfg))
		log.Info().Str("defaultVoice", cfg.DefaultVoice).Msg("TTS provider: Polly")
	}

	ffmpeg := services.NewFFmpegService(env)
	narrator := services.NewNarrator(store, speech)
	renderer := services.NewRenderer(store, engine, narrator, speech, ffmpeg, env, cfg.MaxConcurrentSlides)

	var concat services.Concatenator
	if cfg.ConcatBackend == "ffmpeg" {
		concat = services.NewFFmpegConcatenator(store, ffmpeg, env)
		log.Info().Msg("Concatenation backend: ffmpeg (local)")
	} else {
		concat = services.NewRemotionConcatenator(store, engine)
		log.Info().Msg("Concatenation backend: remotion (remote)")
	}

	decks := services.NewDeckGenerator(cfg.GoogleAPIKey)

	handler := api.NewHandler(renderer, narrator, concat, decks, cfg.Bucket, cfg.DefaultVoice)
	router := api.NewRouter(handler, api.RouterConfig{
		BackendAPIKey:      cfg.BackendAPIKey,
		CorsAllowedOrigins: cfg.CorsAllowedOrigins,
	})

	if cfg.BackendAPIKey != "" {
		log.Info().Msg("API key authentication enabled")
	} else {
		log.Warn().Msg("No BACKEND_API_KEY set — API is unprotected (dev mode)")
	}

	if env.IsLambda() {
		log.Info().Msg("Running in Lambda mode")
		adapter := httpadapter.New(router)
		lambda.Start(adapter.ProxyWithContext)
		return
	}

	server := &http.Server{
		Addr:    ":" + cfg.APIPort,
		Handler: router,
	}

	go func() {
		log.Info().Str("port", cfg.APIPort).Msg("API server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
