package main

import (
	"apexlens/internal/adapters/file"
	"apexlens/internal/adapters/generator"
	"apexlens/internal/adapters/handler"
	"apexlens/internal/core/domain/preset"
	"apexlens/internal/core/port"
	"apexlens/internal/core/service"
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

func main() {
	log.Info().Msg("starting apexlens...")

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	setDefaults()

	viper.AddConfigPath(".")
	viper.SetConfigName("config")
	viper.SetConfigType("toml")
	viper.SetEnvPrefix("apexlens")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	log.Info().Msg("reading config file...")
	err := viper.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			log.Fatal().Err(err).Msg("could not read config file")
		}
		log.Info().Msg("no config file found, using defaults and environment")
	}

	var logLevel zerolog.Level

	switch viper.GetString("log.level") {
	case "debug":
		logLevel = zerolog.DebugLevel
	case "warn":
		logLevel = zerolog.WarnLevel
	case "error":
		logLevel = zerolog.ErrorLevel
	default:
		logLevel = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(logLevel)

	if viper.GetBool("log.pretty") {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	enhancer, err := newEnhancer(ctx)
	if err != nil {
		log.Panic().Err(err).Msg("failed initializing image enhancer")
	}

	var analyzer port.ImageAnalyzer
	if key := viper.GetString("openrouter.api_key"); key != "" {
		analyzer = generator.NewOpenRouter(key, viper.GetString("openrouter.model"), viper.GetString("analysis.prompt"))
		log.Info().Str("model", viper.GetString("openrouter.model")).Msg("image analysis enabled")
	}

	handlerTimeout, err := time.ParseDuration(viper.GetString("handler.timeout"))
	if err != nil {
		log.Panic().Err(err).Msg("invalid timeout for handler in config")
	}

	sessionTTL, err := time.ParseDuration(viper.GetString("server.session_ttl"))
	if err != nil {
		log.Panic().Err(err).Msg("invalid session ttl in config")
	}

	sessions := service.NewSessions(viper.GetInt("server.max_sessions"), sessionTTL, func() *service.Controller {
		return service.NewController(enhancer, analyzer, handlerTimeout)
	})

	renderer, err := handler.NewRenderer()
	if err != nil {
		log.Panic().Err(err).Msg("failed parsing templates")
	}

	web := handler.NewWeb(sessions, preset.Default(), renderer, viper.GetInt64("server.max_upload_bytes"))

	srv := &http.Server{
		Addr:              viper.GetString("server.address"),
		Handler:           web.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		log.Info().Msg("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("failed to shut down server")
		}
	}()

	log.Info().Str("address", srv.Addr).Msg("server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server failed")
	}
}

func setDefaults() {
	viper.SetDefault("server.address", ":8080")
	viper.SetDefault("server.max_upload_bytes", 32<<20)
	viper.SetDefault("server.session_ttl", "1h")
	viper.SetDefault("server.max_sessions", 1000)
	viper.SetDefault("handler.timeout", "0s")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("enhancer.backend", "gemini")
	viper.SetDefault("gemini.model", generator.DefaultGeminiModel)
	viper.SetDefault("openrouter.model", "google/gemini-2.5-flash")
	viper.SetDefault("enhance.chain_edits", false)
}

func newEnhancer(ctx context.Context) (port.ImageEnhancer, error) {
	backend := viper.GetString("enhancer.backend")
	log.Info().Str("backend", backend).Msg("initializing image enhancer")

	switch backend {
	case "fal":
		return generator.NewFAL(viper.GetString("fal.edit_url"), viper.GetString("fal.api_key"), file.Download), nil
	case "gemini":
		return generator.NewGemini(ctx, viper.GetString("gemini.api_key"), viper.GetString("gemini.model"))
	default:
		return nil, errors.New("unknown enhancer backend: " + backend)
	}
}
