package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrEthical07/kvauth"
	"github.com/MrEthical07/kvauth/internal/httpapi"
	"github.com/MrEthical07/kvauth/internal/logger"
	"github.com/caarlos0/env/v11"
	"github.com/redis/go-redis/v9"
)

var (
	buildVersion string
	buildDate    string
	buildCommit  string
)

type serverConfig struct {
	HTTPAddress     string        `env:"HTTP_ADDR" envDefault:":8080"`
	RedisAddress    string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword   string        `env:"REDIS_PASSWORD"`
	RedisDB         int           `env:"REDIS_DB" envDefault:"0"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

func main() {
	printBuildInfo()

	var cfg serverConfig
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: kvauth.EnvPrefix}); err != nil {
		panic(fmt.Errorf("error getting server configs: %w", err))
	}

	log := logger.NewLogger("kvauth-server", cfg.LogLevel)

	engineCfg, err := kvauth.LoadConfigFromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("error getting engine configs")
	}
	log.Debug().Any("config", engineCfg).Msg("received configs")

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddress,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer rdb.Close()

	engine, err := kvauth.New().
		WithConfig(engineCfg).
		WithRedis(rdb).
		WithLogger(log.Logger).
		Build()
	if err != nil {
		log.Fatal().Err(err).Msg("error building engine")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	defer stop()

	if latency, err := engine.Ping(ctx); err != nil {
		log.Warn().Err(err).Str("redis", cfg.RedisAddress).Msg("redis is not reachable yet")
	} else {
		log.Info().Dur("latency", latency).Msg("redis reachable")
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddress,
		Handler:           httpapi.NewHandler(engine, log).Init(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddress).Msg("Launching HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("HTTP server ListenAndServe")
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server Shutdown")
	}
	log.Info().Msg("server Shutdown gracefully")
}

func printBuildInfo() {
	if buildVersion == "" {
		buildVersion = "N/A"
	}

	if buildDate == "" {
		buildDate = "N/A"
	}

	if buildCommit == "" {
		buildCommit = "N/A"
	}

	fmt.Printf("Build version: %s\n", buildVersion)
	fmt.Printf("Build date: %s\n", buildDate)
	fmt.Printf("Build commit: %s\n", buildCommit)
}
