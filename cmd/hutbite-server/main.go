package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/hutbite/hutbite-backend/internal/config"
	"github.com/hutbite/hutbite-backend/pkg/address"
	"github.com/hutbite/hutbite-backend/pkg/deliverability"
	"github.com/hutbite/hutbite-backend/pkg/geocache"
	"github.com/hutbite/hutbite-backend/pkg/geocode"
	"github.com/hutbite/hutbite-backend/pkg/hubrise"
	"github.com/hutbite/hutbite-backend/pkg/logging"
	"github.com/hutbite/hutbite-backend/pkg/sms"
	"github.com/hutbite/hutbite-backend/pkg/store"
	"github.com/hutbite/hutbite-backend/pkg/ultimago"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		l := zerolog.New(os.Stderr)
		l.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger := logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.LogLevel),
		Pretty: false,
		Output: os.Stderr,
	})

	srv, err := buildServer(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to build server")
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", httpServer.Addr).Msg("Starting server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info().Msg("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Shutdown failed")
	}
}

func buildServer(cfg *config.Config, logger zerolog.Logger) (*server, error) {
	cache := geocache.New(cfg.PostcodeCacheSize, cfg.PostcodeTTL())

	geocoder, err := geocode.New(geocode.Config{
		BaseURL: cfg.PostcodesBaseURL,
		Cache:   cache,
		Timeout: cfg.HTTPTimeout(),
	})
	if err != nil {
		return nil, err
	}

	smsService := sms.New(sms.Config{
		Enabled:  cfg.SMSEnabled,
		Username: cfg.ClickSendUsername,
		APIKey:   cfg.ClickSendAPIKey,
		Sender:   cfg.SMSSender,
		Timeout:  cfg.HTTPTimeout(),
	})

	var hubriseClient *hubrise.Client
	if cfg.HubRiseConfigured() {
		hubriseClient, err = hubrise.New(hubrise.Config{
			APIURL:      cfg.HubRiseAPIURL,
			AccessToken: cfg.HubRiseAccessToken,
			Timeout:     cfg.HTTPTimeout(),
		})
		if err != nil {
			return nil, err
		}
	} else {
		logger.Warn().Msg("HubRise credentials not configured, order routes disabled")
	}

	ultimagoClient, err := ultimago.New(ultimago.Config{
		Username: cfg.UltimagoUsername,
		Password: cfg.UltimagoPassword,
		Timeout:  cfg.HTTPTimeout(),
	})
	if err != nil {
		return nil, err
	}

	addressService := address.New(address.Config{
		APIKey:  cfg.AddressyAPIKey,
		Timeout: cfg.HTTPTimeout(),
	})

	var connections *store.Store
	if cfg.RedisURL != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisURL})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn().Err(err).Str("redis_url", cfg.RedisURL).
				Msg("Redis unreachable, connection routes disabled")
		} else {
			logger.Info().Str("redis_url", cfg.RedisURL).Msg("Connected to Redis")
			connections = store.New(redisClient)
		}
	}

	return &server{
		cfg:         cfg,
		engine:      deliverability.NewEngine(geocoder),
		smsService:  smsService,
		hubrise:     hubriseClient,
		ultimago:    ultimagoClient,
		address:     addressService,
		connections: connections,
		validate:    validator.New(),
		logger:      logger,
	}, nil
}
