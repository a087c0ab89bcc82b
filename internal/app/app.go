// Package app assembles the application: configuration, logging, tracing,
// the service clients, and the session controller. Commands depend on App
// instead of wiring components themselves.
package app

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/time/rate"

	"github.com/lewa0/lewa/internal/augment"
	"github.com/lewa0/lewa/internal/chat"
	"github.com/lewa0/lewa/internal/config"
	"github.com/lewa0/lewa/internal/log"
	"github.com/lewa0/lewa/internal/observability"
	"github.com/lewa0/lewa/internal/retrieval"
	"github.com/lewa0/lewa/internal/session"
	"github.com/lewa0/lewa/internal/tutor"
)

// App holds the assembled application components.
type App struct {
	Config     *config.Config
	Logger     log.Logger
	Session    *session.Session
	Controller *chat.Controller
	Tutor      *tutor.Client

	shutdownTracing observability.ShutdownFunc
}

// New loads configuration and builds every component. The returned App
// must be closed to flush traces.
func New(ctx context.Context) (*App, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}

	cfg, err := config.Load(home)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	logger := log.New(log.Config{
		Level: log.ParseLevel(cfg.Log.Level),
		JSON:  cfg.Log.JSON,
	})

	shutdownTracing, err := observability.Setup(ctx, cfg.Tracing, logger)
	if err != nil {
		return nil, fmt.Errorf("setting up tracing: %w", err)
	}

	retrievalClient, err := retrieval.New(retrieval.Config{
		BaseURL:     cfg.RetrievalURL(),
		ResultCount: cfg.Retrieval.ResultCount,
		Timeout:     cfg.Retrieval.Timeout,
		CacheTTL:    cfg.Retrieval.CacheTTL,
	}, logger.With("component", "retrieval"))
	if err != nil {
		return nil, fmt.Errorf("creating retrieval client: %w", err)
	}

	pipeline, err := augment.New(retrievalClient, logger.With("component", "augment"))
	if err != nil {
		return nil, fmt.Errorf("creating augmentation pipeline: %w", err)
	}

	tutorClient, err := tutor.New(tutor.Config{
		BaseURL: cfg.Backend.URL,
		Retry: tutor.RetryConfig{
			MaxRetries:      cfg.Tutor.Retry.MaxRetries,
			InitialInterval: cfg.Tutor.Retry.InitialInterval,
			MaxInterval:     cfg.Tutor.Retry.MaxInterval,
		},
		CircuitBreaker: tutor.CircuitBreakerConfig{
			FailureThreshold: cfg.Tutor.Breaker.FailureThreshold,
			SuccessThreshold: cfg.Tutor.Breaker.SuccessThreshold,
			Timeout:          cfg.Tutor.Breaker.Timeout,
		},
		RateLimiter: rate.NewLimiter(
			rate.Limit(cfg.Tutor.Rate.RequestsPerSecond),
			cfg.Tutor.Rate.Burst,
		),
	}, logger.With("component", "tutor"))
	if err != nil {
		return nil, fmt.Errorf("creating tutoring client: %w", err)
	}

	sess := session.New()

	controller, err := chat.New(chat.Config{
		Session:   sess,
		Augmenter: pipeline,
		Tutor:     tutorClient,
		Logger:    logger.With("component", "chat"),
	})
	if err != nil {
		return nil, fmt.Errorf("creating controller: %w", err)
	}

	return &App{
		Config:          cfg,
		Logger:          logger,
		Session:         sess,
		Controller:      controller,
		Tutor:           tutorClient,
		shutdownTracing: shutdownTracing,
	}, nil
}

// Close flushes traces and releases resources.
func (a *App) Close(ctx context.Context) error {
	if a.shutdownTracing != nil {
		return a.shutdownTracing(ctx)
	}
	return nil
}
