package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fixmycar/assistant/backend/internal/analysis/intent"
	"github.com/fixmycar/assistant/backend/internal/config"
	"github.com/fixmycar/assistant/backend/internal/handler"
	"github.com/fixmycar/assistant/backend/internal/logger"
	"github.com/fixmycar/assistant/backend/internal/model/team"
	"github.com/fixmycar/assistant/backend/internal/observability"
	"github.com/fixmycar/assistant/backend/internal/service/chat"
	"github.com/fixmycar/assistant/backend/internal/service/events"
)

const producerName = "fixmycar-assistant"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("failed to load .env file, continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLog, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialise logger")
	}
	log.Logger = appLog

	shutdownTelemetry, err := observability.Setup(ctx, cfg.Telemetry, appLog)
	if err != nil {
		appLog.Fatal().Err(err).Msg("failed to initialise telemetry")
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTelemetry(flushCtx)
	}()

	catalog := intent.DefaultCatalog()
	if cfg.Chat.CatalogPath != "" {
		catalog, err = intent.LoadCatalog(cfg.Chat.CatalogPath)
		if err != nil {
			appLog.Fatal().Err(err).Str("path", cfg.Chat.CatalogPath).Msg("failed to load intent catalogue")
		}
		appLog.Info().Str("path", cfg.Chat.CatalogPath).Int("rules", len(catalog.Rules)).Msg("intent catalogue loaded")
	}

	publisher := newPublisher(ctx, cfg.Events, appLog)
	defer func() {
		if err := publisher.Close(); err != nil {
			appLog.Warn().Err(err).Msg("failed to close event publisher")
		}
	}()

	dispatcher := events.NewDispatcher(publisher, events.DispatcherOptions{
		Producer: producerName,
		Logger:   appLog,
	})
	dispatcherDone := make(chan struct{})
	go func() {
		defer close(dispatcherDone)
		dispatcher.Run(ctx)
	}()

	chatService := chat.NewService(chat.Config{
		Classifier:  catalog,
		TypingDelay: cfg.Chat.TypingDelay,
		IdleTimeout: cfg.Chat.IdleTimeout,
		Turns:       dispatcher,
		Logger:      appLog,
	})
	go chatService.Run(ctx)

	router := handler.NewRouter(team.NewMemoryStore(team.Seed()), chatService, handler.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Logger:         appLog,
	})

	startServer(ctx, cfg.Server, router, appLog)

	chatService.Shutdown()
	<-dispatcherDone
}

// newPublisher falls back to a no-op publisher when the broker is not
// configured or unreachable.
func newPublisher(ctx context.Context, cfg config.EventsConfig, appLog zerolog.Logger) events.Publisher {
	if !cfg.Enabled() {
		appLog.Info().Msg("AMQP_URL not set, turn events disabled")
		return events.NoopPublisher{}
	}

	publisher, err := events.NewRabbitPublisher(ctx, events.ConnectionOptions{
		URL:           cfg.AMQPURL,
		Exchange:      cfg.Exchange,
		RetryAttempts: cfg.RetryAttempts,
		Delay:         cfg.RetryDelay,
		Logger:        appLog,
	})
	if err != nil {
		appLog.Warn().Err(err).Msg("failed to connect to broker, continuing without turn events")
		return events.NoopPublisher{}
	}
	appLog.Info().Str("exchange", cfg.Exchange).Msg("turn events enabled")
	return publisher
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler, appLog zerolog.Logger) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	appLog.Info().Str("addr", addr).Msg("FIXMYCAR assistant backend listening")
	if err := runServer(ctx, srv); err != nil {
		appLog.Fatal().Err(err).Msg("server error")
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
