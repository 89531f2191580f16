// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/rs/cors"

	"github.com/tahcohcat/chandu-voice/config"
	"github.com/tahcohcat/chandu-voice/internal/api"
	"github.com/tahcohcat/chandu-voice/internal/llm"
	"github.com/tahcohcat/chandu-voice/internal/logger"
	"github.com/tahcohcat/chandu-voice/internal/relay"
	"github.com/tahcohcat/chandu-voice/internal/tts"
	"github.com/tahcohcat/chandu-voice/internal/websocket"
)

func main() {
	log := logger.New().WithField("component", "main")

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}
	logger.SetGlobalLevel(cfg.Log.Level)

	if cfg.Sentry.DSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.Sentry.DSN,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      cfg.Sentry.Environment,
		})
		if err != nil {
			log.WithError(err).Warn("Sentry init failed")
		} else {
			log.Info("Sentry initialized")
			defer sentry.Flush(2 * time.Second)
		}
	}

	hub := websocket.NewHub()
	go hub.Run()
	defer hub.Stop()

	service, closers, err := buildService(cfg, hub)
	if err != nil {
		sentry.CaptureException(err)
		log.WithError(err).Error("Failed to initialise voice relay")
		os.Exit(1)
	}
	defer func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}()

	r := api.NewRouter(api.NewVoiceHandler(cfg, service), cfg.Server.AccessTokenHash)
	websocket.RegisterRoutes(r, hub, api.TokenMiddleware(cfg.Server.AccessTokenHash))

	staticDir := cfg.Server.StaticDir
	r.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(http.Dir(filepath.Join(staticDir, "static")))))
	r.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, filepath.Join(staticDir, "index.html"))
	}).Methods(http.MethodGet)

	c := cors.New(cors.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization", "X-Request-ID"},
		ExposedHeaders: []string{"X-Audio-Encoding", "X-Request-ID"},
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           api.WithSentryRecovery(c.Handler(r)),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info(fmt.Sprintf("Voice relay starting on port %s", cfg.Server.Port))
		log.Info(fmt.Sprintf("Open http://localhost:%s in your browser", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("Failed to start server")
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("Graceful shutdown failed")
	}
	log.Info("Server stopped")
}

// buildService wires the pipeline. A missing text-generation credential is
// not fatal: the relay still starts and answers 500 until one is configured.
func buildService(cfg *config.Config, notifier relay.Notifier) (*relay.Service, []io.Closer, error) {
	log := logger.New().WithField("component", "main")

	fallback, err := tts.NewFallbackTTS(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("speech backend: %w", err)
	}
	log.Info(fmt.Sprintf("Fallback speech backend: %s", fallback.Name()))

	var closers []io.Closer
	if c, ok := fallback.(io.Closer); ok {
		closers = append(closers, c)
	}

	clone := tts.NewCloneTTS(cfg)
	if clone != nil {
		log.Info(fmt.Sprintf("Voice clone server: %s", cfg.Clone.URL))
	} else {
		log.Info("No voice clone server configured; cloned mode uses the fallback backend")
	}

	if !cfg.HasTextGenCredential() {
		log.Warn(fmt.Sprintf("No credential configured for text generation provider %q", cfg.TextGen.Provider))
		return nil, closers, nil
	}

	textGen, err := llm.NewLLMClient(cfg)
	if err != nil {
		return nil, closers, fmt.Errorf("text generation: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := textGen.IsModelAvailable(ctx); err != nil {
		log.WithError(err).Warn("Text generation model check failed")
	}

	return relay.NewService(textGen, clone, fallback, notifier), closers, nil
}
