package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"prompt-relay/internal/api"
	"prompt-relay/internal/config"
	"prompt-relay/internal/llm"
	"prompt-relay/internal/metrics"
	"prompt-relay/internal/service"
)

const shutdownTimeout = 15 * time.Second

// App holds the wired server and the resources it owns.
type App struct {
	Config *config.Config
	Server *http.Server

	logSink io.Closer
}

// NewApp wires the provider clients, services and router for cfg.
func NewApp(cfg *config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	sink := setupLogger(cfg)
	metrics.SetEnabled(cfg.MetricsEnabled)

	// One client for both provider calls. No timeout: calls are bounded by
	// the inbound request's context.
	httpClient := &http.Client{}
	generator := llm.NewOpenAIGenerator(cfg.BaseURL, cfg.APIKey, httpClient)
	completer := llm.NewOpenAIClient(cfg.BaseURL, cfg.APIKey, httpClient)

	chatService := service.NewChatService(generator, completer, cfg.ExpansionModel, cfg.CompletionModel)
	modelService := service.NewModelService(cfg.ExpansionModel, cfg.CompletionModel)

	router := api.NewRouter(api.NewChatHandler(chatService), api.NewModelHandler(modelService))

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.AppPort),
		Handler:           router,
		ReadHeaderTimeout: 20 * time.Second,
		WriteTimeout:      0, // Disabled for streaming endpoints
		IdleTimeout:       120 * time.Second,
	}

	return &App{Config: cfg, Server: server, logSink: sink}, nil
}

// Run loads configuration, starts the server and blocks until SIGINT or
// SIGTERM. It returns the process exit code.
func Run() int {
	cfg, err := config.LoadConfig()
	if err != nil {
		// slog is not yet configured, so use the default logger for this critical error.
		slog.Error("Failed to load configuration", "error", err)
		return 1
	}

	app, err := NewApp(cfg)
	if err != nil {
		slog.Error("Failed to initialize application", "error", err)
		return 1
	}
	defer app.Close()

	logConfigSource()
	slog.Info("Resolved models",
		"expansion_model", cfg.ExpansionModel,
		"completion_model", cfg.CompletionModel,
		"base_url", cfg.BaseURL,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return app.Serve(ctx)
}

// Serve runs the HTTP server until ctx is cancelled, then shuts it down
// gracefully.
func (a *App) Serve(ctx context.Context) int {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting server", "addr", a.Server.Addr)
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			slog.Error("Server failed", "error", err)
			return 1
		}
		return 0
	case <-ctx.Done():
	}

	slog.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Graceful shutdown failed", "error", err)
		return 1
	}
	return 0
}

// Close releases the log file, if one is open.
func (a *App) Close() {
	if a.logSink == nil {
		return
	}
	if err := a.logSink.Close(); err != nil {
		slog.Warn("Failed to close log file", "error", err)
	}
}

func logConfigSource() {
	configFileUsed := viper.ConfigFileUsed()
	if configFileUsed != "" {
		slog.Info("Successfully loaded configuration from file.", "file", configFileUsed)
	} else {
		slog.Info("Configuration file not found. Using environment variables and defaults.")
	}
}

func parseLevel(logLevel string) slog.Level {
	switch strings.ToUpper(logLevel) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// setupLogger installs a JSON slog logger on stdout, teeing into a rotating
// file when LOG_FILE is set. The returned closer is nil without a file.
func setupLogger(cfg *config.Config) io.Closer {
	var out io.Writer = os.Stdout
	var sink *lumberjack.Logger
	if cfg.LogFile != "" {
		sink = &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    cfg.LogMaxSizeMB,
			MaxBackups: cfg.LogMaxBackups,
			MaxAge:     cfg.LogMaxAgeDays,
			Compress:   true,
		}
		out = io.MultiWriter(os.Stdout, sink)
	}

	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: parseLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	if sink == nil {
		return nil
	}
	return sink
}
