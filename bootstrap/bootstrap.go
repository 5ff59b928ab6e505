// Package bootstrap wires all dependencies and starts the application.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/artpar/documind/adapters/auth"
	"github.com/artpar/documind/adapters/clock"
	"github.com/artpar/documind/adapters/gemini"
	apihttp "github.com/artpar/documind/adapters/http"
	"github.com/artpar/documind/adapters/idgen"
	"github.com/artpar/documind/adapters/ilovepdf"
	"github.com/artpar/documind/adapters/metrics"
	"github.com/artpar/documind/adapters/pdflocal"
	"github.com/artpar/documind/app"
	"github.com/artpar/documind/config"
	"github.com/artpar/documind/domain/chat"
	"github.com/artpar/documind/domain/quota"
	"github.com/artpar/documind/ports"
)

// App represents the running application.
type App struct {
	Logger     zerolog.Logger
	Config     *config.Holder
	HTTPServer *http.Server
	Metrics    *metrics.Collector
	Gate       *app.UsageGate
	Stores     *Stores
}

// Options controls how the application is built.
type Options struct {
	ConfigPath string    // YAML file; env-only config when absent
	HotReload  bool      // watch the file and SIGHUP
	LogOutput  io.Writer // defaults to os.Stdout
}

// New creates and initializes the application.
func New(ctx context.Context, opts Options) (*App, error) {
	holder, err := loadHolder(opts)
	if err != nil {
		return nil, err
	}
	cfg := holder.Get()

	out := opts.LogOutput
	if out == nil {
		out = os.Stdout
	}
	logger := NewLogger(cfg.Logging, out)
	logger.Info().Msg("initializing documind")

	a := &App{
		Logger: logger,
		Config: holder,
	}

	clk := clock.Real{}

	stores, err := OpenStores(ctx, cfg.Store, logger)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	a.Stores = stores

	// Initialize metrics if enabled
	var (
		pm             ports.Metrics
		metricsHandler http.Handler
	)
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		a.Metrics = metrics.NewWithRegistry(reg)
		pm = a.Metrics
		metricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
		logger.Info().Str("path", cfg.Metrics.Path).Msg("prometheus metrics enabled")
	}

	a.Gate = app.NewUsageGate(stores.Usage, clk, idgen.NewULID(clk), logger,
		app.WithLimits(app.LimitsFunc(func() quota.Limits { return holder.Get().Quota.Limits() })),
		app.WithMetrics(pm),
	)

	proc, err := newProcessor(cfg.PDF, logger)
	if err != nil {
		stores.Close()
		return nil, err
	}

	llm, err := newLanguageModel(ctx, cfg.AI, logger)
	if err != nil {
		stores.Close()
		return nil, err
	}

	maxFile := cfg.PDF.MaxFileBytes()
	tools := app.NewToolService(a.Gate, proc, maxFile, pm, logger)
	chatSvc := app.NewChatService(app.ChatConfig{
		Gate:    a.Gate,
		LLM:     llm,
		History: stores.History,
		IDs:     idgen.UUID{},
		Clock:   clk,
		Models:  func() []string { return holder.Get().AI.Models },
		MaxSize: maxFile,
		Metrics: pm,
		Logger:  logger,
	})

	var verifier ports.IdentityVerifier
	if cfg.Auth.JWTSecret != "" {
		verifier = auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.Audience, 0)
	} else {
		logger.Warn().Msg("auth.jwt_secret not set, every caller is treated as a guest")
	}

	router := apihttp.NewRouter(apihttp.RouterConfig{
		API: apihttp.NewAPI(apihttp.APIConfig{
			Tools:     tools,
			Chat:      chatSvc,
			Gate:      a.Gate,
			Clock:     clk,
			MaxUpload: 4*maxFile + 1<<20,
			Logger:    logger,
		}),
		Health:         apihttp.NewHealthHandler(stores.Pinger),
		Identity:       apihttp.NewIdentityResolver(verifier, cfg.Server.TrustProxy, logger),
		Metrics:        a.Metrics,
		MetricsHandler: metricsHandler,
		MetricsPath:    cfg.Metrics.Path,
		RequestTimeout: cfg.Server.RequestTimeout,
	}, logger)

	a.HTTPServer = &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	a.watchConfig(opts.HotReload)

	return a, nil
}

func loadHolder(opts Options) (*config.Holder, error) {
	nop := zerolog.Nop()
	if opts.HotReload && opts.ConfigPath != "" {
		if _, err := os.Stat(opts.ConfigPath); err == nil {
			h, err := config.NewHolder(opts.ConfigPath, nop)
			if err != nil {
				return nil, err
			}
			return h, nil
		}
	}

	cfg, err := config.LoadWithFallback(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return config.NewStaticHolder(cfg, nop), nil
}

// watchConfig applies reloadable fields on change. Quota limits and model
// lists are read through the holder per request, so only the log level
// needs pushing.
func (a *App) watchConfig(hotReload bool) {
	a.Config.SetLogger(a.Logger)

	a.Config.OnChange(func(cfg *config.Config) {
		if level, err := zerolog.ParseLevel(cfg.Logging.Level); err == nil {
			zerolog.SetGlobalLevel(level)
		}
		if a.Metrics != nil {
			a.Metrics.ConfigReloads.Inc()
			a.Metrics.ConfigLastReload.SetToCurrentTime()
		}
	})
	a.Config.OnError(func(error) {
		if a.Metrics != nil {
			a.Metrics.ConfigReloadErrors.Inc()
		}
	})

	if !hotReload || a.Config.Path() == "" {
		return
	}
	if err := a.Config.WatchFile(); err != nil {
		a.Logger.Warn().Err(err).Msg("config file watch disabled")
	}
	a.Config.WatchSignals()
}

func newProcessor(cfg config.PDFConfig, logger zerolog.Logger) (ports.PDFProcessor, error) {
	switch cfg.Engine {
	case "ilovepdf":
		logger.Info().Str("base_url", cfg.ILovePDF.BaseURL).Msg("using iLovePDF engine")
		client := ilovepdf.NewClient(ilovepdf.Config{
			PublicKey: cfg.ILovePDF.PublicKey,
			SecretKey: cfg.ILovePDF.SecretKey,
			BaseURL:   cfg.ILovePDF.BaseURL,
			Timeout:   cfg.ILovePDF.Timeout,
		})
		return ilovepdf.NewProcessor(client), nil
	case "local":
		logger.Info().Msg("using local pdfcpu engine")
		return pdflocal.New(), nil
	default:
		return nil, fmt.Errorf("unknown pdf engine %q", cfg.Engine)
	}
}

// errAINotConfigured is returned by chat when no API key is set.
var errAINotConfigured = errors.New("ai.api_key is not configured")

type unconfiguredModel struct{}

func (unconfiguredModel) Generate(context.Context, string, chat.Prompt) (string, error) {
	return "", errAINotConfigured
}

func newLanguageModel(ctx context.Context, cfg config.AIConfig, logger zerolog.Logger) (ports.LanguageModel, error) {
	if cfg.APIKey == "" {
		logger.Warn().Msg("ai.api_key not set, chat requests will fail")
		return unconfiguredModel{}, nil
	}
	m, err := gemini.New(ctx, cfg.APIKey, cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("init gemini: %w", err)
	}
	return m, nil
}

// Run starts the HTTP server and blocks until shutdown.
func (a *App) Run() error {
	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info().
			Str("addr", a.HTTPServer.Addr).
			Msg("starting http server")
		if err := a.HTTPServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for interrupt or error
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		a.Shutdown()
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		a.Logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	return a.Shutdown()
}

// Shutdown gracefully stops the application.
func (a *App) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a.Config.Stop()

	if a.HTTPServer != nil {
		if err := a.HTTPServer.Shutdown(ctx); err != nil {
			a.Logger.Error().Err(err).Msg("http server shutdown error")
		}
	}

	if a.Stores != nil {
		if err := a.Stores.Close(); err != nil {
			a.Logger.Error().Err(err).Msg("store close error")
		}
	}

	a.Logger.Info().Msg("shutdown complete")
	return nil
}

// NewLogger builds the root logger and sets the global level.
func NewLogger(cfg config.LoggingConfig, out io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).With().Timestamp().Str("service", "documind").Logger()
}
