// Package injector assembles the application graph with google/wire.
package injector

import (
	"context"
	"time"

	"github.com/google/wire"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"creatorhub/internal/archive"
	"creatorhub/internal/config"
	"creatorhub/internal/core"
	"creatorhub/internal/export"
	"creatorhub/internal/generation"
	"creatorhub/internal/identity"
	"creatorhub/internal/infra/persistence"
	"creatorhub/internal/notify"
	"creatorhub/internal/observability"
	"creatorhub/internal/workspace"
	"creatorhub/pkg/domain"
)

// App is everything a command needs.
type App struct {
	Config     *config.Config
	Logger     *observability.Logger
	Localizer  *notify.Localizer
	Rows       persistence.RowStore
	Archive    archive.Store
	Session    *identity.Session
	Hub        *notify.Hub
	Toasts     *notify.Recorder
	Registry   *prometheus.Registry
	Metrics    *core.PrometheusMetricsRecorder
	Workspace  *workspace.Workspace
	Exports    *export.Worker
	Generation *generation.Service
}

// ProviderSet lists every provider InitializeApp draws from.
var ProviderSet = wire.NewSet(
	ProvideLogger,
	ProvideLocalizer,
	ProvideRowStore,
	ProvideArchive,
	ProvideSession,
	ProvideHub,
	ProvideRecorder,
	ProvideRegistry,
	ProvideMetrics,
	ProvideNotifier,
	ProvideWorkspace,
	ProvideExportWorker,
	ProvideModel,
	ProvideGeneration,
	wire.Struct(new(App), "*"),
)

func ProvideLogger(cfg *config.Config) (*observability.Logger, error) {
	return observability.New(cfg.Logging.Level, cfg.Logging.Format)
}

func ProvideLocalizer(cfg *config.Config) *notify.Localizer {
	return notify.NewLocalizer(cfg.Locale)
}

func ProvideRowStore(ctx context.Context, cfg *config.Config, logger *observability.Logger) (persistence.RowStore, func(), error) {
	rows, err := workspace.OpenRowStore(ctx, cfg.Storage)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := rows.Close(); err != nil {
			logger.Warn("close storage", "error", err)
		}
	}
	return rows, cleanup, nil
}

func ProvideArchive(ctx context.Context, cfg *config.Config) (archive.Store, error) {
	return archive.Open(ctx, cfg.Archive)
}

func ProvideSession() *identity.Session { return identity.NewSession() }

func ProvideHub(loc *notify.Localizer, logger *observability.Logger) (*notify.Hub, func()) {
	hub := notify.NewHub(loc, logger.Named("hub"))
	return hub, func() { _ = hub.Close() }
}

func ProvideRecorder(loc *notify.Localizer) *notify.Recorder {
	return notify.NewRecorder(loc, 50)
}

// ProvideRegistry returns a registry carrying the Go runtime and process collectors.
func ProvideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

func ProvideMetrics(reg *prometheus.Registry) (*core.PrometheusMetricsRecorder, error) {
	return core.NewPrometheusMetricsRecorder(reg)
}

// ProvideNotifier fans store notifications out to the log, the websocket hub
// and the in-process toast buffer.
func ProvideNotifier(logger *observability.Logger, loc *notify.Localizer, hub *notify.Hub, rec *notify.Recorder) core.Notifier {
	return notify.Multi{notify.NewLogNotifier(logger.Named("notify"), loc), hub, rec}
}

// ProvideWorkspace builds the workspace and binds it to the session so login
// opens it and logout resets it.
func ProvideWorkspace(rows persistence.RowStore, session *identity.Session, n core.Notifier, logger *observability.Logger, metrics *core.PrometheusMetricsRecorder) *workspace.Workspace {
	ws := workspace.New(rows, workspace.Options{
		Identity: session,
		Notifier: n,
		Logger:   logger.Named("store"),
		Metrics:  metrics,
	})
	ws.Bind(session)
	return ws
}

func ProvideExportWorker(cfg *config.Config, store archive.Store, logger *observability.Logger) (*export.Worker, func()) {
	w := export.NewWorker(store, cfg.Export.QueueSize, logger.Named("export"))
	w.Start()
	return w, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := w.Stop(ctx); err != nil {
			logger.Warn("stop export worker", "error", err)
		}
	}
}

// offlineDrafts stands in for the model when no API key is configured.
var offlineDrafts = generation.Canned{
	domain.GenerationCaption: "New drop, same obsession. Tap the link to see it first. #behindthescenes",
	domain.GenerationScript:  "Hook: You are doing this wrong.\nBeat 1: Show the usual way.\nBeat 2: Show the fix.\nBeat 3: Show the result.\nCTA: Follow for part two.",
	domain.GenerationHook:    "I tried this for 30 days so you do not have to.",
	domain.GenerationIdea:    "Day in the life\nTool stack tour\nMyth vs fact\nBefore and after\nAnswering comments",
}

// ProvideModel returns the Gemini model, or canned drafts without an API key.
func ProvideModel(ctx context.Context, cfg *config.Config, logger *observability.Logger) (generation.Model, error) {
	if cfg.Generation.APIKey == "" {
		logger.Warn("no generation API key configured, using offline drafts")
		return offlineDrafts, nil
	}
	return generation.NewGemini(ctx, cfg.Generation.APIKey, cfg.Generation.Model)
}

func ProvideGeneration(model generation.Model, ws *workspace.Workspace, cfg *config.Config, logger *observability.Logger) *generation.Service {
	return generation.NewService(model, ws.Generations, cfg.GenerationTimeout(), logger.Named("generation"))
}
