package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/ShayCichocki/gads/internal/agent"
	"github.com/ShayCichocki/gads/internal/config"
	"github.com/ShayCichocki/gads/internal/llm"
	"github.com/ShayCichocki/gads/internal/observability"
	"github.com/ShayCichocki/gads/internal/orchestrator"
	"github.com/ShayCichocki/gads/internal/pipeline"
	"github.com/ShayCichocki/gads/internal/router"
	"github.com/ShayCichocki/gads/internal/session"
	"github.com/ShayCichocki/gads/internal/state"
)

// app holds the collaborators shared by every command.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     *session.FileStore
	db        *state.DB
	agents    *agent.Registry
	router    *router.Router
	pipelines *pipeline.Registry
	tracker   *llm.TokenTracker

	closers []io.Closer
}

// loadConfig reads configuration from --config when given, else from the
// standard locations.
func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFromPath(configPath)
	}
	return config.Load()
}

// newApp loads configuration and builds the session store, inspection
// database, agents, router and pipeline registry. Logs go to logOut, or
// only to the configured log file when logOut is nil.
func newApp(logOut io.Writer) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	logger, logCloser, err := observability.Setup(cfg.Logging, logOut)
	if err != nil {
		return nil, fmt.Errorf("setting up logging: %w", err)
	}
	a := &app{cfg: cfg, logger: logger, closers: []io.Closer{logCloser}}

	if err := os.MkdirAll(cfg.Sessions.Dir, 0755); err != nil {
		a.Close()
		return nil, fmt.Errorf("creating sessions directory: %w", err)
	}
	db, err := state.OpenAndMigrate(cfg.IndexPath())
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("opening state database: %w", err)
	}
	a.db = db
	a.closers = append(a.closers, db)
	if interrupted, err := db.MarkInterrupted(); err != nil {
		logger.Warn("run recovery failed", "error", err)
	} else if len(interrupted) > 0 {
		logger.Info("marked interrupted runs", "count", len(interrupted))
	}

	a.store, err = session.NewFileStore(cfg.Sessions.Dir, cfg.Sessions.MaxHistory,
		session.WithIndex(db),
		session.WithArchive(cfg.Sessions.ArchiveTruncated),
		session.WithLogger(logger),
	)
	if err != nil {
		a.Close()
		return nil, err
	}

	if err := a.buildAgents(); err != nil {
		a.Close()
		return nil, err
	}

	classifier, err := a.buildClassifier()
	if err != nil {
		a.Close()
		return nil, err
	}
	opts := []router.Option{
		router.WithHistoryTurns(cfg.Router.HistoryTurns),
		router.WithLogger(logger),
	}
	if classifier != nil {
		opts = append(opts, router.WithClassifier(classifier))
	}
	a.router = router.New(a.agents, opts...)

	a.pipelines, err = pipeline.NewRegistry(cfg.Pipelines.Dir, pipeline.WithRegistryLogger(logger))
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("loading pipelines: %w", err)
	}
	return a, nil
}

func (a *app) buildAgents() error {
	configs, err := agent.LoadConfigs(a.cfg.Agents.Config)
	if err != nil {
		return err
	}
	a.tracker = llm.NewTokenTracker()
	providers := &agent.Providers{
		Anthropic: a.cfg.AnthropicProvider(""),
		Ollama:    a.cfg.OllamaProvider(""),
		Tracker:   a.tracker,
	}
	factory := agent.NewFactory(configs, providers,
		agent.WithPromptsDir(a.cfg.Agents.PromptsDir),
		agent.WithAgentHistoryWindow(a.cfg.Sessions.HistoryWindow),
		agent.WithFactoryLogger(a.logger),
	)
	a.agents = agent.NewRegistry()
	if err := factory.BuildAll(a.agents); err != nil {
		return fmt.Errorf("building agents: %w", err)
	}
	return nil
}

// buildClassifier returns nil when classification is keyword-only.
func (a *app) buildClassifier() (router.Classifier, error) {
	model := a.cfg.Router.ClassifierModel
	switch a.cfg.Router.Classifier {
	case config.ClassifierNone:
		return nil, nil
	case config.ClassifierAnthropic:
		if err := config.RequireAnthropic(a.cfg); err != nil {
			return nil, fmt.Errorf("anthropic classifier: %w", err)
		}
		p, err := llm.NewAnthropicProvider(a.cfg.AnthropicProvider(model))
		if err != nil {
			return nil, fmt.Errorf("anthropic classifier: %w", err)
		}
		return llm.NewClassifier(p, model), nil
	default:
		p := llm.NewOllamaProvider(a.cfg.OllamaProvider(model))
		return llm.NewClassifier(p, model), nil
	}
}

// newOrchestrator builds an orchestrator that answers approval gates with
// approve and records pipeline runs in the state database.
func (a *app) newOrchestrator(approve pipeline.ApprovalFunc) (*orchestrator.Orchestrator, error) {
	return orchestrator.New(orchestrator.RequiredConfig{
		Store:  a.store,
		Router: a.router,
		Agents: a.agents,
	},
		orchestrator.WithApproval(approve),
		orchestrator.WithHistoryWindow(a.cfg.Sessions.HistoryWindow),
		orchestrator.WithRunLog(a.db),
		orchestrator.WithLogger(a.logger),
	)
}

// resumeSession loads the session named by id, or the most recently
// updated one. It returns nil when there are no sessions yet.
func (a *app) resumeSession(id string) (*session.Session, error) {
	if id != "" {
		return a.store.Load(id)
	}
	sess, err := a.store.Latest()
	if errors.Is(err, session.ErrNotFound) {
		return nil, nil
	}
	return sess, err
}

// Close releases the database and log file.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil && a.logger != nil {
			a.logger.Warn("close failed", "error", err)
		}
	}
	a.closers = nil
}
