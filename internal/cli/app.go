// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/ollachat/internal/config"
	"github.com/jeranaias/ollachat/internal/conversation"
	"github.com/jeranaias/ollachat/internal/logging"
	"github.com/jeranaias/ollachat/internal/notify"
	"github.com/jeranaias/ollachat/internal/ollama"
	"github.com/jeranaias/ollachat/internal/session"
	"github.com/jeranaias/ollachat/internal/storage"
	"github.com/jeranaias/ollachat/internal/telemetry"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// UsageDir is the directory under the storage dir holding usage sessions.
const UsageDir = "usage"

// =============================================================================
// GLOBAL OPTIONS
// =============================================================================

// Options are the persistent flags shared by every command.
type Options struct {
	ConfigPath string
	URL        string
	Model      string
	Storage    string
	Verbose    bool
	NoColor    bool
	JSON       bool
}

// patch returns the settings overrides given on the command line.
func (o *Options) patch() config.SettingsPatch {
	var p config.SettingsPatch
	if o.URL != "" {
		url := o.URL
		p.OllamaURL = &url
	}
	if o.Model != "" {
		m := o.Model
		p.Model = &m
	}
	return p
}

// mergePatch overlays the fields present in top onto base.
func mergePatch(base, top config.SettingsPatch) config.SettingsPatch {
	if top.OllamaURL != nil {
		base.OllamaURL = top.OllamaURL
	}
	if top.Model != nil {
		base.Model = top.Model
	}
	if top.Temperature != nil {
		base.Temperature = top.Temperature
	}
	if top.MaxTokens != nil {
		base.MaxTokens = top.MaxTokens
	}
	if top.SystemPrompt != nil {
		base.SystemPrompt = top.SystemPrompt
	}
	if top.AutoSave != nil {
		base.AutoSave = top.AutoSave
	}
	if top.Theme != nil {
		base.Theme = top.Theme
	}
	return base
}

// =============================================================================
// APP
// =============================================================================

// App holds the wired core for one command invocation.
type App struct {
	Config     *config.Config
	ConfigPath string
	Logger     *zap.Logger
	Notifier   notify.Notifier

	Settings      *config.Store
	Conversations *conversation.Store
	Client        *ollama.Client
	Backend       storage.Backend
	Usage         *telemetry.UsageTracker
	Session       *session.Manager

	closeLog          func() error
	shutdownTelemetry telemetry.ShutdownFunc
	watcher           *config.Watcher
}

// NewApp loads the config and wires every component. Saved conversations
// and settings are restored; environment and flag overrides are applied on
// top of the restored settings. stderr receives notices.
func NewApp(ctx context.Context, opts *Options, stderr io.Writer) (*App, error) {
	path := opts.ConfigPath
	if path == "" {
		p, err := config.Path()
		if err != nil {
			return nil, &CommandError{Command: "config", Action: "locate", Reason: "no home directory", Code: ExitConfig, Err: err}
		}
		path = p
	}

	cfg, err := config.LoadFrom(path)
	if err != nil {
		return nil, &CommandError{Command: "config", Action: "load", Reason: path, Code: ExitConfig, Err: err}
	}
	if opts.Storage != "" {
		cfg.Storage.Backend = strings.ToLower(opts.Storage)
	}
	if opts.Verbose {
		cfg.Logging.Level = "debug"
	}

	app := &App{Config: cfg, ConfigPath: path}

	logger, closeLog, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, &CommandError{Command: "logging", Action: "open", Reason: cfg.Logging.File, Code: ExitConfig, Err: err}
	}
	app.Logger = logger
	app.closeLog = closeLog

	app.shutdownTelemetry, err = telemetry.Setup(ctx, cfg.Telemetry, Version)
	if err != nil {
		_ = closeLog()
		return nil, NewCommandError("telemetry", "setup", cfg.Telemetry.Dir, err)
	}

	app.Notifier = notify.Multi{notify.NewTerminal(stderr), notify.NewLogger(logger)}
	app.Settings = config.NewStore(cfg.Settings)
	app.Conversations = conversation.NewStore()
	app.Client = ollama.NewClientWithConfig(&ollama.ClientConfig{
		BaseURL:  cfg.Settings.OllamaURL,
		Notifier: app.Notifier,
		Logger:   logger,
	})

	app.Backend, err = storage.Open(cfg.Storage.Backend, cfg.Storage.Dir)
	if err != nil {
		app.Close(ctx)
		return nil, &CommandError{Command: "storage", Action: "open", Reason: cfg.Storage.Dir, Code: ExitConfig, Err: err}
	}

	app.Usage, err = telemetry.NewUsageTracker(filepath.Join(cfg.Storage.Dir, UsageDir))
	if err != nil {
		logger.Warn("usage tracking disabled", zap.Error(err))
		app.Usage, _ = telemetry.NewUsageTracker("")
	}

	app.Session = session.NewManager(session.Deps{
		Conversations: app.Conversations,
		Settings:      app.Settings,
		Client:        app.Client,
		Backend:       app.Backend,
		Usage:         app.Usage,
		Notifier:      app.Notifier,
		Logger:        logger,
	}, session.Config{
		AutoSaveInterval: time.Duration(cfg.Storage.AutosaveIntervalSecs) * time.Second,
	})

	if err := app.Session.Load(ctx); err != nil {
		app.Close(ctx)
		return nil, NewCommandError("storage", "load", app.Backend.Location(), err)
	}

	// Saved settings win over the config file; explicit overrides win over both.
	if p := mergePatch(config.EnvPatch(), opts.patch()); !p.IsEmpty() {
		if _, err := app.Settings.Update(p); err != nil {
			app.Close(ctx)
			return nil, &CommandError{Command: "settings", Action: "override", Reason: "invalid override", Code: ExitConfig, Err: err}
		}
	}

	logger.Debug("app ready",
		zap.String("config", path),
		zap.String("storage", app.Backend.Location()),
		zap.String("endpoint", app.Client.Endpoint()))
	return app, nil
}

// Watch starts reloading settings when the config file changes. Used by
// long-running commands.
func (a *App) Watch() {
	w, err := config.NewWatcher(a.ConfigPath, a.Settings, a.Notifier, a.Logger)
	if err != nil {
		a.Logger.Warn("config watcher unavailable", zap.Error(err))
		return
	}
	if err := w.Watch(); err != nil {
		a.Logger.Warn("config watcher unavailable", zap.Error(err))
		_ = w.Close()
		return
	}
	a.watcher = w
}

// Model returns the selected model, falling back to the first installed one
// and remembering it.
func (a *App) Model(ctx context.Context) (string, error) {
	if m := a.Settings.Get().Model; m != "" {
		return m, nil
	}
	models, err := a.Client.ListModels(ctx)
	if err != nil {
		return "", err
	}
	if len(models) == 0 {
		return "", &CommandError{Command: "models", Action: "select", Reason: "no models installed (try: ollama pull llama3.2)", Code: ExitNotFound, Err: session.ErrNoModel}
	}
	name := models[0].Name
	if _, err := a.Settings.Update(config.SettingsPatch{Model: &name}); err != nil {
		return "", err
	}
	return name, nil
}

// Close stops background work, saves unsaved changes and flushes logs.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.watcher != nil {
		errs = append(errs, a.watcher.Close())
	}
	if a.Session != nil {
		errs = append(errs, a.Session.Close(ctx))
	}
	if a.Backend != nil {
		errs = append(errs, a.Backend.Close())
	}
	if a.shutdownTelemetry != nil {
		errs = append(errs, a.shutdownTelemetry(ctx))
	}
	if a.Logger != nil {
		_ = a.Logger.Sync()
	}
	if a.closeLog != nil {
		errs = append(errs, a.closeLog())
	}
	return errors.Join(errs...)
}
