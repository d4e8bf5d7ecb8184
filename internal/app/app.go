// Package app wires the console together: configuration, logging, the API
// client, the session store and every component hanging off it.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/wzt1001/lightrag-on-aws/internal/api"
	"github.com/wzt1001/lightrag-on-aws/internal/config"
	"github.com/wzt1001/lightrag-on-aws/internal/console"
	"github.com/wzt1001/lightrag-on-aws/internal/ctxlog"
	"github.com/wzt1001/lightrag-on-aws/internal/graphview"
	"github.com/wzt1001/lightrag-on-aws/internal/ingest"
	"github.com/wzt1001/lightrag-on-aws/internal/query"
	"github.com/wzt1001/lightrag-on-aws/internal/session"
	"github.com/wzt1001/lightrag-on-aws/internal/variables"
)

// App encapsulates the console's dependencies, configuration, and lifecycle.
type App struct {
	outW    io.Writer
	logger  *slog.Logger
	client  *api.Client
	store   *session.Store
	graphs  *graphview.Manager
	console *console.Console
}

// NewApp is the constructor for the console application. It panics on
// fatal startup errors (unreadable config, no server address); the caller
// recovers and turns the panic into a clean exit.
func NewApp(outW io.Writer, inR io.Reader, appConfig *Config, loader config.Loader) *App {
	// Config loading needs a logger before the config's own logging block is
	// known, so a bootstrap logger runs on flag values alone and is replaced
	// once the merged settings are resolved.
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)

	var configPaths []string
	if appConfig.ConfigPath != "" {
		configPaths = append(configPaths, appConfig.ConfigPath)
	}

	model, err := loader.Load(ctx, configPaths...)
	if err != nil {
		// A failure to load config is a fatal startup error.
		panic(fmt.Errorf("failed to load configuration: %w", err))
	}

	level, format := resolveLogging(appConfig, model)
	logger = newLogger(level, format, outW)
	logger.Debug("Logger configured successfully.", "level", level, "format", format)
	logger.Debug("Configuration loaded into unified model.")

	serverURL, timeout := resolveServer(appConfig, model)
	if serverURL == "" {
		panic(fmt.Errorf("no server address configured: pass -server or a config file with a server block"))
	}

	client := api.NewClient(serverURL, timeout)
	store := session.New(client)
	editor := variables.NewEditor(client, store)
	ingester := ingest.NewController(client, store)
	queries := query.NewDispatcher(client, store)
	graphs := graphview.NewManager(client, store)

	if model.Defaults != nil && model.Defaults.QueryMode != "" {
		if err := queries.SelectTab(query.Mode(model.Defaults.QueryMode)); err != nil {
			panic(fmt.Errorf("invalid defaults.query_mode: %w", err))
		}
	}

	cons := console.New(outW, inR, console.Components{
		Store:    store,
		Editor:   editor,
		Ingester: ingester,
		Queries:  queries,
		Graphs:   graphs,
	})
	logger.Debug("Console components wired.", "server", serverURL)

	return &App{
		outW:    outW,
		logger:  logger,
		client:  client,
		store:   store,
		graphs:  graphs,
		console: cons,
	}
}

// resolveLogging merges the flag-level logging settings with the config
// file's logging block. Flags win; unset values fall back to the file,
// then to the built-in defaults.
func resolveLogging(appConfig *Config, model *config.Model) (string, string) {
	level, format := appConfig.LogLevel, appConfig.LogFormat
	if model.Logging != nil {
		if level == "" {
			level = model.Logging.Level
		}
		if format == "" {
			format = model.Logging.Format
		}
	}
	if level == "" {
		level = "warn"
	}
	if format == "" {
		format = "text"
	}
	return level, format
}

// resolveServer merges the flag-level server address with the config
// file's server block. Flags win.
func resolveServer(appConfig *Config, model *config.Model) (string, time.Duration) {
	url := appConfig.ServerURL
	var timeout time.Duration
	if model.Server != nil {
		if url == "" {
			url = model.Server.BaseURL
		}
		timeout = model.Server.Timeout
	}
	return url, timeout
}
