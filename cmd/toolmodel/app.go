// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/toolmodel/toolmodel/internal/buildconfig"
	"github.com/toolmodel/toolmodel/internal/config"
	"github.com/toolmodel/toolmodel/internal/engine"
	"github.com/toolmodel/toolmodel/internal/logging"
	"github.com/toolmodel/toolmodel/internal/scriptmodels"
	"github.com/toolmodel/toolmodel/internal/services"
	"github.com/toolmodel/toolmodel/internal/toolmodel"
)

type (
	// App wires CLI services and shared dependencies. It is the composition root
	// for the CLI layer: Cobra handlers receive an App and open builds through it.
	App struct {
		Config  config.Provider
		Modules []services.Module
		stdout  io.Writer
		stderr  io.Writer

		// flags holds the persistent root flags of one command tree.
		flags globalFlags
	}

	// Dependencies defines the injection points for building an App. Nil fields
	// are replaced with production defaults by NewApp.
	Dependencies struct {
		Config  config.Provider
		Modules []services.Module
		Stdout  io.Writer
		Stderr  io.Writer
	}

	// globalFlags are the persistent flags shared by every subcommand.
	globalFlags struct {
		configPath string
		verbose    bool
		logLevel   string
		buildFile  string
	}

	// session is everything one command invocation needs to serve models.
	session struct {
		cfg    *config.Config
		logger *log.Logger
		engine *engine.Engine
		source string
	}
)

// NewApp creates an App, filling unset dependencies with production defaults.
func NewApp(deps Dependencies) *App {
	app := &App{
		Config:  deps.Config,
		Modules: deps.Modules,
		stdout:  deps.Stdout,
		stderr:  deps.Stderr,
	}
	if app.Config == nil {
		app.Config = config.NewProvider()
	}
	if app.Modules == nil {
		app.Modules = scriptmodels.Modules()
	}
	if app.stdout == nil {
		app.stdout = os.Stdout
	}
	if app.stderr == nil {
		app.stderr = os.Stderr
	}
	return app
}

// loadConfig loads configuration honoring the --config flag.
func (a *App) loadConfig(ctx context.Context) (*config.Config, error) {
	return a.Config.Load(ctx, config.LoadOptions{ConfigFilePath: a.flags.configPath})
}

// newLogger builds the stderr logger. Flags take precedence over config;
// --verbose implies debug.
func (a *App) newLogger(cfg *config.Config) (*log.Logger, error) {
	level := string(cfg.LogLevel)
	if a.flags.logLevel != "" {
		level = a.flags.logLevel
	}
	if a.flags.verbose {
		level = string(config.LogLevelDebug)
	}
	return logging.New(a.stderr, logging.Options{
		Level:  level,
		Format: cfg.LogFormat,
		Prefix: config.AppName,
	})
}

// descriptorPath resolves the build description path: --build-file, then
// build.descriptor from config, relative to the working directory.
func (a *App) descriptorPath(cfg *config.Config) string {
	path := cfg.Build.Descriptor
	if a.flags.buildFile != "" {
		path = a.flags.buildFile
	}
	if path == "" {
		path = buildconfig.DefaultFileName
	}
	return filepath.Clean(path)
}

// newSession loads configuration and builds the logger and engine. Every
// build opened from the engine reads the build description through its own
// buildconfig.FileSource.
func (a *App) newSession(ctx context.Context) (*session, error) {
	cfg, err := a.loadConfig(ctx)
	if err != nil {
		return nil, err
	}
	logger, err := a.newLogger(cfg)
	if err != nil {
		return nil, err
	}

	composer, err := services.NewComposer(a.Modules...)
	if err != nil {
		return nil, fmt.Errorf("compose service modules: %w", err)
	}

	path := a.descriptorPath(cfg)
	eng, err := engine.New(engine.Options{
		Composer: composer,
		Configuration: func(context.Context) (toolmodel.ConfigurationSource, error) {
			return buildconfig.NewFileSource(path, logger), nil
		},
		Logger:       logger,
		Duplicates:   cfg.Registry.DuplicatePolicy,
		WaitForReady: cfg.Requests.WaitForReady,
		ReadyTimeout: cfg.Requests.ReadyTimeout,
	})
	if err != nil {
		return nil, err
	}

	return &session{cfg: cfg, logger: logger, engine: eng, source: path}, nil
}
