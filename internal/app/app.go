package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/specialistvlad/stageloader/internal/command"
	"github.com/specialistvlad/stageloader/internal/config"
	"github.com/specialistvlad/stageloader/internal/ctxlog"
	"github.com/specialistvlad/stageloader/internal/hcl"
	"github.com/specialistvlad/stageloader/internal/loader"
	"github.com/specialistvlad/stageloader/internal/native"
	"github.com/specialistvlad/stageloader/internal/plugin"
	"github.com/specialistvlad/stageloader/internal/toml"
	"github.com/specialistvlad/stageloader/internal/version"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	config     *Config
	model      *config.Model
	logger     *slog.Logger
	logFile    io.Closer
	memory     *native.Memory
	plugin     *plugin.Plugin
	httpServer *http.Server
}

// NewApp is the constructor for the main application. It loads the
// configuration file with a format-specific loader, builds the logger the
// configuration asks for and registers the built-in libraries.
func NewApp(outW io.Writer, appConfig *Config, modules ...native.Module) (*App, error) {
	bootstrap := newLogger(appConfig.LogLevel, appConfig.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), bootstrap)

	cfgLoader, err := loaderFor(appConfig.ConfigPath)
	if err != nil {
		return nil, err
	}
	model, err := cfgLoader.Load(ctx, appConfig.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	a := &App{config: appConfig, model: model}

	logW := outW
	if model.Log.File != "" {
		f, err := openLogFile(model.Log.File)
		if err != nil {
			return nil, err
		}
		a.logFile = f
		logW = io.MultiWriter(outW, f)
	}
	a.logger = newLogger(
		firstNonEmpty(appConfig.LogLevel, model.Log.Level, "info"),
		firstNonEmpty(appConfig.LogFormat, model.Log.Format, "text"),
		logW,
	)
	a.logger.Debug("Logger configured successfully.", "file", model.Log.File)

	a.memory = native.NewMemory()
	if len(modules) == 0 {
		modules = coreModules(a.logger)
	}
	for _, mod := range modules {
		mod.Register(a.memory)
	}
	a.logger.Debug("Built-in libraries registered.", "count", len(modules))

	a.plugin = plugin.New(a.pluginOptions(), native.Fallback(a.memory, native.System{}))
	return a, nil
}

// loaderFor picks the configuration loader by file extension.
func loaderFor(path string) (config.Loader, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".hcl":
		return hcl.NewLoader(), nil
	case ".toml":
		return toml.NewLoader(), nil
	default:
		return nil, fmt.Errorf("unsupported configuration file '%s': expected .hcl or .toml", path)
	}
}

// pluginOptions translates the configuration model into plugin options.
func (a *App) pluginOptions() plugin.Options {
	m := a.model
	root := firstNonEmpty(a.config.Root, m.Stages.Root)

	commands := make([]command.Spec, 0, len(m.Commands.List))
	for _, c := range m.Commands.List {
		commands = append(commands, command.Spec{Name: c.Name, Description: c.Description, Handler: c.Handler})
	}

	return plugin.Options{
		Name:             m.Plugin.Name,
		Version:          m.Plugin.Version,
		Gate:             version.NewGate(m.Requires.MinProtocol, m.Requires.Runtime, m.Requires.Editor),
		Plan:             loader.Plan{Dependency: m.Stages.Dependency, Editor: m.Stages.Editor, Runtime: m.Stages.Runtime},
		Root:             root,
		InitializeSymbol: m.Stages.InitializeSymbol,
		OpcodeBase:       m.Commands.OpcodeBase,
		Commands:         commands,
		ListenSender:     m.Events.ListenSender,
		ForwardSymbol:    m.Events.ForwardSymbol,
	}
}

// Plugin returns the application's plugin. This is primarily for testing.
func (a *App) Plugin() *plugin.Plugin {
	return a.plugin
}

// Memory returns the in-process library backend. This is primarily for testing.
func (a *App) Memory() *native.Memory {
	return a.memory
}

// Close releases the log file.
func (a *App) Close() error {
	if a.logFile == nil {
		return nil
	}
	f := a.logFile
	a.logFile = nil
	return f.Close()
}
