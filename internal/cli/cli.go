package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/specialistvlad/stageloader/internal/app"
	"github.com/specialistvlad/stageloader/internal/host"
	"github.com/specialistvlad/stageloader/internal/version"
	"github.com/spf13/cobra"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// envDefaults are flag defaults read from the environment. Flags given on
// the command line win.
type envDefaults struct {
	Config          string `env:"STAGELOADER_CONFIG"`
	Root            string `env:"STAGELOADER_ROOT"`
	Mode            string `env:"STAGELOADER_MODE" envDefault:"runtime"`
	ProtocolVersion string `env:"STAGELOADER_PROTOCOL_VERSION"`
	RuntimeVersion  string `env:"STAGELOADER_RUNTIME_VERSION"`
	EditorVersion   string `env:"STAGELOADER_EDITOR_VERSION"`
	LogLevel        string `env:"STAGELOADER_LOG_LEVEL"`
	LogFormat       string `env:"STAGELOADER_LOG_FORMAT"`
	DiagPort        int    `env:"STAGELOADER_DIAG_PORT"`
}

type flags struct {
	config          string
	root            string
	mode            string
	protocolVersion string
	runtimeVersion  string
	editorVersion   string
	events          []string
	exec            []string
	subject         string
	logLevel        string
	logFormat       string
	diagPort        int
	serve           bool
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")

	var defaults envDefaults
	if err := env.Parse(&defaults); err != nil {
		return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("parse env: %v", err)}
	}

	var (
		f      flags
		result *app.Config
	)
	cmd := &cobra.Command{
		Use:   "stageloader [flags] [CONFIG_PATH]",
		Short: "Load a plugin's dependency and submodule libraries against a simulated host.",
		Long: `stageloader runs the two-stage plugin load sequence the way a host would:
query (version checks), load (dependency library, then the mode's submodule),
message listener and Initialize, then command registration. Events and
commands given with --event and --exec are delivered after a successful load.

CONFIG_PATH is a .hcl or .toml loader configuration.`,
		Example: `  stageloader examples/loader.hcl
  stageloader --mode editor --event post-load --exec "coefBasicTest a b c" examples/loader.hcl
  STAGELOADER_LOG_FORMAT=pretty stageloader -c examples/loader.toml`,
		Args:          cobra.MaximumNArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := f.config
			if path == "" && len(args) > 0 {
				path = args[0]
			}
			if path == "" {
				slog.Debug("No config path provided, printing usage and exiting.")
				return cmd.Usage()
			}
			cfg, err := buildConfig(path, &f)
			if err != nil {
				return err
			}
			result = cfg
			return nil
		},
	}
	cmd.SetArgs(args)
	cmd.SetOut(output)
	cmd.SetErr(output)

	fs := cmd.Flags()
	fs.StringVarP(&f.config, "config", "c", defaults.Config, "Path to the loader configuration (.hcl or .toml).")
	fs.StringVar(&f.root, "root", defaults.Root, "Directory relative library paths are resolved against.")
	fs.StringVar(&f.mode, "mode", defaults.Mode, "Host mode: 'runtime' or 'editor'.")
	fs.StringVar(&f.protocolVersion, "protocol-version", defaults.ProtocolVersion, "Host protocol version reported by the simulated host. Empty matches the configuration.")
	fs.StringVar(&f.runtimeVersion, "runtime-version", defaults.RuntimeVersion, "Runtime build version reported by the simulated host. Empty matches the configuration.")
	fs.StringVar(&f.editorVersion, "editor-version", defaults.EditorVersion, "Editor build version reported by the simulated host. Empty matches the configuration.")
	fs.StringArrayVar(&f.events, "event", nil, "Host event to deliver after loading, as kind[=payload]. Repeatable.")
	fs.StringArrayVar(&f.exec, "exec", nil, "Command to execute after the events, as \"name arg...\". Repeatable.")
	fs.StringVar(&f.subject, "subject", "0", "Subject handle passed to executed commands.")
	fs.StringVar(&f.logLevel, "log-level", defaults.LogLevel, "Logging level: 'debug', 'info', 'warn' or 'error'. Overrides the configuration.")
	fs.StringVar(&f.logFormat, "log-format", defaults.LogFormat, "Log format: 'text', 'json' or 'pretty'. Overrides the configuration.")
	fs.IntVar(&f.diagPort, "diag-port", defaults.DiagPort, "Port for the HTTP diagnostics server. 0 is disabled.")
	fs.BoolVar(&f.serve, "serve", false, "Keep serving diagnostics after the session until interrupted.")

	if err := cmd.Execute(); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			return nil, false, exitErr
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	if result == nil {
		return nil, true, nil
	}

	slog.Debug("CLI parser finished successfully.", "config", result.ConfigPath)
	return result, false, nil
}

func buildConfig(path string, f *flags) (*app.Config, error) {
	mode, err := host.ParseMode(strings.ToLower(f.mode))
	if err != nil {
		return nil, &ExitError{Code: 2, Message: fmt.Sprintf("invalid mode: %v", err)}
	}

	versions := make([]*uint32, 3)
	for i, v := range []struct{ name, raw string }{
		{"protocol-version", f.protocolVersion},
		{"runtime-version", f.runtimeVersion},
		{"editor-version", f.editorVersion},
	} {
		if v.raw == "" {
			continue
		}
		parsed, err := version.Parse(v.raw)
		if err != nil {
			return nil, &ExitError{Code: 2, Message: fmt.Sprintf("invalid %s: %v", v.name, err)}
		}
		versions[i] = &parsed
	}

	subject, err := strconv.ParseUint(f.subject, 0, 64)
	if err != nil {
		return nil, &ExitError{Code: 2, Message: fmt.Sprintf("invalid subject: %v", err)}
	}

	cfg, err := app.NewConfig(app.Config{
		ConfigPath:      path,
		Root:            f.root,
		Mode:            mode,
		ProtocolVersion: versions[0],
		RuntimeVersion:  versions[1],
		EditorVersion:   versions[2],
		Events:          f.events,
		Exec:            f.exec,
		Subject:         subject,
		LogLevel:        strings.ToLower(f.logLevel),
		LogFormat:       strings.ToLower(f.logFormat),
		DiagPort:        f.diagPort,
		Serve:           f.serve,
	})
	if err != nil {
		return nil, &ExitError{Code: 2, Message: err.Error()}
	}
	return cfg, nil
}
