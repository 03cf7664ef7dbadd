package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/specialistvlad/stageloader/internal/ctxlog"
	"github.com/specialistvlad/stageloader/internal/events"
	"github.com/specialistvlad/stageloader/internal/host"
	"github.com/specialistvlad/stageloader/internal/host/hostsim"
	"github.com/specialistvlad/stageloader/internal/plugin"
	"github.com/specialistvlad/stageloader/internal/relay"
	"github.com/specialistvlad/stageloader/internal/version"
)

var (
	// ErrQueryRejected is returned when the plugin refuses the host.
	ErrQueryRejected = errors.New("plugin rejected the host during query")
	// ErrLoadFailed is returned when the load sequence fails.
	ErrLoadFailed = errors.New("plugin load failed")
)

// Run drives the plugin through one host session: query, load, the
// configured events and commands.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if a.config.DiagPort > 0 {
		a.startDiagnosticsServer(a.config.DiagPort)
		defer func() { _ = a.closeDiagnosticsServer(ctx) }()
	}

	if rc := a.model.Relay; rc != nil {
		r, err := relay.Connect(ctx, relay.Config{
			URL:                rc.URL,
			Namespace:          rc.Namespace,
			InsecureSkipVerify: rc.InsecureSkipVerify,
			ConnectTimeout:     rc.ConnectTimeout,
		}, a.model.Plugin.Name)
		if err != nil {
			a.logger.Warn("Event relay unavailable, continuing without it.", "error", err)
		} else {
			defer r.Close()
			a.plugin.Dispatcher().AddSink(r)
		}
	}

	sim := hostsim.New(a.config.capabilities(a.model.Requires))

	var info host.PluginInfo
	if !a.plugin.Query(ctx, sim, &info) {
		return ErrQueryRejected
	}
	a.logger.Debug("Plugin info reported.", "name", info.Name, "version", version.Format(info.Version), "info_version", info.InfoVersion)

	if !a.plugin.Load(ctx, sim) {
		return ErrLoadFailed
	}

	sender := firstNonEmpty(a.model.Events.ListenSender, plugin.DefaultListenSender)
	for _, spec := range a.config.Events {
		msg, err := parseEvent(spec, sender)
		if err != nil {
			return err
		}
		if sim.Broadcast(msg) == 0 {
			a.logger.Warn("No listener received the event.", "event", spec)
		}
	}

	for _, line := range a.config.Exec {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		result, ok, err := sim.Execute(ctx, fields[0], host.Subject(a.config.Subject), fields[1:]...)
		if err != nil {
			return fmt.Errorf("failed to execute '%s': %w", line, err)
		}
		a.logger.Info("Command executed.", "command", fields[0], "ok", ok, "result", result)
	}

	a.logger.Info("Session finished.", "state", a.plugin.State().String(), "modules", len(a.plugin.Registry().Snapshot()))

	if a.config.Serve {
		a.logger.Info("Serving diagnostics until interrupted.")
		<-ctx.Done()
	}
	a.logger.Debug("App.Run method finished.")
	return nil
}

// parseEvent turns "kind[=payload]" into a host message. The kind is a
// name such as save-game or a number; payloads are sent NUL-terminated.
func parseEvent(spec, sender string) (host.Message, error) {
	name, payload, hasPayload := strings.Cut(spec, "=")
	name = strings.TrimSpace(name)

	var kind uint32
	if k, ok := events.ParseKind(name); ok {
		kind = uint32(k)
	} else {
		n, err := strconv.ParseUint(name, 0, 32)
		if err != nil {
			return host.Message{}, fmt.Errorf("unknown event '%s': expected a kind name or number", name)
		}
		kind = uint32(n)
	}

	msg := host.Message{Type: kind, Sender: sender}
	if hasPayload {
		msg.Data = append([]byte(payload), 0)
	}
	return msg, nil
}
