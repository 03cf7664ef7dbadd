// Package relay mirrors dispatched host events to a socket.io endpoint, for
// watching a running host from outside the process.
package relay

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"time"

	"github.com/specialistvlad/stageloader/internal/ctxlog"
	"github.com/specialistvlad/stageloader/internal/events"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// EventName is the socket.io event every record is emitted under.
const EventName = "host_event"

// Config describes the relay endpoint.
type Config struct {
	URL                string
	Namespace          string
	InsecureSkipVerify bool
	ConnectTimeout     time.Duration
}

// Relay is an events.Sink backed by a socket.io client.
type Relay struct {
	io     *socket.Socket
	plugin string
}

// Connect dials the endpoint and waits for the connection to be accepted.
// It is called once during startup, never from a host callback.
func Connect(ctx context.Context, cfg Config, plugin string) (*Relay, error) {
	logger := ctxlog.FromContext(ctx).With("component", "relay", "url", cfg.URL)
	logger.Info("Connecting event relay...")

	parsedURL, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse relay URL: %w", err)
	}
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	opts := socket.DefaultOptions()
	opts.SetPath(parsedURL.Path)
	if cfg.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	connectChan := make(chan error, 1)

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(cfg.Namespace, opts)

	io.Once(types.EventName("connect"), func(...any) {
		connectChan <- nil
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		if len(errs) > 0 {
			if err, ok := errs[0].(error); ok {
				connectChan <- err
				return
			}
		}
		connectChan <- fmt.Errorf("connect_error: %v", errs)
	})

	io.Connect()

	select {
	case err := <-connectChan:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("event relay connection failed: %w", err)
		}
		logger.Info("Event relay connected.", "sid", io.Id())
		return &Relay{io: io, plugin: plugin}, nil
	case <-ctx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("context cancelled while waiting for event relay connection")
	case <-time.After(timeout):
		io.Disconnect()
		return nil, fmt.Errorf("timed out after %s waiting for event relay connection", timeout)
	}
}

// HandleEvent implements events.Sink. Emission is fire-and-forget.
func (r *Relay) HandleEvent(ctx context.Context, rec events.Record) {
	ctxlog.FromContext(ctx).Debug("Relaying host event.", "kind", rec.Kind.String())
	r.io.Emit(EventName, Payload(r.plugin, rec))
}

// Close disconnects from the endpoint.
func (r *Relay) Close() {
	if r == nil || r.io == nil {
		return
	}
	r.io.Disconnect()
}

// Payload builds the message emitted for rec.
func Payload(plugin string, rec events.Record) map[string]any {
	p := map[string]any{
		"plugin":     plugin,
		"type":       uint32(rec.Kind),
		"kind":       rec.Kind.String(),
		"recognized": rec.Kind.Known(),
		"sender":     rec.Sender,
		"len":        len(rec.Data),
	}
	switch rec.Kind {
	case events.KindLoadGame, events.KindSaveGame, events.KindPreLoadGame:
		p["file_path"] = rec.Payload()
	}
	return p
}
