// Package events classifies host notifications and reports them.
//
// The Dispatcher is stateless: every Record produces exactly one diagnostic
// line and is then offered to the registered sinks. Sinks are the seam for
// forwarding events into a submodule or elsewhere; none of them can change
// how the record was classified.
package events

import (
	"bytes"
	"context"
	"fmt"

	"github.com/specialistvlad/stageloader/internal/ctxlog"
)

// Record is one host notification. It is consumed synchronously and not
// retained.
type Record struct {
	Kind   Kind
	Sender string
	Data   []byte
}

// Payload returns the data as a string, cut at the first NUL byte.
func (r Record) Payload() string {
	data := r.Data
	if i := bytes.IndexByte(data, 0); i >= 0 {
		data = data[:i]
	}
	return string(data)
}

// Sink receives every dispatched record.
type Sink interface {
	HandleEvent(ctx context.Context, rec Record)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, rec Record)

// HandleEvent implements Sink.
func (f SinkFunc) HandleEvent(ctx context.Context, rec Record) { f(ctx, rec) }

// Dispatcher reports records and fans them out to sinks.
type Dispatcher struct {
	sinks []Sink
}

// NewDispatcher creates a Dispatcher with optional sinks.
func NewDispatcher(sinks ...Sink) *Dispatcher {
	d := &Dispatcher{}
	for _, s := range sinks {
		d.AddSink(s)
	}
	return d
}

// AddSink appends a sink. Nil sinks are ignored.
func (d *Dispatcher) AddSink(s Sink) {
	if s != nil {
		d.sinks = append(d.sinks, s)
	}
}

// Dispatch logs rec and hands it to every sink. It reports whether the kind
// was recognized; an unrecognized kind is informational, never an error.
func (d *Dispatcher) Dispatch(ctx context.Context, rec Record) bool {
	logger := ctxlog.FromContext(ctx)

	info, ok := known[rec.Kind]
	switch {
	case !ok:
		logger.Info("Received unrecognized host message.",
			"type", uint32(rec.Kind),
			"sender", rec.Sender,
			"data", dataPointer(rec.Data),
			"len", fmt.Sprintf("%04X", len(rec.Data)),
		)
	case info.hasPath:
		logger.Info(info.summary, "kind", info.name, "file_path", rec.Payload())
	default:
		logger.Info(info.summary, "kind", info.name)
	}

	for _, s := range d.sinks {
		d.deliver(ctx, s, rec)
	}
	return ok
}

func (d *Dispatcher) deliver(ctx context.Context, s Sink, rec Record) {
	defer func() {
		if r := recover(); r != nil {
			ctxlog.FromContext(ctx).Error("Event sink panicked.", "kind", rec.Kind.String(), "panic", fmt.Sprint(r))
		}
	}()
	s.HandleEvent(ctx, rec)
}

func dataPointer(data []byte) string {
	if len(data) == 0 {
		return "<nil>"
	}
	return fmt.Sprintf("<%p>", &data[0])
}
