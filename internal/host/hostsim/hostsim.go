// Package hostsim is an in-process stand-in for the host application. It
// assigns plugin handles and opcodes, keeps the command table, delivers
// messages to registered listeners and executes commands with string
// arguments. The CLI drives the loader through it, and so do the tests.
package hostsim

import (
	"context"
	"fmt"

	"github.com/specialistvlad/stageloader/internal/host"
)

// Registered is one entry in the simulated command table.
type Registered struct {
	Opcode     uint32
	Descriptor *host.CommandDescriptor
}

type listener struct {
	sender string
	handle host.PluginHandle
	fn     host.Listener
}

// Simulator implements host.Interface and host.MessagingInterface.
type Simulator struct {
	caps       host.Capabilities
	handle     host.PluginHandle
	opcodeBase uint32
	nextOpcode uint32
	commands   []Registered
	byName     map[string]int
	listeners  []listener
	messaging  bool
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithoutMessaging makes the capability query return nil for the messaging
// interface.
func WithoutMessaging() Option {
	return func(s *Simulator) { s.messaging = false }
}

// WithPluginHandle sets the handle the host assigns to the plugin.
func WithPluginHandle(h host.PluginHandle) Option {
	return func(s *Simulator) { s.handle = h }
}

// New creates a simulator that reports the given capabilities. Any Query
// function in caps is replaced by the simulator's own.
func New(caps host.Capabilities, opts ...Option) *Simulator {
	s := &Simulator{
		caps:      caps,
		handle:    1,
		byName:    make(map[string]int),
		messaging: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.caps.Query = s.query
	return s
}

func (s *Simulator) query(id host.InterfaceID) any {
	if id == host.InterfaceMessaging && s.messaging {
		return s
	}
	return nil
}

// Capabilities implements host.Interface.
func (s *Simulator) Capabilities() host.Capabilities { return s.caps }

// PluginHandle implements host.Interface.
func (s *Simulator) PluginHandle() host.PluginHandle { return s.handle }

// SetOpcodeBase implements host.Interface. Subsequent registrations are
// numbered from base.
func (s *Simulator) SetOpcodeBase(base uint32) {
	s.opcodeBase = base
	s.nextOpcode = base
}

// OpcodeBase returns the last base set by the plugin.
func (s *Simulator) OpcodeBase() uint32 { return s.opcodeBase }

// RegisterCommand implements host.Interface.
func (s *Simulator) RegisterCommand(desc *host.CommandDescriptor) bool {
	if desc == nil || desc.Name == "" || desc.Execute == nil {
		return false
	}
	if _, exists := s.byName[desc.Name]; exists {
		return false
	}
	s.byName[desc.Name] = len(s.commands)
	s.commands = append(s.commands, Registered{Opcode: s.nextOpcode, Descriptor: desc})
	s.nextOpcode++
	return true
}

// Commands returns the command table in registration order.
func (s *Simulator) Commands() []Registered {
	out := make([]Registered, len(s.commands))
	copy(out, s.commands)
	return out
}

// RegisterListener implements host.MessagingInterface.
func (s *Simulator) RegisterListener(handle host.PluginHandle, sender string, fn host.Listener) bool {
	if fn == nil {
		return false
	}
	s.listeners = append(s.listeners, listener{sender: sender, handle: handle, fn: fn})
	return true
}

// Listeners reports how many listeners are registered for sender.
func (s *Simulator) Listeners(sender string) int {
	n := 0
	for _, l := range s.listeners {
		if l.sender == sender {
			n++
		}
	}
	return n
}

// Broadcast delivers msg to every listener registered for msg.Sender and
// returns the number of deliveries.
func (s *Simulator) Broadcast(msg host.Message) int {
	n := 0
	for _, l := range s.listeners {
		if l.sender != msg.Sender {
			continue
		}
		l.fn(msg)
		n++
	}
	return n
}

// Execute runs a registered command the way a script would.
func (s *Simulator) Execute(ctx context.Context, name string, subject host.Subject, args ...string) (float64, bool, error) {
	idx, ok := s.byName[name]
	if !ok {
		return 0, false, fmt.Errorf("command %q is not registered", name)
	}
	desc := s.commands[idx].Descriptor
	if len(args) < desc.MinArgs || len(args) > desc.MaxArgs {
		return 0, false, fmt.Errorf("command %q takes %d to %d arguments, got %d", name, desc.MinArgs, desc.MaxArgs, len(args))
	}
	result := -1.0
	ok = desc.Execute(ctx, host.CommandCall{
		Subject: subject,
		Args:    StringArgs(args),
		Result:  &result,
	})
	return result, ok, nil
}

// StringArgs is an ArgExtractor over already-split string arguments.
type StringArgs []string

// ExtractStrings implements host.ArgExtractor. Destinations beyond the
// supplied arguments are left untouched.
func (a StringArgs) ExtractStrings(dst ...*string) bool {
	if len(a) > len(dst) {
		return false
	}
	for i, v := range a {
		if dst[i] != nil {
			*dst[i] = v
		}
	}
	return true
}
