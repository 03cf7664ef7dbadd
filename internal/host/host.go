// Package host describes the application that discovers and drives the
// loader. Everything here is a contract the loader consumes; the host itself
// stays opaque.
package host

import "fmt"

// Mode is one of the two mutually exclusive host operating contexts.
type Mode int

const (
	// ModeRuntime is the game runtime.
	ModeRuntime Mode = iota
	// ModeEditor is the construction set / editor.
	ModeEditor
)

func (m Mode) String() string {
	switch m {
	case ModeRuntime:
		return "runtime"
	case ModeEditor:
		return "editor"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode maps a mode name to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "runtime", "game":
		return ModeRuntime, nil
	case "editor", "cs":
		return ModeEditor, nil
	default:
		return 0, fmt.Errorf("unknown host mode %q", s)
	}
}

// InterfaceID names an optional host facility reachable through the
// capability query.
type InterfaceID int

const (
	InterfaceConsole InterfaceID = iota
	InterfaceMessaging
	InterfaceSerialization
)

// QueryFunc is the host's capability query. It returns nil when the host
// does not provide the requested facility.
type QueryFunc func(id InterfaceID) any

// Capabilities is the host-supplied capability descriptor. The loader reads
// it and never mutates it.
type Capabilities struct {
	ProtocolVersion uint32
	Mode            Mode
	RuntimeVersion  uint32
	EditorVersion   uint32
	Query           QueryFunc
}

// ModeVersion returns the version number that belongs to the active mode.
func (c Capabilities) ModeVersion() uint32 {
	if c.Mode == ModeEditor {
		return c.EditorVersion
	}
	return c.RuntimeVersion
}

// PluginHandle identifies a plugin inside the host.
type PluginHandle uint32

// InvalidPluginHandle is the value of a handle the host has not assigned yet.
const InvalidPluginHandle PluginHandle = 0xFFFFFFFF

// InfoVersion is the layout version of PluginInfo this loader fills in.
const InfoVersion = 2

// PluginInfo is filled in by the loader during Query.
type PluginInfo struct {
	InfoVersion uint32
	Name        string
	Version     uint32
}

// Interface is the master host interface handed to Query and Load.
type Interface interface {
	Capabilities() Capabilities
	PluginHandle() PluginHandle
	SetOpcodeBase(base uint32)
	// RegisterCommand transfers ownership of the descriptor to the host's
	// command table.
	RegisterCommand(desc *CommandDescriptor) bool
}

// Messaging returns the host's messaging facility through the capability
// query, or nil when the host does not expose one.
func Messaging(h Interface) MessagingInterface {
	query := h.Capabilities().Query
	if query == nil {
		return nil
	}
	m, _ := query(InterfaceMessaging).(MessagingInterface)
	return m
}
