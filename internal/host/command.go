package host

import "context"

// ParamType is the host's type tag for a command parameter.
type ParamType int

const (
	ParamString ParamType = iota
	ParamInteger
	ParamFloat
	ParamObjectRef
)

// ParamInfo describes one command parameter.
type ParamInfo struct {
	Name     string
	Type     ParamType
	Optional bool
}

// Subject is the opaque engine object a command runs on. Zero means none.
type Subject uintptr

// ArgExtractor pulls typed arguments out of the host's raw argument
// representation. It fills as many destinations as there are arguments and
// reports whether extraction succeeded.
type ArgExtractor interface {
	ExtractStrings(dst ...*string) bool
}

// CommandCall is the argument tuple the host passes to an execute handler.
type CommandCall struct {
	Subject Subject
	Args    ArgExtractor
	Result  *float64
}

// ExecuteFunc runs a registered command. It reports success to the host.
type ExecuteFunc func(ctx context.Context, call CommandCall) bool

// CommandDescriptor is registered once with the host's command table.
type CommandDescriptor struct {
	Name        string
	Description string
	MinArgs     int
	MaxArgs     int
	Params      []ParamInfo
	Execute     ExecuteFunc
}
