package hcl

import "github.com/hashicorp/hcl/v2"

// header is the first decoding pass. Only the plugin block is read; the
// rest of the file is kept for the second pass.
type header struct {
	Plugin pluginBlock `hcl:"plugin,block"`
	Remain hcl.Body    `hcl:",remain"`
}

// pluginBlock represents the `plugin "<name>" { ... }` block.
type pluginBlock struct {
	Name    string `hcl:"name,label"`
	Version string `hcl:"version,optional"`
}

// fileBody is the second decoding pass.
type fileBody struct {
	Requires *requiresBlock `hcl:"requires,block"`
	Stages   *stagesBlock   `hcl:"stages,block"`
	Commands *commandsBlock `hcl:"commands,block"`
	Events   *eventsBlock   `hcl:"events,block"`
	Relay    *relayBlock    `hcl:"relay,block"`
	Log      *logBlock      `hcl:"log,block"`
}

type requiresBlock struct {
	Protocol string `hcl:"protocol,optional"`
	Runtime  string `hcl:"runtime,optional"`
	Editor   string `hcl:"editor,optional"`
}

type stagesBlock struct {
	Root       string `hcl:"root,optional"`
	Dependency string `hcl:"dependency"`
	Editor     string `hcl:"editor,optional"`
	Runtime    string `hcl:"runtime,optional"`
	Initialize string `hcl:"initialize,optional"`
}

type commandsBlock struct {
	OpcodeBase string          `hcl:"opcode_base,optional"`
	Commands   []*commandBlock `hcl:"command,block"`
}

type commandBlock struct {
	Name        string `hcl:"name,label"`
	Description string `hcl:"description,optional"`
	Handler     string `hcl:"handler"`
}

type eventsBlock struct {
	Listen  string `hcl:"listen,optional"`
	Forward string `hcl:"forward,optional"`
}

type relayBlock struct {
	URL                string `hcl:"url"`
	Namespace          string `hcl:"namespace,optional"`
	InsecureSkipVerify bool   `hcl:"insecure_skip_verify,optional"`
	ConnectTimeout     string `hcl:"connect_timeout,optional"`
}

type logBlock struct {
	Level  string `hcl:"level,optional"`
	Format string `hcl:"format,optional"`
	File   string `hcl:"file,optional"`
}
