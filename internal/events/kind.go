package events

import "fmt"

// Kind is the host's message type. The named kinds form a closed set; any
// other value, including kinds a newer host adds, is unrecognized.
type Kind uint32

const (
	KindExitGame Kind = iota
	KindExitToMainMenu
	KindPostLoad
	KindLoadGame
	KindSaveGame
	KindPrecompile
	KindPreLoadGame
	KindExitGameConsole
	KindPostLoadGame
	// KindPostPostLoad is sent after every plugin has handled post-load.
	// The host headers ship it as a bare number.
	KindPostPostLoad
)

type kindInfo struct {
	name    string
	summary string
	// hasPath marks kinds whose payload is a save file path.
	hasPath bool
}

var known = map[Kind]kindInfo{
	KindExitGame:        {name: "exit-game", summary: "Received 'exit game' message."},
	KindExitToMainMenu:  {name: "exit-to-menu", summary: "Received 'exit game to main menu' message."},
	KindPostLoad:        {name: "post-load", summary: "Received 'post-load' message."},
	KindLoadGame:        {name: "load-game", summary: "Received 'save/load game' message.", hasPath: true},
	KindSaveGame:        {name: "save-game", summary: "Received 'save/load game' message.", hasPath: true},
	KindPrecompile:      {name: "pre-compile", summary: "Received 'pre-compile' message."},
	KindPreLoadGame:     {name: "pre-load-game", summary: "Received 'pre-load game' message.", hasPath: true},
	KindExitGameConsole: {name: "exit-game-from-console", summary: "Received 'quit game from console' message."},
	KindPostLoadGame:    {name: "post-load-game", summary: "Received 'post-load game' message."},
	KindPostPostLoad:    {name: "post-post-load", summary: "Received 'post-post-load' message."},
}

// Known reports whether k belongs to the closed set.
func (k Kind) Known() bool {
	_, ok := known[k]
	return ok
}

func (k Kind) String() string {
	if info, ok := known[k]; ok {
		return info.name
	}
	return fmt.Sprintf("Kind(%d)", uint32(k))
}

// ParseKind maps a kind name, as printed by String, back to a Kind.
func ParseKind(name string) (Kind, bool) {
	for k, info := range known {
		if info.name == name {
			return k, true
		}
	}
	return 0, false
}

// Kinds returns the closed set in numeric order.
func Kinds() []Kind {
	out := make([]Kind, 0, len(known))
	for k := KindExitGame; k <= KindPostPostLoad; k++ {
		out = append(out, k)
	}
	return out
}
