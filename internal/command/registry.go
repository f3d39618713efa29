package command

import (
	"strings"

	"github.com/echojfree/mini-redis/internal/resp"
)

// Handler is a pure command implementation: given the shared context and
// the command's arguments (command name excluded), it returns the reply.
// It must not write to any connection itself.
type Handler func(ctx *Context, args [][]byte) resp.Value

// MinMaxUnbounded marks a command's MaxArgs as unlimited.
const MinMaxUnbounded = -1

// Entry describes one registered command.
type Entry struct {
	Name    string
	MinArgs int
	MaxArgs int // MinMaxUnbounded for no limit
	Handler Handler

	// TxControl commands (MULTI/EXEC/DISCARD/WATCH/UNWATCH) execute
	// immediately even while queuing, since they manage the queue itself.
	TxControl bool

	// PubSubAllowed commands remain callable while a connection is in
	// pub/sub mode (the subscribe family, plus PING/QUIT).
	PubSubAllowed bool
}

// Registry is a case-insensitive name→Entry table.
type Registry struct {
	entries map[string]*Entry
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*Entry)}
}

func (r *Registry) Register(e Entry) {
	e.Name = strings.ToUpper(e.Name)
	r.entries[e.Name] = &e
}

func (r *Registry) Lookup(name string) (*Entry, bool) {
	e, ok := r.entries[strings.ToUpper(name)]
	return e, ok
}

// Names returns every registered command name, used by COMMAND introspection.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.entries))
	for name := range r.entries {
		out = append(out, name)
	}
	return out
}

// checkArity reports whether argc (excluding the command name) satisfies e.
func (e *Entry) checkArity(argc int) bool {
	if argc < e.MinArgs {
		return false
	}
	if e.MaxArgs != MinMaxUnbounded && argc > e.MaxArgs {
		return false
	}
	return true
}
