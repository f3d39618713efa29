// Package command implements the command registry and dispatch pipeline
// (C6): a case-insensitive name→handler table, arity checking, MULTI
// queueing, pub/sub-mode restriction, and typed-error surfacing. Handlers
// are pure functions of (*Context, args) → resp.Value with no transport
// coupling; the server loop alone writes replies to the wire.
package command

import (
	"time"

	"github.com/echojfree/mini-redis/internal/config"
	"github.com/echojfree/mini-redis/internal/keyspace"
	"github.com/echojfree/mini-redis/internal/logging"
	"github.com/echojfree/mini-redis/internal/pubsub"
	"github.com/echojfree/mini-redis/internal/session"
)

// Databases is the narrow interface a handler needs onto the fixed-size
// database array (C4), kept separate from the concrete server type that
// also owns listeners and persistence workers, to avoid an import cycle
// between command and server.
type Databases interface {
	DB(i int) *keyspace.Keyspace
	NumDBs() int
	FlushAll()
}

// Persister is the narrow interface onto AOF/RDB persistence a handler
// needs: append a just-executed write command, and trigger synchronous or
// background snapshot/rewrite operations.
type Persister interface {
	AppendCommand(dbID int, name string, args [][]byte)
	Save() error
	BGSave()
	BGRewriteAOF()
}

// Stats is the narrow interface INFO/CLIENT LIST need onto the server's
// connection bookkeeping, kept separate from Server itself to avoid the
// same import-cycle concern as Databases/Persister.
type Stats interface {
	ClientCount() int
	TotalConnections() int64
}

// Context is passed to every handler. It is constructed fresh per command
// by the dispatcher from the connection's session.Client and the server's
// shared collaborators — never a package-level global.
type Context struct {
	Client    *session.Client
	DB        *keyspace.Keyspace
	Databases Databases
	Hub       *pubsub.Hub
	Persist   Persister
	Config    *config.Config
	Log       *logging.Logger
	StartedAt time.Time
	Stats     Stats
}
