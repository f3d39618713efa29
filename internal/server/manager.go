// Package server wires the keyspace, command registry, persistence and
// network layers into a running instance (C4 Database manager, C11 Server
// loop): one fixed-size array of keyspaces owned by an explicit Manager
// (replacing the teacher's package-level DBS slice and global DB pointer),
// one executor goroutine per database enforcing the single-writer-per-
// database discipline, and an accept loop grounded on the teacher's
// main/handleOneConnection shape.
package server

import (
	"github.com/echojfree/mini-redis/internal/keyspace"
	"github.com/echojfree/mini-redis/internal/resp"
)

// job is one unit of work an executor goroutine runs against its database.
type job struct {
	fn    func() resp.Value
	reply chan resp.Value
}

// Manager owns every database's keyspace and the single executor goroutine
// that runs all commands against it, satisfying command.Databases.
type Manager struct {
	dbs     []*keyspace.Keyspace
	queues  []chan job
}

// NewManager builds n databases, each bound to its own executor goroutine.
func NewManager(n int) *Manager {
	m := &Manager{
		dbs:    make([]*keyspace.Keyspace, n),
		queues: make([]chan job, n),
	}
	for i := 0; i < n; i++ {
		m.dbs[i] = keyspace.New(i)
		q := make(chan job, 256)
		m.queues[i] = q
		go runExecutor(q)
	}
	return m
}

func runExecutor(q chan job) {
	for j := range q {
		j.reply <- j.fn()
	}
}

// Submit runs fn on database i's executor goroutine and blocks for its
// result, serializing fn against every other command targeting i.
func (m *Manager) Submit(i int, fn func() resp.Value) resp.Value {
	reply := make(chan resp.Value, 1)
	m.queues[i] <- job{fn: fn, reply: reply}
	return <-reply
}

// DB satisfies command.Databases.
func (m *Manager) DB(i int) *keyspace.Keyspace { return m.dbs[i] }

// NumDBs satisfies command.Databases.
func (m *Manager) NumDBs() int { return len(m.dbs) }

// FlushAll satisfies command.Databases.
func (m *Manager) FlushAll() {
	for _, db := range m.dbs {
		db.Flush()
	}
}

// All returns every database in order, used by persistence save/rewrite.
func (m *Manager) All() []*keyspace.Keyspace { return m.dbs }

// Close stops every executor goroutine. No in-flight Submit call may be
// outstanding when Close runs.
func (m *Manager) Close() {
	for _, q := range m.queues {
		close(q)
	}
}
