package command_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/echojfree/mini-redis/internal/command"
	"github.com/echojfree/mini-redis/internal/config"
	"github.com/echojfree/mini-redis/internal/keyspace"
	"github.com/echojfree/mini-redis/internal/pubsub"
	"github.com/echojfree/mini-redis/internal/resp"
	"github.com/echojfree/mini-redis/internal/session"
	"github.com/echojfree/mini-redis/internal/store"
)

// fakeDatabases is a minimal command.Databases backed by in-memory
// keyspaces, letting dispatch tests run without a real server.Manager.
type fakeDatabases struct {
	dbs []*keyspace.Keyspace
}

func newFakeDatabases(n int) *fakeDatabases {
	f := &fakeDatabases{dbs: make([]*keyspace.Keyspace, n)}
	for i := range f.dbs {
		f.dbs[i] = keyspace.New(i)
	}
	return f
}

func (f *fakeDatabases) DB(i int) *keyspace.Keyspace { return f.dbs[i] }
func (f *fakeDatabases) NumDBs() int                 { return len(f.dbs) }
func (f *fakeDatabases) FlushAll() {
	for _, db := range f.dbs {
		db.Flush()
	}
}

func newTestContext(t *testing.T) (*command.Registry, *command.Context) {
	t.Helper()
	reg := command.NewRegistry()
	command.RegisterAll(reg)

	dbs := newFakeDatabases(2)
	ctx := &command.Context{
		Client:    session.NewClient(1, nil),
		DB:        dbs.DB(0),
		Databases: dbs,
		Config:    config.Default(),
		Hub:       pubsub.NewHub(),
	}
	return reg, ctx
}

func arrayMsg(parts ...string) resp.Value {
	vals := make([]resp.Value, len(parts))
	for i, p := range parts {
		vals[i] = resp.NewBulkString(p)
	}
	return resp.NewArray(vals)
}

func TestDispatchUnknownCommandReturnsError(t *testing.T) {
	reg, ctx := newTestContext(t)
	reply := command.Dispatch(reg, ctx, arrayMsg("NOSUCHCOMMAND"))
	require.Equal(t, "ERR unknown command 'NOSUCHCOMMAND'", reply.Str)
}

func TestDispatchWrongArityReturnsError(t *testing.T) {
	reg, ctx := newTestContext(t)
	reply := command.Dispatch(reg, ctx, arrayMsg("GET"))
	require.Contains(t, reply.Str, "wrong number of arguments")
}

func TestDispatchSetThenGetRoundTrip(t *testing.T) {
	reg, ctx := newTestContext(t)
	reply := command.Dispatch(reg, ctx, arrayMsg("SET", "k", "v"))
	require.Equal(t, "OK", reply.Str)

	reply = command.Dispatch(reg, ctx, arrayMsg("GET", "k"))
	require.Equal(t, "v", string(reply.Bulk))
}

func TestDispatchQueuesDuringMultiAndExecutesOnExec(t *testing.T) {
	reg, ctx := newTestContext(t)

	reply := command.Dispatch(reg, ctx, arrayMsg("MULTI"))
	require.Equal(t, "OK", reply.Str)

	reply = command.Dispatch(reg, ctx, arrayMsg("SET", "a", "1"))
	require.Equal(t, "QUEUED", reply.Str)

	reply = command.Dispatch(reg, ctx, arrayMsg("EXEC"))
	require.Len(t, reply.Arr, 1)
	require.Equal(t, "OK", reply.Arr[0].Str)

	reply = command.Dispatch(reg, ctx, arrayMsg("GET", "a"))
	require.Equal(t, "1", string(reply.Bulk))
}

func TestDispatchExecAbortsWhenWatchedKeyChangedConcurrently(t *testing.T) {
	reg, ctx := newTestContext(t)

	command.Dispatch(reg, ctx, arrayMsg("SET", "k", "1"))
	reply := command.Dispatch(reg, ctx, arrayMsg("WATCH", "k"))
	require.Equal(t, "OK", reply.Str)

	// A change from outside the transaction bumps k's version.
	ctx.DB.Set("k", store.NewStringItem([]byte("2")))

	reply = command.Dispatch(reg, ctx, arrayMsg("MULTI"))
	require.Equal(t, "OK", reply.Str)
	command.Dispatch(reg, ctx, arrayMsg("GET", "k"))
	reply = command.Dispatch(reg, ctx, arrayMsg("EXEC"))
	require.True(t, reply.Null)
}

func TestDispatchExecSucceedsWhenWatcherWroteKeyBeforeMulti(t *testing.T) {
	reg, ctx := newTestContext(t)

	command.Dispatch(reg, ctx, arrayMsg("SET", "k", "1"))
	reply := command.Dispatch(reg, ctx, arrayMsg("WATCH", "k"))
	require.Equal(t, "OK", reply.Str)

	// The watcher's own write, issued before MULTI, must not count as a
	// conflicting change.
	reply = command.Dispatch(reg, ctx, arrayMsg("SET", "k", "2"))
	require.Equal(t, "OK", reply.Str)

	reply = command.Dispatch(reg, ctx, arrayMsg("MULTI"))
	require.Equal(t, "OK", reply.Str)
	command.Dispatch(reg, ctx, arrayMsg("INCR", "k"))
	reply = command.Dispatch(reg, ctx, arrayMsg("EXEC"))
	require.False(t, reply.Null)
	require.Len(t, reply.Arr, 1)
	require.Equal(t, int64(3), reply.Arr[0].Int)
}

func TestDispatchRejectsNonSubscribeCommandsInSubscribeMode(t *testing.T) {
	reg, ctx := newTestContext(t)
	reply := command.Dispatch(reg, ctx, arrayMsg("SUBSCRIBE", "news"))
	require.Equal(t, resp.Array, reply.Type)

	reply = command.Dispatch(reg, ctx, arrayMsg("SET", "k", "v"))
	require.Equal(t, resp.Error, reply.Type)
	require.Contains(t, reply.Str, "not allowed in subscribe context")
}
