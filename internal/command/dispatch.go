package command

import (
	"github.com/echojfree/mini-redis/internal/resp"
	"github.com/echojfree/mini-redis/internal/session"
)

// Dispatch runs the registry lookup → arity check → queueing → pub/sub-mode
// restriction → execution pipeline described by the command registry's
// design (C6) for one decoded message.
func Dispatch(reg *Registry, ctx *Context, msg resp.Value) resp.Value {
	if msg.Type != resp.Array || msg.Null || len(msg.Arr) == 0 {
		return resp.NewError("ERR invalid request: expected a non-empty array")
	}
	for _, e := range msg.Arr {
		if e.Type != resp.Bulk {
			return resp.NewError("ERR invalid request: expected bulk string arguments")
		}
	}

	name := msg.Arr[0].BulkString()
	entry, ok := reg.Lookup(name)
	if !ok {
		return resp.Errorf("ERR unknown command '%s'", name)
	}

	args := make([][]byte, len(msg.Arr)-1)
	for i, e := range msg.Arr[1:] {
		args[i] = e.Bulk
	}

	if !entry.checkArity(len(args)) {
		return resp.Errorf("ERR wrong number of arguments for '%s' command", name)
	}

	if ctx.Client.Tx == session.TxQueuing && !entry.TxControl {
		ctx.Client.Queued = append(ctx.Client.Queued, session.QueuedCommand{Name: entry.Name, Args: args})
		return resp.NewSimpleString("QUEUED")
	}

	if ctx.Client.InSubscribeMode() && !entry.PubSubAllowed {
		return resp.Errorf("ERR %s is not allowed in subscribe context", entry.Name)
	}

	changed := changedWatchedKeys(ctx)
	reply := safeExecute(entry, ctx, args)
	refreshWatchedVersions(ctx, changed)
	return reply
}

// changedWatchedKeys returns the watched keys whose version already differs
// from the recorded one before this client's command runs, i.e. keys that
// another connection wrote since they were recorded.
func changedWatchedKeys(ctx *Context) map[string]bool {
	changed := make(map[string]bool)
	for key, ver := range ctx.Client.WatchedVer {
		dbID, plainKey := splitWatchKey(key)
		if ctx.Databases.DB(dbID).Version(plainKey) != ver {
			changed[key] = true
		}
	}
	return changed
}

// refreshWatchedVersions re-records this client's watched-key versions after
// any immediately-executed (non-queued) command. Without this, a write the
// watcher itself issues between WATCH and MULTI would make EXEC see its own
// write as a conflicting change and abort. Keys in skip (already changed by
// another connection before the command ran) keep their old recorded
// version, so only writes from other connections make EXEC abort.
func refreshWatchedVersions(ctx *Context, skip map[string]bool) {
	for key := range ctx.Client.WatchedVer {
		if skip[key] {
			continue
		}
		dbID, plainKey := splitWatchKey(key)
		db := ctx.Databases.DB(dbID)
		ctx.Client.WatchedVer[key] = db.Version(plainKey)
	}
}

func safeExecute(entry *Entry, ctx *Context, args [][]byte) (reply resp.Value) {
	defer func() {
		if r := recover(); r != nil {
			if ctx.Log != nil {
				ctx.Log.Errorw("command handler panicked", "command", entry.Name, "panic", r)
			}
			reply = resp.NewError("ERR internal error")
		}
	}()
	return entry.Handler(ctx, args)
}
