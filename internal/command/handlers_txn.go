package command

import (
	"strconv"
	"strings"

	"github.com/echojfree/mini-redis/internal/resp"
	"github.com/echojfree/mini-redis/internal/session"
)

// RegisterTxnCommands wires MULTI/EXEC/DISCARD/WATCH/UNWATCH. EXEC needs to
// re-look-up each queued command's handler by name, so its closure captures
// reg directly rather than routing back through Dispatch.
func RegisterTxnCommands(reg *Registry) {
	reg.Register(Entry{Name: "MULTI", MinArgs: 0, MaxArgs: 0, TxControl: true, Handler: cmdMulti})
	reg.Register(Entry{Name: "DISCARD", MinArgs: 0, MaxArgs: 0, TxControl: true, Handler: cmdDiscard})
	reg.Register(Entry{Name: "WATCH", MinArgs: 1, MaxArgs: MinMaxUnbounded, TxControl: true, Handler: cmdWatch})
	reg.Register(Entry{Name: "UNWATCH", MinArgs: 0, MaxArgs: 0, TxControl: true, Handler: cmdUnwatch})
	reg.Register(Entry{Name: "EXEC", MinArgs: 0, MaxArgs: 0, TxControl: true, Handler: execHandler(reg)})
}

func watchKey(dbID int, key string) string {
	return strconv.Itoa(dbID) + "\x00" + key
}

func cmdMulti(ctx *Context, args [][]byte) resp.Value {
	if ctx.Client.Tx == session.TxQueuing {
		return resp.NewError("ERR MULTI calls can not be nested")
	}
	ctx.Client.Tx = session.TxQueuing
	ctx.Client.Queued = nil
	return resp.OK()
}

func cmdDiscard(ctx *Context, args [][]byte) resp.Value {
	if ctx.Client.Tx != session.TxQueuing {
		return resp.NewError("ERR DISCARD without MULTI")
	}
	ctx.Client.ResetTx()
	return resp.OK()
}

func cmdWatch(ctx *Context, args [][]byte) resp.Value {
	if ctx.Client.Tx == session.TxQueuing {
		return resp.NewError("ERR WATCH inside MULTI is not allowed")
	}
	for _, a := range args {
		key := string(a)
		ctx.Client.WatchedVer[watchKey(ctx.Client.DatabaseID, key)] = ctx.DB.Version(key)
	}
	return resp.OK()
}

func cmdUnwatch(ctx *Context, args [][]byte) resp.Value {
	ctx.Client.WatchedVer = make(map[string]uint64)
	return resp.OK()
}

// execHandler returns the EXEC handler bound to reg, so queued commands can
// be re-looked-up by name without EXEC itself knowing about the registry's
// internals beyond Lookup.
func execHandler(reg *Registry) Handler {
	return func(ctx *Context, args [][]byte) resp.Value {
		if ctx.Client.Tx != session.TxQueuing {
			return resp.NewError("ERR EXEC without MULTI")
		}
		queued := ctx.Client.Queued
		watched := ctx.Client.WatchedVer
		ctx.Client.ResetTx()

		for key, ver := range watched {
			dbID, plainKey := splitWatchKey(key)
			db := ctx.Databases.DB(dbID)
			if db.Version(plainKey) != ver {
				return resp.NewNullArray()
			}
		}

		replies := make([]resp.Value, len(queued))
		for i, qc := range queued {
			entry, ok := reg.Lookup(qc.Name)
			if !ok {
				replies[i] = resp.Errorf("ERR unknown command '%s'", qc.Name)
				continue
			}
			replies[i] = safeExecute(entry, ctx, qc.Args)
		}
		return resp.NewArray(replies)
	}
}

func splitWatchKey(k string) (int, string) {
	idPart, keyPart, found := strings.Cut(k, "\x00")
	if !found {
		return 0, k
	}
	dbID, _ := strconv.Atoi(idPart)
	return dbID, keyPart
}
