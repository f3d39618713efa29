package command

import (
	"strconv"
	"time"

	"github.com/echojfree/mini-redis/internal/resp"
)

func RegisterKeyCommands(reg *Registry) {
	reg.Register(Entry{Name: "DEL", MinArgs: 1, MaxArgs: MinMaxUnbounded, Handler: cmdDel})
	reg.Register(Entry{Name: "EXISTS", MinArgs: 1, MaxArgs: MinMaxUnbounded, Handler: cmdExists})
	reg.Register(Entry{Name: "TYPE", MinArgs: 1, MaxArgs: 1, Handler: cmdType})
	reg.Register(Entry{Name: "EXPIRE", MinArgs: 2, MaxArgs: 2, Handler: cmdExpire})
	reg.Register(Entry{Name: "PEXPIRE", MinArgs: 2, MaxArgs: 2, Handler: cmdPExpire})
	reg.Register(Entry{Name: "EXPIREAT", MinArgs: 2, MaxArgs: 2, Handler: cmdExpireAt})
	reg.Register(Entry{Name: "PEXPIREAT", MinArgs: 2, MaxArgs: 2, Handler: cmdPExpireAt})
	reg.Register(Entry{Name: "TTL", MinArgs: 1, MaxArgs: 1, Handler: cmdTTL})
	reg.Register(Entry{Name: "PTTL", MinArgs: 1, MaxArgs: 1, Handler: cmdPTTL})
	reg.Register(Entry{Name: "PERSIST", MinArgs: 1, MaxArgs: 1, Handler: cmdPersist})
	reg.Register(Entry{Name: "RENAME", MinArgs: 2, MaxArgs: 2, Handler: cmdRename})
	reg.Register(Entry{Name: "KEYS", MinArgs: 1, MaxArgs: 1, Handler: cmdKeys})
	reg.Register(Entry{Name: "RANDOMKEY", MinArgs: 0, MaxArgs: 0, Handler: cmdRandomKey})
	reg.Register(Entry{Name: "COPY", MinArgs: 2, MaxArgs: 2, Handler: cmdCopy})
}

func cmdDel(ctx *Context, args [][]byte) resp.Value {
	keys := make([]string, len(args))
	for i, a := range args {
		keys[i] = string(a)
	}
	n := ctx.DB.Del(keys...)
	if n > 0 {
		appendWrite(ctx, "DEL", args...)
	}
	return resp.NewInteger(int64(n))
}

func cmdExists(ctx *Context, args [][]byte) resp.Value {
	keys := make([]string, len(args))
	for i, a := range args {
		keys[i] = string(a)
	}
	return resp.NewInteger(int64(ctx.DB.Exists(keys...)))
}

func cmdType(ctx *Context, args [][]byte) resp.Value {
	it, ok := ctx.DB.Peek(string(args[0]))
	if !ok {
		return resp.NewSimpleString("none")
	}
	return resp.NewSimpleString(it.Kind.String())
}

func cmdExpire(ctx *Context, args [][]byte) resp.Value {
	secs, ok := parseInt(args[1])
	if !ok {
		return resp.NewError("ERR value is not an integer or out of range")
	}
	return expireAt(ctx, args[0], time.Now().UnixMilli()+secs*1000, "PEXPIREAT")
}

func cmdPExpire(ctx *Context, args [][]byte) resp.Value {
	ms, ok := parseInt(args[1])
	if !ok {
		return resp.NewError("ERR value is not an integer or out of range")
	}
	return expireAt(ctx, args[0], time.Now().UnixMilli()+ms, "PEXPIREAT")
}

func cmdExpireAt(ctx *Context, args [][]byte) resp.Value {
	secs, ok := parseInt(args[1])
	if !ok {
		return resp.NewError("ERR value is not an integer or out of range")
	}
	return expireAt(ctx, args[0], secs*1000, "PEXPIREAT")
}

func cmdPExpireAt(ctx *Context, args [][]byte) resp.Value {
	ms, ok := parseInt(args[1])
	if !ok {
		return resp.NewError("ERR value is not an integer or out of range")
	}
	return expireAt(ctx, args[0], ms, "PEXPIREAT")
}

func expireAt(ctx *Context, key []byte, atMs int64, aofName string) resp.Value {
	ok := ctx.DB.ExpireAbsoluteMs(string(key), atMs)
	if !ok {
		return resp.NewInteger(0)
	}
	appendWrite(ctx, aofName, key, []byte(strconv.FormatInt(atMs, 10)))
	return resp.NewInteger(1)
}

func cmdTTL(ctx *Context, args [][]byte) resp.Value {
	ms := ctx.DB.TTLMs(string(args[0]))
	if ms < 0 {
		return resp.NewInteger(ms)
	}
	return resp.NewInteger((ms + 999) / 1000)
}

func cmdPTTL(ctx *Context, args [][]byte) resp.Value {
	return resp.NewInteger(ctx.DB.TTLMs(string(args[0])))
}

func cmdPersist(ctx *Context, args [][]byte) resp.Value {
	ok := ctx.DB.Persist(string(args[0]))
	if ok {
		appendWrite(ctx, "PERSIST", args[0])
	}
	return resp.NewInteger(boolToInt(ok))
}

func cmdRename(ctx *Context, args [][]byte) resp.Value {
	ok := ctx.DB.Rename(string(args[0]), string(args[1]))
	if !ok {
		return resp.NewError("ERR no such key")
	}
	appendWrite(ctx, "RENAME", args...)
	return resp.OK()
}

func cmdKeys(ctx *Context, args [][]byte) resp.Value {
	keys := ctx.DB.KeysMatching(string(args[0]))
	vals := make([]resp.Value, len(keys))
	for i, k := range keys {
		vals[i] = resp.NewBulkString(k)
	}
	return resp.NewArray(vals)
}

func cmdRandomKey(ctx *Context, args [][]byte) resp.Value {
	k, ok := ctx.DB.RandomKey()
	if !ok {
		return resp.NewNullBulk()
	}
	return resp.NewBulkString(k)
}

func cmdCopy(ctx *Context, args [][]byte) resp.Value {
	src, ok := ctx.DB.Peek(string(args[0]))
	if !ok {
		return resp.NewInteger(0)
	}
	if ctx.DB.Exists(string(args[1])) > 0 {
		return resp.NewInteger(0)
	}
	dup := *src
	ctx.DB.Set(string(args[1]), &dup)
	appendWrite(ctx, "COPY", args...)
	return resp.NewInteger(1)
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

