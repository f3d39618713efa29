package command

import (
	"strconv"
	"time"

	"github.com/echojfree/mini-redis/internal/resp"
	"github.com/echojfree/mini-redis/internal/store"
)

func RegisterStringCommands(reg *Registry) {
	reg.Register(Entry{Name: "GET", MinArgs: 1, MaxArgs: 1, Handler: cmdGet})
	reg.Register(Entry{Name: "SET", MinArgs: 2, MaxArgs: MinMaxUnbounded, Handler: cmdSet})
	reg.Register(Entry{Name: "SETNX", MinArgs: 2, MaxArgs: 2, Handler: cmdSetNX})
	reg.Register(Entry{Name: "SETEX", MinArgs: 3, MaxArgs: 3, Handler: cmdSetEX})
	reg.Register(Entry{Name: "PSETEX", MinArgs: 3, MaxArgs: 3, Handler: cmdPSetEX})
	reg.Register(Entry{Name: "GETSET", MinArgs: 2, MaxArgs: 2, Handler: cmdGetSet})
	reg.Register(Entry{Name: "GETDEL", MinArgs: 1, MaxArgs: 1, Handler: cmdGetDel})
	reg.Register(Entry{Name: "GETEX", MinArgs: 1, MaxArgs: MinMaxUnbounded, Handler: cmdGetEx})
	reg.Register(Entry{Name: "INCR", MinArgs: 1, MaxArgs: 1, Handler: cmdIncr})
	reg.Register(Entry{Name: "DECR", MinArgs: 1, MaxArgs: 1, Handler: cmdDecr})
	reg.Register(Entry{Name: "INCRBY", MinArgs: 2, MaxArgs: 2, Handler: cmdIncrBy})
	reg.Register(Entry{Name: "DECRBY", MinArgs: 2, MaxArgs: 2, Handler: cmdDecrBy})
	reg.Register(Entry{Name: "INCRBYFLOAT", MinArgs: 2, MaxArgs: 2, Handler: cmdIncrByFloat})
	reg.Register(Entry{Name: "APPEND", MinArgs: 2, MaxArgs: 2, Handler: cmdAppend})
	reg.Register(Entry{Name: "STRLEN", MinArgs: 1, MaxArgs: 1, Handler: cmdStrlen})
	reg.Register(Entry{Name: "MGET", MinArgs: 1, MaxArgs: MinMaxUnbounded, Handler: cmdMGet})
	reg.Register(Entry{Name: "MSET", MinArgs: 2, MaxArgs: MinMaxUnbounded, Handler: cmdMSet})
	reg.Register(Entry{Name: "MSETNX", MinArgs: 2, MaxArgs: MinMaxUnbounded, Handler: cmdMSetNX})
	reg.Register(Entry{Name: "GETRANGE", MinArgs: 3, MaxArgs: 3, Handler: cmdGetRange})
	reg.Register(Entry{Name: "SETRANGE", MinArgs: 3, MaxArgs: 3, Handler: cmdSetRange})
}

func cmdGet(ctx *Context, args [][]byte) resp.Value {
	it, ok := ctx.DB.Get(string(args[0]))
	if !ok {
		return resp.NewNullBulk()
	}
	if it.Kind != store.KindString {
		return resp.NewError(store.ErrWrongType.Error())
	}
	return resp.NewBulk(it.Str)
}

// cmdSet implements SET key value [EX seconds|PX ms] [NX|XX].
func cmdSet(ctx *Context, args [][]byte) resp.Value {
	key, val := string(args[0]), args[1]
	var expireAt int64
	hasExpire := false
	nx, xx := false, false

	opts := args[2:]
	for i := 0; i < len(opts); i++ {
		switch upperString(opts[i]) {
		case "EX":
			if i+1 >= len(opts) {
				return wrongArgs("SET")
			}
			secs, ok := parseInt(opts[i+1])
			if !ok {
				return resp.NewError("ERR value is not an integer or out of range")
			}
			expireAt = time.Now().UnixMilli() + secs*1000
			hasExpire = true
			i++
		case "PX":
			if i+1 >= len(opts) {
				return wrongArgs("SET")
			}
			ms, ok := parseInt(opts[i+1])
			if !ok {
				return resp.NewError("ERR value is not an integer or out of range")
			}
			expireAt = time.Now().UnixMilli() + ms
			hasExpire = true
			i++
		case "NX":
			nx = true
		case "XX":
			xx = true
		default:
			return resp.NewError("ERR syntax error")
		}
	}

	exists := ctx.DB.Exists(key) > 0
	if nx && exists {
		return resp.NewNullBulk()
	}
	if xx && !exists {
		return resp.NewNullBulk()
	}

	item := store.NewStringItem(append([]byte(nil), val...))
	if hasExpire {
		item.HasExpire = true
		item.ExpireAtMs = expireAt
	}
	ctx.DB.Set(key, item)
	appendWrite(ctx, "SET", args...)
	return resp.OK()
}

func cmdSetNX(ctx *Context, args [][]byte) resp.Value {
	key := string(args[0])
	if ctx.DB.Exists(key) > 0 {
		return resp.NewInteger(0)
	}
	ctx.DB.Set(key, store.NewStringItem(append([]byte(nil), args[1]...)))
	appendWrite(ctx, "SET", args[0], args[1])
	return resp.NewInteger(1)
}

func cmdSetEX(ctx *Context, args [][]byte) resp.Value {
	return setWithTTLSeconds(ctx, args, "SETEX")
}

func cmdPSetEX(ctx *Context, args [][]byte) resp.Value {
	return setWithTTLMillis(ctx, args, "PSETEX")
}

func setWithTTLSeconds(ctx *Context, args [][]byte, name string) resp.Value {
	secs, ok := parseInt(args[1])
	if !ok || secs <= 0 {
		return resp.NewError("ERR invalid expire time in '" + name + "' command")
	}
	item := store.NewStringItem(append([]byte(nil), args[2]...))
	item.HasExpire = true
	item.ExpireAtMs = time.Now().UnixMilli() + secs*1000
	ctx.DB.Set(string(args[0]), item)
	appendWrite(ctx, name, args...)
	return resp.OK()
}

func setWithTTLMillis(ctx *Context, args [][]byte, name string) resp.Value {
	ms, ok := parseInt(args[1])
	if !ok || ms <= 0 {
		return resp.NewError("ERR invalid expire time in '" + name + "' command")
	}
	item := store.NewStringItem(append([]byte(nil), args[2]...))
	item.HasExpire = true
	item.ExpireAtMs = time.Now().UnixMilli() + ms
	ctx.DB.Set(string(args[0]), item)
	appendWrite(ctx, name, args...)
	return resp.OK()
}

func cmdGetSet(ctx *Context, args [][]byte) resp.Value {
	key := string(args[0])
	old, existed := ctx.DB.Get(key)
	var reply resp.Value
	if !existed {
		reply = resp.NewNullBulk()
	} else if old.Kind != store.KindString {
		return resp.NewError(store.ErrWrongType.Error())
	} else {
		reply = resp.NewBulk(old.Str)
	}
	ctx.DB.Set(key, store.NewStringItem(append([]byte(nil), args[1]...)))
	appendWrite(ctx, "SET", args[0], args[1])
	return reply
}

func cmdGetDel(ctx *Context, args [][]byte) resp.Value {
	key := string(args[0])
	it, ok := ctx.DB.Get(key)
	if !ok {
		return resp.NewNullBulk()
	}
	if it.Kind != store.KindString {
		return resp.NewError(store.ErrWrongType.Error())
	}
	val := append([]byte(nil), it.Str...)
	ctx.DB.Del(key)
	appendWrite(ctx, "DEL", args[0])
	return resp.NewBulk(val)
}

// cmdGetEx returns the string at key, optionally adjusting its expiration
// via EX/PX/EXAT/PXAT/PERSIST in the same pass (no separate TTL command
// round-trip).
func cmdGetEx(ctx *Context, args [][]byte) resp.Value {
	key := string(args[0])
	it, ok := ctx.DB.Get(key)
	if !ok {
		return resp.NewNullBulk()
	}
	if it.Kind != store.KindString {
		return resp.NewError(store.ErrWrongType.Error())
	}

	opts := args[1:]
	for i := 0; i < len(opts); i++ {
		switch upperString(opts[i]) {
		case "EX":
			if i+1 >= len(opts) {
				return wrongArgs("GETEX")
			}
			secs, ok := parseInt(opts[i+1])
			if !ok {
				return resp.NewError("ERR value is not an integer or out of range")
			}
			atMs := time.Now().UnixMilli() + secs*1000
			ctx.DB.ExpireAbsoluteMs(key, atMs)
			appendWrite(ctx, "PEXPIREAT", args[0], []byte(strconv.FormatInt(atMs, 10)))
			i++
		case "PX":
			if i+1 >= len(opts) {
				return wrongArgs("GETEX")
			}
			ms, ok := parseInt(opts[i+1])
			if !ok {
				return resp.NewError("ERR value is not an integer or out of range")
			}
			atMs := time.Now().UnixMilli() + ms
			ctx.DB.ExpireAbsoluteMs(key, atMs)
			appendWrite(ctx, "PEXPIREAT", args[0], []byte(strconv.FormatInt(atMs, 10)))
			i++
		case "EXAT":
			if i+1 >= len(opts) {
				return wrongArgs("GETEX")
			}
			secs, ok := parseInt(opts[i+1])
			if !ok {
				return resp.NewError("ERR value is not an integer or out of range")
			}
			atMs := secs * 1000
			ctx.DB.ExpireAbsoluteMs(key, atMs)
			appendWrite(ctx, "PEXPIREAT", args[0], []byte(strconv.FormatInt(atMs, 10)))
			i++
		case "PXAT":
			if i+1 >= len(opts) {
				return wrongArgs("GETEX")
			}
			ms, ok := parseInt(opts[i+1])
			if !ok {
				return resp.NewError("ERR value is not an integer or out of range")
			}
			ctx.DB.ExpireAbsoluteMs(key, ms)
			appendWrite(ctx, "PEXPIREAT", args[0], []byte(strconv.FormatInt(ms, 10)))
			i++
		case "PERSIST":
			ctx.DB.Persist(key)
			appendWrite(ctx, "PERSIST", args[0])
		default:
			return wrongArgs("GETEX")
		}
	}
	return resp.NewBulk(it.Str)
}

func cmdIncr(ctx *Context, args [][]byte) resp.Value {
	return incrByN(ctx, args[0], 1, "INCR")
}

func cmdDecr(ctx *Context, args [][]byte) resp.Value {
	return incrByN(ctx, args[0], -1, "DECR")
}

func cmdIncrBy(ctx *Context, args [][]byte) resp.Value {
	n, ok := parseInt(args[1])
	if !ok {
		return resp.NewError("ERR value is not an integer or out of range")
	}
	return incrByN(ctx, args[0], n, "INCRBY")
}

func cmdDecrBy(ctx *Context, args [][]byte) resp.Value {
	n, ok := parseInt(args[1])
	if !ok {
		return resp.NewError("ERR value is not an integer or out of range")
	}
	return incrByN(ctx, args[0], -n, "DECRBY")
}

func incrByN(ctx *Context, key []byte, delta int64, name string) resp.Value {
	k := string(key)
	it, ok := ctx.DB.Get(k)
	if !ok {
		it = store.NewStringItem([]byte("0"))
		ctx.DB.Set(k, it)
	}
	n, err := it.IncrBy(delta)
	if err != nil {
		return typeError(err)
	}
	ctx.DB.Touch(k)
	appendWrite(ctx, name, key)
	return resp.NewInteger(n)
}

func cmdIncrByFloat(ctx *Context, args [][]byte) resp.Value {
	delta, ok := parseFloat(args[1])
	if !ok {
		return resp.NewError("ERR value is not a valid float")
	}
	k := string(args[0])
	it, exists := ctx.DB.Get(k)
	if !exists {
		it = store.NewStringItem([]byte("0"))
		ctx.DB.Set(k, it)
	}
	if _, err := it.IncrByFloat(delta); err != nil {
		return typeError(err)
	}
	ctx.DB.Touch(k)
	appendWrite(ctx, "INCRBYFLOAT", args...)
	return resp.NewBulk(it.Str)
}

func cmdAppend(ctx *Context, args [][]byte) resp.Value {
	k := string(args[0])
	it, ok := ctx.DB.Get(k)
	if !ok {
		it = store.NewStringItem(nil)
		ctx.DB.Set(k, it)
	}
	n, err := it.Append(args[1])
	if err != nil {
		return typeError(err)
	}
	ctx.DB.Touch(k)
	appendWrite(ctx, "APPEND", args...)
	return resp.NewInteger(int64(n))
}

func cmdStrlen(ctx *Context, args [][]byte) resp.Value {
	it, ok := ctx.DB.Get(string(args[0]))
	if !ok {
		return resp.NewInteger(0)
	}
	n, err := it.Strlen()
	if err != nil {
		return typeError(err)
	}
	return resp.NewInteger(int64(n))
}

func cmdMGet(ctx *Context, args [][]byte) resp.Value {
	vals := make([]resp.Value, len(args))
	for i, k := range args {
		it, ok := ctx.DB.Get(string(k))
		if !ok || it.Kind != store.KindString {
			vals[i] = resp.NewNullBulk()
			continue
		}
		vals[i] = resp.NewBulk(it.Str)
	}
	return resp.NewArray(vals)
}

func cmdMSet(ctx *Context, args [][]byte) resp.Value {
	if len(args)%2 != 0 {
		return wrongArgs("MSET")
	}
	for i := 0; i < len(args); i += 2 {
		ctx.DB.Set(string(args[i]), store.NewStringItem(append([]byte(nil), args[i+1]...)))
	}
	appendWrite(ctx, "MSET", args...)
	return resp.OK()
}

func cmdMSetNX(ctx *Context, args [][]byte) resp.Value {
	if len(args)%2 != 0 {
		return wrongArgs("MSETNX")
	}
	for i := 0; i < len(args); i += 2 {
		if ctx.DB.Exists(string(args[i])) > 0 {
			return resp.NewInteger(0)
		}
	}
	for i := 0; i < len(args); i += 2 {
		ctx.DB.Set(string(args[i]), store.NewStringItem(append([]byte(nil), args[i+1]...)))
	}
	appendWrite(ctx, "MSET", args...)
	return resp.NewInteger(1)
}

func cmdGetRange(ctx *Context, args [][]byte) resp.Value {
	it, ok := ctx.DB.Get(string(args[0]))
	if !ok {
		return resp.NewBulkString("")
	}
	if it.Kind != store.KindString {
		return resp.NewError(store.ErrWrongType.Error())
	}
	start, ok1 := parseInt(args[1])
	stop, ok2 := parseInt(args[2])
	if !ok1 || !ok2 {
		return resp.NewError("ERR value is not an integer or out of range")
	}
	n := int64(len(it.Str))
	s, e := normalizeRange(start, stop, n)
	if s > e {
		return resp.NewBulkString("")
	}
	return resp.NewBulk(it.Str[s : e+1])
}

func cmdSetRange(ctx *Context, args [][]byte) resp.Value {
	offset, ok := parseInt(args[1])
	if !ok || offset < 0 {
		return resp.NewError("ERR offset is out of range")
	}
	k := string(args[0])
	it, exists := ctx.DB.Get(k)
	if !exists {
		it = store.NewStringItem(nil)
		ctx.DB.Set(k, it)
	}
	if it.Kind != store.KindString {
		return resp.NewError(store.ErrWrongType.Error())
	}
	needed := offset + int64(len(args[2]))
	if int64(len(it.Str)) < needed {
		grown := make([]byte, needed)
		copy(grown, it.Str)
		it.Str = grown
	}
	copy(it.Str[offset:], args[2])
	ctx.DB.Touch(k)
	appendWrite(ctx, "SETRANGE", args...)
	return resp.NewInteger(int64(len(it.Str)))
}

func normalizeRange(start, stop, n int64) (int64, int64) {
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	return start, stop
}

func upperString(b []byte) string {
	out := make([]byte, len(b))
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		out[i] = c
	}
	return string(out)
}
