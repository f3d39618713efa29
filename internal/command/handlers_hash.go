package command

import (
	"math/rand"
	"strconv"

	"github.com/echojfree/mini-redis/internal/resp"
	"github.com/echojfree/mini-redis/internal/store"
)

func RegisterHashCommands(reg *Registry) {
	reg.Register(Entry{Name: "HSET", MinArgs: 3, MaxArgs: MinMaxUnbounded, Handler: cmdHSet})
	reg.Register(Entry{Name: "HSETNX", MinArgs: 3, MaxArgs: 3, Handler: cmdHSetNX})
	reg.Register(Entry{Name: "HGET", MinArgs: 2, MaxArgs: 2, Handler: cmdHGet})
	reg.Register(Entry{Name: "HMGET", MinArgs: 2, MaxArgs: MinMaxUnbounded, Handler: cmdHMGet})
	reg.Register(Entry{Name: "HDEL", MinArgs: 2, MaxArgs: MinMaxUnbounded, Handler: cmdHDel})
	reg.Register(Entry{Name: "HEXISTS", MinArgs: 2, MaxArgs: 2, Handler: cmdHExists})
	reg.Register(Entry{Name: "HLEN", MinArgs: 1, MaxArgs: 1, Handler: cmdHLen})
	reg.Register(Entry{Name: "HSTRLEN", MinArgs: 2, MaxArgs: 2, Handler: cmdHStrlen})
	reg.Register(Entry{Name: "HGETALL", MinArgs: 1, MaxArgs: 1, Handler: cmdHGetAll})
	reg.Register(Entry{Name: "HKEYS", MinArgs: 1, MaxArgs: 1, Handler: cmdHKeys})
	reg.Register(Entry{Name: "HVALS", MinArgs: 1, MaxArgs: 1, Handler: cmdHVals})
	reg.Register(Entry{Name: "HINCRBY", MinArgs: 3, MaxArgs: 3, Handler: cmdHIncrBy})
	reg.Register(Entry{Name: "HRANDFIELD", MinArgs: 1, MaxArgs: 2, Handler: cmdHRandField})
}

func getOrCreateHash(ctx *Context, key string) (*store.Item, bool) {
	it, ok := ctx.DB.Get(key)
	if !ok {
		it = store.NewHashItem()
		ctx.DB.Set(key, it)
		return it, true
	}
	return it, it.Kind == store.KindHash
}

func cmdHSet(ctx *Context, args [][]byte) resp.Value {
	if len(args[1:])%2 != 0 {
		return wrongArgs("HSET")
	}
	key := string(args[0])
	it, okKind := getOrCreateHash(ctx, key)
	if !okKind {
		return resp.NewError(store.ErrWrongType.Error())
	}
	created := 0
	for i := 1; i < len(args); i += 2 {
		if it.Hash.Set(string(args[i]), string(args[i+1])) {
			created++
		}
	}
	ctx.DB.Touch(key)
	appendWrite(ctx, "HSET", args...)
	return resp.NewInteger(int64(created))
}

func cmdHSetNX(ctx *Context, args [][]byte) resp.Value {
	key := string(args[0])
	it, okKind := getOrCreateHash(ctx, key)
	if !okKind {
		return resp.NewError(store.ErrWrongType.Error())
	}
	if it.Hash.SetIfAbsent(string(args[1]), string(args[2])) {
		ctx.DB.Touch(key)
		appendWrite(ctx, "HSETNX", args...)
		return resp.NewInteger(1)
	}
	return resp.NewInteger(0)
}

func cmdHGet(ctx *Context, args [][]byte) resp.Value {
	it, ok := ctx.DB.Get(string(args[0]))
	if !ok {
		return resp.NewNullBulk()
	}
	if it.Kind != store.KindHash {
		return resp.NewError(store.ErrWrongType.Error())
	}
	v, ok := it.Hash.Get(string(args[1]))
	if !ok {
		return resp.NewNullBulk()
	}
	return resp.NewBulkString(v)
}

func cmdHMGet(ctx *Context, args [][]byte) resp.Value {
	it, ok := ctx.DB.Get(string(args[0]))
	vals := make([]resp.Value, len(args)-1)
	for i, f := range args[1:] {
		if !ok {
			vals[i] = resp.NewNullBulk()
			continue
		}
		if it.Kind != store.KindHash {
			return resp.NewError(store.ErrWrongType.Error())
		}
		if v, found := it.Hash.Get(string(f)); found {
			vals[i] = resp.NewBulkString(v)
		} else {
			vals[i] = resp.NewNullBulk()
		}
	}
	return resp.NewArray(vals)
}

func cmdHDel(ctx *Context, args [][]byte) resp.Value {
	key := string(args[0])
	it, ok := ctx.DB.Get(key)
	if !ok {
		return resp.NewInteger(0)
	}
	if it.Kind != store.KindHash {
		return resp.NewError(store.ErrWrongType.Error())
	}
	fields := make([]string, len(args)-1)
	for i, f := range args[1:] {
		fields[i] = string(f)
	}
	n := it.Hash.Del(fields...)
	if n > 0 {
		ctx.DB.Touch(key)
		ctx.DB.DeleteEmptyIfCollection(key)
		appendWrite(ctx, "HDEL", args...)
	}
	return resp.NewInteger(int64(n))
}

func cmdHExists(ctx *Context, args [][]byte) resp.Value {
	it, ok := ctx.DB.Get(string(args[0]))
	if !ok {
		return resp.NewInteger(0)
	}
	if it.Kind != store.KindHash {
		return resp.NewError(store.ErrWrongType.Error())
	}
	return resp.NewInteger(boolToInt(it.Hash.Exists(string(args[1]))))
}

func cmdHLen(ctx *Context, args [][]byte) resp.Value {
	it, ok := ctx.DB.Get(string(args[0]))
	if !ok {
		return resp.NewInteger(0)
	}
	if it.Kind != store.KindHash {
		return resp.NewError(store.ErrWrongType.Error())
	}
	return resp.NewInteger(int64(it.Hash.Len()))
}

func cmdHStrlen(ctx *Context, args [][]byte) resp.Value {
	it, ok := ctx.DB.Get(string(args[0]))
	if !ok {
		return resp.NewInteger(0)
	}
	if it.Kind != store.KindHash {
		return resp.NewError(store.ErrWrongType.Error())
	}
	v, ok := it.Hash.Get(string(args[1]))
	if !ok {
		return resp.NewInteger(0)
	}
	return resp.NewInteger(int64(len(v)))
}

func cmdHGetAll(ctx *Context, args [][]byte) resp.Value {
	it, ok := ctx.DB.Get(string(args[0]))
	if !ok {
		return resp.NewArray(nil)
	}
	if it.Kind != store.KindHash {
		return resp.NewError(store.ErrWrongType.Error())
	}
	m := it.Hash.GetAll()
	vals := make([]resp.Value, 0, len(m)*2)
	for k, v := range m {
		vals = append(vals, resp.NewBulkString(k), resp.NewBulkString(v))
	}
	return resp.NewArray(vals)
}

func cmdHKeys(ctx *Context, args [][]byte) resp.Value {
	it, ok := ctx.DB.Get(string(args[0]))
	if !ok {
		return resp.NewArray(nil)
	}
	if it.Kind != store.KindHash {
		return resp.NewError(store.ErrWrongType.Error())
	}
	keys := it.Hash.Keys()
	vals := make([]resp.Value, len(keys))
	for i, k := range keys {
		vals[i] = resp.NewBulkString(k)
	}
	return resp.NewArray(vals)
}

func cmdHVals(ctx *Context, args [][]byte) resp.Value {
	it, ok := ctx.DB.Get(string(args[0]))
	if !ok {
		return resp.NewArray(nil)
	}
	if it.Kind != store.KindHash {
		return resp.NewError(store.ErrWrongType.Error())
	}
	values := it.Hash.Values()
	vals := make([]resp.Value, len(values))
	for i, v := range values {
		vals[i] = resp.NewBulkString(v)
	}
	return resp.NewArray(vals)
}

func cmdHIncrBy(ctx *Context, args [][]byte) resp.Value {
	delta, ok := parseInt(args[2])
	if !ok {
		return resp.NewError("ERR value is not an integer or out of range")
	}
	key := string(args[0])
	it, okKind := getOrCreateHash(ctx, key)
	if !okKind {
		return resp.NewError(store.ErrWrongType.Error())
	}
	n, err := it.Hash.IncrBy(string(args[1]), delta)
	if err != nil {
		return typeError(err)
	}
	ctx.DB.Touch(key)
	appendWrite(ctx, "HSET", args[0], args[1], []byte(strconv.FormatInt(n, 10)))
	return resp.NewInteger(n)
}

// cmdHRandField returns one random field (no count), or up to |count| fields
// (a positive count without repeats, a negative count allowing repeats).
func cmdHRandField(ctx *Context, args [][]byte) resp.Value {
	it, ok := ctx.DB.Get(string(args[0]))
	if !ok {
		if len(args) == 1 {
			return resp.NewNullBulk()
		}
		return resp.NewArray(nil)
	}
	if it.Kind != store.KindHash {
		return resp.NewError(store.ErrWrongType.Error())
	}
	keys := it.Hash.Keys()
	if len(args) == 1 {
		if len(keys) == 0 {
			return resp.NewNullBulk()
		}
		return resp.NewBulkString(keys[rand.Intn(len(keys))])
	}

	count, ok := parseInt(args[1])
	if !ok {
		return resp.NewError("ERR value is not an integer or out of range")
	}
	if len(keys) == 0 {
		return resp.NewArray(nil)
	}
	if count >= 0 {
		rand.Shuffle(len(keys), func(i, j int) { keys[i], keys[j] = keys[j], keys[i] })
		if int(count) < len(keys) {
			keys = keys[:count]
		}
		vals := make([]resp.Value, len(keys))
		for i, k := range keys {
			vals[i] = resp.NewBulkString(k)
		}
		return resp.NewArray(vals)
	}

	n := -count
	vals := make([]resp.Value, n)
	for i := range vals {
		vals[i] = resp.NewBulkString(keys[rand.Intn(len(keys))])
	}
	return resp.NewArray(vals)
}
