package command

import (
	"github.com/echojfree/mini-redis/internal/resp"
	"github.com/echojfree/mini-redis/internal/store"
)

func RegisterListCommands(reg *Registry) {
	reg.Register(Entry{Name: "LPUSH", MinArgs: 2, MaxArgs: MinMaxUnbounded, Handler: cmdLPush})
	reg.Register(Entry{Name: "RPUSH", MinArgs: 2, MaxArgs: MinMaxUnbounded, Handler: cmdRPush})
	reg.Register(Entry{Name: "LPOP", MinArgs: 1, MaxArgs: 1, Handler: cmdLPop})
	reg.Register(Entry{Name: "RPOP", MinArgs: 1, MaxArgs: 1, Handler: cmdRPop})
	reg.Register(Entry{Name: "LRANGE", MinArgs: 3, MaxArgs: 3, Handler: cmdLRange})
	reg.Register(Entry{Name: "LLEN", MinArgs: 1, MaxArgs: 1, Handler: cmdLLen})
	reg.Register(Entry{Name: "LINDEX", MinArgs: 2, MaxArgs: 2, Handler: cmdLIndex})
	reg.Register(Entry{Name: "LSET", MinArgs: 3, MaxArgs: 3, Handler: cmdLSet})
	reg.Register(Entry{Name: "LTRIM", MinArgs: 3, MaxArgs: 3, Handler: cmdLTrim})
}

func getOrCreateList(ctx *Context, key string) (*store.Item, bool) {
	it, ok := ctx.DB.Get(key)
	if !ok {
		it = store.NewListItem()
		ctx.DB.Set(key, it)
		return it, true
	}
	return it, it.Kind == store.KindList
}

func cmdLPush(ctx *Context, args [][]byte) resp.Value {
	key := string(args[0])
	it, okKind := getOrCreateList(ctx, key)
	if !okKind {
		return resp.NewError(store.ErrWrongType.Error())
	}
	for _, v := range args[1:] {
		it.List.PushFront(string(v))
	}
	ctx.DB.Touch(key)
	appendWrite(ctx, "LPUSH", args...)
	return resp.NewInteger(int64(it.List.Len()))
}

func cmdRPush(ctx *Context, args [][]byte) resp.Value {
	key := string(args[0])
	it, okKind := getOrCreateList(ctx, key)
	if !okKind {
		return resp.NewError(store.ErrWrongType.Error())
	}
	for _, v := range args[1:] {
		it.List.PushBack(string(v))
	}
	ctx.DB.Touch(key)
	appendWrite(ctx, "RPUSH", args...)
	return resp.NewInteger(int64(it.List.Len()))
}

func cmdLPop(ctx *Context, args [][]byte) resp.Value {
	key := string(args[0])
	it, ok := ctx.DB.Get(key)
	if !ok {
		return resp.NewNullBulk()
	}
	if it.Kind != store.KindList {
		return resp.NewError(store.ErrWrongType.Error())
	}
	v, ok := it.List.PopFront()
	if !ok {
		return resp.NewNullBulk()
	}
	ctx.DB.Touch(key)
	ctx.DB.DeleteEmptyIfCollection(key)
	appendWrite(ctx, "LPOP", args[0])
	return resp.NewBulkString(v)
}

func cmdRPop(ctx *Context, args [][]byte) resp.Value {
	key := string(args[0])
	it, ok := ctx.DB.Get(key)
	if !ok {
		return resp.NewNullBulk()
	}
	if it.Kind != store.KindList {
		return resp.NewError(store.ErrWrongType.Error())
	}
	v, ok := it.List.PopBack()
	if !ok {
		return resp.NewNullBulk()
	}
	ctx.DB.Touch(key)
	ctx.DB.DeleteEmptyIfCollection(key)
	appendWrite(ctx, "RPOP", args[0])
	return resp.NewBulkString(v)
}

func cmdLRange(ctx *Context, args [][]byte) resp.Value {
	it, ok := ctx.DB.Get(string(args[0]))
	if !ok {
		return resp.NewArray(nil)
	}
	if it.Kind != store.KindList {
		return resp.NewError(store.ErrWrongType.Error())
	}
	start, ok1 := parseInt(args[1])
	stop, ok2 := parseInt(args[2])
	if !ok1 || !ok2 {
		return resp.NewError("ERR value is not an integer or out of range")
	}
	items := it.List.RangeInclusive(int(start), int(stop))
	vals := make([]resp.Value, len(items))
	for i, s := range items {
		vals[i] = resp.NewBulkString(s)
	}
	return resp.NewArray(vals)
}

func cmdLLen(ctx *Context, args [][]byte) resp.Value {
	it, ok := ctx.DB.Get(string(args[0]))
	if !ok {
		return resp.NewInteger(0)
	}
	if it.Kind != store.KindList {
		return resp.NewError(store.ErrWrongType.Error())
	}
	return resp.NewInteger(int64(it.List.Len()))
}

func cmdLIndex(ctx *Context, args [][]byte) resp.Value {
	it, ok := ctx.DB.Get(string(args[0]))
	if !ok {
		return resp.NewNullBulk()
	}
	if it.Kind != store.KindList {
		return resp.NewError(store.ErrWrongType.Error())
	}
	idx, ok := parseInt(args[1])
	if !ok {
		return resp.NewError("ERR value is not an integer or out of range")
	}
	v, found := it.List.Index(int(idx))
	if !found {
		return resp.NewNullBulk()
	}
	return resp.NewBulkString(v)
}

func cmdLSet(ctx *Context, args [][]byte) resp.Value {
	it, ok := ctx.DB.Get(string(args[0]))
	if !ok {
		return resp.NewError("ERR no such key")
	}
	if it.Kind != store.KindList {
		return resp.NewError(store.ErrWrongType.Error())
	}
	idx, ok := parseInt(args[1])
	if !ok {
		return resp.NewError("ERR value is not an integer or out of range")
	}
	if !it.List.Set(int(idx), string(args[2])) {
		return resp.NewError("ERR index out of range")
	}
	ctx.DB.Touch(string(args[0]))
	appendWrite(ctx, "LSET", args...)
	return resp.OK()
}

func cmdLTrim(ctx *Context, args [][]byte) resp.Value {
	key := string(args[0])
	it, ok := ctx.DB.Get(key)
	if !ok {
		return resp.OK()
	}
	if it.Kind != store.KindList {
		return resp.NewError(store.ErrWrongType.Error())
	}
	start, ok1 := parseInt(args[1])
	stop, ok2 := parseInt(args[2])
	if !ok1 || !ok2 {
		return resp.NewError("ERR value is not an integer or out of range")
	}
	it.List.Trim(int(start), int(stop))
	ctx.DB.Touch(key)
	ctx.DB.DeleteEmptyIfCollection(key)
	appendWrite(ctx, "LTRIM", args...)
	return resp.OK()
}
