package command

import (
	"github.com/echojfree/mini-redis/internal/resp"
	"github.com/echojfree/mini-redis/internal/store"
)

func RegisterSetCommands(reg *Registry) {
	reg.Register(Entry{Name: "SADD", MinArgs: 2, MaxArgs: MinMaxUnbounded, Handler: cmdSAdd})
	reg.Register(Entry{Name: "SREM", MinArgs: 2, MaxArgs: MinMaxUnbounded, Handler: cmdSRem})
	reg.Register(Entry{Name: "SMEMBERS", MinArgs: 1, MaxArgs: 1, Handler: cmdSMembers})
	reg.Register(Entry{Name: "SISMEMBER", MinArgs: 2, MaxArgs: 2, Handler: cmdSIsMember})
	reg.Register(Entry{Name: "SCARD", MinArgs: 1, MaxArgs: 1, Handler: cmdSCard})
	reg.Register(Entry{Name: "SRANDMEMBER", MinArgs: 1, MaxArgs: 2, Handler: cmdSRandMember})
	reg.Register(Entry{Name: "SPOP", MinArgs: 1, MaxArgs: 2, Handler: cmdSPop})
	reg.Register(Entry{Name: "SINTER", MinArgs: 1, MaxArgs: MinMaxUnbounded, Handler: cmdSInter})
	reg.Register(Entry{Name: "SUNION", MinArgs: 1, MaxArgs: MinMaxUnbounded, Handler: cmdSUnion})
	reg.Register(Entry{Name: "SDIFF", MinArgs: 1, MaxArgs: MinMaxUnbounded, Handler: cmdSDiff})
	reg.Register(Entry{Name: "SMOVE", MinArgs: 3, MaxArgs: 3, Handler: cmdSMove})
}

func getOrCreateSet(ctx *Context, key string) (*store.Item, bool) {
	it, ok := ctx.DB.Get(key)
	if !ok {
		it = store.NewSetItem()
		ctx.DB.Set(key, it)
		return it, true
	}
	return it, it.Kind == store.KindSet
}

func setFor(ctx *Context, key string) (*store.Set, error) {
	it, ok := ctx.DB.Get(key)
	if !ok {
		return store.NewSet(), nil
	}
	if it.Kind != store.KindSet {
		return nil, store.ErrWrongType
	}
	return it.Set, nil
}

func cmdSAdd(ctx *Context, args [][]byte) resp.Value {
	key := string(args[0])
	it, okKind := getOrCreateSet(ctx, key)
	if !okKind {
		return resp.NewError(store.ErrWrongType.Error())
	}
	members := make([]string, len(args)-1)
	for i, m := range args[1:] {
		members[i] = string(m)
	}
	n := it.Set.Add(members...)
	if n > 0 {
		ctx.DB.Touch(key)
		appendWrite(ctx, "SADD", args...)
	}
	return resp.NewInteger(int64(n))
}

func cmdSRem(ctx *Context, args [][]byte) resp.Value {
	key := string(args[0])
	it, ok := ctx.DB.Get(key)
	if !ok {
		return resp.NewInteger(0)
	}
	if it.Kind != store.KindSet {
		return resp.NewError(store.ErrWrongType.Error())
	}
	members := make([]string, len(args)-1)
	for i, m := range args[1:] {
		members[i] = string(m)
	}
	n := it.Set.Rem(members...)
	if n > 0 {
		ctx.DB.Touch(key)
		ctx.DB.DeleteEmptyIfCollection(key)
		appendWrite(ctx, "SREM", args...)
	}
	return resp.NewInteger(int64(n))
}

func cmdSMembers(ctx *Context, args [][]byte) resp.Value {
	it, ok := ctx.DB.Get(string(args[0]))
	if !ok {
		return resp.NewArray(nil)
	}
	if it.Kind != store.KindSet {
		return resp.NewError(store.ErrWrongType.Error())
	}
	return membersToArray(it.Set.Members())
}

func membersToArray(members []string) resp.Value {
	vals := make([]resp.Value, len(members))
	for i, m := range members {
		vals[i] = resp.NewBulkString(m)
	}
	return resp.NewArray(vals)
}

func cmdSIsMember(ctx *Context, args [][]byte) resp.Value {
	it, ok := ctx.DB.Get(string(args[0]))
	if !ok {
		return resp.NewInteger(0)
	}
	if it.Kind != store.KindSet {
		return resp.NewError(store.ErrWrongType.Error())
	}
	return resp.NewInteger(boolToInt(it.Set.Contains(string(args[1]))))
}

func cmdSCard(ctx *Context, args [][]byte) resp.Value {
	it, ok := ctx.DB.Get(string(args[0]))
	if !ok {
		return resp.NewInteger(0)
	}
	if it.Kind != store.KindSet {
		return resp.NewError(store.ErrWrongType.Error())
	}
	return resp.NewInteger(int64(it.Set.Card()))
}

func cmdSRandMember(ctx *Context, args [][]byte) resp.Value {
	it, ok := ctx.DB.Get(string(args[0]))
	if !ok {
		if len(args) == 2 {
			return resp.NewArray(nil)
		}
		return resp.NewNullBulk()
	}
	if it.Kind != store.KindSet {
		return resp.NewError(store.ErrWrongType.Error())
	}
	if len(args) == 1 {
		members := it.Set.RandomSample(1)
		if len(members) == 0 {
			return resp.NewNullBulk()
		}
		return resp.NewBulkString(members[0])
	}
	n, ok := parseInt(args[1])
	if !ok {
		return resp.NewError("ERR value is not an integer or out of range")
	}
	return membersToArray(it.Set.RandomSample(int(n)))
}

func cmdSPop(ctx *Context, args [][]byte) resp.Value {
	key := string(args[0])
	it, ok := ctx.DB.Get(key)
	if !ok {
		if len(args) == 2 {
			return resp.NewArray(nil)
		}
		return resp.NewNullBulk()
	}
	if it.Kind != store.KindSet {
		return resp.NewError(store.ErrWrongType.Error())
	}
	count := 1
	multi := len(args) == 2
	if multi {
		n, ok := parseInt(args[1])
		if !ok {
			return resp.NewError("ERR value is not an integer or out of range")
		}
		count = int(n)
	}
	popped := it.Set.PopRandom(count)
	if len(popped) > 0 {
		ctx.DB.Touch(key)
		ctx.DB.DeleteEmptyIfCollection(key)
		appendWrite(ctx, "SREM", append([][]byte{args[0]}, stringsToBytes(popped)...)...)
	}
	if multi {
		return membersToArray(popped)
	}
	if len(popped) == 0 {
		return resp.NewNullBulk()
	}
	return resp.NewBulkString(popped[0])
}

func stringsToBytes(ss []string) [][]byte {
	out := make([][]byte, len(ss))
	for i, s := range ss {
		out[i] = []byte(s)
	}
	return out
}

func cmdSInter(ctx *Context, args [][]byte) resp.Value {
	return setOp(ctx, args, (*store.Set).Inter)
}

func cmdSUnion(ctx *Context, args [][]byte) resp.Value {
	return setOp(ctx, args, (*store.Set).Union)
}

func cmdSDiff(ctx *Context, args [][]byte) resp.Value {
	return setOp(ctx, args, (*store.Set).Diff)
}

func setOp(ctx *Context, args [][]byte, op func(*store.Set, *store.Set) *store.Set) resp.Value {
	first, err := setFor(ctx, string(args[0]))
	if err != nil {
		return typeError(err)
	}
	acc := first
	for _, k := range args[1:] {
		next, err := setFor(ctx, string(k))
		if err != nil {
			return typeError(err)
		}
		acc = op(acc, next)
	}
	return membersToArray(acc.Members())
}

func cmdSMove(ctx *Context, args [][]byte) resp.Value {
	srcKey, dstKey, member := string(args[0]), string(args[1]), string(args[2])
	src, ok := ctx.DB.Get(srcKey)
	if !ok {
		return resp.NewInteger(0)
	}
	if src.Kind != store.KindSet {
		return resp.NewError(store.ErrWrongType.Error())
	}
	if !src.Set.Contains(member) {
		return resp.NewInteger(0)
	}
	dst, okKind := getOrCreateSet(ctx, dstKey)
	if !okKind {
		return resp.NewError(store.ErrWrongType.Error())
	}
	src.Set.Rem(member)
	dst.Set.Add(member)
	ctx.DB.Touch(srcKey)
	ctx.DB.Touch(dstKey)
	ctx.DB.DeleteEmptyIfCollection(srcKey)
	appendWrite(ctx, "SMOVE", args...)
	return resp.NewInteger(1)
}
