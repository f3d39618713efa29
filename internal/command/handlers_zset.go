package command

import (
	"strconv"

	"github.com/echojfree/mini-redis/internal/resp"
	"github.com/echojfree/mini-redis/internal/store"
)

func RegisterZSetCommands(reg *Registry) {
	reg.Register(Entry{Name: "ZADD", MinArgs: 3, MaxArgs: MinMaxUnbounded, Handler: cmdZAdd})
	reg.Register(Entry{Name: "ZREM", MinArgs: 2, MaxArgs: MinMaxUnbounded, Handler: cmdZRem})
	reg.Register(Entry{Name: "ZSCORE", MinArgs: 2, MaxArgs: 2, Handler: cmdZScore})
	reg.Register(Entry{Name: "ZCARD", MinArgs: 1, MaxArgs: 1, Handler: cmdZCard})
	reg.Register(Entry{Name: "ZRANK", MinArgs: 2, MaxArgs: 2, Handler: cmdZRank})
	reg.Register(Entry{Name: "ZREVRANK", MinArgs: 2, MaxArgs: 2, Handler: cmdZRevRank})
	reg.Register(Entry{Name: "ZRANGE", MinArgs: 3, MaxArgs: 4, Handler: cmdZRange})
	reg.Register(Entry{Name: "ZREVRANGE", MinArgs: 3, MaxArgs: 4, Handler: cmdZRevRange})
	reg.Register(Entry{Name: "ZRANGEBYSCORE", MinArgs: 3, MaxArgs: MinMaxUnbounded, Handler: cmdZRangeByScore})
	reg.Register(Entry{Name: "ZCOUNT", MinArgs: 3, MaxArgs: 3, Handler: cmdZCount})
	reg.Register(Entry{Name: "ZINCRBY", MinArgs: 3, MaxArgs: 3, Handler: cmdZIncrBy})
}

func getOrCreateZSet(ctx *Context, key string) (*store.Item, bool) {
	it, ok := ctx.DB.Get(key)
	if !ok {
		it = store.NewZSetItem()
		ctx.DB.Set(key, it)
		return it, true
	}
	return it, it.Kind == store.KindZSet
}

func cmdZAdd(ctx *Context, args [][]byte) resp.Value {
	if len(args[1:])%2 != 0 {
		return wrongArgs("ZADD")
	}
	key := string(args[0])
	it, okKind := getOrCreateZSet(ctx, key)
	if !okKind {
		return resp.NewError(store.ErrWrongType.Error())
	}
	added := 0
	for i := 1; i < len(args); i += 2 {
		score, ok := parseFloat(args[i])
		if !ok {
			return resp.NewError("ERR value is not a valid float")
		}
		if it.ZSet.Add(score, string(args[i+1])) == store.Added {
			added++
		}
	}
	ctx.DB.Touch(key)
	appendWrite(ctx, "ZADD", args...)
	return resp.NewInteger(int64(added))
}

func cmdZRem(ctx *Context, args [][]byte) resp.Value {
	key := string(args[0])
	it, ok := ctx.DB.Get(key)
	if !ok {
		return resp.NewInteger(0)
	}
	if it.Kind != store.KindZSet {
		return resp.NewError(store.ErrWrongType.Error())
	}
	members := make([]string, len(args)-1)
	for i, m := range args[1:] {
		members[i] = string(m)
	}
	n := it.ZSet.Rem(members...)
	if n > 0 {
		ctx.DB.Touch(key)
		ctx.DB.DeleteEmptyIfCollection(key)
		appendWrite(ctx, "ZREM", args...)
	}
	return resp.NewInteger(int64(n))
}

func cmdZScore(ctx *Context, args [][]byte) resp.Value {
	it, ok := ctx.DB.Get(string(args[0]))
	if !ok {
		return resp.NewNullBulk()
	}
	if it.Kind != store.KindZSet {
		return resp.NewError(store.ErrWrongType.Error())
	}
	score, ok := it.ZSet.Score(string(args[1]))
	if !ok {
		return resp.NewNullBulk()
	}
	return resp.NewBulkString(formatScore(score))
}

func cmdZCard(ctx *Context, args [][]byte) resp.Value {
	it, ok := ctx.DB.Get(string(args[0]))
	if !ok {
		return resp.NewInteger(0)
	}
	if it.Kind != store.KindZSet {
		return resp.NewError(store.ErrWrongType.Error())
	}
	return resp.NewInteger(int64(it.ZSet.Card()))
}

func cmdZRank(ctx *Context, args [][]byte) resp.Value {
	return zRank(ctx, args, false)
}

func cmdZRevRank(ctx *Context, args [][]byte) resp.Value {
	return zRank(ctx, args, true)
}

func zRank(ctx *Context, args [][]byte, reverse bool) resp.Value {
	it, ok := ctx.DB.Get(string(args[0]))
	if !ok {
		return resp.NewNullBulk()
	}
	if it.Kind != store.KindZSet {
		return resp.NewError(store.ErrWrongType.Error())
	}
	rank := it.ZSet.Rank(string(args[1]), reverse)
	if rank < 0 {
		return resp.NewNullBulk()
	}
	return resp.NewInteger(int64(rank))
}

func cmdZRange(ctx *Context, args [][]byte) resp.Value {
	return zRangeByRank(ctx, args, false)
}

func cmdZRevRange(ctx *Context, args [][]byte) resp.Value {
	return zRangeByRank(ctx, args, true)
}

func zRangeByRank(ctx *Context, args [][]byte, reverse bool) resp.Value {
	it, ok := ctx.DB.Get(string(args[0]))
	if !ok {
		return resp.NewArray(nil)
	}
	if it.Kind != store.KindZSet {
		return resp.NewError(store.ErrWrongType.Error())
	}
	start, ok1 := parseInt(args[1])
	stop, ok2 := parseInt(args[2])
	if !ok1 || !ok2 {
		return resp.NewError("ERR value is not an integer or out of range")
	}
	withScores := false
	if len(args) == 4 {
		if upperString(args[3]) != "WITHSCORES" {
			return resp.NewError("ERR syntax error")
		}
		withScores = true
	}
	entries := it.ZSet.RangeByRank(int(start), int(stop), reverse)
	return entriesToArray(entries, withScores)
}

func entriesToArray(entries []store.RangeEntry, withScores bool) resp.Value {
	cap := len(entries)
	if withScores {
		cap *= 2
	}
	vals := make([]resp.Value, 0, cap)
	for _, e := range entries {
		vals = append(vals, resp.NewBulkString(e.Member))
		if withScores {
			vals = append(vals, resp.NewBulkString(formatScore(e.Score)))
		}
	}
	return resp.NewArray(vals)
}

func cmdZRangeByScore(ctx *Context, args [][]byte) resp.Value {
	it, ok := ctx.DB.Get(string(args[0]))
	if !ok {
		return resp.NewArray(nil)
	}
	if it.Kind != store.KindZSet {
		return resp.NewError(store.ErrWrongType.Error())
	}
	min, max, ok := parseScoreRange(args[1], args[2])
	if !ok {
		return resp.NewError("ERR min or max is not a float")
	}
	withScores := false
	if len(args) >= 4 {
		if upperString(args[3]) != "WITHSCORES" {
			return resp.NewError("ERR syntax error")
		}
		withScores = true
	}
	entries := it.ZSet.RangeByScore(min, max)
	return entriesToArray(entries, withScores)
}

func cmdZCount(ctx *Context, args [][]byte) resp.Value {
	it, ok := ctx.DB.Get(string(args[0]))
	if !ok {
		return resp.NewInteger(0)
	}
	if it.Kind != store.KindZSet {
		return resp.NewError(store.ErrWrongType.Error())
	}
	min, max, ok := parseScoreRange(args[1], args[2])
	if !ok {
		return resp.NewError("ERR min or max is not a float")
	}
	return resp.NewInteger(int64(it.ZSet.CountByScore(min, max)))
}

func cmdZIncrBy(ctx *Context, args [][]byte) resp.Value {
	delta, ok := parseFloat(args[1])
	if !ok {
		return resp.NewError("ERR value is not a valid float")
	}
	key := string(args[0])
	it, okKind := getOrCreateZSet(ctx, key)
	if !okKind {
		return resp.NewError(store.ErrWrongType.Error())
	}
	newScore := it.ZSet.IncrBy(string(args[2]), delta)
	ctx.DB.Touch(key)
	appendWrite(ctx, "ZADD", args[0], []byte(formatScore(newScore)), args[2])
	return resp.NewBulkString(formatScore(newScore))
}

func parseScoreRange(minRaw, maxRaw []byte) (float64, float64, bool) {
	min, ok1 := parseFloat(minRaw)
	max, ok2 := parseFloat(maxRaw)
	return min, max, ok1 && ok2
}

func formatScore(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
