package command

import (
	"github.com/echojfree/mini-redis/internal/resp"
	"github.com/echojfree/mini-redis/internal/session"
)

func RegisterPubSubCommands(reg *Registry) {
	reg.Register(Entry{Name: "SUBSCRIBE", MinArgs: 1, MaxArgs: MinMaxUnbounded, Handler: cmdSubscribe, PubSubAllowed: true})
	reg.Register(Entry{Name: "UNSUBSCRIBE", MinArgs: 0, MaxArgs: MinMaxUnbounded, Handler: cmdUnsubscribe, PubSubAllowed: true})
	reg.Register(Entry{Name: "PSUBSCRIBE", MinArgs: 1, MaxArgs: MinMaxUnbounded, Handler: cmdPSubscribe, PubSubAllowed: true})
	reg.Register(Entry{Name: "PUNSUBSCRIBE", MinArgs: 0, MaxArgs: MinMaxUnbounded, Handler: cmdPUnsubscribe, PubSubAllowed: true})
	reg.Register(Entry{Name: "PUBLISH", MinArgs: 2, MaxArgs: 2, Handler: cmdPublish})
}

// subscriberAdapter lets a session.Client satisfy pubsub.Subscriber via the
// WriteReply it already exposes for out-of-band frames.
type subscriberAdapter struct{ c *session.Client }

func (s subscriberAdapter) ID() int64                 { return s.c.ID }
func (s subscriberAdapter) Deliver(v resp.Value) error { return s.c.WriteReply(v) }

func subAckFrame(kind, name string, count int) resp.Value {
	var nameVal resp.Value
	if name == "" {
		nameVal = resp.NewNullBulk()
	} else {
		nameVal = resp.NewBulkString(name)
	}
	return resp.NewArray([]resp.Value{
		resp.NewBulkString(kind),
		nameVal,
		resp.NewInteger(int64(count)),
	})
}

// emitAcks writes every ack but the last directly to the connection and
// returns the last one, so the dispatcher's normal single-reply write
// completes the sequence instead of duplicating it.
func emitAcks(ctx *Context, frames []resp.Value) resp.Value {
	last := len(frames) - 1
	for i := 0; i < last; i++ {
		_ = ctx.Client.WriteReply(frames[i])
	}
	return frames[last]
}

func cmdSubscribe(ctx *Context, args [][]byte) resp.Value {
	sub := subscriberAdapter{ctx.Client}
	frames := make([]resp.Value, len(args))
	for i, a := range args {
		ch := string(a)
		ctx.Hub.Subscribe(ch, sub)
		ctx.Client.Channels[ch] = struct{}{}
		frames[i] = subAckFrame("subscribe", ch, ctx.Client.SubscriptionCount())
	}
	return emitAcks(ctx, frames)
}

func cmdUnsubscribe(ctx *Context, args [][]byte) resp.Value {
	channels := args
	if len(channels) == 0 {
		for ch := range ctx.Client.Channels {
			channels = append(channels, []byte(ch))
		}
	}
	if len(channels) == 0 {
		return subAckFrame("unsubscribe", "", 0)
	}
	frames := make([]resp.Value, len(channels))
	for i, a := range channels {
		ch := string(a)
		ctx.Hub.Unsubscribe(ch, ctx.Client.ID)
		delete(ctx.Client.Channels, ch)
		frames[i] = subAckFrame("unsubscribe", ch, ctx.Client.SubscriptionCount())
	}
	return emitAcks(ctx, frames)
}

func cmdPSubscribe(ctx *Context, args [][]byte) resp.Value {
	sub := subscriberAdapter{ctx.Client}
	frames := make([]resp.Value, len(args))
	for i, a := range args {
		pat := string(a)
		ctx.Hub.PSubscribe(pat, sub)
		ctx.Client.Patterns[pat] = struct{}{}
		frames[i] = subAckFrame("psubscribe", pat, ctx.Client.SubscriptionCount())
	}
	return emitAcks(ctx, frames)
}

func cmdPUnsubscribe(ctx *Context, args [][]byte) resp.Value {
	patterns := args
	if len(patterns) == 0 {
		for p := range ctx.Client.Patterns {
			patterns = append(patterns, []byte(p))
		}
	}
	if len(patterns) == 0 {
		return subAckFrame("punsubscribe", "", 0)
	}
	frames := make([]resp.Value, len(patterns))
	for i, a := range patterns {
		pat := string(a)
		ctx.Hub.PUnsubscribe(pat, ctx.Client.ID)
		delete(ctx.Client.Patterns, pat)
		frames[i] = subAckFrame("punsubscribe", pat, ctx.Client.SubscriptionCount())
	}
	return emitAcks(ctx, frames)
}

func cmdPublish(ctx *Context, args [][]byte) resp.Value {
	n := ctx.Hub.Publish(string(args[0]), string(args[1]))
	return resp.NewInteger(int64(n))
}
