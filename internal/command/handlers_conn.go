package command

import (
	"github.com/echojfree/mini-redis/internal/resp"
)

func RegisterConnCommands(reg *Registry) {
	reg.Register(Entry{Name: "PING", MinArgs: 0, MaxArgs: 1, Handler: cmdPing, PubSubAllowed: true})
	reg.Register(Entry{Name: "ECHO", MinArgs: 1, MaxArgs: 1, Handler: cmdEcho})
	reg.Register(Entry{Name: "SELECT", MinArgs: 1, MaxArgs: 1, Handler: cmdSelect})
	reg.Register(Entry{Name: "QUIT", MinArgs: 0, MaxArgs: 0, Handler: cmdQuit, PubSubAllowed: true})
	reg.Register(Entry{Name: "AUTH", MinArgs: 1, MaxArgs: 2, Handler: cmdAuth})
}

func cmdPing(ctx *Context, args [][]byte) resp.Value {
	if len(args) == 1 {
		return resp.NewBulkString(string(args[0]))
	}
	return resp.NewSimpleString("PONG")
}

func cmdEcho(ctx *Context, args [][]byte) resp.Value {
	return resp.NewBulkString(string(args[0]))
}

func cmdSelect(ctx *Context, args [][]byte) resp.Value {
	n, ok := parseInt(args[0])
	if !ok || n < 0 || int(n) >= ctx.Databases.NumDBs() {
		return resp.NewError("ERR DB index is out of range")
	}
	ctx.Client.DatabaseID = int(n)
	return resp.OK()
}

func cmdQuit(ctx *Context, args [][]byte) resp.Value {
	return resp.OK()
}

func cmdAuth(ctx *Context, args [][]byte) resp.Value {
	password := string(args[len(args)-1])
	if !ctx.Config.RequirePass {
		return resp.NewError("ERR Client sent AUTH, but no password is set")
	}
	if password != ctx.Config.Password {
		return resp.NewError("ERR invalid password")
	}
	ctx.Client.Authenticated = true
	return resp.OK()
}
