package command

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/mem"

	"github.com/echojfree/mini-redis/internal/config"
	"github.com/echojfree/mini-redis/internal/resp"
)

func RegisterAdminCommands(reg *Registry) {
	reg.Register(Entry{Name: "SAVE", MinArgs: 0, MaxArgs: 0, Handler: cmdSave})
	reg.Register(Entry{Name: "BGSAVE", MinArgs: 0, MaxArgs: 0, Handler: cmdBGSave})
	reg.Register(Entry{Name: "BGREWRITEAOF", MinArgs: 0, MaxArgs: 0, Handler: cmdBGRewriteAOF})
	reg.Register(Entry{Name: "FLUSHDB", MinArgs: 0, MaxArgs: 1, Handler: cmdFlushDB})
	reg.Register(Entry{Name: "FLUSHALL", MinArgs: 0, MaxArgs: 1, Handler: cmdFlushAll})
	reg.Register(Entry{Name: "DBSIZE", MinArgs: 0, MaxArgs: 0, Handler: cmdDBSize})
	reg.Register(Entry{Name: "CONFIG", MinArgs: 2, MaxArgs: MinMaxUnbounded, Handler: cmdConfig})
	reg.Register(Entry{Name: "COMMAND", MinArgs: 0, MaxArgs: MinMaxUnbounded, Handler: cmdCommand(reg)})
	reg.Register(Entry{Name: "INFO", MinArgs: 0, MaxArgs: 1, Handler: cmdInfo})
	reg.Register(Entry{Name: "CLIENT", MinArgs: 1, MaxArgs: MinMaxUnbounded, Handler: cmdClient})
}

func cmdSave(ctx *Context, args [][]byte) resp.Value {
	if err := ctx.Persist.Save(); err != nil {
		return resp.Errorf("ERR %s", err.Error())
	}
	return resp.OK()
}

func cmdBGSave(ctx *Context, args [][]byte) resp.Value {
	ctx.Persist.BGSave()
	return resp.NewSimpleString("Background saving started")
}

func cmdBGRewriteAOF(ctx *Context, args [][]byte) resp.Value {
	ctx.Persist.BGRewriteAOF()
	return resp.NewSimpleString("Background append only file rewriting started")
}

func cmdFlushDB(ctx *Context, args [][]byte) resp.Value {
	ctx.DB.Flush()
	appendWrite(ctx, "FLUSHDB")
	return resp.OK()
}

func cmdFlushAll(ctx *Context, args [][]byte) resp.Value {
	ctx.Databases.FlushAll()
	appendWrite(ctx, "FLUSHALL")
	return resp.OK()
}

func cmdDBSize(ctx *Context, args [][]byte) resp.Value {
	return resp.NewInteger(int64(ctx.DB.Size()))
}

// cmdConfig implements the GET/SET subset of CONFIG this server exposes:
// GET for maxmemory, maxmemory-policy, maxmemory-samples, maxclients,
// appendonly, appendfsync, dir and databases (any other name yields an
// empty array), and SET for the handful that are safe to change while
// running (maxmemory and maxmemory-policy).
func cmdConfig(ctx *Context, args [][]byte) resp.Value {
	sub := strings.ToUpper(string(args[0]))
	switch sub {
	case "GET":
		if len(args) != 2 {
			return wrongArgs("CONFIG")
		}
		name := strings.ToLower(string(args[1]))
		val, ok := configGet(ctx, name)
		if !ok {
			return resp.NewArray(nil)
		}
		return resp.NewArray([]resp.Value{resp.NewBulkString(name), resp.NewBulkString(val)})
	case "SET":
		if len(args) != 3 {
			return wrongArgs("CONFIG")
		}
		name := strings.ToLower(string(args[1]))
		if !configSet(ctx, name, string(args[2])) {
			return resp.NewError("ERR unsupported CONFIG parameter or value")
		}
		return resp.OK()
	default:
		return resp.Errorf("ERR unknown CONFIG subcommand '%s'", sub)
	}
}

func configGet(ctx *Context, name string) (string, bool) {
	cfg := ctx.Config
	switch name {
	case "maxmemory":
		return strconv.FormatInt(cfg.MaxMemory, 10), true
	case "maxmemory-policy":
		return string(cfg.Eviction), true
	case "maxmemory-samples":
		return strconv.Itoa(cfg.MaxMemorySamples), true
	case "maxclients":
		return strconv.Itoa(cfg.MaxClients), true
	case "appendonly":
		if cfg.AofEnabled {
			return "yes", true
		}
		return "no", true
	case "appendfsync":
		return string(cfg.AofFsync), true
	case "dir":
		return cfg.Dir, true
	case "databases":
		return strconv.Itoa(cfg.Databases), true
	default:
		return "", false
	}
}

func configSet(ctx *Context, name, value string) bool {
	cfg := ctx.Config
	switch name {
	case "maxmemory":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return false
		}
		cfg.MaxMemory = n
		return true
	case "maxmemory-policy":
		cfg.Eviction = config.Eviction(value)
		return true
	default:
		return false
	}
}

// cmdInfo reports server/clients/memory/persistence/keyspace sections in
// the traditional "# Section\nkey:value\r\n" INFO format, grounded on the
// teacher's RedisInfo.Build/Print (itself backed by gopsutil for total
// system memory).
func cmdInfo(ctx *Context, args [][]byte) resp.Value {
	var b strings.Builder

	exePath, _ := os.Executable()
	fmt.Fprintf(&b, "# Server\r\n")
	fmt.Fprintf(&b, "redis_version:mini-redis-0.1\r\n")
	fmt.Fprintf(&b, "process_id:%d\r\n", os.Getpid())
	fmt.Fprintf(&b, "tcp_port:%d\r\n", ctx.Config.Port)
	fmt.Fprintf(&b, "uptime_in_seconds:%d\r\n", int64(time.Since(ctx.StartedAt).Seconds()))
	fmt.Fprintf(&b, "executable:%s\r\n", exePath)
	b.WriteString("\r\n")

	clients := 0
	totalConns := int64(0)
	if ctx.Stats != nil {
		clients = ctx.Stats.ClientCount()
		totalConns = ctx.Stats.TotalConnections()
	}
	fmt.Fprintf(&b, "# Clients\r\n")
	fmt.Fprintf(&b, "connected_clients:%d\r\n", clients)
	b.WriteString("\r\n")

	var totalSystemMemory uint64
	if vm, err := mem.VirtualMemory(); err == nil {
		totalSystemMemory = vm.Total
	}
	fmt.Fprintf(&b, "# Memory\r\n")
	fmt.Fprintf(&b, "maxmemory:%d\r\n", ctx.Config.MaxMemory)
	fmt.Fprintf(&b, "maxmemory_policy:%s\r\n", ctx.Config.Eviction)
	fmt.Fprintf(&b, "total_system_memory:%d\r\n", totalSystemMemory)
	b.WriteString("\r\n")

	fmt.Fprintf(&b, "# Persistence\r\n")
	fmt.Fprintf(&b, "aof_enabled:%d\r\n", boolToInt(ctx.Config.AofEnabled))
	fmt.Fprintf(&b, "aof_fsync_policy:%s\r\n", ctx.Config.AofFsync)
	b.WriteString("\r\n")

	fmt.Fprintf(&b, "# Stats\r\n")
	fmt.Fprintf(&b, "total_connections_received:%d\r\n", totalConns)
	b.WriteString("\r\n")

	fmt.Fprintf(&b, "# Keyspace\r\n")
	for i := 0; i < ctx.Databases.NumDBs(); i++ {
		n := ctx.Databases.DB(i).Size()
		if n > 0 {
			fmt.Fprintf(&b, "db%d:keys=%d\r\n", i, n)
		}
	}

	return resp.NewBulkString(b.String())
}

// cmdClient implements the CLIENT LIST/GETNAME/ID subset clients probe for
// introspection; SETNAME and other write subcommands are accepted as no-ops.
func cmdClient(ctx *Context, args [][]byte) resp.Value {
	switch strings.ToUpper(string(args[0])) {
	case "LIST":
		n := 0
		if ctx.Stats != nil {
			n = ctx.Stats.ClientCount()
		}
		return resp.NewBulkString(fmt.Sprintf("connected_clients=%d\n", n))
	case "ID":
		return resp.NewInteger(ctx.Client.ID)
	case "GETNAME":
		return resp.NewBulkString("")
	case "SETNAME":
		return resp.OK()
	default:
		return resp.OK()
	}
}

// cmdCommand returns a minimal introspection reply listing every registered
// command name, enough for clients that probe COMMAND before pipelining.
func cmdCommand(reg *Registry) Handler {
	return func(ctx *Context, args [][]byte) resp.Value {
		names := reg.Names()
		vals := make([]resp.Value, len(names))
		for i, n := range names {
			vals[i] = resp.NewArray([]resp.Value{resp.NewBulkString(strings.ToLower(n))})
		}
		return resp.NewArray(vals)
	}
}
