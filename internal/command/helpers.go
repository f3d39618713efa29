package command

import (
	"errors"
	"strconv"

	"github.com/echojfree/mini-redis/internal/resp"
	"github.com/echojfree/mini-redis/internal/store"
)

// typeError translates a store-level ErrWrongType/ErrNotInteger/etc into the
// matching reply, or falls back to a generic value error.
func typeError(err error) resp.Value {
	switch {
	case errors.Is(err, store.ErrWrongType):
		return resp.NewError(err.Error())
	case errors.Is(err, store.ErrNotInteger):
		return resp.NewError("ERR value is not an integer or out of range")
	case errors.Is(err, store.ErrNotFloat):
		return resp.NewError("ERR value is not a valid float")
	case errors.Is(err, store.ErrOverflow):
		return resp.NewError("ERR increment or decrement would overflow")
	default:
		return resp.Errorf("ERR %s", err.Error())
	}
}

func parseInt(s []byte) (int64, bool) {
	n, err := strconv.ParseInt(string(s), 10, 64)
	return n, err == nil
}

func parseFloat(s []byte) (float64, bool) {
	n, err := strconv.ParseFloat(string(s), 64)
	return n, err == nil
}

// appendWrite records a just-executed write to the AOF under the command's
// canonical name.
func appendWrite(ctx *Context, name string, args ...[]byte) {
	if ctx.Persist != nil {
		ctx.Persist.AppendCommand(ctx.Client.DatabaseID, name, args)
	}
}

func wrongArgs(name string) resp.Value {
	return resp.Errorf("ERR wrong number of arguments for '%s' command", name)
}
