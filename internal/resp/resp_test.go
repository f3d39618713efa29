package resp

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []Value{
		NewSimpleString("OK"),
		NewError("ERR boom"),
		NewInteger(42),
		NewInteger(-7),
		NewBulkString("hello"),
		NewNullBulk(),
		NewNullArray(),
		NewArray([]Value{NewInteger(1), NewBulkString("a"), NewArray([]Value{NewSimpleString("x")})}),
	}
	for _, v := range cases {
		wire := Encode(v)
		d := NewDecoder(bytes.NewReader(wire))
		got, err := d.ReadMessage()
		require.NoError(t, err)
		assertValueEqual(t, v, got)
	}
}

func assertValueEqual(t *testing.T, want, got Value) {
	t.Helper()
	assert.Equal(t, want.Type, got.Type)
	assert.Equal(t, want.Null, got.Null)
	switch want.Type {
	case SimpleString, Error:
		assert.Equal(t, want.Str, got.Str)
	case Integer:
		assert.Equal(t, want.Int, got.Int)
	case Bulk:
		assert.Equal(t, want.Bulk, got.Bulk)
	case Array:
		require.Len(t, got.Arr, len(want.Arr))
		for i := range want.Arr {
			assertValueEqual(t, want.Arr[i], got.Arr[i])
		}
	}
}

func TestDecodePartialFrameDoesNotProduceMessage(t *testing.T) {
	full := Encode(NewArray([]Value{NewBulkString("PING")}))
	for i := 1; i < len(full); i++ {
		r, w := io.Pipe()
		d := NewDecoder(r)
		done := make(chan struct{})
		var gotErr error
		var gotVal Value
		go func() {
			gotVal, gotErr = d.ReadMessage()
			close(done)
		}()
		w.Write(full[:i])
		select {
		case <-done:
			t.Fatalf("decoder produced a message from a partial frame of length %d: %+v (err=%v)", i, gotVal, gotErr)
		default:
		}
		w.Write(full[i:])
		<-done
		require.NoError(t, gotErr)
		assertValueEqual(t, NewArray([]Value{NewBulkString("PING")}), gotVal)
		w.Close()
	}
}

func TestReadMessageInlineCommand(t *testing.T) {
	d := NewDecoder(bytes.NewReader([]byte("PING hello\r\n")))
	v, err := d.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, Array, v.Type)
	require.Equal(t, []string{"PING", "hello"}, v.AsArgs())
}

func TestReadMessageProtocolErrors(t *testing.T) {
	cases := []string{
		"*-2\r\n",
		"$" + "999999999999\r\nxx\r\n",
		"*1\r\n$3\r\nab\r\n",
	}
	for _, c := range cases {
		d := NewDecoder(bytes.NewReader([]byte(c)))
		_, err := d.ReadMessage()
		require.Error(t, err)
	}
}
