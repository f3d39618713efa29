package server_test

import (
	"bufio"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/echojfree/mini-redis/internal/config"
	"github.com/echojfree/mini-redis/internal/logging"
	"github.com/echojfree/mini-redis/internal/resp"
	"github.com/echojfree/mini-redis/internal/server"
)

func testConfig(t *testing.T) *config.Config {
	cfg := config.Default()
	cfg.Dir = t.TempDir()
	cfg.Databases = 4
	cfg.AofEnabled = false
	cfg.MaxClients = 2
	return cfg
}

// startServer boots a Server on an ephemeral port and returns its address
// plus a cleanup func that shuts it down.
func startServer(t *testing.T, cfg *config.Config) string {
	t.Helper()
	srv, err := server.New(cfg, logging.New())
	require.NoError(t, err)
	require.NoError(t, srv.LoadPersisted())

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe(addr)
	}()

	require.Eventually(t, func() bool {
		conn, err := net.DialTimeout("tcp", addr, 50*time.Millisecond)
		if err != nil {
			return false
		}
		conn.Close()
		return true
	}, 2*time.Second, 10*time.Millisecond)

	t.Cleanup(func() {
		srv.Shutdown()
	})
	return addr
}

func sendCommand(t *testing.T, conn net.Conn, name string, args ...string) resp.Value {
	t.Helper()
	byteArgs := make([][]byte, len(args))
	for i, a := range args {
		byteArgs[i] = []byte(a)
	}
	_, err := conn.Write(resp.EncodeCommand(name, byteArgs...))
	require.NoError(t, err)

	dec := resp.NewDecoder(bufio.NewReader(conn))
	v, err := dec.ReadMessage()
	require.NoError(t, err)
	return v
}

func TestSetGetRoundTripOverRealConnection(t *testing.T) {
	addr := startServer(t, testConfig(t))

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	reply := sendCommand(t, conn, "SET", "greeting", "hello")
	require.Equal(t, resp.SimpleString, reply.Type)

	reply = sendCommand(t, conn, "GET", "greeting")
	require.Equal(t, resp.Bulk, reply.Type)
	require.Equal(t, "hello", string(reply.Bulk))
}

func TestSelectRoutesSubsequentCommandsToChosenDatabase(t *testing.T) {
	addr := startServer(t, testConfig(t))

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	sendCommand(t, conn, "SET", "k", "db0-value")
	sendCommand(t, conn, "SELECT", "1")
	reply := sendCommand(t, conn, "GET", "k")
	require.Equal(t, resp.Bulk, reply.Type)
	require.True(t, reply.Null)

	sendCommand(t, conn, "SET", "k", "db1-value")
	reply = sendCommand(t, conn, "GET", "k")
	require.Equal(t, "db1-value", string(reply.Bulk))
}

func TestMultiExecCommitsQueuedCommandsAtomically(t *testing.T) {
	addr := startServer(t, testConfig(t))

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	reply := sendCommand(t, conn, "MULTI")
	require.Equal(t, resp.SimpleString, reply.Type)

	reply = sendCommand(t, conn, "SET", "a", "1")
	require.Equal(t, resp.SimpleString, reply.Type)
	require.Equal(t, "QUEUED", reply.Str)

	reply = sendCommand(t, conn, "INCR", "a")
	require.Equal(t, "QUEUED", reply.Str)

	reply = sendCommand(t, conn, "EXEC")
	require.Equal(t, resp.Array, reply.Type)
	require.Len(t, reply.Arr, 2)

	reply = sendCommand(t, conn, "GET", "a")
	require.Equal(t, "2", string(reply.Bulk))
}

func TestMaxClientsRejectsConnectionsOverBudget(t *testing.T) {
	cfg := testConfig(t)
	cfg.MaxClients = 1
	addr := startServer(t, cfg)

	first, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer first.Close()
	time.Sleep(50 * time.Millisecond)

	second, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer second.Close()

	dec := resp.NewDecoder(bufio.NewReader(second))
	v, err := dec.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, resp.Error, v.Type)
}

func TestPublishDeliversToSubscribedConnection(t *testing.T) {
	addr := startServer(t, testConfig(t))

	sub, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer sub.Close()

	reply := sendCommand(t, sub, "SUBSCRIBE", "news")
	require.Equal(t, resp.Array, reply.Type)

	pub, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer pub.Close()

	reply = sendCommand(t, pub, "PUBLISH", "news", "hello subscribers")
	require.Equal(t, resp.Integer, reply.Type)
	require.Equal(t, int64(1), reply.Int)

	sub.SetReadDeadline(time.Now().Add(2 * time.Second))
	dec := resp.NewDecoder(bufio.NewReader(sub))
	msg, err := dec.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, resp.Array, msg.Type)
	require.Len(t, msg.Arr, 3)
	require.Equal(t, "message", string(msg.Arr[0].Bulk))
	require.Equal(t, "news", string(msg.Arr[1].Bulk))
	require.Equal(t, "hello subscribers", string(msg.Arr[2].Bulk))
}

func TestSaveWritesSnapshotFileToDataDir(t *testing.T) {
	cfg := testConfig(t)
	cfg.SaveRules = nil

	addr := startServer(t, cfg)
	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	sendCommand(t, conn, "SET", "durable", "value")
	reply := sendCommand(t, conn, "SAVE")
	require.Equal(t, resp.SimpleString, reply.Type)
	conn.Close()

	_, statErr := os.Stat(filepath.Join(cfg.Dir, cfg.RdbFilename))
	require.NoError(t, statErr)
}
