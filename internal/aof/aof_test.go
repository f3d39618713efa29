package aof_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/echojfree/mini-redis/internal/aof"
	"github.com/echojfree/mini-redis/internal/config"
	"github.com/echojfree/mini-redis/internal/keyspace"
	"github.com/echojfree/mini-redis/internal/logging"
	"github.com/echojfree/mini-redis/internal/store"
)

func TestAppendAndReplayRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "appendonly.aof")
	log := logging.New()

	a, err := aof.Open(path, config.FsyncAlways, log)
	require.NoError(t, err)

	a.Append(0, "SET", [][]byte{[]byte("greeting"), []byte("hello")})
	a.Append(1, "SET", [][]byte{[]byte("other"), []byte("db")})
	a.Append(1, "RPUSH", [][]byte{[]byte("mylist"), []byte("a"), []byte("b")})
	require.NoError(t, a.Close())

	type record struct {
		dbID int
		name string
		args []string
	}
	var got []record
	err = aof.Replay(path, func(dbID int, name string, args [][]byte) {
		strArgs := make([]string, len(args))
		for i, a := range args {
			strArgs[i] = string(a)
		}
		got = append(got, record{dbID, name, strArgs})
	})
	require.NoError(t, err)

	require.Len(t, got, 3)
	require.Equal(t, 0, got[0].dbID)
	require.Equal(t, "SET", got[0].name)
	require.Equal(t, []string{"greeting", "hello"}, got[0].args)
	require.Equal(t, 1, got[1].dbID)
	require.Equal(t, 1, got[2].dbID)
	require.Equal(t, "RPUSH", got[2].name)
}

func TestReplayMissingFileIsNotAnError(t *testing.T) {
	dir := t.TempDir()
	called := false
	err := aof.Replay(filepath.Join(dir, "absent.aof"), func(int, string, [][]byte) {
		called = true
	})
	require.NoError(t, err)
	require.False(t, called)
}

func TestEverysecPolicyBuffersThenFlushesOnClose(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "appendonly.aof")
	log := logging.New()

	a, err := aof.Open(path, config.FsyncEverysec, log)
	require.NoError(t, err)

	a.Append(0, "SET", [][]byte{[]byte("k"), []byte("v")})
	require.NoError(t, a.Close())

	var names []string
	err = aof.Replay(path, func(_ int, name string, _ [][]byte) {
		names = append(names, name)
	})
	require.NoError(t, err)
	require.Equal(t, []string{"SET"}, names)
}

func TestRewriteReconstructsCurrentStateAndDropsHistory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "appendonly.aof")
	log := logging.New()

	a, err := aof.Open(path, config.FsyncAlways, log)
	require.NoError(t, err)

	a.Append(0, "SET", [][]byte{[]byte("k"), []byte("v1")})
	a.Append(0, "SET", [][]byte{[]byte("k"), []byte("v2")})
	a.Append(0, "DEL", [][]byte{[]byte("k")})

	ks := keyspace.New(0)
	item := store.NewStringItem([]byte("v2"))
	item.HasExpire = true
	item.ExpireAtMs = time.Now().Add(time.Hour).UnixMilli()
	ks.Set("k", item)

	require.NoError(t, a.Rewrite([]*keyspace.Keyspace{ks}))
	require.NoError(t, a.Close())

	var names []string
	var sawExpire bool
	err = aof.Replay(path, func(_ int, name string, args [][]byte) {
		names = append(names, name)
		if name == "PEXPIREAT" {
			sawExpire = true
		}
	})
	require.NoError(t, err)
	require.Contains(t, names, "SET")
	require.NotContains(t, names, "DEL")
	require.True(t, sawExpire)
}

func TestShouldRewriteHonorsMinSizeAndGrowthThreshold(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "appendonly.aof")
	log := logging.New()

	a, err := aof.Open(path, config.FsyncAlways, log)
	require.NoError(t, err)
	defer a.Close()

	require.False(t, a.ShouldRewrite(1<<20, 100))

	for i := 0; i < 100; i++ {
		a.Append(0, "SET", [][]byte{[]byte("k"), []byte("some reasonably sized value to grow the log")})
	}
	require.True(t, a.ShouldRewrite(1, 1))
}

func TestCloseSucceedsAndLeavesLogFileOnDisk(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "appendonly.aof")
	a, err := aof.Open(path, config.FsyncAlways, logging.New())
	require.NoError(t, err)
	require.NoError(t, a.Close())
	_, statErr := os.Stat(path)
	require.NoError(t, statErr)
}
