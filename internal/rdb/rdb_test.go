package rdb_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/echojfree/mini-redis/internal/keyspace"
	"github.com/echojfree/mini-redis/internal/rdb"
	"github.com/echojfree/mini-redis/internal/store"
)

func buildDBs() []*keyspace.Keyspace {
	dbs := []*keyspace.Keyspace{keyspace.New(0), keyspace.New(1)}

	dbs[0].Set("greeting", store.NewStringItem([]byte("hello")))

	listItem := store.NewListItem()
	listItem.List.PushBack("a")
	listItem.List.PushBack("b")
	dbs[0].Set("mylist", listItem)

	hashItem := store.NewHashItem()
	hashItem.Hash.Set("field1", "value1")
	dbs[0].Set("myhash", hashItem)

	setItem := store.NewSetItem()
	setItem.Set.Add("x", "y", "z")
	dbs[0].Set("myset", setItem)

	zsetItem := store.NewZSetItem()
	zsetItem.ZSet.Add(1.5, "one")
	zsetItem.ZSet.Add(2.5, "two")
	dbs[0].Set("myzset", zsetItem)

	dbs[1].Set("other-db-key", store.NewStringItem([]byte("42")))
	dbs[0].ExpireAbsoluteMs("greeting", 99999999999999)

	return dbs
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dump.rdb")

	original := buildDBs()
	require.NoError(t, rdb.SaveFile(path, original))

	loaded := []*keyspace.Keyspace{keyspace.New(0), keyspace.New(1)}
	require.NoError(t, rdb.LoadFile(path, loaded))

	it, ok := loaded[0].Get("greeting")
	require.True(t, ok)
	require.Equal(t, "hello", string(it.Str))
	require.True(t, it.HasExpire)

	listItem, ok := loaded[0].Get("mylist")
	require.True(t, ok)
	require.Equal(t, []string{"a", "b"}, listItem.List.All())

	hashItem, ok := loaded[0].Get("myhash")
	require.True(t, ok)
	v, ok := hashItem.Hash.Get("field1")
	require.True(t, ok)
	require.Equal(t, "value1", v)

	setItem, ok := loaded[0].Get("myset")
	require.True(t, ok)
	require.Equal(t, 3, setItem.Set.Card())

	zsetItem, ok := loaded[0].Get("myzset")
	require.True(t, ok)
	score, ok := zsetItem.ZSet.Score("two")
	require.True(t, ok)
	require.Equal(t, 2.5, score)

	other, ok := loaded[1].Get("other-db-key")
	require.True(t, ok)
	require.Equal(t, "42", string(other.Str))
}

func TestLoadMissingFileIsNotError(t *testing.T) {
	dbs := []*keyspace.Keyspace{keyspace.New(0)}
	require.NoError(t, rdb.LoadFile(filepath.Join(t.TempDir(), "absent.rdb"), dbs))
	require.Equal(t, 0, dbs[0].Size())
}

func TestLoadRejectsCorruptChecksum(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dump.rdb")
	require.NoError(t, rdb.SaveFile(path, buildDBs()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[len(data)-1] ^= 0xFF
	require.NoError(t, os.WriteFile(path, data, 0644))

	dbs := []*keyspace.Keyspace{keyspace.New(0), keyspace.New(1)}
	require.Error(t, rdb.LoadFile(path, dbs))
}
