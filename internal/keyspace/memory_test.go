package keyspace

import (
	"testing"

	"github.com/echojfree/mini-redis/internal/store"
	"github.com/stretchr/testify/require"
)

func TestApproxMemoryBytesEmptyKeyspace(t *testing.T) {
	ks := New(0)
	require.Equal(t, int64(0), ks.ApproxMemoryBytes())
}

func TestApproxMemoryBytesCountsKeyAndStringPayload(t *testing.T) {
	ks := New(0)
	ks.Set("greeting", store.NewStringItem([]byte("hello")))
	require.Equal(t, int64(len("greeting")+len("hello")), ks.ApproxMemoryBytes())
}

func TestApproxMemoryBytesSumsAcrossContainerKinds(t *testing.T) {
	ks := New(0)
	ks.Set("str", store.NewStringItem([]byte("abc")))

	listItem := store.NewListItem()
	listItem.List.PushBack("x")
	listItem.List.PushBack("yz")
	ks.Set("list", listItem)

	hashItem := store.NewHashItem()
	hashItem.Hash.Set("f", "v")
	ks.Set("hash", hashItem)

	setItem := store.NewSetItem()
	setItem.Set.Add("m1", "m2")
	ks.Set("set", setItem)

	zsetItem := store.NewZSetItem()
	zsetItem.ZSet.Add(1.5, "member")
	ks.Set("zset", zsetItem)

	expected := int64(len("str")+3) +
		int64(len("list")+1+2) +
		int64(len("hash")+1+1) +
		int64(len("set")+2+2) +
		int64(len("zset")+len("member")+8)

	require.Equal(t, expected, ks.ApproxMemoryBytes())
}

func TestApproxMemoryBytesExcludesKeysSweptAfterExpiring(t *testing.T) {
	ks := New(0)
	ks.Set("gone", store.NewStringItem([]byte("value")))
	ks.ExpireAbsoluteMs("gone", 1)
	ks.SweepOnce()
	require.Equal(t, int64(0), ks.ApproxMemoryBytes())
}
