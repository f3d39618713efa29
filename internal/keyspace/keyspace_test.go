package keyspace

import (
	"testing"
	"time"

	"github.com/echojfree/mini-redis/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExistsImmediatelyAfterSet(t *testing.T) {
	ks := New(0)
	ks.Set("k", store.NewStringItem([]byte("v")))
	require.Equal(t, 1, ks.Exists("k"))
}

func TestExpireMakesKeyAbsentAndBumpsVersion(t *testing.T) {
	ks := New(0)
	ks.Set("k", store.NewStringItem([]byte("v")))
	before := ks.Version("k")
	ok := ks.ExpireAbsoluteMs("k", time.Now().UnixMilli()-1000)
	require.True(t, ok)

	_, found := ks.Get("k")
	assert.False(t, found)
	assert.Equal(t, 0, ks.Exists("k"))
	assert.Greater(t, ks.Version("k"), before)
}

func TestTTLSentinels(t *testing.T) {
	ks := New(0)
	assert.Equal(t, int64(-2), ks.TTLMs("missing"))

	ks.Set("k", store.NewStringItem([]byte("v")))
	assert.Equal(t, int64(-1), ks.TTLMs("k"))

	ks.ExpireAbsoluteMs("k", time.Now().Add(5*time.Second).UnixMilli())
	ttl := ks.TTLMs("k")
	assert.InDelta(t, 5000, ttl, 1000)
}

func TestRenamePreservesExpiration(t *testing.T) {
	ks := New(0)
	ks.Set("old", store.NewStringItem([]byte("v")))
	at := time.Now().Add(10 * time.Second).UnixMilli()
	ks.ExpireAbsoluteMs("old", at)
	ttlBefore := ks.TTLMs("old")

	ok := ks.Rename("old", "new")
	require.True(t, ok)
	assert.InDelta(t, ttlBefore, ks.TTLMs("new"), 50)
	assert.Equal(t, 0, ks.Exists("old"))
}

func TestKeysMatchingGlob(t *testing.T) {
	ks := New(0)
	ks.Set("news.tech", store.NewStringItem(nil))
	ks.Set("news.sports", store.NewStringItem(nil))
	ks.Set("weather", store.NewStringItem(nil))

	got := ks.KeysMatching("news.*")
	assert.ElementsMatch(t, []string{"news.tech", "news.sports"}, got)
}

func TestGlobQuestionMark(t *testing.T) {
	assert.True(t, Match("h?llo", "hello"))
	assert.True(t, Match("h?llo", "hallo"))
	assert.False(t, Match("h?llo", "hllo"))
	assert.False(t, Match("h?llo", "hxxllo"))
}

func TestGlobCharClass(t *testing.T) {
	assert.True(t, Match("[abc]at", "bat"))
	assert.False(t, Match("[abc]at", "dat"))
	assert.True(t, Match("[^abc]at", "dat"))
	assert.True(t, Match("[a-c]at", "cat"))
}

func TestSweepAdaptiveReschedule(t *testing.T) {
	ks := New(0)
	for i := 0; i < 50; i++ {
		ks.Set(string(rune('a'+i%26))+string(rune(i)), store.NewStringItem(nil))
	}
	keys := make([]string, 0)
	for k := range ks.data {
		keys = append(keys, k)
	}
	for _, k := range keys {
		ks.ExpireAbsoluteMs(k, time.Now().UnixMilli()-1000)
	}
	examined, expired := ks.SweepOnce()
	assert.Equal(t, len(keys), expired)
	assert.GreaterOrEqual(t, examined, expired)
	assert.Equal(t, 0, ks.Size())
}

func TestEvictionNoEvictionReturnsOOM(t *testing.T) {
	ks := New(0)
	ks.Set("k", store.NewStringItem(nil))
	_, err := ks.EvictOne("no-eviction")
	require.ErrorIs(t, err, ErrOutOfMemory)
}

func TestEvictionLRUPicksOldest(t *testing.T) {
	ks := New(0)
	ks.Set("old", store.NewStringItem(nil))
	ks.data["old"].LastAccess = time.Now().Add(-time.Hour)
	ks.Set("new", store.NewStringItem(nil))

	victim, err := ks.EvictOne("allkeys-lru")
	require.NoError(t, err)
	assert.Equal(t, "old", victim)
	assert.Equal(t, 0, ks.Exists("old"))
}
