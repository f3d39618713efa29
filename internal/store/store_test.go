package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListPushPopLenMatchesNetCount(t *testing.T) {
	l := NewList()
	l.PushBack("a", "b", "c")
	l.PushFront("z")
	require.Equal(t, 4, l.Len())
	v, ok := l.PopFront()
	require.True(t, ok)
	assert.Equal(t, "z", v)
	assert.Equal(t, []string{"a", "b", "c"}, l.RangeInclusive(0, -1))
}

func TestListNegativeIndexAndTrim(t *testing.T) {
	l := NewList()
	l.PushBack("a", "b", "c", "d")
	v, ok := l.Index(-1)
	require.True(t, ok)
	assert.Equal(t, "d", v)
	l.Trim(1, -2)
	assert.Equal(t, []string{"b", "c"}, l.All())
}

func TestSetInterCommutative(t *testing.T) {
	a := NewSet()
	a.Add("x", "y", "z")
	b := NewSet()
	b.Add("y", "z", "w")
	ab := a.Inter(b)
	ba := b.Inter(a)
	assert.ElementsMatch(t, ab.Members(), ba.Members())
}

func TestSetUnionDiffCoverage(t *testing.T) {
	a := NewSet()
	a.Add("x", "y")
	b := NewSet()
	b.Add("y", "z")
	union := a.Union(b)
	diffAB := a.Diff(b)
	diffBA := b.Diff(a)
	covered := NewSet()
	covered.Add(union.Members()...)
	covered.Add(diffAB.Members()...)
	covered.Add(diffBA.Members()...)
	for _, m := range append(a.Members(), b.Members()...) {
		assert.True(t, covered.Contains(m))
	}
}

func TestZSetAddRemMembershipMatchesOrderIndex(t *testing.T) {
	z := NewZSet()
	z.Add(1, "a")
	z.Add(3, "c")
	z.Add(2, "b")
	z.Add(2, "aa")

	require.Equal(t, z.Card(), len(z.order))
	for _, e := range z.order {
		score, ok := z.Score(e.Member)
		require.True(t, ok)
		assert.Equal(t, score, e.Score)
	}

	z.Rem("b")
	require.Equal(t, z.Card(), len(z.order))
	_, ok := z.Score("b")
	assert.False(t, ok)
}

func TestZSetRanksAreDenseAndOrdered(t *testing.T) {
	z := NewZSet()
	z.Add(1, "a")
	z.Add(3, "c")
	z.Add(2, "b")

	seen := make(map[int]bool)
	for _, m := range []string{"a", "b", "c"} {
		r := z.Rank(m, false)
		require.GreaterOrEqual(t, r, 0)
		require.Less(t, r, z.Card())
		seen[r] = true
	}
	assert.Len(t, seen, 3)

	rng := z.RangeByRank(0, -1, false)
	require.Len(t, rng, 3)
	for i := 1; i < len(rng); i++ {
		prev, cur := rng[i-1], rng[i]
		assert.True(t, prev.Score < cur.Score || (prev.Score == cur.Score && prev.Member < cur.Member))
	}
}

func TestZSetTieBreakByMember(t *testing.T) {
	z := NewZSet()
	z.Add(5, "banana")
	z.Add(5, "apple")
	z.Add(5, "cherry")
	rng := z.RangeByRank(0, -1, false)
	require.Len(t, rng, 3)
	assert.Equal(t, []string{"apple", "banana", "cherry"}, []string{rng[0].Member, rng[1].Member, rng[2].Member})
}

func TestStringIncrByOverflowFails(t *testing.T) {
	it := NewStringItem([]byte("9223372036854775807"))
	_, err := it.IncrBy(1)
	require.ErrorIs(t, err, ErrOverflow)
}

func TestStringIncrByNonIntegerFails(t *testing.T) {
	it := NewStringItem([]byte("not-a-number"))
	_, err := it.IncrBy(1)
	require.ErrorIs(t, err, ErrNotInteger)
}

func TestHashIncrByAmbiguousParseIsError(t *testing.T) {
	h := NewHash()
	h.Set("f", "not-a-number")
	_, err := h.IncrBy("f", 1)
	require.ErrorIs(t, err, ErrNotInteger)
}
