// Package store implements the five typed value containers — string, list,
// hash, set and sorted set — plus the Item envelope (type tag, access
// bookkeeping, expiration) that the keyspace stores them under. Containers
// are plain data structures with no awareness of keyspace or protocol; they
// raise typed errors for argument-shape problems and leave translation to
// the caller.
package store

import (
	"errors"
	"time"
)

// Kind tags the payload an Item carries.
type Kind byte

const (
	KindString Kind = iota
	KindList
	KindHash
	KindSet
	KindZSet
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindHash:
		return "hash"
	case KindSet:
		return "set"
	case KindZSet:
		return "zset"
	default:
		return "unknown"
	}
}

// ErrWrongType is raised when a command is applied to an Item of the wrong Kind.
var ErrWrongType = errors.New("WRONGTYPE Operation against a key holding the wrong kind of value")

// ErrNotInteger and ErrNotFloat cover value-shape failures shared by several containers.
var (
	ErrNotInteger   = errors.New("value is not an integer or out of range")
	ErrNotFloat     = errors.New("value is not a valid float")
	ErrOverflow     = errors.New("increment or decrement would overflow")
)

// Item is the envelope every keyspace entry is stored as: a typed payload
// plus the bookkeeping fields eviction policy and TTL need.
type Item struct {
	Kind Kind

	Str  []byte
	List *List
	Hash *Hash
	Set  *Set
	ZSet *ZSet

	CreatedAt   time.Time
	LastAccess  time.Time
	AccessCount int64

	// ExpireAtMs holds the absolute expiration time in Unix milliseconds;
	// HasExpire distinguishes "persistent" from an unset zero value.
	ExpireAtMs int64
	HasExpire  bool
}

func NewStringItem(b []byte) *Item {
	now := time.Now()
	return &Item{Kind: KindString, Str: b, CreatedAt: now, LastAccess: now}
}

func NewListItem() *Item {
	now := time.Now()
	return &Item{Kind: KindList, List: NewList(), CreatedAt: now, LastAccess: now}
}

func NewHashItem() *Item {
	now := time.Now()
	return &Item{Kind: KindHash, Hash: NewHash(), CreatedAt: now, LastAccess: now}
}

func NewSetItem() *Item {
	now := time.Now()
	return &Item{Kind: KindSet, Set: NewSet(), CreatedAt: now, LastAccess: now}
}

func NewZSetItem() *Item {
	now := time.Now()
	return &Item{Kind: KindZSet, ZSet: NewZSet(), CreatedAt: now, LastAccess: now}
}

// Touch records an access for LRU/LFU bookkeeping.
func (it *Item) Touch() {
	it.LastAccess = time.Now()
	it.AccessCount++
}

// IsEmptyCollection reports whether a list/hash/set/zset payload has become
// empty and should be deleted from the keyspace per the invariant that keys
// never point to empty collections.
func (it *Item) IsEmptyCollection() bool {
	switch it.Kind {
	case KindList:
		return it.List.Len() == 0
	case KindHash:
		return it.Hash.Len() == 0
	case KindSet:
		return it.Set.Card() == 0
	case KindZSet:
		return it.ZSet.Card() == 0
	default:
		return false
	}
}
