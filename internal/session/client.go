// Package session holds per-connection state: which database is selected,
// transaction-queue state, WATCHed key versions, and pub/sub subscriptions.
package session

import (
	"net"
	"sync"

	"github.com/echojfree/mini-redis/internal/resp"
)

// TxState is the per-connection transaction state machine.
type TxState int

const (
	TxNone TxState = iota
	TxQueuing
)

// QueuedCommand is one command captured between MULTI and EXEC, stored as
// plain name+args so this package never needs to know about the command
// registry.
type QueuedCommand struct {
	Name string
	Args [][]byte
}

// Client is the server's view of one connection.
type Client struct {
	ID   int64
	Conn net.Conn

	DatabaseID int

	Authenticated bool

	Tx         TxState
	Queued     []QueuedCommand
	WatchedVer map[string]uint64 // key -> (db, key) composite handled by caller prefixing

	// Channels and Patterns are this connection's own subscriptions, the
	// forward index that complements pubsub.Hub's subscriber lists; they
	// let UNSUBSCRIBE/PUNSUBSCRIBE with no arguments run in
	// O(subscriptions). Disconnect cleanup (pubsub.Hub.RemoveAll) walks
	// every channel and pattern instead.
	Channels map[string]struct{}
	Patterns map[string]struct{}

	mu sync.Mutex
}

func NewClient(id int64, conn net.Conn) *Client {
	return &Client{
		ID:         id,
		Conn:       conn,
		WatchedVer: make(map[string]uint64),
		Channels:   make(map[string]struct{}),
		Patterns:   make(map[string]struct{}),
	}
}

// InSubscribeMode reports whether the connection holds any subscription,
// which restricts its command surface per the dispatcher's pub/sub-mode
// rule.
func (c *Client) InSubscribeMode() bool {
	return len(c.Channels) > 0 || len(c.Patterns) > 0
}

// SubscriptionCount is the total remaining subscriptions across channels and
// patterns, reported in SUBSCRIBE/UNSUBSCRIBE replies.
func (c *Client) SubscriptionCount() int {
	return len(c.Channels) + len(c.Patterns)
}

// ResetTx clears transaction-queue and watch state, called by EXEC and
// DISCARD (UNWATCH clears only the watch map).
func (c *Client) ResetTx() {
	c.Tx = TxNone
	c.Queued = nil
	c.WatchedVer = make(map[string]uint64)
}

// WriteReply serializes and flushes v directly to the connection under the
// client's mutex; the server loop writes every command reply through it,
// and pub/sub fan-out and extra subscribe acknowledgements use it for
// frames outside the normal command/reply turn.
func (c *Client) WriteReply(v resp.Value) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	w := resp.NewWriter(c.Conn)
	if err := w.WriteValue(v); err != nil {
		return err
	}
	return w.Flush()
}
