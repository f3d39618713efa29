package server

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/echojfree/mini-redis/internal/command"
	"github.com/echojfree/mini-redis/internal/config"
	"github.com/echojfree/mini-redis/internal/logging"
	"github.com/echojfree/mini-redis/internal/pubsub"
	"github.com/echojfree/mini-redis/internal/resp"
	"github.com/echojfree/mini-redis/internal/session"
)

// idleTimeout closes a connection that has sent nothing in this long,
// freeing resources from clients that vanished without closing cleanly
// (the teacher's handleOneConnection has no such deadline).
const idleTimeout = 10 * time.Minute

// Server owns every collaborator a running instance needs: the database
// manager, command registry, pub/sub hub, and persistence layer, plus the
// TCP listener and bookkeeping for graceful shutdown.
type Server struct {
	cfg     *config.Config
	log     *logging.Logger
	reg     *command.Registry
	manager *Manager
	hub     *pubsub.Hub
	persist *Persistence

	listener net.Listener

	nextClientID      int64
	clientCount       int32
	totalConnections  int64

	conns   map[net.Conn]struct{}
	connsMu sync.Mutex

	wg sync.WaitGroup

	stop     chan struct{}
	stopOnce sync.Once
}

// New builds a Server with its database manager, registry and persistence
// layer wired, but does not yet listen.
func New(cfg *config.Config, log *logging.Logger) (*Server, error) {
	manager := NewManager(cfg.Databases)
	persist, err := NewPersistence(cfg, manager, log)
	if err != nil {
		return nil, err
	}
	reg := command.NewRegistry()
	command.RegisterAll(reg)

	s := &Server{
		cfg:     cfg,
		log:     log,
		reg:     reg,
		manager: manager,
		hub:     pubsub.NewHub(),
		persist: persist,
		conns:   make(map[net.Conn]struct{}),
		stop:    make(chan struct{}),
	}
	return s, nil
}

// LoadPersisted replays the AOF (if enabled) or loads the RDB snapshot,
// rebuilding the keyspace before the listener accepts its first connection.
func (s *Server) LoadPersisted() error {
	return s.persist.LoadOnStartup(s.reg)
}

// ListenAndServe binds addr, starts the background sweeper/evictor/save
// scheduler, and accepts connections until Shutdown is called or Accept
// fails.
func (s *Server) ListenAndServe(addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.listener = l
	s.log.Infof("listening on %s", addr)

	go s.runSweeper(s.stop)
	go s.runEvictor(s.stop)
	go s.runSaveScheduler(s.stop)

	for {
		conn, err := l.Accept()
		if err != nil {
			select {
			case <-s.stop:
				s.wg.Wait()
				return nil
			default:
				return err
			}
		}

		if s.cfg.MaxClients > 0 && int(atomic.LoadInt32(&s.clientCount)) >= s.cfg.MaxClients {
			s.rejectConnection(conn)
			continue
		}

		s.trackConn(conn)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConnection(conn)
		}()
	}
}

func (s *Server) rejectConnection(conn net.Conn) {
	w := resp.NewWriter(conn)
	w.WriteValue(resp.NewError("ERR max number of clients reached"))
	w.Flush()
	conn.Close()
}

func (s *Server) trackConn(conn net.Conn) {
	s.connsMu.Lock()
	s.conns[conn] = struct{}{}
	s.connsMu.Unlock()
	atomic.AddInt32(&s.clientCount, 1)
	atomic.AddInt64(&s.totalConnections, 1)
}

// ClientCount satisfies command.Stats.
func (s *Server) ClientCount() int { return int(atomic.LoadInt32(&s.clientCount)) }

// TotalConnections satisfies command.Stats.
func (s *Server) TotalConnections() int64 { return atomic.LoadInt64(&s.totalConnections) }

func (s *Server) untrackConn(conn net.Conn) {
	s.connsMu.Lock()
	delete(s.conns, conn)
	s.connsMu.Unlock()
	atomic.AddInt32(&s.clientCount, -1)
}

// handleConnection processes one connection for its lifetime: decode a
// RESP message, dispatch it against the client's currently-selected
// database's executor, write the reply, repeat. Grounded on the teacher's
// handleOneConnection read/handle loop.
func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()
	defer s.untrackConn(conn)

	id := atomic.AddInt64(&s.nextClientID, 1)
	client := session.NewClient(id, conn)
	s.log.Infow("client connected", "id", id, "addr", conn.RemoteAddr())

	defer func() {
		s.hub.RemoveAll(id)
		s.log.Infow("client disconnected", "id", id)
	}()

	ctx := &command.Context{
		Client:    client,
		Databases: s.manager,
		Hub:       s.hub,
		Persist:   s.persist,
		Config:    s.cfg,
		Log:       s.log,
		StartedAt: time.Now(),
		Stats:     s,
	}

	dec := resp.NewDecoder(conn)

	for {
		conn.SetReadDeadline(time.Now().Add(idleTimeout))

		msg, err := dec.ReadMessage()
		if err != nil {
			return
		}

		dbID := client.DatabaseID
		ctx.DB = s.manager.DB(dbID)
		reply := s.manager.Submit(dbID, func() resp.Value {
			return command.Dispatch(s.reg, ctx, msg)
		})

		// Routed through client.WriteReply so command replies share the same
		// connection-owned, mutex-guarded writer that pub/sub pushes use —
		// two unsynchronized writers on one net.Conn would interleave bytes.
		if err := client.WriteReply(reply); err != nil {
			return
		}
	}
}

// Shutdown stops accepting new connections, closes every tracked
// connection, waits for their goroutines to exit, flushes the AOF, and
// writes a final RDB snapshot — the teacher's stop-listener /
// close-connections / save-on-exit sequence.
func (s *Server) Shutdown() error {
	s.stopOnce.Do(func() { close(s.stop) })

	if s.listener != nil {
		s.listener.Close()
	}

	s.connsMu.Lock()
	for conn := range s.conns {
		conn.Close()
	}
	s.connsMu.Unlock()

	s.wg.Wait()
	s.manager.Close()

	if err := s.persist.Save(); err != nil {
		s.log.Errorw("final save failed", "err", err)
	}
	return s.persist.Close()
}
