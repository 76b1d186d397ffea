package ws

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

// Connection is one WebSocket client. Every outbound frame, application
// message and heartbeat ping alike, goes through the write mutex so frames
// never interleave on the wire, and the write deadline is owned by that
// same critical section.
type Connection struct {
	ID        string   // session ID (UUID)
	Conn      net.Conn // underlying TCP connection
	Fd        int      // socket fd, used by the Linux poller
	CreatedAt time.Time

	writeTimeout time.Duration
	lastPing     atomic.Int64 // UnixNano of the last proof of life
	writeMu      sync.Mutex
	processing   atomic.Bool // true while a read worker owns the socket
}

// newConnection wraps an upgraded socket. The connection starts out alive;
// the heartbeat sweep measures idleness from now.
func newConnection(id string, conn net.Conn, fd int, writeTimeout time.Duration) *Connection {
	c := &Connection{
		ID:           id,
		Conn:         conn,
		Fd:           fd,
		CreatedAt:    time.Now(),
		writeTimeout: writeTimeout,
	}
	c.TouchPing()
	return c
}

// TouchPing records proof of life. Safe from any goroutine; the heartbeat
// sweep reads the timestamp concurrently with the read workers writing it.
func (c *Connection) TouchPing() {
	c.lastPing.Store(time.Now().UnixNano())
}

// LastPing returns when the connection last proved it was alive.
func (c *Connection) LastPing() time.Time {
	return time.Unix(0, c.lastPing.Load())
}

// WriteMessage sends a WebSocket text frame. The write deadline is set and
// cleared inside the mutex, so a concurrent sender can never clear a
// deadline another write is still relying on.
func (c *Connection) WriteMessage(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.writeTimeout > 0 {
		_ = c.Conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
		defer c.Conn.SetWriteDeadline(time.Time{})
	}
	return wsutil.WriteServerMessage(c.Conn, ws.OpText, data)
}

// WritePing sends a protocol-level ping frame (opcode 0x9), which browsers
// answer automatically with a pong. Same deadline discipline as
// WriteMessage.
func (c *Connection) WritePing() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.writeTimeout > 0 {
		_ = c.Conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
		defer c.Conn.SetWriteDeadline(time.Time{})
	}
	return ws.WriteFrame(c.Conn, ws.NewPingFrame(nil))
}

// Close closes the underlying network connection.
func (c *Connection) Close() error {
	return c.Conn.Close()
}

// ConnectionManager is the registry of live connections, indexed by session
// ID for message delivery and by socket fd so the poller's readiness events
// can be resolved back to a session.
type ConnectionManager struct {
	mu   sync.RWMutex
	byID map[string]*Connection
	byFd map[int]*Connection
}

// NewConnectionManager creates an empty registry.
func NewConnectionManager() *ConnectionManager {
	return &ConnectionManager{
		byID: make(map[string]*Connection),
		byFd: make(map[int]*Connection),
	}
}

// Add registers a connection under both indexes.
func (cm *ConnectionManager) Add(conn *Connection) {
	cm.mu.Lock()
	cm.byID[conn.ID] = conn
	cm.byFd[conn.Fd] = conn
	cm.mu.Unlock()
}

// Remove deregisters and closes the connection for id. The boolean result
// is the dedup point for the disconnect path: of several racing removals
// exactly one observes true.
func (cm *ConnectionManager) Remove(id string) bool {
	cm.mu.Lock()
	conn, ok := cm.byID[id]
	if ok {
		delete(cm.byID, id)
		delete(cm.byFd, conn.Fd)
	}
	cm.mu.Unlock()

	if ok {
		conn.Close()
	}
	return ok
}

// Get returns the connection for id, or nil if it is gone.
func (cm *ConnectionManager) Get(id string) *Connection {
	cm.mu.RLock()
	conn := cm.byID[id]
	cm.mu.RUnlock()
	return conn
}

// GetByConn resolves a readiness event's net.Conn back to its Connection
// via the socket fd, or nil if the connection was already removed.
func (cm *ConnectionManager) GetByConn(c net.Conn) *Connection {
	fd := socketFD(c)
	cm.mu.RLock()
	conn := cm.byFd[fd]
	cm.mu.RUnlock()
	return conn
}

// Count returns the number of live connections.
func (cm *ConnectionManager) Count() int {
	cm.mu.RLock()
	n := len(cm.byID)
	cm.mu.RUnlock()
	return n
}

// All returns a snapshot of the live connections, safe to iterate without
// holding the lock.
func (cm *ConnectionManager) All() []*Connection {
	cm.mu.RLock()
	conns := make([]*Connection, 0, len(cm.byID))
	for _, conn := range cm.byID {
		conns = append(conns, conn)
	}
	cm.mu.RUnlock()
	return conns
}
