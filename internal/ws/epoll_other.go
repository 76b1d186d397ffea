//go:build !linux

package ws

import (
	"net"
	"sync"
)

// Poller on non-Linux platforms falls back to one watch goroutine per
// connection feeding a ready channel. It exists so the server runs on
// development machines; production deployments target the Linux epoll
// implementation.
type Poller struct {
	mu    sync.Mutex
	conns map[net.Conn]struct{}
	ready chan net.Conn
	done  chan struct{}
}

// NewPoller creates the fallback poller. eventBatch bounds how many
// readiness signals can queue up between Wait calls.
func NewPoller(eventBatch int) (*Poller, error) {
	if eventBatch <= 0 {
		eventBatch = 128
	}
	return &Poller{
		conns: make(map[net.Conn]struct{}),
		ready: make(chan net.Conn, eventBatch),
		done:  make(chan struct{}),
	}, nil
}

// Add starts a goroutine that blocks on a one-byte read to detect pending
// data. The consumed byte is lost to the frame reader, a known limitation
// of this fallback; the Linux poller consumes nothing.
func (p *Poller) Add(conn net.Conn) error {
	p.mu.Lock()
	p.conns[conn] = struct{}{}
	p.mu.Unlock()

	go p.watch(conn)
	return nil
}

func (p *Poller) watch(conn net.Conn) {
	buf := make([]byte, 1)
	for {
		_, err := conn.Read(buf)

		// Signal readiness even on error so the read path observes the
		// closed socket and runs its cleanup.
		select {
		case p.ready <- conn:
		case <-p.done:
			return
		}
		if err != nil {
			return
		}
	}
}

// Remove stops tracking conn. Its watch goroutine exits on the read error
// that follows the socket closing.
func (p *Poller) Remove(conn net.Conn) error {
	p.mu.Lock()
	delete(p.conns, conn)
	p.mu.Unlock()
	return nil
}

// Wait blocks until at least one connection is ready, then drains whatever
// else has queued up without blocking again.
func (p *Poller) Wait() ([]net.Conn, error) {
	var first net.Conn
	select {
	case first = <-p.ready:
	case <-p.done:
		return nil, net.ErrClosed
	}

	conns := []net.Conn{first}
	for {
		select {
		case conn := <-p.ready:
			conns = append(conns, conn)
		default:
			return conns, nil
		}
	}
}

// Close wakes any blocked Wait and stops the watch goroutines.
func (p *Poller) Close() error {
	close(p.done)
	p.mu.Lock()
	p.conns = nil
	p.mu.Unlock()
	return nil
}

// socketFD has no meaning without epoll; the fd index simply never matches.
func socketFD(conn net.Conn) int {
	return -1
}
