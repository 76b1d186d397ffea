//go:build linux

package ws

import (
	"net"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"
)

// Poller multiplexes read readiness for every client socket through one
// epoll instance, so the server gets by with a bounded worker pool instead
// of a reader goroutine per connection.
type Poller struct {
	fd     int
	mu     sync.RWMutex
	conns  map[int]net.Conn  // fd -> net.Conn
	events []unix.EpollEvent // reused by Wait, len = event batch
}

// NewPoller creates an epoll instance. Wait returns at most eventBatch
// ready connections per call.
func NewPoller(eventBatch int) (*Poller, error) {
	if eventBatch <= 0 {
		eventBatch = 128
	}
	fd, err := unix.EpollCreate1(0)
	if err != nil {
		return nil, err
	}
	return &Poller{
		fd:     fd,
		conns:  make(map[int]net.Conn),
		events: make([]unix.EpollEvent, eventBatch),
	}, nil
}

// Add puts conn's socket on the interest list for read and hangup events.
func (p *Poller) Add(conn net.Conn) error {
	fd := socketFD(conn)
	err := unix.EpollCtl(p.fd, unix.EPOLL_CTL_ADD, fd, &unix.EpollEvent{
		Events: unix.EPOLLIN | unix.EPOLLHUP,
		Fd:     int32(fd),
	})
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.conns[fd] = conn
	p.mu.Unlock()
	return nil
}

// Remove takes conn's socket off the interest list.
func (p *Poller) Remove(conn net.Conn) error {
	fd := socketFD(conn)
	if err := unix.EpollCtl(p.fd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
		return err
	}

	p.mu.Lock()
	delete(p.conns, fd)
	p.mu.Unlock()
	return nil
}

// Wait blocks until at least one registered socket is readable and returns
// the matching connections. EINTR is retried internally; sockets removed
// between the kernel wakeup and the lookup are skipped.
func (p *Poller) Wait() ([]net.Conn, error) {
	for {
		n, err := unix.EpollWait(p.fd, p.events, -1)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return nil, err
		}

		p.mu.RLock()
		conns := make([]net.Conn, 0, n)
		for i := 0; i < n; i++ {
			if conn, ok := p.conns[int(p.events[i].Fd)]; ok {
				conns = append(conns, conn)
			}
		}
		p.mu.RUnlock()
		return conns, nil
	}
}

// Close releases the epoll file descriptor.
func (p *Poller) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.conns = nil
	return unix.Close(p.fd)
}

// socketFD extracts conn's file descriptor through SyscallConn, which
// unlike File() does not duplicate the descriptor.
func socketFD(conn net.Conn) int {
	sc, ok := conn.(syscall.Conn)
	if !ok {
		return -1
	}

	raw, err := sc.SyscallConn()
	if err != nil {
		return -1
	}

	var fd int
	_ = raw.Control(func(sfd uintptr) {
		fd = int(sfd)
	})
	return fd
}
