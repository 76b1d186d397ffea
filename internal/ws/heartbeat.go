package ws

import (
	"log"
	"time"
)

// startHeartbeat launches the stale-connection sweep at the configured
// interval. The goroutine exits when the server's done channel closes.
func (s *Server) startHeartbeat() {
	go func() {
		ticker := time.NewTicker(s.config.HeartbeatInterval)
		defer ticker.Stop()

		for {
			select {
			case <-s.done:
				return
			case <-ticker.C:
				s.sweepConnections()
			}
		}
	}()
}

// sweepConnections walks the live connections. Anything without proof of
// life within HeartbeatInterval + HeartbeatTimeout is evicted; everyone
// else gets a protocol-level ping frame, which browsers answer with a pong
// the read path counts as activity.
func (s *Server) sweepConnections() {
	deadline := s.config.HeartbeatInterval + s.config.HeartbeatTimeout
	now := time.Now()

	for _, c := range s.conns.All() {
		if idle := now.Sub(c.LastPing()); idle > deadline {
			log.Printf("ws: heartbeat timeout session=%s idle=%s", c.ID, idle.Round(time.Second))
			s.RemoveConnection(c)
			continue
		}

		if err := c.WritePing(); err != nil {
			log.Printf("ws: heartbeat ping failed session=%s: %v", c.ID, err)
			s.RemoveConnection(c)
		}
	}
}
