package main

import (
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/driftchat/drift/internal/matching"
	"github.com/driftchat/drift/internal/probe"
	"github.com/driftchat/drift/internal/protocol"
	"github.com/driftchat/drift/internal/ws"
)

func main() {
	config := ws.DefaultServerConfig()

	if addr := os.Getenv("LISTEN_ADDR"); addr != "" {
		config.ListenAddr = addr
	} else if port := os.Getenv("PORT"); port != "" {
		config.ListenAddr = ":" + port
	}
	if v := os.Getenv("WORKER_POOL_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.WorkerPoolSize = n
		}
	}
	if v := os.Getenv("MAX_CONNECTIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.MaxConnections = n
		}
	}
	if v := os.Getenv("READ_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			config.ReadTimeout = d
		}
	}
	if v := os.Getenv("WRITE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			config.WriteTimeout = d
		}
	}
	if v := os.Getenv("HEARTBEAT_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			config.HeartbeatInterval = d
		}
	}
	if v := os.Getenv("HEARTBEAT_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			config.HeartbeatTimeout = d
		}
	}
	if v := os.Getenv("EPOLL_EVENT_BATCH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.EventBatch = n
		}
	}

	// Optional backend probes for the /status endpoint. Neither backend is
	// required: all matchmaking state lives in process.
	var probes []probe.Probe
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		probes = append(probes, probe.NewRedis(addr))
	}
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		pg, err := probe.NewPostgres(dsn)
		if err != nil {
			log.Printf("invalid DATABASE_URL, postgres probe disabled: %v", err)
		} else {
			probes = append(probes, pg)
		}
	}

	log.Printf("Drift WebSocket server starting")
	log.Printf("  listen_addr:     %s", config.ListenAddr)
	log.Printf("  worker_pool:     %d", config.WorkerPoolSize)
	log.Printf("  max_connections: %d", config.MaxConnections)
	log.Printf("  read_timeout:    %s", config.ReadTimeout)
	log.Printf("  write_timeout:   %s", config.WriteTimeout)
	log.Printf("  heartbeat:       %s interval, %s grace", config.HeartbeatInterval, config.HeartbeatTimeout)
	log.Printf("  status_probes:   %d", len(probes))

	dispatcher := ws.NewMessageDispatcher()
	server := ws.NewServer(config, dispatcher.Dispatch)
	server.SetProbes(probes)

	store := matching.NewStore()
	matchmaker := matching.NewMatchmaker(store, server)
	relay := matching.NewRelay(store, server)
	lifecycle := matching.NewLifecycle(store, server, matchmaker)

	// Connection acceptance emits searching and enters the queue; removal
	// runs the disconnect transition, which may requeue and re-match the
	// orphaned partner.
	server.SetOnConnect(lifecycle.Connect)
	server.SetOnDisconnect(lifecycle.Disconnect)

	// -----------------------------------------------------------------------
	// chat — relay text to the current partner
	// -----------------------------------------------------------------------
	dispatcher.Register(protocol.TypeChat, func(conn *ws.Connection, msg interface{}) {
		chatMsg, ok := msg.(protocol.ChatMsg)
		if !ok {
			return
		}
		relay.Chat(conn.ID, chatMsg.Text)
	})

	// -----------------------------------------------------------------------
	// typing — relay typing indicator to the current partner
	// -----------------------------------------------------------------------
	dispatcher.Register(protocol.TypeTyping, func(conn *ws.Connection, msg interface{}) {
		relay.Typing(conn.ID)
	})

	// -----------------------------------------------------------------------
	// next — leave the current pairing and re-enter the queue
	// -----------------------------------------------------------------------
	dispatcher.Register(protocol.TypeNext, func(conn *ws.Connection, msg interface{}) {
		lifecycle.Next(conn.ID)
	})

	// Graceful shutdown.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Printf("received signal %v, initiating graceful shutdown...", sig)
		if err := server.Shutdown(); err != nil {
			log.Printf("shutdown error: %v", err)
		}
		os.Exit(0)
	}()

	if err := server.Start(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
