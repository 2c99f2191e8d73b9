// Package proxy implements the hostname-routed Minecraft reverse proxy: it
// accepts client connections on a single bind address, reads the handshake
// to learn which virtual host the client asked for, resolves that hostname
// to a running server via the supervisor, and either splices the connection
// through to the backend or answers with a fallback status/disconnect
// response describing why it can't.
package proxy

import (
	"fmt"
	"net"
	"sync"

	"github.com/google/uuid"

	"github.com/oriku/minecraftd/internal/supervisor"
	"github.com/oriku/minecraftd/pkg/logger"
)

// router is the subset of *supervisor.Supervisor the proxy depends on,
// narrowed so tests can exercise routing decisions against a fake without
// spinning up a real server process.
type router interface {
	ServerIDByHostname(hostname string) (uuid.UUID, bool)
	StatusInfo(id uuid.UUID) (supervisor.StatusValue, bool)
	ServerPort(id uuid.UUID) (int, bool)
}

// Proxy is the daemon-wide reverse proxy listener.
type Proxy struct {
	bindAddr string
	sup      router
	log      *logger.Logger

	mu       sync.Mutex
	listener net.Listener
	running  bool
	stopCh   chan struct{}
}

// New constructs a Proxy bound to bindAddr (e.g. "0.0.0.0:25565"), routing
// through sup.
func New(bindAddr string, sup *supervisor.Supervisor, log *logger.Logger) *Proxy {
	return &Proxy{bindAddr: bindAddr, sup: sup, log: log}
}

// Start binds the listener and begins accepting connections in the
// background.
func (p *Proxy) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return fmt.Errorf("proxy: already running")
	}

	listener, err := net.Listen("tcp", p.bindAddr)
	if err != nil {
		return fmt.Errorf("proxy: listen on %s: %w", p.bindAddr, err)
	}

	p.listener = listener
	p.stopCh = make(chan struct{})
	p.running = true

	go p.acceptLoop()

	p.log.Info("Proxy server listening on %s", p.bindAddr)
	return nil
}

// Stop closes the listener. In-flight connections are left to drain on
// their own; the caller stops servers (and thus backend connections) via
// the supervisor's own Shutdown.
func (p *Proxy) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return nil
	}
	p.running = false
	close(p.stopCh)

	if err := p.listener.Close(); err != nil {
		return fmt.Errorf("proxy: close listener: %w", err)
	}
	p.log.Info("Proxy server stopped")
	return nil
}

func (p *Proxy) acceptLoop() {
	for {
		conn, err := p.listener.Accept()
		if err != nil {
			select {
			case <-p.stopCh:
				return
			default:
				p.log.Error("proxy: accept: %v", err)
				continue
			}
		}

		if tcpConn, ok := conn.(*net.TCPConn); ok {
			tcpConn.SetNoDelay(true)
		}

		go p.handleConnection(conn)
	}
}
