package proxy

import (
	"bytes"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/oriku/minecraftd/internal/mcproto"
	"github.com/oriku/minecraftd/internal/supervisor"
)

// handleConnection implements the single client lifecycle: read handshake,
// resolve backend, then either splice or fall back to an informative
// status/disconnect response.
func (p *Proxy) handleConnection(conn net.Conn) {
	defer conn.Close()
	peer := conn.RemoteAddr()

	// Capture the exact bytes of the handshake packet as it is parsed, so
	// it can be forwarded to the backend byte-for-byte rather than
	// re-encoded.
	var raw bytes.Buffer
	handshake, err := mcproto.ReadHandshake(io.TeeReader(conn, &raw))
	if err != nil {
		p.log.Debug("proxy: %s: read handshake: %v", peer, err)
		return
	}

	p.log.Debug("proxy: %s: handshake for host %q, next state %d", peer, handshake.ServerAddress, handshake.NextState)

	reject := func(message string) {
		if handshake.NextState == mcproto.StateStatus {
			p.log.Debug("proxy: %s: entering fallback status ping: %s", peer, message)
			if err := p.fallbackStatusPing(conn, message); err != nil {
				p.log.Debug("proxy: %s: fallback status ping: %v", peer, err)
			}
			return
		}
		if err := mcproto.WriteDisconnect(conn, mcproto.TextComponent{Text: message}); err != nil {
			p.log.Debug("proxy: %s: write disconnect: %v", peer, err)
		}
		p.log.Info("proxy: %s: disconnected: %s", peer, message)
	}

	id, ok := p.sup.ServerIDByHostname(handshake.ServerAddress)
	if !ok {
		reject("Server is not running or does not exist")
		return
	}

	status, ok := p.sup.StatusInfo(id)
	if !ok {
		reject("Server is not running or does not exist")
		return
	}

	switch {
	case status.Status == supervisor.StatusStarting && !status.Restarting:
		reject("Server is starting up, please try again later")
		return
	case status.Status == supervisor.StatusReady:
		// proceed
	case status.Status == supervisor.StatusStopping && !status.Restarting:
		reject("Server is stopping.")
		return
	case status.Restarting && (status.Status == supervisor.StatusStarting || status.Status == supervisor.StatusStopping):
		reject("Server is restarting, please try again later")
		return
	default:
		reject("Server is not running or does not exist")
		return
	}

	port, ok := p.sup.ServerPort(id)
	if !ok {
		reject("Server is not running or does not exist")
		return
	}

	backendAddr := fmt.Sprintf("127.0.0.1:%d", port)
	backendConn, err := net.DialTimeout("tcp", backendAddr, 5*time.Second)
	if err != nil {
		p.log.Error("proxy: %s: dial backend %s: %v", peer, backendAddr, err)
		reject("Failed to connect to backend server")
		return
	}
	defer backendConn.Close()
	if tcpConn, ok := backendConn.(*net.TCPConn); ok {
		tcpConn.SetNoDelay(true)
	}

	if _, err := backendConn.Write(raw.Bytes()); err != nil {
		p.log.Error("proxy: %s: forward handshake to %s: %v", peer, backendAddr, err)
		return
	}

	p.log.Info("proxy: %s: forwarding to server %s at %s", peer, handshake.ServerAddress, backendAddr)
	splice(conn, backendConn)
	p.log.Debug("proxy: %s: disconnected", peer)
}

// splice copies bytes bidirectionally between two already-connected sockets
// until either side closes.
func splice(a, b net.Conn) {
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		io.Copy(b, a)
		b.Close()
	}()
	go func() {
		defer wg.Done()
		io.Copy(a, b)
		a.Close()
	}()

	wg.Wait()
}
