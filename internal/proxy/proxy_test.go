package proxy

import (
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/oriku/minecraftd/internal/mcproto"
	"github.com/oriku/minecraftd/internal/supervisor"
	"github.com/oriku/minecraftd/pkg/logger"
)

// fakeRouter is a minimal router stub: one hostname maps to one fixed id,
// status, and port, set per test.
type fakeRouter struct {
	hostname string
	id       uuid.UUID
	status   supervisor.StatusValue
	port     int
	known    bool
}

func (r *fakeRouter) ServerIDByHostname(hostname string) (uuid.UUID, bool) {
	if !r.known || hostname != r.hostname {
		return uuid.UUID{}, false
	}
	return r.id, true
}

func (r *fakeRouter) StatusInfo(id uuid.UUID) (supervisor.StatusValue, bool) {
	if !r.known || id != r.id {
		return supervisor.StatusValue{}, false
	}
	return r.status, true
}

func (r *fakeRouter) ServerPort(id uuid.UUID) (int, bool) {
	if !r.known || id != r.id {
		return 0, false
	}
	return r.port, true
}

func dialAndHandshake(t *testing.T, p *Proxy, hostname string, nextState mcproto.ProtocolState) net.Conn {
	t.Helper()
	serverConn, clientConn := net.Pipe()

	go p.handleConnection(serverConn)

	if err := mcproto.WriteHandshake(clientConn, &mcproto.Handshake{
		ProtocolVersion: 770,
		ServerAddress:   hostname,
		ServerPort:      25565,
		NextState:       nextState,
	}); err != nil {
		t.Fatalf("write handshake: %v", err)
	}
	return clientConn
}

func TestProxyRejectsUnknownHostnameOnLogin(t *testing.T) {
	p := &Proxy{sup: &fakeRouter{}, log: logger.New()}
	clientConn := dialAndHandshake(t, p, "missing.example.com", mcproto.StateLogin)
	defer clientConn.Close()

	clientConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	raw, err := mcproto.ReadRawPacket(clientConn)
	if err != nil {
		t.Fatalf("read disconnect packet: %v", err)
	}
	if raw.ID != 0x00 {
		t.Fatalf("expected disconnect packet id 0x00, got 0x%02x", raw.ID)
	}
}

func TestProxyFallbackStatusPingForUnknownHostname(t *testing.T) {
	p := &Proxy{sup: &fakeRouter{}, log: logger.New()}
	clientConn := dialAndHandshake(t, p, "missing.example.com", mcproto.StateStatus)
	defer clientConn.Close()

	clientConn.SetDeadline(time.Now().Add(2 * time.Second))
	if err := mcproto.WriteStatusRequest(clientConn); err != nil {
		t.Fatalf("write status request: %v", err)
	}
	doc, err := mcproto.ReadStatusResponse(clientConn)
	if err != nil {
		t.Fatalf("read status response: %v", err)
	}

	var desc mcproto.TextComponent
	if err := json.Unmarshal(doc.Description, &desc); err != nil {
		t.Fatalf("unmarshal description: %v", err)
	}
	if desc.Text == "" {
		t.Fatal("expected a non-empty fallback description")
	}

	if err := mcproto.WritePingRequest(clientConn, 42); err != nil {
		t.Fatalf("write ping request: %v", err)
	}
	pong, err := mcproto.ReadPongResponse(clientConn)
	if err != nil {
		t.Fatalf("read pong response: %v", err)
	}
	if pong != 42 {
		t.Fatalf("pong timestamp = %d, want 42", pong)
	}
}

func TestProxySplicesReadyServer(t *testing.T) {
	backendListener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen backend: %v", err)
	}
	defer backendListener.Close()

	backendAccepted := make(chan net.Conn, 1)
	go func() {
		conn, err := backendListener.Accept()
		if err == nil {
			backendAccepted <- conn
		}
	}()

	port := backendListener.Addr().(*net.TCPAddr).Port
	id := uuid.New()
	router := &fakeRouter{
		hostname: "play.example.com",
		id:       id,
		status:   supervisor.StatusValue{Status: supervisor.StatusReady},
		port:     port,
		known:    true,
	}
	p := &Proxy{sup: router, log: logger.New()}

	clientConn := dialAndHandshake(t, p, "play.example.com", mcproto.StateLogin)
	defer clientConn.Close()

	var backendConn net.Conn
	select {
	case backendConn = <-backendAccepted:
	case <-time.After(2 * time.Second):
		t.Fatal("backend never accepted a connection")
	}
	defer backendConn.Close()

	backendConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	forwarded, err := mcproto.ReadHandshake(backendConn)
	if err != nil {
		t.Fatalf("backend did not receive forwarded handshake: %v", err)
	}
	if forwarded.ServerAddress != "play.example.com" {
		t.Fatalf("forwarded handshake server address = %q, want play.example.com", forwarded.ServerAddress)
	}

	payload := []byte("hello from client")
	if _, err := clientConn.Write(payload); err != nil {
		t.Fatalf("client write: %v", err)
	}
	buf := make([]byte, len(payload))
	backendConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := backendConn.Read(buf); err != nil {
		t.Fatalf("backend did not receive spliced payload: %v", err)
	}
	if string(buf) != string(payload) {
		t.Fatalf("spliced payload = %q, want %q", buf, payload)
	}
}
