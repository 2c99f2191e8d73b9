package mcproto

import (
	"fmt"
	"net"
	"time"
)

// PingResult is the outcome of a successful Server-List-Ping.
type PingResult struct {
	Status  *StatusResponseDoc
	Latency time.Duration
}

// Ping performs a Server-List-Ping against addr: connects, sends
// Handshake(next=Status) + StatusRequest, reads StatusResponse, then sends
// PingRequest and reads PongResponse to measure latency. Timeouts are the
// caller's responsibility via the deadline parameter.
func Ping(network, addr string, deadline time.Time) (*PingResult, error) {
	conn, err := net.DialTimeout(network, addr, time.Until(deadline))
	if err != nil {
		return nil, fmt.Errorf("mcproto: dial %s: %w", addr, err)
	}
	defer conn.Close()

	if err := conn.SetDeadline(deadline); err != nil {
		return nil, fmt.Errorf("mcproto: set deadline: %w", err)
	}

	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		host, portStr = addr, "25565"
	}
	var port uint16
	fmt.Sscanf(portStr, "%d", &port)

	if err := WriteHandshake(conn, &Handshake{
		ProtocolVersion: -1,
		ServerAddress:   host,
		ServerPort:      port,
		NextState:       StateStatus,
	}); err != nil {
		return nil, fmt.Errorf("mcproto: write handshake: %w", err)
	}
	if err := WriteStatusRequest(conn); err != nil {
		return nil, fmt.Errorf("mcproto: write status request: %w", err)
	}

	status, err := ReadStatusResponse(conn)
	if err != nil {
		return nil, fmt.Errorf("mcproto: read status response: %w", err)
	}

	start := time.Now()
	ts := start.UnixMilli()
	if err := WritePingRequest(conn, ts); err != nil {
		return nil, fmt.Errorf("mcproto: write ping request: %w", err)
	}
	if _, err := ReadPongResponse(conn); err != nil {
		return nil, fmt.Errorf("mcproto: read pong response: %w", err)
	}

	return &PingResult{Status: status, Latency: time.Since(start)}, nil
}
</content>
