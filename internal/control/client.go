package control

import (
	"fmt"
	"net"
)

// Client is a connection to a running daemon's control socket. It sends one
// request at a time and waits for the matching response, mirroring the
// server's own per-connection sequencing.
type Client struct {
	conn net.Conn
}

// Dial connects to the control socket at socketPath.
func Dial(socketPath string) (*Client, error) {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("control: dial %s: %w", socketPath, err)
	}
	return &Client{conn: conn}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Conn exposes the raw connection for callers that need to switch into
// terminal framing after a successful AttachTerminal request.
func (c *Client) Conn() net.Conn {
	return c.conn
}

// SendRequest encodes req, sends it, and waits for the response. An
// ErrorResponse is surfaced as a Go error rather than returned in-band.
func (c *Client) SendRequest(req *Request) (*Response, error) {
	data, err := EncodeRequest(req)
	if err != nil {
		return nil, err
	}
	if err := writeFrame(c.conn, data); err != nil {
		return nil, fmt.Errorf("control: write request: %w", err)
	}

	respData, err := readFrame(c.conn)
	if err != nil {
		return nil, fmt.Errorf("control: read response: %w", err)
	}

	resp, err := DecodeResponse(respData)
	if err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("control: %s", resp.Error.Message)
	}
	return resp, nil
}

// ReadFrame reads one length-prefixed frame. Exported for callers (the mcctl
// terminal attach path) that read TerminalOutput frames directly off the
// connection after AttachTerminal succeeds.
func ReadFrame(conn net.Conn) ([]byte, error) {
	return readFrame(conn)
}

// WriteFrame writes one length-prefixed frame. Exported for the mcctl
// terminal attach path's TerminalInput frames.
func WriteFrame(conn net.Conn, payload []byte) error {
	return writeFrame(conn, payload)
}
