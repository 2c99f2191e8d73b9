// Package rcon implements a client for the Source RCON protocol, used by the
// supervisor to issue graceful "stop" and "tellraw" commands to a running
// Minecraft server.
package rcon

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"time"
)

const (
	typeAuth            int32 = 3
	typeAuthResponse    int32 = 2
	typeExecCommand     int32 = 2
	typeResponseValue   int32 = 0
)

// Client is an authenticated RCON connection.
type Client struct {
	conn net.Conn
}

// Dial connects to addr and authenticates with password. It fails if the
// server rejects the password (response id -1) or replies with the wrong
// packet type.
func Dial(addr, password string, timeout time.Duration) (*Client, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, fmt.Errorf("rcon: dial %s: %w", addr, err)
	}

	c := &Client{conn: conn}
	if err := c.sendPacket(1, typeAuth, []byte(password)); err != nil {
		conn.Close()
		return nil, fmt.Errorf("rcon: send auth: %w", err)
	}

	id, typ, _, err := c.receivePacket()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("rcon: receive auth response: %w", err)
	}
	if typ != typeAuthResponse || id == -1 {
		conn.Close()
		return nil, fmt.Errorf("rcon: authentication failed")
	}

	return c, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// SetDeadline forwards to the underlying connection.
func (c *Client) SetDeadline(t time.Time) error {
	return c.conn.SetDeadline(t)
}

// ExecuteCommand sends command as SERVERDATA_EXECCOMMAND and waits for a
// SERVERDATA_RESPONSE_VALUE reply, returning its body.
func (c *Client) ExecuteCommand(command string) (string, error) {
	if err := c.sendPacket(2, typeExecCommand, []byte(command)); err != nil {
		return "", fmt.Errorf("rcon: send command: %w", err)
	}

	_, typ, body, err := c.receivePacket()
	if err != nil {
		return "", fmt.Errorf("rcon: receive response: %w", err)
	}
	if typ != typeResponseValue {
		return "", fmt.Errorf("rcon: invalid response type %d", typ)
	}
	return string(body), nil
}

func (c *Client) sendPacket(id, typ int32, body []byte) error {
	length := int32(len(body) + 10)

	buf := make([]byte, 0, 4+length)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(length))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(id))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(typ))
	buf = append(buf, body...)
	buf = append(buf, 0, 0)

	_, err := c.conn.Write(buf)
	return err
}

func (c *Client) receivePacket() (id, typ int32, body []byte, err error) {
	var lengthBuf [4]byte
	if _, err = io.ReadFull(c.conn, lengthBuf[:]); err != nil {
		return 0, 0, nil, err
	}
	length := int32(binary.LittleEndian.Uint32(lengthBuf[:]))

	var idBuf, typeBuf [4]byte
	if _, err = io.ReadFull(c.conn, idBuf[:]); err != nil {
		return 0, 0, nil, err
	}
	if _, err = io.ReadFull(c.conn, typeBuf[:]); err != nil {
		return 0, 0, nil, err
	}
	id = int32(binary.LittleEndian.Uint32(idBuf[:]))
	typ = int32(binary.LittleEndian.Uint32(typeBuf[:]))

	bodyLen := length - 10
	if bodyLen < 0 {
		return 0, 0, nil, fmt.Errorf("rcon: invalid packet length %d", length)
	}

	body = make([]byte, bodyLen)
	if _, err = io.ReadFull(c.conn, body); err != nil {
		return 0, 0, nil, err
	}

	var terminator [2]byte
	if _, err = io.ReadFull(c.conn, terminator[:]); err != nil {
		return 0, 0, nil, err
	}
	if terminator != [2]byte{0, 0} {
		return 0, 0, nil, fmt.Errorf("rcon: invalid packet termination")
	}

	return id, typ, body, nil
}
</content>
