package rcon

import (
	"encoding/binary"
	"io"
	"net"
	"testing"
	"time"
)

// fakeServer accepts a single connection, authenticates any non-empty
// password, and echoes "OK" for every subsequent command.
func fakeServer(t *testing.T) (addr string, done chan struct{}) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	done = make(chan struct{})

	go func() {
		defer close(done)
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		ln.Close()

		for {
			id, typ, _, err := readPacket(conn)
			if err != nil {
				return
			}
			switch typ {
			case typeAuth:
				writePacket(conn, id, typeAuthResponse, nil)
			case typeExecCommand:
				writePacket(conn, id, typeResponseValue, []byte("OK"))
			}
		}
	}()

	return ln.Addr().String(), done
}

func readPacket(conn net.Conn) (id, typ int32, body []byte, err error) {
	var lengthBuf [4]byte
	if _, err = io.ReadFull(conn, lengthBuf[:]); err != nil {
		return
	}
	length := int32(binary.LittleEndian.Uint32(lengthBuf[:]))

	var idBuf, typeBuf [4]byte
	io.ReadFull(conn, idBuf[:])
	io.ReadFull(conn, typeBuf[:])
	id = int32(binary.LittleEndian.Uint32(idBuf[:]))
	typ = int32(binary.LittleEndian.Uint32(typeBuf[:]))

	body = make([]byte, length-10)
	io.ReadFull(conn, body)
	var term [2]byte
	io.ReadFull(conn, term[:])
	return
}

func writePacket(conn net.Conn, id, typ int32, body []byte) {
	length := int32(len(body) + 10)
	buf := make([]byte, 0, 4+length)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(length))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(id))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(typ))
	buf = append(buf, body...)
	buf = append(buf, 0, 0)
	conn.Write(buf)
}

func TestAuthAndExecuteCommand(t *testing.T) {
	addr, done := fakeServer(t)

	client, err := Dial(addr, "secret", 2*time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	resp, err := client.ExecuteCommand("stop")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if resp != "OK" {
		t.Fatalf("expected OK, got %q", resp)
	}

	client.Close()
	<-done
}
</content>
