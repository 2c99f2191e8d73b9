package proxy

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/oriku/minecraftd/internal/mcproto"
)

// fallbackStatusPing answers a client's Server-List-Ping with a synthetic
// status response whose description carries message, explaining why the
// requested server can't be reached. A client in the status state expects a
// status response (not a disconnect), so it can still display the message
// on the server list.
func (p *Proxy) fallbackStatusPing(conn net.Conn, message string) error {
	for {
		raw, err := mcproto.ReadRawPacket(conn)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("proxy: read packet from client: %w", err)
		}

		switch raw.ID {
		case 0x00: // StatusRequest
			description, err := json.Marshal(mcproto.TextComponent{Text: message})
			if err != nil {
				return fmt.Errorf("proxy: marshal status description: %w", err)
			}
			doc := &mcproto.StatusResponseDoc{Description: json.RawMessage(description)}
			if err := mcproto.WriteStatusResponse(conn, doc); err != nil {
				return fmt.Errorf("proxy: write status response: %w", err)
			}
		case 0x01: // PingRequest
			var timestamp int64
			if err := binary.Read(bytes.NewReader(raw.Payload), binary.BigEndian, &timestamp); err != nil {
				return fmt.Errorf("proxy: parse ping request: %w", err)
			}
			if err := mcproto.WritePongResponse(conn, timestamp); err != nil {
				return fmt.Errorf("proxy: write pong response: %w", err)
			}
			return nil
		default:
			return fmt.Errorf("proxy: unexpected packet id 0x%02x in status state", raw.ID)
		}
	}
}
