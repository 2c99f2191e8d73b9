package mcproto

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
)

// ProtocolState names the four states a Minecraft connection can request at
// handshake time.
type ProtocolState VarInt

const (
	StateHandshaking ProtocolState = 0
	StateStatus      ProtocolState = 1
	StateLogin       ProtocolState = 2
	StateTransfer    ProtocolState = 3
)

// RawPacket is an undecoded, length-framed packet: a packet id followed by
// its raw payload bytes.
type RawPacket struct {
	ID      VarInt
	Payload []byte
}

// ReadRawPacket reads one `[VarInt length][VarInt id][payload]` frame without
// assuming which packet type it is. The reverse proxy uses this to dispatch
// on ID before a state's concrete packet type is known.
func ReadRawPacket(r io.Reader) (*RawPacket, error) {
	length, err := ReadVarInt(r)
	if err != nil {
		return nil, fmt.Errorf("mcproto: read packet length: %w", err)
	}
	if length < 0 {
		return nil, fmt.Errorf("mcproto: negative packet length")
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("mcproto: read packet body (%d bytes): %w", length, err)
	}

	buf := bytes.NewReader(body)
	id, err := ReadVarInt(buf)
	if err != nil {
		return nil, fmt.Errorf("mcproto: read packet id: %w", err)
	}

	payload := make([]byte, buf.Len())
	if _, err := io.ReadFull(buf, payload); err != nil {
		return nil, fmt.Errorf("mcproto: read packet payload: %w", err)
	}

	return &RawPacket{ID: id, Payload: payload}, nil
}

// WriteRawPacket writes a `[VarInt length][VarInt id][payload]` frame.
func WriteRawPacket(w io.Writer, id VarInt, payload []byte) error {
	var body bytes.Buffer
	if err := WriteVarInt(&body, id); err != nil {
		return err
	}
	body.Write(payload)

	if err := WriteVarInt(w, VarInt(body.Len())); err != nil {
		return err
	}
	_, err := w.Write(body.Bytes())
	return err
}

// Handshake is the single Handshaking-state serverbound packet (id 0x00).
type Handshake struct {
	ProtocolVersion VarInt
	ServerAddress   string
	ServerPort      uint16
	NextState       ProtocolState
}

// ReadHandshake reads one Handshake packet.
func ReadHandshake(r io.Reader) (*Handshake, error) {
	raw, err := ReadRawPacket(r)
	if err != nil {
		return nil, err
	}
	if raw.ID != 0x00 {
		return nil, fmt.Errorf("mcproto: expected handshake packet (0x00), got 0x%02x", raw.ID)
	}

	buf := bytes.NewReader(raw.Payload)
	h := &Handshake{}

	h.ProtocolVersion, err = ReadVarInt(buf)
	if err != nil {
		return nil, fmt.Errorf("mcproto: handshake protocol version: %w", err)
	}
	h.ServerAddress, err = ReadString(buf)
	if err != nil {
		return nil, fmt.Errorf("mcproto: handshake server address: %w", err)
	}
	if err := binary.Read(buf, binary.BigEndian, &h.ServerPort); err != nil {
		return nil, fmt.Errorf("mcproto: handshake server port: %w", err)
	}
	next, err := ReadVarInt(buf)
	if err != nil {
		return nil, fmt.Errorf("mcproto: handshake next state: %w", err)
	}
	h.NextState = ProtocolState(next)

	return h, nil
}

// WriteHandshake writes one Handshake packet.
func WriteHandshake(w io.Writer, h *Handshake) error {
	var buf bytes.Buffer
	if err := WriteVarInt(&buf, h.ProtocolVersion); err != nil {
		return err
	}
	if err := WriteString(&buf, h.ServerAddress); err != nil {
		return err
	}
	if err := binary.Write(&buf, binary.BigEndian, h.ServerPort); err != nil {
		return err
	}
	if err := WriteVarInt(&buf, VarInt(h.NextState)); err != nil {
		return err
	}
	return WriteRawPacket(w, 0x00, buf.Bytes())
}

// WriteHandshakeRaw re-emits a handshake's on-wire bytes verbatim, used by
// the reverse proxy to forward the original handshake without re-encoding.
func WriteHandshakeRaw(w io.Writer, raw []byte) error {
	_, err := w.Write(raw)
	return err
}

// StatusRequest is the empty Status-state serverbound packet (id 0x00).
type StatusRequest struct{}

// ReadStatusRequest reads and validates an (empty) StatusRequest packet.
func ReadStatusRequest(r io.Reader) error {
	raw, err := ReadRawPacket(r)
	if err != nil {
		return err
	}
	if raw.ID != 0x00 {
		return fmt.Errorf("mcproto: expected status request (0x00), got 0x%02x", raw.ID)
	}
	return nil
}

// WriteStatusRequest writes an empty StatusRequest packet.
func WriteStatusRequest(w io.Writer) error {
	return WriteRawPacket(w, 0x00, nil)
}

// PingRequest is the Status-state serverbound ping packet (id 0x01).
type PingRequest struct {
	Timestamp int64
}

// ReadPingRequest reads a PingRequest packet.
func ReadPingRequest(r io.Reader) (*PingRequest, error) {
	raw, err := ReadRawPacket(r)
	if err != nil {
		return nil, err
	}
	if raw.ID != 0x01 {
		return nil, fmt.Errorf("mcproto: expected ping request (0x01), got 0x%02x", raw.ID)
	}
	var ts int64
	if err := binary.Read(bytes.NewReader(raw.Payload), binary.BigEndian, &ts); err != nil {
		return nil, fmt.Errorf("mcproto: ping timestamp: %w", err)
	}
	return &PingRequest{Timestamp: ts}, nil
}

// WritePingRequest writes a PingRequest packet.
func WritePingRequest(w io.Writer, timestamp int64) error {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.BigEndian, timestamp); err != nil {
		return err
	}
	return WriteRawPacket(w, 0x01, buf.Bytes())
}

// StatusResponse is the Status-state clientbound response (id 0x00). The
// JSON payload is kept raw: this daemon only ever needs to read a handful
// of fields out of it (players.online/max) or synthesize one describing why
// a backend cannot be served.
type StatusResponsePlayers struct {
	Max    int `json:"max"`
	Online int `json:"online"`
}

type StatusResponseDoc struct {
	Version struct {
		Name     string `json:"name"`
		Protocol int    `json:"protocol"`
	} `json:"version"`
	Players     *StatusResponsePlayers `json:"players,omitempty"`
	Description json.RawMessage        `json:"description,omitempty"`
}

// ReadStatusResponse reads a StatusResponse packet and parses its JSON body.
func ReadStatusResponse(r io.Reader) (*StatusResponseDoc, error) {
	raw, err := ReadRawPacket(r)
	if err != nil {
		return nil, err
	}
	if raw.ID != 0x00 {
		return nil, fmt.Errorf("mcproto: expected status response (0x00), got 0x%02x", raw.ID)
	}

	buf := bytes.NewReader(raw.Payload)
	jsonStr, err := ReadString(buf)
	if err != nil {
		return nil, fmt.Errorf("mcproto: status response json: %w", err)
	}

	var doc StatusResponseDoc
	if err := json.Unmarshal([]byte(jsonStr), &doc); err != nil {
		return nil, fmt.Errorf("mcproto: status response unmarshal: %w", err)
	}
	return &doc, nil
}

// WriteStatusResponse writes a StatusResponse packet carrying doc as its
// JSON payload.
func WriteStatusResponse(w io.Writer, doc *StatusResponseDoc) error {
	jsonBytes, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("mcproto: status response marshal: %w", err)
	}

	var buf bytes.Buffer
	if err := WriteString(&buf, string(jsonBytes)); err != nil {
		return err
	}
	return WriteRawPacket(w, 0x00, buf.Bytes())
}

// PongResponse is the Status-state clientbound pong (id 0x01), echoing the
// PingRequest's timestamp.
func ReadPongResponse(r io.Reader) (int64, error) {
	raw, err := ReadRawPacket(r)
	if err != nil {
		return 0, err
	}
	if raw.ID != 0x01 {
		return 0, fmt.Errorf("mcproto: expected pong response (0x01), got 0x%02x", raw.ID)
	}
	var ts int64
	if err := binary.Read(bytes.NewReader(raw.Payload), binary.BigEndian, &ts); err != nil {
		return 0, fmt.Errorf("mcproto: pong timestamp: %w", err)
	}
	return ts, nil
}

// WritePongResponse writes a PongResponse packet.
func WritePongResponse(w io.Writer, timestamp int64) error {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.BigEndian, timestamp); err != nil {
		return err
	}
	return WriteRawPacket(w, 0x01, buf.Bytes())
}

// TextComponent is the minimal subset of the Minecraft chat component format
// this daemon produces: a plain-colored object component. Disconnect reasons
// and tellraw notices are built from this.
type TextComponent struct {
	Text  string `json:"text"`
	Color string `json:"color,omitempty"`
}

// WriteDisconnect writes a Login-state Disconnect packet (id 0x00) carrying
// reason as its JSON chat component.
func WriteDisconnect(w io.Writer, reason TextComponent) error {
	jsonBytes, err := json.Marshal(reason)
	if err != nil {
		return fmt.Errorf("mcproto: disconnect reason marshal: %w", err)
	}

	var buf bytes.Buffer
	if err := WriteString(&buf, string(jsonBytes)); err != nil {
		return err
	}
	return WriteRawPacket(w, 0x00, buf.Bytes())
}
</content>
