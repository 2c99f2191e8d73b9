package mcproto

import (
	"bytes"
	"testing"
)

func TestVarIntRoundTrip(t *testing.T) {
	cases := []int32{0, 1, 127, 128, 255, 25565, 2097151, -1, -2147483648, 2147483647}
	for _, n := range cases {
		var buf bytes.Buffer
		if err := WriteVarInt(&buf, VarInt(n)); err != nil {
			t.Fatalf("write %d: %v", n, err)
		}
		got, err := ReadVarInt(&buf)
		if err != nil {
			t.Fatalf("read %d: %v", n, err)
		}
		if int32(got) != n {
			t.Fatalf("round trip mismatch: want %d got %d", n, got)
		}
	}
}

func TestNegativeVarIntIsFiveBytes(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteVarInt(&buf, VarInt(-1)); err != nil {
		t.Fatalf("write: %v", err)
	}
	if buf.Len() != 5 {
		t.Fatalf("expected 5-byte encoding for -1, got %d bytes", buf.Len())
	}
}

func TestVarIntTooLongRejected(t *testing.T) {
	// Six continuation bytes, none terminating: invalid.
	data := []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}
	_, err := ReadVarInt(bytes.NewReader(data))
	if err == nil {
		t.Fatal("expected error for over-long VarInt")
	}
}

func TestHandshakeRoundTrip(t *testing.T) {
	h := &Handshake{
		ProtocolVersion: 754,
		ServerAddress:   "a.example",
		ServerPort:      25565,
		NextState:       StateLogin,
	}

	var buf bytes.Buffer
	if err := WriteHandshake(&buf, h); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := ReadHandshake(&buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if *got != *h {
		t.Fatalf("round trip mismatch: want %+v got %+v", h, got)
	}
}

func TestPingPongRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := WritePingRequest(&buf, 123); err != nil {
		t.Fatalf("write ping: %v", err)
	}
	got, err := ReadPingRequest(&buf)
	if err != nil {
		t.Fatalf("read ping: %v", err)
	}
	if got.Timestamp != 123 {
		t.Fatalf("want 123 got %d", got.Timestamp)
	}

	buf.Reset()
	if err := WritePongResponse(&buf, 123); err != nil {
		t.Fatalf("write pong: %v", err)
	}
	ts, err := ReadPongResponse(&buf)
	if err != nil {
		t.Fatalf("read pong: %v", err)
	}
	if ts != 123 {
		t.Fatalf("want 123 got %d", ts)
	}
}

func TestStatusResponseRoundTrip(t *testing.T) {
	doc := &StatusResponseDoc{}
	doc.Version.Name = "1.20.1"
	doc.Version.Protocol = 763
	doc.Players = &StatusResponsePlayers{Max: 20, Online: 2}

	var buf bytes.Buffer
	if err := WriteStatusResponse(&buf, doc); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := ReadStatusResponse(&buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Version.Name != doc.Version.Name || got.Players.Online != doc.Players.Online {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}
</content>
