package control

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// field is one decoded (number, wire type, value) triple. Repeated fields
// (strings, sub-messages) appear as one field entry per occurrence, in wire
// order, same as protobuf itself.
type field struct {
	num    protowire.Number
	typ    protowire.Type
	varint uint64
	bytes  []byte
}

// parseFields walks every top-level field of a message, leaving nested
// sub-message bytes undecoded for the caller to recurse into on demand.
func parseFields(b []byte) ([]field, error) {
	var out []field
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("control: bad tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		switch typ {
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, fmt.Errorf("control: bad varint: %w", protowire.ParseError(n))
			}
			b = b[n:]
			out = append(out, field{num: num, typ: typ, varint: v})
		case protowire.Fixed32Type:
			v, n := protowire.ConsumeFixed32(b)
			if n < 0 {
				return nil, fmt.Errorf("control: bad fixed32: %w", protowire.ParseError(n))
			}
			b = b[n:]
			out = append(out, field{num: num, typ: typ, varint: uint64(v)})
		case protowire.Fixed64Type:
			v, n := protowire.ConsumeFixed64(b)
			if n < 0 {
				return nil, fmt.Errorf("control: bad fixed64: %w", protowire.ParseError(n))
			}
			b = b[n:]
			out = append(out, field{num: num, typ: typ, varint: v})
		case protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, fmt.Errorf("control: bad length-delimited field: %w", protowire.ParseError(n))
			}
			b = b[n:]
			out = append(out, field{num: num, typ: typ, bytes: v})
		default:
			return nil, fmt.Errorf("control: unsupported wire type %v", typ)
		}
	}
	return out, nil
}

func firstString(fields []field, num protowire.Number) (string, bool) {
	for _, f := range fields {
		if f.num == num && f.typ == protowire.BytesType {
			return string(f.bytes), true
		}
	}
	return "", false
}

func allStrings(fields []field, num protowire.Number) []string {
	var out []string
	for _, f := range fields {
		if f.num == num && f.typ == protowire.BytesType {
			out = append(out, string(f.bytes))
		}
	}
	return out
}

func allMessages(fields []field, num protowire.Number) [][]byte {
	var out [][]byte
	for _, f := range fields {
		if f.num == num && f.typ == protowire.BytesType {
			out = append(out, f.bytes)
		}
	}
	return out
}

func firstVarint(fields []field, num protowire.Number) (uint64, bool) {
	for _, f := range fields {
		if f.num == num && f.typ == protowire.VarintType {
			return f.varint, true
		}
	}
	return 0, false
}

func firstBool(fields []field, num protowire.Number) bool {
	v, _ := firstVarint(fields, num)
	return v != 0
}

func firstInt32(fields []field, num protowire.Number) (int32, bool) {
	v, ok := firstVarint(fields, num)
	return int32(v), ok
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendMessage(b []byte, num protowire.Number, sub []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, sub)
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendBool(b []byte, num protowire.Number, v bool) []byte {
	if !v {
		return b
	}
	return appendVarint(b, num, 1)
}

func appendInt32(b []byte, num protowire.Number, v int32) []byte {
	return appendVarint(b, num, uint64(v))
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func firstBytes(fields []field, num protowire.Number) ([]byte, bool) {
	for _, f := range fields {
		if f.num == num && f.typ == protowire.BytesType {
			return f.bytes, true
		}
	}
	return nil, false
}
