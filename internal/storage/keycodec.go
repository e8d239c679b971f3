package storage

import (
	"encoding/binary"
	"math"

	"github.com/kartikbazzad/tskv/internal/ddl"
	"github.com/kartikbazzad/tskv/internal/query"
)

// Key encoding must be order-preserving under bytewise comparison: the
// backend range-scans raw keys, so encoded order has to match typed order.
// Integers are big-endian with the sign bit flipped; doubles use the IEEE
// total-order transform; strings are null-escaped and terminated so that a
// prefix sorts before its extensions.

const (
	strEscape     = 0x00
	strEscapedFF  = 0xFF
	strTerminator = 0x01
)

// EncodeKeyCells packs typed key cells into one comparable byte key.
func EncodeKeyCells(cells []query.KeyCell) []byte {
	var out []byte
	for _, c := range cells {
		out = appendCell(out, c)
	}
	return out
}

func appendCell(out []byte, c query.KeyCell) []byte {
	switch c.Type {
	case ddl.TypeVarchar:
		s, _ := c.Value.(string)
		for i := 0; i < len(s); i++ {
			if s[i] == strEscape {
				out = append(out, strEscape, strEscapedFF)
			} else {
				out = append(out, s[i])
			}
		}
		return append(out, strEscape, strTerminator)
	case ddl.TypeSint64, ddl.TypeTimestamp:
		v, _ := toKeyInt64(c.Value)
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], uint64(v)^(1<<63))
		return append(out, buf[:]...)
	case ddl.TypeDouble:
		f, _ := c.Value.(float64)
		bits := math.Float64bits(f)
		if bits&(1<<63) != 0 {
			bits = ^bits
		} else {
			bits |= 1 << 63
		}
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], bits)
		return append(out, buf[:]...)
	case ddl.TypeBoolean:
		b, _ := c.Value.(bool)
		if b {
			return append(out, 1)
		}
		return append(out, 0)
	}
	return out
}

func toKeyInt64(v interface{}) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	case float64:
		return int64(x), true
	}
	return 0, false
}
