package storage

import (
	"encoding/binary"
	"math"

	"github.com/kartikbazzad/tskv/internal/errors"
	"github.com/kartikbazzad/tskv/internal/types"
)

// Record value layout: cell count, then per cell a length-prefixed field
// name, a type tag, and the tagged value. An empty value (zero bytes) is a
// tombstone. The range scan ships tombstones as-is; DecodeRow never sees one
// because its callers (the scan's filter check and the worker's chunk
// decode) skip empty values.

const (
	tagNull byte = iota
	tagVarchar
	tagSint64
	tagDouble
	tagTimestamp
	tagBoolean
)

// EncodeRow encodes a decoded row into record value bytes, preserving cell
// order.
func EncodeRow(row types.Row) []byte {
	var out []byte
	var buf [8]byte

	binary.LittleEndian.PutUint16(buf[:2], uint16(len(row)))
	out = append(out, buf[:2]...)

	for _, c := range row {
		binary.LittleEndian.PutUint16(buf[:2], uint16(len(c.Field)))
		out = append(out, buf[:2]...)
		out = append(out, c.Field...)

		switch v := c.Value.(type) {
		case nil:
			out = append(out, tagNull)
		case string:
			out = append(out, tagVarchar)
			binary.LittleEndian.PutUint32(buf[:4], uint32(len(v)))
			out = append(out, buf[:4]...)
			out = append(out, v...)
		case int64:
			out = append(out, tagSint64)
			binary.LittleEndian.PutUint64(buf[:], uint64(v))
			out = append(out, buf[:]...)
		case float64:
			out = append(out, tagDouble)
			binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
			out = append(out, buf[:]...)
		case bool:
			out = append(out, tagBoolean)
			if v {
				out = append(out, 1)
			} else {
				out = append(out, 0)
			}
		}
	}
	return out
}

// DecodeRow decodes record value bytes into a row, preserving stored order.
func DecodeRow(data []byte) (types.Row, error) {
	if len(data) < 2 {
		return nil, errors.ErrBadRecord
	}
	count := int(binary.LittleEndian.Uint16(data[:2]))
	offset := 2

	row := make(types.Row, 0, count)
	for i := 0; i < count; i++ {
		if offset+2 > len(data) {
			return nil, errors.ErrBadRecord
		}
		fieldLen := int(binary.LittleEndian.Uint16(data[offset:]))
		offset += 2
		if offset+fieldLen+1 > len(data) {
			return nil, errors.ErrBadRecord
		}
		field := string(data[offset : offset+fieldLen])
		offset += fieldLen

		tag := data[offset]
		offset++

		var value interface{}
		switch tag {
		case tagNull:
			value = nil
		case tagVarchar:
			if offset+4 > len(data) {
				return nil, errors.ErrBadRecord
			}
			n := int(binary.LittleEndian.Uint32(data[offset:]))
			offset += 4
			if offset+n > len(data) {
				return nil, errors.ErrBadRecord
			}
			value = string(data[offset : offset+n])
			offset += n
		case tagSint64, tagTimestamp:
			if offset+8 > len(data) {
				return nil, errors.ErrBadRecord
			}
			value = int64(binary.LittleEndian.Uint64(data[offset:]))
			offset += 8
		case tagDouble:
			if offset+8 > len(data) {
				return nil, errors.ErrBadRecord
			}
			value = math.Float64frombits(binary.LittleEndian.Uint64(data[offset:]))
			offset += 8
		case tagBoolean:
			if offset+1 > len(data) {
				return nil, errors.ErrBadRecord
			}
			value = data[offset] == 1
			offset++
		default:
			return nil, errors.ErrBadRecord
		}

		row = append(row, types.Cell{Field: field, Value: value})
	}

	return row, nil
}
