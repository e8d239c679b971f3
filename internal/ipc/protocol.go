// Package ipc implements the framed request/response protocol on the node's
// submission surface, and the handler that drives statements through the
// query core.
package ipc

import (
	"encoding/binary"
	"io"

	"github.com/kartikbazzad/tskv/internal/errors"
)

const (
	RequestIDSize = 16 // raw UUID bytes
	CommandSize   = 1
	StatusSize    = 1
	ErrCodeSize   = 2
	BodyLenSize   = 4

	MaxFrameSize = 16 * 1024 * 1024
)

const (
	CmdQuery       = 1
	CmdDescribe    = 2
	CmdInsert      = 3
	CmdCreateTable = 4
	CmdListTables  = 5
	CmdStats       = 6
)

type Status byte

const (
	StatusOK Status = iota
	StatusError
)

// RequestFrame is one client request: a statement body under a command tag.
type RequestFrame struct {
	RequestID [RequestIDSize]byte
	Command   uint8
	Body      []byte
}

// ResponseFrame is one server reply. ErrCode carries the wire error
// numbering when Status is StatusError.
type ResponseFrame struct {
	RequestID [RequestIDSize]byte
	Status    Status
	ErrCode   uint16
	Body      []byte
}

// WriteRequest writes a length-prefixed request frame.
func WriteRequest(w io.Writer, frame *RequestFrame) error {
	size := RequestIDSize + CommandSize + BodyLenSize + len(frame.Body)
	if size > MaxFrameSize {
		return errors.ErrFrameTooLarge
	}

	buf := make([]byte, 4+size)
	binary.LittleEndian.PutUint32(buf, uint32(size))
	offset := 4

	copy(buf[offset:], frame.RequestID[:])
	offset += RequestIDSize

	buf[offset] = frame.Command
	offset += CommandSize

	binary.LittleEndian.PutUint32(buf[offset:], uint32(len(frame.Body)))
	offset += BodyLenSize

	copy(buf[offset:], frame.Body)

	_, err := w.Write(buf)
	return err
}

// ReadRequest reads one length-prefixed request frame.
func ReadRequest(r io.Reader) (*RequestFrame, error) {
	data, err := readFrame(r)
	if err != nil {
		return nil, err
	}
	if len(data) < RequestIDSize+CommandSize+BodyLenSize {
		return nil, errors.ErrInvalidFrame
	}

	frame := &RequestFrame{}
	offset := 0

	copy(frame.RequestID[:], data[offset:offset+RequestIDSize])
	offset += RequestIDSize

	frame.Command = data[offset]
	offset += CommandSize

	bodyLen := int(binary.LittleEndian.Uint32(data[offset:]))
	offset += BodyLenSize
	if offset+bodyLen != len(data) {
		return nil, errors.ErrInvalidFrame
	}
	frame.Body = data[offset:]

	return frame, nil
}

// WriteResponse writes a length-prefixed response frame.
func WriteResponse(w io.Writer, frame *ResponseFrame) error {
	size := RequestIDSize + StatusSize + ErrCodeSize + BodyLenSize + len(frame.Body)
	if size > MaxFrameSize {
		return errors.ErrFrameTooLarge
	}

	buf := make([]byte, 4+size)
	binary.LittleEndian.PutUint32(buf, uint32(size))
	offset := 4

	copy(buf[offset:], frame.RequestID[:])
	offset += RequestIDSize

	buf[offset] = byte(frame.Status)
	offset += StatusSize

	binary.LittleEndian.PutUint16(buf[offset:], frame.ErrCode)
	offset += ErrCodeSize

	binary.LittleEndian.PutUint32(buf[offset:], uint32(len(frame.Body)))
	offset += BodyLenSize

	copy(buf[offset:], frame.Body)

	_, err := w.Write(buf)
	return err
}

// ReadResponse reads one length-prefixed response frame.
func ReadResponse(r io.Reader) (*ResponseFrame, error) {
	data, err := readFrame(r)
	if err != nil {
		return nil, err
	}
	if len(data) < RequestIDSize+StatusSize+ErrCodeSize+BodyLenSize {
		return nil, errors.ErrInvalidFrame
	}

	frame := &ResponseFrame{}
	offset := 0

	copy(frame.RequestID[:], data[offset:offset+RequestIDSize])
	offset += RequestIDSize

	frame.Status = Status(data[offset])
	offset += StatusSize

	frame.ErrCode = binary.LittleEndian.Uint16(data[offset:])
	offset += ErrCodeSize

	bodyLen := int(binary.LittleEndian.Uint32(data[offset:]))
	offset += BodyLenSize
	if offset+bodyLen != len(data) {
		return nil, errors.ErrInvalidFrame
	}
	frame.Body = data[offset:]

	return frame, nil
}

func readFrame(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	size := binary.LittleEndian.Uint32(lenBuf[:])
	if size > MaxFrameSize {
		return nil, errors.ErrFrameTooLarge
	}

	data := make([]byte, size)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, err
	}
	return data, nil
}
