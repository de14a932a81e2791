package transport

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
)

// DefaultMaxFrameSize bounds the length prefix accepted by Socket.
const DefaultMaxFrameSize = 64 << 20

// Socket frames a byte stream (TCP, Unix socket, pipe) with a 4-byte big-endian length prefix.
//
// Reads cannot be interrupted by ctx once they block; close the socket to unblock them.
type Socket struct {
	conn         io.ReadWriteCloser
	r            *bufio.Reader
	maxFrameSize uint32

	writeMut sync.Mutex

	closeOnce sync.Once
	closeErr  error
}

func NewSocket(conn io.ReadWriteCloser) *Socket {
	return &Socket{
		conn:         conn,
		r:            bufio.NewReader(conn),
		maxFrameSize: DefaultMaxFrameSize,
	}
}

// WithMaxFrameSize sets the largest frame Read accepts and returns s.
func (s *Socket) WithMaxFrameSize(n uint32) *Socket {
	s.maxFrameSize = n
	return s
}

func (s *Socket) Read(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var header [4]byte
	_, err := io.ReadFull(s.r, header[:])
	if err != nil {
		// EOF on a frame boundary is an orderly close
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("reading frame header: %w", err)
	}
	n := binary.BigEndian.Uint32(header[:])
	if n > s.maxFrameSize {
		return nil, fmt.Errorf("frame of %d bytes exceeds limit of %d bytes", n, s.maxFrameSize)
	}
	frame := make([]byte, n)
	_, err = io.ReadFull(s.r, frame)
	if err != nil {
		return nil, fmt.Errorf("reading frame body: %w", err)
	}
	return frame, nil
}

func (s *Socket) Write(ctx context.Context, frame []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if uint64(len(frame)) > uint64(s.maxFrameSize) {
		return fmt.Errorf("frame of %d bytes exceeds limit of %d bytes", len(frame), s.maxFrameSize)
	}
	buf := make([]byte, 4+len(frame))
	binary.BigEndian.PutUint32(buf, uint32(len(frame)))
	copy(buf[4:], frame)

	s.writeMut.Lock()
	defer s.writeMut.Unlock()
	_, err := s.conn.Write(buf)
	return err
}

func (s *Socket) Close() error {
	s.closeOnce.Do(func() { s.closeErr = s.conn.Close() })
	return s.closeErr
}
