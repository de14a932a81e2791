package transport

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"net"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSocketFrames(t *testing.T) {
	ctx := context.Background()
	a, b := net.Pipe()
	left, right := NewSocket(a), NewSocket(b)
	defer right.Close()

	frames := [][]byte{[]byte("hello"), {}, bytes.Repeat([]byte{0xff}, 70000)}
	go func() {
		for _, f := range frames {
			_ = left.Write(ctx, f)
		}
		_ = left.Close()
	}()

	for _, want := range frames {
		got, err := right.Read(ctx)
		require.NoError(t, err)
		assert.Equal(t, len(want), len(got))
		assert.True(t, bytes.Equal(want, got))
	}
	_, err := right.Read(ctx)
	assert.ErrorIs(t, err, io.EOF)
}

func TestSocketConcurrentWritesDoNotInterleave(t *testing.T) {
	ctx := context.Background()
	a, b := net.Pipe()
	left, right := NewSocket(a), NewSocket(b)
	defer right.Close()

	const writers = 20
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = left.Write(ctx, bytes.Repeat([]byte{byte(i)}, 1000+i))
		}(i)
	}
	go func() {
		wg.Wait()
		_ = left.Close()
	}()

	seen := map[byte]bool{}
	for i := 0; i < writers; i++ {
		frame, err := right.Read(ctx)
		require.NoError(t, err)
		require.NotEmpty(t, frame)
		id := frame[0]
		assert.Len(t, frame, 1000+int(id))
		assert.Equal(t, bytes.Repeat([]byte{id}, len(frame)), frame)
		seen[id] = true
	}
	assert.Len(t, seen, writers)
}

func TestSocketMaxFrameSize(t *testing.T) {
	ctx := context.Background()
	a, b := net.Pipe()
	left := NewSocket(a)
	right := NewSocket(b).WithMaxFrameSize(16)
	defer left.Close()
	defer right.Close()

	go func() {
		var header [4]byte
		binary.BigEndian.PutUint32(header[:], 17)
		_, _ = a.Write(header[:])
	}()
	_, err := right.Read(ctx)
	assert.ErrorContains(t, err, "exceeds limit")

	assert.Error(t, right.Write(ctx, make([]byte, 17)))
}

func TestSocketTruncatedFrame(t *testing.T) {
	ctx := context.Background()
	a, b := net.Pipe()
	right := NewSocket(b)
	defer right.Close()

	go func() {
		var header [4]byte
		binary.BigEndian.PutUint32(header[:], 10)
		_, _ = a.Write(header[:])
		_, _ = a.Write([]byte("abc"))
		_ = a.Close()
	}()
	_, err := right.Read(ctx)
	require.Error(t, err)
	assert.NotErrorIs(t, err, io.EOF)
}
