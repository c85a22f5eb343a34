package ioptron

import (
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"
)

// fakePort answers reads from a script of chunks. An exhausted script behaves
// like a read timeout with nothing pending.
type fakePort struct {
	serial.Port // unused methods panic

	mu      sync.Mutex
	written []byte
	chunks  []string
	readErr error
	closes  int
}

func (p *fakePort) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.readErr != nil {
		return 0, p.readErr
	}
	if len(p.chunks) == 0 {
		time.Sleep(time.Millisecond)
		return 0, nil
	}

	n := copy(b, p.chunks[0])
	p.chunks = p.chunks[1:]
	return n, nil
}

func (p *fakePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.written = append(p.written, b...)
	return len(b), nil
}

func (p *fakePort) ResetInputBuffer() error  { return nil }
func (p *fakePort) ResetOutputBuffer() error { return nil }

func (p *fakePort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closes++
	return nil
}

func serialLink(port *fakePort, watchdog time.Duration) *SerialLink {
	return &SerialLink{
		name:     "/dev/ttyUSB0",
		port:     port,
		watchdog: watchdog,
		rbuf:     make([]byte, socketReadSize),
	}
}

func TestSerialLinkJoinsChunks(t *testing.T) {
	port := &fakePort{chunks: []string{"+0084", "6000499", "86000", "2105", "31#"}}
	l := serialLink(port, time.Second)

	require.NoError(t, l.Send(":GLS#"))
	assert.Equal(t, ":GLS#", string(port.written))

	raw, err := l.Receive()
	require.NoError(t, err)
	assert.Equal(t, "+00846000"+"49986000"+"2105"+"31#", raw)
	assert.Equal(t, "/dev/ttyUSB0", l.Port())
}

func TestSerialLinkWatchdog(t *testing.T) {
	l := serialLink(&fakePort{}, 20*time.Millisecond)

	started := time.Now()
	_, err := l.Receive()
	require.ErrorIs(t, err, ErrTransport)
	assert.GreaterOrEqual(t, time.Since(started), 20*time.Millisecond)

	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, Timeout, terr.Kind)
	assert.False(t, terr.Fatal())
}

func TestSerialLinkReadError(t *testing.T) {
	l := serialLink(&fakePort{readErr: io.ErrUnexpectedEOF}, time.Second)

	_, err := l.Receive()
	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, IoFailed, terr.Kind)
	assert.True(t, terr.Fatal())
	assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))
}

func TestSerialLinkCloseOnce(t *testing.T) {
	port := &fakePort{}
	l := serialLink(port, time.Second)

	require.NoError(t, l.Close())
	require.NoError(t, l.Close())
	assert.Equal(t, 1, port.closes)
}
