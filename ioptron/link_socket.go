package ioptron

import (
	"errors"
	"net"
	"sync"
	"time"

	"github.com/mdouchement/logger"
)

// SocketLink talks to the mount through its WiFi/Ethernet adapter.
type SocketLink struct {
	addr     string
	conn     net.Conn
	log      logger.Logger
	settle   time.Duration
	timeout  time.Duration
	rbuf     []byte
	once     sync.Once
	closeErr error
}

func DialSocket(addr string, opts ...Option) (*SocketLink, error) {
	o, err := newOptions(opts)
	if err != nil {
		return nil, err
	}

	conn, err := net.DialTimeout("tcp", addr, o.socketTimeout)
	if err != nil {
		return nil, &TransportError{Kind: ConnectFailed, Op: "dial " + addr, Err: err}
	}

	return NewSocketLink(conn, opts...)
}

// NewSocketLink wraps an established connection, the Simulator is served this way.
func NewSocketLink(conn net.Conn, opts ...Option) (*SocketLink, error) {
	o, err := newOptions(opts)
	if err != nil {
		return nil, err
	}

	return &SocketLink{
		addr:    conn.RemoteAddr().String(),
		conn:    conn,
		log:     o.log,
		settle:  o.settleDelay,
		timeout: o.socketTimeout,
		rbuf:    make([]byte, socketReadSize),
	}, nil
}

func (l *SocketLink) Addr() string {
	return l.addr
}

func (l *SocketLink) Send(frame string) error {
	logFrame(l.log, "->", frame)

	if err := l.conn.SetWriteDeadline(time.Now().Add(l.timeout)); err != nil {
		return &TransportError{Kind: IoFailed, Op: "send", Err: err}
	}
	if _, err := l.conn.Write([]byte(frame)); err != nil {
		return transportError("send", err)
	}

	time.Sleep(l.settle)
	return nil
}

// Receive performs one bounded read.
func (l *SocketLink) Receive() (string, error) {
	if err := l.conn.SetReadDeadline(time.Now().Add(l.timeout)); err != nil {
		return "", &TransportError{Kind: IoFailed, Op: "receive", Err: err}
	}

	n, err := l.conn.Read(l.rbuf)
	if err != nil {
		return "", transportError("receive", err)
	}

	response := string(l.rbuf[:n])
	logFrame(l.log, "<-", response)
	return response, nil
}

func (l *SocketLink) Close() error {
	l.once.Do(func() {
		l.closeErr = l.conn.Close()
	})
	return l.closeErr
}

func transportError(op string, err error) error {
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return &TransportError{Kind: Timeout, Op: op, Err: err}
	}
	return &TransportError{Kind: IoFailed, Op: op, Err: err}
}
