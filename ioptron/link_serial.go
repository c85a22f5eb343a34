package ioptron

import (
	"bytes"
	"errors"
	"sync"
	"time"

	"github.com/mdouchement/logger"
	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

var ErrNoSerialPort = errors.New("ioptron: no USB serial port found")

// SerialLink talks to the mount over its USB/RS232 port.
type SerialLink struct {
	name     string
	port     serial.Port
	log      logger.Logger
	settle   time.Duration
	watchdog time.Duration
	rbuf     []byte
	once     sync.Once
	closeErr error
}

// ListPorts returns the USB serial ports present on the host.
func ListPorts() ([]*enumerator.PortDetails, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, err
	}

	usb := ports[:0]
	for _, p := range ports {
		if p.IsUSB {
			usb = append(usb, p)
		}
	}
	return usb, nil
}

// OpenSerialAuto opens the first USB serial port found.
func OpenSerialAuto(baud int, opts ...Option) (*SerialLink, error) {
	ports, err := ListPorts()
	if err != nil {
		return nil, &TransportError{Kind: ConnectFailed, Op: "list_ports", Err: err}
	}
	if len(ports) == 0 {
		return nil, &TransportError{Kind: ConnectFailed, Op: "list_ports", Err: ErrNoSerialPort}
	}

	return OpenSerial(ports[0].Name, baud, opts...)
}

func OpenSerial(name string, baud int, opts ...Option) (*SerialLink, error) {
	o, err := newOptions(opts)
	if err != nil {
		return nil, err
	}
	if baud <= 0 {
		baud = DefaultSerialBaud
	}

	l := &SerialLink{
		name:     name,
		log:      o.log,
		settle:   o.settleDelay,
		watchdog: o.watchdog,
		rbuf:     make([]byte, socketReadSize),
	}

	l.port, err = serial.Open(name, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, &TransportError{Kind: ConnectFailed, Op: "open " + name, Err: err}
	}

	fail := func(err error) (*SerialLink, error) {
		l.port.Close()
		return nil, &TransportError{Kind: ConnectFailed, Op: "open " + name, Err: err}
	}

	if err = l.port.SetReadTimeout(serialPollTimeout); err != nil {
		return fail(err)
	}
	if err = l.port.ResetInputBuffer(); err != nil {
		return fail(err)
	}
	if err = l.port.ResetOutputBuffer(); err != nil {
		return fail(err)
	}

	return l, nil
}

func (l *SerialLink) Port() string {
	return l.name
}

func (l *SerialLink) Send(frame string) error {
	logFrame(l.log, "->", frame)

	n, err := l.port.Write([]byte(frame))
	if err != nil {
		return &TransportError{Kind: IoFailed, Op: "send", Err: err}
	}
	if n != len(frame) && l.log != nil {
		l.log.Warnf("Invalid write: %d of %d", n, len(frame))
	}

	time.Sleep(l.settle)
	return nil
}

// Receive polls the port until bytes stop arriving. The watchdog bounds the
// wait for the first byte.
func (l *SerialLink) Receive() (string, error) {
	var response bytes.Buffer
	started := time.Now()

	for {
		n, err := l.port.Read(l.rbuf)
		if err != nil {
			return "", &TransportError{Kind: IoFailed, Op: "receive", Err: err}
		}

		if n > 0 {
			response.Write(l.rbuf[:n])
			continue
		}

		// The read timed out with nothing pending.
		if response.Len() > 0 {
			logFrame(l.log, "<-", response.String())
			return response.String(), nil
		}

		if l.watchdog > 0 && time.Since(started) >= l.watchdog {
			return "", &TransportError{Kind: Timeout, Op: "receive"}
		}
	}
}

func (l *SerialLink) Close() error {
	l.once.Do(func() {
		// The port may already be gone, buffer resets are best effort.
		l.port.ResetInputBuffer()
		l.port.ResetOutputBuffer()
		l.closeErr = l.port.Close()
	})
	return l.closeErr
}
