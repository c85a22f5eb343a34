package ioptron

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mdouchement/logger"
)

// Controller drives one mount over one Link.
// Operations block until the mount answered and at most one round trip is in flight:
// a concurrent call fails with ErrBusy instead of interleaving frames.
type Controller struct {
	link         Link
	capa         Capability
	log          logger.Logger
	conn         atomicConnState
	pollInterval time.Duration
	now          func() time.Time

	mu          sync.RWMutex
	mount       State
	lastRefresh time.Time

	closeOnce sync.Once
	closeErr  error
}

// Connect opens the link with dial. A failure is final, no Controller is returned.
func Connect(dial Dialer, capa Capability, opts ...Option) (*Controller, error) {
	o, err := newOptions(opts)
	if err != nil {
		return nil, err
	}

	c := &Controller{
		capa:         capa,
		log:          o.log,
		pollInterval: o.pollInterval,
		now:          o.now,
	}

	c.conn.ToConnecting()
	link, err := dial()
	if err != nil {
		c.conn.ToOffline()

		var terr *TransportError
		if !errors.As(err, &terr) {
			err = &TransportError{Kind: ConnectFailed, Op: "dial", Err: err}
		}
		return nil, fmt.Errorf("connect: %w", err)
	}

	c.link = link
	c.conn.ToOnline()
	return c, nil
}

func (c *Controller) SetLogger(l logger.Logger) {
	c.log = l
}

func (c *Controller) Capability() Capability {
	return c.capa
}

func (c *Controller) ConnState() ConnState {
	return c.conn.Get()
}

// State returns a snapshot of everything read from the mount so far.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.mount
}

// Close moves the controller Offline and releases the link.
func (c *Controller) Close() error {
	c.conn.ToOffline()
	return c.closeLink()
}

func (c *Controller) closeLink() error {
	c.closeOnce.Do(func() {
		if c.link != nil {
			c.closeErr = c.link.Close()
		}
	})
	return c.closeErr
}

// A request is one round trip.
type request struct {
	op       Operation
	cmd      Command
	args     []float64
	validate func() error
	// commit applies a checked response to the state, under the state lock.
	commit func(raw string, s *State)
}

func (c *Controller) run(r request) error {
	if st := c.conn.Get(); st == Offline || st == Connecting {
		return fmt.Errorf("%s: %w", r.op, ErrNotConnected)
	}

	if !c.capa.IsLegal(r.op) {
		return &CapabilityError{Operation: r.op}
	}

	if r.validate != nil {
		if err := r.validate(); err != nil {
			return fmt.Errorf("%s: %w", r.op, err)
		}
	}

	frame, err := r.cmd.Frame(r.args...)
	if err != nil {
		return fmt.Errorf("%s: %w", r.op, &ValidationError{Field: string(r.op), Reason: err.Error()})
	}

	if !c.conn.ToBusy() {
		if c.conn.Get() == Busy {
			return fmt.Errorf("%s: %w", r.op, ErrBusy)
		}
		return fmt.Errorf("%s: %w", r.op, ErrNotConnected)
	}

	raw, err := c.roundTrip(r.cmd, frame)
	if err != nil {
		var terr *TransportError
		if errors.As(err, &terr) && terr.Fatal() {
			c.fail(r.op, err)
		} else {
			c.conn.Release()
		}
		return fmt.Errorf("%s: %w", r.op, err)
	}

	if r.commit != nil {
		c.mu.Lock()
		r.commit(raw, &c.mount)
		c.mount.UpdatedAt = c.now()
		c.mu.Unlock()
	}

	c.conn.Release()
	return nil
}

func (c *Controller) roundTrip(cmd Command, frame string) (string, error) {
	if err := c.link.Send(frame); err != nil {
		return "", err
	}

	if cmd.Reply == ReplyNone {
		return "", nil
	}

	raw, err := c.link.Receive()
	if err != nil {
		return "", err
	}

	switch cmd.Reply {
	case ReplyAck:
		switch raw {
		case AckOK:
			return raw, nil
		case AckRejected:
			return "", ErrCommandRejected
		default:
			return "", &MalformedResponseError{Raw: raw, Template: AckOK}
		}
	default:
		if err := cmd.Check(raw); err != nil {
			return "", err
		}
		return raw, nil
	}
}

func (c *Controller) fail(op Operation, err error) {
	c.conn.ToOffline()
	if c.log != nil {
		c.log.WithError(err).Errorf("%s: link lost, mount is offline", op)
	}
	c.closeLink()
}

// query runs a command answered by a frame.
func (c *Controller) query(op Operation, cmd Command, commit func(raw string, s *State)) error {
	return c.run(request{op: op, cmd: cmd, commit: commit})
}

// ack runs a command answered by "1" or "0". commit runs only when the mount accepted it.
func (c *Controller) ack(op Operation, cmd Command, validate func() error, commit func(s *State), args ...float64) error {
	r := request{op: op, cmd: cmd, args: args, validate: validate}
	if commit != nil {
		r.commit = func(_ string, s *State) { commit(s) }
	}
	return c.run(r)
}

// send runs a command the mount never answers.
func (c *Controller) send(op Operation, cmd Command, validate func() error, args ...float64) error {
	return c.run(request{op: op, cmd: cmd, args: args, validate: validate})
}

// Refresh reads status, time and position. It does nothing when the previous
// successful Refresh is more recent than the poll interval.
func (c *Controller) Refresh() error {
	if st := c.conn.Get(); st == Offline || st == Connecting {
		return fmt.Errorf("refresh: %w", ErrNotConnected)
	}

	c.mu.RLock()
	last := c.lastRefresh
	c.mu.RUnlock()

	if !last.IsZero() && c.now().Sub(last) < c.pollInterval {
		return nil
	}

	for _, refresh := range []func() error{c.RefreshStatus, c.RefreshTime, c.RefreshEquatorial} {
		if err := refresh(); err != nil {
			return fmt.Errorf("refresh: %w", err)
		}
	}

	c.mu.Lock()
	c.lastRefresh = c.now()
	c.mu.Unlock()
	return nil
}

// RefreshCoordinates reads both coordinate systems and the time, without poll-rate guard.
func (c *Controller) RefreshCoordinates() error {
	for _, refresh := range []func() error{c.RefreshHorizontal, c.RefreshEquatorial, c.RefreshTime} {
		if err := refresh(); err != nil {
			return fmt.Errorf("refresh_coordinates: %w", err)
		}
	}
	return nil
}

// Reset restores the factory settings then reads the state back.
// Time settings are kept by the mount.
func (c *Controller) Reset(confirm bool) error {
	validate := func() error {
		if !confirm {
			return invalid("confirm", "reset must be confirmed")
		}
		return nil
	}
	if err := c.ack(OpReset, CmdResetSettings, validate, nil); err != nil {
		return err
	}

	for _, refresh := range []func() error{c.RefreshStatus, c.RefreshTime, c.RefreshEquatorial} {
		if err := refresh(); err != nil {
			return fmt.Errorf("reset: %w", err)
		}
	}
	return nil
}

// edit returns a fresh copy of *p for modification and publishes it.
// Published sub-records are shared by snapshots and never modified in place.
func edit[T any](p **T) *T {
	var v T
	if *p != nil {
		v = **p
	}
	*p = &v
	return &v
}
