package ioptron

import (
	"fmt"
	"time"

	"github.com/mdouchement/logger"
)

// Option tunes links and controllers. Options irrelevant to the receiver are ignored.
type Option interface {
	apply(*options) error
}

type optFunc func(*options) error

func (f optFunc) apply(o *options) error { return f(o) }

type options struct {
	log           logger.Logger
	pollInterval  time.Duration
	now           func() time.Time
	settleDelay   time.Duration
	watchdog      time.Duration
	socketTimeout time.Duration
}

func newOptions(opts []Option) (options, error) {
	o := options{
		pollInterval:  DefaultPollInterval,
		now:           time.Now,
		settleDelay:   DefaultSettleDelay,
		watchdog:      DefaultWatchdog,
		socketTimeout: DefaultSocketTimeout,
	}
	for _, opt := range opts {
		if err := opt.apply(&o); err != nil {
			return o, err
		}
	}
	return o, nil
}

func WithLogger(l logger.Logger) Option {
	return optFunc(func(o *options) error {
		o.log = l
		return nil
	})
}

// WithPollInterval sets the minimum spacing of Refresh. Must be positive.
func WithPollInterval(d time.Duration) Option {
	return optFunc(func(o *options) error {
		if d <= 0 {
			return fmt.Errorf("ioptron: poll interval %v must be positive", d)
		}
		o.pollInterval = d
		return nil
	})
}

// WithClock replaces time.Now, tests use it to drive the poll-rate guard.
func WithClock(now func() time.Time) Option {
	return optFunc(func(o *options) error {
		if now == nil {
			return fmt.Errorf("ioptron: nil clock")
		}
		o.now = now
		return nil
	})
}

// WithSettleDelay sets the pause observed after each write.
func WithSettleDelay(d time.Duration) Option {
	return optFunc(func(o *options) error {
		if d < 0 {
			return fmt.Errorf("ioptron: negative settle delay %v", d)
		}
		o.settleDelay = d
		return nil
	})
}

// WithWatchdog bounds the serial receive loop. Zero waits forever.
func WithWatchdog(d time.Duration) Option {
	return optFunc(func(o *options) error {
		if d < 0 {
			return fmt.Errorf("ioptron: negative watchdog %v", d)
		}
		o.watchdog = d
		return nil
	})
}

// WithSocketTimeout bounds socket connect and receive.
func WithSocketTimeout(d time.Duration) Option {
	return optFunc(func(o *options) error {
		if d <= 0 {
			return fmt.Errorf("ioptron: socket timeout %v must be positive", d)
		}
		o.socketTimeout = d
		return nil
	})
}
