package ioptron

import (
	"strconv"

	"github.com/mdouchement/logger"
)

// A Link carries raw frames to the mount and back. It knows nothing about their content.
type Link interface {
	Send(frame string) error
	Receive() (string, error)
	// Close is idempotent.
	Close() error
}

// A Dialer opens the Link a controller will own.
type Dialer func() (Link, error)

func logFrame(l logger.Logger, direction, frame string) {
	if l == nil {
		return
	}
	l.Debug(direction + " " + strconv.Quote(frame))
}
