package ioptrond

import (
	"time"

	"github.com/mdouchement/ioptrond/ioptron"
)

// A Snapshot is what the daemon publishes on /state and /monitor.
type Snapshot struct {
	Connection string        `json:"connection"`
	Model      string        `json:"model,omitempty"`
	Topology   string        `json:"topology"`
	State      ioptron.State `json:"state"`
}

// CommandResponse is the body of a successful POST /command/{name}.
type CommandResponse struct {
	Command string        `json:"command"`
	Result  any           `json:"result,omitempty"`
	State   ioptron.State `json:"state"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

const (
	eventRefreshWatchers = "refresh-watchers"
	eventWatch           = "watch"
	eventUnwatch         = "unwatch"
)

type event struct {
	name      string
	monitorID int64
	monitor   chan<- []byte
}

func genID() int64 {
	time.Sleep(time.Nanosecond)
	return time.Now().UnixNano()
}
