package ioptron

import "sync/atomic"

type ConnState uint32

const (
	Offline ConnState = iota
	Connecting
	Online
	Busy
)

func (s ConnState) String() string {
	switch s {
	case Offline:
		return "offline"
	case Connecting:
		return "connecting"
	case Online:
		return "online"
	case Busy:
		return "busy"
	default:
		return "unknown"
	}
}

// atomicConnState holds the controller lifecycle. Busy is taken by CAS,
// which makes it the single-flight guard.
type atomicConnState struct {
	state atomic.Uint32
}

func (st *atomicConnState) Get() ConnState {
	return ConnState(st.state.Load())
}

func (st *atomicConnState) Set(s ConnState) {
	st.state.Store(uint32(s))
}

func (st *atomicConnState) ToConnecting() bool {
	return st.state.CompareAndSwap(uint32(Offline), uint32(Connecting))
}

func (st *atomicConnState) ToOnline() bool {
	return st.state.CompareAndSwap(uint32(Connecting), uint32(Online))
}

func (st *atomicConnState) ToBusy() bool {
	return st.state.CompareAndSwap(uint32(Online), uint32(Busy))
}

// Release ends a round trip. It fails when the controller went Offline meanwhile.
func (st *atomicConnState) Release() bool {
	return st.state.CompareAndSwap(uint32(Busy), uint32(Online))
}

func (st *atomicConnState) ToOffline() {
	st.Set(Offline)
}
