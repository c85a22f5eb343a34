package ioptron

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mdouchement/logger"
	"golang.org/x/sync/errgroup"
)

// A Simulator answers protocol frames like an equatorial mount would.
// It should only be used for dev & tests. It is a Link by itself and can
// also serve a net.Conn, in which case a SocketLink talks to it.
type Simulator struct {
	sync    sync.Mutex
	log     logger.Logger
	now     func() time.Time
	slew    time.Duration
	pending []string
	closed  bool

	model      string
	lon, lat   Arcsec
	gps        GPSState
	hemisphere Hemisphere
	timeSource TimeSource
	utcOffset  int
	dst        bool
	skew       time.Duration // mount clock minus host clock

	ra, dec             Arcsec
	alt, az             Arcsec
	targetRA, targetDec Arcsec
	targetAlt, targetAz Arcsec
	slewUntil           time.Time
	slewHorizontal      bool

	tracking       bool
	parked         bool
	home           bool
	trackingRate   int
	customRate     int // 1/10000 of sidereal
	movingSpeed    int
	maxSlewSpeed   int
	guideRA        int // 1/100 of sidereal
	guideDec       int
	raFilter       bool
	pecPlayback    bool
	pecRecording   bool
	altitudeLimit  int
	meridianAction MeridianTreatment
	meridianLimit  int
	parkAlt        Arcsec
	parkAz         Arcsec
}

func NewSimulator() *Simulator {
	return &Simulator{
		now:           time.Now,
		slew:          2 * time.Second,
		model:         "0120",
		lon:           DegreesToArcsec(2.3522),
		lat:           DegreesToArcsec(48.8566),
		gps:           GPSLocked,
		hemisphere:    North,
		timeSource:    TimeSourceGPS,
		utcOffset:     60,
		ra:            HMSToArcsec(HMS{Hours: 6}),
		dec:           DegreesToArcsec(90),
		alt:           DegreesToArcsec(48.8566),
		home:          true,
		movingSpeed:   5,
		maxSlewSpeed:  9,
		guideRA:       50,
		guideDec:      50,
		customRate:    10000,
		parkAlt:       DegreesToArcsec(48.8566),
		meridianLimit: 10,
		altitudeLimit: 0,
	}
}

func (s *Simulator) SetLogger(l logger.Logger) {
	s.log = l
}

// SetClock replaces time.Now. Slews complete after the slew duration of this clock.
func (s *Simulator) SetClock(now func() time.Time) {
	s.sync.Lock()
	defer s.sync.Unlock()

	s.now = now
}

func (s *Simulator) SetSlewDuration(d time.Duration) {
	s.sync.Lock()
	defer s.sync.Unlock()

	s.slew = d
}

func (s *Simulator) Send(frame string) error {
	s.sync.Lock()
	defer s.sync.Unlock()

	if s.closed {
		return &TransportError{Kind: IoFailed, Op: "send", Err: net.ErrClosed}
	}

	logFrame(s.log, "sim <-", frame)
	if response, ok := s.handle(frame); ok {
		s.pending = append(s.pending, response)
	}
	return nil
}

// Receive returns the oldest unread response. A silent mount yields a Timeout.
func (s *Simulator) Receive() (string, error) {
	s.sync.Lock()
	defer s.sync.Unlock()

	if s.closed {
		return "", &TransportError{Kind: IoFailed, Op: "receive", Err: net.ErrClosed}
	}
	if len(s.pending) == 0 {
		return "", &TransportError{Kind: Timeout, Op: "receive"}
	}

	response := s.pending[0]
	s.pending = s.pending[1:]
	return response, nil
}

func (s *Simulator) Close() error {
	s.sync.Lock()
	defer s.sync.Unlock()

	s.closed = true
	s.pending = nil
	return nil
}

// Pipe returns the client side of an in-memory connection served by s until ctx is done.
func (s *Simulator) Pipe(ctx context.Context) net.Conn {
	server, client := net.Pipe()
	go s.Serve(ctx, server)
	return client
}

// Serve answers the frames read from conn until ctx is done or conn is closed.
func (s *Simulator) Serve(ctx context.Context, conn net.Conn) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-ctx.Done()
		conn.Close()
		return nil
	})
	g.Go(func() error {
		defer cancel()

		r := bufio.NewReader(conn)
		for {
			frame, err := r.ReadString(FrameTerminator)
			if err != nil {
				if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) || errors.Is(err, net.ErrClosed) {
					return nil
				}
				return fmt.Errorf("simulator: read: %w", err)
			}

			s.sync.Lock()
			logFrame(s.log, "sim <-", frame)
			response, ok := s.handle(frame)
			s.sync.Unlock()
			if !ok {
				continue
			}

			if _, err = io.WriteString(conn, response); err != nil {
				return fmt.Errorf("simulator: write: %w", err)
			}
		}
	})

	return g.Wait()
}

type handler func(s *Simulator, payload string) (string, bool)

var simHandlers = map[string]handler{
	"GLS": (*Simulator).status,
	"GUT": (*Simulator).clock,
	"GEP": (*Simulator).equatorial,
	"GAC": (*Simulator).horizontal,
	"GPC": (*Simulator).parking,
	"GAL": func(s *Simulator, _ string) (string, bool) { return s.format("%s#", signed2(s.altitudeLimit)) },
	"GTR": func(s *Simulator, _ string) (string, bool) { return s.format("%05d#", s.customRate) },
	"AG":  func(s *Simulator, _ string) (string, bool) { return s.format("%02d%02d#", s.guideRA, s.guideDec) },
	"GMT": func(s *Simulator, _ string) (string, bool) {
		return s.format("%d%02d#", s.meridianAction, s.meridianLimit)
	},
	"GSR":       func(s *Simulator, _ string) (string, bool) { return s.format("%d#", s.maxSlewSpeed) },
	"QAP":       func(s *Simulator, _ string) (string, bool) { return "2#", true },
	"GPE":       func(s *Simulator, _ string) (string, bool) { return "1", true },
	"GPR":       func(s *Simulator, _ string) (string, bool) { return bit01(s.pecRecording), true },
	"GGF":       func(s *Simulator, _ string) (string, bool) { return bit01(s.raFilter), true },
	"FW1":       func(s *Simulator, _ string) (string, bool) { return "210105xxxxxx#", true },
	"FW2":       func(s *Simulator, _ string) (string, bool) { return "210105210105#", true },
	"MountInfo": func(s *Simulator, _ string) (string, bool) { return s.model, true },

	"SRA": func(s *Simulator, p string) (string, bool) { return s.setAngle(p, &s.targetRA, 0, 24*UnitsPerHour) },
	"Sd": func(s *Simulator, p string) (string, bool) {
		return s.setAngle(p, &s.targetDec, -90*UnitsPerDegree, 90*UnitsPerDegree)
	},
	"Sa": func(s *Simulator, p string) (string, bool) {
		return s.setAngle(p, &s.targetAlt, -90*UnitsPerDegree, 90*UnitsPerDegree)
	},
	"Sz":  func(s *Simulator, p string) (string, bool) { return s.setAngle(p, &s.targetAz, 0, 360*UnitsPerDegree) },
	"SPH": func(s *Simulator, p string) (string, bool) { return s.setAngle(p, &s.parkAlt, 0, 90*UnitsPerDegree) },
	"SPA": func(s *Simulator, p string) (string, bool) { return s.setAngle(p, &s.parkAz, 0, 360*UnitsPerDegree) },
	"SLO": func(s *Simulator, p string) (string, bool) {
		return s.setAngle(p, &s.lon, -180*UnitsPerDegree, 180*UnitsPerDegree)
	},
	"SLA": func(s *Simulator, p string) (string, bool) {
		return s.setAngle(p, &s.lat, -90*UnitsPerDegree, 90*UnitsPerDegree)
	},
	"SG": func(s *Simulator, p string) (string, bool) {
		return s.setInt(p, -720, 780, func(v int) { s.utcOffset = v })
	},
	"SDS": func(s *Simulator, p string) (string, bool) { return s.setBit(p, &s.dst) },
	"SUT": (*Simulator).setClock,
	"SHE": func(s *Simulator, p string) (string, bool) {
		return s.setInt(p, 0, 1, func(v int) { s.hemisphere = Hemisphere(v) })
	},
	"SAL": func(s *Simulator, p string) (string, bool) {
		return s.setInt(p, -89, 89, func(v int) { s.altitudeLimit = v })
	},
	"RT": func(s *Simulator, p string) (string, bool) {
		return s.setInt(p, 0, 4, func(v int) { s.trackingRate = v })
	},
	"RR": func(s *Simulator, p string) (string, bool) {
		return s.setInt(p, 1000, 19000, func(v int) { s.customRate = v })
	},
	"RG": (*Simulator).setGuidingRates,
	"SR": func(s *Simulator, p string) (string, bool) {
		return s.setInt(p, 1, 9, func(v int) { s.movingSpeed = v })
	},
	"MSR": func(s *Simulator, p string) (string, bool) {
		return s.setInt(p, 7, 9, func(v int) { s.maxSlewSpeed = v })
	},
	"SMT": (*Simulator).setMeridian,
	"SGF": func(s *Simulator, p string) (string, bool) { return s.setBit(p, &s.raFilter) },
	"SPP": func(s *Simulator, p string) (string, bool) { return s.setBit(p, &s.pecPlayback) },
	"SPR": func(s *Simulator, p string) (string, bool) { return s.setBit(p, &s.pecRecording) },
	"ST":  (*Simulator).setTracking,
	"MS1": func(s *Simulator, _ string) (string, bool) { return s.startSlew(false) },
	"MSS": func(s *Simulator, _ string) (string, bool) { return s.startSlew(true) },
	"CM":  (*Simulator).synchronize,
	"Q":   (*Simulator).stop,
	"qR":  func(s *Simulator, _ string) (string, bool) { return AckOK, true },
	"qD":  func(s *Simulator, _ string) (string, bool) { return AckOK, true },
	"MH":  (*Simulator).goHome,
	"MSH": (*Simulator).goHome,
	"SZP": (*Simulator).zero,
	"MP1": (*Simulator).park,
	"MP0": (*Simulator).unpark,
	"RAS": (*Simulator).reset,

	"mn": silent, "me": silent, "ms": silent, "mw": silent,
	"ZS": silent, "ZQ": silent, "ZE": silent, "ZC": silent,
}

// simMnemonics is sorted longest first so that SRA wins over SR.
var simMnemonics = func() []string {
	m := make([]string, 0, len(simHandlers))
	for k := range simHandlers {
		m = append(m, k)
	}
	sort.Slice(m, func(i, j int) bool {
		if len(m[i]) != len(m[j]) {
			return len(m[i]) > len(m[j])
		}
		return m[i] < m[j]
	})
	return m
}()

func silent(*Simulator, string) (string, bool) { return "", false }

// handle must be called with s.sync held.
func (s *Simulator) handle(frame string) (string, bool) {
	if len(frame) < 2 || frame[0] != FrameStart || frame[len(frame)-1] != FrameTerminator {
		return "", false
	}
	body := frame[1 : len(frame)-1]

	for _, mnemonic := range simMnemonics {
		if payload, ok := strings.CutPrefix(body, mnemonic); ok {
			s.settle()
			return simHandlers[mnemonic](s, payload)
		}
	}
	return "", false
}

// settle completes a slew whose time elapsed.
func (s *Simulator) settle() {
	if s.slewUntil.IsZero() || s.now().Before(s.slewUntil) {
		return
	}

	s.slewUntil = time.Time{}
	if s.slewHorizontal {
		s.alt, s.az = s.targetAlt, s.targetAz
	} else {
		s.ra, s.dec = s.targetRA, s.targetDec
	}
}

func (s *Simulator) code() StatusCode {
	switch {
	case !s.slewUntil.IsZero():
		return StatusSlewing
	case s.parked:
		return StatusParked
	case s.tracking && s.pecPlayback:
		return StatusTrackingPEC
	case s.tracking:
		return StatusTracking
	case s.home:
		return StatusHome
	default:
		return StatusStopped
	}
}

func (s *Simulator) format(format string, args ...any) (string, bool) {
	return fmt.Sprintf(format, args...), true
}

func (s *Simulator) status(string) (string, bool) {
	lon, _ := Field{Width: 8, Signed: true}.Format(float64(s.lon))
	lat, _ := Field{Width: 8}.Format(float64(s.lat + 90*UnitsPerDegree))
	return s.format("%s%s%d%d%d%d%d%d#",
		lon, lat, s.gps, s.code(), s.trackingRate, s.movingSpeed, s.timeSource, s.hemisphere)
}

func (s *Simulator) clock(string) (string, bool) {
	offset, _ := Field{Width: 3, Signed: true}.Format(float64(s.utcOffset))
	ms := J2KMillis(s.now().Add(s.skew))
	return s.format("%s%s%013d#", offset, bit01(s.dst), ms)
}

func (s *Simulator) equatorial(string) (string, bool) {
	dec, _ := Field{Width: 8, Signed: true}.Format(float64(s.dec))
	pier := PierEast
	if s.ra >= 12*UnitsPerHour {
		pier = PierWest
	}
	return s.format("%s%09d%d%d#", dec, s.ra, pier, CounterweightNormal)
}

func (s *Simulator) horizontal(string) (string, bool) {
	alt, _ := Field{Width: 8, Signed: true}.Format(float64(s.alt))
	return s.format("%s%09d#", alt, s.az)
}

func (s *Simulator) parking(string) (string, bool) {
	return s.format("%08d%09d#", s.parkAlt, s.parkAz)
}

func (s *Simulator) setAngle(payload string, dst *Arcsec, lo, hi Arcsec) (string, bool) {
	v, err := strconv.ParseInt(payload, 10, 64)
	if err != nil || Arcsec(v) < lo || Arcsec(v) > hi {
		return AckRejected, true
	}
	*dst = Arcsec(v)
	return AckOK, true
}

func (s *Simulator) setInt(payload string, lo, hi int, set func(int)) (string, bool) {
	v, err := strconv.Atoi(payload)
	if err != nil || v < lo || v > hi {
		return AckRejected, true
	}
	set(v)
	return AckOK, true
}

func (s *Simulator) setBit(payload string, dst *bool) (string, bool) {
	return s.setInt(payload, 0, 1, func(v int) { *dst = v == 1 })
}

func (s *Simulator) setGuidingRates(payload string) (string, bool) {
	ra, err1 := strconv.Atoi(payload[:min(2, len(payload))])
	dec, err2 := strconv.Atoi(payload[min(2, len(payload)):])
	if len(payload) != 4 || err1 != nil || err2 != nil || ra < 1 || ra > 90 || dec < 1 || dec > 90 {
		return AckRejected, true
	}
	s.guideRA, s.guideDec = ra, dec
	return AckOK, true
}

func (s *Simulator) setMeridian(payload string) (string, bool) {
	action, err1 := strconv.Atoi(payload[:min(1, len(payload))])
	limit, err2 := strconv.Atoi(payload[min(1, len(payload)):])
	if len(payload) != 3 || err1 != nil || err2 != nil || action > 1 || limit < 0 || limit > 15 {
		return AckRejected, true
	}
	s.meridianAction, s.meridianLimit = MeridianTreatment(action), limit
	return AckOK, true
}

func (s *Simulator) setClock(payload string) (string, bool) {
	ms, err := strconv.ParseInt(payload, 10, 64)
	if err != nil || ms < 0 || len(payload) != 13 {
		return AckRejected, true
	}
	s.skew = J2000.Add(time.Duration(ms) * time.Millisecond).Sub(s.now())
	return AckOK, true
}

func (s *Simulator) setTracking(payload string) (string, bool) {
	if s.parked {
		return AckRejected, true
	}
	return s.setBit(payload, &s.tracking)
}

func (s *Simulator) startSlew(horizontal bool) (string, bool) {
	if s.parked {
		return AckRejected, true
	}
	s.home = false
	s.slewHorizontal = horizontal
	s.slewUntil = s.now().Add(s.slew)
	return AckOK, true
}

func (s *Simulator) stop(string) (string, bool) {
	s.slewUntil = time.Time{}
	return AckOK, true
}

func (s *Simulator) synchronize(string) (string, bool) {
	if !s.slewUntil.IsZero() {
		return AckRejected, true
	}
	s.ra, s.dec = s.targetRA, s.targetDec
	return AckOK, true
}

func (s *Simulator) goHome(string) (string, bool) {
	s.parked = false
	s.tracking = false
	s.home = true
	s.ra, s.dec = HMSToArcsec(HMS{Hours: 6}), DegreesToArcsec(90)
	return AckOK, true
}

func (s *Simulator) park(string) (string, bool) {
	s.slewUntil = time.Time{}
	s.tracking = false
	s.parked = true
	s.alt, s.az = s.parkAlt, s.parkAz
	return AckOK, true
}

func (s *Simulator) unpark(string) (string, bool) {
	s.parked = false
	return AckOK, true
}

func (s *Simulator) zero(string) (string, bool) {
	s.home = true
	return AckOK, true
}

func (s *Simulator) reset(string) (string, bool) {
	fresh := NewSimulator()
	s.trackingRate = fresh.trackingRate
	s.customRate = fresh.customRate
	s.movingSpeed = fresh.movingSpeed
	s.maxSlewSpeed = fresh.maxSlewSpeed
	s.guideRA, s.guideDec = fresh.guideRA, fresh.guideDec
	s.altitudeLimit = fresh.altitudeLimit
	s.meridianAction, s.meridianLimit = fresh.meridianAction, fresh.meridianLimit
	s.parkAlt, s.parkAz = fresh.parkAlt, fresh.parkAz
	s.pecPlayback, s.pecRecording, s.raFilter = false, false, false
	return AckOK, true
}

func signed2(v int) string {
	s, _ := Field{Width: 2, Signed: true}.Format(float64(v))
	return s
}

func bit01(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
