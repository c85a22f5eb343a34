package ioptron

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scripted struct {
	raw string
	err error
}

// fakeLink records sent frames and answers from a script.
type fakeLink struct {
	mu       sync.Mutex
	sent     []string
	script   []scripted
	receives int
	closes   int

	sentc   chan string   // notified on each Send when non-nil
	release chan struct{} // Receive blocks on it when non-nil
}

func (l *fakeLink) reply(raw ...string) *fakeLink {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, r := range raw {
		l.script = append(l.script, scripted{raw: r})
	}
	return l
}

func (l *fakeLink) fail(err error) *fakeLink {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.script = append(l.script, scripted{err: err})
	return l
}

func (l *fakeLink) Send(frame string) error {
	l.mu.Lock()
	l.sent = append(l.sent, frame)
	c := l.sentc
	l.mu.Unlock()

	if c != nil {
		c <- frame
	}
	return nil
}

func (l *fakeLink) Receive() (string, error) {
	if l.release != nil {
		<-l.release
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.receives++
	if len(l.script) == 0 {
		return "", &TransportError{Kind: Timeout, Op: "receive"}
	}
	s := l.script[0]
	l.script = l.script[1:]
	return s.raw, s.err
}

func (l *fakeLink) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.closes++
	return nil
}

func (l *fakeLink) Sent() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	return append([]string(nil), l.sent...)
}

var (
	equatorial = NewCapability(CapabilityConfig{Topology: TopologyEquatorial, HasPEC: true, TrackingRates: trackingRates})
	altaz      = NewCapability(CapabilityConfig{Topology: TopologyAltAz, TrackingRates: trackingRates})
)

func connect(t *testing.T, link *fakeLink, capa Capability, opts ...Option) *Controller {
	t.Helper()

	c, err := Connect(func() (Link, error) { return link, nil }, capa, opts...)
	require.NoError(t, err)
	require.Equal(t, Online, c.ConnState())
	return c
}

func TestConnectFailure(t *testing.T) {
	_, err := Connect(func() (Link, error) { return nil, errors.New("no such device") }, equatorial)
	require.ErrorIs(t, err, ErrTransport)

	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, ConnectFailed, terr.Kind)

	_, err = Connect(func() (Link, error) { return &fakeLink{}, nil }, equatorial, WithPollInterval(0))
	assert.Error(t, err)
}

func TestCapabilityGateSendsNothing(t *testing.T) {
	link := &fakeLink{}
	c := connect(t, link, altaz)

	_, err := c.PECIntegrity()
	assert.ErrorIs(t, err, ErrCapabilityUnsupported)
	_, err = c.PECRecording()
	assert.ErrorIs(t, err, ErrCapabilityUnsupported)
	assert.ErrorIs(t, c.SetPECPlayback(true), ErrCapabilityUnsupported)
	assert.ErrorIs(t, c.SetPECRecording(true), ErrCapabilityUnsupported)
	assert.ErrorIs(t, c.SetMeridianTreatment(MeridianFlip, 5), ErrCapabilityUnsupported)
	assert.ErrorIs(t, c.SetGuidingRates(0.5, 0.5), ErrCapabilityUnsupported)
	assert.ErrorIs(t, c.GoMechanicalZero(), ErrCapabilityUnsupported)

	var cerr *CapabilityError
	require.ErrorAs(t, c.SetPECPlayback(false), &cerr)
	assert.Equal(t, OpPECPlayback, cerr.Operation)

	assert.Empty(t, link.Sent())
	assert.Equal(t, Online, c.ConnState())
}

func TestValidationSendsNothing(t *testing.T) {
	link := &fakeLink{}
	c := connect(t, link, equatorial)

	for _, err := range []error{
		c.SetGuidingRates(0.95, 0.5),
		c.SetGuidingRates(0.5, 0),
		c.SetCustomTrackingRate(2),
		c.SetTrackingRate(7),
		c.SetMovingSpeed(0),
		c.SetMaxSlewingSpeed(6),
		c.SetAltitudeLimit(90),
		c.SetLatitude(91),
		c.SetLongitude(-180.5),
		c.SetUTCOffset(800),
		c.SetMeridianTreatment(MeridianFlip, 16),
		c.SetCommandedRightAscension(HMS{Hours: 24}),
		c.SetCommandedDeclination(DMS{Degrees: 90, Minutes: 1}),
		c.SetCommandedAzimuth(DMS{Negative: true, Degrees: 1}),
		c.SetParkingAltitude(DMS{Degrees: 91}),
		c.SetTime(J2000.Add(-time.Second)),
		c.Move("up"),
		c.MoveFor("left", 1),
		c.MoveFor(RAPositive, 100_000),
		c.Reset(false),
	} {
		assert.ErrorIs(t, err, ErrValidation)
	}

	assert.Empty(t, link.Sent())
}

func TestFrames(t *testing.T) {
	link := &fakeLink{}
	c := connect(t, link, equatorial)

	calls := []struct {
		call  func() error
		frame string
	}{
		{call: func() error { return c.SetLatitude(-33.5) }, frame: ":SLA-12060000#"},
		{call: func() error { return c.SetLongitude(2.35) }, frame: ":SLO+00846000#"},
		{call: func() error { return c.SetUTCOffset(-300) }, frame: ":SG-300#"},
		{call: func() error { return c.SetMeridianTreatment(MeridianFlip, 5) }, frame: ":SMT105#"},
		{call: func() error { return c.SetCustomTrackingRate(1) }, frame: ":RR10000#"},
		{call: func() error { return c.SetGuidingRates(0.504, 0.25) }, frame: ":RG5025#"},
		{call: func() error { return c.SetCommandedRightAscension(HMS{Hours: 6}) }, frame: ":SRA032400000#"},
		{call: func() error { return c.SetCommandedDeclination(DMS{Negative: true, Degrees: 10}) }, frame: ":Sd-03600000#"},
		{call: func() error { return c.SetCommandedAzimuth(DMS{Degrees: 180}) }, frame: ":Sz064800000#"},
		{call: func() error { return c.SetParkingAltitude(DMS{Degrees: 45}) }, frame: ":SPH16200000#"},
		{call: func() error { return c.SetTime(J2000.Add(time.Second)) }, frame: ":SUT0000000001000#"},
		{call: func() error { return c.SetAltitudeLimit(-5) }, frame: ":SAL-05#"},
		{call: func() error { return c.SetTrackingRate(2) }, frame: ":RT2#"},
		{call: func() error { return c.SetMaxSlewingSpeed(9) }, frame: ":MSR9#"},
		{call: func() error { return c.SetHemisphere(South) }, frame: ":SHE0#"},
		{call: func() error { return c.SetTracking(true) }, frame: ":ST1#"},
		{call: func() error { return c.StopAxis(AxisNorthSouth) }, frame: ":qD#"},
		{call: c.SlewToEquatorial, frame: ":MS1#"},
		{call: c.Park, frame: ":MP1#"},
	}

	for _, tt := range calls {
		link.reply(AckOK)
		require.NoError(t, tt.call(), tt.frame)
		sent := link.Sent()
		assert.Equal(t, tt.frame, sent[len(sent)-1])
	}
}

func TestCommandsWithoutReply(t *testing.T) {
	link := &fakeLink{}
	c := connect(t, link, equatorial)

	require.NoError(t, c.Move(DirectionWest))
	require.NoError(t, c.MoveFor(DecNegative, 30))

	assert.Equal(t, []string{":mw#", ":ZC00030#"}, link.Sent())
	assert.Zero(t, link.receives)
}

func TestStateCommits(t *testing.T) {
	link := &fakeLink{}
	now := time.Date(2024, time.June, 1, 22, 0, 0, 0, time.UTC)
	c := connect(t, link, equatorial, WithClock(func() time.Time { return now }))

	link.reply(statusTracking)
	require.NoError(t, c.RefreshStatus())

	s := c.State()
	require.NotNil(t, s.Status)
	assert.Equal(t, StatusTracking, s.Status.Code)
	assert.Equal(t, "sidereal", s.Tracking.Label)
	require.NotNil(t, s.PEC)
	assert.False(t, s.PEC.Enabled)
	assert.Nil(t, s.Parking)
	assert.Equal(t, now, s.UpdatedAt)

	link.reply(AckOK)
	require.NoError(t, c.SetTrackingRate(1))
	assert.Equal(t, "lunar", c.State().Tracking.Label)
	// Snapshots taken earlier are not affected.
	assert.Equal(t, "sidereal", s.Tracking.Label)

	link.reply(AckOK)
	require.NoError(t, c.Park())
	assert.True(t, c.State().Parking.Parked)

	link.reply(statusParked)
	require.NoError(t, c.RefreshStatus())
	assert.True(t, c.State().Parking.Parked)
	assert.True(t, c.State().Status.Parked)

	link.reply("5025#")
	ra, dec, err := c.GuidingRates()
	require.NoError(t, err)
	assert.Equal(t, 0.5, ra)
	assert.Equal(t, 0.25, dec)

	link.reply("210105xxxxxx#", "200815200815#")
	fw, err := c.Firmware()
	require.NoError(t, err)
	want := Firmware{Mainboard: "210105", RAMotor: "200815", DecMotor: "200815"}
	if diff := cmp.Diff(want, fw); diff != "" {
		t.Errorf("Firmware() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(&want, c.State().Firmware); diff != "" {
		t.Errorf("State().Firmware mismatch (-want +got):\n%s", diff)
	}

	link.reply("0120")
	model, err := c.Model()
	require.NoError(t, err)
	assert.Equal(t, "0120", model)
}

func TestUTCOffsetRecomputesLocalTime(t *testing.T) {
	link := &fakeLink{}
	c := connect(t, link, equatorial)

	link.reply("+060" + "0" + "0000000000000" + "#")
	require.NoError(t, c.RefreshTime())
	assert.Equal(t, int64(946_728_000+3600), c.State().Time.UnixLocal)

	link.reply(AckOK)
	require.NoError(t, c.SetUTCOffset(-120))
	ti := c.State().Time
	assert.Equal(t, -120, ti.UTCOffset)
	assert.Equal(t, int64(946_728_000-7200), ti.UnixLocal)
	assert.Equal(t, int64(946_728_000), ti.UnixUTC)
}

func TestPartialResponseLeavesStateUnchanged(t *testing.T) {
	link := &fakeLink{}
	c := connect(t, link, equatorial)

	link.reply(statusTracking)
	require.NoError(t, c.RefreshStatus())
	before := c.State()

	// Valid up to the 10th character.
	broken := []rune(statusParked)
	broken[10] = 'X'
	link.reply(string(broken))

	err := c.RefreshStatus()
	require.ErrorIs(t, err, ErrMalformedResponse)

	if diff := cmp.Diff(before, c.State()); diff != "" {
		t.Errorf("state changed after a malformed response (-before +after):\n%s", diff)
	}
	assert.Equal(t, Online, c.ConnState())
}

func TestAckRejected(t *testing.T) {
	link := &fakeLink{}
	c := connect(t, link, equatorial)

	link.reply(AckRejected)
	err := c.Park()
	require.ErrorIs(t, err, ErrCommandRejected)
	assert.Nil(t, c.State().Parking)

	link.reply("2")
	assert.ErrorIs(t, c.Unpark(), ErrMalformedResponse)
	assert.Equal(t, Online, c.ConnState())
}

func TestTimeoutKeepsControllerOnline(t *testing.T) {
	link := &fakeLink{}
	c := connect(t, link, equatorial)

	err := c.RefreshStatus() // empty script
	require.ErrorIs(t, err, ErrTransport)
	assert.Equal(t, Online, c.ConnState())
	assert.Zero(t, link.closes)

	link.reply(statusTracking)
	assert.NoError(t, c.RefreshStatus())
}

func TestIOFailureTakesControllerOffline(t *testing.T) {
	link := &fakeLink{}
	c := connect(t, link, equatorial)

	link.fail(&TransportError{Kind: IoFailed, Op: "read", Err: errors.New("device unplugged")})
	err := c.RefreshStatus()
	require.ErrorIs(t, err, ErrTransport)
	assert.Equal(t, Offline, c.ConnState())
	assert.Equal(t, 1, link.closes)

	n := len(link.Sent())
	assert.ErrorIs(t, c.RefreshStatus(), ErrNotConnected)
	assert.ErrorIs(t, c.Stop(), ErrNotConnected)
	assert.Len(t, link.Sent(), n)

	require.NoError(t, c.Close())
	assert.Equal(t, 1, link.closes)
}

func TestSingleFlight(t *testing.T) {
	link := &fakeLink{
		sentc:   make(chan string, 1),
		release: make(chan struct{}),
	}
	link.reply(statusTracking)
	c := connect(t, link, equatorial)

	done := make(chan error, 1)
	go func() {
		done <- c.RefreshStatus()
	}()

	assert.Equal(t, ":GLS#", <-link.sentc)
	assert.Equal(t, Busy, c.ConnState())

	err := c.Stop()
	require.ErrorIs(t, err, ErrBusy)
	_, err = c.Model()
	require.ErrorIs(t, err, ErrBusy)
	assert.Len(t, link.Sent(), 1)

	close(link.release)
	require.NoError(t, <-done)
	assert.Equal(t, Online, c.ConnState())
	assert.Equal(t, StatusTracking, c.State().Status.Code)
}

func TestRefreshPollGuard(t *testing.T) {
	link := &fakeLink{}
	now := time.Date(2024, time.June, 1, 22, 0, 0, 0, time.UTC)
	c := connect(t, link, equatorial, WithClock(func() time.Time { return now }), WithPollInterval(time.Second))

	frames := []string{statusTracking, "+060" + "0" + "0000000000000" + "#", "+16200000" + "032400000" + "0" + "1" + "#"}

	link.reply(frames...)
	require.NoError(t, c.Refresh())
	assert.Equal(t, []string{":GLS#", ":GUT#", ":GEP#"}, link.Sent())

	now = now.Add(500 * time.Millisecond)
	require.NoError(t, c.Refresh())
	assert.Len(t, link.Sent(), 3)

	now = now.Add(time.Second)
	link.reply(frames...)
	require.NoError(t, c.Refresh())
	assert.Len(t, link.Sent(), 6)

	e := c.State().Equatorial
	require.NotNil(t, e)
	assert.Equal(t, Arcsec(32_400_000), e.RightAscension)
	assert.Equal(t, Arcsec(16_200_000), e.Declination)
	assert.Equal(t, PierWest, e.PierSide)
	assert.Equal(t, CounterweightNormal, e.Counterweight)
}

func TestRefreshAfterClose(t *testing.T) {
	link := &fakeLink{}
	now := time.Date(2024, time.June, 1, 22, 0, 0, 0, time.UTC)
	c := connect(t, link, equatorial, WithClock(func() time.Time { return now }), WithPollInterval(time.Second))

	link.reply(statusTracking, "+060"+"0"+"0000000000000"+"#", "+16200000"+"032400000"+"0"+"1"+"#")
	require.NoError(t, c.Refresh())
	require.NoError(t, c.Close())

	now = now.Add(200 * time.Millisecond)
	assert.ErrorIs(t, c.Refresh(), ErrNotConnected)
	assert.Len(t, link.Sent(), 3)
}

func TestOfflineWinsOverInvalidAngles(t *testing.T) {
	link := &fakeLink{}
	c := connect(t, link, equatorial)
	require.NoError(t, c.Close())

	for _, err := range []error{
		c.SetCommandedRightAscension(HMS{Hours: 24}),
		c.SetCommandedDeclination(DMS{Degrees: 90, Minutes: 1}),
		c.SetCommandedAltitude(DMS{Degrees: 91}),
		c.SetCommandedAzimuth(DMS{Negative: true, Degrees: 1}),
		c.SetParkingAltitude(DMS{Degrees: 91}),
		c.SetParkingAzimuth(DMS{Degrees: 10, Minutes: 60}),
	} {
		assert.ErrorIs(t, err, ErrNotConnected)
		assert.NotErrorIs(t, err, ErrValidation)
	}
	assert.Empty(t, link.Sent())
}

func TestFailedRefreshIsRetried(t *testing.T) {
	link := &fakeLink{}
	now := time.Date(2024, time.June, 1, 22, 0, 0, 0, time.UTC)
	c := connect(t, link, equatorial, WithClock(func() time.Time { return now }))

	link.reply(statusTracking) // GUT times out
	require.ErrorIs(t, c.Refresh(), ErrTransport)

	link.reply(statusTracking, "+060"+"0"+"0000000000000"+"#", "+16200000"+"032400000"+"0"+"1"+"#")
	require.NoError(t, c.Refresh())
	assert.Len(t, link.Sent(), 5)
}

func TestReset(t *testing.T) {
	link := &fakeLink{}
	c := connect(t, link, equatorial)

	link.reply(AckOK, statusTracking, "+060"+"0"+"0000000000000"+"#", "+16200000"+"032400000"+"0"+"1"+"#")
	require.NoError(t, c.Reset(true))
	assert.Equal(t, []string{":RAS#", ":GLS#", ":GUT#", ":GEP#"}, link.Sent())
}
