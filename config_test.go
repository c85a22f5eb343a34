package ioptrond

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mdouchement/ioptrond/ioptron"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "ioptrond.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
debug: true
socket: /tmp/ioptrond.sock
poll_refresh: 2s
mount:
  model: CEM120
  connection: WLAN
  wlan:
    address: 192.168.1.20
    timeout: 3s
startup:
  speed: 7
  track: true
tracking_rates:
  sidereal: 0
  lunar: 1
  custom: 4
capabilities:
  type: equatorial
  encoders: true
  pec: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.Debug)
	assert.Equal(t, "/tmp/ioptrond.sock", cfg.Socket)
	assert.Equal(t, 2*time.Second, cfg.PollRefresh.Duration)
	assert.Equal(t, 2*time.Second, cfg.poll())
	assert.Equal(t, ConnectionWLAN, cfg.Mount.Connection)
	assert.Equal(t, DefaultWLANPort, cfg.Mount.WLAN.Port)
	assert.Equal(t, 3*time.Second, cfg.Mount.WLAN.Timeout.Duration)
	assert.Equal(t, "192.168.1.20:8899", cfg.Endpoint())
	assert.Equal(t, Startup{Speed: 7, Track: true}, cfg.Startup)

	capa := cfg.Capability()
	assert.Equal(t, ioptron.TopologyEquatorial, capa.Topology())
	assert.True(t, capa.HasEncoders())
	assert.True(t, capa.HasPEC())
	assert.False(t, capa.HasMechanicalZero())
	assert.Equal(t, map[int]string{0: "sidereal", 1: "lunar", 4: "custom"}, capa.TrackingRates())
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "debug: false\n"))
	require.NoError(t, err)

	assert.Equal(t, DefaultSocket, cfg.Socket)
	assert.Equal(t, ioptron.DefaultPollInterval, cfg.PollRefresh.Duration)
	assert.Equal(t, ConnectionUSB, cfg.Mount.Connection)
	assert.Equal(t, ioptron.DefaultSerialBaud, cfg.Mount.Serial.Speed)
	assert.Equal(t, ioptron.DefaultWatchdog, cfg.Mount.Serial.Watchdog.Duration)
	assert.Equal(t, DefaultWLANAddress, cfg.Mount.WLAN.Address)
	assert.Equal(t, "first USB serial port", cfg.Endpoint())
	assert.Len(t, cfg.TrackingRates, 5)
	assert.Equal(t, ioptron.TopologyEquatorial, cfg.Capability().Topology())
	assert.Equal(t, []int{0, 1, 2, 3, 4}, cfg.Capability().TrackingRateCodes())
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "connection", content: "mount:\n  connection: bluetooth\n"},
		{name: "wlan port", content: "mount:\n  connection: wlan\n  wlan:\n    port: 70000\n"},
		{name: "startup speed", content: "startup:\n  speed: 10\n"},
		{name: "mount type", content: "capabilities:\n  type: dobsonian\n"},
		{name: "rate code", content: "tracking_rates:\n  sidereal: 12\n"},
		{name: "shared rate code", content: "tracking_rates:\n  sidereal: 0\n  king: 0\n"},
		{name: "duration", content: "poll_refresh: soon\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}

	_, err := Load(writeConfig(t, "startup:\n  speed: -1\n"))
	assert.EqualError(t, err, "startup.speed: must be in range [0,9]")

	_, err = Load(filepath.Join(t.TempDir(), "missing.yml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestWLANDialerConnectFailure(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
mount:
  connection: wlan
  wlan:
    address: 127.0.0.1
    port: 1
    timeout: 200ms
`))
	require.NoError(t, err)

	_, err = ioptron.Connect(cfg.Dialer(nil), cfg.Capability())
	require.ErrorIs(t, err, ioptron.ErrTransport)

	var terr *ioptron.TransportError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, ioptron.ConnectFailed, terr.Kind)
}

func TestDuration(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalJSON([]byte(`"1m30s"`)))
	assert.Equal(t, 90*time.Second, d.Duration)

	b, err := d.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"1m30s"`, string(b))

	assert.Equal(t, time.Second, Duration{}.Or(time.Second))
	assert.Equal(t, time.Minute, Duration{time.Minute}.Or(time.Second))
	assert.Error(t, d.UnmarshalJSON([]byte(`"forever"`)))
}
