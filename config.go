package ioptrond

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mdouchement/ioptrond/ioptron"
	"github.com/mdouchement/logger"
	"go.yaml.in/yaml/v4"
)

const (
	DefaultSocket      = "/run/ioptrond/ioptrond.sock"
	DefaultWLANAddress = "10.10.100.254"
	DefaultWLANPort    = 8899

	ConnectionUSB  = "usb"
	ConnectionWLAN = "wlan"
)

type Config struct {
	Debug         bool           `yaml:"debug"`
	Socket        string         `yaml:"socket"`
	PollRefresh   Duration       `yaml:"poll_refresh"`
	Mount         MountConfig    `yaml:"mount"`
	Startup       Startup        `yaml:"startup"`
	TrackingRates map[string]int `yaml:"tracking_rates"` // label => RT code
	Capabilities  Capabilities   `yaml:"capabilities"`
}

type MountConfig struct {
	Model      string       `yaml:"model"`
	Connection string       `yaml:"connection"`
	Serial     SerialConfig `yaml:"serial"`
	WLAN       WLANConfig   `yaml:"wlan"`
}

type SerialConfig struct {
	Port        string   `yaml:"port"` // first USB serial port when empty
	Speed       int      `yaml:"speed"`
	Watchdog    Duration `yaml:"watchdog"`
	SettleDelay Duration `yaml:"settle_delay"`
}

type WLANConfig struct {
	Address string   `yaml:"address"`
	Port    int      `yaml:"port"`
	Timeout Duration `yaml:"timeout"`
}

// Startup is applied once the mount is connected.
type Startup struct {
	Speed int  `yaml:"speed"` // moving speed code, untouched when 0
	Track bool `yaml:"track"`
}

type Capabilities struct {
	Type           string `yaml:"type"`
	Encoders       bool   `yaml:"encoders"`
	PEC            bool   `yaml:"pec"`
	MechanicalZero bool   `yaml:"mechanical_zero"`
}

func Load(path string) (Config, error) {
	var c Config

	f, err := os.Open(path)
	if err != nil {
		return c, err
	}
	defer f.Close()

	codec := yaml.NewDecoder(f)
	err = codec.Decode(&c)
	if err != nil {
		return c, err
	}

	c.defaults()
	return c, c.validate()
}

func (c *Config) defaults() {
	if c.Socket == "" {
		c.Socket = DefaultSocket
	}
	if c.PollRefresh.Duration == 0 {
		c.PollRefresh.Duration = ioptron.DefaultPollInterval
	}

	c.Mount.Connection = strings.ToLower(c.Mount.Connection)
	if c.Mount.Connection == "" {
		c.Mount.Connection = ConnectionUSB
	}
	if c.Mount.Serial.Speed == 0 {
		c.Mount.Serial.Speed = ioptron.DefaultSerialBaud
	}
	if c.Mount.Serial.Watchdog.Duration == 0 {
		c.Mount.Serial.Watchdog.Duration = ioptron.DefaultWatchdog
	}
	if c.Mount.Serial.SettleDelay.Duration == 0 {
		c.Mount.Serial.SettleDelay.Duration = ioptron.DefaultSettleDelay
	}
	if c.Mount.WLAN.Address == "" {
		c.Mount.WLAN.Address = DefaultWLANAddress
	}
	if c.Mount.WLAN.Port == 0 {
		c.Mount.WLAN.Port = DefaultWLANPort
	}
	if c.Mount.WLAN.Timeout.Duration == 0 {
		c.Mount.WLAN.Timeout.Duration = ioptron.DefaultSocketTimeout
	}

	if len(c.TrackingRates) == 0 {
		c.TrackingRates = map[string]int{
			"sidereal": 0,
			"lunar":    1,
			"solar":    2,
			"king":     3,
			"custom":   4,
		}
	}
	if c.Capabilities.Type == "" {
		c.Capabilities.Type = "equatorial"
	}
}

func (c *Config) validate() error {
	if c.PollRefresh.Duration < 0 {
		return fmt.Errorf("poll_refresh: must be positive")
	}

	switch c.Mount.Connection {
	case ConnectionUSB:
		if c.Mount.Serial.Speed < 0 {
			return fmt.Errorf("mount.serial.speed: invalid baud rate %d", c.Mount.Serial.Speed)
		}
	case ConnectionWLAN:
		if c.Mount.WLAN.Port < 1 || c.Mount.WLAN.Port > 65535 {
			return fmt.Errorf("mount.wlan.port: %d out of range", c.Mount.WLAN.Port)
		}
	default:
		return fmt.Errorf("mount.connection: unknown %s, expected usb or wlan", strconv.Quote(c.Mount.Connection))
	}

	if c.Startup.Speed < 0 || c.Startup.Speed > 9 {
		return fmt.Errorf("startup.speed: must be in range [0,9]")
	}

	if _, err := ioptron.ParseTopology(c.Capabilities.Type); err != nil {
		return fmt.Errorf("capabilities.type: %w", err)
	}

	codes := map[int]string{}
	for label, code := range c.TrackingRates {
		if code < 0 || code > 9 {
			return fmt.Errorf("tracking_rates: %s: code %d must be in range [0,9]", label, code)
		}
		if other, ok := codes[code]; ok {
			return fmt.Errorf("tracking_rates: %s and %s share code %d", other, label, code)
		}
		codes[code] = label
	}

	return nil
}

// Capability builds the immutable capability snapshot of the configured mount.
func (c Config) Capability() ioptron.Capability {
	topology, _ := ioptron.ParseTopology(c.Capabilities.Type) // Checked by Load

	rates := make(map[int]string, len(c.TrackingRates))
	for label, code := range c.TrackingRates {
		rates[code] = label
	}

	return ioptron.NewCapability(ioptron.CapabilityConfig{
		Topology:          topology,
		HasEncoders:       c.Capabilities.Encoders,
		HasPEC:            c.Capabilities.PEC,
		HasMechanicalZero: c.Capabilities.MechanicalZero,
		TrackingRates:     rates,
	})
}

// Dialer opens the configured link. Frames are logged when log is not nil.
func (c Config) Dialer(log logger.Logger) ioptron.Dialer {
	opts := []ioptron.Option{
		ioptron.WithSettleDelay(c.Mount.Serial.SettleDelay.Duration),
		ioptron.WithWatchdog(c.Mount.Serial.Watchdog.Duration),
		ioptron.WithSocketTimeout(c.Mount.WLAN.Timeout.Or(ioptron.DefaultSocketTimeout)),
	}
	if log != nil {
		opts = append(opts, ioptron.WithLogger(log))
	}

	if c.Mount.Connection == ConnectionWLAN {
		addr := net.JoinHostPort(c.Mount.WLAN.Address, strconv.Itoa(c.Mount.WLAN.Port))
		return func() (ioptron.Link, error) {
			l, err := ioptron.DialSocket(addr, opts...)
			if err != nil {
				return nil, err
			}
			return l, nil
		}
	}

	return func() (ioptron.Link, error) {
		var l *ioptron.SerialLink
		var err error
		if c.Mount.Serial.Port == "" {
			l, err = ioptron.OpenSerialAuto(c.Mount.Serial.Speed, opts...)
		} else {
			l, err = ioptron.OpenSerial(c.Mount.Serial.Port, c.Mount.Serial.Speed, opts...)
		}
		if err != nil {
			return nil, err
		}
		return l, nil
	}
}

// Endpoint describes the configured link for logs.
func (c Config) Endpoint() string {
	if c.Mount.Connection == ConnectionWLAN {
		return net.JoinHostPort(c.Mount.WLAN.Address, strconv.Itoa(c.Mount.WLAN.Port))
	}
	if c.Mount.Serial.Port == "" {
		return "first USB serial port"
	}
	return c.Mount.Serial.Port
}

// poll returns the refresh period of the daemon.
func (c Config) poll() time.Duration {
	return c.PollRefresh.Or(ioptron.DefaultPollInterval)
}
