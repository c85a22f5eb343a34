package ioptron

import (
	"fmt"
	"time"
)

type (
	GPSState          uint8
	StatusCode        uint8
	TimeSource        uint8
	Hemisphere        uint8
	PierSide          uint8
	Counterweight     uint8
	MeridianTreatment uint8
	Direction         string
	GuideDirection    string
	Axis              uint8
)

const (
	GPSOff GPSState = iota
	GPSNoFix
	GPSLocked
)

func (g GPSState) Available() bool { return g != GPSOff }
func (g GPSState) Locked() bool    { return g == GPSLocked }

func (g GPSState) String() string {
	switch g {
	case GPSOff:
		return "off"
	case GPSNoFix:
		return "no fix"
	case GPSLocked:
		return "locked"
	default:
		return "unknown"
	}
}

const (
	StatusStopped StatusCode = iota
	StatusTracking
	StatusSlewing
	StatusGuiding
	StatusMeridianFlipping
	StatusTrackingPEC
	StatusParked
	StatusHome
)

func (s StatusCode) String() string {
	switch s {
	case StatusStopped:
		return "stopped at non-zero position"
	case StatusTracking:
		return "tracking with periodic error correction disabled"
	case StatusSlewing:
		return "slewing"
	case StatusGuiding:
		return "auto-guiding"
	case StatusMeridianFlipping:
		return "meridian flipping"
	case StatusTrackingPEC:
		return "tracking with periodic error correction enabled"
	case StatusParked:
		return "parked"
	case StatusHome:
		return "stopped at zero position"
	default:
		return "unknown"
	}
}

func (s StatusCode) Slewing() bool {
	return s == StatusSlewing || s == StatusMeridianFlipping
}

func (s StatusCode) Tracking() bool {
	return s == StatusTracking || s == StatusGuiding || s == StatusTrackingPEC
}

func (s StatusCode) Parked() bool { return s == StatusParked }

const (
	TimeSourceLocal          TimeSource = 1
	TimeSourceHandController TimeSource = 2
	TimeSourceGPS            TimeSource = 3
)

func (t TimeSource) String() string {
	switch t {
	case TimeSourceLocal:
		return "local (RS232 or ethernet)"
	case TimeSourceHandController:
		return "hand controller"
	case TimeSourceGPS:
		return "GPS"
	default:
		return "unknown"
	}
}

const (
	South Hemisphere = iota
	North
)

func (h Hemisphere) String() string {
	if h == North {
		return "north"
	}
	return "south"
}

const (
	PierWest PierSide = iota
	PierEast
	PierIndeterminate
)

func (p PierSide) String() string {
	switch p {
	case PierWest:
		return "west"
	case PierEast:
		return "east"
	default:
		return "indeterminate"
	}
}

const (
	CounterweightUp Counterweight = iota
	CounterweightNormal
)

func (c Counterweight) String() string {
	if c == CounterweightUp {
		return "up"
	}
	return "normal"
}

const (
	MeridianStop MeridianTreatment = iota
	MeridianFlip
)

func (m MeridianTreatment) String() string {
	if m == MeridianFlip {
		return "flip"
	}
	return "stop"
}

const (
	DirectionNorth Direction = "north"
	DirectionEast  Direction = "east"
	DirectionSouth Direction = "south"
	DirectionWest  Direction = "west"

	RAPositive  GuideDirection = "ra+"
	RANegative  GuideDirection = "ra-"
	DecPositive GuideDirection = "dec+"
	DecNegative GuideDirection = "dec-"
)

const (
	AxisEastWest Axis = iota
	AxisNorthSouth
)

// MovingSpeeds maps the SR codes to their multiple of the sidereal rate.
var MovingSpeeds = map[int]string{
	1: "1x",
	2: "2x",
	3: "8x",
	4: "16x",
	5: "64x",
	6: "128x",
	7: "256x",
	8: "512x",
	9: "max",
}

// MaxSlewingSpeeds maps the MSR codes to their label.
var MaxSlewingSpeeds = map[int]string{
	7: "256x",
	8: "512x",
	9: "max",
}

type (
	Location struct {
		Longitude float64  `json:"longitude"`
		Latitude  float64  `json:"latitude"`
		GPS       GPSState `json:"gps"`
	}

	SystemStatus struct {
		Code        StatusCode `json:"code"`
		Description string     `json:"description"`
		Slewing     bool       `json:"slewing"`
		Tracking    bool       `json:"tracking"`
		Parked      bool       `json:"parked"`
	}

	Tracking struct {
		Code        int     `json:"code"`
		Label       string  `json:"label,omitempty"`
		CustomRate  float64 `json:"custom_rate,omitempty"`
		MemoryStore int     `json:"memory_store"`
	}

	MovingSpeed struct {
		Code  int    `json:"code"`
		Label string `json:"label"`
	}

	Guiding struct {
		RARate          float64 `json:"ra_rate"`
		DecRate         float64 `json:"dec_rate"`
		RAFilterEnabled bool    `json:"ra_filter_enabled"`
	}

	PEC struct {
		IntegrityComplete bool `json:"integrity_complete"`
		Enabled           bool `json:"enabled"`
		Recording         bool `json:"recording"`
	}

	Equatorial struct {
		RightAscension Arcsec        `json:"right_ascension"`
		Declination    Arcsec        `json:"declination"`
		PierSide       PierSide      `json:"pier_side"`
		Counterweight  Counterweight `json:"counterweight"`
		Sided          bool          `json:"sided"` // pier side and counterweight are meaningful
	}

	Horizontal struct {
		Altitude Arcsec `json:"altitude"`
		Azimuth  Arcsec `json:"azimuth"`
	}

	Meridian struct {
		Treatment MeridianTreatment `json:"treatment"`
		Limit     int               `json:"limit"` // degrees past the meridian
	}

	Parking struct {
		Parked   bool   `json:"parked"`
		Altitude Arcsec `json:"altitude"`
		Azimuth  Arcsec `json:"azimuth"`
	}

	TimeInfo struct {
		UTCOffset   int   `json:"utc_offset"` // minutes
		DST         bool  `json:"dst"`
		J2000Millis int64 `json:"j2000_millis"`
		UnixUTC     int64 `json:"unix_utc"`
		UnixLocal   int64 `json:"unix_local"`
	}

	Firmware struct {
		Mainboard      string `json:"mainboard"`
		HandController string `json:"hand_controller,omitempty"`
		RAMotor        string `json:"ra_motor"`
		DecMotor       string `json:"dec_motor"`
	}
)

// Local returns the mount clock in its own time zone.
func (t TimeInfo) Local() time.Time {
	return time.Unix(t.UnixLocal, 0).In(time.FixedZone("mount", t.zoneOffset()*60))
}

func (t TimeInfo) zoneOffset() int {
	if t.DST {
		return t.UTCOffset + 60
	}
	return t.UTCOffset
}

// State is the aggregated view of the mount. A nil sub-record has not been read yet.
// Sub-records are never mutated once published, a State copy is a consistent snapshot.
type State struct {
	Location        *Location     `json:"location,omitempty"`
	Status          *SystemStatus `json:"status,omitempty"`
	Tracking        *Tracking     `json:"tracking,omitempty"`
	MovingSpeed     *MovingSpeed  `json:"moving_speed,omitempty"`
	TimeSource      *TimeSource   `json:"time_source,omitempty"`
	Hemisphere      *Hemisphere   `json:"hemisphere,omitempty"`
	Guiding         *Guiding      `json:"guiding,omitempty"`
	PEC             *PEC          `json:"pec,omitempty"`
	Equatorial      *Equatorial   `json:"equatorial,omitempty"`
	Horizontal      *Horizontal   `json:"horizontal,omitempty"`
	AltitudeLimit   *int          `json:"altitude_limit,omitempty"`
	Meridian        *Meridian     `json:"meridian,omitempty"`
	Parking         *Parking      `json:"parking,omitempty"`
	Time            *TimeInfo     `json:"time,omitempty"`
	Firmware        *Firmware     `json:"firmware,omitempty"`
	Model           string        `json:"model,omitempty"`
	MaxSlewingSpeed *MovingSpeed  `json:"max_slewing_speed,omitempty"`
	UpdatedAt       time.Time     `json:"updated_at,omitzero"`
}

// ParseDirection accepts the cardinal directions of Move.
func ParseDirection(s string) (Direction, error) {
	switch d := Direction(s); d {
	case DirectionNorth, DirectionEast, DirectionSouth, DirectionWest:
		return d, nil
	default:
		return "", invalid("direction", "%q not in [north east south west]", s)
	}
}

// ParseGuideDirection accepts the axis directions of MoveFor.
func ParseGuideDirection(s string) (GuideDirection, error) {
	switch d := GuideDirection(s); d {
	case RAPositive, RANegative, DecPositive, DecNegative:
		return d, nil
	default:
		return "", invalid("direction", "%q not in [ra+ ra- dec+ dec-]", s)
	}
}

func (a Axis) String() string {
	if a == AxisNorthSouth {
		return "north-south"
	}
	return "east-west"
}

func label(table map[int]string, code int) string {
	if l, ok := table[code]; ok {
		return l
	}
	return fmt.Sprintf("code %d", code)
}
