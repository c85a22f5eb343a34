package ioptron

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

type Topology uint8

const (
	TopologyEquatorial Topology = iota
	TopologyAltAz
)

func (t Topology) String() string {
	switch t {
	case TopologyEquatorial:
		return "equatorial"
	case TopologyAltAz:
		return "altaz"
	default:
		return "unknown"
	}
}

// ParseTopology accepts the labels used in configuration files.
func ParseTopology(s string) (Topology, error) {
	switch strings.ToLower(s) {
	case "equatorial", "eq":
		return TopologyEquatorial, nil
	case "altaz", "alt-az", "alt_az":
		return TopologyAltAz, nil
	default:
		return 0, fmt.Errorf("unknown mount type %q", s)
	}
}

// Operation names a controller operation for capability gating and errors.
type Operation string

const (
	OpPECIntegrity       Operation = "pec_integrity"
	OpPECRecordingStatus Operation = "pec_recording_status"
	OpPECPlayback        Operation = "pec_playback"
	OpPECRecording       Operation = "pec_recording"
	OpRAGuidingFilter    Operation = "ra_guiding_filter"
	OpSetRAGuidingFilter Operation = "set_ra_guiding_filter"
	OpMeridianTreatment  Operation = "meridian_treatment"
	OpSetMeridian        Operation = "set_meridian_treatment"
	OpSetGuidingRates    Operation = "set_guiding_rates"
	OpGoMechanicalZero   Operation = "go_mechanical_zero"
	OpRefreshStatus      Operation = "refresh_status"
	OpRefreshTime        Operation = "refresh_time"
	OpRefreshEquatorial  Operation = "refresh_equatorial"
	OpRefreshHorizontal  Operation = "refresh_horizontal"
	OpRefreshParking     Operation = "refresh_parking"
	OpAltitudeLimit      Operation = "altitude_limit"
	OpCoordinateMemory   Operation = "coordinate_memory"
	OpCustomTrackingRate Operation = "custom_tracking_rate"
	OpGuidingRates       Operation = "guiding_rates"
	OpMaxSlewingSpeed    Operation = "max_slewing_speed"
	OpFirmware           Operation = "firmware"
	OpModel              Operation = "model"
	OpReset              Operation = "reset"
	OpSlewEquatorial     Operation = "slew_equatorial"
	OpSlewHorizontal     Operation = "slew_horizontal"
	OpSynchronize        Operation = "synchronize"
	OpStop               Operation = "stop"
	OpStopAxis           Operation = "stop_axis"
	OpGoHome             Operation = "go_home"
	OpSetZeroPosition    Operation = "set_zero_position"
	OpPark               Operation = "park"
	OpUnpark             Operation = "unpark"
	OpMove               Operation = "move"
	OpMoveFor            Operation = "move_for"
	OpSetTracking        Operation = "set_tracking"
	OpSetTrackingRate    Operation = "set_tracking_rate"
	OpSetCustomRate      Operation = "set_custom_tracking_rate"
	OpSetMovingSpeed     Operation = "set_moving_speed"
	OpSetMaxSlewingSpeed Operation = "set_max_slewing_speed"
	OpSetRightAscension  Operation = "set_right_ascension"
	OpSetDeclination     Operation = "set_declination"
	OpSetAltitude        Operation = "set_altitude"
	OpSetAzimuth         Operation = "set_azimuth"
	OpSetAltitudeLimit   Operation = "set_altitude_limit"
	OpSetParkingAltitude Operation = "set_parking_altitude"
	OpSetParkingAzimuth  Operation = "set_parking_azimuth"
	OpSetLatitude        Operation = "set_latitude"
	OpSetLongitude       Operation = "set_longitude"
	OpSetHemisphere      Operation = "set_hemisphere"
	OpSetUTCOffset       Operation = "set_utc_offset"
	OpSetDaylightSaving  Operation = "set_daylight_saving"
	OpSetTime            Operation = "set_time"
)

// Capability is the mount configuration snapshot. It is built once and never mutated.
type Capability struct {
	topology          Topology
	hasEncoders       bool
	hasPEC            bool
	hasMechanicalZero bool
	trackingRates     map[int]string
}

type CapabilityConfig struct {
	Topology          Topology
	HasEncoders       bool
	HasPEC            bool
	HasMechanicalZero bool
	TrackingRates     map[int]string // code => label
}

func NewCapability(cfg CapabilityConfig) Capability {
	return Capability{
		topology:          cfg.Topology,
		hasEncoders:       cfg.HasEncoders,
		hasPEC:            cfg.HasPEC,
		hasMechanicalZero: cfg.HasMechanicalZero,
		trackingRates:     maps.Clone(cfg.TrackingRates),
	}
}

func (c Capability) Topology() Topology      { return c.topology }
func (c Capability) HasEncoders() bool       { return c.hasEncoders }
func (c Capability) HasPEC() bool            { return c.hasPEC }
func (c Capability) HasMechanicalZero() bool { return c.hasMechanicalZero }

// TrackingRates returns a copy of the tracking rate table.
func (c Capability) TrackingRates() map[int]string {
	return maps.Clone(c.trackingRates)
}

// TrackingRateCodes returns the supported codes in ascending order.
func (c Capability) TrackingRateCodes() []int {
	return slices.Sorted(maps.Keys(c.trackingRates))
}

// TrackingRateLabel returns the label of a code, "" when unknown.
func (c Capability) TrackingRateLabel(code int) string {
	return c.trackingRates[code]
}

// TrackingRateCode resolves a label to its code.
func (c Capability) TrackingRateCode(label string) (int, bool) {
	for code, l := range c.trackingRates {
		if strings.EqualFold(l, label) {
			return code, true
		}
	}
	return 0, false
}

// IsLegal is the single gate consulted before any I/O.
// Operations not listed here are legal on every mount.
func (c Capability) IsLegal(op Operation) bool {
	eq := c.topology == TopologyEquatorial

	switch op {
	case OpPECIntegrity, OpPECRecordingStatus, OpPECPlayback:
		return eq && !c.hasEncoders
	case OpPECRecording:
		return eq && !c.hasEncoders && c.hasPEC
	case OpRAGuidingFilter, OpSetRAGuidingFilter:
		return eq && c.hasEncoders
	case OpMeridianTreatment, OpSetMeridian, OpSetGuidingRates:
		return eq
	case OpGoMechanicalZero:
		return c.hasMechanicalZero
	default:
		return true
	}
}

func (c Capability) validateTrackingRate(code int) error {
	if _, ok := c.trackingRates[code]; !ok {
		return invalid("tracking_rate", "code %d not in %v", code, c.TrackingRateCodes())
	}
	return nil
}
