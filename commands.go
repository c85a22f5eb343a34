package ioptrond

import (
	"bytes"
	"encoding/json"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/mdouchement/ioptrond/ioptron"
)

// A command adapts one controller operation to a JSON call.
type command func(m *ioptron.Controller, args []byte) (any, error)

type (
	enabledArgs struct {
		Enabled bool `json:"enabled"`
	}

	codeArgs struct {
		Code int `json:"code"`
	}

	degreesArgs struct {
		Degrees float64 `json:"degrees"`
	}

	altitudeLimitArgs struct {
		Degrees int `json:"degrees"`
	}

	trackingRateArgs struct {
		Code  *int   `json:"code"`
		Label string `json:"label"`
	}

	customRateArgs struct {
		Rate float64 `json:"rate"`
	}

	guidingRatesArgs struct {
		RA  float64 `json:"ra"`
		Dec float64 `json:"dec"`
	}

	moveArgs struct {
		Direction string `json:"direction"`
		Seconds   int    `json:"seconds"`
	}

	axisArgs struct {
		Axis string `json:"axis"`
	}

	meridianArgs struct {
		Treatment string `json:"treatment"`
		Limit     int    `json:"limit"`
	}

	hemisphereArgs struct {
		Hemisphere string `json:"hemisphere"`
	}

	utcOffsetArgs struct {
		Minutes int `json:"minutes"`
	}

	timeArgs struct {
		Time string `json:"time"` // RFC3339, host clock when empty
	}

	resetArgs struct {
		Confirm bool `json:"confirm"`
	}
)

var commands = map[string]command{
	"refresh":                            action((*ioptron.Controller).Refresh),
	"refresh_coordinates":                action((*ioptron.Controller).RefreshCoordinates),
	string(ioptron.OpRefreshStatus):      action((*ioptron.Controller).RefreshStatus),
	string(ioptron.OpRefreshTime):        action((*ioptron.Controller).RefreshTime),
	string(ioptron.OpRefreshEquatorial):  action((*ioptron.Controller).RefreshEquatorial),
	string(ioptron.OpRefreshHorizontal):  action((*ioptron.Controller).RefreshHorizontal),
	string(ioptron.OpRefreshParking):     action((*ioptron.Controller).RefreshParking),
	string(ioptron.OpAltitudeLimit):      query((*ioptron.Controller).AltitudeLimit),
	string(ioptron.OpCoordinateMemory):   query((*ioptron.Controller).CoordinateMemory),
	string(ioptron.OpCustomTrackingRate): query((*ioptron.Controller).CustomTrackingRate),
	string(ioptron.OpPECIntegrity):       query((*ioptron.Controller).PECIntegrity),
	string(ioptron.OpPECRecordingStatus): query((*ioptron.Controller).PECRecording),
	string(ioptron.OpRAGuidingFilter):    query((*ioptron.Controller).RAGuidingFilter),
	string(ioptron.OpMaxSlewingSpeed):    query((*ioptron.Controller).MaxSlewingSpeed),
	string(ioptron.OpMeridianTreatment):  query((*ioptron.Controller).MeridianTreatment),
	string(ioptron.OpFirmware):           query((*ioptron.Controller).Firmware),
	string(ioptron.OpModel):              query((*ioptron.Controller).Model),
	string(ioptron.OpGuidingRates): func(m *ioptron.Controller, _ []byte) (any, error) {
		ra, dec, err := m.GuidingRates()
		return guidingRatesArgs{RA: ra, Dec: dec}, err
	},
	string(ioptron.OpReset): withArgs(func(m *ioptron.Controller, a resetArgs) error {
		return m.Reset(a.Confirm)
	}),

	// Motion
	string(ioptron.OpSlewEquatorial):   action((*ioptron.Controller).SlewToEquatorial),
	string(ioptron.OpSlewHorizontal):   action((*ioptron.Controller).SlewToHorizontal),
	string(ioptron.OpSynchronize):      action((*ioptron.Controller).Synchronize),
	string(ioptron.OpStop):             action((*ioptron.Controller).Stop),
	string(ioptron.OpGoHome):           action((*ioptron.Controller).GoHome),
	string(ioptron.OpGoMechanicalZero): action((*ioptron.Controller).GoMechanicalZero),
	string(ioptron.OpSetZeroPosition):  action((*ioptron.Controller).SetZeroPosition),
	string(ioptron.OpPark):             action((*ioptron.Controller).Park),
	string(ioptron.OpUnpark):           action((*ioptron.Controller).Unpark),
	string(ioptron.OpStopAxis): withArgs(func(m *ioptron.Controller, a axisArgs) error {
		axis, err := parseAxis(a.Axis)
		if err != nil {
			return err
		}
		return m.StopAxis(axis)
	}),
	string(ioptron.OpMove): withArgs(func(m *ioptron.Controller, a moveArgs) error {
		return m.Move(ioptron.Direction(strings.ToLower(a.Direction)))
	}),
	string(ioptron.OpMoveFor): withArgs(func(m *ioptron.Controller, a moveArgs) error {
		return m.MoveFor(ioptron.GuideDirection(strings.ToLower(a.Direction)), a.Seconds)
	}),
	string(ioptron.OpSetTracking): withArgs(func(m *ioptron.Controller, a enabledArgs) error {
		return m.SetTracking(a.Enabled)
	}),
	string(ioptron.OpSetTrackingRate): withArgs(func(m *ioptron.Controller, a trackingRateArgs) error {
		code, err := trackingRateCode(m.Capability(), a)
		if err != nil {
			return err
		}
		return m.SetTrackingRate(code)
	}),
	string(ioptron.OpSetCustomRate): withArgs(func(m *ioptron.Controller, a customRateArgs) error {
		return m.SetCustomTrackingRate(a.Rate)
	}),
	string(ioptron.OpSetMovingSpeed): withArgs(func(m *ioptron.Controller, a codeArgs) error {
		return m.SetMovingSpeed(a.Code)
	}),
	string(ioptron.OpSetMaxSlewingSpeed): withArgs(func(m *ioptron.Controller, a codeArgs) error {
		return m.SetMaxSlewingSpeed(a.Code)
	}),

	// Settings
	string(ioptron.OpSetRightAscension):  withArgs((*ioptron.Controller).SetCommandedRightAscension),
	string(ioptron.OpSetDeclination):     withArgs((*ioptron.Controller).SetCommandedDeclination),
	string(ioptron.OpSetAltitude):        withArgs((*ioptron.Controller).SetCommandedAltitude),
	string(ioptron.OpSetAzimuth):         withArgs((*ioptron.Controller).SetCommandedAzimuth),
	string(ioptron.OpSetParkingAltitude): withArgs((*ioptron.Controller).SetParkingAltitude),
	string(ioptron.OpSetParkingAzimuth):  withArgs((*ioptron.Controller).SetParkingAzimuth),
	string(ioptron.OpSetGuidingRates): withArgs(func(m *ioptron.Controller, a guidingRatesArgs) error {
		return m.SetGuidingRates(a.RA, a.Dec)
	}),
	string(ioptron.OpSetRAGuidingFilter): withArgs(func(m *ioptron.Controller, a enabledArgs) error {
		return m.SetRAGuidingFilter(a.Enabled)
	}),
	string(ioptron.OpPECPlayback): withArgs(func(m *ioptron.Controller, a enabledArgs) error {
		return m.SetPECPlayback(a.Enabled)
	}),
	string(ioptron.OpPECRecording): withArgs(func(m *ioptron.Controller, a enabledArgs) error {
		return m.SetPECRecording(a.Enabled)
	}),
	string(ioptron.OpSetMeridian): withArgs(func(m *ioptron.Controller, a meridianArgs) error {
		treatment, err := parseMeridianTreatment(a.Treatment)
		if err != nil {
			return err
		}
		return m.SetMeridianTreatment(treatment, a.Limit)
	}),
	string(ioptron.OpSetAltitudeLimit): withArgs(func(m *ioptron.Controller, a altitudeLimitArgs) error {
		return m.SetAltitudeLimit(a.Degrees)
	}),
	string(ioptron.OpSetLatitude): withArgs(func(m *ioptron.Controller, a degreesArgs) error {
		return m.SetLatitude(a.Degrees)
	}),
	string(ioptron.OpSetLongitude): withArgs(func(m *ioptron.Controller, a degreesArgs) error {
		return m.SetLongitude(a.Degrees)
	}),
	string(ioptron.OpSetHemisphere): withArgs(func(m *ioptron.Controller, a hemisphereArgs) error {
		switch strings.ToLower(a.Hemisphere) {
		case "north", "n":
			return m.SetHemisphere(ioptron.North)
		case "south", "s":
			return m.SetHemisphere(ioptron.South)
		default:
			return &ioptron.ValidationError{Field: "hemisphere", Reason: "expected north or south"}
		}
	}),
	string(ioptron.OpSetUTCOffset): withArgs(func(m *ioptron.Controller, a utcOffsetArgs) error {
		return m.SetUTCOffset(a.Minutes)
	}),
	string(ioptron.OpSetDaylightSaving): withArgs(func(m *ioptron.Controller, a enabledArgs) error {
		return m.SetDaylightSaving(a.Enabled)
	}),
	string(ioptron.OpSetTime): withArgs(func(m *ioptron.Controller, a timeArgs) error {
		t := time.Now()
		if a.Time != "" {
			var err error
			if t, err = time.Parse(time.RFC3339, a.Time); err != nil {
				return &ioptron.ValidationError{Field: "time", Reason: err.Error()}
			}
		}
		return m.SetTime(t)
	}),
}

// Commands returns the names accepted by POST /command/{name}.
func Commands() []string {
	return slices.Sorted(maps.Keys(commands))
}

func action(f func(*ioptron.Controller) error) command {
	return func(m *ioptron.Controller, _ []byte) (any, error) {
		return nil, f(m)
	}
}

func query[R any](f func(*ioptron.Controller) (R, error)) command {
	return func(m *ioptron.Controller, _ []byte) (any, error) {
		return f(m)
	}
}

func withArgs[A any](f func(*ioptron.Controller, A) error) command {
	return func(m *ioptron.Controller, raw []byte) (any, error) {
		var args A
		if len(bytes.TrimSpace(raw)) > 0 {
			if err := json.Unmarshal(raw, &args); err != nil {
				return nil, &ioptron.ValidationError{Field: "args", Reason: err.Error()}
			}
		}
		return nil, f(m, args)
	}
}

func parseAxis(s string) (ioptron.Axis, error) {
	switch strings.ToLower(s) {
	case "east-west", "ra":
		return ioptron.AxisEastWest, nil
	case "north-south", "dec":
		return ioptron.AxisNorthSouth, nil
	default:
		return 0, &ioptron.ValidationError{Field: "axis", Reason: "expected east-west or north-south"}
	}
}

func parseMeridianTreatment(s string) (ioptron.MeridianTreatment, error) {
	switch strings.ToLower(s) {
	case "stop":
		return ioptron.MeridianStop, nil
	case "flip":
		return ioptron.MeridianFlip, nil
	default:
		return 0, &ioptron.ValidationError{Field: "treatment", Reason: "expected stop or flip"}
	}
}

func trackingRateCode(capa ioptron.Capability, a trackingRateArgs) (int, error) {
	if a.Label != "" {
		code, ok := capa.TrackingRateCode(a.Label)
		if !ok {
			return 0, &ioptron.ValidationError{Field: "label", Reason: "unknown tracking rate " + a.Label}
		}
		return code, nil
	}
	if a.Code == nil {
		return 0, &ioptron.ValidationError{Field: "tracking_rate", Reason: "code or label is required"}
	}
	return *a.Code, nil
}
