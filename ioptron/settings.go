package ioptron

import (
	"math"
	"time"
)

func validHMS(field string, h HMS) error {
	if h.Hours < 0 || h.Hours > 23 || h.Minutes < 0 || h.Minutes > 59 || h.Seconds < 0 || h.Seconds >= 60 {
		return invalid(field, "%s out of [00h00m00s, 24h00m00s)", h)
	}
	return nil
}

// validDMS checks the sexagesimal domain and bounds the absolute value to [lo, hi] degrees.
func validDMS(field string, d DMS, lo, hi float64) error {
	if d.Degrees < 0 || d.Minutes < 0 || d.Minutes > 59 || d.Seconds < 0 || d.Seconds >= 60 {
		return invalid(field, "%s is not a valid angle", d)
	}

	deg := float64(d.Degrees) + float64(d.Minutes)/60 + d.Seconds/3600
	if d.Negative {
		deg = -deg
	}
	return inRange(field, deg, lo, hi)
}

// hmsArg checks h and converts it once valid. The returned validate runs inside
// the request so that an unconnected controller reports NotConnected first.
func hmsArg(field string, h HMS) (validate func() error, units Arcsec) {
	err := validHMS(field, h)
	if err == nil {
		units = HMSToArcsec(h)
	}
	return func() error { return err }, units
}

func dmsArg(field string, d DMS, lo, hi float64) (validate func() error, units Arcsec) {
	err := validDMS(field, d, lo, hi)
	if err == nil {
		units = DMSToArcsec(d)
	}
	return func() error { return err }, units
}

// SetCommandedRightAscension defines the target of SlewToEquatorial and Synchronize.
func (c *Controller) SetCommandedRightAscension(ra HMS) error {
	validate, a := hmsArg("right_ascension", ra)
	return c.ack(OpSetRightAscension, CmdSetRightAscension, validate, nil, float64(a))
}

func (c *Controller) SetCommandedDeclination(dec DMS) error {
	validate, a := dmsArg("declination", dec, -90, 90)
	return c.ack(OpSetDeclination, CmdSetDeclination, validate, nil, float64(a))
}

// SetCommandedAltitude defines the target of SlewToHorizontal and Synchronize.
func (c *Controller) SetCommandedAltitude(alt DMS) error {
	validate, a := dmsArg("altitude", alt, -90, 90)
	return c.ack(OpSetAltitude, CmdSetAltitude, validate, nil, float64(a))
}

func (c *Controller) SetCommandedAzimuth(az DMS) error {
	validate, a := dmsArg("azimuth", az, 0, 360)
	return c.ack(OpSetAzimuth, CmdSetAzimuth, validate, nil, float64(a))
}

func (c *Controller) SetParkingAltitude(alt DMS) error {
	validate, a := dmsArg("parking_altitude", alt, 0, 90)
	return c.ack(OpSetParkingAltitude, CmdSetParkAltitude, validate, func(s *State) {
		edit(&s.Parking).Altitude = a
	}, float64(a))
}

func (c *Controller) SetParkingAzimuth(az DMS) error {
	validate, a := dmsArg("parking_azimuth", az, 0, 360)
	return c.ack(OpSetParkingAzimuth, CmdSetParkAzimuth, validate, func(s *State) {
		edit(&s.Parking).Azimuth = a
	}, float64(a))
}

// SetLatitude sets the site latitude in degrees, north positive.
func (c *Controller) SetLatitude(deg float64) error {
	validate := func() error { return inRange("latitude", deg, -90, 90) }
	return c.ack(OpSetLatitude, CmdSetLatitude, validate, func(s *State) {
		edit(&s.Location).Latitude = deg
	}, float64(DegreesToArcsec(deg)))
}

// SetLongitude sets the site longitude in degrees, east positive.
func (c *Controller) SetLongitude(deg float64) error {
	validate := func() error { return inRange("longitude", deg, -180, 180) }
	return c.ack(OpSetLongitude, CmdSetLongitude, validate, func(s *State) {
		edit(&s.Location).Longitude = deg
	}, float64(DegreesToArcsec(deg)))
}

func (c *Controller) SetHemisphere(h Hemisphere) error {
	validate := func() error {
		if h != North && h != South {
			return invalid("hemisphere", "unknown code %d", h)
		}
		return nil
	}
	return c.ack(OpSetHemisphere, CmdSetHemisphere, validate, func(s *State) {
		s.Hemisphere = &h
	}, float64(h))
}

// SetUTCOffset sets the time zone offset in minutes, DST excluded.
func (c *Controller) SetUTCOffset(minutes int) error {
	validate := func() error { return inRange("utc_offset", minutes, -720, 780) }
	return c.ack(OpSetUTCOffset, CmdSetUTCOffset, validate, func(s *State) {
		if s.Time == nil {
			return
		}
		t := edit(&s.Time)
		t.UTCOffset = minutes
		t.UnixLocal = J2KMillisToUnix(t.J2000Millis, t.zoneOffset())
	}, float64(minutes))
}

// SetDaylightSaving toggles DST then reads the mount clock back.
func (c *Controller) SetDaylightSaving(on bool) error {
	if err := c.ack(OpSetDaylightSaving, CmdSetDST, nil, nil, flag(on)); err != nil {
		return err
	}
	return c.RefreshTime()
}

// SetTime sets the mount clock to t, sent as UTC milliseconds since J2000.
func (c *Controller) SetTime(t time.Time) error {
	ms := J2KMillis(t)
	validate := func() error {
		if ms < 0 || ms > 9_999_999_999_999 {
			return invalid("time", "%s out of the mount clock range", t.UTC().Format(time.RFC3339))
		}
		return nil
	}
	return c.ack(OpSetTime, CmdSetTime, validate, nil, float64(ms))
}

// SetAltitudeLimit sets the altitude, in degrees, below which tracking and slewing stop.
func (c *Controller) SetAltitudeLimit(deg int) error {
	validate := func() error { return inRange("altitude_limit", deg, -89, 89) }
	return c.ack(OpSetAltitudeLimit, CmdSetAltitudeLimit, validate, func(s *State) {
		s.AltitudeLimit = &deg
	}, float64(deg))
}

// SetGuidingRates sets the RA and DEC guiding rates, from 0.01 to 0.90 times the sidereal rate.
func (c *Controller) SetGuidingRates(ra, dec float64) error {
	ra, dec = round2(ra), round2(dec)
	validate := func() error {
		if err := inRange("ra_guiding_rate", ra, 0.01, 0.90); err != nil {
			return err
		}
		return inRange("dec_guiding_rate", dec, 0.01, 0.90)
	}
	return c.ack(OpSetGuidingRates, CmdSetGuidingRates, validate, func(s *State) {
		g := edit(&s.Guiding)
		g.RARate, g.DecRate = ra, dec
	}, ra, dec)
}

func (c *Controller) SetRAGuidingFilter(on bool) error {
	return c.ack(OpSetRAGuidingFilter, CmdSetRAGuideFilter, nil, func(s *State) {
		edit(&s.Guiding).RAFilterEnabled = on
	}, flag(on))
}

func (c *Controller) SetPECPlayback(on bool) error {
	return c.ack(OpPECPlayback, CmdSetPECPlayback, nil, func(s *State) {
		edit(&s.PEC).Enabled = on
	}, flag(on))
}

func (c *Controller) SetPECRecording(on bool) error {
	return c.ack(OpPECRecording, CmdSetPECRecording, nil, func(s *State) {
		edit(&s.PEC).Recording = on
	}, flag(on))
}

// SetMeridianTreatment tells the mount to stop or flip once limit degrees past the meridian.
func (c *Controller) SetMeridianTreatment(treatment MeridianTreatment, limit int) error {
	validate := func() error {
		if treatment != MeridianStop && treatment != MeridianFlip {
			return invalid("meridian_treatment", "unknown code %d", treatment)
		}
		return inRange("meridian_limit", limit, 0, 15)
	}
	return c.ack(OpSetMeridian, CmdSetMeridian, validate, func(s *State) {
		s.Meridian = &Meridian{Treatment: treatment, Limit: limit}
	}, float64(treatment), float64(limit))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
