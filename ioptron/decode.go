package ioptron

// Decoders read fields out of responses already accepted by Command.Check.
// Offsets are per-command constants of the protocol.

type statusReport struct {
	location     Location
	status       SystemStatus
	trackingCode int
	movingSpeed  MovingSpeed
	timeSource   TimeSource
	hemisphere   Hemisphere
}

// GLS: sTTTTTTTT TTTTTTTT G S R M T H #
// The latitude is sent with a +90° offset so that it is always positive.
func decodeStatus(raw string) statusReport {
	lon := Arcsec(number(raw, 0, 9))
	lat := Arcsec(number(raw, 9, 17) - 90*UnitsPerDegree)
	code := StatusCode(number(raw, 18, 19))
	speed := int(number(raw, 20, 21))

	return statusReport{
		location: Location{
			Longitude: lon.Degrees(),
			Latitude:  lat.Degrees(),
			GPS:       GPSState(number(raw, 17, 18)),
		},
		status: SystemStatus{
			Code:        code,
			Description: code.String(),
			Slewing:     code.Slewing(),
			Tracking:    code.Tracking(),
			Parked:      code.Parked(),
		},
		trackingCode: int(number(raw, 19, 20)),
		movingSpeed:  MovingSpeed{Code: speed, Label: label(MovingSpeeds, speed)},
		timeSource:   TimeSource(number(raw, 21, 22)),
		hemisphere:   Hemisphere(number(raw, 22, 23)),
	}
}

// GUT: sMMM D XXXXXXXXXXXXX #
func decodeTime(raw string) TimeInfo {
	t := TimeInfo{
		UTCOffset:   int(number(raw, 0, 4)),
		DST:         slice(raw, 4, 5) == "1",
		J2000Millis: number(raw, 5, 18),
	}
	t.UnixUTC = J2KMillisToUnix(t.J2000Millis, 0)
	t.UnixLocal = J2KMillisToUnix(t.J2000Millis, t.zoneOffset())
	return t
}

// GEP: sTTTTTTTT TTTTTTTTT P C #
func decodeEquatorial(raw string, sided bool) Equatorial {
	e := Equatorial{
		Declination:    Arcsec(number(raw, 0, 9)),
		RightAscension: Arcsec(number(raw, 9, 18)),
	}
	if sided {
		e.Sided = true
		e.PierSide = PierSide(number(raw, 18, 19))
		e.Counterweight = Counterweight(number(raw, 19, 20))
	}
	return e
}

// GAC: sTTTTTTTT TTTTTTTTT #
func decodeHorizontal(raw string) Horizontal {
	return Horizontal{
		Altitude: Arcsec(number(raw, 0, 9)),
		Azimuth:  Arcsec(number(raw, 9, 18)),
	}
}

// GPC: TTTTTTTT TTTTTTTTT #
func decodeParking(raw string) (alt, az Arcsec) {
	return Arcsec(number(raw, 0, 8)), Arcsec(number(raw, 8, 17))
}

// GAL: snn#
func decodeAltitudeLimit(raw string) int {
	return int(number(raw, 0, 3))
}

// GTR: nnnnn# in 1/10000 of the sidereal rate.
func decodeCustomRate(raw string) float64 {
	return float64(number(raw, 0, 5)) / 10000
}

// AG: nnnn# RA and DEC rates in 1/100 of the sidereal rate.
func decodeGuidingRates(raw string) (ra, dec float64) {
	return float64(number(raw, 0, 2)) / 100, float64(number(raw, 2, 4)) / 100
}

// GMT: Tnn#
func decodeMeridian(raw string) Meridian {
	return Meridian{
		Treatment: MeridianTreatment(number(raw, 0, 1)),
		Limit:     int(number(raw, 1, 3)),
	}
}

func decodeDigit(raw string) int {
	return int(number(raw, 0, 1))
}

func decodeFlag(raw string) bool {
	return slice(raw, 0, 1) == "1"
}

// FW1/FW2: two YYMMDD dates. A missing hand controller is reported as xxxxxx.
func decodeFirmware(raw string) (first, second string) {
	first, second = slice(raw, 0, 6), slice(raw, 6, 12)
	if second == "xxxxxx" {
		second = ""
	}
	return first, second
}
