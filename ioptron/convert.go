package ioptron

import (
	"fmt"
	"math"
	"time"
)

// The mount counts angles in 0.01 arc-second units.
const (
	UnitsPerArcsec = 100
	UnitsPerDegree = 3600 * UnitsPerArcsec
	UnitsPerHour   = 15 * UnitsPerDegree // 15° of right ascension per hour
	UnitsPerMinute = UnitsPerHour / 60
	UnitsPerSecond = UnitsPerMinute / 60
)

// J2000 is the origin of the mount's clock.
var J2000 = time.Date(2000, time.January, 1, 12, 0, 0, 0, time.UTC)

// Arcsec is an angle expressed in the protocol's native unit (0.01″).
// It is the only stored representation; DMS and HMS views are derived on demand.
type Arcsec int64

func (a Arcsec) Degrees() float64 { return ArcsecToDegrees(a) }

func (a Arcsec) DMS() DMS { return ArcsecToDMS(a) }

func (a Arcsec) HMS() HMS { return ArcsecToHMS(a) }

type DMS struct {
	Negative bool    `json:"negative,omitempty"`
	Degrees  int     `json:"degrees"`
	Minutes  int     `json:"minutes"`
	Seconds  float64 `json:"seconds"`
}

func (d DMS) String() string {
	sign := "+"
	if d.Negative {
		sign = "-"
	}
	return fmt.Sprintf("%s%02d°%02d'%05.2f\"", sign, d.Degrees, d.Minutes, d.Seconds)
}

type HMS struct {
	Hours   int     `json:"hours"`
	Minutes int     `json:"minutes"`
	Seconds float64 `json:"seconds"`
}

func (h HMS) String() string {
	return fmt.Sprintf("%02dh%02dm%05.2fs", h.Hours, h.Minutes, h.Seconds)
}

func ArcsecToDegrees(a Arcsec) float64 {
	return float64(a) / 3600 / UnitsPerArcsec
}

func DegreesToArcsec(deg float64) Arcsec {
	return Arcsec(math.Round(deg * UnitsPerDegree))
}

func ArcsecToDMS(a Arcsec) DMS {
	var d DMS
	v := int64(a)
	if v < 0 {
		d.Negative = true
		v = -v
	}

	d.Degrees = int(v / UnitsPerDegree)
	v %= UnitsPerDegree
	d.Minutes = int(v / (60 * UnitsPerArcsec))
	v %= 60 * UnitsPerArcsec
	d.Seconds = float64(v) / UnitsPerArcsec
	return d
}

// DMSToArcsec rounds to the nearest unit.
// It panics when minutes or seconds are outside [0, 60).
func DMSToArcsec(d DMS) Arcsec {
	mustSexagesimal(d.Degrees, d.Minutes, d.Seconds)

	units := math.Round((float64(d.Degrees)*3600 + float64(d.Minutes)*60 + d.Seconds) * UnitsPerArcsec)
	if d.Negative {
		units = -units
	}
	return Arcsec(units)
}

// DMSToDegrees rounds to 5 decimal places.
func DMSToDegrees(d DMS) float64 {
	mustSexagesimal(d.Degrees, d.Minutes, d.Seconds)

	deg := float64(d.Degrees) + float64(d.Minutes)/60 + d.Seconds/3600
	deg = math.Round(deg*1e5) / 1e5
	if d.Negative {
		deg = -deg
	}
	return deg
}

func DegreesToDMS(deg float64) DMS {
	return ArcsecToDMS(DegreesToArcsec(deg))
}

// ArcsecToHMS reads a right ascension count as hours of sidereal angle.
func ArcsecToHMS(a Arcsec) HMS {
	v := int64(a)
	if v < 0 {
		panic(fmt.Sprintf("ioptron: negative right ascension %d", v))
	}

	var h HMS
	h.Hours = int(v / UnitsPerHour)
	v %= UnitsPerHour
	h.Minutes = int(v / UnitsPerMinute)
	v %= UnitsPerMinute
	h.Seconds = float64(v) / UnitsPerSecond
	return h
}

// HMSToArcsec rounds to the nearest unit.
// It panics when minutes or seconds are outside [0, 60).
func HMSToArcsec(h HMS) Arcsec {
	mustSexagesimal(h.Hours, h.Minutes, h.Seconds)

	seconds := float64(h.Hours)*3600 + float64(h.Minutes)*60 + h.Seconds
	return Arcsec(math.Round(seconds * UnitsPerSecond))
}

func mustSexagesimal(whole, minutes int, seconds float64) {
	if whole < 0 || minutes < 0 || minutes >= 60 || seconds < 0 || seconds >= 60 {
		panic(fmt.Sprintf("ioptron: sexagesimal value out of domain: %d %d %f", whole, minutes, seconds))
	}
}

// J2KMillisToUnix converts a count of milliseconds since J2000 to UNIX seconds,
// shifted by offsetMin minutes.
func J2KMillisToUnix(ms int64, offsetMin int) int64 {
	return J2000.Add(time.Duration(ms)*time.Millisecond + time.Duration(offsetMin)*time.Minute).Unix()
}

// UnixToJ2KMillis is the inverse of J2KMillisToUnix.
func UnixToJ2KMillis(unix int64, offsetMin int) int64 {
	return (unix - int64(offsetMin)*60 - J2000.Unix()) * 1000
}

// J2KMillis returns the milliseconds elapsed between J2000 and t.
func J2KMillis(t time.Time) int64 {
	return t.Sub(J2000).Milliseconds()
}
