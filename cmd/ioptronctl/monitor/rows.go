package monitor

import (
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	"github.com/mdouchement/ioptrond"
	"github.com/mdouchement/ioptrond/ioptron"
)

const unknown = "-"

// rows flattens a snapshot, sub-records not read yet are shown as unknown.
func rows(s ioptrond.Snapshot) []table.Row {
	st := s.State

	rows := []table.Row{
		{"Model", s.Model},
		{"Connection", s.Connection},
		{"Status", unknown},
		{"Right ascension", unknown},
		{"Declination", unknown},
		{"Pier side", unknown},
		{"Altitude", unknown},
		{"Azimuth", unknown},
		{"Tracking rate", unknown},
		{"Moving speed", unknown},
		{"Location", unknown},
		{"GPS", unknown},
		{"Local time", unknown},
	}
	set := func(name, value string) {
		for _, r := range rows {
			if r[0] == name {
				r[1] = value
				return
			}
		}
	}

	if st.Status != nil {
		set("Status", st.Status.Description)
	}
	if eq := st.Equatorial; eq != nil {
		set("Right ascension", eq.RightAscension.HMS().String())
		set("Declination", eq.Declination.DMS().String())
		if eq.Sided {
			set("Pier side", fmt.Sprintf("%s (counterweight %s)", eq.PierSide, eq.Counterweight))
		}
	}
	if hz := st.Horizontal; hz != nil {
		set("Altitude", hz.Altitude.DMS().String())
		set("Azimuth", hz.Azimuth.DMS().String())
	}
	if tr := st.Tracking; tr != nil {
		label := tr.Label
		if label == "" {
			label = fmt.Sprintf("code %d", tr.Code)
		}
		set("Tracking rate", label)
	}
	if ms := st.MovingSpeed; ms != nil {
		set("Moving speed", ms.Label)
	}
	if loc := st.Location; loc != nil {
		set("Location", fmt.Sprintf("lat %s lon %s",
			ioptron.DegreesToDMS(loc.Latitude), ioptron.DegreesToDMS(loc.Longitude)))
		set("GPS", loc.GPS.String())
	}
	if t := st.Time; t != nil {
		set("Local time", t.Local().Format("2006-01-02 15:04:05 -07:00"))
	}

	return rows
}
