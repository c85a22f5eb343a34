package ioptron

// RefreshStatus reads location, system status, tracking rate, moving speed,
// time source and hemisphere in one round trip.
func (c *Controller) RefreshStatus() error {
	return c.query(OpRefreshStatus, CmdGetStatus, func(raw string, s *State) {
		r := decodeStatus(raw)

		s.Location = &r.location
		s.Status = &r.status
		s.MovingSpeed = &r.movingSpeed
		s.TimeSource = &r.timeSource
		s.Hemisphere = &r.hemisphere

		t := edit(&s.Tracking)
		t.Code = r.trackingCode
		t.Label = c.capa.TrackingRateLabel(r.trackingCode)

		switch r.status.Code {
		case StatusTracking:
			edit(&s.PEC).Enabled = false
		case StatusTrackingPEC:
			edit(&s.PEC).Enabled = true
		}

		if s.Parking != nil || r.status.Parked {
			edit(&s.Parking).Parked = r.status.Parked
		}
	})
}

func (c *Controller) RefreshTime() error {
	return c.query(OpRefreshTime, CmdGetTime, func(raw string, s *State) {
		t := decodeTime(raw)
		s.Time = &t
	})
}

// RefreshEquatorial reads right ascension and declination. Pier side and
// counterweight direction are only decoded on equatorial mounts.
func (c *Controller) RefreshEquatorial() error {
	sided := c.capa.Topology() == TopologyEquatorial
	return c.query(OpRefreshEquatorial, CmdGetEquatorial, func(raw string, s *State) {
		e := decodeEquatorial(raw, sided)
		s.Equatorial = &e
	})
}

func (c *Controller) RefreshHorizontal() error {
	return c.query(OpRefreshHorizontal, CmdGetHorizontal, func(raw string, s *State) {
		h := decodeHorizontal(raw)
		s.Horizontal = &h
	})
}

func (c *Controller) RefreshParking() error {
	return c.query(OpRefreshParking, CmdGetParking, func(raw string, s *State) {
		p := edit(&s.Parking)
		p.Altitude, p.Azimuth = decodeParking(raw)
	})
}

// AltitudeLimit returns the altitude, in degrees, below which motion stops.
func (c *Controller) AltitudeLimit() (int, error) {
	var limit int
	err := c.query(OpAltitudeLimit, CmdGetAltitudeLimit, func(raw string, s *State) {
		limit = decodeAltitudeLimit(raw)
		s.AltitudeLimit = &limit
	})
	return limit, err
}

// CoordinateMemory returns how many stored positions (0 to 2) are within limits.
func (c *Controller) CoordinateMemory() (int, error) {
	var n int
	err := c.query(OpCoordinateMemory, CmdGetCoordMemory, func(raw string, s *State) {
		n = decodeDigit(raw)
		edit(&s.Tracking).MemoryStore = n
	})
	return n, err
}

// CustomTrackingRate returns the custom rate as a multiple of the sidereal rate.
func (c *Controller) CustomTrackingRate() (float64, error) {
	var rate float64
	err := c.query(OpCustomTrackingRate, CmdGetCustomRate, func(raw string, s *State) {
		rate = decodeCustomRate(raw)
		edit(&s.Tracking).CustomRate = rate
	})
	return rate, err
}

func (c *Controller) GuidingRates() (ra, dec float64, err error) {
	err = c.query(OpGuidingRates, CmdGetGuidingRates, func(raw string, s *State) {
		ra, dec = decodeGuidingRates(raw)
		g := edit(&s.Guiding)
		g.RARate, g.DecRate = ra, dec
	})
	return ra, dec, err
}

func (c *Controller) PECIntegrity() (complete bool, err error) {
	err = c.query(OpPECIntegrity, CmdGetPECIntegrity, func(raw string, s *State) {
		complete = decodeFlag(raw)
		edit(&s.PEC).IntegrityComplete = complete
	})
	return complete, err
}

func (c *Controller) PECRecording() (recording bool, err error) {
	err = c.query(OpPECRecordingStatus, CmdGetPECRecording, func(raw string, s *State) {
		recording = decodeFlag(raw)
		edit(&s.PEC).Recording = recording
	})
	return recording, err
}

func (c *Controller) RAGuidingFilter() (enabled bool, err error) {
	err = c.query(OpRAGuidingFilter, CmdGetRAGuideFilter, func(raw string, s *State) {
		enabled = decodeFlag(raw)
		edit(&s.Guiding).RAFilterEnabled = enabled
	})
	return enabled, err
}

func (c *Controller) MaxSlewingSpeed() (MovingSpeed, error) {
	var speed MovingSpeed
	err := c.query(OpMaxSlewingSpeed, CmdGetMaxSlewSpeed, func(raw string, s *State) {
		code := decodeDigit(raw)
		speed = MovingSpeed{Code: code, Label: label(MaxSlewingSpeeds, code)}
		s.MaxSlewingSpeed = &speed
	})
	return speed, err
}

func (c *Controller) MeridianTreatment() (Meridian, error) {
	var m Meridian
	err := c.query(OpMeridianTreatment, CmdGetMeridian, func(raw string, s *State) {
		m = decodeMeridian(raw)
		s.Meridian = &m
	})
	return m, err
}

// Firmware reads the mainboard/hand controller dates then the motor board dates.
func (c *Controller) Firmware() (Firmware, error) {
	var fw Firmware
	err := c.query(OpFirmware, CmdGetMainFirmware, func(raw string, s *State) {
		fw.Mainboard, fw.HandController = decodeFirmware(raw)
		f := edit(&s.Firmware)
		f.Mainboard, f.HandController = fw.Mainboard, fw.HandController
	})
	if err != nil {
		return fw, err
	}

	err = c.query(OpFirmware, CmdGetMotorFirmware, func(raw string, s *State) {
		fw.RAMotor, fw.DecMotor = decodeFirmware(raw)
		f := edit(&s.Firmware)
		f.RAMotor, f.DecMotor = fw.RAMotor, fw.DecMotor
	})
	return fw, err
}

// Model returns the 4 digit model code, e.g. 0120 for a CEM120.
func (c *Controller) Model() (string, error) {
	var model string
	err := c.query(OpModel, CmdGetMountInfo, func(raw string, s *State) {
		model = raw
		s.Model = raw
	})
	return model, err
}
