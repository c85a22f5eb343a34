package ioptron

func (c *Controller) markSlewing(s *State, slewing bool) {
	if s.Status == nil {
		return
	}
	edit(&s.Status).Slewing = slewing
}

// SlewToEquatorial slews to the last commanded right ascension and declination.
func (c *Controller) SlewToEquatorial() error {
	return c.ack(OpSlewEquatorial, CmdSlewEquatorial, nil, func(s *State) { c.markSlewing(s, true) })
}

// SlewToHorizontal slews to the last commanded altitude and azimuth.
func (c *Controller) SlewToHorizontal() error {
	return c.ack(OpSlewHorizontal, CmdSlewHorizontal, nil, func(s *State) { c.markSlewing(s, true) })
}

// Synchronize makes the last commanded coordinates the current position.
// The mount ignores it while slewing.
func (c *Controller) Synchronize() error {
	return c.ack(OpSynchronize, CmdSynchronize, nil, nil)
}

// Stop halts every movement, whatever its source.
func (c *Controller) Stop() error {
	return c.ack(OpStop, CmdStop, nil, func(s *State) { c.markSlewing(s, false) })
}

// StopAxis halts a movement started by Move.
func (c *Controller) StopAxis(axis Axis) error {
	cmd := CmdStopEastWest
	if axis == AxisNorthSouth {
		cmd = CmdStopNorthSouth
	}
	return c.ack(OpStopAxis, cmd, nil, func(s *State) { c.markSlewing(s, false) })
}

func (c *Controller) GoHome() error {
	return c.ack(OpGoHome, CmdGoHome, nil, func(s *State) { c.markSlewing(s, true) })
}

// GoMechanicalZero searches the mechanical zero position.
func (c *Controller) GoMechanicalZero() error {
	return c.ack(OpGoMechanicalZero, CmdGoMechanicalZero, nil, func(s *State) { c.markSlewing(s, true) })
}

// SetZeroPosition makes the current position the zero position.
func (c *Controller) SetZeroPosition() error {
	return c.ack(OpSetZeroPosition, CmdSetZeroPosition, nil, nil)
}

func (c *Controller) Park() error {
	return c.ack(OpPark, CmdPark, nil, func(s *State) { edit(&s.Parking).Parked = true })
}

func (c *Controller) Unpark() error {
	return c.ack(OpUnpark, CmdUnpark, nil, func(s *State) { edit(&s.Parking).Parked = false })
}

// Move starts moving toward a cardinal direction at the moving speed, until StopAxis or Stop.
func (c *Controller) Move(direction Direction) error {
	var cmd Command
	switch direction {
	case DirectionNorth:
		cmd = CmdMoveNorth
	case DirectionEast:
		cmd = CmdMoveEast
	case DirectionSouth:
		cmd = CmdMoveSouth
	case DirectionWest:
		cmd = CmdMoveWest
	}

	validate := func() error {
		_, err := ParseDirection(string(direction))
		return err
	}
	return c.send(OpMove, cmd, validate)
}

// MoveFor moves along an axis at the guiding rate for the given seconds (0 to 99999).
func (c *Controller) MoveFor(direction GuideDirection, seconds int) error {
	var cmd Command
	switch direction {
	case RAPositive:
		cmd = CmdGuideRAPositive
	case RANegative:
		cmd = CmdGuideRANegative
	case DecPositive:
		cmd = CmdGuideDecPositive
	case DecNegative:
		cmd = CmdGuideDecNegative
	}

	validate := func() error {
		if _, err := ParseGuideDirection(string(direction)); err != nil {
			return err
		}
		return inRange("seconds", seconds, 0, 99999)
	}
	return c.send(OpMoveFor, cmd, validate, float64(seconds))
}

func (c *Controller) SetTracking(on bool) error {
	return c.ack(OpSetTracking, CmdSetTracking, nil, func(s *State) {
		if s.Status != nil {
			edit(&s.Status).Tracking = on
		}
	}, flag(on))
}

// SetTrackingRate selects one of the rates of the capability table.
func (c *Controller) SetTrackingRate(code int) error {
	validate := func() error { return c.capa.validateTrackingRate(code) }
	return c.ack(OpSetTrackingRate, CmdSetTrackingRate, validate, func(s *State) {
		t := edit(&s.Tracking)
		t.Code = code
		t.Label = c.capa.TrackingRateLabel(code)
	}, float64(code))
}

// SetCustomTrackingRate sets the custom rate, from 0.1 to 1.9 times the sidereal rate.
func (c *Controller) SetCustomTrackingRate(rate float64) error {
	validate := func() error { return inRange("custom_rate", rate, 0.1, 1.9) }
	return c.ack(OpSetCustomRate, CmdSetCustomRate, validate, func(s *State) {
		edit(&s.Tracking).CustomRate = rate
	}, rate)
}

// SetMovingSpeed sets the speed used by Move, see MovingSpeeds.
// The mount forgets it on power off.
func (c *Controller) SetMovingSpeed(code int) error {
	validate := func() error { return inRange("moving_speed", code, 1, 9) }
	return c.ack(OpSetMovingSpeed, CmdSetMovingSpeed, validate, func(s *State) {
		s.MovingSpeed = &MovingSpeed{Code: code, Label: label(MovingSpeeds, code)}
	}, float64(code))
}

// SetMaxSlewingSpeed caps the slewing speed, see MaxSlewingSpeeds.
func (c *Controller) SetMaxSlewingSpeed(code int) error {
	validate := func() error { return inRange("max_slewing_speed", code, 7, 9) }
	return c.ack(OpSetMaxSlewingSpeed, CmdSetMaxSlewSpeed, validate, func(s *State) {
		s.MaxSlewingSpeed = &MovingSpeed{Code: code, Label: label(MaxSlewingSpeeds, code)}
	}, float64(code))
}

func flag(on bool) float64 {
	if on {
		return 1
	}
	return 0
}
