package ioptrond

import (
	"testing"

	"github.com/mdouchement/ioptrond/ioptron"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAxis(t *testing.T) {
	for _, s := range []string{"east-west", "RA", "ra"} {
		axis, err := parseAxis(s)
		require.NoError(t, err)
		assert.Equal(t, ioptron.AxisEastWest, axis)
	}
	for _, s := range []string{"north-south", "DEC"} {
		axis, err := parseAxis(s)
		require.NoError(t, err)
		assert.Equal(t, ioptron.AxisNorthSouth, axis)
	}

	_, err := parseAxis("up")
	assert.ErrorIs(t, err, ioptron.ErrValidation)
}

func TestParseMeridianTreatment(t *testing.T) {
	treatment, err := parseMeridianTreatment("Flip")
	require.NoError(t, err)
	assert.Equal(t, ioptron.MeridianFlip, treatment)

	treatment, err = parseMeridianTreatment("stop")
	require.NoError(t, err)
	assert.Equal(t, ioptron.MeridianStop, treatment)

	_, err = parseMeridianTreatment("continue")
	assert.ErrorIs(t, err, ioptron.ErrValidation)
}

func TestTrackingRateCode(t *testing.T) {
	capa := testConfig().Capability()

	code, err := trackingRateCode(capa, trackingRateArgs{Label: "King"})
	require.NoError(t, err)
	assert.Equal(t, 3, code)

	two := 2
	code, err = trackingRateCode(capa, trackingRateArgs{Code: &two, Label: ""})
	require.NoError(t, err)
	assert.Equal(t, 2, code)

	_, err = trackingRateCode(capa, trackingRateArgs{Label: "galactic"})
	assert.ErrorIs(t, err, ioptron.ErrValidation)

	_, err = trackingRateCode(capa, trackingRateArgs{})
	assert.ErrorIs(t, err, ioptron.ErrValidation)
}

func TestCommands(t *testing.T) {
	names := Commands()
	assert.IsNonDecreasing(t, names)
	assert.Contains(t, names, "refresh")
	assert.Contains(t, names, "refresh_coordinates")

	// Every gated operation is reachable through the API.
	for _, op := range []ioptron.Operation{
		ioptron.OpPECIntegrity,
		ioptron.OpPECRecording,
		ioptron.OpRAGuidingFilter,
		ioptron.OpSetRAGuidingFilter,
		ioptron.OpSetMeridian,
		ioptron.OpGoMechanicalZero,
		ioptron.OpSetTime,
	} {
		assert.Contains(t, names, string(op))
	}
}

func TestWithArgsRejectsInvalidJSON(t *testing.T) {
	run := withArgs(func(*ioptron.Controller, enabledArgs) error {
		t.Fatal("must not be called")
		return nil
	})

	_, err := run(nil, []byte(`{"enabled":"yes"}`))
	var verr *ioptron.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "args", verr.Field)
}

func TestAltitudeLimitRejectsFractionalDegrees(t *testing.T) {
	_, err := commands[string(ioptron.OpSetAltitudeLimit)](nil, []byte(`{"degrees":10.7}`))
	var verr *ioptron.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "args", verr.Field)
}
