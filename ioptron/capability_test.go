package ioptron

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var trackingRates = map[int]string{
	0: "sidereal",
	1: "lunar",
	2: "solar",
	3: "king",
	4: "custom",
}

func TestCapabilityIsLegal(t *testing.T) {
	var (
		eq        = NewCapability(CapabilityConfig{Topology: TopologyEquatorial})
		eqPEC     = NewCapability(CapabilityConfig{Topology: TopologyEquatorial, HasPEC: true})
		eqEncoder = NewCapability(CapabilityConfig{Topology: TopologyEquatorial, HasEncoders: true, HasPEC: true})
		altaz     = NewCapability(CapabilityConfig{Topology: TopologyAltAz, HasPEC: true, HasMechanicalZero: true})
	)

	tests := []struct {
		op    Operation
		legal [4]bool // eq, eqPEC, eqEncoder, altaz
	}{
		{op: OpPECIntegrity, legal: [4]bool{true, true, false, false}},
		{op: OpPECRecordingStatus, legal: [4]bool{true, true, false, false}},
		{op: OpPECPlayback, legal: [4]bool{true, true, false, false}},
		{op: OpPECRecording, legal: [4]bool{false, true, false, false}},
		{op: OpRAGuidingFilter, legal: [4]bool{false, false, true, false}},
		{op: OpSetRAGuidingFilter, legal: [4]bool{false, false, true, false}},
		{op: OpMeridianTreatment, legal: [4]bool{true, true, true, false}},
		{op: OpSetMeridian, legal: [4]bool{true, true, true, false}},
		{op: OpSetGuidingRates, legal: [4]bool{true, true, true, false}},
		{op: OpGoMechanicalZero, legal: [4]bool{false, false, false, true}},
		{op: OpRefreshStatus, legal: [4]bool{true, true, true, true}},
		{op: OpGuidingRates, legal: [4]bool{true, true, true, true}},
		{op: OpSlewHorizontal, legal: [4]bool{true, true, true, true}},
	}

	for _, tt := range tests {
		for i, capa := range []Capability{eq, eqPEC, eqEncoder, altaz} {
			assert.Equal(t, tt.legal[i], capa.IsLegal(tt.op), "%s on capability #%d", tt.op, i)
		}
	}
}

func TestCapabilityTrackingRates(t *testing.T) {
	rates := map[int]string{0: "sidereal", 4: "custom", 1: "lunar"}
	capa := NewCapability(CapabilityConfig{TrackingRates: rates})

	rates[9] = "mutated"
	assert.Equal(t, []int{0, 1, 4}, capa.TrackingRateCodes())

	returned := capa.TrackingRates()
	returned[7] = "mutated"
	assert.Len(t, capa.TrackingRates(), 3)

	assert.Equal(t, "lunar", capa.TrackingRateLabel(1))
	assert.Empty(t, capa.TrackingRateLabel(2))

	code, ok := capa.TrackingRateCode("Custom")
	assert.True(t, ok)
	assert.Equal(t, 4, code)
	_, ok = capa.TrackingRateCode("king")
	assert.False(t, ok)

	assert.NoError(t, capa.validateTrackingRate(4))
	assert.ErrorIs(t, capa.validateTrackingRate(2), ErrValidation)
}

func TestParseTopology(t *testing.T) {
	topo, err := ParseTopology("EQ")
	require.NoError(t, err)
	assert.Equal(t, TopologyEquatorial, topo)

	topo, err = ParseTopology("altaz")
	require.NoError(t, err)
	assert.Equal(t, TopologyAltAz, topo)

	_, err = ParseTopology("dobsonian")
	assert.Error(t, err)
}
