package ews

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ip(v int) *int         { return &v }
func fp(v float64) *float64 { return &v }

func normalAdult() Vitals {
	return Vitals{
		RespiratoryRate: ip(16),
		SpO2:            ip(98),
		SystolicBP:      ip(120),
		HeartRate:       ip(70),
		Consciousness:   Alert,
		Temperature:     fp(37.0),
	}
}

func TestNEWS2Aggregate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(v *Vitals)
		wantTotal int
		wantRisk  Risk
	}{
		{"all normal", func(v *Vitals) {}, 0, RiskNone},
		{"raised respiratory rate", func(v *Vitals) { v.RespiratoryRate = ip(22) }, 2, RiskLow},
		{"single red score", func(v *Vitals) { v.Consciousness = Voice }, 3, RiskLowMedium},
		{"new confusion scores three", func(v *Vitals) { v.Consciousness = NewConfusion }, 3, RiskLowMedium},
		{"medium band", func(v *Vitals) {
			v.RespiratoryRate = ip(22)
			v.SpO2 = ip(94)
			v.HeartRate = ip(105)
			v.Temperature = fp(38.5)
		}, 5, RiskMedium},
		{"high band", func(v *Vitals) {
			v.RespiratoryRate = ip(26)
			v.SpO2 = ip(90)
			v.OnOxygen = true
		}, 8, RiskHigh},
		{"scale 2 on oxygen", func(v *Vitals) {
			v.SpO2Scale = 2
			v.SpO2 = ip(97)
			v.OnOxygen = true
		}, 5, RiskMedium},
		{"scale 2 on air", func(v *Vitals) {
			v.SpO2Scale = 2
			v.SpO2 = ip(97)
		}, 0, RiskNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := normalAdult()
			tt.mutate(&v)

			res, err := NEWS2(v)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTotal, res.Total)
			assert.Equal(t, tt.wantRisk, res.Risk)
			assert.NotEmpty(t, res.Response)
			assert.Len(t, res.Breakdown, 7)
		})
	}
}

func TestNEWS2Thresholds(t *testing.T) {
	rr := map[int]int{8: 3, 9: 1, 11: 1, 12: 0, 20: 0, 21: 2, 24: 2, 25: 3}
	for in, want := range rr {
		assert.Equal(t, want, news2RespiratoryRate(in), "rr=%d", in)
	}

	sbp := map[int]int{90: 3, 91: 2, 100: 2, 101: 1, 110: 1, 111: 0, 219: 0, 220: 3}
	for in, want := range sbp {
		assert.Equal(t, want, news2SystolicBP(in), "sbp=%d", in)
	}

	pulse := map[int]int{40: 3, 41: 1, 50: 1, 51: 0, 90: 0, 91: 1, 110: 1, 111: 2, 130: 2, 131: 3}
	for in, want := range pulse {
		assert.Equal(t, want, news2Pulse(in), "hr=%d", in)
	}

	temp := map[float64]int{35.0: 3, 35.1: 1, 36.0: 1, 36.1: 0, 38.0: 0, 38.1: 1, 39.0: 1, 39.1: 2}
	for in, want := range temp {
		assert.Equal(t, want, news2Temperature(in), "temp=%.1f", in)
	}

	spo2 := map[int]int{91: 3, 92: 2, 93: 2, 94: 1, 95: 1, 96: 0}
	for in, want := range spo2 {
		assert.Equal(t, want, news2SpO2Scale1(in), "spo2=%d", in)
	}
}

func TestNEWS2Scale2(t *testing.T) {
	tests := []struct {
		spo2     int
		onOxygen bool
		want     int
	}{
		{83, false, 3},
		{84, false, 2},
		{86, false, 1},
		{88, false, 0},
		{92, true, 0},
		{93, false, 0},
		{99, false, 0},
		{93, true, 1},
		{95, true, 2},
		{97, true, 3},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, news2SpO2Scale2(tt.spo2, tt.onOxygen), "spo2=%d oxygen=%v", tt.spo2, tt.onOxygen)
	}
}

func TestNEWS2MissingParameters(t *testing.T) {
	v := normalAdult()
	v.Temperature = nil
	v.HeartRate = nil

	_, err := NEWS2(v)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingParameters))

	var mpe *MissingParametersError
	require.True(t, errors.As(err, &mpe))
	assert.ElementsMatch(t, []string{ParamHeartRate, ParamTemperature}, mpe.Params)
}

func TestNEWS2RejectsUnknownScale(t *testing.T) {
	v := normalAdult()
	v.SpO2Scale = 3
	_, err := NEWS2(v)
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestMEWS2(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(v *Vitals)
		wantTotal int
		wantRisk  Risk
	}{
		{"normal", func(v *Vitals) {}, 0, RiskLow},
		{"medium", func(v *Vitals) {
			v.HeartRate = ip(105)
			v.RespiratoryRate = ip(16)
			v.Consciousness = Voice
		}, 3, RiskMedium},
		{"high", func(v *Vitals) {
			v.SystolicBP = ip(75)
			v.HeartRate = ip(115)
			v.RespiratoryRate = ip(22)
		}, 6, RiskHigh},
		{"hypothermia and unresponsive", func(v *Vitals) {
			v.Temperature = fp(34.5)
			v.Consciousness = Unresponsive
			v.RespiratoryRate = ip(12)
		}, 5, RiskHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := normalAdult()
			v.RespiratoryRate = ip(12)
			v.SpO2 = nil
			tt.mutate(&v)

			res, err := MEWS2(v)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTotal, res.Total)
			assert.Equal(t, tt.wantRisk, res.Risk)
			assert.Contains(t, res.Missing, ParamSpO2)
		})
	}
}

func TestPEWS2AgeBands(t *testing.T) {
	base := func(months int) Vitals {
		return Vitals{
			AgeMonths:          ip(months),
			RespiratoryRate:    ip(40),
			HeartRate:          ip(130),
			SpO2:               ip(97),
			Consciousness:      Alert,
			Temperature:        fp(37.0),
			CapillaryRefillSec: fp(2),
		}
	}

	t.Run("infant vitals are normal for an infant", func(t *testing.T) {
		res, err := PEWS2(base(6))
		require.NoError(t, err)
		assert.Equal(t, 0, res.Total)
		assert.Equal(t, RiskLow, res.Risk)
		assert.Empty(t, res.Missing)
	})

	t.Run("same vitals escalate for an adolescent", func(t *testing.T) {
		res, err := PEWS2(base(14 * 12))
		require.NoError(t, err)
		assert.Equal(t, 5, res.Total)
		assert.Equal(t, RiskHigh, res.Risk)
	})

	t.Run("single severe parameter is at least medium", func(t *testing.T) {
		v := base(8 * 12)
		v.RespiratoryRate = ip(20)
		v.HeartRate = ip(100)
		v.SpO2 = ip(88)
		v.CapillaryRefillSec = nil

		res, err := PEWS2(v)
		require.NoError(t, err)
		assert.Equal(t, 3, res.Total)
		assert.Equal(t, RiskMedium, res.Risk)
		assert.Contains(t, res.Missing, ParamCapillaryRefill)
	})

	t.Run("age is mandatory", func(t *testing.T) {
		v := base(0)
		v.AgeMonths = nil
		_, err := PEWS2(v)
		assert.ErrorIs(t, err, ErrMissingParameters)
	})
}

func TestAgeBandFor(t *testing.T) {
	cases := map[int]AgeBand{
		0: BandInfant, 11: BandInfant,
		12: BandToddler, 59: BandToddler,
		60: BandChild, 155: BandChild,
		156: BandAdolescent, 240: BandAdolescent,
	}
	for months, want := range cases {
		assert.Equal(t, want, AgeBandFor(months), "months=%d", months)
	}
}

func TestCalculate(t *testing.T) {
	res, err := Calculate(TypeNEWS2, normalAdult())
	require.NoError(t, err)
	assert.Equal(t, TypeNEWS2, res.Type)

	_, err = Calculate("qsofa", normalAdult())
	assert.ErrorIs(t, err, ErrUnknownScoreType)
}

func TestParseConsciousness(t *testing.T) {
	c, err := ParseConsciousness(" v ")
	require.NoError(t, err)
	assert.Equal(t, Voice, c)

	c, err = ParseConsciousness("")
	require.NoError(t, err)
	assert.Equal(t, Consciousness(""), c)

	_, err = ParseConsciousness("x")
	assert.ErrorIs(t, err, ErrInvalidValue)
}
