package ews

// AgeBand groups children for the paediatric thresholds.
type AgeBand string

const (
	BandInfant     AgeBand = "<1"
	BandToddler    AgeBand = "1-4"
	BandChild      AgeBand = "5-12"
	BandAdolescent AgeBand = "13+"
)

func AgeBandFor(months int) AgeBand {
	switch {
	case months < 12:
		return BandInfant
	case months < 60:
		return BandToddler
	case months < 156:
		return BandChild
	default:
		return BandAdolescent
	}
}

var pewsRespiratory = map[AgeBand]band{
	BandInfant:     {severeLow: 15, modLow: 20, low: 25, high: 50, modHigh: 60, severeHigh: 70},
	BandToddler:    {severeLow: 10, modLow: 15, low: 20, high: 40, modHigh: 50, severeHigh: 60},
	BandChild:      {severeLow: 10, modLow: 12, low: 15, high: 30, modHigh: 35, severeHigh: 40},
	BandAdolescent: {severeLow: 8, modLow: 10, low: 12, high: 20, modHigh: 25, severeHigh: 30},
}

var pewsHeart = map[AgeBand]band{
	BandInfant:     {severeLow: 90, modLow: 100, low: 110, high: 160, modHigh: 170, severeHigh: 180},
	BandToddler:    {severeLow: 75, modLow: 85, low: 95, high: 140, modHigh: 150, severeHigh: 170},
	BandChild:      {severeLow: 60, modLow: 70, low: 80, high: 120, modHigh: 130, severeHigh: 150},
	BandAdolescent: {severeLow: 40, modLow: 50, low: 60, high: 100, modHigh: 110, severeHigh: 130},
}

// PEWS2 implements a paediatric early warning score with age-banded
// respiratory and heart-rate thresholds.
func PEWS2(v Vitals) (*Result, error) {
	if err := requireParams(TypePEWS2, v,
		ParamAge, ParamRespiratoryRate, ParamHeartRate, ParamSpO2, ParamConsciousness, ParamTemperature,
	); err != nil {
		return nil, err
	}
	if *v.AgeMonths < 0 {
		return nil, ErrInvalidValue
	}

	ageBand := AgeBandFor(*v.AgeMonths)
	r := &Result{Type: TypePEWS2}

	r.add(ParamRespiratoryRate, itoa(*v.RespiratoryRate), pewsRespiratory[ageBand].score(float64(*v.RespiratoryRate)))
	r.add(ParamHeartRate, itoa(*v.HeartRate), pewsHeart[ageBand].score(float64(*v.HeartRate)))
	r.add(ParamSpO2, itoa(*v.SpO2), pewsSpO2(*v.SpO2))

	if v.OnOxygen {
		r.add(ParamOxygen, "oxygen", 2)
	} else {
		r.add(ParamOxygen, "air", 0)
	}

	r.add(ParamConsciousness, string(v.Consciousness), pewsConsciousness(v.Consciousness))
	r.add(ParamTemperature, ftoa(*v.Temperature), pewsTemperature(*v.Temperature))

	if v.CapillaryRefillSec != nil {
		r.add(ParamCapillaryRefill, ftoa(*v.CapillaryRefillSec), pewsCapillaryRefill(*v.CapillaryRefillSec))
	} else {
		r.Missing = append(r.Missing, ParamCapillaryRefill)
	}

	switch {
	case r.Total >= 5:
		r.Risk = RiskHigh
		r.Response = "Immediate review by the paediatric registrar; consider PICU outreach"
	case r.Total >= 3 || r.MaxSingle() >= 3:
		r.Risk = RiskMedium
		r.Response = "Urgent review by the nurse in charge and paediatric doctor within 30 minutes"
	default:
		r.Risk = RiskLow
		r.Response = "Continue observations at the prescribed frequency"
	}
	return r, nil
}

func pewsSpO2(s int) int {
	switch {
	case s >= 95:
		return 0
	case s >= 92:
		return 1
	case s >= 90:
		return 2
	default:
		return 3
	}
}

func pewsConsciousness(c Consciousness) int {
	switch c {
	case Alert:
		return 0
	case Voice, NewConfusion:
		return 1
	case Pain:
		return 2
	default:
		return 3
	}
}

func pewsTemperature(t float64) int {
	switch {
	case t <= 35.0:
		return 2
	case t < 36.0:
		return 1
	case t < 38.0:
		return 0
	case t < 39.0:
		return 1
	default:
		return 2
	}
}

func pewsCapillaryRefill(sec float64) int {
	switch {
	case sec <= 2:
		return 0
	case sec <= 3:
		return 1
	case sec <= 4:
		return 2
	default:
		return 3
	}
}
