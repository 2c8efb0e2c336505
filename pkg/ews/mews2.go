package ews

// MEWS2 implements the Modified Early Warning Score over systolic pressure,
// heart rate, respiratory rate, temperature and AVPU.
func MEWS2(v Vitals) (*Result, error) {
	if err := requireParams(TypeMEWS2, v,
		ParamSystolicBP, ParamHeartRate, ParamRespiratoryRate, ParamTemperature, ParamConsciousness,
	); err != nil {
		return nil, err
	}

	r := &Result{Type: TypeMEWS2}
	r.add(ParamSystolicBP, itoa(*v.SystolicBP), mewsSystolicBP(*v.SystolicBP))
	r.add(ParamHeartRate, itoa(*v.HeartRate), mewsHeartRate(*v.HeartRate))
	r.add(ParamRespiratoryRate, itoa(*v.RespiratoryRate), mewsRespiratoryRate(*v.RespiratoryRate))
	r.add(ParamTemperature, ftoa(*v.Temperature), mewsTemperature(*v.Temperature))
	r.add(ParamConsciousness, string(v.Consciousness), mewsAVPU(v.Consciousness))

	if v.SpO2 == nil {
		r.Missing = append(r.Missing, ParamSpO2)
	}

	switch {
	case r.Total >= 5:
		r.Risk = RiskHigh
		r.Response = "Immediate medical review; consider escalation to critical care"
	case r.Total >= 3:
		r.Risk = RiskMedium
		r.Response = "Urgent medical review within 30 minutes; increase observation frequency"
	default:
		r.Risk = RiskLow
		r.Response = "Continue routine observations"
	}
	return r, nil
}

func mewsSystolicBP(sbp int) int {
	switch {
	case sbp <= 70:
		return 3
	case sbp <= 80:
		return 2
	case sbp <= 100:
		return 1
	case sbp <= 199:
		return 0
	default:
		return 2
	}
}

func mewsHeartRate(hr int) int {
	switch {
	case hr <= 40:
		return 2
	case hr <= 50:
		return 1
	case hr <= 100:
		return 0
	case hr <= 110:
		return 1
	case hr <= 129:
		return 2
	default:
		return 3
	}
}

func mewsRespiratoryRate(rr int) int {
	switch {
	case rr < 9:
		return 2
	case rr <= 14:
		return 0
	case rr <= 20:
		return 1
	case rr <= 29:
		return 2
	default:
		return 3
	}
}

func mewsTemperature(t float64) int {
	switch {
	case t < 35.0:
		return 2
	case t < 38.5:
		return 0
	default:
		return 2
	}
}

func mewsAVPU(c Consciousness) int {
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
