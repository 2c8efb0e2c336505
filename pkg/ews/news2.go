package ews

// NEWS2 implements the Royal College of Physicians National Early Warning
// Score 2 (2017).
func NEWS2(v Vitals) (*Result, error) {
	if err := requireParams(TypeNEWS2, v,
		ParamRespiratoryRate, ParamSpO2, ParamSystolicBP, ParamHeartRate, ParamConsciousness, ParamTemperature,
	); err != nil {
		return nil, err
	}
	if v.SpO2Scale != 0 && v.SpO2Scale != 1 && v.SpO2Scale != 2 {
		return nil, ErrInvalidValue
	}

	r := &Result{Type: TypeNEWS2}

	r.add(ParamRespiratoryRate, itoa(*v.RespiratoryRate), news2RespiratoryRate(*v.RespiratoryRate))

	if v.SpO2Scale == 2 {
		r.add(ParamSpO2, itoa(*v.SpO2), news2SpO2Scale2(*v.SpO2, v.OnOxygen))
	} else {
		r.add(ParamSpO2, itoa(*v.SpO2), news2SpO2Scale1(*v.SpO2))
	}

	if v.OnOxygen {
		r.add(ParamOxygen, "oxygen", 2)
	} else {
		r.add(ParamOxygen, "air", 0)
	}

	r.add(ParamSystolicBP, itoa(*v.SystolicBP), news2SystolicBP(*v.SystolicBP))
	r.add(ParamHeartRate, itoa(*v.HeartRate), news2Pulse(*v.HeartRate))

	cs := 0
	if v.Consciousness != Alert {
		cs = 3
	}
	r.add(ParamConsciousness, string(v.Consciousness), cs)

	r.add(ParamTemperature, ftoa(*v.Temperature), news2Temperature(*v.Temperature))

	r.Risk = news2Risk(r.Total, r.MaxSingle())
	r.Response = news2Response(r.Risk)
	return r, nil
}

func news2RespiratoryRate(rr int) int {
	switch {
	case rr <= 8:
		return 3
	case rr <= 11:
		return 1
	case rr <= 20:
		return 0
	case rr <= 24:
		return 2
	default:
		return 3
	}
}

func news2SpO2Scale1(s int) int {
	switch {
	case s <= 91:
		return 3
	case s <= 93:
		return 2
	case s <= 95:
		return 1
	default:
		return 0
	}
}

// Scale 2 is for patients with confirmed hypercapnic respiratory failure.
// Readings of 93 and above only score when the patient is on oxygen.
func news2SpO2Scale2(s int, onOxygen bool) int {
	switch {
	case s <= 83:
		return 3
	case s <= 85:
		return 2
	case s <= 87:
		return 1
	case s <= 92:
		return 0
	case !onOxygen:
		return 0
	case s <= 94:
		return 1
	case s <= 96:
		return 2
	default:
		return 3
	}
}

func news2SystolicBP(sbp int) int {
	switch {
	case sbp <= 90:
		return 3
	case sbp <= 100:
		return 2
	case sbp <= 110:
		return 1
	case sbp <= 219:
		return 0
	default:
		return 3
	}
}

func news2Pulse(hr int) int {
	switch {
	case hr <= 40:
		return 3
	case hr <= 50:
		return 1
	case hr <= 90:
		return 0
	case hr <= 110:
		return 1
	case hr <= 130:
		return 2
	default:
		return 3
	}
}

func news2Temperature(t float64) int {
	switch {
	case t <= 35.0:
		return 3
	case t <= 36.0:
		return 1
	case t <= 38.0:
		return 0
	case t <= 39.0:
		return 1
	default:
		return 2
	}
}

func news2Risk(total, maxSingle int) Risk {
	switch {
	case total >= 7:
		return RiskHigh
	case total >= 5:
		return RiskMedium
	case maxSingle >= 3:
		return RiskLowMedium
	case total >= 1:
		return RiskLow
	default:
		return RiskNone
	}
}

func news2Response(r Risk) string {
	switch r {
	case RiskHigh:
		return "Emergency assessment by a critical care outreach team; continuous monitoring of vital signs"
	case RiskMedium:
		return "Urgent review by a clinician competent in assessing acutely ill patients; minimum 1-hourly observations"
	case RiskLowMedium:
		return "Urgent ward-based response by a registered nurse; minimum 1-hourly observations"
	case RiskLow:
		return "Assessment by a registered nurse; minimum 4-6 hourly observations"
	default:
		return "Continue routine monitoring; minimum 12-hourly observations"
	}
}
