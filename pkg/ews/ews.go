// Package ews computes early-warning scores (NEWS2, MEWS2, PEWS2) from a set
// of vital signs. All calculations are pure lookups over threshold tables.
package ews

import (
	"errors"
	"fmt"
	"strings"
)

type ScoreType string

const (
	TypeNEWS2 ScoreType = "news2"
	TypeMEWS2 ScoreType = "mews2"
	TypePEWS2 ScoreType = "pews2"
)

func (t ScoreType) Valid() bool {
	switch t {
	case TypeNEWS2, TypeMEWS2, TypePEWS2:
		return true
	}
	return false
}

type Risk string

const (
	RiskNone      Risk = "none"
	RiskLow       Risk = "low"
	RiskLowMedium Risk = "low-medium"
	RiskMedium    Risk = "medium"
	RiskHigh      Risk = "high"
)

// Consciousness follows the ACVPU scale.
type Consciousness string

const (
	Alert        Consciousness = "A"
	NewConfusion Consciousness = "C"
	Voice        Consciousness = "V"
	Pain         Consciousness = "P"
	Unresponsive Consciousness = "U"
)

func ParseConsciousness(s string) (Consciousness, error) {
	switch c := Consciousness(strings.ToUpper(strings.TrimSpace(s))); c {
	case Alert, NewConfusion, Voice, Pain, Unresponsive:
		return c, nil
	case "":
		return "", nil
	}
	return "", fmt.Errorf("%w: consciousness %q", ErrInvalidValue, s)
}

// Parameter names used in breakdowns and missing lists.
const (
	ParamRespiratoryRate = "respiratory_rate"
	ParamSpO2            = "spo2"
	ParamOxygen          = "supplemental_oxygen"
	ParamSystolicBP      = "systolic_bp"
	ParamHeartRate       = "heart_rate"
	ParamConsciousness   = "consciousness"
	ParamTemperature     = "temperature"
	ParamCapillaryRefill = "capillary_refill"
	ParamAge             = "age"
)

var (
	ErrMissingParameters = errors.New("missing mandatory vital signs")
	ErrInvalidValue      = errors.New("invalid vital sign value")
	ErrUnknownScoreType  = errors.New("unknown score type")
)

// MissingParametersError lists the mandatory parameters that were absent.
type MissingParametersError struct {
	Type   ScoreType
	Params []string
}

func (e *MissingParametersError) Error() string {
	return fmt.Sprintf("%s: missing %s", e.Type, strings.Join(e.Params, ", "))
}

func (e *MissingParametersError) Is(target error) bool { return target == ErrMissingParameters }

// Vitals is one set of observations. Nil pointers mean "not recorded".
type Vitals struct {
	RespiratoryRate    *int
	SpO2               *int
	SpO2Scale          int // 1 or 2; zero means scale 1
	OnOxygen           bool
	SystolicBP         *int
	HeartRate          *int
	Consciousness      Consciousness
	Temperature        *float64
	CapillaryRefillSec *float64
	AgeMonths          *int
}

type ParameterScore struct {
	Parameter string `json:"parameter"`
	Value     string `json:"value"`
	Score     int    `json:"score"`
}

type Result struct {
	Type      ScoreType        `json:"type"`
	Total     int              `json:"total"`
	Risk      Risk             `json:"risk"`
	Response  string           `json:"response"`
	Breakdown []ParameterScore `json:"breakdown"`
	// Missing lists optional parameters that were not scored.
	Missing []string `json:"missing,omitempty"`
}

// MaxSingle returns the highest individual parameter score.
func (r *Result) MaxSingle() int {
	m := 0
	for _, p := range r.Breakdown {
		if p.Score > m {
			m = p.Score
		}
	}
	return m
}

// Calculate dispatches to the scorer for t.
func Calculate(t ScoreType, v Vitals) (*Result, error) {
	switch t {
	case TypeNEWS2:
		return NEWS2(v)
	case TypeMEWS2:
		return MEWS2(v)
	case TypePEWS2:
		return PEWS2(v)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownScoreType, t)
	}
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func (r *Result) add(param, value string, score int) {
	r.Breakdown = append(r.Breakdown, ParameterScore{Parameter: param, Value: value, Score: score})
	r.Total += score
}

func itoa(v int) string { return fmt.Sprintf("%d", v) }

func ftoa(v float64) string { return fmt.Sprintf("%.1f", v) }

func requireParams(t ScoreType, v Vitals, params ...string) error {
	var missing []string
	for _, p := range params {
		switch p {
		case ParamRespiratoryRate:
			if v.RespiratoryRate == nil {
				missing = append(missing, p)
			}
		case ParamSpO2:
			if v.SpO2 == nil {
				missing = append(missing, p)
			}
		case ParamSystolicBP:
			if v.SystolicBP == nil {
				missing = append(missing, p)
			}
		case ParamHeartRate:
			if v.HeartRate == nil {
				missing = append(missing, p)
			}
		case ParamConsciousness:
			if v.Consciousness == "" {
				missing = append(missing, p)
			}
		case ParamTemperature:
			if v.Temperature == nil {
				missing = append(missing, p)
			}
		case ParamAge:
			if v.AgeMonths == nil {
				missing = append(missing, p)
			}
		}
	}
	if len(missing) > 0 {
		return &MissingParametersError{Type: t, Params: missing}
	}
	return nil
}

// band scores a value against symmetric low/high cut-offs. Values inside
// [low, high] score 0; each further band outward adds one point up to 3.
type band struct {
	severeLow, modLow, low    float64
	high, modHigh, severeHigh float64
}

func (b band) score(v float64) int {
	switch {
	case v < b.severeLow:
		return 3
	case v < b.modLow:
		return 2
	case v < b.low:
		return 1
	case v <= b.high:
		return 0
	case v <= b.modHigh:
		return 1
	case v <= b.severeHigh:
		return 2
	default:
		return 3
	}
}
