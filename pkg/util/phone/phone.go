// Package phone normalises user-entered phone numbers to E.164.
package phone

import (
	"errors"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultRegion applies to numbers entered without a country code.
const DefaultRegion = "GB"

var ErrInvalidNumber = errors.New("invalid phone number")

// Normalize parses raw in region (DefaultRegion when empty) and returns the
// E.164 form. Empty input yields an empty result and no error.
func Normalize(raw, region string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	if region == "" {
		region = DefaultRegion
	}

	num, err := phonenumbers.Parse(raw, strings.ToUpper(region))
	if err != nil {
		return "", ErrInvalidNumber
	}
	if !phonenumbers.IsValidNumber(num) {
		return "", ErrInvalidNumber
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}

// NormalizePtr is Normalize for optional fields.
func NormalizePtr(raw *string, region string) (*string, error) {
	if raw == nil {
		return nil, nil
	}
	out, err := Normalize(*raw, region)
	if err != nil {
		return nil, err
	}
	if out == "" {
		return nil, nil
	}
	return &out, nil
}
