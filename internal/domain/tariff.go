package domain

import (
	"fmt"
	"strings"

	"github.com/asaskevich/govalidator/v11"
	"github.com/shopspring/decimal"
)

const (
	MinCodeLength = 4
	MaxCodeLength = 10

	// SurchargePrefixLength is the number of leading digits that identify a code's category
	SurchargePrefixLength = 4
)

// TariffCode is a validated HTS classification of 4 to 10 decimal digits
type TariffCode string

// ParseTariffCode validates raw and returns it as a TariffCode
func ParseTariffCode(raw string) (TariffCode, error) {
	if raw == "" || !govalidator.IsNumeric(raw) {
		return "", fmt.Errorf("%w: code must be numeric (%d-%d digits)", ErrInvalidInput, MinCodeLength, MaxCodeLength)
	}
	if len(raw) < MinCodeLength || len(raw) > MaxCodeLength {
		return "", fmt.Errorf("%w: code must have %d-%d digits", ErrInvalidInput, MinCodeLength, MaxCodeLength)
	}
	return TariffCode(raw), nil
}

// QueryCode is the code as sent to the HTS export API, truncated to 10 digits
func (c TariffCode) QueryCode() string {
	s := string(c)
	if len(s) > MaxCodeLength {
		return s[:MaxCodeLength]
	}
	return s
}

// Category returns the leading heading digits used for surcharge notice searches
func (c TariffCode) Category() string {
	s := string(c)
	if len(s) > SurchargePrefixLength {
		return s[:SurchargePrefixLength]
	}
	return s
}

func (c TariffCode) String() string {
	return string(c)
}

// ParsePercentage converts an HTS duty string such as "4.5%" into a number.
// An empty string and "Free" both yield zero.
func ParsePercentage(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimSuffix(s, "%")
	s = strings.TrimSpace(s)

	if s == "" || strings.EqualFold(s, "free") {
		return decimal.Zero, nil
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: unparseable rate %q", ErrUpstreamMalformed, raw)
	}
	return d, nil
}
