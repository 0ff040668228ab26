// Package phone formats contact numbers for display.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultRegion is assumed for numbers written without a country code.
const DefaultRegion = "NL"

// NormalizeE164 formats a number as E.164. Input that does not parse as a
// valid number is returned trimmed.
func NormalizeE164(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return trimmed
	}

	number, err := phonenumbers.Parse(trimmed, DefaultRegion)
	if err != nil || !phonenumbers.IsValidNumber(number) {
		return trimmed
	}
	return phonenumbers.Format(number, phonenumbers.E164)
}

// NormalizeE164Ptr is NormalizeE164 for optional values.
func NormalizeE164Ptr(input *string) *string {
	if input == nil {
		return nil
	}
	out := NormalizeE164(*input)
	return &out
}
