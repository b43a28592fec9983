package phone

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/nyaruka/phonenumbers"
)

// Policy selects how raw phone input is converted to E.164.
type Policy string

const (
	// PolicyStrict parses against the full numbering plan and requires the
	// number to be both possible and valid for its region.
	PolicyStrict Policy = "strict"
	// PolicyLenient applies digit-count rules for a single known region and
	// accepts anything already carrying a leading +.
	PolicyLenient Policy = "lenient"
)

// NormalizationError reports raw input that could not be resolved to E.164.
type NormalizationError struct {
	Raw    string
	Reason string
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("phone: %s: %q", e.Reason, e.Raw)
}

// Normalizer converts raw phone input to canonical E.164 form.
// A deployment runs exactly one policy; batches never mix them.
type Normalizer struct {
	policy      Policy
	region      string
	callingCode string
}

// NewNormalizer builds a normalizer for the given policy and default region.
func NewNormalizer(policy Policy, region string) (*Normalizer, error) {
	switch policy {
	case PolicyStrict, PolicyLenient:
	default:
		return nil, fmt.Errorf("phone: unknown normalization policy %q", policy)
	}
	region = strings.ToUpper(strings.TrimSpace(region))
	if region == "" {
		return nil, fmt.Errorf("phone: default region required")
	}
	code := phonenumbers.GetCountryCodeForRegion(region)
	if code == 0 {
		return nil, fmt.Errorf("phone: unknown region %q", region)
	}
	return &Normalizer{
		policy:      policy,
		region:      region,
		callingCode: strconv.Itoa(code),
	}, nil
}

// Policy reports the active normalization policy.
func (n *Normalizer) Policy() Policy { return n.policy }

// Region reports the default region assumed for inputs without a leading +.
func (n *Normalizer) Region() string { return n.region }

// Normalize converts raw textual input to E.164 or fails with *NormalizationError.
func (n *Normalizer) Normalize(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", &NormalizationError{Raw: raw, Reason: "empty phone number"}
	}
	if n.policy == PolicyLenient {
		return n.normalizeLenient(trimmed)
	}
	return n.normalizeStrict(trimmed)
}

func (n *Normalizer) normalizeStrict(raw string) (string, error) {
	parsed, err := phonenumbers.Parse(raw, n.region)
	if err != nil {
		return "", &NormalizationError{Raw: raw, Reason: err.Error()}
	}
	if !phonenumbers.IsPossibleNumber(parsed) {
		return "", &NormalizationError{Raw: raw, Reason: "number is not possible"}
	}
	if !phonenumbers.IsValidNumber(parsed) {
		return "", &NormalizationError{Raw: raw, Reason: "number is not valid"}
	}
	return phonenumbers.Format(parsed, phonenumbers.E164), nil
}

func (n *Normalizer) normalizeLenient(raw string) (string, error) {
	if strings.HasPrefix(raw, "+") {
		return raw, nil
	}
	digits := digitsOnly(raw)
	switch {
	case len(digits) == 10:
		return "+" + n.callingCode + digits, nil
	case len(digits) == 10+len(n.callingCode) && strings.HasPrefix(digits, n.callingCode):
		return "+" + digits, nil
	default:
		return "", &NormalizationError{
			Raw:    raw,
			Reason: fmt.Sprintf("does not look like a valid %s number", n.region),
		}
	}
}

func digitsOnly(value string) string {
	var b strings.Builder
	for _, r := range value {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
