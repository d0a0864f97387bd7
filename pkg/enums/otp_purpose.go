package enums

import "fmt"

// OTPPurpose names the checkpoint an order OTP gates.
type OTPPurpose string

const (
	OTPPurposeArrival    OTPPurpose = "arrival"
	OTPPurposeCompletion OTPPurpose = "completion"
)

var validOTPPurposes = []OTPPurpose{
	OTPPurposeArrival,
	OTPPurposeCompletion,
}

// String implements fmt.Stringer.
func (p OTPPurpose) String() string {
	return string(p)
}

// IsValid reports whether the value is a known OTPPurpose.
func (p OTPPurpose) IsValid() bool {
	for _, candidate := range validOTPPurposes {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParseOTPPurpose converts raw input into an OTPPurpose. Empty input defaults
// to arrival.
func ParseOTPPurpose(value string) (OTPPurpose, error) {
	if value == "" {
		return OTPPurposeArrival, nil
	}
	for _, candidate := range validOTPPurposes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid otp purpose %q", value)
}
