// pkg/validate/validate.go

package validate

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// TimezoneState is the outcome of inspecting the offset suffix of a start date.
type TimezoneState int

const (
	// TimezoneInvalid means a suffix is present but is not a usable UTC offset.
	TimezoneInvalid TimezoneState = iota
	// TimezoneAbsent means the string stops after the minutes.
	TimezoneAbsent
	// TimezoneValid means the suffix is a [+-]HH:MM offset that parses with the date.
	TimezoneValid
)

func (s TimezoneState) String() string {
	switch s {
	case TimezoneValid:
		return "valid"
	case TimezoneAbsent:
		return "absent"
	default:
		return "invalid"
	}
}

const (
	// DateTimeLayout is the layout of the date/time prefix shared by every start date.
	DateTimeLayout = "2006-01-02T15:04"
	// DateTimeOffsetLayout is DateTimeLayout followed by a UTC offset.
	DateTimeOffsetLayout = "2006-01-02T15:04-07:00"

	dateTimeLen = len(DateTimeLayout)
)

var (
	dateTimeShape = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}$`)
	offsetShape   = regexp.MustCompile(`^[+-](\d{2}):(\d{2})$`)
)

// KeyAlgorithms lists the SSH key algorithms a remote capture can authenticate with.
var KeyAlgorithms = []string{"rsa", "ed25519", "ecdsa", "dsa"}

// ValidateIPv4 reports whether s is a dotted quad with every octet in 0-255.
func ValidateIPv4(s string) bool {
	groups := strings.Split(s, ".")
	if len(groups) != 4 {
		return false
	}
	for _, g := range groups {
		if !isDigits(g) || len(g) > 3 {
			return false
		}
		n, err := strconv.Atoi(g)
		if err != nil || n > 255 {
			return false
		}
	}
	return true
}

// ValidateDateTime reports whether the first 16 characters of s are a real
// YYYY-MM-DDThh:mm date. Anything after the minutes is left to ValidateTimezone.
func ValidateDateTime(s string) bool {
	if len(s) < dateTimeLen {
		return false
	}
	prefix := s[:dateTimeLen]
	if !dateTimeShape.MatchString(prefix) {
		return false
	}
	_, err := time.Parse(DateTimeLayout, prefix)
	return err == nil
}

// ValidateTimezone inspects whatever follows the date/time prefix of s.
func ValidateTimezone(s string) TimezoneState {
	if !ValidateDateTime(s) {
		return TimezoneInvalid
	}
	suffix := s[dateTimeLen:]
	if suffix == "" {
		return TimezoneAbsent
	}
	m := offsetShape.FindStringSubmatch(suffix)
	if m == nil {
		return TimezoneInvalid
	}
	hh, _ := strconv.Atoi(m[1])
	mm, _ := strconv.Atoi(m[2])
	if hh > 23 || mm > 59 {
		return TimezoneInvalid
	}
	if _, err := time.Parse(DateTimeOffsetLayout, s); err != nil {
		return TimezoneInvalid
	}
	return TimezoneValid
}

// ValidateOffset reports whether s alone is a [+-]HH:MM offset.
func ValidateOffset(s string) bool {
	return ValidateTimezone("2000-01-01T00:00"+s) == TimezoneValid
}

// ValidatePositiveInteger reports whether s is an all-digit integer of at least 1.
// Zero is rejected: a tick or refresh period of zero seconds is meaningless.
func ValidatePositiveInteger(s string) bool {
	if !isDigits(s) {
		return false
	}
	n, err := strconv.Atoi(s)
	return err == nil && n >= 1
}

// ValidateKeyAlgorithm reports whether s names a supported SSH key algorithm,
// ignoring case.
func ValidateKeyAlgorithm(s string) bool {
	for _, alg := range KeyAlgorithms {
		if strings.EqualFold(s, alg) {
			return true
		}
	}
	return false
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
