// pkg/runconfig/runconfig.go

package runconfig

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/CodeMonkeyCybersecurity/shovel/pkg/validate"
	cerr "github.com/cockroachdb/errors"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// KeyAlgorithm is the SSH key type mounted into the remote-capture container.
type KeyAlgorithm string

const (
	KeyRSA     KeyAlgorithm = "rsa"
	KeyEd25519 KeyAlgorithm = "ed25519"
	KeyECDSA   KeyAlgorithm = "ecdsa"
	KeyDSA     KeyAlgorithm = "dsa"
)

// DefaultKeyAlgorithm is offered when the operator leaves the prompt blank.
const DefaultKeyAlgorithm = KeyEd25519

var lower = cases.Lower(language.Und)

// ParseKeyAlgorithm normalises s and checks it against the supported set.
func ParseKeyAlgorithm(s string) (KeyAlgorithm, error) {
	norm := lower.String(strings.TrimSpace(s))
	if !validate.ValidateKeyAlgorithm(norm) {
		return "", fmt.Errorf("unsupported key algorithm %q (expected one of %s)",
			s, strings.Join(validate.KeyAlgorithms, ", "))
	}
	return KeyAlgorithm(norm), nil
}

// KeyFileName is the conventional private key file name, e.g. id_ed25519.
func (k KeyAlgorithm) KeyFileName() string {
	return "id_" + string(k)
}

// RunConfiguration holds the validated parameters of a mode-C deployment.
// Values are only produced by Builder.Build, so a RunConfiguration in hand has
// passed every validator.
type RunConfiguration struct {
	StartDate    string       `validate:"required,startdate"`
	TickLength   int          `validate:"min=1"`
	TargetIP     string       `validate:"required,ipv4quad"`
	RefreshRate  int          `validate:"min=1"`
	KeyAlgorithm KeyAlgorithm `validate:"required,keyalg"`
}

// Summary lists the values for an operator confirmation.
func (rc RunConfiguration) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "  Target IP:     %s\n", rc.TargetIP)
	fmt.Fprintf(&b, "  Start date:    %s\n", rc.StartDate)
	fmt.Fprintf(&b, "  Tick length:   %ds\n", rc.TickLength)
	fmt.Fprintf(&b, "  Refresh rate:  %ds\n", rc.RefreshRate)
	fmt.Fprintf(&b, "  Key algorithm: %s", rc.KeyAlgorithm)
	return b.String()
}

// Builder accumulates raw string values, validating each as it is set.
// Build is the only way to obtain a RunConfiguration.
type Builder struct {
	targetIP    string
	date        string
	offset      string
	tickLength  string
	refreshRate string
	keyAlg      string
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// SetTargetIP records the remote capture host.
func (b *Builder) SetTargetIP(s string) error {
	if !validate.ValidateIPv4(s) {
		return fmt.Errorf("invalid IPv4 address %q", s)
	}
	b.targetIP = s
	return nil
}

// SetStartDate records the date/time prefix and, if one is present and valid,
// the UTC offset. The returned state tells the caller whether an offset still
// has to be supplied through SetTimezone.
func (b *Builder) SetStartDate(s string) (validate.TimezoneState, error) {
	if !validate.ValidateDateTime(s) {
		return validate.TimezoneInvalid, fmt.Errorf("invalid start date %q (expected YYYY-MM-DDThh:mm)", s)
	}
	b.date = s[:len(validate.DateTimeLayout)]
	b.offset = ""
	state := validate.ValidateTimezone(s)
	if state == validate.TimezoneValid {
		b.offset = s[len(validate.DateTimeLayout):]
	}
	return state, nil
}

// SetTimezone records a [+-]HH:MM offset for the start date.
func (b *Builder) SetTimezone(offset string) error {
	if !validate.ValidateOffset(offset) {
		return fmt.Errorf("invalid timezone offset %q (expected +HH:MM or -HH:MM)", offset)
	}
	b.offset = offset
	return nil
}

// SetTickLength records the tick length in seconds.
func (b *Builder) SetTickLength(s string) error {
	if !validate.ValidatePositiveInteger(s) {
		return fmt.Errorf("invalid tick length %q (expected a whole number of seconds, at least 1)", s)
	}
	b.tickLength = s
	return nil
}

// SetRefreshRate records the refresh rate in seconds.
func (b *Builder) SetRefreshRate(s string) error {
	if !validate.ValidatePositiveInteger(s) {
		return fmt.Errorf("invalid refresh rate %q (expected a whole number of seconds, at least 1)", s)
	}
	b.refreshRate = s
	return nil
}

// SetKeyAlgorithm records the SSH key algorithm.
func (b *Builder) SetKeyAlgorithm(s string) error {
	alg, err := ParseKeyAlgorithm(s)
	if err != nil {
		return err
	}
	b.keyAlg = string(alg)
	return nil
}

// StartDate returns the combined date and offset as it would be persisted.
func (b *Builder) StartDate() string {
	return b.date + b.offset
}

// Build re-validates the combined values and returns the finished configuration.
func (b *Builder) Build() (RunConfiguration, error) {
	tick, err := strconv.Atoi(b.tickLength)
	if err != nil {
		return RunConfiguration{}, cerr.Wrap(err, "tick length")
	}
	refresh, err := strconv.Atoi(b.refreshRate)
	if err != nil {
		return RunConfiguration{}, cerr.Wrap(err, "refresh rate")
	}

	rc := RunConfiguration{
		StartDate:    b.StartDate(),
		TickLength:   tick,
		TargetIP:     b.targetIP,
		RefreshRate:  refresh,
		KeyAlgorithm: KeyAlgorithm(b.keyAlg),
	}
	if err := validate.Struct(rc); err != nil {
		return RunConfiguration{}, err
	}
	return rc, nil
}
