// pkg/interaction/wizard.go

package interaction

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/CodeMonkeyCybersecurity/shovel/pkg/runconfig"
	"github.com/CodeMonkeyCybersecurity/shovel/pkg/shovel_err"
	"github.com/CodeMonkeyCybersecurity/shovel/pkg/validate"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Defaults offered when the operator leaves a prompt blank.
const (
	DefaultTickLength  = "120"
	DefaultRefreshRate = "120"
)

// Inputs are the raw mode-C values taken from the command line. Empty means
// the flag was not given.
type Inputs struct {
	TargetIP     string
	StartDate    string
	TickLength   string
	RefreshRate  string
	KeyAlgorithm string
}

// Previous holds values from the last persisted run, offered as defaults
// when they still validate.
type Previous struct {
	TargetIP  string
	StartDate string
}

// Wizard resolves a RunConfiguration from flags, prompting for whatever is
// missing or invalid. Without a Prompter it never prompts: missing values
// fall back to static defaults where one exists and anything else is a
// validation error.
type Wizard struct {
	Prompter *Prompter
	Previous Previous
	// Now is used to derive the local UTC offset. Nil means time.Now.
	Now func() time.Time
}

// LocalOffset formats the UTC offset of t as +HH:MM.
func LocalOffset(t time.Time) string {
	return t.Format("-07:00")
}

func (w *Wizard) interactive() bool {
	return w.Prompter != nil
}

func (w *Wizard) now() time.Time {
	if w.Now != nil {
		return w.Now()
	}
	return time.Now()
}

func (w *Wizard) warn(format string, args ...any) {
	if w.Prompter != nil {
		_, _ = fmt.Fprintf(w.Prompter.Out(), "[!] "+format+"\n", args...)
	}
}

// field describes one step of the fixed prompt order.
type field struct {
	name  string
	flag  string
	label string
	def   string
	// staticDefault may be applied without prompting.
	staticDefault bool
	valid         func(string) bool
	hint          string
	set           func(string) error
}

// Run walks the fields in order: target IP, start date, timezone (only when
// the date carries no valid offset), tick length, refresh rate, key algorithm.
func (w *Wizard) Run(ctx context.Context, in Inputs) (runconfig.RunConfiguration, error) {
	logger := otelzap.Ctx(ctx)
	b := runconfig.NewBuilder()

	prevIP := ""
	if validate.ValidateIPv4(w.Previous.TargetIP) {
		prevIP = w.Previous.TargetIP
	}
	prevDate := ""
	if validate.ValidateDateTime(w.Previous.StartDate) && validate.ValidateTimezone(w.Previous.StartDate) != validate.TimezoneInvalid {
		prevDate = w.Previous.StartDate
	}

	if err := w.resolve(ctx, field{
		name:  "target IP",
		flag:  in.TargetIP,
		label: "Target IP address",
		def:   prevIP,
		valid: validate.ValidateIPv4,
		hint:  "Expected an IPv4 address such as 10.60.2.1.",
		set:   b.SetTargetIP,
	}); err != nil {
		return runconfig.RunConfiguration{}, err
	}

	var tzState validate.TimezoneState
	if err := w.resolve(ctx, field{
		name:  "start date",
		flag:  in.StartDate,
		label: "Start date and time (YYYY-MM-DDThh:mm[+HH:MM])",
		def:   prevDate,
		valid: validate.ValidateDateTime,
		hint:  "Expected a date such as 2025-06-01T17:30 or 2025-06-01T17:30+02:00.",
		set: func(s string) error {
			state, err := b.SetStartDate(s)
			tzState = state
			return err
		},
	}); err != nil {
		return runconfig.RunConfiguration{}, err
	}

	if tzState != validate.TimezoneValid {
		if err := w.resolveTimezone(ctx, b, tzState); err != nil {
			return runconfig.RunConfiguration{}, err
		}
	}

	steps := []field{
		{
			name:          "tick length",
			flag:          in.TickLength,
			label:         "Tick length in seconds",
			def:           DefaultTickLength,
			staticDefault: true,
			valid:         validate.ValidatePositiveInteger,
			hint:          "Expected a whole number of seconds, at least 1.",
			set:           b.SetTickLength,
		},
		{
			name:          "refresh rate",
			flag:          in.RefreshRate,
			label:         "Refresh rate in seconds",
			def:           DefaultRefreshRate,
			staticDefault: true,
			valid:         validate.ValidatePositiveInteger,
			hint:          "Expected a whole number of seconds, at least 1.",
			set:           b.SetRefreshRate,
		},
		{
			name:          "key algorithm",
			flag:          in.KeyAlgorithm,
			label:         "SSH key algorithm (" + strings.Join(validate.KeyAlgorithms, ", ") + ")",
			def:           string(runconfig.DefaultKeyAlgorithm),
			staticDefault: true,
			valid:         validate.ValidateKeyAlgorithm,
			hint:          "Expected one of " + strings.Join(validate.KeyAlgorithms, ", ") + ".",
			set:           b.SetKeyAlgorithm,
		},
	}
	for _, f := range steps {
		if err := w.resolve(ctx, f); err != nil {
			return runconfig.RunConfiguration{}, err
		}
	}

	rc, err := b.Build()
	if err != nil {
		return runconfig.RunConfiguration{}, shovel_err.WrapValidationError(err, "run configuration failed validation")
	}
	logger.Info("Run configuration resolved",
		zap.String("target_ip", rc.TargetIP),
		zap.String("start_date", rc.StartDate),
		zap.Int("tick_length", rc.TickLength),
		zap.Int("refresh_rate", rc.RefreshRate),
		zap.String("key_algorithm", string(rc.KeyAlgorithm)))
	return rc, nil
}

func (w *Wizard) resolve(ctx context.Context, f field) error {
	logger := otelzap.Ctx(ctx)

	if f.flag != "" {
		err := f.set(f.flag)
		if err == nil {
			logger.Debug("Using command-line value", zap.String("field", f.name), zap.String("value", f.flag))
			return nil
		}
		if !w.interactive() {
			return shovel_err.WrapValidationError(err, fmt.Sprintf("invalid %s %q", f.name, f.flag), f.hint)
		}
		w.warn("Ignoring invalid %s %q from the command line.", f.name, f.flag)
	}

	if !w.interactive() {
		if f.staticDefault {
			logger.Info("Using default value", zap.String("field", f.name), zap.String("value", f.def))
			return f.set(f.def)
		}
		return shovel_err.NewValidationError(
			fmt.Sprintf("missing %s", f.name),
			"Pass it as a flag or run shovel in a terminal to be prompted")
	}

	answer, err := w.Prompter.PromptValidated(ctx, f.label, f.def, f.valid, f.hint)
	if err != nil {
		return err
	}
	return f.set(answer)
}

func (w *Wizard) resolveTimezone(ctx context.Context, b *runconfig.Builder, state validate.TimezoneState) error {
	local := LocalOffset(w.now())

	if state == validate.TimezoneInvalid {
		if !w.interactive() {
			return shovel_err.NewValidationError("invalid timezone offset on start date",
				"Use +HH:MM or -HH:MM with hours up to 23, e.g. 2025-06-01T17:30+02:00")
		}
		w.warn("Ignoring invalid timezone offset on the start date.")
	}

	if !w.interactive() {
		otelzap.Ctx(ctx).Info("Start date has no offset, using local timezone", zap.String("offset", local))
		return b.SetTimezone(local)
	}

	answer, err := w.Prompter.PromptValidated(ctx, "Timezone offset (+HH:MM)", local, validate.ValidateOffset,
		"Expected +HH:MM or -HH:MM, e.g. +02:00.")
	if err != nil {
		return err
	}
	return b.SetTimezone(answer)
}
