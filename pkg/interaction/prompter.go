// pkg/interaction/prompter.go

package interaction

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/CodeMonkeyCybersecurity/shovel/pkg/shovel_err"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Prompter reads operator answers line by line. Reads observe context
// cancellation, so an interrupt aborts a pending prompt.
//
// Input is read one byte at a time and never past the end of the current
// line, so whatever follows an answer stays in the reader for the next
// consumer (an exec'd container shell, for instance).
type Prompter struct {
	in  io.Reader
	out io.Writer

	mu sync.Mutex
	// pending is the result of a read left running by an interrupted prompt.
	pending chan lineResult
}

type lineResult struct {
	line string
	err  error
}

// NewPrompter reads from in and writes prompt labels to out.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: in, out: out}
}

// Out is where labels and re-prompt messages go.
func (p *Prompter) Out() io.Writer {
	return p.out
}

// readOneLine returns the next line including its newline. A final line
// without a newline is returned with a nil error.
func (p *Prompter) readOneLine() (string, error) {
	var line []byte
	var b [1]byte
	for {
		n, err := p.in.Read(b[:])
		if n > 0 {
			line = append(line, b[0])
			if b[0] == '\n' {
				return string(line), nil
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) && len(line) > 0 {
				return string(line), nil
			}
			return string(line), err
		}
	}
}

// startRead returns the channel the next line arrives on, reusing a read
// an interrupted prompt left behind.
func (p *Prompter) startRead() chan lineResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pending == nil {
		ch := make(chan lineResult, 1)
		go func() {
			line, err := p.readOneLine()
			ch <- lineResult{line: line, err: err}
		}()
		p.pending = ch
	}
	return p.pending
}

func (p *Prompter) finishRead() {
	p.mu.Lock()
	p.pending = nil
	p.mu.Unlock()
}

// ReadLine prints label and returns the trimmed answer. End of input and
// context cancellation both surface as a user-cancelled error.
func (p *Prompter) ReadLine(ctx context.Context, label string) (string, error) {
	logger := otelzap.Ctx(ctx)
	logger.Debug("Prompting operator", zap.String("label", label))

	_, _ = fmt.Fprint(p.out, label+": ")

	cancelled := func() (string, error) {
		_, _ = fmt.Fprintln(p.out)
		logger.Warn("Prompt interrupted", zap.String("label", label))
		return "", shovel_err.NewUserCancelledError("interrupted at prompt: " + label)
	}
	if ctx.Err() != nil {
		return cancelled()
	}

	lines := p.startRead()
	select {
	case <-ctx.Done():
		return cancelled()
	case r := <-lines:
		p.finishRead()
		if r.err != nil {
			_, _ = fmt.Fprintln(p.out)
			if !errors.Is(r.err, io.EOF) {
				logger.Error("Failed to read operator input", zap.Error(r.err))
			}
			return "", shovel_err.NewUserCancelledError("input closed at prompt: " + label)
		}
		return strings.TrimSpace(r.line), nil
	}
}

// PromptValidated asks until valid accepts the answer. A blank answer takes
// def when def is non-empty and re-prompts otherwise.
func (p *Prompter) PromptValidated(ctx context.Context, label, def string, valid func(string) bool, hint string) (string, error) {
	full := label
	if def != "" {
		full = fmt.Sprintf("%s [%s]", label, def)
	}

	for {
		answer, err := p.ReadLine(ctx, full)
		if err != nil {
			return "", err
		}
		if answer == "" {
			if def == "" {
				_, _ = fmt.Fprintln(p.out, "[-] A value is required.")
				continue
			}
			answer = def
		}
		if valid(answer) {
			return answer, nil
		}
		otelzap.Ctx(ctx).Debug("Rejected operator input", zap.String("label", label), zap.String("input", answer))
		_, _ = fmt.Fprintf(p.out, "[-] Invalid value %q. %s\n", answer, hint)
	}
}

// Option is one entry of a selection menu.
type Option struct {
	Key   string
	Label string
}

// PromptSelect shows options and returns the chosen index. The answer may be
// an option key (case-insensitive) or its 1-based position; blank picks def.
func (p *Prompter) PromptSelect(ctx context.Context, title string, options []Option, def int) (int, error) {
	_, _ = fmt.Fprintln(p.out, title)
	for _, o := range options {
		_, _ = fmt.Fprintf(p.out, "  %s) %s\n", o.Key, o.Label)
	}

	label := "Enter choice"
	if def >= 0 && def < len(options) {
		label = fmt.Sprintf("Enter choice [%s]", options[def].Key)
	}

	for {
		answer, err := p.ReadLine(ctx, label)
		if err != nil {
			return -1, err
		}
		if answer == "" && def >= 0 && def < len(options) {
			return def, nil
		}
		for i, o := range options {
			if strings.EqualFold(answer, o.Key) {
				return i, nil
			}
		}
		if n, err := strconv.Atoi(answer); err == nil && n >= 1 && n <= len(options) {
			return n - 1, nil
		}
		_, _ = fmt.Fprintln(p.out, "Invalid selection. Please try again.")
	}
}

// PromptYesNo asks a yes/no question; blank or unrecognised answers take the default.
func (p *Prompter) PromptYesNo(ctx context.Context, prompt string, defaultYes bool) (bool, error) {
	suffix := "y/N"
	if defaultYes {
		suffix = "Y/n"
	}
	answer, err := p.ReadLine(ctx, fmt.Sprintf("%s [%s]", prompt, suffix))
	if err != nil {
		return false, err
	}
	if v, ok := NormalizeYesNoInput(answer); ok {
		return v, nil
	}
	return defaultYes, nil
}

// NormalizeYesNoInput parses y/yes/n/no. The second result is false for anything else.
func NormalizeYesNoInput(input string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "y", "yes":
		return true, true
	case "n", "no":
		return false, true
	}
	return false, false
}
