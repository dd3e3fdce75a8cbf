// pkg/compose/fake.go

package compose

import (
	"context"
	"io"
	"strings"
	"sync"
)

// FakeRunner records invocations instead of running them. Tests set ExitCodes
// keyed by the compose subcommand ("up", "down", "ps", ...) and Output to
// simulate stdout.
type FakeRunner struct {
	mu    sync.Mutex
	Calls []Invocation

	ExitCodes map[string]int
	Output    map[string]string
	Err       error
}

// Run implements Runner.
func (f *FakeRunner) Run(_ context.Context, inv Invocation) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Calls = append(f.Calls, inv)
	if f.Err != nil {
		return -1, f.Err
	}
	sub := Subcommand(inv.Args)
	if out, ok := f.Output[sub]; ok && inv.Stdout != nil {
		_, _ = io.WriteString(inv.Stdout, out)
	}
	return f.ExitCodes[sub], nil
}

// Subcommands returns the compose subcommand of every recorded call, in order.
func (f *FakeRunner) Subcommands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	subs := make([]string, 0, len(f.Calls))
	for _, c := range f.Calls {
		subs = append(subs, Subcommand(c.Args))
	}
	return subs
}

// Last returns the most recent call.
func (f *FakeRunner) Last() (Invocation, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.Calls) == 0 {
		return Invocation{}, false
	}
	return f.Calls[len(f.Calls)-1], true
}

// Subcommand picks the compose subcommand out of args, skipping the
// plugin name and any -f <file> pairs.
func Subcommand(args []string) string {
	for i := 0; i < len(args); i++ {
		switch a := args[i]; {
		case a == "compose":
			continue
		case a == "-f" || a == "--file":
			i++
		case strings.HasPrefix(a, "-"):
			continue
		default:
			return a
		}
	}
	return ""
}
