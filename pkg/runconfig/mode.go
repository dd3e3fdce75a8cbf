// pkg/runconfig/mode.go

package runconfig

import (
	"fmt"
	"strings"
)

// Mode is one of the three deployment topologies. Exactly one is active per invocation.
type Mode int

const (
	// ModeRemoteOverIP captures on a remote host over SSH (PCAP-over-IP). It is the default.
	ModeRemoteOverIP Mode = iota
	// ModeReplay replays pcap files from disk.
	ModeReplay
	// ModeCapture captures live on a local interface.
	ModeCapture
)

// DefaultMode is used when the operator does not pick one.
const DefaultMode = ModeRemoteOverIP

// Modes in menu order.
var Modes = []Mode{ModeReplay, ModeCapture, ModeRemoteOverIP}

// Letter returns the short menu key: A, B or C.
func (m Mode) Letter() string {
	switch m {
	case ModeReplay:
		return "A"
	case ModeCapture:
		return "B"
	default:
		return "C"
	}
}

// Description is the human label printed next to the letter.
func (m Mode) Description() string {
	switch m {
	case ModeReplay:
		return "pcap replay"
	case ModeCapture:
		return "capture interface"
	default:
		return "PCAP-over-IP"
	}
}

func (m Mode) String() string {
	return fmt.Sprintf("%s (%s)", m.Letter(), m.Description())
}

// RequiresRunConfiguration reports whether starting this mode needs mode-C parameters.
func (m Mode) RequiresRunConfiguration() bool {
	return m == ModeRemoteOverIP
}

// ParseMode accepts a menu letter (a/b/c) or a mode name.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "a", "replay":
		return ModeReplay, nil
	case "b", "capture":
		return ModeCapture, nil
	case "c", "remote", "pcap-over-ip":
		return ModeRemoteOverIP, nil
	}
	return DefaultMode, fmt.Errorf("unknown mode %q (expected A, B or C)", s)
}
