// pkg/orchestrator/action.go

package orchestrator

import (
	"strings"

	"github.com/CodeMonkeyCybersecurity/shovel/pkg/shovel_err"
)

// Action is what the operator asked shovel to do.
type Action int

const (
	ActionStart Action = iota
	ActionStop
	ActionClear
	ActionStatus
	ActionLogs
	ActionExec
)

// Actions in menu order. logs and exec need arguments so they are not offered.
var menuActions = []Action{ActionStart, ActionStop, ActionStatus, ActionClear}

func (a Action) String() string {
	switch a {
	case ActionStop:
		return "stop"
	case ActionClear:
		return "clear"
	case ActionStatus:
		return "status"
	case ActionLogs:
		return "logs"
	case ActionExec:
		return "exec"
	default:
		return "start"
	}
}

func (a Action) description() string {
	switch a {
	case ActionStop:
		return "Stop the running deployment"
	case ActionClear:
		return "Stop and delete configuration and captured data"
	case ActionStatus:
		return "Show service status"
	default:
		return "Start (or restart) the deployment"
	}
}

// mutates reports whether the action changes deployment state and so needs
// the root lock.
func (a Action) mutates() bool {
	switch a {
	case ActionStart, ActionStop, ActionClear:
		return true
	}
	return false
}

// ParseAction accepts the action names used on the command line.
func ParseAction(s string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "start", "up":
		return ActionStart, nil
	case "stop", "down":
		return ActionStop, nil
	case "clear":
		return ActionClear, nil
	case "status", "ps":
		return ActionStatus, nil
	case "logs":
		return ActionLogs, nil
	case "exec":
		return ActionExec, nil
	}
	return ActionStart, shovel_err.NewValidationError("unknown action "+s,
		"Use one of: start, stop, clear, status, logs, exec")
}
