// pkg/orchestrator/orchestrator.go
//
// Main control loop. One Run call walks
//
//	ModeSelection -> ActionSelection -> PreStop
//	  -> [mode C: ParameterResolution -> Persist -> Patch] -> Start -> Done
//
// for the start action. The other actions run their single driver call after
// ActionSelection. Any error moves the loop to Aborted.

package orchestrator

import (
	"context"
	"time"

	"github.com/CodeMonkeyCybersecurity/shovel/pkg/compose"
	"github.com/CodeMonkeyCybersecurity/shovel/pkg/envstore"
	"github.com/CodeMonkeyCybersecurity/shovel/pkg/interaction"
	"github.com/CodeMonkeyCybersecurity/shovel/pkg/output"
	"github.com/CodeMonkeyCybersecurity/shovel/pkg/process"
	"github.com/CodeMonkeyCybersecurity/shovel/pkg/runconfig"
	"github.com/CodeMonkeyCybersecurity/shovel/pkg/settings"
	"github.com/CodeMonkeyCybersecurity/shovel/pkg/shovel_err"
	"github.com/CodeMonkeyCybersecurity/shovel/pkg/telemetry"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// Request is everything taken from the command line.
type Request struct {
	Mode    runconfig.Mode
	ModeSet bool

	Action    Action
	ActionSet bool
	// NoArgs is true when shovel was invoked with no arguments at all, which
	// means start without asking.
	NoArgs bool

	Inputs  interaction.Inputs
	NoBuild bool
	// Yes skips the clear confirmation.
	Yes bool

	LogArgs     []string
	ExecService string
	ExecCommand []string
}

// ContainerCounter reports running and total containers of a compose project.
type ContainerCounter func(ctx context.Context, project string) (running, total int, err error)

// Orchestrator sequences the store, patcher and driver for one invocation.
type Orchestrator struct {
	Settings *settings.Settings
	Store    *envstore.Store
	// Prompter is nil when shovel is not attached to a terminal.
	Prompter *interaction.Prompter
	Out      *output.Printer
	// NewDriver builds the driver for a descriptor file name.
	NewDriver func(descriptor string) *compose.Driver

	// Preflight enables the advisory checks before up.
	Preflight bool
	// Containers adds a container count to status. Nil skips it.
	Containers ContainerCounter
	// Now is passed to the wizard for the local UTC offset.
	Now func() time.Time

	visited []State
	mode    runconfig.Mode
	action  Action
	driver  *compose.Driver
}

// New wires an Orchestrator for s using the resolved compose command.
func New(s *settings.Settings, command []string, prompter *interaction.Prompter, out *output.Printer) *Orchestrator {
	o := &Orchestrator{
		Settings:   s,
		Store:      &envstore.Store{Path: s.Path(s.EnvFile)},
		Prompter:   prompter,
		Out:        out,
		Preflight:  true,
		Containers: compose.CountProjectContainers,
	}
	o.NewDriver = func(descriptor string) *compose.Driver {
		return compose.NewDriver(s.Root, descriptor, command)
	}
	o.Store.Notify = func(key, value string) {
		o.Out.Success("%s=%s", key, value)
	}
	return o
}

// Visited returns the states entered so far, in order.
func (o *Orchestrator) Visited() []State {
	return append([]State(nil), o.visited...)
}

// Mode returns the selected mode.
func (o *Orchestrator) Mode() runconfig.Mode { return o.mode }

// Action returns the selected action.
func (o *Orchestrator) Action() Action { return o.action }

// Run executes req to completion.
func (o *Orchestrator) Run(ctx context.Context, req Request) (err error) {
	logger := otelzap.Ctx(ctx)
	o.visited = o.visited[:0]

	defer func() {
		if err != nil {
			o.visited = append(o.visited, StateAborted)
			logger.Debug("Orchestrator aborted", zap.Stringer("mode", o.mode), zap.Stringer("action", o.action), zap.Error(err))
		}
	}()

	if err := o.step(ctx, StateModeSelection, func(ctx context.Context) error {
		return o.selectMode(ctx, req)
	}); err != nil {
		return err
	}
	if err := o.step(ctx, StateActionSelection, func(ctx context.Context) error {
		return o.selectAction(ctx, req)
	}); err != nil {
		return err
	}

	o.driver = o.NewDriver(o.Settings.Descriptor(o.mode))
	if err := o.driver.CheckDescriptor(); err != nil {
		return err
	}

	if o.action.mutates() {
		lock := process.NewLock(o.Settings.Root)
		if err := lock.Acquire(); err != nil {
			return err
		}
		defer func() {
			if rerr := lock.Release(); rerr != nil {
				logger.Warn("Failed to release lock", zap.String("path", lock.Path()), zap.Error(rerr))
			}
		}()
	}

	switch o.action {
	case ActionStart:
		err = o.start(ctx, req)
	case ActionStop:
		err = o.run(ctx, "stop", o.stop)
	case ActionClear:
		err = o.run(ctx, "clear", func(ctx context.Context) error { return o.clear(ctx, req) })
	case ActionStatus:
		err = o.run(ctx, "status", o.status)
	case ActionLogs:
		err = o.run(ctx, "logs", func(ctx context.Context) error {
			_, err := o.driver.Logs(ctx, req.LogArgs...)
			return err
		})
	case ActionExec:
		err = o.run(ctx, "exec", func(ctx context.Context) error {
			_, err := o.driver.Exec(ctx, req.ExecService, req.ExecCommand...)
			return err
		})
	}
	if err != nil {
		return err
	}

	o.visited = append(o.visited, StateDone)
	return nil
}

func (o *Orchestrator) start(ctx context.Context, req Request) error {
	if err := o.step(ctx, StatePreStop, o.preStop); err != nil {
		return err
	}

	if o.mode.RequiresRunConfiguration() {
		var rc runconfig.RunConfiguration
		if err := o.step(ctx, StateParameterResolution, func(ctx context.Context) error {
			var err error
			rc, err = o.resolveParameters(ctx, req.Inputs)
			return err
		}); err != nil {
			return err
		}
		if err := o.step(ctx, StatePersist, func(ctx context.Context) error {
			return o.Store.WriteConfig(ctx, rc)
		}); err != nil {
			return err
		}
		if err := o.step(ctx, StatePatch, func(ctx context.Context) error {
			return o.patch(ctx, rc)
		}); err != nil {
			return err
		}
		return o.step(ctx, StateStart, func(ctx context.Context) error {
			return o.up(ctx, req, rc.KeyAlgorithm)
		})
	}

	return o.step(ctx, StateStart, func(ctx context.Context) error {
		return o.up(ctx, req, "")
	})
}

// step enters state and runs fn inside a span named after it.
func (o *Orchestrator) step(ctx context.Context, state State, fn func(context.Context) error) error {
	o.visited = append(o.visited, state)
	return o.run(ctx, state.String(), fn)
}

func (o *Orchestrator) run(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := telemetry.Start(ctx, "orchestrator."+name,
		attribute.String("mode", o.mode.Letter()),
		attribute.String("action", o.action.String()))
	defer span.End()

	otelzap.Ctx(ctx).Debug("Entering state", zap.String("state", name))
	err := fn(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, name+" failed")
		span.SetAttributes(attribute.Int("exit_code", shovel_err.GetExitCode(err)))
	}
	return err
}

func (o *Orchestrator) selectMode(ctx context.Context, req Request) error {
	logger := otelzap.Ctx(ctx)

	switch {
	case req.ModeSet:
		o.mode = req.Mode
	case o.Prompter != nil:
		opts := make([]interaction.Option, 0, len(runconfig.Modes))
		def := 0
		for i, m := range runconfig.Modes {
			opts = append(opts, interaction.Option{Key: m.Letter(), Label: m.Description()})
			if m == runconfig.DefaultMode {
				def = i
			}
		}
		idx, err := o.Prompter.PromptSelect(ctx, "Select mode", opts, def)
		if err != nil {
			return err
		}
		o.mode = runconfig.Modes[idx]
	default:
		o.mode = runconfig.DefaultMode
	}

	logger.Info("Mode selected", zap.Stringer("mode", o.mode))
	return nil
}

func (o *Orchestrator) selectAction(ctx context.Context, req Request) error {
	logger := otelzap.Ctx(ctx)

	switch {
	case req.ActionSet:
		o.action = req.Action
	case req.NoArgs || o.Prompter == nil:
		o.action = ActionStart
	default:
		opts := make([]interaction.Option, 0, len(menuActions))
		for i, a := range menuActions {
			opts = append(opts, interaction.Option{Key: string(rune('1' + i)), Label: a.description()})
		}
		idx, err := o.Prompter.PromptSelect(ctx, "Select action", opts, 0)
		if err != nil {
			return err
		}
		o.action = menuActions[idx]
	}

	logger.Info("Action selected", zap.Stringer("action", o.action))
	return nil
}

func (o *Orchestrator) preStop(ctx context.Context) error {
	if !o.Store.ConfigExists() {
		otelzap.Ctx(ctx).Debug("No previous configuration, skipping stop", zap.String("path", o.Store.Path))
		return nil
	}
	o.Out.Info("Previous configuration found, stopping any running deployment")
	if _, err := o.driver.Down(ctx, compose.DownOptions{}); err != nil {
		return err
	}
	o.Out.Success("Previous deployment stopped")
	return nil
}

func (o *Orchestrator) resolveParameters(ctx context.Context, in interaction.Inputs) (runconfig.RunConfiguration, error) {
	if !o.Store.ConfigExists() {
		o.Out.Warn("No configuration store at %s, it will be created", o.Store.Path)
	}
	prev := o.Store.Previous(ctx)

	w := &interaction.Wizard{
		Prompter: o.Prompter,
		Previous: interaction.Previous{TargetIP: prev.TargetIP, StartDate: prev.StartDate},
		Now:      o.Now,
	}
	rc, err := w.Run(ctx, in)
	if err != nil {
		return runconfig.RunConfiguration{}, err
	}
	if o.Prompter != nil {
		o.Out.Box(rc.Summary())
	}
	return rc, nil
}
