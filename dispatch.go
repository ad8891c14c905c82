package koi

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/net/context"
)

// dispatchState tracks where in its lifecycle one invocation is,
// stages execute strictly in this order within an invocation
type dispatchState uint8

const (
	stateReceived dispatchState = iota
	stateResolved
	stateChecked
	stateDeferred
	stateActive
	stateExecuting
	statePostRun
	stateCompleted
	stateErrored
)

func (s dispatchState) String() string {
	switch s {
	case stateReceived:
		return "Received"
	case stateResolved:
		return "Resolved"
	case stateChecked:
		return "Checked"
	case stateDeferred:
		return "Deferred"
	case stateActive:
		return "Active"
	case stateExecuting:
		return "Executing"
	case statePostRun:
		return "PostRun"
	case stateCompleted:
		return "Completed"
	case stateErrored:
		return "Errored"
	default:
		return fmt.Sprintf("dispatchState(%d)", uint8(s))
	}
}

// walkPath extracts the node path and the leaf option values from the wire
// payload, unwrapping subcommand and subcommand-group layers
func walkPath(data *discordgo.ApplicationCommandInteractionData) ([]string, []*discordgo.ApplicationCommandInteractionDataOption) {
	path := make([]string, 0, 3)
	path = append(path, data.Name)
	opts := data.Options
	if len(opts) == 1 && opts[0].Type == discordgo.ApplicationCommandOptionSubCommandGroup {
		path = append(path, opts[0].Name)
		opts = opts[0].Options
	}
	if len(opts) == 1 && opts[0].Type == discordgo.ApplicationCommandOptionSubCommand {
		path = append(path, opts[0].Name)
		opts = opts[0].Options
	}
	return path, opts
}

// Execute runs one invocation through the full lifecycle synchronously,
// it returns the fault only when no error hook and no fall-through handler
// claimed it, per-invocation faults never crash the dispatch loop
func (d *Koi) Execute(ctx context.Context, ses Responder, ic *discordgo.InteractionCreate) error {
	switch ic.Type {
	case discordgo.InteractionApplicationCommand:
		return d.process(ctx, ses, ic)
	case discordgo.InteractionApplicationCommandAutocomplete:
		return d.processAutocomplete(ctx, ses, ic)
	default:
		return nil
	}
}

func (d *Koi) process(ctx context.Context, ses Responder, ic *discordgo.InteractionCreate) error {
	data := ic.ApplicationCommandData()
	path, leafOpts := walkPath(&data)

	cctx := &Ctx{
		ctx:   ctx,
		ses:   ses,
		ic:    ic,
		path:  path,
		resp:  &responseState{deadline: time.Now().Add(d.respWindow)},
		state: stateReceived,
	}

	node, err := d.registry.Resolve(ic.GuildID, path)
	if err != nil {
		cctx.state = stateErrored
		d.log.Warn().Str("path", errPath(path)).Str("interaction", ic.ID).Msg("unknown command")
		return d.routeError(cctx, err, &d.hooks)
	}
	cctx.node = node
	cctx.state = stateResolved
	d.log.Debug().Str("path", errPath(path)).Str("interaction", ic.ID).Msg("command resolved")

	module := node.Module()
	checkChain, hookChain := scopeChains(d, module, node)

	if err := evaluateChecks(cctx, checkChain...); err != nil {
		cctx.state = stateErrored
		return d.routeError(cctx, err, hookChain...)
	}
	cctx.state = stateChecked

	opts, err := coerceOptions(node, leafOpts, data.Resolved, ic.GuildID)
	if err != nil {
		cctx.state = stateErrored
		return d.routeError(cctx, err, hookChain...)
	}
	cctx.opts = opts
	cctx.state = stateActive

	if err := runPre(cctx, hookChain...); err != nil {
		cctx.state = stateErrored
		return d.routeError(cctx, err, hookChain...)
	}

	//an auto-defer fires the deferred acknowledgement while the handler is
	//still running, keeping slow handlers inside the response window
	var autoDefer *time.Timer
	if module != nil && module.autoDefer > 0 {
		autoDefer = time.AfterFunc(module.autoDefer, func() {
			if err := cctx.deferWith(d.deferWindow); err == nil {
				d.log.Debug().Str("path", errPath(path)).Msg("auto-deferred")
			}
		})
	}

	cctx.state = stateExecuting
	handlerErr := d.invoke(cctx, node)
	if autoDefer != nil {
		autoDefer.Stop()
	}
	if cctx.Deferred() {
		//the deferral moved the caller-visible deadline, stages continue unchanged
		cctx.state = stateDeferred
		d.log.Debug().Str("path", errPath(path)).Str("interaction", ic.ID).Msg("invocation deferred")
	}

	cctx.state = statePostRun
	var postFault error
	for _, fault := range runPost(cctx, hookChain...) {
		d.log.Error().Err(fault).Str("path", errPath(path)).Msg("post-run hook faulted")
		//post-run faults do not undo handler side effects, but an unclaimed
		//one still reaches the caller
		if rerr := d.routeError(cctx, fault, hookChain...); rerr != nil && postFault == nil {
			postFault = rerr
		}
	}

	if handlerErr != nil {
		cctx.state = stateErrored
		if rerr := d.routeError(cctx, handlerErr, hookChain...); rerr != nil {
			return rerr
		}
		return postFault
	}

	if !cctx.Responded() {
		//dispatch is over, nothing can answer the interaction anymore
		timeout := TimeoutError{stage: "response", budget: d.respWindow}
		cctx.state = stateErrored
		d.log.Warn().Str("path", errPath(path)).Str("interaction", ic.ID).Msg("invocation finished without a response")
		if rerr := d.routeError(cctx, timeout, hookChain...); rerr != nil {
			return rerr
		}
		return postFault
	}

	if postFault != nil {
		cctx.state = stateErrored
		return postFault
	}
	cctx.state = stateCompleted
	d.log.Debug().Str("path", errPath(path)).Str("interaction", ic.ID).Msg("command completed")
	return nil
}

// invoke calls the handler, converting returned errors and recovered panics
// into a HandlerError
func (d *Koi) invoke(cctx *Ctx, node *Command) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = HandlerError{path: cctx.path, err: fmt.Errorf("handler panicked: %v", r)}
		}
	}()
	if hErr := node.handler(cctx); hErr != nil {
		return HandlerError{path: cctx.path, err: hErr}
	}
	return nil
}

// scopeChains assembles the check and hook chains for a resolved node in
// (global, module, command) precedence order,
// nodes along the path contribute their own checks and hooks so a group can
// gate all of its subcommands
func scopeChains(d *Koi, module *Module, node *Command) ([][]Check, []*hookSet) {
	checks := [][]Check{d.checks}
	hooks := []*hookSet{&d.hooks}
	if module != nil {
		checks = append(checks, module.checks)
		hooks = append(hooks, &module.hooks)
	}
	var lineage []*Command
	for n := node; n != nil; n = n.parent {
		lineage = append([]*Command{n}, lineage...)
	}
	for _, n := range lineage {
		if len(n.checks) > 0 {
			checks = append(checks, n.checks)
		}
		if len(n.hooks.pre)+len(n.hooks.post)+len(n.hooks.err) > 0 {
			hooks = append(hooks, &n.hooks)
		}
	}
	return checks, hooks
}

// routeError sends a fault through the error-hook stage, then the engine's
// fall-through handler, and returns it only when nothing claimed it
func (d *Koi) routeError(cctx *Ctx, err error, hookChain ...*hookSet) error {
	handled := runError(cctx, err, d.errOrder, hookChain...)
	if !handled && d.errHandler != nil {
		d.errHandler(cctx, err)
		handled = true
	}
	if handled {
		d.log.Debug().Err(err).Str("path", errPath(cctx.path)).Msg("fault handled")
		return nil
	}
	d.log.Error().Err(err).Str("path", errPath(cctx.path)).Msg("unhandled fault")
	return err
}
