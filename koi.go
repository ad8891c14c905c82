// Package koi is the interaction dispatch core of a slash command framework:
// a command registry, check and hook engines, option coercion, autocomplete
// resolution and the per-invocation lifecycle tying them together,
// transport to the platform stays outside, the engine consumes inbound
// interaction payloads and answers through an injected responder
package koi

import (
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/davecgh/go-spew/spew"
	"github.com/rs/zerolog"
	"golang.org/x/net/context"
)

const (
	//defaultResponseWindow is the platform's initial response deadline
	defaultResponseWindow = 3 * time.Second
	//defaultDeferWindow is the extended deadline bought by a deferral
	defaultDeferWindow = 15 * time.Minute
	//defaultAutocompleteBudget leaves margin under the response window,
	//an autocomplete probe past it is abandoned, not retried
	defaultAutocompleteBudget = 2500 * time.Millisecond
)

// Koi dispatches inbound interactions to registered commands,
// each invocation is processed as an independent unit of work, nothing is
// serialized across invocations beyond the read-mostly registry
type Koi struct {
	registry *Registry
	modules  []*Module

	checks []Check
	hooks  hookSet

	errHandler ErrorHookFunc
	errOrder   ErrorHookOrder

	respWindow  time.Duration
	deferWindow time.Duration
	acBudget    time.Duration

	log zerolog.Logger

	mu      sync.Mutex
	remover func()
}

// EngineOption configures a Koi at construction
type EngineOption func(*Koi)

// WithLogger sets the structured logger dispatch events are written to
func WithLogger(log zerolog.Logger) EngineOption {
	return func(d *Koi) { d.log = log }
}

// WithErrorHookOrder sets the scope direction error hooks run in,
// the default is InnermostFirst: command, module, global
func WithErrorHookOrder(order ErrorHookOrder) EngineOption {
	return func(d *Koi) { d.errOrder = order }
}

// WithResponseWindow overrides the platform response deadline, mainly for tests
func WithResponseWindow(window time.Duration) EngineOption {
	return func(d *Koi) { d.respWindow = window }
}

// WithDeferWindow overrides the extended deadline bought by a deferral
func WithDeferWindow(window time.Duration) EngineOption {
	return func(d *Koi) { d.deferWindow = window }
}

// WithAutocompleteBudget overrides the autocomplete time budget
func WithAutocompleteBudget(budget time.Duration) EngineOption {
	return func(d *Koi) { d.acBudget = budget }
}

func New(opts ...EngineOption) *Koi {
	d := &Koi{
		registry:    NewRegistry(),
		errOrder:    InnermostFirst,
		respWindow:  defaultResponseWindow,
		deferWindow: defaultDeferWindow,
		acBudget:    defaultAutocompleteBudget,
		log:         zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Registry exposes the command registry, registration is expected at startup
func (d *Koi) Registry() *Registry {
	return d.registry
}

// AddCommand registers a top-level command under the global scope
func (d *Koi) AddCommand(cmd *Command) error {
	return d.registry.Register(GlobalScope, cmd)
}

// AddGuildCommand registers a top-level command under one guild's scope
func (d *Koi) AddGuildCommand(guild string, cmd *Command) error {
	return d.registry.Register(guild, cmd)
}

// AttachModule registers every command a module owns under the given scopes,
// no scope means global,
// registration is atomic per command, a failure leaves later commands
// unregistered and returns immediately
func (d *Koi) AttachModule(m *Module, scopes ...string) error {
	if len(scopes) == 0 {
		scopes = []string{GlobalScope}
	}
	for _, scope := range scopes {
		for _, cmd := range m.commands {
			if err := d.registry.Register(scope, cmd); err != nil {
				return err
			}
		}
	}
	d.mu.Lock()
	d.modules = append(d.modules, m)
	d.mu.Unlock()
	return nil
}

// Modules returns the modules attached so far
func (d *Koi) Modules() []*Module {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*Module, len(d.modules))
	copy(out, d.modules)
	return out
}

// AddCheck appends a global check, evaluated before module and command checks
func (d *Koi) AddCheck(check Check) {
	d.checks = append(d.checks, check)
}

// PreRun appends a global pre-run hook
func (d *Koi) PreRun(fn HookFunc) {
	d.hooks.pre = append(d.hooks.pre, fn)
}

// PostRun appends a global post-run hook
func (d *Koi) PostRun(fn HookFunc) {
	d.hooks.post = append(d.hooks.post, fn)
}

// OnError appends a global error hook
func (d *Koi) OnError(fn ErrorHookFunc) {
	d.hooks.err = append(d.hooks.err, fn)
}

// SetErrorHandler sets the fall-through sink for faults no error hook claimed
func (d *Koi) SetErrorHandler(fn ErrorHookFunc) {
	d.errHandler = fn
}

// RegisterSession hooks the engine into a gateway session,
// every interaction is dispatched on its own goroutine so a suspended handler
// never blocks unrelated invocations
func (d *Koi) RegisterSession(s *discordgo.Session) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.remover = s.AddHandler(func(s *discordgo.Session, ic *discordgo.InteractionCreate) {
		go func() {
			if err := d.Execute(context.Background(), s, ic); err != nil {
				d.log.Error().Err(err).Str("interaction", ic.ID).Msg("invocation returned unhandled fault")
			}
		}()
	})
}

// ApplicationCommands exports a scope's command trees verbatim for the
// platform's command-sync mechanism
func (d *Koi) ApplicationCommands(scope string) []*discordgo.ApplicationCommand {
	return d.registry.ApplicationCommands(scope)
}

// DumpCommands renders a scope's registered command trees for debugging
func (d *Koi) DumpCommands(scope string) string {
	return spew.Sdump(d.registry.ApplicationCommands(scope))
}

// Close detaches the engine from the session, in-flight invocations finish
// on their own goroutines
func (d *Koi) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.remover != nil {
		d.remover()
		d.remover = nil
	}
	return nil
}
