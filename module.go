package koi

import "time"

// Module is a named unit of related commands, checks and hooks, loaded and
// attached as one,
// module checks and hooks apply to every command the module owns
type Module struct {
	name     string
	commands []*Command
	checks   []Check
	hooks    hookSet

	//autoDefer, when set, sends the deferred acknowledgement automatically
	//if a handler has not responded within the threshold
	autoDefer time.Duration
}

func NewModule(name string) *Module {
	return &Module{name: name}
}

func (m *Module) Name() string {
	return m.name
}

// AddCommand takes ownership of a top-level command tree
func (m *Module) AddCommand(cmd *Command) *Module {
	cmd.module = m
	m.commands = append(m.commands, cmd)
	return m
}

// Commands returns the module's top-level commands in declaration order
func (m *Module) Commands() []*Command {
	return m.commands
}

// AddCheck appends a module-scoped check, evaluated after global checks and
// before command checks
func (m *Module) AddCheck(check Check) *Module {
	m.checks = append(m.checks, check)
	return m
}

// PreRun appends a module-scoped pre-run hook
func (m *Module) PreRun(fn HookFunc) *Module {
	m.hooks.pre = append(m.hooks.pre, fn)
	return m
}

// PostRun appends a module-scoped post-run hook
func (m *Module) PostRun(fn HookFunc) *Module {
	m.hooks.post = append(m.hooks.post, fn)
	return m
}

// OnError appends a module-scoped error hook
func (m *Module) OnError(fn ErrorHookFunc) *Module {
	m.hooks.err = append(m.hooks.err, fn)
	return m
}

// Attach copies a bundle's checks and hooks into this module,
// the same bundle can be attached to any number of modules
func (m *Module) Attach(b *Bundle) *Module {
	m.checks = append(m.checks, b.checks...)
	m.hooks.extend(b.hooks)
	return m
}

// AutoDefer makes the engine acknowledge invocations of this module's
// commands automatically when the handler is still running after the
// threshold, keeping slow handlers inside the response window
func (m *Module) AutoDefer(threshold time.Duration) *Module {
	m.autoDefer = threshold
	return m
}
