package koi

// CheckFunc is a predicate over an invocation context,
// returning false denies the invocation, returning an error denies it and
// surfaces the fault through the error-hook path
type CheckFunc func(ctx *Ctx) (bool, error)

// Check is a named predicate gating command execution
type Check struct {
	name string
	fn   CheckFunc
}

func NewCheck(name string, fn CheckFunc) Check {
	return Check{name: name, fn: fn}
}

func (c Check) Name() string {
	return c.name
}

// evaluateChecks runs the scope chain in precedence order (global, module,
// command), short-circuiting on the first deny,
// a nil return means every check allowed the invocation
func evaluateChecks(ctx *Ctx, chain ...[]Check) error {
	for _, scope := range chain {
		for _, check := range scope {
			ok, err := check.fn(ctx)
			if err != nil {
				return CheckFailedError{check: check.name, err: err}
			}
			if !ok {
				return CheckFailedError{check: check.name}
			}
		}
	}
	return nil
}

// Bundle is a named, reusable set of checks and hooks that multiple modules
// can attach to themselves, sharing gating logic without duplication
type Bundle struct {
	name   string
	checks []Check
	hooks  hookSet
}

func NewBundle(name string) *Bundle {
	return &Bundle{name: name}
}

func (b *Bundle) Name() string {
	return b.name
}

func (b *Bundle) AddCheck(check Check) *Bundle {
	b.checks = append(b.checks, check)
	return b
}

func (b *Bundle) PreRun(fn HookFunc) *Bundle {
	b.hooks.pre = append(b.hooks.pre, fn)
	return b
}

func (b *Bundle) PostRun(fn HookFunc) *Bundle {
	b.hooks.post = append(b.hooks.post, fn)
	return b
}

func (b *Bundle) OnError(fn ErrorHookFunc) *Bundle {
	b.hooks.err = append(b.hooks.err, fn)
	return b
}
