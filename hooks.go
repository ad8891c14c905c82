package koi

// HookFunc is a lifecycle callback bound to the pre-run or post-run stage,
// a pre-run error aborts the invocation before the handler, a post-run error
// is reported but does not undo handler side effects
type HookFunc func(ctx *Ctx) error

// ErrorHookFunc receives a fault and the context it occurred in,
// registering at least one error hook at any scope marks faults as handled
type ErrorHookFunc func(ctx *Ctx, err error)

// ErrorHookOrder selects the scope direction error hooks run in,
// pre-run and post-run hooks always run global, module, command
type ErrorHookOrder uint8

const (
	//InnermostFirst runs error hooks command, module, global
	InnermostFirst ErrorHookOrder = iota
	//OutermostFirst runs error hooks global, module, command
	OutermostFirst
)

// hookSet holds the hooks of one scope, each stage in registration order
type hookSet struct {
	pre  []HookFunc
	post []HookFunc
	err  []ErrorHookFunc
}

func (h *hookSet) extend(other hookSet) {
	h.pre = append(h.pre, other.pre...)
	h.post = append(h.post, other.post...)
	h.err = append(h.err, other.err...)
}

// runPre runs pre-run hooks across the scope chain in order, aborting on the
// first fault
func runPre(ctx *Ctx, chain ...*hookSet) error {
	for _, scope := range chain {
		if scope == nil {
			continue
		}
		for _, fn := range scope.pre {
			if err := fn(ctx); err != nil {
				return err
			}
		}
	}
	return nil
}

// runPost runs every post-run hook across the scope chain regardless of
// individual faults, returning the faults for reporting
func runPost(ctx *Ctx, chain ...*hookSet) []error {
	var faults []error
	for _, scope := range chain {
		if scope == nil {
			continue
		}
		for _, fn := range scope.post {
			if err := fn(ctx); err != nil {
				faults = append(faults, err)
			}
		}
	}
	return faults
}

// runError routes a fault through the error hooks of the scope chain,
// chain is given outermost first and reversed for InnermostFirst,
// it reports whether any hook received the fault
func runError(ctx *Ctx, err error, order ErrorHookOrder, chain ...*hookSet) bool {
	if order == InnermostFirst {
		reversed := make([]*hookSet, 0, len(chain))
		for i := len(chain) - 1; i >= 0; i-- {
			reversed = append(reversed, chain[i])
		}
		chain = reversed
	}
	handled := false
	for _, scope := range chain {
		if scope == nil {
			continue
		}
		for _, fn := range scope.err {
			fn(ctx, err)
			handled = true
		}
	}
	return handled
}
