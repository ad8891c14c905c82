package koi

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// Handler is the application callback invoked once an invocation has been
// resolved, checked and its options coerced
type Handler func(ctx *Ctx) error

type nodeKind uint8

const (
	kindCommand nodeKind = iota
	kindGroup
	kindSubcommand
)

func (k nodeKind) String() string {
	switch k {
	case kindCommand:
		return "command"
	case kindGroup:
		return "subcommand group"
	case kindSubcommand:
		return "subcommand"
	default:
		return fmt.Sprintf("nodeKind(%d)", uint8(k))
	}
}

// Command is a node in the command tree: a top-level command, a subcommand
// group or a subcommand,
// a node is exactly one of the three: groups carry children and no handler,
// subcommands carry a handler and no children, a top-level command carries
// either a handler or children,
// nodes are immutable once registered, re-registration requires an explicit
// Unregister first
type Command struct {
	kind        nodeKind
	name        string
	description string
	options     []*Option
	handler     Handler

	permissions *int64
	dmAllowed   bool

	parent   *Command
	children []*Command

	checks []Check
	hooks  hookSet

	module *Module
}

// NewCommand creates a top-level command node
func NewCommand(name string, description string) *Command {
	return &Command{
		kind:        kindCommand,
		name:        strings.ToLower(name),
		description: description,
	}
}

// NewSubcommand creates a subcommand leaf, attach it with AddSubcommand
func NewSubcommand(name string, description string) *Command {
	return &Command{
		kind:        kindSubcommand,
		name:        strings.ToLower(name),
		description: description,
	}
}

// NewSubcommandGroup creates a subcommand group, attach it with AddSubcommand
func NewSubcommandGroup(name string, description string) *Command {
	return &Command{
		kind:        kindGroup,
		name:        strings.ToLower(name),
		description: description,
	}
}

func (c *Command) Name() string {
	return c.name
}

func (c *Command) Description() string {
	return c.description
}

// Handle sets the handler invoked for this node
func (c *Command) Handle(fn Handler) *Command {
	c.handler = fn
	return c
}

// Options declares the parameters of this node in order,
// required options must precede optional ones
func (c *Command) Options(opts ...*Option) *Command {
	c.options = append(c.options, opts...)
	return c
}

// Permissions sets the default-permission bitmask exported verbatim to the
// platform's command-sync mechanism
func (c *Command) Permissions(bits int64) *Command {
	c.permissions = &bits
	return c
}

// AllowDMs sets whether the command is usable outside of guilds
func (c *Command) AllowDMs(allow bool) *Command {
	c.dmAllowed = allow
	return c
}

// AddSubcommand attaches a subcommand or subcommand group as a child of this node
func (c *Command) AddSubcommand(sub *Command) *Command {
	sub.parent = c
	c.children = append(c.children, sub)
	return c
}

// AddCheck appends a command-scoped check, evaluated after global and module checks
func (c *Command) AddCheck(check Check) *Command {
	c.checks = append(c.checks, check)
	return c
}

// PreRun appends a command-scoped pre-run hook
func (c *Command) PreRun(fn HookFunc) *Command {
	c.hooks.pre = append(c.hooks.pre, fn)
	return c
}

// PostRun appends a command-scoped post-run hook
func (c *Command) PostRun(fn HookFunc) *Command {
	c.hooks.post = append(c.hooks.post, fn)
	return c
}

// OnError appends a command-scoped error hook
func (c *Command) OnError(fn ErrorHookFunc) *Command {
	c.hooks.err = append(c.hooks.err, fn)
	return c
}

// Path returns the node names from the top-level command down to this node
func (c *Command) Path() []string {
	if c.parent == nil {
		return []string{c.name}
	}
	return append(c.parent.Path(), c.name)
}

// Module returns the module this node's top-level command belongs to, or nil
func (c *Command) Module() *Module {
	return c.root().module
}

func (c *Command) root() *Command {
	n := c
	for n.parent != nil {
		n = n.parent
	}
	return n
}

// child returns the direct child with the given name, or nil
func (c *Command) child(name string) *Command {
	for _, sub := range c.children {
		if sub.name == name {
			return sub
		}
	}
	return nil
}

// validate checks the whole subtree rooted at this node,
// returned errors are InvalidSchemaError or DuplicateCommandError
func (c *Command) validate(scope string) error {
	if c.name == "" {
		return InvalidSchemaError{command: c.name, reason: "command has no name"}
	}
	if c.description == "" {
		return InvalidSchemaError{command: c.name, reason: "command has no description"}
	}
	switch c.kind {
	case kindCommand:
		if c.handler != nil && len(c.children) > 0 {
			return InvalidSchemaError{command: c.name, reason: "a command cannot carry both a handler and subcommands"}
		}
		if c.handler == nil && len(c.children) == 0 {
			return InvalidSchemaError{command: c.name, reason: "a command must carry a handler or subcommands"}
		}
	case kindGroup:
		if c.handler != nil {
			return InvalidSchemaError{command: c.name, reason: "a subcommand group cannot carry a handler"}
		}
		if len(c.children) == 0 {
			return InvalidSchemaError{command: c.name, reason: "a subcommand group must carry at least one subcommand"}
		}
		if c.parent == nil || c.parent.kind != kindCommand {
			return InvalidSchemaError{command: c.name, reason: "a subcommand group must be attached to a top-level command"}
		}
	case kindSubcommand:
		if c.handler == nil {
			return InvalidSchemaError{command: c.name, reason: "a subcommand must carry a handler"}
		}
		if len(c.children) > 0 {
			return InvalidSchemaError{command: c.name, reason: "a subcommand cannot carry children"}
		}
	}
	if len(c.children) > 0 && len(c.options) > 0 {
		return InvalidSchemaError{command: c.name, reason: "a node with subcommands cannot declare its own options"}
	}
	if err := c.validateOptions(); err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(c.children))
	for _, sub := range c.children {
		if sub.kind == kindCommand {
			return InvalidSchemaError{command: c.name, reason: fmt.Sprintf(`child "%s" is a top-level command`, sub.name)}
		}
		if sub.kind == kindGroup && c.kind != kindCommand {
			return InvalidSchemaError{command: c.name, reason: "subcommand groups cannot nest"}
		}
		if _, ok := seen[sub.name]; ok {
			return DuplicateCommandError{scope: scope, path: sub.Path()}
		}
		seen[sub.name] = struct{}{}
		if err := sub.validate(scope); err != nil {
			return err
		}
	}
	return nil
}

// validateOptions enforces per-option rules plus ordering and name uniqueness
// across the declared list
func (c *Command) validateOptions() error {
	seen := make(map[string]struct{}, len(c.options))
	optionalSeen := false
	for _, o := range c.options {
		if err := o.validate(); err != nil {
			return InvalidSchemaError{command: c.name, reason: err.Error()}
		}
		if _, ok := seen[o.name]; ok {
			return InvalidSchemaError{command: c.name, reason: fmt.Sprintf(`option "%s" declared more than once`, o.name)}
		}
		seen[o.name] = struct{}{}
		if o.required && optionalSeen {
			return InvalidSchemaError{command: c.name, reason: fmt.Sprintf(`required option "%s" declared after an optional option`, o.name)}
		}
		if !o.required {
			optionalSeen = true
		}
	}
	return nil
}

// option returns the declared option with the given name, or nil
func (c *Command) option(name string) *Option {
	for _, o := range c.options {
		if o.name == name {
			return o
		}
	}
	return nil
}

// applicationCommand exports this top-level node and its subtree verbatim for
// the platform's command-sync mechanism
func (c *Command) applicationCommand() *discordgo.ApplicationCommand {
	dm := c.dmAllowed
	a := &discordgo.ApplicationCommand{
		Type:                     discordgo.ChatApplicationCommand,
		Name:                     c.name,
		Description:              c.description,
		DefaultMemberPermissions: c.permissions,
		DMPermission:             &dm,
	}
	a.Options = c.applicationCommandOptions()
	return a
}

func (c *Command) applicationCommandOptions() []*discordgo.ApplicationCommandOption {
	if len(c.children) == 0 {
		opts := make([]*discordgo.ApplicationCommandOption, 0, len(c.options))
		for _, o := range c.options {
			opts = append(opts, o.applicationCommandOption())
		}
		return opts
	}
	opts := make([]*discordgo.ApplicationCommandOption, 0, len(c.children))
	for _, sub := range c.children {
		typ := discordgo.ApplicationCommandOptionSubCommand
		if sub.kind == kindGroup {
			typ = discordgo.ApplicationCommandOptionSubCommandGroup
		}
		opts = append(opts, &discordgo.ApplicationCommandOption{
			Type:        typ,
			Name:        sub.name,
			Description: sub.description,
			Options:     sub.applicationCommandOptions(),
		})
	}
	return opts
}
