package koi

import (
	"sync"

	"github.com/bwmarrin/discordgo"
)

// GlobalScope is the scope commands resolvable everywhere are registered under,
// any other scope value is a guild ID
const GlobalScope = ""

// Registry holds the registered command trees keyed by (scope, name),
// lookups are concurrent, registration takes the write lock and is expected
// to happen at startup
type Registry struct {
	mu     sync.RWMutex
	scopes map[string]*scopeEntry
}

type scopeEntry struct {
	byName map[string]*Command
	order  []string
}

func NewRegistry() *Registry {
	return &Registry{scopes: map[string]*scopeEntry{}}
}

// Register validates and inserts a top-level command tree under the given scope,
// it fails with DuplicateCommandError if the (scope, name) is taken and with
// InvalidSchemaError on schema violations, a failed registration leaves the
// registry unchanged
func (r *Registry) Register(scope string, cmd *Command) error {
	if cmd.kind != kindCommand {
		return InvalidSchemaError{command: cmd.name, reason: "only top-level commands can be registered, attach " + cmd.kind.String() + "s with AddSubcommand"}
	}
	if err := cmd.validate(scope); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.scopes[scope]
	if !ok {
		entry = &scopeEntry{byName: map[string]*Command{}}
		r.scopes[scope] = entry
	}
	if _, ok := entry.byName[cmd.name]; ok {
		return DuplicateCommandError{scope: scope, path: []string{cmd.name}}
	}
	entry.byName[cmd.name] = cmd
	entry.order = append(entry.order, cmd.name)
	return nil
}

// Unregister removes a top-level command by name, reporting whether it existed
func (r *Registry) Unregister(scope string, name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.scopes[scope]
	if !ok {
		return false
	}
	if _, ok := entry.byName[name]; !ok {
		return false
	}
	delete(entry.byName, name)
	for i, n := range entry.order {
		if n == name {
			entry.order = append(entry.order[:i], entry.order[i+1:]...)
			break
		}
	}
	return true
}

// Resolve returns the unique node matching the path, trying the given scope
// first and falling back to the global scope,
// an exact top-level command always wins over a subcommand path prefix
func (r *Registry) Resolve(scope string, path []string) (*Command, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(path) == 0 {
		return nil, UnknownCommandError{scope: scope, path: path}
	}
	tried := []string{scope}
	if scope != GlobalScope {
		tried = append(tried, GlobalScope)
	}
	for _, sc := range tried {
		entry, ok := r.scopes[sc]
		if !ok {
			continue
		}
		node, ok := entry.byName[path[0]]
		if !ok {
			continue
		}
		//exact top-level match wins over walking the same name as a prefix
		if node.handler != nil {
			return node, nil
		}
		for _, name := range path[1:] {
			node = node.child(name)
			if node == nil {
				break
			}
		}
		if node != nil && node.handler != nil {
			return node, nil
		}
	}
	return nil, UnknownCommandError{scope: scope, path: path}
}

// Commands returns the top-level commands of a scope in registration order
func (r *Registry) Commands(scope string) []*Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.scopes[scope]
	if !ok {
		return nil
	}
	out := make([]*Command, 0, len(entry.order))
	for _, name := range entry.order {
		out = append(out, entry.byName[name])
	}
	return out
}

// ApplicationCommands exports a scope's commands for the platform's
// command-sync mechanism
func (r *Registry) ApplicationCommands(scope string) []*discordgo.ApplicationCommand {
	cmds := r.Commands(scope)
	out := make([]*discordgo.ApplicationCommand, 0, len(cmds))
	for _, c := range cmds {
		out = append(out, c.applicationCommand())
	}
	return out
}
