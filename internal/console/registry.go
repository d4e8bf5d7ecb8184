package console

import (
	"context"
	"fmt"
	"sort"
)

// Command is one named console command.
type Command struct {
	Name    string
	Usage   string
	Summary string
	Run     func(ctx context.Context, c *Console, args []string) error
}

// Registry maps command names to their implementations.
type Registry struct {
	commands map[string]*Command
}

// NewRegistry creates an empty command registry.
func NewRegistry() *Registry {
	return &Registry{commands: make(map[string]*Command)}
}

// Register adds a command. Registering the same name twice is a programmer
// error and panics.
func (r *Registry) Register(cmd *Command) {
	if _, exists := r.commands[cmd.Name]; exists {
		panic(fmt.Sprintf("console: command %q registered twice", cmd.Name))
	}
	r.commands[cmd.Name] = cmd
}

// Lookup finds a command by name.
func (r *Registry) Lookup(name string) (*Command, bool) {
	cmd, ok := r.commands[name]
	return cmd, ok
}

// All returns every command sorted by name.
func (r *Registry) All() []*Command {
	out := make([]*Command, 0, len(r.commands))
	for _, cmd := range r.commands {
		out = append(out, cmd)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
