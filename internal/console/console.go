// Package console is the thin command surface over the session, ingestion,
// variable, query and graph components. It owns no domain state of its
// own; every command reads and mutates the components it wraps.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/wzt1001/lightrag-on-aws/internal/graphview"
	"github.com/wzt1001/lightrag-on-aws/internal/ingest"
	"github.com/wzt1001/lightrag-on-aws/internal/query"
	"github.com/wzt1001/lightrag-on-aws/internal/session"
	"github.com/wzt1001/lightrag-on-aws/internal/variables"
)

// Components bundles everything a console session operates on.
type Components struct {
	Store    *session.Store
	Editor   *variables.Editor
	Ingester *ingest.Controller
	Queries  *query.Dispatcher
	Graphs   *graphview.Manager
}

// Console reads commands, dispatches them against the components, and
// renders their outcomes.
type Console struct {
	out      io.Writer
	in       *bufio.Reader
	registry *Registry

	store    *session.Store
	editor   *variables.Editor
	ingester *ingest.Controller
	queries  *query.Dispatcher
	graphs   *graphview.Manager

	header  *color.Color
	success *color.Color
	failure *color.Color
}

// New wires a console over the given components, reading interactive input
// (confirmations, REPL lines) from in and writing to out.
func New(out io.Writer, in io.Reader, parts Components) *Console {
	c := &Console{
		out:      out,
		in:       bufio.NewReader(in),
		registry: NewRegistry(),
		store:    parts.Store,
		editor:   parts.Editor,
		ingester: parts.Ingester,
		queries:  parts.Queries,
		graphs:   parts.Graphs,
		header:   color.New(color.Bold),
		success:  color.New(color.FgGreen),
		failure:  color.New(color.FgRed),
	}
	registerCommands(c.registry)
	c.ingester.OnProgress(func(p ingest.Progress) {
		if p.Active {
			fmt.Fprintf(out, "processing %d of %d: %s\n", p.Completed+1, p.Total, p.Current)
		}
	})
	return c
}

// Dispatch runs a single command line. Errors are returned rather than
// rendered: the REPL shows them inline, while one-shot callers propagate
// them into the process exit code.
func (c *Console) Dispatch(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return nil
	}
	cmd, ok := c.registry.Lookup(args[0])
	if !ok {
		return fmt.Errorf("unknown command %q, try 'help'", args[0])
	}
	return cmd.Run(ctx, c, args[1:])
}

// Repl reads command lines until EOF or an exit command.
func (c *Console) Repl(ctx context.Context) error {
	for {
		fmt.Fprint(c.out, c.prompt())
		line, err := c.in.ReadString('\n')
		if err == io.EOF {
			fmt.Fprintln(c.out)
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read command: %w", err)
		}
		args := strings.Fields(line)
		if len(args) > 0 && (args[0] == "exit" || args[0] == "quit") {
			return nil
		}
		if err := c.Dispatch(ctx, args); err != nil {
			c.failure.Fprintln(c.out, err.Error())
		}
	}
}

// prompt shows the selected context's name so the user always knows which
// knowledge base they are operating on.
func (c *Console) prompt() string {
	if id := c.store.Selected(); id != "" {
		if current, ok := c.store.Get(id); ok {
			return fmt.Sprintf("[%s] > ", current.Name)
		}
		return fmt.Sprintf("[%s] > ", id)
	}
	return "> "
}

// confirm asks a yes/no question on the console's input stream and only
// returns true on an explicit "y" or "yes".
func (c *Console) confirm(question string) bool {
	fmt.Fprintf(c.out, "%s [y/N]: ", question)
	line, err := c.in.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
