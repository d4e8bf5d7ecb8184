package console

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/wzt1001/lightrag-on-aws/internal/ingest"
	"github.com/wzt1001/lightrag-on-aws/internal/query"
	"github.com/wzt1001/lightrag-on-aws/internal/variables"
)

// registerCommands installs the builtin command set.
func registerCommands(r *Registry) {
	r.Register(&Command{Name: "help", Usage: "help", Summary: "List available commands.", Run: runHelp})
	r.Register(&Command{Name: "contexts", Usage: "contexts", Summary: "List contexts on the server.", Run: runContexts})
	r.Register(&Command{Name: "create", Usage: "create <name> [description...]", Summary: "Create a context.", Run: runCreate})
	r.Register(&Command{Name: "use", Usage: "use <id|none>", Summary: "Select a context, or clear the selection.", Run: runUse})
	r.Register(&Command{Name: "delete", Usage: "delete <id>", Summary: "Delete a context after confirmation.", Run: runDelete})
	r.Register(&Command{Name: "text", Usage: "text <content...>", Summary: "Ingest a text payload.", Run: runText})
	r.Register(&Command{Name: "ingest", Usage: "ingest <file...>", Summary: "Upload files one at a time, in order.", Run: runIngest})
	r.Register(&Command{Name: "clear", Usage: "clear", Summary: "Delete all ingested content of the selected context.", Run: runClear})
	r.Register(&Command{Name: "vars", Usage: "vars", Summary: "Load and list the context's prompt variables.", Run: runVars})
	r.Register(&Command{Name: "edit", Usage: "edit <variable>", Summary: "Start editing a prompt variable.", Run: runEdit})
	r.Register(&Command{Name: "set", Usage: "set <text...>", Summary: "Replace the scalar edit text.", Run: runSet})
	r.Register(&Command{Name: "tag", Usage: "tag <text...>", Summary: "Append a tag to the list edit.", Run: runTag})
	r.Register(&Command{Name: "untag", Usage: "untag <index>", Summary: "Remove the tag at a position (1-based).", Run: runUntag})
	r.Register(&Command{Name: "commit", Usage: "commit", Summary: "Submit the in-progress variable edit.", Run: runCommit})
	r.Register(&Command{Name: "query", Usage: "query <text...>", Summary: "Run a query across all four retrieval modes.", Run: runQuery})
	r.Register(&Command{Name: "tab", Usage: "tab <" + modeList() + ">", Summary: "Switch the visible result tab.", Run: runTab})
	r.Register(&Command{Name: "graph", Usage: "graph", Summary: "Fetch the rendered knowledge graph.", Run: runGraph})
	r.Register(&Command{Name: "regen", Usage: "regen", Summary: "Force the graph to be rebuilt, then fetch it.", Run: runRegen})
	r.Register(&Command{Name: "files", Usage: "files", Summary: "List the server's generated store files.", Run: runFiles})
	r.Register(&Command{Name: "cat", Usage: "cat <file>", Summary: "Print one generated store file.", Run: runCat})
}

func runHelp(_ context.Context, c *Console, _ []string) error {
	c.header.Fprintln(c.out, "Commands:")
	for _, cmd := range c.registry.All() {
		fmt.Fprintf(c.out, "  %-40s %s\n", cmd.Usage, cmd.Summary)
	}
	return nil
}

func runContexts(ctx context.Context, c *Console, _ []string) error {
	c.store.Load(ctx)
	contexts := c.store.List()
	if len(contexts) == 0 {
		fmt.Fprintln(c.out, "No contexts yet. Use 'create <name>' to add one.")
		return nil
	}
	selected := c.store.Selected()
	for _, item := range contexts {
		marker := " "
		if item.ID == selected {
			marker = "*"
		}
		fmt.Fprintf(c.out, "%s %s  %s", marker, item.ID, item.Name)
		if item.Description != "" {
			fmt.Fprintf(c.out, "  (%s)", item.Description)
		}
		fmt.Fprintln(c.out)
	}
	return nil
}

func runCreate(ctx context.Context, c *Console, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: create <name> [description...]")
	}
	description := strings.Join(args[1:], " ")
	created, err := c.store.Create(ctx, args[0], description)
	if err != nil {
		return err
	}
	c.success.Fprintf(c.out, "Created context %s (%s).\n", created.Name, created.ID)
	return nil
}

func runUse(_ context.Context, c *Console, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: use <id|none>")
	}
	if args[0] == "none" {
		c.store.Select("")
		fmt.Fprintln(c.out, "Selection cleared.")
		return nil
	}
	item, ok := c.store.Get(args[0])
	if !ok {
		return fmt.Errorf("unknown context %q, try 'contexts'", args[0])
	}
	c.store.Select(item.ID)
	fmt.Fprintf(c.out, "Using context %s.\n", item.Name)
	return nil
}

func runDelete(ctx context.Context, c *Console, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: delete <id>")
	}
	name := args[0]
	if item, ok := c.store.Get(args[0]); ok {
		name = item.Name
	}
	if !c.confirm(fmt.Sprintf("Delete context %s and all of its content?", name)) {
		fmt.Fprintln(c.out, "Aborted.")
		return nil
	}
	if err := c.store.Delete(ctx, args[0]); err != nil {
		return err
	}
	c.success.Fprintf(c.out, "Deleted context %s.\n", name)
	return nil
}

func runText(ctx context.Context, c *Console, args []string) error {
	message, err := c.ingester.UploadText(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}
	c.success.Fprintln(c.out, message)
	return nil
}

func runIngest(ctx context.Context, c *Console, args []string) error {
	items := make([]ingest.Item, 0, len(args))
	for _, path := range args {
		items = append(items, ingest.FileItem(path))
	}
	summary, err := c.ingester.UploadFiles(ctx, items)
	if err != nil {
		return err
	}
	c.success.Fprintln(c.out, summary)
	return nil
}

func runClear(ctx context.Context, c *Console, _ []string) error {
	message, err := c.ingester.Clear(ctx)
	if err != nil {
		return err
	}
	c.success.Fprintln(c.out, message)
	return nil
}

func runVars(ctx context.Context, c *Console, _ []string) error {
	if err := c.editor.Load(ctx); err != nil {
		return err
	}
	for _, v := range c.editor.Variables() {
		switch tv := v.Value.(type) {
		case variables.ScalarValue:
			fmt.Fprintf(c.out, "%s (scalar): %s\n", v.Name, string(tv))
		case variables.ListValue:
			fmt.Fprintf(c.out, "%s (list): %s\n", v.Name, strings.Join(tv, ", "))
		}
	}
	return nil
}

func runEdit(_ context.Context, c *Console, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: edit <variable>")
	}
	if err := c.editor.SelectVariable(args[0]); err != nil {
		return err
	}
	value, _ := c.editor.EditValue()
	switch tv := value.(type) {
	case variables.ScalarValue:
		fmt.Fprintf(c.out, "Editing %s (scalar). Current: %s\n", args[0], string(tv))
	case variables.ListValue:
		fmt.Fprintf(c.out, "Editing %s (list). Current: %s\n", args[0], strings.Join(tv, ", "))
	}
	return nil
}

func runSet(_ context.Context, c *Console, args []string) error {
	return c.editor.SetScalar(strings.Join(args, " "))
}

func runTag(_ context.Context, c *Console, args []string) error {
	return c.editor.AddTag(strings.Join(args, " "))
}

func runUntag(_ context.Context, c *Console, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: untag <index>")
	}
	i, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("index must be a number, got %q", args[0])
	}
	return c.editor.RemoveTag(i - 1)
}

func runCommit(ctx context.Context, c *Console, _ []string) error {
	if !c.editor.CanCommit() {
		return errors.New("nothing to commit: the edit is empty")
	}
	message, err := c.editor.Commit(ctx)
	if err != nil {
		return err
	}
	c.success.Fprintln(c.out, message)
	return nil
}

func runQuery(ctx context.Context, c *Console, args []string) error {
	if err := c.queries.Submit(ctx, strings.Join(args, " ")); err != nil {
		return err
	}
	return renderActiveTab(c)
}

func runTab(_ context.Context, c *Console, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: tab <%s>", modeList())
	}
	if err := c.queries.SelectTab(query.Mode(args[0])); err != nil {
		return err
	}
	return renderActiveTab(c)
}

// modeList renders the retrieval modes for usage text, in display order.
func modeList() string {
	modes := query.Modes()
	names := make([]string, len(modes))
	for i, m := range modes {
		names[i] = string(m)
	}
	return strings.Join(names, "|")
}

func renderActiveTab(c *Console) error {
	text, ok := c.queries.Active()
	if !ok {
		fmt.Fprintln(c.out, "No results yet. Use 'query <text>'.")
		return nil
	}
	c.header.Fprintf(c.out, "[%s]\n", c.queries.Tab())
	fmt.Fprintln(c.out, text)
	return nil
}

func runGraph(ctx context.Context, c *Console, _ []string) error {
	handle, err := c.graphs.Load(ctx)
	if err != nil {
		return err
	}
	c.success.Fprintf(c.out, "Graph rendered to %s\n", handle.Path())
	return nil
}

func runRegen(ctx context.Context, c *Console, _ []string) error {
	handle, err := c.graphs.Regenerate(ctx)
	if err != nil {
		return err
	}
	c.success.Fprintf(c.out, "Graph rendered to %s\n", handle.Path())
	return nil
}

func runFiles(ctx context.Context, c *Console, _ []string) error {
	contextID := c.store.Selected()
	if contextID == "" {
		return errors.New("no context selected")
	}
	files, err := c.store.ListGeneratedFiles(ctx)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Fprintln(c.out, "No generated files.")
		return nil
	}
	for _, name := range files {
		fmt.Fprintln(c.out, name)
	}
	return nil
}

func runCat(ctx context.Context, c *Console, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: cat <file>")
	}
	content, err := c.store.GeneratedFile(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, content)
	return nil
}
