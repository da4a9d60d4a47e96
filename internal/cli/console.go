// Package cli implements the interactive terminal front end for the client.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"gptodo/internal/client"
	"gptodo/internal/models"
)

const helpText = `Type a request in plain language, for example "Add a task to buy milk".

Commands:
  /show            show the current tasks
  /history         list accepted prompts, newest first
  /toggle <id>     mark a task done or not done
  /select <id>     select or deselect a task
  /rewind <n>      restore the state of history entry n (0 is newest)
  /retry           resubmit the last failed prompt
  /reset           clear all tasks and history
  /help            show this message
  /quit            exit
`

const dateLayout = "Mon Jan 02 2006"

// Console reads lines from in and renders the Manager's state to out.
type Console struct {
	mgr *client.Manager
	in  io.Reader
	out io.Writer

	done     *color.Color
	undone   *color.Color
	selected *color.Color
	faint    *color.Color
	failed   *color.Color
	active   *color.Color
}

// NewConsole creates a Console. When colored is false no escape codes are written.
func NewConsole(mgr *client.Manager, in io.Reader, out io.Writer, colored bool) *Console {
	c := &Console{
		mgr:      mgr,
		in:       in,
		out:      out,
		done:     color.New(color.FgGreen),
		undone:   color.New(color.FgRed),
		selected: color.New(color.FgCyan, color.Bold),
		faint:    color.New(color.Faint),
		failed:   color.New(color.FgRed, color.Bold),
		active:   color.New(color.FgBlue, color.Italic),
	}
	for _, col := range []*color.Color{c.done, c.undone, c.selected, c.faint, c.failed, c.active} {
		if colored {
			col.EnableColor()
		} else {
			col.DisableColor()
		}
	}
	return c
}

// Run processes input until EOF, /quit or ctx is done.
func (c *Console) Run(ctx context.Context) error {
	fmt.Fprintln(c.out, c.faint.Sprint(`Try "Show all my tasks", or /help for commands.`))
	c.renderState(c.mgr.State(), "")

	scanner := bufio.NewScanner(c.in)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		c.writeMarker()
		if !scanner.Scan() {
			fmt.Fprintln(c.out)
			return scanner.Err()
		}
		if quit := c.Exec(ctx, scanner.Text()); quit {
			return nil
		}
	}
}

// Exec handles one input line and reports whether the console should exit.
func (c *Console) Exec(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	if !strings.HasPrefix(line, "/") {
		c.submit(ctx, line)
		return false
	}

	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "/quit", "/exit":
		return true
	case "/help":
		fmt.Fprint(c.out, helpText)
	case "/show":
		c.renderState(c.mgr.State(), "")
	case "/history":
		c.renderHistory()
	case "/toggle":
		c.withID(arg, c.mgr.ToggleCompletion)
	case "/select":
		c.withID(arg, c.mgr.ToggleSelection)
	case "/rewind":
		n, err := strconv.Atoi(arg)
		if err != nil {
			c.errorf("usage: /rewind <n>")
			return false
		}
		if err := c.mgr.RewindTo(n); err != nil {
			c.errorf("%v", err)
			return false
		}
		c.renderState(c.mgr.State(), "")
	case "/reset":
		if err := c.mgr.Reset(ctx); err != nil {
			c.errorf("%s", describeError(err))
			return false
		}
		c.renderState(c.mgr.State(), "")
	case "/retry":
		input := c.mgr.Input()
		if input == "" {
			c.errorf("nothing to retry")
			return false
		}
		c.submit(ctx, input)
	default:
		c.errorf("unknown command: %s", name)
	}
	return false
}

func (c *Console) submit(ctx context.Context, prompt string) {
	fmt.Fprintln(c.out, c.faint.Sprint("thinking..."))

	if err := c.mgr.SubmitPrompt(ctx, prompt); err != nil {
		c.errorf("%s", describeError(err))
		return
	}

	fmt.Fprintln(c.out, c.active.Sprintf("“%s”", c.mgr.LastApplied()))
	c.renderState(c.mgr.State(), "")
}

func (c *Console) withID(arg string, fn func(int64) bool) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		c.errorf("expected a task id, got %q", arg)
		return
	}
	if !fn(id) {
		c.errorf("no task with id %d", id)
		return
	}
	c.renderState(c.mgr.State(), "")
}

func (c *Console) renderHistory() {
	history := c.mgr.History()
	if len(history) == 0 {
		fmt.Fprintln(c.out, c.faint.Sprint("No history yet"))
		return
	}
	for i, entry := range history {
		fmt.Fprintf(c.out, "%d  %s\n", i, c.active.Sprintf("“%s”", entry.Prompt))
		c.renderState(entry.State, "   ")
	}
}

func (c *Console) renderState(state models.AppState, indent string) {
	visible := state.VisibleTasks()
	for _, task := range visible {
		c.renderTask(state, task, indent)
	}

	if len(visible) == 0 {
		fmt.Fprintln(c.out, indent+c.faint.Sprint("No tasks found"))
		if len(state.Tasks) > 0 {
			fmt.Fprintln(c.out, indent+c.faint.Sprint("Try saying “Show all my tasks”"))
		} else {
			fmt.Fprintln(c.out, indent+"Try saying “Add a task”")
		}
	}

	if hidden := state.HiddenCount(); hidden > 0 {
		suffix := ""
		if hidden > 1 {
			suffix = "s"
		}
		fmt.Fprintln(c.out, indent+c.faint.Sprintf("%d task%s hidden", hidden, suffix))
	}
}

func (c *Console) renderTask(state models.AppState, task models.Task, indent string) {
	var b strings.Builder
	b.WriteString(indent)

	if state.IsSelected(task.ID) {
		b.WriteString(c.selected.Sprint("> "))
	} else {
		b.WriteString("  ")
	}
	if task.IsSubtask() {
		b.WriteString("    ")
	}

	if task.Completed {
		b.WriteString(c.done.Sprint("✅"))
	} else {
		b.WriteString(c.undone.Sprint("❌"))
	}
	fmt.Fprintf(&b, " %s ", c.faint.Sprintf("#%d", task.ID))

	if icon := task.IconOrEmpty(); icon != "" {
		b.WriteString(icon + " ")
	}
	if state.IsSelected(task.ID) {
		b.WriteString(c.selected.Sprint(task.Text))
	} else {
		b.WriteString(task.Text)
	}
	if created, ok := task.Created(); ok {
		b.WriteString("  " + c.faint.Sprint(created.Format(dateLayout)))
	}
	if edited, ok := task.Edited(); ok {
		b.WriteString("  " + c.faint.Sprint("edited "+edited.Format(dateLayout)))
	}

	fmt.Fprintln(c.out, b.String())
}

func (c *Console) writeMarker() {
	if c.mgr.ErrorVisible() {
		fmt.Fprint(c.out, c.failed.Sprint("> "))
		return
	}
	fmt.Fprint(c.out, "> ")
}

func (c *Console) errorf(format string, args ...any) {
	fmt.Fprintln(c.out, c.failed.Sprintf("error: "+format, args...))
}

func describeError(err error) string {
	switch {
	case errors.Is(err, client.ErrEmptyPrompt):
		return "prompt is empty"
	case errors.Is(err, client.ErrPending):
		return "still working on the previous prompt"
	case errors.Is(err, client.ErrParseFailed):
		return "the model's answer could not be read; rephrase and try again (/retry)"
	case errors.Is(err, client.ErrRejected):
		return err.Error()
	case errors.Is(err, client.ErrTransport):
		return "could not reach the server; try again (/retry)"
	default:
		return err.Error()
	}
}
