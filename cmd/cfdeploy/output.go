// output.go renders stack progress and final results for the terminal, colouring statuses by outcome.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/example/cfdeploy/internal/stack"
	"github.com/fatih/color"
	"golang.org/x/term"
)

func isTerminalWriter(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return term.IsTerminal(int(f.Fd()))
	}
	return false
}

// applyColorMode sets the global colour switch from --color.
func applyColorMode(mode string, out io.Writer) {
	switch strings.ToLower(mode) {
	case "always":
		color.NoColor = false
	case "never":
		color.NoColor = true
	default:
		color.NoColor = os.Getenv("NO_COLOR") != "" || !isTerminalWriter(out)
	}
}

func colorizeStackStatus(status string) string {
	switch stack.Classify(status) {
	case stack.OutcomeSucceeded:
		return color.New(color.FgGreen).Sprint(status)
	case stack.OutcomeRolledBack:
		return color.New(color.FgYellow).Sprint(status)
	case stack.OutcomeFailed:
		return color.New(color.FgRed, color.Bold).Sprint(status)
	case stack.OutcomeInFlight:
		return color.New(color.FgCyan).Sprint(status)
	default:
		return color.New(color.FgMagenta).Sprint(status)
	}
}

// statusPrinter is the stack.Observer used by the deploy command. Every
// observation is printed; repeats carry a check counter.
type statusPrinter struct {
	out     io.Writer
	last    string
	repeats int
}

func (p *statusPrinter) Submitted(action stack.Action, stackID string) {
	verb := "Creating"
	if action == stack.ActionUpdate {
		verb = "Stack exists, updating"
	}
	fmt.Fprintf(p.out, "%s stack: %s\n", verb, stackID)
}

func (p *statusPrinter) Status(status stack.Status, terminal bool) {
	if status.Value == p.last {
		p.repeats++
	} else {
		p.last, p.repeats = status.Value, 1
	}
	if p.repeats > 1 {
		fmt.Fprintf(p.out, "Stack status: %s (check %d)\n", colorizeStackStatus(status.Value), p.repeats)
	} else {
		fmt.Fprintf(p.out, "Stack status: %s\n", colorizeStackStatus(status.Value))
	}
	if terminal && status.Reason != "" {
		fmt.Fprintf(p.out, "  Reason: %s\n", status.Reason)
	}
}

func printResult(out io.Writer, project string, res stack.Result) {
	if res.Missing {
		fmt.Fprintf(out, "%s Stack %s could not be found after submission (%s)\n",
			color.New(color.FgYellow).Sprint("!"), project, stack.UnknownStatus)
		return
	}
	marker := color.New(color.FgGreen).Sprint("✓")
	switch stack.Classify(res.Status) {
	case stack.OutcomeFailed, stack.OutcomeRolledBack, stack.OutcomeUnknown:
		marker = color.New(color.FgRed).Sprint("✗")
	}
	fmt.Fprintf(out, "%s Stack %s finished %s with %s after %d polls\n",
		marker, project, res.Action, colorizeStackStatus(res.Status), res.Polls)
}
