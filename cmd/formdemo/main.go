// Command formdemo walks a small signup form, redrawing only the rows
// that change as fields are answered, shown and hidden.
package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"lineform"
	"lineform/prompt"
)

func main() {
	log := zap.NewNop()
	if os.Getenv("FORMDEMO_DEBUG") != "" {
		var err error
		log, err = zap.NewDevelopment()
		if err != nil {
			fmt.Fprintln(os.Stderr, "logger:", err)
			os.Exit(1)
		}
	}

	page := lineform.NewPage("signup", log)

	banner := lineform.NewStatic("welcome", "Sign up · answer each field, Esc cancels").
		Style(lipgloss.NewStyle().Bold(true))
	if err := page.Region(lineform.RegionBanner).Add(banner); err != nil {
		fail(err)
	}

	account := page.Region(lineform.RegionMain).Title("Account")
	name := lineform.NewField("name", "Name").Placeholder("Ada Lovelace").Logger(log)
	email := lineform.NewField("email", "Email").Placeholder("you@example.com").Logger(log)
	plan := lineform.NewSelect("plan", "Plan", "free", "pro", "enterprise").Logger(log)
	for _, el := range []lineform.Element{name, email, plan} {
		if err := account.Add(el); err != nil {
			fail(err)
		}
	}

	nav := lineform.NewNavigator().Locate(page).Logger(log)
	nav.Register(name)
	nav.Register(email)
	nav.Register(plan)

	status := lineform.NewCustom("progress", func() ([]string, error) {
		lines := make([]string, 0, len(nav.Summary()))
		for _, cs := range nav.Summary() {
			lines = append(lines, cs.String())
		}
		return lines, nil
	}).Logger(log)
	if err := page.Region(lineform.RegionStatus).Add(status); err != nil {
		fail(err)
	}

	// the external writer: execute ops verbatim with cursor addressing
	page.OnOps(func(ops []lineform.Op) {
		for _, op := range ops {
			if op.Clear {
				fmt.Printf("\x1b[%d;1H\x1b[2K", op.Row+1)
				continue
			}
			fmt.Printf("\x1b[%d;1H\x1b[2K%s", op.Row+1, op.Text)
		}
	})

	_, height := lineform.TerminalSize()
	if !page.FitToHeight(height) {
		fmt.Fprintln(os.Stderr, "terminal too small even after compression")
	}

	fmt.Print("\x1b[2J\x1b[H")
	for _, line := range page.FullRender() {
		fmt.Println(line)
	}

	state, err := nav.Run(prompt.New())
	if err != nil {
		fail(err)
	}

	// park the cursor below the page before printing the outcome
	fmt.Printf("\x1b[%d;1H\n", page.BufferManager().TotalLines()+2)
	switch state.Status {
	case lineform.NavCompleted:
		fmt.Printf("done: %d answers\n", state.Answered())
		for k, v := range state.Answers {
			fmt.Printf("  %s = %s\n", k, v)
		}
	case lineform.NavCancelled:
		fmt.Printf("cancelled after %d answers\n", state.Answered())
	}
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
