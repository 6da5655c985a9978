package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/johan-st/sparql-tui/internal/catalog"
	"github.com/johan-st/sparql-tui/internal/console"
)

var commandHelp = []struct {
	usage string
	desc  string
}{
	{"run", "Execute the editor query"},
	{"clear", "Clear the results"},
	{"format", "Reformat the editor query"},
	{"examples", "Browse example queries"},
	{"example <n>", "Load example n into the editor"},
	{"history", "Browse this session's queries"},
	{`load "<text>"`, "Load quoted text into the editor"},
	{"probe", "Check the connection to the server"},
	{"help", "Show this help"},
	{"quit", "Exit"},
}

// execCommand runs one command line. Unknown commands raise a notification.
func (a *App) execCommand(line string) (tea.Model, tea.Cmd) {
	line = strings.TrimSpace(line)
	if line == "" {
		return a, nil
	}

	if q, ok := console.ParseLoadTrigger(line); ok {
		a.loadQuery(q)
		return a, nil
	}

	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "run":
		return a, a.run(a.editor.Value())
	case "clear":
		a.clear()
	case "format":
		a.format()
	case "examples":
		return a, a.openExamples()
	case "example":
		ex, ok := catalog.Find(a.examples, arg)
		if !ok {
			a.toast.Notify("No example " + arg)
			return a, nil
		}
		a.loadQuery(ex.Query)
	case "history":
		a.modal = modalHistory
		return a, a.loadHistory
	case "load":
		a.toast.Notify(`Usage: load "<text>"`)
	case "probe":
		return a, a.probe(true)
	case "help":
		a.modal = modalHelp
	case "quit", "q":
		a.Close()
		return a, tea.Quit
	default:
		a.toast.Notify("Unknown command: " + name)
	}
	return a, nil
}
