package compiler

import "strings"

// Toolbar button ids.
const (
	ButtonRun  = "run"
	ButtonHelp = "help"
)

// Button is one toolbar entry.
type Button struct {
	ID     string
	Label  string
	Params []string
}

// RunGroup returns the run group a run button selects, or "".
func (b Button) RunGroup() string {
	if len(b.Params) == 0 {
		return ""
	}
	return b.Params[0]
}

// ParseToolbar reads the buttons of a toolbar block. Each line has the form
// "id|param|...=label"; other lines are ignored. A body without buttons
// yields the default run and help buttons.
func ParseToolbar(body string) []Button {
	var buttons []Button
	for _, line := range strings.Split(body, "\n") {
		left, label, ok := strings.Cut(line, "=")
		if !ok || strings.Contains(label, "=") {
			continue
		}
		parts := strings.Split(left, "|")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		buttons = append(buttons, Button{
			ID:     parts[0],
			Label:  strings.TrimSpace(label),
			Params: parts[1:],
		})
	}
	if len(buttons) == 0 {
		buttons = []Button{{ID: ButtonRun}, {ID: ButtonHelp}}
	}
	return buttons
}
