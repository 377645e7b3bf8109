package prompt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/chzyer/readline"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// Terminal is an interactive Service on a terminal. Notices and messages
// are drawn as styled boxes on out; answers are read line by line from in.
type Terminal struct {
	in  io.ReadCloser
	out io.Writer

	mu     sync.Mutex
	rl     *readline.Instance
	styles styles
}

type styles struct {
	notice  lipgloss.Style
	title   lipgloss.Style
	message lipgloss.Style
	option  lipgloss.Style
}

var _ Service = (*Terminal)(nil)

// NewTerminal creates a terminal service. Colors follow the capabilities
// termenv detects for out.
func NewTerminal(in io.ReadCloser, out io.Writer) *Terminal {
	renderer := lipgloss.NewRenderer(out, termenv.WithColorCache(true))
	return &Terminal{
		in:  in,
		out: out,
		styles: styles{
			notice: renderer.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("63")).
				Padding(0, 1),
			title: renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("212")),
			message: renderer.NewStyle().
				Border(lipgloss.DoubleBorder()).
				BorderForeground(lipgloss.Color("212")).
				Padding(0, 1),
			option: renderer.NewStyle().Foreground(lipgloss.Color("245")),
		},
	}
}

// Notice prints message in a box. The timeout has no effect on a terminal.
func (t *Terminal) Notice(message string, _ time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintln(t.out, t.styles.notice.Render(message))
}

func (t *Terminal) ShowMessage(ctx context.Context, title, body string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	content := body
	if title != "" {
		content = t.styles.title.Render(title) + "\n\n" + body
	}
	fmt.Fprintln(t.out, t.styles.message.Render(content))

	_, _, err := t.readLine(ctx, "press enter to continue ")
	return err
}

// Ask prints the question and reads an answer. With options the answer may
// be an option's number or its text; an empty answer dismisses the question.
func (t *Terminal) Ask(ctx context.Context, title, question string, options []string) (string, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	header := strings.TrimSpace("? " + title)
	fmt.Fprintln(t.out, t.styles.title.Render(header))
	fmt.Fprintln(t.out, question)
	for i, o := range options {
		fmt.Fprintln(t.out, t.styles.option.Render(fmt.Sprintf("  %d) %s", i+1, o)))
	}

	line, ok, err := t.readLine(ctx, "> ")
	if err != nil || !ok {
		return "", false, err
	}
	answer, ok := resolveAnswer(line, options)
	return answer, ok, nil
}

// resolveAnswer maps a typed line onto options: an option number or a
// case-insensitive option text selects that option, other text is returned
// as typed. Without options any line, even an empty one, is an answer.
func resolveAnswer(line string, options []string) (string, bool) {
	if len(options) == 0 {
		return line, true
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "", false
	}
	if n, err := strconv.Atoi(line); err == nil && n >= 1 && n <= len(options) {
		return options[n-1], true
	}
	for _, o := range options {
		if strings.EqualFold(o, line) {
			return o, true
		}
	}
	return line, true
}

// IsInteractive reports whether both f and os.Stdout are terminals.
func IsInteractive(f *os.File) bool {
	return term.IsTerminal(int(f.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// Close releases the line reader.
func (t *Terminal) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.rl == nil {
		return nil
	}
	err := t.rl.Close()
	t.rl = nil
	return err
}

// readLine reads one line. ok is false when input ended or was interrupted.
func (t *Terminal) readLine(ctx context.Context, prompt string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	if t.rl == nil {
		rl, err := readline.NewEx(&readline.Config{
			Stdin:           t.in,
			Stdout:          t.out,
			InterruptPrompt: "^C",
		})
		if err != nil {
			return "", false, fmt.Errorf("open prompt: %w", err)
		}
		t.rl = rl
	}
	t.rl.SetPrompt(prompt)

	line, err := t.rl.Readline()
	switch {
	case errors.Is(err, readline.ErrInterrupt), errors.Is(err, io.EOF):
		return "", false, nil
	case err != nil:
		return "", false, err
	}
	return line, true, nil
}
