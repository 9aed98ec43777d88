// Package menu implements the numbered interactive menus shown when the
// toolbox is started without a subcommand.
package menu

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/pterm/pterm"
)

// Back is the key that leaves a sub-menu.
const Back = "0"

// Option is one numbered entry.
type Option struct {
	Key   string
	Label string
}

// Menu reads choices from In and renders to Out.
type Menu struct {
	in  *bufio.Reader
	out io.Writer
}

// New returns a Menu reading from in and writing to out.
func New(in io.Reader, out io.Writer) *Menu {
	return &Menu{in: bufio.NewReader(in), out: out}
}

func (m *Menu) println(s string) {
	_, _ = fmt.Fprintln(m.out, s)
}

// Choose prints title and options and reads until a valid key is entered.
// With allowBack, "0 - Retour" is offered and returns ok=false. io.EOF is
// returned once the input is exhausted.
func (m *Menu) Choose(title string, opts []Option, allowBack bool) (key string, ok bool, err error) {
	m.println(pterm.DefaultSection.Sprint(title))
	for _, o := range opts {
		m.println(fmt.Sprintf("  %s - %s", pterm.Bold.Sprint(o.Key), o.Label))
	}
	if allowBack {
		m.println(fmt.Sprintf("  %s - Retour", pterm.Bold.Sprint(Back)))
	}

	for {
		choice, err := m.Ask("\nChoix > ")
		if err != nil {
			return "", false, err
		}
		if allowBack && choice == Back {
			return "", false, nil
		}
		for _, o := range opts {
			if o.Key == choice {
				return choice, true, nil
			}
		}
		m.println(pterm.FgRed.Sprint("Choix invalide.") + " Réessaie.")
	}
}

// Ask prints prompt and returns the next trimmed input line.
func (m *Menu) Ask(prompt string) (string, error) {
	_, _ = io.WriteString(m.out, prompt)
	line, err := m.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// AskRequired is Ask that prints what is missing and returns ok=false on
// empty input.
func (m *Menu) AskRequired(prompt, missing string) (string, bool, error) {
	v, err := m.Ask(prompt)
	if err != nil {
		return "", false, err
	}
	if v == "" {
		m.println(pterm.FgRed.Sprint(missing))
		return "", false, nil
	}
	return v, true, nil
}
