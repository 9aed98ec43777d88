package cmd

import (
	"fmt"
	"os"

	"golang.org/x/term"
)

// readPassword prompts on stderr and reads stdin without echo.
func readPassword(prompt string) (string, error) {
	_, _ = fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	_, _ = fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
