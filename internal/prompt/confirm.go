// Package prompt asks yes/no questions on the terminal.
package prompt

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

type Confirmer struct {
	In            io.Reader
	Out           io.Writer
	IsInteractive func() bool
}

func DefaultConfirmer() Confirmer {
	return Confirmer{
		In:  os.Stdin,
		Out: os.Stderr,
		IsInteractive: func() bool {
			return term.IsTerminal(int(os.Stdin.Fd()))
		},
	}
}

// Confirm asks question and reports whether the answer was yes. assumeYes
// skips the question. Without a terminal the question cannot be asked and an
// error tells the user which flag to pass instead.
func (c Confirmer) Confirm(question string, assumeYes bool) (bool, error) {
	if assumeYes {
		return true, nil
	}
	if c.IsInteractive == nil || !c.IsInteractive() {
		return false, fmt.Errorf("non-interactive stdin: use -y to confirm")
	}
	if c.Out != nil {
		fmt.Fprintf(c.Out, "%s (y/n): ", question)
	}
	response, err := bufio.NewReader(c.In).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(response)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}
