package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/agentx-labs/confshare/internal/bundle"
	"github.com/spf13/cobra"
)

// prompter asks yes/no questions on the command's input. One scanner is
// shared so buffered answers are not lost between questions.
type prompter struct {
	out     io.Writer
	scanner *bufio.Scanner
	yes     bool
}

func newPrompter(cmd *cobra.Command, yes bool) *prompter {
	return &prompter{
		out:     cmd.OutOrStdout(),
		scanner: bufio.NewScanner(cmd.InOrStdin()),
		yes:     yes,
	}
}

// confirm asks question and reports the answer. An empty answer takes
// def; --yes answers yes without asking.
func (p *prompter) confirm(question string, def bool) bool {
	if p.yes {
		return true
	}
	hint := "(y/N)"
	if def {
		hint = "(Y/n)"
	}
	fmt.Fprintf(p.out, "? %s %s ", question, hint)
	if !p.scanner.Scan() {
		fmt.Fprintln(p.out)
		return def
	}
	switch strings.TrimSpace(strings.ToLower(p.scanner.Text())) {
	case "":
		return def
	case "y", "yes":
		return true
	}
	return false
}

// decider answers overwrite questions raised under the ask conflict mode.
func (p *prompter) decider() bundle.Decider {
	return bundle.DeciderFunc(func(path string) (bool, error) {
		return p.confirm(fmt.Sprintf("%s already exists. Overwrite?", path), false), nil
	})
}
