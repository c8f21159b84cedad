package sanitize

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/subosito/gotenv"
)

// EnvExampleFile is the name of the variable template shipped with a bundle.
const EnvExampleFile = ".env.example"

// GenerateEnvExample renders the .env.example template for the given fields.
// Real values never appear: non-empty originals become a descriptive
// stand-in and empty originals stay empty.
func GenerateEnvExample(fields Fields) string {
	var b strings.Builder
	b.WriteString("# Sensitive settings for this bundle\n")
	b.WriteString("# Copy this file to .env and fill in real values\n")
	b.WriteString("\n")

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if fields[name] == "" {
			fmt.Fprintf(&b, "%s=\n", name)
			continue
		}
		fmt.Fprintf(&b, "%s=your-%s-here\n", name, strings.ToLower(name))
	}
	return b.String()
}

// ParseEnvExample reads KEY=value lines, ignoring comments and blank lines.
func ParseEnvExample(r io.Reader) (map[string]string, error) {
	env, err := gotenv.StrictParse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing env file: %w", err)
	}
	return map[string]string(env), nil
}
