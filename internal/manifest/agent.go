package manifest

import (
	"bytes"
	"errors"
	"fmt"

	"go.yaml.in/yaml/v3"
)

// AgentFrontmatter is the YAML header of an agent definition file.
type AgentFrontmatter struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Model       string `yaml:"model,omitempty"`
}

var frontmatterFence = []byte("---")

// ErrNoFrontmatter is returned for agent files without a YAML header.
var ErrNoFrontmatter = errors.New("missing YAML front matter")

// ParseAgentFrontmatter reads the header of an agent file and checks that
// it names the agent and describes it.
func ParseAgentFrontmatter(data []byte) (*AgentFrontmatter, error) {
	data = bytes.TrimPrefix(data, []byte("\ufeff"))
	lines := bytes.Split(data, []byte("\n"))
	if len(lines) == 0 || !bytes.Equal(bytes.TrimSpace(lines[0]), frontmatterFence) {
		return nil, ErrNoFrontmatter
	}

	end := -1
	for i := 1; i < len(lines); i++ {
		if bytes.Equal(bytes.TrimSpace(lines[i]), frontmatterFence) {
			end = i
			break
		}
	}
	if end < 0 {
		return nil, fmt.Errorf("unterminated YAML front matter")
	}

	var fm AgentFrontmatter
	header := bytes.Join(lines[1:end], []byte("\n"))
	if err := yaml.Unmarshal(header, &fm); err != nil {
		return nil, fmt.Errorf("parsing front matter: %w", err)
	}

	var missing []string
	if fm.Name == "" {
		missing = append(missing, "name")
	}
	if fm.Description == "" {
		missing = append(missing, "description")
	}
	if len(missing) > 0 {
		return &fm, fmt.Errorf("front matter missing %v", missing)
	}
	return &fm, nil
}
