package conflict

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// Mode is the policy applied when a destination already exists.
type Mode string

const (
	Ask       Mode = "ask"
	Overwrite Mode = "overwrite"
	Skip      Mode = "skip"
	Rename    Mode = "rename"
)

// ParseMode validates a conflict mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(s)); m {
	case Ask, Overwrite, Skip, Rename:
		return m, nil
	}
	return "", fmt.Errorf("invalid conflict mode %q (want ask, overwrite, skip, or rename)", s)
}

// Action is what the caller should do with one candidate.
type Action int

const (
	// Write the content to Decision.Path.
	Write Action = iota
	// Leave the destination untouched.
	Leave
	// A yes/no answer is needed before anything happens.
	NeedsAnswer
)

func (a Action) String() string {
	switch a {
	case Write:
		return "write"
	case Leave:
		return "skip"
	case NeedsAnswer:
		return "ask"
	}
	return "unknown"
}

// Decision is the outcome of resolving one destination.
type Decision struct {
	Action Action
	Path   string // where to write; differs from the destination under Rename
	Exists bool   // whether the original destination already existed
}

// ConflictError reports a destination that exists under ask mode when no
// answer was available.
type ConflictError struct {
	Path string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s already exists and no overwrite decision was given", e.Path)
}

// Resolve decides what to do with a write to dst. It never touches the
// filesystem beyond existence checks. When dst does not exist every mode
// writes directly.
func Resolve(fs afero.Fs, dst string, mode Mode) (Decision, error) {
	exists, err := afero.Exists(fs, dst)
	if err != nil {
		return Decision{}, fmt.Errorf("checking %s: %w", dst, err)
	}
	if !exists {
		return Decision{Action: Write, Path: dst}, nil
	}

	switch mode {
	case Skip:
		return Decision{Action: Leave, Path: dst, Exists: true}, nil
	case Overwrite:
		return Decision{Action: Write, Path: dst, Exists: true}, nil
	case Rename:
		next, err := NextFreeName(fs, dst)
		if err != nil {
			return Decision{}, err
		}
		return Decision{Action: Write, Path: next, Exists: true}, nil
	case Ask:
		return Decision{Action: NeedsAnswer, Path: dst, Exists: true}, nil
	}
	return Decision{}, fmt.Errorf("invalid conflict mode %q", mode)
}

// NextFreeName returns the first unused sibling of path named
// <base>_N<ext> for N = 1, 2, ...
func NextFreeName(fs afero.Fs, path string) (string, error) {
	dir, base := filepath.Split(path)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if stem == "" {
		stem, ext = base, ""
	}

	for n := 1; ; n++ {
		candidate := filepath.Join(dir, fmt.Sprintf("%s_%d%s", stem, n, ext))
		exists, err := afero.Exists(fs, candidate)
		if err != nil {
			return "", fmt.Errorf("checking %s: %w", candidate, err)
		}
		if !exists {
			return candidate, nil
		}
	}
}
