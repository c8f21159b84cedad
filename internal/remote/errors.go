package remote

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrUnsupported is returned for hosting operations a provider does not
// offer through this tool, such as creating GitLab projects.
var ErrUnsupported = errors.New("operation not supported for this repository type")

// ErrNothingToCommit is returned by Commit when the work tree is clean.
var ErrNothingToCommit = errors.New("nothing to commit")

// RemoteError is a failed git invocation or hosting API call. Every field
// is redacted before the error is built.
type RemoteError struct {
	Op     string
	Target string
	Output string
	Err    error
}

func (e *RemoteError) Error() string {
	msg := fmt.Sprintf("%s %s: %v", e.Op, e.Target, e.Err)
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += "\n" + out
	}
	return msg
}

func (e *RemoteError) Unwrap() error { return e.Err }

var userinfoPattern = regexp.MustCompile(`(https?://)[^/@\s]+@`)

// Redact removes credentials from s: the literal token wherever it appears
// and any userinfo embedded in http(s) URLs.
func Redact(s, token string) string {
	if token != "" {
		s = strings.ReplaceAll(s, token, "***")
	}
	return userinfoPattern.ReplaceAllString(s, "${1}***@")
}

func redactAll(args []string, token string) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = Redact(a, token)
	}
	return out
}
