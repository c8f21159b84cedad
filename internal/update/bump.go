package update

import (
	"fmt"
	"time"

	"github.com/agentx-labs/confshare/internal/manifest"
	"github.com/agentx-labs/confshare/internal/versioning"
)

// Bump sets m's version for a new release: explicit when given, otherwise
// the current version incremented by kind. It stamps updated_at and
// returns the previous version.
func Bump(m *manifest.Manifest, kind versioning.Kind, explicit string, now time.Time) (string, error) {
	old := m.Version
	next := explicit
	if next == "" {
		if kind == "" {
			kind = versioning.Patch
		}
		if !versioning.Valid(old) {
			return "", fmt.Errorf("current version %q is malformed; set one explicitly", old)
		}
		next = versioning.Increment(old, kind)
	}
	if !versioning.Valid(next) {
		return "", &manifest.SchemaError{Field: "version", Message: fmt.Sprintf("%q does not match MAJOR.MINOR.PATCH[-PRERELEASE]", next)}
	}

	m.Version = next
	m.Metadata.UpdatedAt = manifest.At(now)
	return old, nil
}

// CommitMessage is the message recorded when a bumped bundle is committed.
func CommitMessage(m *manifest.Manifest) string {
	return fmt.Sprintf("Update %s to v%s", m.Name, m.Version)
}
