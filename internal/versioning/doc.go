// Package versioning implements the semantic-version rules bundles are
// tracked by: grammar checks, ordering, and increments.
package versioning
