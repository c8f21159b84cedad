// Package update moves bundles between releases.
//
// Sharers bump a bundle's version with Bump. Users ask a Checker whether a
// newer version is published; answers are cached per bundle for a day.
// After pulling, Reapply refreshes every target recorded in the ledger.
package update
