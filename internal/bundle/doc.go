// Package bundle moves content between a configuration tree and a bundle
// directory.
//
// Pack copies selected commands, agents, skills, hooks and service files
// out of a configuration tree, redacting sensitive values, and writes the
// manifest. Apply validates a bundle and writes its content into a target
// tree, resolving conflicts per item and merging hooks; it records the
// application in the manifest's ledger. Remove deletes what the ledger
// says was applied. Check validates a bundle directory end to end.
//
// Every batch keeps going past per-item failures and reports written,
// skipped and failed items in a Report.
package bundle
