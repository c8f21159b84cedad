// Package manifest defines the share_plugins.json bundle descriptor.
//
// A manifest names a bundle, carries its semantic version, records which
// commands, agents, hooks, MCP servers and skills it contains (or excludes),
// and keeps an ordered ledger of every target tree the bundle was applied
// to. Documents are validated and repaired in their raw JSON form so that
// problems are reported before any typed decoding happens; strict
// validation additionally runs the embedded JSON Schema.
package manifest
