// Package library manages the share directory: the local cache holding one
// directory per bundle, with its manifest and apply ledger. It lists and
// finds cached bundles and stores a bundle after it is applied.
package library
