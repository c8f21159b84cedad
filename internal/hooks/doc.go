// Package hooks merges hook definitions from a bundle into a user's existing
// hooks file without disturbing anything the user already has.
package hooks
