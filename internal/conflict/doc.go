// Package conflict decides what happens when applied content would land on
// a file that already exists. Resolve is a pure decision over one
// destination; under ask mode it hands the yes/no question back to the
// caller instead of prompting. Scan is the read-only pre-flight pass.
package conflict
