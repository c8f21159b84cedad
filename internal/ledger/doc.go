// Package ledger tracks where a bundle has been applied. Each target root
// has at most one record; applying again replaces the old record and moves
// it to the end. The ledger is the only source used to decide which files
// to delete on removal and where to re-apply on update.
package ledger
