// Package store persists campaign configuration, runs, the call ledger and
// the lead pool. The SQLite implementation backs production; the memory
// implementation backs tests and dry-run mode.
package store

import "errors"

// ErrNotFound is returned when an account has no stored record.
var ErrNotFound = errors.New("store: not found")

// ErrRunActive is returned when creating a run while one is already active
// for the account. Exactly one active run per account is permitted.
var ErrRunActive = errors.New("store: run already active")
