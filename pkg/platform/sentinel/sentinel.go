// Package sentinel holds the storage-level facts that member and family
// stores report. Services translate them into coded domain errors; nothing
// above the service layer should see these directly.
package sentinel

import "errors"

var (
	// ErrNotFound means no row exists for the key, including purged members.
	ErrNotFound = errors.New("record not found")
	// ErrConflict means a pair update lost a race or a transaction failed to serialize.
	ErrConflict = errors.New("concurrent update")
	// ErrAlreadyUsed means a unique value is taken: a family name or a linked account.
	ErrAlreadyUsed = errors.New("value already in use")
)
