package storedb

import "errors"

var (
	// ErrStoreNotFound is returned when no store with the requested name
	// has been saved.
	ErrStoreNotFound = errors.New("wallet store not found")

	// ErrCorruptRecord is returned when a saved record cannot describe a
	// valid store entry.
	ErrCorruptRecord = errors.New("corrupt store record")

	// ErrEmptyName is returned when a store without a file name is saved.
	ErrEmptyName = errors.New("wallet store has no file name")
)
