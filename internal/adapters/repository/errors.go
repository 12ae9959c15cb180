package repository

import "errors"

// Sentinel kinds for ledger errors.
var (
	ErrNotFound     = errors.New("barcode not found")
	ErrConflict     = errors.New("concurrent ledger update conflict")
	ErrInvalidLimit = errors.New("invalid page limit")
)
