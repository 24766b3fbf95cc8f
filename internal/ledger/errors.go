package ledger

import (
	"errors"
	"fmt"
)

var (
	// ErrBlockNotFound is returned for an index outside the chain.
	ErrBlockNotFound = errors.New("block not found")

	// ErrHashMismatch means a block's stored hash no longer matches its contents.
	ErrHashMismatch = errors.New("block has invalid hash")

	// ErrBrokenLink means a block's previous hash differs from its predecessor's hash.
	ErrBrokenLink = errors.New("hash chain broken")
)

// IntegrityError locates the first block that failed verification.
type IntegrityError struct {
	Index int
	Err   error
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("block %d: %v", e.Index, e.Err)
}

func (e *IntegrityError) Unwrap() error { return e.Err }
