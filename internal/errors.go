package internal

import (
	"fmt"
)

var (
	ErrNotFound   = fmt.Errorf("record not found")
	ErrDuplicate  = fmt.Errorf("duplicate record")
	ErrBadRequest = fmt.Errorf("bad request")

	// ErrInvalidConfiguration indicates an operator or programmer error, such
	// as a missing keyset or an algorithm family mismatch. Never retried.
	ErrInvalidConfiguration = fmt.Errorf("invalid configuration")

	// ErrInvalidKeyState indicates an operation on a key in the wrong
	// lifecycle status, such as promoting a disabled key to primary.
	ErrInvalidKeyState = fmt.Errorf("key is not in a usable state")

	// ErrKeyNotFound indicates no key in the keyset matches a ciphertext's
	// routing identifier.
	ErrKeyNotFound = fmt.Errorf("no key matches ciphertext")

	// ErrAuthenticationFailed indicates the ciphertext failed its integrity
	// check. This is a hard failure, never downgrade it to a missing value.
	ErrAuthenticationFailed = fmt.Errorf("ciphertext authentication failed")
)
