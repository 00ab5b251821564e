package store

import "errors"

// Business-rule errors surfaced to the handler layer. Stores return
// (nil, nil) for plain not-found.
var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrOutOfStock          = errors.New("out of stock")
	ErrInvalidTransition   = errors.New("invalid status transition")
)
