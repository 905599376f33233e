package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound  = errors.New("post not found")
	ErrInvalid   = errors.New("invalid post")
	ErrClosed    = errors.New("store closed")
	ErrStoreOpen = errors.New("open store failed")
)
