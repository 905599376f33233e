package service

import "errors"

// Sentinel errors returned by the service facade.
var (
	ErrNotStarted     = errors.New("service not started")
	ErrReadOnlySource = errors.New("listing source does not accept writes")
	ErrInvalidEvent   = errors.New("invalid listing event")
	ErrDuplicateEvent = errors.New("duplicate listing event")
	ErrBackpressure   = errors.New("ingest queue is full")
	ErrUnknownSource  = errors.New("unknown listing source")
)
