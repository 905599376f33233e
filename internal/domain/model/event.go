package model

import (
	"errors"
	"time"
)

// ErrInvalidValue marks an unparseable enumeration or event value.
var ErrInvalidValue = errors.New("invalid value")

// EventOp is the mutation carried by a listing event.
type EventOp string

const (
	OpUpsert EventOp = "upsert"
	OpDelete EventOp = "delete"
)

// ListingEvent is a listing mutation submitted to the ingest endpoint.
type ListingEvent struct {
	EventID string    // unique id for idempotency
	Op      EventOp   // upsert or delete
	Post    Post      // full listing for upserts; only ID is read for deletes
	TS      time.Time // receive time
}

// Validate checks the fields the store relies on.
func (e ListingEvent) Validate() error {
	if e.EventID == "" {
		return errors.Join(ErrInvalidValue, errors.New("event id is required"))
	}
	if e.Post.ID == "" {
		return errors.Join(ErrInvalidValue, errors.New("post id is required"))
	}
	switch e.Op {
	case OpUpsert:
		if !e.Post.Region.Valid() || !e.Post.Role.Valid() || !e.Post.VCPreference.Valid() || !e.Post.DuoType.Valid() {
			return errors.Join(ErrInvalidValue, errors.New("post has an unknown region, role, vc preference or duo type"))
		}
	case OpDelete:
	default:
		return errors.Join(ErrInvalidValue, errors.New("op must be upsert or delete"))
	}
	return nil
}
