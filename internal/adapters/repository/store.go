// Package repository provides listing sources and stores.
package repository

import (
	"context"
	"sort"

	"github.com/okian/duofeed/internal/domain/feed"
	"github.com/okian/duofeed/internal/domain/model"
)

// Source returns listings already narrowed by the categorical prefilter.
type Source interface {
	// Query returns the posts matching pf, newest first.
	Query(ctx context.Context, pf feed.Prefilter) ([]model.Post, error)

	// Version changes whenever the result of Query may have changed.
	Version(ctx context.Context) (uint64, error)

	// Name labels the source in logs and metrics.
	Name() string
}

// Writer applies listing mutations.
type Writer interface {
	// Upsert inserts or replaces a post by ID.
	Upsert(ctx context.Context, post model.Post) error

	// Delete removes a post. Returns ErrNotFound if the post is unknown.
	Delete(ctx context.Context, id string) error

	// Count returns the number of stored posts.
	Count(ctx context.Context) (int, error)
}

// Store is a Source that also accepts writes.
type Store interface {
	Source
	Writer
	Close() error
}

// sortNewestFirst orders posts by creation time descending, then ID.
func sortNewestFirst(posts []model.Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		if !posts[i].CreatedAt.Equal(posts[j].CreatedAt) {
			return posts[i].CreatedAt.After(posts[j].CreatedAt)
		}
		return posts[i].ID < posts[j].ID
	})
}
