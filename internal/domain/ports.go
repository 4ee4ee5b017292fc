package domain

import "context"

// PostFilter narrows a post listing. Zero value means no filtering.
type PostFilter struct {
	// CA, when non-empty, restricts results to a single thread (exact match).
	CA string

	// Search, when non-empty, matches case-insensitively as a substring of
	// the ca, message, or twitter fields.
	Search string
}

// PostRepository defines persistence operations for board posts.
type PostRepository interface {
	// CreatePost inserts a new post and fills in its assigned ID and
	// Timestamp.
	CreatePost(ctx context.Context, post *Post) error

	// ListPosts retrieves up to limit posts matching the filter, ordered by
	// timestamp descending with ties broken by ID descending.
	ListPosts(ctx context.Context, filter PostFilter, limit int) ([]Post, error)

	// CountByCA returns per-thread post counts ordered by count descending,
	// truncated to k entries.
	CountByCA(ctx context.Context, k int) ([]TopThread, error)
}

// Broadcaster delivers a confirmed post to every connected realtime session.
type Broadcaster interface {
	BroadcastPost(post *Post) error
}
