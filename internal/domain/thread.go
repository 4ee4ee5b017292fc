package domain

import "sort"

// SortPosts orders posts by timestamp descending, breaking ties by ID
// descending so the most recently persisted post always comes first.
func SortPosts(posts []Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		if !posts[i].Timestamp.Equal(posts[j].Timestamp) {
			return posts[i].Timestamp.After(posts[j].Timestamp)
		}
		return posts[i].ID > posts[j].ID
	})
}

// GroupByCA buckets posts into threads keyed by contract address, each
// thread independently ordered newest-first. The grouping is fully derived:
// it can always be recomputed from a fresh listing.
func GroupByCA(posts []Post) map[string][]Post {
	threads := make(map[string][]Post)
	for _, p := range posts {
		threads[p.CA] = append(threads[p.CA], p)
	}
	for ca := range threads {
		SortPosts(threads[ca])
	}
	return threads
}
