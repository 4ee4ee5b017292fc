package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scamr/caboard/internal/domain"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func createPost(t *testing.T, repo *Repository, ca, message string, mutate func(*domain.Post)) domain.Post {
	t.Helper()
	post := &domain.Post{CA: ca, Message: message}
	if mutate != nil {
		mutate(post)
	}
	require.NoError(t, repo.CreatePost(context.Background(), post))
	return *post
}

func str(s string) *string { return &s }

func TestCreatePostAssignsMonotonicIDs(t *testing.T) {
	repo := newTestRepository(t)

	var lastID int64
	for i := 0; i < 5; i++ {
		post := createPost(t, repo, "0xABC", "hello", nil)
		assert.Greater(t, post.ID, lastID)
		assert.False(t, post.Timestamp.IsZero())
		lastID = post.ID
	}
}

func TestCreatePostRoundTripsOptionalFields(t *testing.T) {
	repo := newTestRepository(t)

	createPost(t, repo, "0xDEAD", "hello world", nil)
	createPost(t, repo, "0xBEEF", "with extras", func(p *domain.Post) {
		p.Twitter = str("someone")
		p.Link = str("https://example.com")
		p.GIF = str("https://media.example/g.gif")
	})

	posts, err := repo.ListPosts(context.Background(), domain.PostFilter{}, 10)
	require.NoError(t, err)
	require.Len(t, posts, 2)

	// Newest first.
	extras := posts[0]
	require.NotNil(t, extras.Twitter)
	assert.Equal(t, "someone", *extras.Twitter)
	require.NotNil(t, extras.Link)
	assert.Equal(t, "https://example.com", *extras.Link)
	require.NotNil(t, extras.GIF)

	bare := posts[1]
	assert.Equal(t, "0xDEAD", bare.CA)
	assert.Equal(t, "hello world", bare.Message)
	assert.Nil(t, bare.Twitter)
	assert.Nil(t, bare.Link)
	assert.Nil(t, bare.GIF)
}

func TestListPostsOrdersNewestFirst(t *testing.T) {
	repo := newTestRepository(t)

	first := createPost(t, repo, "0xABC", "first", nil)
	second := createPost(t, repo, "0xABC", "second", nil)
	third := createPost(t, repo, "0xABC", "third", nil)

	posts, err := repo.ListPosts(context.Background(), domain.PostFilter{}, 10)
	require.NoError(t, err)
	require.Len(t, posts, 3)
	assert.Equal(t, third.ID, posts[0].ID)
	assert.Equal(t, second.ID, posts[1].ID)
	assert.Equal(t, first.ID, posts[2].ID)
}

func TestListPostsFiltersByCA(t *testing.T) {
	repo := newTestRepository(t)

	createPost(t, repo, "0xABC", "in thread", nil)
	createPost(t, repo, "0xDEF", "other thread", nil)

	posts, err := repo.ListPosts(context.Background(), domain.PostFilter{CA: "0xABC"}, 10)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "in thread", posts[0].Message)
}

func TestListPostsSearchIsCaseInsensitive(t *testing.T) {
	repo := newTestRepository(t)

	createPost(t, repo, "0x1", "nothing to see", func(p *domain.Post) {
		p.Twitter = str("ABCxyz")
	})
	createPost(t, repo, "0x2", "the ABC message", nil)
	createPost(t, repo, "myABCca", "plain", nil)
	createPost(t, repo, "0x3", "unrelated", nil)

	posts, err := repo.ListPosts(context.Background(), domain.PostFilter{Search: "abc"}, 10)
	require.NoError(t, err)
	assert.Len(t, posts, 3, "should match twitter, message, and ca")
}

func TestListPostsSearchCombinesWithCAFilter(t *testing.T) {
	repo := newTestRepository(t)

	createPost(t, repo, "0xABC", "findme here", nil)
	createPost(t, repo, "0xABC", "other", nil)
	createPost(t, repo, "0xDEF", "findme elsewhere", nil)

	posts, err := repo.ListPosts(context.Background(), domain.PostFilter{CA: "0xABC", Search: "findme"}, 10)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "findme here", posts[0].Message)
}

func TestListPostsRespectsLimit(t *testing.T) {
	repo := newTestRepository(t)

	for i := 0; i < 5; i++ {
		createPost(t, repo, "0xABC", "m", nil)
	}

	posts, err := repo.ListPosts(context.Background(), domain.PostFilter{}, 3)
	require.NoError(t, err)
	assert.Len(t, posts, 3)
}

func TestCountByCAOrdersByCountDescending(t *testing.T) {
	repo := newTestRepository(t)

	counts := map[string]int{"A": 5, "B": 3, "C": 8}
	for ca, n := range counts {
		for i := 0; i < n; i++ {
			createPost(t, repo, ca, "m", nil)
		}
	}

	top, err := repo.CountByCA(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, domain.TopThread{CA: "C", PostCount: 8}, top[0])
	assert.Equal(t, domain.TopThread{CA: "A", PostCount: 5}, top[1])
}

func TestCountByCAEmptyStore(t *testing.T) {
	repo := newTestRepository(t)

	top, err := repo.CountByCA(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, top)
}
