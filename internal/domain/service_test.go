package domain

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	nextID    int64
	created   []*Post
	createErr error

	posts   []Post
	listErr error

	top      []TopThread
	lastTopK int
	topErr   error
}

func (r *fakeRepo) CreatePost(_ context.Context, post *Post) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.nextID++
	post.ID = r.nextID
	post.Timestamp = time.Now().UTC()
	r.created = append(r.created, post)
	return nil
}

func (r *fakeRepo) ListPosts(_ context.Context, _ PostFilter, _ int) ([]Post, error) {
	return r.posts, r.listErr
}

func (r *fakeRepo) CountByCA(_ context.Context, k int) ([]TopThread, error) {
	r.lastTopK = k
	return r.top, r.topErr
}

type fakeBroadcaster struct {
	posts []*Post
	err   error
}

func (b *fakeBroadcaster) BroadcastPost(post *Post) error {
	if b.err != nil {
		return b.err
	}
	b.posts = append(b.posts, post)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSubmitPostValidation(t *testing.T) {
	tests := []struct {
		name      string
		sub       Submission
		wantField string
	}{
		{"missing ca", Submission{Message: "hi"}, "ca"},
		{"whitespace ca", Submission{CA: "   ", Message: "hi"}, "ca"},
		{"missing message", Submission{CA: "0xABC"}, "message"},
		{"whitespace message", Submission{CA: "0xABC", Message: " \t"}, "message"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeRepo{}
			bc := &fakeBroadcaster{}
			svc := NewBoardService(repo, bc, discardLogger())

			_, err := svc.SubmitPost(context.Background(), tt.sub)

			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.wantField, vErr.Field)
			assert.Empty(t, repo.created, "nothing should be persisted")
			assert.Empty(t, bc.posts, "nothing should be broadcast")
		})
	}
}

func TestSubmitPostPersistsAndBroadcastsOnce(t *testing.T) {
	repo := &fakeRepo{}
	bc := &fakeBroadcaster{}
	svc := NewBoardService(repo, bc, discardLogger())

	post, err := svc.SubmitPost(context.Background(), Submission{
		CA:            "0xDEAD",
		Message:       "hello world",
		ProvisionalID: "temp-1-abc",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(1), post.ID)
	assert.Equal(t, "0xDEAD", post.CA)
	assert.Equal(t, "hello world", post.Message)
	assert.Nil(t, post.Twitter)
	assert.Nil(t, post.Link)
	assert.Nil(t, post.GIF)
	assert.False(t, post.Timestamp.IsZero())
	assert.Equal(t, "temp-1-abc", post.ProvisionalID)

	require.Len(t, repo.created, 1)
	require.Len(t, bc.posts, 1)
	assert.Same(t, post, bc.posts[0])
}

func TestSubmitPostDerivesLink(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewBoardService(repo, &fakeBroadcaster{}, discardLogger())

	post, err := svc.SubmitPost(context.Background(), Submission{
		CA:      "0xABC",
		Message: "look at https://u1.example now",
		Link:    "https://explicit.example",
	})
	require.NoError(t, err)
	require.NotNil(t, post.Link)
	assert.Equal(t, "https://u1.example", *post.Link)
}

func TestSubmitPostIDsAreMonotonic(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewBoardService(repo, nil, discardLogger())

	var lastID int64
	for i := 0; i < 5; i++ {
		post, err := svc.SubmitPost(context.Background(), Submission{CA: "0xABC", Message: "m"})
		require.NoError(t, err)
		assert.Greater(t, post.ID, lastID)
		lastID = post.ID
	}
}

func TestSubmitPostStorageFailure(t *testing.T) {
	repo := &fakeRepo{createErr: errors.New("disk full")}
	bc := &fakeBroadcaster{}
	svc := NewBoardService(repo, bc, discardLogger())

	_, err := svc.SubmitPost(context.Background(), Submission{CA: "0xABC", Message: "m"})

	var sErr *StorageError
	require.ErrorAs(t, err, &sErr)
	assert.Empty(t, bc.posts, "a failed persist must not broadcast")
}

func TestSubmitPostBroadcastFailureIsAbsorbed(t *testing.T) {
	repo := &fakeRepo{}
	bc := &fakeBroadcaster{err: errors.New("channel down")}
	svc := NewBoardService(repo, bc, discardLogger())

	post, err := svc.SubmitPost(context.Background(), Submission{CA: "0xABC", Message: "m"})
	require.NoError(t, err, "persistence success is the authoritative completion signal")
	assert.NotZero(t, post.ID)
	require.Len(t, repo.created, 1)
}

func TestTopThreadsClampsK(t *testing.T) {
	tests := []struct {
		name  string
		k     int
		wantK int
	}{
		{"zero uses default", 0, DefaultTopK},
		{"negative uses default", -1, DefaultTopK},
		{"small k passes through", 3, 3},
		{"huge k is clamped", 1000, MaxTopK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeRepo{}
			svc := NewBoardService(repo, nil, discardLogger())

			_, err := svc.TopThreads(context.Background(), tt.k)
			require.NoError(t, err)
			assert.Equal(t, tt.wantK, repo.lastTopK)
		})
	}
}

func TestListPostsWrapsStorageError(t *testing.T) {
	repo := &fakeRepo{listErr: errors.New("locked")}
	svc := NewBoardService(repo, nil, discardLogger())

	_, err := svc.ListPosts(context.Background(), PostFilter{}, 10)

	var sErr *StorageError
	require.ErrorAs(t, err, &sErr)
}
