package domain

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

const (
	// ListLimit caps how many posts a single listing returns. A session
	// that was offline longer than this window re-fetches a bounded view,
	// not full history.
	ListLimit = 1000

	// DefaultTopK is the ranking window used when the caller doesn't ask
	// for a specific size.
	DefaultTopK = 5

	// MaxTopK bounds the ranking window a caller may request.
	MaxTopK = 25
)

// BoardService owns the submission pipeline: it validates candidate posts,
// derives their stored link, persists them, and emits exactly one broadcast
// per persisted post. It also serves thread listings and the ranking view.
type BoardService struct {
	repo        PostRepository
	broadcaster Broadcaster
	logger      *slog.Logger
}

// NewBoardService creates a BoardService. The broadcaster may be nil, in
// which case posts are persisted but never relayed (clients fall back to
// re-fetching).
func NewBoardService(repo PostRepository, broadcaster Broadcaster, logger *slog.Logger) *BoardService {
	return &BoardService{
		repo:        repo,
		broadcaster: broadcaster,
		logger:      logger,
	}
}

// SubmitPost runs a submission through the pipeline. On success the
// returned post carries its assigned ID and timestamp plus the submission's
// provisional ID, and a broadcast has been attempted. A broadcast failure
// is logged and absorbed: persistence is the authoritative completion
// signal, and disconnected sessions catch up on their next re-fetch.
func (s *BoardService) SubmitPost(ctx context.Context, sub Submission) (*Post, error) {
	ca := strings.TrimSpace(sub.CA)
	message := strings.TrimSpace(sub.Message)
	if ca == "" {
		return nil, &ValidationError{Field: "ca"}
	}
	if message == "" {
		return nil, &ValidationError{Field: "message"}
	}

	post := &Post{
		CA:            ca,
		Message:       sub.Message,
		Twitter:       optional(sub.Twitter),
		Link:          optional(ChooseLink(sub.Message, sub.Link)),
		GIF:           optional(sub.GIF),
		ProvisionalID: sub.ProvisionalID,
	}

	if err := s.repo.CreatePost(ctx, post); err != nil {
		return nil, &StorageError{Op: "create post", Err: err}
	}

	s.logger.Info("post created", "id", post.ID, "ca", post.CA)

	if s.broadcaster != nil {
		if err := s.broadcaster.BroadcastPost(post); err != nil {
			s.logger.Error("failed to broadcast post", "id", post.ID, "error", err)
		}
	}

	return post, nil
}

// ListPosts returns the most recent posts matching the filter, newest
// first, bounded by limit (ListLimit when limit is not positive).
func (s *BoardService) ListPosts(ctx context.Context, filter PostFilter, limit int) ([]Post, error) {
	if limit <= 0 || limit > ListLimit {
		limit = ListLimit
	}
	posts, err := s.repo.ListPosts(ctx, filter, limit)
	if err != nil {
		return nil, &StorageError{Op: "list posts", Err: err}
	}
	return posts, nil
}

// TopThreads returns the k busiest threads by post count, descending. The
// two historical call sites used 3 and 5; both are now just different k
// values. k is clamped to [1, MaxTopK] with DefaultTopK for k <= 0.
func (s *BoardService) TopThreads(ctx context.Context, k int) ([]TopThread, error) {
	if k <= 0 {
		k = DefaultTopK
	}
	if k > MaxTopK {
		k = MaxTopK
	}
	top, err := s.repo.CountByCA(ctx, k)
	if err != nil {
		return nil, &StorageError{Op: fmt.Sprintf("count posts by ca (k=%d)", k), Err: err}
	}
	return top, nil
}

// optional maps the empty string to nil so absent fields are stored and
// serialized as null rather than "".
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
