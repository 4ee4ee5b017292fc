// Package board holds the client-side view of the message board: the
// optimistic copy of a submission, and the reconciliation of that copy
// against the server-confirmed echo and broadcast relays of the same post.
package board

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/scamr/caboard/internal/domain"
)

// Source tags which delivery path surfaced a post to the view. Every path
// may deliver the same post; reconciliation makes redelivery harmless.
type Source int

const (
	// SourceLocal is the optimistic insert made before the server responds.
	SourceLocal Source = iota

	// SourceResponse is the server-confirmed post from the HTTP response.
	SourceResponse

	// SourceRelay is a broadcast relay received over the realtime channel.
	SourceRelay
)

func (s Source) String() string {
	switch s {
	case SourceLocal:
		return "local"
	case SourceResponse:
		return "response"
	case SourceRelay:
		return "relay"
	default:
		return fmt.Sprintf("source(%d)", int(s))
	}
}

// NewProvisionalID generates a client-local correlation token for a single
// submission attempt.
func NewProvisionalID() string {
	return fmt.Sprintf("temp-%d-%s", time.Now().UnixMilli(), uuid.NewString())
}

// View is one session's in-memory, newest-first list of posts. It is a
// plain value: Reconcile returns a new view rather than mutating shared
// state, so it can be tested without any transport.
type View struct {
	Posts []domain.Post
}

// Reconcile folds an incoming post into the view:
//
//   - a post with the same ID is already present: the incoming copy is a
//     redelivery, drop it;
//   - a post with the same provisional ID is present: the incoming copy
//     confirms our optimistic insert, replace it in place;
//   - otherwise prepend, since deliveries arrive newest-first.
//
// The source tag only matters for the local path, which carries no ID yet.
func Reconcile(view View, post domain.Post, source Source) View {
	if source != SourceLocal && post.ID != 0 {
		for _, existing := range view.Posts {
			if existing.ID == post.ID {
				return view
			}
		}
	}

	if post.ProvisionalID != "" {
		for i, existing := range view.Posts {
			if existing.ProvisionalID == post.ProvisionalID {
				updated := View{Posts: make([]domain.Post, len(view.Posts))}
				copy(updated.Posts, view.Posts)
				updated.Posts[i] = post
				return updated
			}
		}
	}

	updated := View{Posts: make([]domain.Post, 0, len(view.Posts)+1)}
	updated.Posts = append(updated.Posts, post)
	updated.Posts = append(updated.Posts, view.Posts...)
	return updated
}

// Threads groups the view's posts by contract address, each thread ordered
// newest-first.
func (v View) Threads() map[string][]domain.Post {
	return domain.GroupByCA(v.Posts)
}
