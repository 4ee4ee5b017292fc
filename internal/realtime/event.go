package realtime

import (
	"time"

	"github.com/scamr/caboard/internal/domain"
)

// Event type names on the wire.
const (
	// EventNewPost carries a confirmed post, including the submitter's
	// provisional ID as a correlation token for reconciliation.
	EventNewPost = "newPost"
)

// Event is the wire envelope for realtime messages in both directions.
type Event struct {
	Type      string      `json:"type"`
	Post      domain.Post `json:"post"`
	Timestamp time.Time   `json:"timestamp"`
}
