package domain

import "time"

// Post is a persisted board message, grouped into a thread by its contract
// address.
type Post struct {
	// ID is assigned by the store on insert. IDs are monotonically
	// increasing, so a higher ID always means a more recent post.
	ID int64 `json:"id"`

	// ProvisionalID is the client-generated correlation token carried
	// through the submit round trip and the broadcast relay so every
	// session can deduplicate its own optimistic copy. Never persisted.
	ProvisionalID string `json:"provisionalId,omitempty"`

	// CA is the contract address keying this post into a thread. Opaque;
	// not checked against any registry.
	CA string `json:"ca"`

	// Message is the post body. May embed URLs.
	Message string `json:"message"`

	Twitter *string `json:"twitter"`
	Link    *string `json:"link"`
	GIF     *string `json:"gif"`

	// Timestamp is assigned by the store on insert and is the authoritative
	// ordering key within a thread.
	Timestamp time.Time `json:"timestamp"`
}

// Submission is a candidate post as received from a client, before
// validation and link derivation.
type Submission struct {
	CA      string `json:"ca"`
	Message string `json:"message"`
	Twitter string `json:"twitter,omitempty"`
	Link    string `json:"link,omitempty"`
	GIF     string `json:"gif,omitempty"`

	// ProvisionalID, when set, is echoed back on the created post and its
	// broadcast so the submitter's sessions can reconcile.
	ProvisionalID string `json:"provisionalId,omitempty"`
}

// TopThread is a single entry of the ranking view: a contract address and
// how many posts its thread holds.
type TopThread struct {
	CA        string `json:"ca"`
	PostCount int    `json:"postCount"`
}
