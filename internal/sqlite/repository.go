package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/scamr/caboard/internal/domain"
)

// timeLayout is fixed-width so the TEXT column sorts lexicographically in
// chronological order. RFC3339Nano would trim trailing zeros and break that.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const schema = `
CREATE TABLE IF NOT EXISTS posts (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	ca        TEXT NOT NULL,
	message   TEXT NOT NULL,
	twitter   TEXT,
	link      TEXT,
	gif       TEXT,
	timestamp TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_posts_ca ON posts (ca);
CREATE INDEX IF NOT EXISTS idx_posts_timestamp ON posts (timestamp DESC);
`

// Repository implements domain.PostRepository over a single SQLite file.
type Repository struct {
	db *sql.DB
}

// NewRepository opens (creating if necessary) the SQLite database at path,
// verifies the connection, and ensures the schema exists. The caller should
// call Close when the repository is no longer needed.
func NewRepository(path string) (*Repository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// The driver is safe for concurrent use but SQLite writes serialize on
	// the file; a single connection avoids SQLITE_BUSY under burst load.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Repository{db: db}, nil
}

// Close closes the underlying database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// CreatePost inserts a new post, assigning its ID and timestamp. Both are
// written back into the post on success.
func (r *Repository) CreatePost(ctx context.Context, post *domain.Post) error {
	now := time.Now().UTC()

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO posts (ca, message, twitter, link, gif, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)`,
		post.CA,
		post.Message,
		post.Twitter,
		post.Link,
		post.GIF,
		now.Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert post: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("read inserted id: %w", err)
	}

	post.ID = id
	post.Timestamp = now
	return nil
}

// ListPosts retrieves up to limit posts matching the filter, ordered by
// timestamp descending with ties broken by id descending. The search term,
// when present, matches case-insensitively as a substring of ca, message,
// or twitter.
func (r *Repository) ListPosts(ctx context.Context, filter domain.PostFilter, limit int) ([]domain.Post, error) {
	var (
		conditions []string
		args       []any
	)

	if filter.CA != "" {
		conditions = append(conditions, "ca = ?")
		args = append(args, filter.CA)
	}
	if filter.Search != "" {
		pattern := "%" + strings.ToLower(filter.Search) + "%"
		conditions = append(conditions, `(
			LOWER(ca) LIKE ?
			OR LOWER(message) LIKE ?
			OR LOWER(COALESCE(twitter, '')) LIKE ?
		)`)
		args = append(args, pattern, pattern, pattern)
	}

	query := `SELECT id, ca, message, twitter, link, gif, timestamp FROM posts`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY timestamp DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query posts (ca=%q, search=%q, limit=%d): %w", filter.CA, filter.Search, limit, err)
	}
	defer rows.Close()

	var posts []domain.Post
	for rows.Next() {
		var (
			p  domain.Post
			ts string
		)
		err := rows.Scan(
			&p.ID,
			&p.CA,
			&p.Message,
			&p.Twitter,
			&p.Link,
			&p.GIF,
			&ts,
		)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		p.Timestamp, err = time.Parse(timeLayout, ts)
		if err != nil {
			return nil, fmt.Errorf("parse timestamp %q: %w", ts, err)
		}
		posts = append(posts, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate posts: %w", err)
	}

	return posts, nil
}

// CountByCA returns per-thread post counts ordered by count descending,
// truncated to k entries.
func (r *Repository) CountByCA(ctx context.Context, k int) ([]domain.TopThread, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT ca, COUNT(id) AS post_count
		FROM posts
		GROUP BY ca
		ORDER BY post_count DESC
		LIMIT ?`,
		k,
	)
	if err != nil {
		return nil, fmt.Errorf("query post counts (k=%d): %w", k, err)
	}
	defer rows.Close()

	var top []domain.TopThread
	for rows.Next() {
		var t domain.TopThread
		if err := rows.Scan(&t.CA, &t.PostCount); err != nil {
			return nil, fmt.Errorf("scan thread count: %w", err)
		}
		top = append(top, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate thread counts: %w", err)
	}

	return top, nil
}
