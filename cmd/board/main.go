// Command board is a terminal client for the CA message board. It fetches
// the current view over HTTP, optionally submits a post through the
// optimistic pipeline, and with -watch follows live updates over the
// realtime channel, reconciling them into its local view.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/scamr/caboard/internal/board"
	"github.com/scamr/caboard/internal/domain"
	"github.com/scamr/caboard/internal/realtime"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		server  string
		ca      string
		message string
		twitter string
		link    string
		gif     string
		topK    int
		watch   bool
	)

	flag.StringVar(&server, "server", envOrDefault("CABOARD_SERVER", "http://localhost:8080"), "board server base URL")
	flag.StringVar(&ca, "ca", "", "contract address: filter the view, and thread key for -message")
	flag.StringVar(&message, "message", "", "post this message (requires -ca)")
	flag.StringVar(&twitter, "twitter", "", "optional handle attached to the post")
	flag.StringVar(&link, "link", "", "optional explicit link (a URL in the message wins)")
	flag.StringVar(&gif, "gif", "", "optional gif URL attached to the post")
	flag.IntVar(&topK, "top", domain.DefaultTopK, "how many top threads to show")
	flag.BoolVar(&watch, "watch", false, "keep running and fold live updates into the view")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client := &boardClient{
		baseURL:    strings.TrimRight(server, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}

	view := board.View{}

	posts, err := client.fetchPosts(ctx, ca)
	if err != nil {
		return err
	}
	view.Posts = posts

	if message != "" {
		if ca == "" {
			return fmt.Errorf("-message requires -ca")
		}

		sub := domain.Submission{
			CA:            ca,
			Message:       message,
			Twitter:       twitter,
			Link:          link,
			GIF:           gif,
			ProvisionalID: board.NewProvisionalID(),
		}

		// Render our own post immediately; the server echo replaces it.
		view = board.Reconcile(view, domain.Post{
			ProvisionalID: sub.ProvisionalID,
			CA:            sub.CA,
			Message:       sub.Message,
			Timestamp:     time.Now().UTC(),
		}, board.SourceLocal)
		printView(view)

		created, err := client.createPost(ctx, sub)
		if err != nil {
			// The optimistic entry stays; the user already saw it.
			return fmt.Errorf("submit post: %w", err)
		}
		view = board.Reconcile(view, *created, board.SourceResponse)
	}

	printView(view)

	top, err := client.fetchTopThreads(ctx, topK)
	if err != nil {
		return err
	}
	printTopThreads(top)

	if !watch {
		return nil
	}

	wsURL, err := websocketURL(client.baseURL)
	if err != nil {
		return err
	}

	listener := realtime.NewListener(wsURL, func(event realtime.Event) {
		if ca != "" && event.Post.CA != ca {
			return
		}
		view = board.Reconcile(view, event.Post, board.SourceRelay)
		fmt.Println("---")
		printView(view)
	}, logger)

	err = listener.Start(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// boardClient is a thin HTTP client for the board API.
type boardClient struct {
	baseURL    string
	httpClient *http.Client
}

func (c *boardClient) fetchPosts(ctx context.Context, ca string) ([]domain.Post, error) {
	endpoint := c.baseURL + "/api/posts"
	if ca != "" {
		endpoint += "?ca=" + url.QueryEscape(ca)
	}

	var posts []domain.Post
	if err := c.getJSON(ctx, endpoint, &posts); err != nil {
		return nil, fmt.Errorf("fetch posts: %w", err)
	}
	return posts, nil
}

func (c *boardClient) fetchTopThreads(ctx context.Context, k int) ([]domain.TopThread, error) {
	endpoint := fmt.Sprintf("%s/api/threads/top?k=%d", c.baseURL, k)

	var top []domain.TopThread
	if err := c.getJSON(ctx, endpoint, &top); err != nil {
		return nil, fmt.Errorf("fetch top threads: %w", err)
	}
	return top, nil
}

func (c *boardClient) createPost(ctx context.Context, sub domain.Submission) (*domain.Post, error) {
	payload, err := json.Marshal(sub)
	if err != nil {
		return nil, fmt.Errorf("marshal submission: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/posts", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var post domain.Post
	if err := json.Unmarshal(respBody, &post); err != nil {
		return nil, fmt.Errorf("unmarshal post: %w", err)
	}
	return &post, nil
}

func (c *boardClient) getJSON(ctx context.Context, endpoint string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	return json.Unmarshal(respBody, result)
}

func websocketURL(base string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse server URL: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = "/ws"
	return u.String(), nil
}

func printView(view board.View) {
	threads := view.Threads()

	cas := make([]string, 0, len(threads))
	for ca := range threads {
		cas = append(cas, ca)
	}
	sort.Strings(cas)

	for _, ca := range cas {
		posts := threads[ca]
		fmt.Printf(">%s (%d posts)\n", ca, len(posts))
		for _, p := range posts {
			id := fmt.Sprintf("No.%d", p.ID)
			if p.ID == 0 {
				id = "(pending)"
			}
			fmt.Printf("  %s %s", p.Timestamp.Format("2006-01-02 15:04"), id)
			if p.Twitter != nil {
				fmt.Printf(" @%s", *p.Twitter)
			}
			if p.Link != nil {
				fmt.Printf(" [%s]", *p.Link)
			}
			fmt.Printf("\n    %s\n", strings.ReplaceAll(p.Message, "\n", "\n    "))
			if p.GIF != nil {
				fmt.Printf("    gif: %s\n", *p.GIF)
			}
		}
	}
}

func printTopThreads(top []domain.TopThread) {
	if len(top) == 0 {
		return
	}
	fmt.Println("top threads:")
	for i, t := range top {
		fmt.Printf("  %d. %s (%d posts)\n", i+1, t.CA, t.PostCount)
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
