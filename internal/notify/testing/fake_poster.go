// Package testing provides test doubles for the notify package.
package testing

import (
	"context"
	"fmt"
	"sync"
)

// Post records one call to a FakePoster.
type Post struct {
	Webhook  bool
	Text     string
	ThreadTS string
}

// FakePoster records posts instead of sending them.
type FakePoster struct {
	// Err, when set, is returned by every call.
	Err error

	mu    sync.Mutex
	posts []Post
}

// NewFakePoster creates an empty FakePoster.
func NewFakePoster() *FakePoster {
	return &FakePoster{}
}

// PostLab records a lab post and returns a timestamp derived from its position.
func (f *FakePoster) PostLab(ctx context.Context, text, threadTS string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return "", f.Err
	}
	f.posts = append(f.posts, Post{Text: text, ThreadTS: threadTS})
	return fmt.Sprintf("1700000000.%06d", len(f.posts)), nil
}

// PostWebhook records a webhook post.
func (f *FakePoster) PostWebhook(ctx context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	f.posts = append(f.posts, Post{Webhook: true, Text: text})
	return nil
}

// Posts returns a copy of every recorded post in order.
func (f *FakePoster) Posts() []Post {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Post, len(f.posts))
	copy(out, f.posts)
	return out
}

// Reset forgets recorded posts.
func (f *FakePoster) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posts = nil
}
