// Package memory contains an in-memory publisher for tests and dry runs.
package memory

import (
	"context"
	"sync"

	"github.com/ijug-ev/cindy/internal/feed"
)

// Publisher stores published posts for inspection.
type Publisher struct {
	mu    sync.RWMutex
	posts []feed.Post
	err   error
}

// New returns a memory Publisher.
func New() *Publisher {
	return &Publisher{}
}

// Fail makes every subsequent Publish return err.
func (p *Publisher) Fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

// Publish records the post.
func (p *Publisher) Publish(_ context.Context, post feed.Post) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.posts = append(p.posts, post)
	return nil
}

// Posts returns the recorded posts.
func (p *Publisher) Posts() []feed.Post {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]feed.Post, len(p.posts))
	copy(out, p.posts)
	return out
}
