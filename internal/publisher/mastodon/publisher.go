// Package mastodon publishes posts to a Mastodon instance.
package mastodon

import (
	"context"
	"fmt"
	"strings"

	gomastodon "github.com/mattn/go-mastodon"
	"go.uber.org/zap"

	"github.com/ijug-ev/cindy/internal/feed"
)

// Publisher implements feed.Publisher over the Mastodon statuses API.
type Publisher struct {
	client *gomastodon.Client
	logger *zap.Logger
}

// New builds a Publisher for the given instance host and access token.
func New(host, accessToken string, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	server := host
	if !strings.Contains(server, "://") {
		server = "https://" + server
	}
	return &Publisher{
		client: gomastodon.NewClient(&gomastodon.Config{
			Server:      server,
			AccessToken: accessToken,
		}),
		logger: logger,
	}
}

// Publish creates one status. The call is a single external write; it
// carries no idempotency guarantee.
func (p *Publisher) Publish(ctx context.Context, post feed.Post) error {
	status, err := p.client.PostStatus(ctx, &gomastodon.Toot{
		Status:      post.Text,
		Visibility:  string(post.Visibility),
		SpoilerText: post.SpoilerText,
	})
	if err != nil {
		return fmt.Errorf("post status: %w", err)
	}
	p.logger.Debug("status posted",
		zap.String("id", string(status.ID)),
		zap.String("visibility", string(post.Visibility)),
	)
	return nil
}
