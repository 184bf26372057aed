// Package notify delivers digests by mail and by WeChat worker push.
package notify

import (
	"context"
	"fmt"

	"github.com/qepting91/postwatch/internal/domain"
)

// Digest is one delivery: the entries to report and the day it is for.
type Digest struct {
	Day     domain.Day
	Entries []domain.Entry
	// Latest marks a manual send of the last snapshot rather than new posts.
	Latest bool
}

// Subject is the mail subject and push title for d.
func (d Digest) Subject() string {
	if d.Latest {
		return fmt.Sprintf("postwatch latest %s", d.Day)
	}
	return fmt.Sprintf("postwatch digest %s", d.Day)
}

// Sender is a digest delivery channel.
type Sender interface {
	Name() string
	Send(ctx context.Context, d Digest) error
}
