// Package mail delivers account emails (confirmation links, password reset
// links). Delivery is pluggable: a log/outbox writer for development, an S3
// outbox, and an asynq queue with a worker that hands messages to another
// Sender.
package mail

import "context"

// Sender delivers a single HTML message.
type Sender interface {
	Send(ctx context.Context, to, subject, html string) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, to, subject, html string) error

func (f SenderFunc) Send(ctx context.Context, to, subject, html string) error {
	return f(ctx, to, subject, html)
}
