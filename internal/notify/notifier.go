// Package notify defines the notification interface and implementations
// for stock-alert delivery.
package notify

import "context"

// Notifier delivers one report message to every configured recipient.
// Implementations log per-recipient delivery failures and keep going; an
// error return is reserved for context cancellation.
type Notifier interface {
	Send(ctx context.Context, text string) error
}
