package sms

import "context"

// Sender delivers outbound SMS and returns the delivery message id used to
// correlate customer replies with proposals.
type Sender interface {
	Send(ctx context.Context, phone, text string) (string, error)
}
