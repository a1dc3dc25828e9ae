package mailer

import "context"

// Message is a single outbound email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer delivers messages through an external transport. Sends are
// best-effort and fallible; no retry logic lives behind this interface.
type Mailer interface {
	Name() string
	Send(ctx context.Context, msg Message) error
}
