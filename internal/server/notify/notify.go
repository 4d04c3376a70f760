// Package notify delivers verification links to users. Delivery is best
// effort: the auth service hands messages to a Dispatcher, which sends them
// in the background and only logs failures.
package notify

import (
	"context"
	"fmt"
	"time"
)

// Message asks for a verification link to be sent to one address.
type Message struct {
	To       string
	FullName string
	Link     string
	Validity time.Duration
}

// Notifier delivers a Message.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// Email is a rendered message ready for a transport.
type Email struct {
	From    string
	To      string
	Subject string
	HTML    string
	Text    string
}

// Sender is a mail transport.
type Sender interface {
	Deliver(ctx context.Context, email Email) error
}

// Mailer renders a Message into an Email and hands it to a Sender.
type Mailer struct {
	sender Sender
	from   string
}

func NewMailer(sender Sender, from string) *Mailer {
	return &Mailer{sender: sender, from: from}
}

func (m *Mailer) Send(ctx context.Context, msg Message) error {
	email, err := renderVerification(msg)
	if err != nil {
		return fmt.Errorf("render verification email: %w", err)
	}
	email.From = m.from
	email.To = msg.To
	return m.sender.Deliver(ctx, email)
}
