// Package notify delivers client communications by email or SMS.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Method is the delivery channel of a message.
type Method string

const (
	MethodEmail Method = "email"
	MethodPhone Method = "phone"
)

// ErrUnsupportedMethod is returned for a channel with no configured sender.
var ErrUnsupportedMethod = errors.New("notify: unsupported delivery method")

// Topic names the kind of client communication.
type Topic string

const (
	TopicConsentRequest Topic = "consent_request"
	TopicConfirmation   Topic = "confirmation"
	TopicCancellation   Topic = "cancellation"
	TopicReminder       Topic = "reminder"
)

// Message is one outbound communication.
type Message struct {
	To      string `json:"to"`
	ToName  string `json:"toName,omitempty"`
	Method  Method `json:"method"`
	Topic   Topic  `json:"topic,omitempty"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Validate checks the fields every sender needs.
func (m Message) Validate() error {
	if strings.TrimSpace(m.To) == "" {
		return errors.New("notify: recipient required")
	}
	if strings.TrimSpace(m.Body) == "" {
		return errors.New("notify: body required")
	}
	switch m.Method {
	case MethodEmail, MethodPhone:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedMethod, m.Method)
	}
}

// Notifier sends a message. Implementations may deliver asynchronously.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}
