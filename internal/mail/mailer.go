// Package mail delivers outbound account emails through a pluggable transport.
package mail

import "context"

// Message is a rendered email ready for a transport.
type Message struct {
	From     string            `json:"from"`
	To       string            `json:"to"`
	Subject  string            `json:"subject"`
	Template string            `json:"template"`
	LangKey  string            `json:"lang_key"`
	Params   map[string]string `json:"params"`
	Body     string            `json:"body"`
}

// Mailer hands messages to a delivery transport.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}
