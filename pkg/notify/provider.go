package notify

import "context"

// Message is a single customer-facing notification to deliver.
type Message struct {
	Phone        string
	CustomerName string
	Body         string
}

// Provider delivers messages over one channel. Providers running in
// simulation mode (missing credentials) log the message and succeed.
type Provider interface {
	Send(ctx context.Context, msg Message) error
}

// NoneProvider is the NONE method: nothing to deliver, always succeeds.
type NoneProvider struct{}

func (NoneProvider) Send(context.Context, Message) error { return nil }
