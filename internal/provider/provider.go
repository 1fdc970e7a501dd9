package provider

import "context"

// Email is a fully rendered message ready for transport.
type Email struct {
	To       string
	Subject  string
	HTMLBody string
}

// Provider is the outbound email delivery port. Each configured provider
// gets one adapter; adding a provider means one adapter plus a config
// entry, the dispatcher is polymorphic over this interface.
type Provider interface {
	ID() string
	Send(ctx context.Context, msg Email) (*SendResult, error)
}

// SendResult stores provider call metadata for audit and persistence.
type SendResult struct {
	StatusCode int
	MessageID  string
}
