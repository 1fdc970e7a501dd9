package provider

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	"gopkg.in/gomail.v2"
)

const defaultSMTPTimeout = 15 * time.Second

// SMTPConfig is the immutable transport configuration for one SMTP relay.
type SMTPConfig struct {
	ID          string
	Host        string
	Port        int
	Username    string
	Password    string
	FromAddress string
	FromName    string
	Timeout     time.Duration
}

// SMTPProvider delivers mail through an SMTP relay via gomail.
type SMTPProvider struct {
	cfg    SMTPConfig
	dialer *gomail.Dialer
}

func NewSMTPProvider(cfg SMTPConfig) (*SMTPProvider, error) {
	if strings.TrimSpace(cfg.ID) == "" {
		return nil, fmt.Errorf("smtp provider id is required")
	}
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, fmt.Errorf("smtp host is required for provider %q", cfg.ID)
	}
	if cfg.Port <= 0 {
		cfg.Port = 587
	}
	if strings.TrimSpace(cfg.FromAddress) == "" {
		return nil, fmt.Errorf("smtp from address is required for provider %q", cfg.ID)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultSMTPTimeout
	}

	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	dialer.TLSConfig = &tls.Config{ServerName: cfg.Host}

	return &SMTPProvider{cfg: cfg, dialer: dialer}, nil
}

func (p *SMTPProvider) ID() string {
	if p == nil {
		return ""
	}
	return p.cfg.ID
}

func (p *SMTPProvider) Send(ctx context.Context, msg Email) (*SendResult, error) {
	if p == nil || p.dialer == nil {
		return nil, fmt.Errorf("provider is not initialized")
	}
	if strings.TrimSpace(msg.To) == "" {
		return nil, fmt.Errorf("recipient is required")
	}

	m := gomail.NewMessage()
	m.SetAddressHeader("From", p.cfg.FromAddress, p.cfg.FromName)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", msg.HTMLBody)

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	// gomail has no context support; run the dial-and-send in a goroutine
	// so a hung relay cannot stall the caller past the bounded timeout.
	done := make(chan error, 1)
	go func() {
		done <- p.dialer.DialAndSend(m)
	}()

	select {
	case <-ctx.Done():
		return nil, &TransportError{
			ProviderID: p.cfg.ID,
			Message:    "smtp send timed out",
			Transient:  true,
			Cause:      ctx.Err(),
		}
	case err := <-done:
		if err != nil {
			return nil, &TransportError{
				ProviderID: p.cfg.ID,
				Message:    "smtp send failed",
				Transient:  true,
				Cause:      err,
			}
		}
	}

	return &SendResult{}, nil
}
