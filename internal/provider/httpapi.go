package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultAPITimeout = 10 * time.Second

// APIConfig is the immutable transport configuration for one HTTP email
// API provider (Brevo-compatible transactional endpoint).
type APIConfig struct {
	ID          string
	Endpoint    string
	APIKey      string
	FromAddress string
	FromName    string
	Timeout     time.Duration
}

type apiAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type apiSendRequest struct {
	Sender      apiAddress   `json:"sender"`
	To          []apiAddress `json:"to"`
	Subject     string       `json:"subject"`
	HTMLContent string       `json:"htmlContent"`
}

type apiSendResponse struct {
	MessageID string `json:"messageId"`
}

// APIProvider sends mail through an HTTP transactional email API.
type APIProvider struct {
	cfg    APIConfig
	client *resty.Client
}

func NewAPIProvider(cfg APIConfig) (*APIProvider, error) {
	client := resty.New()
	client.SetTimeout(defaultAPITimeout)
	client.SetRetryCount(0)

	return NewAPIProviderWithClient(cfg, client)
}

func NewAPIProviderWithClient(cfg APIConfig, client *resty.Client) (*APIProvider, error) {
	if strings.TrimSpace(cfg.ID) == "" {
		return nil, fmt.Errorf("api provider id is required")
	}

	cfg.Endpoint = strings.TrimSpace(cfg.Endpoint)
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("api endpoint is required for provider %q", cfg.ID)
	}
	if _, err := url.ParseRequestURI(cfg.Endpoint); err != nil {
		return nil, fmt.Errorf("invalid api endpoint for provider %q: %w", cfg.ID, err)
	}
	if strings.TrimSpace(cfg.FromAddress) == "" {
		return nil, fmt.Errorf("api from address is required for provider %q", cfg.ID)
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultAPITimeout)
	}
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}
	client.SetRetryCount(0)

	return &APIProvider{cfg: cfg, client: client}, nil
}

func (p *APIProvider) ID() string {
	if p == nil {
		return ""
	}
	return p.cfg.ID
}

func (p *APIProvider) Send(ctx context.Context, msg Email) (*SendResult, error) {
	if p == nil || p.client == nil {
		return nil, fmt.Errorf("provider is not initialized")
	}
	if strings.TrimSpace(msg.To) == "" {
		return nil, fmt.Errorf("recipient is required")
	}

	reqBody := apiSendRequest{
		Sender:      apiAddress{Email: p.cfg.FromAddress, Name: p.cfg.FromName},
		To:          []apiAddress{{Email: msg.To}},
		Subject:     msg.Subject,
		HTMLContent: msg.HTMLBody,
	}

	response, err := p.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("api-key", p.cfg.APIKey).
		SetBody(reqBody).
		Post(p.cfg.Endpoint)
	if err != nil {
		return nil, &TransportError{
			ProviderID: p.cfg.ID,
			Message:    "provider request failed",
			Transient:  !errors.Is(err, context.Canceled),
			Cause:      err,
		}
	}
	if response == nil {
		return nil, &TransportError{
			ProviderID: p.cfg.ID,
			Message:    "provider returned empty response",
			Transient:  true,
		}
	}

	statusCode := response.StatusCode()
	responseBody := strings.TrimSpace(response.String())

	if statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices {
		return &SendResult{
			StatusCode: statusCode,
			MessageID:  apiMessageID(response),
		}, nil
	}

	return nil, &TransportError{
		ProviderID: p.cfg.ID,
		StatusCode: statusCode,
		Message:    apiErrorMessage(statusCode, responseBody),
		Transient:  isTransientHTTPStatus(statusCode),
	}
}

func isTransientHTTPStatus(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || (statusCode >= http.StatusInternalServerError && statusCode <= 599)
}

func apiErrorMessage(statusCode int, body string) string {
	base := fmt.Sprintf("provider returned status %d", statusCode)
	if body == "" {
		return base
	}
	return fmt.Sprintf("%s: %s", base, body)
}

func apiMessageID(response *resty.Response) string {
	if response == nil {
		return ""
	}

	var parsed apiSendResponse
	if err := json.Unmarshal(response.Body(), &parsed); err == nil {
		if id := strings.TrimSpace(parsed.MessageID); id != "" {
			return id
		}
	}

	for _, key := range []string{"X-Message-ID", "X-Message-Id", "X-Request-ID", "X-Request-Id"} {
		if value := strings.TrimSpace(response.Header().Get(key)); value != "" {
			return value
		}
	}

	return ""
}
