package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-resty/resty/v2"
)

func testAPIConfig(endpoint string) APIConfig {
	return APIConfig{
		ID:          "brevo",
		Endpoint:    endpoint,
		APIKey:      "test-key",
		FromAddress: "noreply@campus.edu",
		FromName:    "CampusHub",
	}
}

func TestNewAPIProviderValidation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		cfg  APIConfig
	}{
		{name: "empty id", cfg: APIConfig{Endpoint: "https://api.brevo.com/v3/smtp/email", FromAddress: "a@b.c"}},
		{name: "empty endpoint", cfg: APIConfig{ID: "brevo", FromAddress: "a@b.c"}},
		{name: "bad endpoint", cfg: APIConfig{ID: "brevo", Endpoint: "not a url", FromAddress: "a@b.c"}},
		{name: "empty from", cfg: APIConfig{ID: "brevo", Endpoint: "https://api.brevo.com/v3/smtp/email"}},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if _, err := NewAPIProvider(tc.cfg); err == nil {
				t.Fatalf("NewAPIProvider(%s) expected error", tc.name)
			}
		})
	}
}

func TestAPIProviderSendSuccess(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("api-key") != "test-key" {
			t.Fatalf("api-key header = %q, want test-key", r.Header.Get("api-key"))
		}

		var body apiSendRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request body: %v", err)
		}
		if body.Sender.Email != "noreply@campus.edu" {
			t.Fatalf("sender = %s, want noreply@campus.edu", body.Sender.Email)
		}
		if len(body.To) != 1 || body.To[0].Email != "member@campus.edu" {
			t.Fatalf("to = %+v, want member@campus.edu", body.To)
		}
		if body.Subject != "Confirm your account" {
			t.Fatalf("subject = %q", body.Subject)
		}

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"messageId":"<msg-123@brevo>"}`))
	}))
	defer server.Close()

	p, err := NewAPIProviderWithClient(testAPIConfig(server.URL), resty.New())
	if err != nil {
		t.Fatalf("NewAPIProviderWithClient() error = %v", err)
	}

	result, err := p.Send(context.Background(), Email{
		To:       "member@campus.edu",
		Subject:  "Confirm your account",
		HTMLBody: "<p>hi</p>",
	})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if result.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", result.StatusCode)
	}
	if result.MessageID != "<msg-123@brevo>" {
		t.Fatalf("message id = %q, want <msg-123@brevo>", result.MessageID)
	}
}

func TestAPIProviderSendServerErrorIsTransient(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"message":"try later"}`))
	}))
	defer server.Close()

	p, err := NewAPIProviderWithClient(testAPIConfig(server.URL), resty.New())
	if err != nil {
		t.Fatalf("NewAPIProviderWithClient() error = %v", err)
	}

	_, err = p.Send(context.Background(), Email{To: "member@campus.edu", Subject: "s", HTMLBody: "b"})
	if err == nil {
		t.Fatal("expected error on 503")
	}

	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("error type = %T, want *TransportError", err)
	}
	if transportErr.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", transportErr.StatusCode)
	}
	if !transportErr.Transient {
		t.Fatal("5xx should be transient")
	}
}

func TestAPIProviderSendClientErrorIsPermanent(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"invalid sender"}`))
	}))
	defer server.Close()

	p, err := NewAPIProviderWithClient(testAPIConfig(server.URL), resty.New())
	if err != nil {
		t.Fatalf("NewAPIProviderWithClient() error = %v", err)
	}

	_, err = p.Send(context.Background(), Email{To: "member@campus.edu", Subject: "s", HTMLBody: "b"})

	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("error type = %T, want *TransportError", err)
	}
	if transportErr.Transient {
		t.Fatal("4xx should not be transient")
	}
	if IsTransient(err) {
		t.Fatal("IsTransient() should be false for a 400")
	}
}

func TestAPIProviderSendRateLimitIsTransient(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	p, err := NewAPIProviderWithClient(testAPIConfig(server.URL), resty.New())
	if err != nil {
		t.Fatalf("NewAPIProviderWithClient() error = %v", err)
	}

	_, err = p.Send(context.Background(), Email{To: "member@campus.edu", Subject: "s", HTMLBody: "b"})
	if !IsTransient(err) {
		t.Fatalf("429 should be transient, got %v", err)
	}
}

func TestAPIProviderSendMessageIDFromHeaderFallback(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Message-ID", "hdr-42")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	p, err := NewAPIProviderWithClient(testAPIConfig(server.URL), resty.New())
	if err != nil {
		t.Fatalf("NewAPIProviderWithClient() error = %v", err)
	}

	result, err := p.Send(context.Background(), Email{To: "member@campus.edu", Subject: "s", HTMLBody: "b"})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if result.MessageID != "hdr-42" {
		t.Fatalf("message id = %q, want hdr-42", result.MessageID)
	}
}

func TestAPIProviderSendRequiresRecipient(t *testing.T) {
	t.Parallel()

	p, err := NewAPIProviderWithClient(testAPIConfig("https://api.brevo.com/v3/smtp/email"), resty.New())
	if err != nil {
		t.Fatalf("NewAPIProviderWithClient() error = %v", err)
	}

	if _, err := p.Send(context.Background(), Email{Subject: "s", HTMLBody: "b"}); err == nil {
		t.Fatal("expected error for missing recipient")
	}
}
