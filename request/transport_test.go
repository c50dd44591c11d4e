package request_test

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/avosk/go-depot/request"
)

func TestNewHTTPClient(t *testing.T) {
	t.Parallel()

	t.Run("maps the timeout triple onto the transport", func(t *testing.T) {
		t.Parallel()
		timeouts := request.Timeouts{
			Overall: time.Minute,
			Connect: 5 * time.Second,
			Read:    20 * time.Second,
		}
		client, err := request.NewHTTPClient(timeouts, "")
		if err != nil {
			t.Fatalf("NewHTTPClient() unexpected error: %v", err)
		}

		transport, ok := client.Transport.(*http.Transport)
		if !ok {
			t.Fatalf("Transport is %T, want *http.Transport", client.Transport)
		}
		if transport.ResponseHeaderTimeout != timeouts.Read {
			t.Errorf("ResponseHeaderTimeout = %v, want %v", transport.ResponseHeaderTimeout, timeouts.Read)
		}
		if transport.TLSHandshakeTimeout != timeouts.Connect {
			t.Errorf("TLSHandshakeTimeout = %v, want %v", transport.TLSHandshakeTimeout, timeouts.Connect)
		}
		// The executor owns the overall deadline per attempt; a client
		// timeout here would clamp per-request overrides.
		if client.Timeout != 0 {
			t.Errorf("client.Timeout = %v, want 0", client.Timeout)
		}
	})

	t.Run("rejects an invalid triple", func(t *testing.T) {
		t.Parallel()
		_, err := request.NewHTTPClient(request.Timeouts{Overall: time.Second}, "")
		if !errors.Is(err, request.ErrInvalidTimeouts) {
			t.Errorf("NewHTTPClient() error = %v, want ErrInvalidTimeouts", err)
		}
	})

	t.Run("accepts an explicit proxy url", func(t *testing.T) {
		t.Parallel()
		client, err := request.NewHTTPClient(validTimeouts(), "http://proxy.internal:3128")
		if err != nil {
			t.Fatalf("NewHTTPClient() unexpected error: %v", err)
		}
		transport := client.Transport.(*http.Transport)
		if transport.Proxy == nil {
			t.Error("Proxy is nil, want a configured proxy func")
		}
	})

	t.Run("rejects a relative proxy url", func(t *testing.T) {
		t.Parallel()
		if _, err := request.NewHTTPClient(validTimeouts(), "proxy.internal:3128"); err == nil {
			t.Error("NewHTTPClient() expected error for relative proxy url, got nil")
		}
	})
}
