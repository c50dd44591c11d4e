package apierr

import (
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// maxBodySnippet caps how much response-body text is folded into a
// failure message. Depot error bodies are short; anything longer is
// usually an HTML error page.
const maxBodySnippet = 512

// Classify translates an HTTP response into a Failure, or nil when the
// status is not a failure (< 400).
//
// The mapping is checked in order, first match wins:
//
//	401, 403     -> Unauthorized
//	404          -> NotFound
//	429          -> RateLimited (Retry-After header parsed as integer seconds)
//	400          -> BadRequest
//	500-599      -> ServerError
//	other >= 400 -> Other
//
// Classify is pure: no I/O, no state. The body is whatever the caller
// already read; an empty or unreadable body falls back to the status text.
func Classify(status int, url string, body []byte, header http.Header) *Failure {
	if status < 400 {
		return nil
	}

	msg := bodySnippet(body, status)

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		// 401 and 403 are semantically distinct at the protocol level but
		// both mean "fix your credentials" to a Depot caller.
		return New(KindUnauthorized, status, url, msg)

	case status == http.StatusNotFound:
		return New(KindNotFound, status, url, msg)

	case status == http.StatusTooManyRequests:
		f := New(KindRateLimited, status, url, msg)
		if secs, ok := parseRetryAfter(header); ok {
			f.retryAfter = time.Duration(secs) * time.Second
			f.retryAfterSet = true
		}
		return f

	case status == http.StatusBadRequest:
		return New(KindBadRequest, status, url, msg)

	case status >= 500 && status <= 599:
		return New(KindServerError, status, url, msg)

	default:
		return New(KindOther, status, url, msg)
	}
}

// ClassifyTransport translates a non-HTTP failure (connection refused,
// DNS error, timeout before any response, cancellation) into a Transport
// failure. It never routes through status-code logic.
func ClassifyTransport(url string, cause error) *Failure {
	return NewTransport(url, cause)
}

// parseRetryAfter extracts an integer-seconds Retry-After value.
// Absent, non-numeric, or negative headers yield ok == false. HTTP-date
// values are not supported; Depot only emits delta-seconds.
func parseRetryAfter(header http.Header) (seconds int, ok bool) {
	if header == nil {
		return 0, false
	}
	raw := strings.TrimSpace(header.Get("Retry-After"))
	if raw == "" {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// bodySnippet turns a response body into message text, falling back to
// the status text when the body is empty or not valid UTF-8.
func bodySnippet(body []byte, status int) string {
	s := strings.TrimSpace(string(body))
	if s == "" || !utf8.ValidString(s) {
		return http.StatusText(status)
	}
	if len(s) > maxBodySnippet {
		cut := maxBodySnippet
		// Back up to a rune boundary so truncation never corrupts UTF-8.
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut]
	}
	return s
}
