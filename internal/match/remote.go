package match

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/sony/gobreaker/v2"
)

// Completer sends one system + user exchange to a language model and
// returns the text of the first completion.
type Completer interface {
	Complete(ctx context.Context, system, prompt string, opts CallOptions) (string, error)
}

type CallOptions struct {
	Temperature float64
	MaxTokens   int
}

// failureClass names why a remote call produced no usable text. Every class
// is recoverable: the engine answers with the fallback heuristic.
type failureClass string

const (
	failureNone        failureClass = ""
	failureRateLimit   failureClass = "rate_limit"
	failureAuth        failureClass = "auth"
	failureNetwork     failureClass = "network"
	failureBreakerOpen failureClass = "breaker_open"
	failureEmpty       failureClass = "empty_response"
	failureUnexpected  failureClass = "unexpected"
)

type remoteResult struct {
	raw     string
	failure failureClass
	err     error
}

func (r remoteResult) ok() bool {
	return r.failure == failureNone
}

func succeeded(raw string) remoteResult {
	if strings.TrimSpace(raw) == "" {
		return remoteResult{failure: failureEmpty, err: errors.New("model returned empty content")}
	}
	return remoteResult{raw: raw}
}

func failed(err error) remoteResult {
	return remoteResult{failure: classify(err), err: err}
}

// classify maps provider errors onto failure classes. Providers only expose
// status codes in error text, so matching is textual after the typed checks.
func classify(err error) failureClass {
	if err == nil {
		return failureNone
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return failureBreakerOpen
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return failureNetwork
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return failureNetwork
	}

	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, "429", "rate limit", "ratelimit", "quota", "resource_exhausted", "too many requests"):
		return failureRateLimit
	case containsAny(msg, "401", "403", "unauthorized", "authentication", "invalid api key", "incorrect api key", "api key not valid", "permission_denied"):
		return failureAuth
	case containsAny(msg, "timeout", "connection refused", "connection reset", "no such host", "eof"):
		return failureNetwork
	default:
		return failureUnexpected
	}
}

func containsAny(s string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
