package llm

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"autodeck/internal/model"
)

// ErrMalformed marks a response that could not be decoded or validated.
var ErrMalformed = errors.New("malformed response")

// ClassifyStatus maps an HTTP status to a provider error kind. Any other
// 4xx is a rejected request; non-error statuses count as malformed answers.
func ClassifyStatus(code int) model.ProviderErrorKind {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return model.ProviderAuth
	case code == http.StatusTooManyRequests:
		return model.ProviderRateLimit
	case code == http.StatusRequestTimeout || code >= 500:
		return model.ProviderTimeout
	case code >= 400:
		return model.ProviderRejected
	default:
		return model.ProviderMalformed
	}
}

// Classify wraps err as a ProviderError. Errors already classified pass
// through unchanged.
func Classify(provider string, err error) *model.ProviderError {
	var perr *model.ProviderError
	if errors.As(err, &perr) {
		return perr
	}
	return model.NewProviderError(provider, classifyKind(err), err)
}

func classifyKind(err error) model.ProviderErrorKind {
	if errors.Is(err, ErrMalformed) {
		return model.ProviderMalformed
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return model.ProviderTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return model.ProviderTimeout
	}

	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, "401", "403", "unauthorized", "forbidden", "invalid api key", "invalid_api_key", "authentication"):
		return model.ProviderAuth
	case containsAny(msg, "429", "rate limit", "rate_limit", "too many requests", "quota"):
		return model.ProviderRateLimit
	case containsAny(msg, "empty response", "no response", "unexpected end of json"):
		return model.ProviderMalformed
	case containsAny(msg, "status code: 400", "status code: 404", "status code: 422", "model_not_found", "invalid_request_error", "does not exist"):
		return model.ProviderRejected
	default:
		return model.ProviderTimeout
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
