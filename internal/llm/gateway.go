package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"autodeck/internal/metrics"
	"autodeck/internal/model"
)

type RetryPolicy struct {
	MaxAttempts      int
	BaseDelay        time.Duration
	MaxDelay         time.Duration
	MalformedRetries int
}

// Delay returns the wait before transient retry n (1-based).
func (p RetryPolicy) Delay(n int) time.Duration {
	if n < 1 {
		n = 1
	}
	d := p.BaseDelay
	for i := 1; i < n; i++ {
		d *= 2
		if d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	return min(d, p.MaxDelay)
}

type Gateway struct {
	client   Client
	provider string
	policy   RetryPolicy
	budget   *Budget
}

func NewGateway(provider string, client Client, policy RetryPolicy, budget *Budget) *Gateway {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 1
	}
	if policy.MalformedRetries < 0 {
		policy.MalformedRetries = 0
	}
	return &Gateway{
		client:   client,
		provider: provider,
		policy:   policy,
		budget:   budget,
	}
}

func (g *Gateway) Provider() string {
	return g.provider
}

// GenerateOutline calls the provider and decodes its JSON answer into out.
// Every failure is a *model.ProviderError.
func (g *Gateway) GenerateOutline(ctx context.Context, req Request, out any) error {
	transient := 0
	malformed := 0

	for {
		if err := ctx.Err(); err != nil {
			return model.NewProviderError(g.provider, model.ProviderTimeout, err)
		}

		err := g.attempt(ctx, req, out)
		if err == nil {
			metrics.RecordProviderCall(g.provider, "ok")
			return nil
		}

		perr := Classify(g.provider, err)
		metrics.RecordProviderCall(g.provider, string(perr.Kind))
		if ctxErr := ctx.Err(); ctxErr != nil {
			return model.NewProviderError(g.provider, model.ProviderTimeout, ctxErr)
		}

		switch perr.Kind {
		case model.ProviderAuth, model.ProviderRejected:
			return perr
		case model.ProviderMalformed:
			malformed++
			if malformed > g.policy.MalformedRetries {
				return perr
			}
			metrics.RecordRetry(g.provider, string(perr.Kind))
			slog.Warn("Malformed provider response, retrying", "provider", g.provider, "attempt", malformed, "error", perr.Err)
		default:
			transient++
			if transient >= g.policy.MaxAttempts {
				return perr
			}
			delay := g.policy.Delay(transient)
			metrics.RecordRetry(g.provider, string(perr.Kind))
			slog.Warn("Provider call failed, backing off", "provider", g.provider, "kind", perr.Kind, "delay", delay, "error", perr.Err)
			if err := sleep(ctx, delay); err != nil {
				return model.NewProviderError(g.provider, model.ProviderTimeout, err)
			}
		}
	}
}

func (g *Gateway) attempt(ctx context.Context, req Request, out any) error {
	if err := g.budget.Acquire(); err != nil {
		return err
	}

	raw, err := g.client.GenerateOutline(ctx, req)
	if err != nil {
		return err
	}
	return decode(raw, out)
}

func decode(raw string, out any) error {
	body := extractJSON(raw)
	if body == "" {
		return fmt.Errorf("%w: no JSON object in response", ErrMalformed)
	}
	if v := reflect.ValueOf(out); v.Kind() == reflect.Pointer && !v.IsNil() {
		v.Elem().Set(reflect.Zero(v.Elem().Type()))
	}
	if err := json.Unmarshal([]byte(body), out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if v, ok := out.(Validatable); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	}
	return nil
}

// extractJSON strips markdown fences and prose around the outermost object.
func extractJSON(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return ""
	}
	return s[start : end+1]
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
