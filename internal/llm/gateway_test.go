package llm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autodeck/internal/model"
)

type answer struct {
	body string
	err  error
}

type scriptedClient struct {
	answers []answer
	calls   atomic.Int32
}

func (c *scriptedClient) GenerateOutline(_ context.Context, _ Request) (string, error) {
	n := int(c.calls.Add(1)) - 1
	if n >= len(c.answers) {
		n = len(c.answers) - 1
	}
	return c.answers[n].body, c.answers[n].err
}

type titled struct {
	Title string `json:"title"`
}

func (t *titled) Validate() error {
	if t.Title == "" {
		return errors.New("title is required")
	}
	return nil
}

func fastPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, MalformedRetries: 2}
}

func TestGatewayDecodesFencedJSON(t *testing.T) {
	client := &scriptedClient{answers: []answer{{body: "```json\n{\"title\": \"Jazz\"}\n```"}}}
	gw := NewGateway("mock", client, fastPolicy(), nil)

	var out titled
	require.NoError(t, gw.GenerateOutline(context.Background(), Request{}, &out))
	assert.Equal(t, "Jazz", out.Title)
	assert.EqualValues(t, 1, client.calls.Load())
}

func TestGatewayRetryPolicy(t *testing.T) {
	rateLimited := model.NewProviderError("mock", model.ProviderRateLimit, errors.New("429"))
	timeout := model.NewProviderError("mock", model.ProviderTimeout, errors.New("deadline"))
	auth := model.NewProviderError("mock", model.ProviderAuth, errors.New("401"))
	rejected := model.NewProviderError("mock", model.ProviderRejected, errors.New("404 model_not_found"))

	tests := []struct {
		name      string
		answers   []answer
		wantErr   bool
		wantKind  model.ProviderErrorKind
		wantCalls int32
	}{
		{
			name:      "authIsFatal",
			answers:   []answer{{err: auth}, {body: `{"title":"x"}`}},
			wantErr:   true,
			wantKind:  model.ProviderAuth,
			wantCalls: 1,
		},
		{
			name:      "rejectedIsFatal",
			answers:   []answer{{err: rejected}, {body: `{"title":"x"}`}},
			wantErr:   true,
			wantKind:  model.ProviderRejected,
			wantCalls: 1,
		},
		{
			name:      "transientThenSuccess",
			answers:   []answer{{err: timeout}, {err: rateLimited}, {body: `{"title":"x"}`}},
			wantCalls: 3,
		},
		{
			name:      "transientExhausted",
			answers:   []answer{{err: rateLimited}},
			wantErr:   true,
			wantKind:  model.ProviderRateLimit,
			wantCalls: 3,
		},
		{
			name:      "malformedExhausted",
			answers:   []answer{{body: "not json at all"}},
			wantErr:   true,
			wantKind:  model.ProviderMalformed,
			wantCalls: 3,
		},
		{
			name:      "validationFailureIsMalformed",
			answers:   []answer{{body: `{"title":""}`}, {body: `{"title":"ok"}`}},
			wantCalls: 2,
		},
		{
			name:      "unclassifiedErrorIsTransient",
			answers:   []answer{{err: errors.New("connection reset by peer")}, {body: `{"title":"ok"}`}},
			wantCalls: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &scriptedClient{answers: tt.answers}
			gw := NewGateway("mock", client, fastPolicy(), nil)

			var out titled
			err := gw.GenerateOutline(context.Background(), Request{}, &out)

			assert.Equal(t, tt.wantCalls, client.calls.Load())
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}
			kind, ok := model.ProviderErrorKindOf(err)
			require.True(t, ok, "expected ProviderError, got %v", err)
			assert.Equal(t, tt.wantKind, kind)
		})
	}
}

func TestGatewayCancelledContext(t *testing.T) {
	client := &scriptedClient{answers: []answer{{body: `{"title":"x"}`}}}
	gw := NewGateway("mock", client, fastPolicy(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := gw.GenerateOutline(ctx, Request{}, &titled{})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	kind, _ := model.ProviderErrorKindOf(err)
	assert.Equal(t, model.ProviderTimeout, kind)
	assert.EqualValues(t, 0, client.calls.Load())
}

func TestGatewayBackoffStopsOnCancel(t *testing.T) {
	client := &scriptedClient{answers: []answer{{err: model.NewProviderError("mock", model.ProviderRateLimit, errors.New("429"))}}}
	policy := RetryPolicy{MaxAttempts: 5, BaseDelay: 10 * time.Second, MaxDelay: time.Minute}
	gw := NewGateway("mock", client, policy, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := gw.GenerateOutline(ctx, Request{}, &titled{})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.EqualValues(t, 1, client.calls.Load())
}

func TestGatewayRespectsBudget(t *testing.T) {
	client := &scriptedClient{answers: []answer{{body: `{"title":"x"}`}}}
	budget := NewBudget("mock", 1, time.Hour)
	gw := NewGateway("mock", client, fastPolicy(), budget)

	require.NoError(t, gw.GenerateOutline(context.Background(), Request{}, &titled{}))

	err := gw.GenerateOutline(context.Background(), Request{}, &titled{})
	kind, ok := model.ProviderErrorKindOf(err)
	require.True(t, ok)
	assert.Equal(t, model.ProviderRateLimit, kind)
	assert.EqualValues(t, 1, client.calls.Load(), "no call may bypass the budget")
}

func TestRetryPolicyDelay(t *testing.T) {
	p := RetryPolicy{BaseDelay: 2 * time.Second, MaxDelay: 60 * time.Second}

	tests := []struct {
		n    int
		want time.Duration
	}{
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{5, 32 * time.Second},
		{6, 60 * time.Second},
		{20, 60 * time.Second},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt%d", tt.n), func(t *testing.T) {
			assert.Equal(t, tt.want, p.Delay(tt.n))
		})
	}
}

func TestBudgetWindow(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	b := NewBudget("openai", 2, time.Minute)
	b.now = func() time.Time { return now }

	require.NoError(t, b.Acquire())
	require.NoError(t, b.Acquire())

	err := b.Acquire()
	kind, ok := model.ProviderErrorKindOf(err)
	require.True(t, ok)
	assert.Equal(t, model.ProviderRateLimit, kind)

	now = now.Add(time.Minute)
	assert.NoError(t, b.Acquire())
	assert.Equal(t, 1, b.Used())
}

func TestBudgetSharedAcrossGoroutines(t *testing.T) {
	b := NewBudget("openai", 20, time.Hour)

	var wg sync.WaitGroup
	var granted atomic.Int32
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if b.Acquire() == nil {
				granted.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 20, granted.Load())
}

func TestNilBudgetIsUnlimited(t *testing.T) {
	var b *Budget
	assert.NoError(t, b.Acquire())
	assert.NoError(t, NewBudget("x", 0, time.Minute).Acquire())
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"prose", `Here you go: {"a":{"b":2}} enjoy`, `{"a":{"b":2}}`},
		{"none", "sorry", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractJSON(tt.raw))
		})
	}
}
