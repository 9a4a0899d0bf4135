package cosmos_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/fivetwenty-io/cosmos-client/pkg/cosmos"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errRejected = errors.New("rejected")

func TestInterceptorChain(t *testing.T) {
	t.Parallel()

	t.Run("runs in order", func(t *testing.T) {
		t.Parallel()

		var calls []string

		chain := cosmos.NewInterceptorChain().
			AddRequestInterceptor(func(context.Context, *cosmos.Request) error {
				calls = append(calls, "req1")

				return nil
			}).
			AddRequestInterceptor(func(context.Context, *cosmos.Request) error {
				calls = append(calls, "req2")

				return nil
			}).
			AddResponseInterceptor(func(context.Context, *cosmos.Request, *cosmos.Response) error {
				calls = append(calls, "resp1")

				return nil
			})

		req := &cosmos.Request{Method: "GET"}
		require.NoError(t, chain.ExecuteRequestInterceptors(context.Background(), req))
		require.NoError(t, chain.ExecuteResponseInterceptors(context.Background(), req, &cosmos.Response{}))

		assert.Equal(t, []string{"req1", "req2", "resp1"}, calls)
	})

	t.Run("stops at first failure", func(t *testing.T) {
		t.Parallel()

		called := false
		chain := cosmos.NewInterceptorChain().
			AddRequestInterceptor(func(context.Context, *cosmos.Request) error { return errRejected }).
			AddRequestInterceptor(func(context.Context, *cosmos.Request) error {
				called = true

				return nil
			})

		err := chain.ExecuteRequestInterceptors(context.Background(), &cosmos.Request{})
		require.ErrorIs(t, err, errRejected)
		assert.Contains(t, err.Error(), "request interceptor failed")
		assert.False(t, called)
	})
}

func TestHeaderInterceptors(t *testing.T) {
	t.Parallel()

	t.Run("fixed headers keep spelling", func(t *testing.T) {
		t.Parallel()

		req := &cosmos.Request{}
		err := cosmos.HeaderInterceptor(map[string]string{"x-ms-cosmos-priority-level": "Low"})(context.Background(), req)
		require.NoError(t, err)

		assert.Equal(t, []string{"Low"}, req.Headers["x-ms-cosmos-priority-level"])
	})

	t.Run("options do not override request headers", func(t *testing.T) {
		t.Parallel()

		req := &cosmos.Request{Headers: http.Header{cosmos.HeaderConsistencyLevel: {"Eventual"}}}
		interceptor := cosmos.OptionsInterceptor(cosmos.ConsistencySession, cosmos.MaxItemCount(5))

		require.NoError(t, interceptor(context.Background(), req))
		assert.Equal(t, []string{"Eventual"}, req.Headers[cosmos.HeaderConsistencyLevel])
		assert.Equal(t, []string{"5"}, req.Headers[cosmos.HeaderMaxItemCount])
	})
}

func TestLoggingInterceptors(t *testing.T) {
	t.Parallel()

	logger := &recordingLogger{}
	req := &cosmos.Request{Method: "GET", Path: "dbs/shop", ResourceType: "dbs"}

	require.NoError(t, cosmos.LoggingInterceptor(logger)(context.Background(), req))

	ok := &cosmos.Response{StatusCode: 200, Headers: http.Header{"X-Ms-Request-Charge": {"1.5"}}}
	require.NoError(t, cosmos.LoggingResponseInterceptor(logger)(context.Background(), req, ok))

	failed := &cosmos.Response{StatusCode: 404, Error: &cosmos.APIError{StatusCode: 404, Message: "missing"}}
	require.NoError(t, cosmos.LoggingResponseInterceptor(logger)(context.Background(), req, failed))

	require.Len(t, logger.entries, 3)
	assert.Equal(t, "API Request", logger.entries[0].msg)
	assert.Equal(t, "dbs", logger.entries[0].fields["resource_type"])
	assert.InDelta(t, 1.5, logger.entries[1].fields["request_charge"], 0.0001)
	assert.Equal(t, "error", logger.entries[2].level)
	assert.Equal(t, "missing (status: 404)", logger.entries[2].fields["error"])
}

func TestMetricsInterceptors(t *testing.T) {
	t.Parallel()

	collector := cosmos.NewMetricsCollector()

	var changes int

	collector.SetOnChange(func(endpoint string, metrics cosmos.Metrics) {
		assert.Equal(t, "POST docs", endpoint)

		changes++
	})

	request := cosmos.MetricsRequestInterceptor(collector)
	response := cosmos.MetricsResponseInterceptor(collector)

	for _, status := range []int{201, 429, 201} {
		req := &cosmos.Request{Method: "POST", ResourceType: "docs"}
		require.NoError(t, request(context.Background(), req))

		resp := &cosmos.Response{StatusCode: status, Headers: http.Header{"X-Ms-Request-Charge": {"6.2"}}}
		require.NoError(t, response(context.Background(), req, resp))
	}

	metrics := collector.GetMetrics("POST docs")
	require.NotNil(t, metrics)
	assert.Equal(t, int64(3), metrics.TotalRequests)
	assert.Equal(t, int64(1), metrics.TotalErrors)
	assert.InDelta(t, 18.6, metrics.TotalCharge, 0.0001)
	assert.False(t, metrics.LastRequestTime.IsZero())
	assert.Equal(t, 3, changes)

	assert.Nil(t, collector.GetMetrics("GET dbs"))
}

func TestCircuitBreaker(t *testing.T) {
	t.Parallel()

	breaker := cosmos.NewCircuitBreaker(&cosmos.CircuitBreakerConfig{
		Threshold:        2,
		Timeout:          20 * time.Millisecond,
		SuccessThreshold: 1,
	})

	request := cosmos.CircuitBreakerRequestInterceptor(breaker)
	response := cosmos.CircuitBreakerResponseInterceptor(breaker)
	ctx := context.Background()
	req := &cosmos.Request{}

	assert.Equal(t, "closed", breaker.State())

	require.NoError(t, response(ctx, req, &cosmos.Response{StatusCode: http.StatusTooManyRequests}))
	assert.Equal(t, "closed", breaker.State())

	require.NoError(t, response(ctx, req, &cosmos.Response{StatusCode: http.StatusServiceUnavailable}))
	assert.Equal(t, "open", breaker.State())

	require.ErrorIs(t, request(ctx, req), cosmos.ErrCircuitBreakerOpen)

	time.Sleep(30 * time.Millisecond)

	require.NoError(t, request(ctx, req))
	assert.Equal(t, "half-open", breaker.State())

	require.NoError(t, response(ctx, req, &cosmos.Response{StatusCode: http.StatusOK}))
	assert.Equal(t, "closed", breaker.State())

	t.Run("client errors do not count", func(t *testing.T) {
		t.Parallel()

		breaker := cosmos.NewCircuitBreaker(nil)
		response := cosmos.CircuitBreakerResponseInterceptor(breaker)

		for range 10 {
			require.NoError(t, response(ctx, &cosmos.Request{}, &cosmos.Response{StatusCode: http.StatusNotFound}))
		}

		assert.Equal(t, "closed", breaker.State())
	})
}
