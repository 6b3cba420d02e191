package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"weathercache/internal/metrics"
	"weathercache/internal/models"
)

const maxErrorBody = 4096

// response is a fully read upstream reply
type response struct {
	StatusCode int
	Body       []byte
}

// newBreaker trips after the given number of consecutive failed calls.
// Only transport errors, 429 and 5xx count as failures.
func newBreaker(name string, failures uint32) *gobreaker.CircuitBreaker {
	if failures == 0 {
		failures = 5
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.BreakerState.Set(float64(to))
		},
	})
}

// doGet performs one GET through the breaker with its own timeout.
// Every failure comes back as a *models.RemoteServiceError.
func doGet(ctx context.Context, client *http.Client, cb *gobreaker.CircuitBreaker, timeout time.Duration, url string) (*response, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	result, err := cb.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read response: %w", err)
		}

		r := &response{StatusCode: resp.StatusCode, Body: body}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return r, remoteError(r)
		}
		return r, nil
	})

	code := 0
	if r, ok := result.(*response); ok {
		code = r.StatusCode
	}
	metrics.RecordRemoteFetch(code, time.Since(start))

	if err != nil {
		var remoteErr *models.RemoteServiceError
		if errors.As(err, &remoteErr) {
			return nil, remoteErr
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &models.RemoteServiceError{Err: fmt.Errorf("circuit breaker open: %w", err)}
		}
		return nil, &models.RemoteServiceError{Err: fmt.Errorf("request failed: %w", err)}
	}

	r, ok := result.(*response)
	if !ok {
		return nil, &models.RemoteServiceError{Err: errors.New("unexpected result type from circuit breaker")}
	}
	if r.StatusCode != http.StatusOK {
		return nil, remoteError(r)
	}
	return r, nil
}

func remoteError(r *response) *models.RemoteServiceError {
	body := r.Body
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return &models.RemoteServiceError{StatusCode: r.StatusCode, Body: string(body)}
}
