package resilience

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"time"
)

// Transport is an http.RoundTripper that retries failed calls with
// exponential backoff and consults an optional Breaker before every
// attempt. Responses with a 5xx status or 429 count as failures.
type Transport struct {
	Base        http.RoundTripper
	Breaker     *Breaker
	MaxAttempts int
	BaseBackoff time.Duration
	Jitter      float64
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	attempts := max(t.MaxAttempts, 1)
	body, err := bufferBody(req)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if !t.allow(req) {
			t.count("refused")
			if lastErr != nil {
				return nil, fmt.Errorf("%w: %v", ErrOpenCircuit, lastErr)
			}
			return nil, ErrOpenCircuit
		}
		resp, err := t.once(req, body)
		if err == nil && !retryable(resp.StatusCode) {
			t.report(req, true)
			t.count("ok")
			return resp, nil
		}
		t.report(req, false)
		last := attempt == attempts
		if last {
			t.count("failed")
		} else {
			t.count("retry")
		}
		if err != nil {
			lastErr = err
		} else {
			lastErr = errors.New(resp.Status)
			if last {
				return resp, nil
			}
			drain(resp)
		}
		if last {
			break
		}
		timer := time.NewTimer(Backoff(t.BaseBackoff, attempt, t.Jitter))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	return nil, lastErr
}

// Backoff doubles base for every attempt after the first and spreads the
// result by jitterPct in both directions.
func Backoff(base time.Duration, attempt int, jitterPct float64) time.Duration {
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	d := base << uint(max(attempt, 1)-1)
	if jitterPct <= 0 {
		return d
	}
	spread := float64(d) * jitterPct
	return d + time.Duration((rand.Float64()*2-1)*spread)
}

func (t *Transport) allow(req *http.Request) bool {
	return t.Breaker == nil || t.Breaker.Allow(req.Context())
}

func (t *Transport) report(req *http.Request, ok bool) {
	if t.Breaker != nil {
		t.Breaker.Report(req.Context(), ok)
	}
}

func (t *Transport) count(outcome string) {
	target := "default"
	if t.Breaker != nil {
		target = t.Breaker.Target()
	}
	UpstreamAttempts.WithLabelValues(target, outcome).Inc()
}

func (t *Transport) once(req *http.Request, body []byte) (*http.Response, error) {
	ctx := req.Context()
	attemptReq := req.Clone(ctx)
	if body != nil {
		attemptReq.Body = io.NopCloser(bytes.NewReader(body))
	}
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(attemptReq)
}

func retryable(status int) bool {
	return status >= http.StatusInternalServerError || status == http.StatusTooManyRequests
}

func drain(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}

func bufferBody(req *http.Request) ([]byte, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	data, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, err
	}
	_ = req.Body.Close()
	return data, nil
}
