package checker

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"
)

// Liveness issues a GET against rawURL. Any answer below 400 within the
// timeout counts as reachable; it never returns an error.
func (p *Prober) Liveness(ctx context.Context, rawURL string) LivenessResult {
	ctx, cancel := context.WithTimeout(ctx, p.opts.LivenessTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return createErrorResult(err.Error())
	}

	start := time.Now()
	resp, err := p.client.Do(req)
	duration := int(time.Since(start).Milliseconds())

	if err != nil {
		return handleRequestError(err, duration)
	}

	defer closeResponseBody(resp.Body)
	return createResponseResult(resp, duration)
}

func createErrorResult(errorMsg string) LivenessResult {
	return LivenessResult{
		Outcome: "error",
		Err:     errorMsg,
	}
}

func handleRequestError(err error, duration int) LivenessResult {
	outcome := "error"
	if isTimeoutError(err) {
		outcome = "timeout"
	}
	return LivenessResult{
		LatencyMS: duration,
		Outcome:   outcome,
		Err:       err.Error(),
	}
}

func closeResponseBody(body io.ReadCloser) {
	if body != nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(body, 64<<10))
		_ = body.Close()
	}
}

func createResponseResult(resp *http.Response, duration int) LivenessResult {
	outcome := determineResponseOutcome(resp.StatusCode)
	res := LivenessResult{
		Reachable:  resp.StatusCode < 400,
		StatusCode: resp.StatusCode,
		LatencyMS:  duration,
		Outcome:    outcome,
	}
	if !res.Reachable {
		res.Err = "unexpected status " + resp.Status
	}
	return res
}

func determineResponseOutcome(statusCode int) string {
	switch {
	case statusCode >= 500:
		return "5xx"
	case statusCode >= 400:
		return "4xx"
	case statusCode >= 300:
		return "3xx"
	case statusCode >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}

func isTimeoutError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded")
}
