package gcal

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"google.golang.org/api/googleapi"
)

// Provider errors surfaced by the gateway. Callers match with errors.Is;
// only ErrRateLimited is retried.
var (
	ErrRateLimited = errors.New("gcal: provider rate limit exceeded")
	ErrNotFound    = errors.New("gcal: calendar not found")
	ErrNetwork     = errors.New("gcal: network error reaching provider")
)

// classifyError maps Google API and transport failures onto the gateway's
// error taxonomy. Errors it cannot classify pass through unchanged.
func classifyError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusTooManyRequests:
			return ErrRateLimited
		case apiErr.Code == http.StatusForbidden && isRateLimitReason(apiErr):
			return ErrRateLimited
		case apiErr.Code == http.StatusNotFound:
			return ErrNotFound
		}
		return err
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return ErrNetwork
	}
	return err
}

// Google reports calendar quota exhaustion as 403 with a rateLimitExceeded
// reason rather than 429.
func isRateLimitReason(apiErr *googleapi.Error) bool {
	for _, e := range apiErr.Errors {
		if e.Reason == "rateLimitExceeded" || e.Reason == "userRateLimitExceeded" {
			return true
		}
	}
	return strings.Contains(apiErr.Message, "rateLimitExceeded")
}
