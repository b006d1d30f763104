package httpx

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"
)

func TestIsRetryableHTTPStatus(t *testing.T) {
	cases := []struct {
		code int
		want bool
	}{
		{200, false},
		{400, false},
		{401, false},
		{404, false},
		{408, true},
		{429, true},
		{500, true},
		{503, true},
		{599, true},
		{600, false},
	}
	for _, tc := range cases {
		if got := IsRetryableHTTPStatus(tc.code); got != tc.want {
			t.Errorf("IsRetryableHTTPStatus(%d) = %v, want %v", tc.code, got, tc.want)
		}
	}
}

type statusErr int

func (e statusErr) Error() string       { return fmt.Sprintf("status %d", int(e)) }
func (e statusErr) HTTPStatusCode() int { return int(e) }

func TestIsRetryableError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "deadline exceeded", err: context.DeadlineExceeded, want: true},
		{name: "wrapped deadline", err: fmt.Errorf("call: %w", context.DeadlineExceeded), want: true},
		{name: "canceled", err: context.Canceled, want: false},
		{name: "wrapped canceled", err: fmt.Errorf("call: %w", context.Canceled), want: false},
		{name: "retryable status carrier", err: statusErr(503), want: true},
		{name: "non-retryable status carrier", err: statusErr(401), want: false},
		{name: "plain error", err: errors.New("boom"), want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsRetryableError(tc.err); got != tc.want {
				t.Fatalf("IsRetryableError(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestRetryAfterDuration(t *testing.T) {
	withHeader := func(v string) *http.Response {
		h := http.Header{}
		if v != "" {
			h.Set("Retry-After", v)
		}
		return &http.Response{Header: h}
	}
	cases := []struct {
		name     string
		resp     *http.Response
		fallback time.Duration
		max      time.Duration
		want     time.Duration
	}{
		{name: "nil response uses fallback", resp: nil, fallback: time.Second, max: time.Minute, want: time.Second},
		{name: "no header uses fallback", resp: withHeader(""), fallback: 2 * time.Second, max: time.Minute, want: 2 * time.Second},
		{name: "header respected", resp: withHeader("3"), fallback: time.Second, max: time.Minute, want: 3 * time.Second},
		{name: "hostile header capped", resp: withHeader("9999"), fallback: time.Second, max: 30 * time.Second, want: 30 * time.Second},
		{name: "garbage header uses fallback", resp: withHeader("soon"), fallback: time.Second, max: time.Minute, want: time.Second},
		{name: "zero max leaves value alone", resp: withHeader("120"), fallback: time.Second, max: 0, want: 120 * time.Second},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := RetryAfterDuration(tc.resp, tc.fallback, tc.max); got != tc.want {
				t.Fatalf("RetryAfterDuration = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestJitterSleepBounds(t *testing.T) {
	if got := JitterSleep(0); got != 0 {
		t.Fatalf("JitterSleep(0) = %v, want 0", got)
	}
	base := time.Second
	for i := 0; i < 100; i++ {
		got := JitterSleep(base)
		if got < 800*time.Millisecond || got > 1200*time.Millisecond {
			t.Fatalf("JitterSleep(%v) = %v, outside +/-20%%", base, got)
		}
	}
}
