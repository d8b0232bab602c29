package httpds

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"
)

/*
scriptedTransport serves one canned response (or error) per call, in order.
The final entry repeats once the script runs out.
*/
type scriptedTransport struct {
	calls     int
	responses []int // status codes; 0 means transport error
}

func (s *scriptedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	i := s.calls
	if i >= len(s.responses) {
		i = len(s.responses) - 1
	}
	s.calls++

	code := s.responses[i]
	if code == 0 {
		return nil, errors.New("connection refused")
	}
	return &http.Response{
		StatusCode: code,
		Body:       io.NopCloser(strings.NewReader("ok")),
		Header:     http.Header{},
		Request:    req,
	}, nil
}

/*
testClient wires a Client with a scripted transport and a no-op sleep so
retries run instantly.
*/
func testClient(responses ...int) (*Client, *scriptedTransport) {
	tr := &scriptedTransport{responses: responses}
	c := NewClient(Config{MaxRetries: 3, Transport: tr})
	c.sleep = func(time.Duration) {}
	return c, tr
}

func Test_Get_RetriesTransientStatus(t *testing.T) {
	c, tr := testClient(http.StatusServiceUnavailable, http.StatusTooManyRequests, http.StatusOK)

	resp, err := c.Get(context.Background(), "http://example.test/x", nil)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if tr.calls != 3 {
		t.Fatalf("calls = %d, want 3", tr.calls)
	}
}

func Test_Get_DoesNotRetryClientErrors(t *testing.T) {
	c, tr := testClient(http.StatusNotFound)

	resp, err := c.Get(context.Background(), "http://example.test/x", nil)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if tr.calls != 1 {
		t.Fatalf("404 must not retry, calls = %d", tr.calls)
	}
}

func Test_Get_ExhaustsRetries(t *testing.T) {
	c, tr := testClient(http.StatusInternalServerError)

	_, err := c.Get(context.Background(), "http://example.test/x", nil)
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if tr.calls != 4 { // initial + 3 retries
		t.Fatalf("calls = %d, want 4", tr.calls)
	}
}

func Test_Get_RetriesTransportErrors(t *testing.T) {
	c, tr := testClient(0, http.StatusOK)

	resp, err := c.Get(context.Background(), "http://example.test/x", nil)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer resp.Body.Close()
	if tr.calls != 2 {
		t.Fatalf("calls = %d, want 2", tr.calls)
	}
}

func Test_Do_CanceledContext(t *testing.T) {
	c, _ := testClient(http.StatusOK)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := c.Do(ctx, http.MethodGet, "http://example.test/x", nil); err == nil {
		t.Fatal("expected context error")
	}
}

func Test_backoffDuration(t *testing.T) {
	initial := 100 * time.Millisecond
	max := 1 * time.Second

	if d := backoffDuration(initial, 0, max); d != initial {
		t.Fatalf("attempt 0: %v", d)
	}
	if d := backoffDuration(initial, 2, max); d != 400*time.Millisecond {
		t.Fatalf("attempt 2: %v", d)
	}
	if d := backoffDuration(initial, 10, max); d != max {
		t.Fatalf("attempt 10 must clamp to max, got %v", d)
	}
}
