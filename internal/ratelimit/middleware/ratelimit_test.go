package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"medadmit/internal/ratelimit/config"
	"medadmit/internal/ratelimit/models"
	"medadmit/internal/ratelimit/service/requestlimit"
	"medadmit/internal/ratelimit/store/bucket"
	"medadmit/pkg/platform/audit"
	"medadmit/pkg/platform/circuit"
	"medadmit/pkg/testutil"
)

// switchableLimiter fails while down is set and otherwise delegates.
type switchableLimiter struct {
	mu    sync.Mutex
	down  bool
	inner RateLimiter
	calls int
}

func (l *switchableLimiter) CheckIP(ctx context.Context, ip string, class models.EndpointClass) (*models.RateLimitResult, error) {
	l.mu.Lock()
	l.calls++
	down := l.down
	l.mu.Unlock()
	if down {
		return nil, errors.New("redis: connection refused")
	}
	return l.inner.CheckIP(ctx, ip, class)
}

func (l *switchableLimiter) setDown(down bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.down = down
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []audit.Event
}

func (p *recordingPublisher) Emit(_ context.Context, event audit.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) actions() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Action)
	}
	return out
}

func (p *recordingPublisher) last(action string) (audit.Event, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := len(p.events) - 1; i >= 0; i-- {
		if p.events[i].Action == action {
			return p.events[i], true
		}
	}
	return audit.Event{}, false
}

type MiddlewareSuite struct {
	suite.Suite
	cfg       *config.Config
	primary   *switchableLimiter
	publisher *recordingPublisher
	handler   http.Handler
}

func TestMiddlewareSuite(t *testing.T) {
	suite.Run(t, new(MiddlewareSuite))
}

func (s *MiddlewareSuite) newLimiter() RateLimiter {
	svc, err := requestlimit.New(bucket.New(), requestlimit.WithConfig(s.cfg), requestlimit.WithAuditPublisher(s.publisher))
	s.Require().NoError(err)
	return svc
}

func (s *MiddlewareSuite) SetupTest() {
	s.cfg = config.DefaultConfig().WithResolvePerMinute(3)
	s.publisher = &recordingPublisher{}
	s.primary = &switchableLimiter{inner: s.newLimiter()}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := New(s.primary, logger,
		WithFallback(NewFallbackLimiter(s.cfg, s.publisher, logger)),
		WithBreaker(circuit.New("test", circuit.WithFailureThreshold(2), circuit.WithSuccessThreshold(2))),
		WithAuditPublisher(s.publisher),
	)
	s.handler = m.RateLimit(models.ClassResolve)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func (s *MiddlewareSuite) do(ip string) *httptest.ResponseRecorder {
	req := testutil.WithClientIP(httptest.NewRequest(http.MethodPost, "/resolve", nil), ip)
	return testutil.DoRequest(s.handler, req)
}

func (s *MiddlewareSuite) TestAllowedSetsHeaders() {
	rr := s.do("203.0.113.7")
	s.Equal(http.StatusOK, rr.Code)
	s.Equal("3", rr.Header().Get("X-RateLimit-Limit"))
	s.Equal("2", rr.Header().Get("X-RateLimit-Remaining"))
	s.NotEmpty(rr.Header().Get("X-RateLimit-Reset"))
	s.Empty(rr.Header().Get(HeaderRateLimitStatus))
}

func (s *MiddlewareSuite) TestExceededReturns429() {
	for range 3 {
		s.Equal(http.StatusOK, s.do("203.0.113.7").Code)
	}
	req := testutil.WithClientIP(httptest.NewRequest(http.MethodPost, "/resolve", nil), "203.0.113.7")
	rr := testutil.DoRequest(s.handler, testutil.WithRequestID(req, "req-429"))
	s.Equal(http.StatusTooManyRequests, rr.Code)
	s.Equal("60", rr.Header().Get("Retry-After"))
	s.Equal("0", rr.Header().Get("X-RateLimit-Remaining"))

	var body models.RateLimitExceededResponse
	s.Require().NoError(json.Unmarshal(rr.Body.Bytes(), &body))
	s.Equal("rate_limit_exceeded", body.Error)
	s.NotEmpty(body.Message)
	s.Equal(60, body.RetryAfter)

	event, ok := s.publisher.last(string(audit.EventRateLimitExceeded))
	s.Require().True(ok)
	s.Equal("req-429", event.RequestID)
	s.Equal("POST /resolve", event.Endpoint)
	s.Equal(http.StatusOK, s.do("198.51.100.1").Code, "other callers are unaffected")
}

func (s *MiddlewareSuite) TestPrimaryFailureServesFromFallback() {
	s.primary.setDown(true)

	rr := s.do("203.0.113.7")
	s.Equal(http.StatusOK, rr.Code)
	s.Equal("degraded", rr.Header().Get(HeaderRateLimitStatus))
	s.Equal("2", rr.Header().Get("X-RateLimit-Remaining"))

	for range 2 {
		s.Equal(http.StatusOK, s.do("203.0.113.7").Code)
	}
	s.Equal(http.StatusTooManyRequests, s.do("203.0.113.7").Code, "fallback still enforces the limit")
	s.Contains(s.publisher.actions(), string(audit.EventRateLimitDegraded))
}

func (s *MiddlewareSuite) TestBreakerRecovers() {
	s.primary.setDown(true)
	s.do("192.0.2.1")
	s.do("192.0.2.1")
	s.primary.setDown(false)

	rr := s.do("192.0.2.2")
	s.Equal("degraded", rr.Header().Get(HeaderRateLimitStatus), "one success is not enough to close")

	rr = s.do("192.0.2.2")
	s.Empty(rr.Header().Get(HeaderRateLimitStatus))
	s.Contains(s.publisher.actions(), string(audit.EventRateLimitRecovered))
}

func (s *MiddlewareSuite) TestDisabledSkipsLimiter() {
	m := New(s.primary, nil, WithDisabled(true))
	h := m.RateLimit(models.ClassResolve)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	for range 10 {
		rr := testutil.DoRequest(h, httptest.NewRequest(http.MethodGet, "/resolve", nil))
		s.Equal(http.StatusNoContent, rr.Code)
	}
	s.Zero(s.primary.calls)
}

func (s *MiddlewareSuite) TestFailsOpenWithoutFallback() {
	s.primary.setDown(true)
	m := New(s.primary, slog.New(slog.NewTextHandler(io.Discard, nil)))
	h := m.RateLimit(models.ClassResolve)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	rr := testutil.DoRequest(h, testutil.WithClientIP(httptest.NewRequest(http.MethodGet, "/resolve", nil), "203.0.113.7"))
	s.Equal(http.StatusOK, rr.Code)
	s.Empty(rr.Header().Get("X-RateLimit-Limit"))
}

func TestNewFallbackLimiterRequiresConfig(t *testing.T) {
	if NewFallbackLimiter(nil, nil, nil) != nil {
		t.Fatal("expected nil limiter without config")
	}
}
