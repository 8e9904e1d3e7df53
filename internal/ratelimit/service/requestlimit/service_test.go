package requestlimit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"medadmit/internal/ratelimit/config"
	"medadmit/internal/ratelimit/metrics"
	"medadmit/internal/ratelimit/models"
	"medadmit/internal/ratelimit/store/bucket"
	dErrors "medadmit/pkg/domain-errors"
	"medadmit/pkg/platform/audit"
	"medadmit/pkg/requestcontext"
)

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

func (p *recordingPublisher) Events() []audit.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]audit.Event{}, p.events...)
}

type failingStore struct{}

func (failingStore) Allow(context.Context, string, int, time.Duration) (*models.RateLimitResult, error) {
	return nil, errors.New("connection refused")
}
func (failingStore) Reset(context.Context, string) error { return nil }
func (failingStore) GetCurrentCount(context.Context, string, time.Duration) (int, error) {
	return 0, nil
}

type RequestLimitSuite struct {
	suite.Suite
	now       time.Time
	ctx       context.Context
	publisher *recordingPublisher
	metrics   *metrics.Metrics
	service   *Service
}

func TestRequestLimitSuite(t *testing.T) {
	suite.Run(t, new(RequestLimitSuite))
}

func (s *RequestLimitSuite) SetupTest() {
	s.now = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.ctx = requestcontext.WithRequestID(s.ctx, "req-1")
	s.ctx = requestcontext.WithEndpoint(s.ctx, "POST /resolve")
	s.publisher = &recordingPublisher{}
	s.metrics = metrics.NewWithRegisterer(prometheus.NewRegistry())

	svc, err := New(
		bucket.New(bucket.WithClock(func() time.Time { return s.now })),
		WithConfig(config.DefaultConfig().WithResolvePerMinute(3)),
		WithAuditPublisher(s.publisher),
		WithMetrics(s.metrics),
	)
	s.Require().NoError(err)
	s.service = svc
}

func (s *RequestLimitSuite) TestRequiresStore() {
	_, err := New(nil)
	s.Error(err)
}

func (s *RequestLimitSuite) TestAllowsUpToLimitThenDenies() {
	for i := range 3 {
		res, err := s.service.CheckIP(s.ctx, "203.0.113.7", models.ClassResolve)
		s.Require().NoError(err)
		s.True(res.Allowed)
		s.Equal(2-i, res.Remaining)
	}

	res, err := s.service.CheckIP(s.ctx, "203.0.113.7", models.ClassResolve)
	s.Require().NoError(err)
	s.False(res.Allowed)
	s.Equal(60, res.RetryAfter)

	s.Equal(float64(3), testutil.ToFloat64(s.metrics.Decisions.WithLabelValues("resolve", "allowed")))
	s.Equal(float64(1), testutil.ToFloat64(s.metrics.Decisions.WithLabelValues("resolve", "denied")))

	events := s.publisher.Events()
	s.Require().Len(events, 1)
	e := events[0]
	s.Equal(string(audit.EventRateLimitExceeded), e.Action)
	s.Equal(audit.CategorySecurity, e.Category)
	s.Equal(audit.SeverityWarning, e.Severity)
	s.Equal("203.0.113.0", e.Subject, "subject is the anonymized prefix")
	s.Equal("POST /resolve", e.Endpoint)
	s.Equal("req-1", e.RequestID)
	s.Equal(3, e.Limit)
	s.Equal(60, e.Window)
	s.Equal(s.now, e.Timestamp)
}

func (s *RequestLimitSuite) TestIPsAreIndependent() {
	for range 3 {
		_, err := s.service.CheckIP(s.ctx, "203.0.113.7", models.ClassResolve)
		s.Require().NoError(err)
	}
	res, err := s.service.CheckIP(s.ctx, "203.0.113.8", models.ClassResolve)
	s.Require().NoError(err)
	s.True(res.Allowed)
}

func (s *RequestLimitSuite) TestMissingConfigDenies() {
	res, err := s.service.CheckIP(s.ctx, "203.0.113.7", models.EndpointClass("admin"))
	s.Require().NoError(err)
	s.False(res.Allowed)
	s.Equal(0, res.Limit)
	s.Equal(60, res.RetryAfter)

	events := s.publisher.Events()
	s.Require().Len(events, 1)
	s.Equal(string(audit.EventRateLimitConfigMissing), events[0].Action)
	s.Equal(audit.SeverityCritical, events[0].Severity)
	s.Equal(float64(1), testutil.ToFloat64(s.metrics.ConfigMissing.WithLabelValues("admin")))
}

func (s *RequestLimitSuite) TestStoreErrorIsInternal() {
	svc, err := New(failingStore{})
	s.Require().NoError(err)

	_, err = svc.CheckIP(s.ctx, "203.0.113.7", models.ClassResolve)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}
