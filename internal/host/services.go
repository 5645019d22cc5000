package host

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ServiceCall is one invocation of a registered service.
type ServiceCall struct {
	Domain    string
	Service   string
	Data      map[string]any
	ContextID string
}

// Handler executes a service call and returns an optional response.
type Handler func(ctx context.Context, call ServiceCall) (any, error)

// Call outcomes recorded in metrics.
const (
	outcomeOK    = "ok"
	outcomeError = "error"
)

// Services is the service dispatcher. Calls are serialized: one handler
// runs to completion, including its persistence, before the next starts.
type Services struct {
	dispatch sync.Mutex

	mu       sync.RWMutex
	handlers map[string]map[string]Handler

	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
	log      *slog.Logger
}

// NewServices creates a dispatcher and registers its metrics on reg. A
// private registry is used when reg is nil. Collectors already registered
// on reg by another dispatcher are shared.
func NewServices(reg prometheus.Registerer, log *slog.Logger) (*Services, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	calls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "inventory",
		Subsystem: "host",
		Name:      "service_calls_total",
		Help:      "Service calls dispatched, by domain, service and outcome.",
	}, []string{"domain", "service", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "inventory",
		Subsystem: "host",
		Name:      "service_call_duration_seconds",
		Help:      "Time spent inside service handlers.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"domain", "service"})

	var err error
	if calls, err = registerCollector(reg, calls); err != nil {
		return nil, err
	}
	if duration, err = registerCollector(reg, duration); err != nil {
		return nil, err
	}
	return &Services{
		handlers: make(map[string]map[string]Handler),
		calls:    calls,
		duration: duration,
		log:      log,
	}, nil
}

func registerCollector[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, fmt.Errorf("register metrics: %w", err)
	}
	return c, nil
}

// Register adds a handler for domain.service.
// Returns ErrServiceExists if one is already registered.
func (s *Services) Register(domain, service string, h Handler) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	byService, ok := s.handlers[domain]
	if !ok {
		byService = make(map[string]Handler)
		s.handlers[domain] = byService
	}
	if _, ok := byService[service]; ok {
		return fmt.Errorf("%w: %s.%s", ErrServiceExists, domain, service)
	}
	byService[service] = h
	return nil
}

// Has reports whether domain.service is registered.
func (s *Services) Has(domain, service string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.handlers[domain][service]
	return ok
}

// List returns every registered service as "domain.service", sorted.
func (s *Services) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for domain, byService := range s.handlers {
		for service := range byService {
			out = append(out, domain+"."+service)
		}
	}
	sort.Strings(out)
	return out
}

// Call dispatches domain.service with data and returns the handler's
// response. Handler errors are returned unchanged so callers can surface the
// message verbatim.
// Returns ErrServiceNotFound if the service is not registered.
func (s *Services) Call(ctx context.Context, domain, service string, data map[string]any) (any, error) {
	s.mu.RLock()
	h, ok := s.handlers[domain][service]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrServiceNotFound, domain, service)
	}
	if data == nil {
		data = map[string]any{}
	}

	s.dispatch.Lock()
	defer s.dispatch.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	call := ServiceCall{Domain: domain, Service: service, Data: data, ContextID: newContextID()}
	start := time.Now()
	resp, err := h(ctx, call)
	s.duration.WithLabelValues(domain, service).Observe(time.Since(start).Seconds())

	if err != nil {
		s.calls.WithLabelValues(domain, service, outcomeError).Inc()
		s.log.Debug("service call failed", "domain", domain, "service", service, "context_id", call.ContextID, "error", err)
		return nil, err
	}
	s.calls.WithLabelValues(domain, service, outcomeOK).Inc()
	s.log.Debug("service call", "domain", domain, "service", service, "context_id", call.ContextID)
	return resp, nil
}
