package geocoding

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/NoJuanNobody/home-health-aid-app/internal/geo"
)

// Defaults mirror what callers pass when the request does not say otherwise.
const (
	DefaultTimeout    = 10 * time.Second
	DefaultMaxRetries = 3

	// Base unit of the inter-attempt backoff: attempt n sleeps (n+1) * base.
	defaultBaseDelay = 2 * time.Second
)

// Service orchestrates forward and reverse geocoding across an ordered list
// of providers. The provider list is immutable configuration shared read-only
// across all calls; the service holds no other state, so one instance is
// safe for concurrent use.
//
// Per attempt, providers are tried in priority order; any single provider's
// failure never aborts the attempt. Between attempts the whole list is
// retried with an exponentially increasing backoff. Exhaustion returns
// ErrUnresolved, an expected outcome for bad addresses and outages.
type Service struct {
	providers []Provider
	logger    *zap.Logger
	baseDelay time.Duration

	// fallbacks applied when a call passes zero timeout or retries
	defaultTimeout    time.Duration
	defaultMaxRetries int

	// sleep and jitter are injected so tests run without wall-clock delays.
	sleep  func(ctx context.Context, d time.Duration) error
	jitter func() time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithSleeper replaces the context-aware sleep used for backoff.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(s *Service) { s.sleep = sleep }
}

// WithJitter replaces the randomized pre-provider delay source.
func WithJitter(jitter func() time.Duration) Option {
	return func(s *Service) { s.jitter = jitter }
}

// WithBaseDelay replaces the backoff base unit.
func WithBaseDelay(d time.Duration) Option {
	return func(s *Service) { s.baseDelay = d }
}

// WithDefaults replaces the per-call fallbacks applied when a request does
// not carry its own timeout or retry count. Zero values keep the package
// defaults.
func WithDefaults(timeout time.Duration, maxRetries int) Option {
	return func(s *Service) {
		if timeout > 0 {
			s.defaultTimeout = timeout
		}
		if maxRetries > 0 {
			s.defaultMaxRetries = maxRetries
		}
	}
}

func NewService(providers []Provider, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		providers:         providers,
		logger:            logger,
		baseDelay:         defaultBaseDelay,
		defaultTimeout:    DefaultTimeout,
		defaultMaxRetries: DefaultMaxRetries,
		sleep:             sleepCtx,
		jitter: func() time.Duration {
			// 1-3s randomized delay to de-synchronize from provider rate limits
			return time.Second + time.Duration(rand.Int63n(int64(2*time.Second)))
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// AddressToCoordinates resolves a free-text address to coordinates.
// Returns ErrUnresolved after maxRetries full passes over the provider list.
func (s *Service) AddressToCoordinates(ctx context.Context, address string, timeout time.Duration, maxRetries int) (*Result, error) {
	cleaned := NormalizeAddress(address)
	return s.run(ctx, timeout, maxRetries, func(ctx context.Context, p Provider, timeout time.Duration) (*Result, error) {
		return p.Geocode(ctx, cleaned, timeout)
	})
}

// CoordinatesToAddress resolves coordinates to a formatted address.
func (s *Service) CoordinatesToAddress(ctx context.Context, lat, lng float64, timeout time.Duration, maxRetries int) (*Result, error) {
	return s.run(ctx, timeout, maxRetries, func(ctx context.Context, p Provider, timeout time.Duration) (*Result, error) {
		return p.Reverse(ctx, lat, lng, timeout)
	})
}

// DistanceBetween returns the geodesic distance between two points in
// meters. Surfaced here because callers reach distance through this service.
func (s *Service) DistanceBetween(p1, p2 geo.Point) float64 {
	return geo.DistanceMeters(p1, p2)
}

func (s *Service) run(ctx context.Context, timeout time.Duration, maxRetries int, call func(context.Context, Provider, time.Duration) (*Result, error)) (*Result, error) {
	if timeout <= 0 {
		timeout = s.defaultTimeout
	}
	if maxRetries <= 0 {
		maxRetries = s.defaultMaxRetries
	}

	for attempt := 0; attempt < maxRetries; attempt++ {
		for _, p := range s.providers {
			// Randomized delay on retry attempts only, to avoid hammering
			// rate-limited providers in lockstep.
			if attempt > 0 {
				if err := s.sleep(ctx, s.jitter()); err != nil {
					return nil, err
				}
			}

			res, err := call(ctx, p, timeout)
			if err != nil {
				var te *TransientError
				if errors.As(err, &te) {
					s.logger.Warn("geocoding provider failed",
						zap.String("provider", p.Name()),
						zap.Int("attempt", attempt+1),
						zap.Error(err),
					)
				} else {
					s.logger.Error("geocoding provider unexpected error",
						zap.String("provider", p.Name()),
						zap.Int("attempt", attempt+1),
						zap.Error(err),
					)
				}
				continue
			}
			if res != nil {
				s.logger.Info("geocoding resolved",
					zap.String("provider", p.Name()),
					zap.Int("attempt", attempt+1),
				)
				return res, nil
			}
			// provider answered with no match; try the next one
		}

		if attempt < maxRetries-1 {
			wait := time.Duration(attempt+1) * s.baseDelay
			s.logger.Info("all geocoding providers failed, backing off",
				zap.Duration("wait", wait),
				zap.Int("attempt", attempt+1),
			)
			if err := s.sleep(ctx, wait); err != nil {
				return nil, err
			}
		}
	}

	return nil, ErrUnresolved
}
