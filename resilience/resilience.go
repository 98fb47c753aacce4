package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/go-kit/kit/circuitbreaker"
	"github.com/go-kit/kit/endpoint"
	"github.com/go-kit/kit/ratelimit"
	"github.com/go-kit/kit/sd"
	"github.com/go-kit/kit/sd/lb"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

var (
	ErrRateLimited      = errors.New("too many requests")
	ErrCircuitOpen      = errors.New("service is unavailable")
	ErrRetriesExhausted = errors.New("all retries have exhausted")
	ErrTimeout          = errors.New("request timed out")
)

type Config struct {
	CircuitBreaker CircuitBreaker `yaml:"circuitBreaker"`
	RateLimiter    RateLimiter    `yaml:"rateLimiter"`
	Retry          Retry          `yaml:"retry"`
	TimeLimiter    TimeLimiter    `yaml:"timeLimiter"`
}

type CircuitBreaker struct {
	Enabled                       bool          `yaml:"enabled"`
	MinimumCalls                  uint32        `yaml:"minimumCalls"`
	FailureRateThreshold          float64       `yaml:"failureRateThreshold"`
	WaitDurationInOpenState       time.Duration `yaml:"waitDurationInOpenState"`
	PermittedCallsInHalfOpenState uint32        `yaml:"permittedCallsInHalfOpenState"`
	SlidingWindowSize             int           `yaml:"slidingWindowSize"`
}

type RateLimiter struct {
	Enabled            bool          `yaml:"enabled"`
	LimitForPeriod     int           `yaml:"limitForPeriod"`
	LimitRefreshPeriod time.Duration `yaml:"limitRefreshPeriod"`
}

type Retry struct {
	MaxAttempts  int           `yaml:"maxAttempts"`
	WaitDuration time.Duration `yaml:"waitDuration"`
}

type TimeLimiter struct {
	Timeout time.Duration `yaml:"timeout"`
}

// WithDefaults fills every zero value with its default.
func (cfg Config) WithDefaults() Config {
	cb := &cfg.CircuitBreaker
	if cb.MinimumCalls == 0 {
		cb.MinimumCalls = 5
	}
	if cb.FailureRateThreshold == 0 {
		cb.FailureRateThreshold = 50
	}
	if cb.WaitDurationInOpenState == 0 {
		cb.WaitDurationInOpenState = 10 * time.Second
	}
	if cb.PermittedCallsInHalfOpenState == 0 {
		cb.PermittedCallsInHalfOpenState = 3
	}
	if cb.SlidingWindowSize == 0 {
		cb.SlidingWindowSize = 100
	}

	rl := &cfg.RateLimiter
	if rl.LimitForPeriod == 0 {
		rl.LimitForPeriod = 50
	}
	if rl.LimitRefreshPeriod == 0 {
		rl.LimitRefreshPeriod = time.Second
	}

	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry.MaxAttempts = 3
	}

	if cfg.TimeLimiter.Timeout == 0 {
		cfg.TimeLimiter.Timeout = 30 * time.Second
	}

	return cfg
}

// Policy guards an endpoint with a rate limiter, a circuit breaker and
// a bounded retry, applied in that order from the outside in. The
// circuit breaker observes one outcome per request, after retries.
type Policy struct {
	name    string
	cfg     Config
	breaker *gobreaker.CircuitBreaker
	window  *window
	limiter *rate.Limiter
	metrics *Metrics
}

func NewPolicy(name string, cfg Config, metrics *Metrics) *Policy {
	cfg = cfg.WithDefaults()

	p := &Policy{
		name:    name,
		cfg:     cfg,
		metrics: metrics,
	}

	if cfg.CircuitBreaker.Enabled {
		cb := cfg.CircuitBreaker
		w := newWindow(cb.SlidingWindowSize)

		p.window = w
		p.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        name,
			MaxRequests: cb.PermittedCallsInHalfOpenState,
			Timeout:     cb.WaitDurationInOpenState,
			ReadyToTrip: func(gobreaker.Counts) bool {
				calls, ratio := w.rate()
				if calls < cb.MinimumCalls {
					return false
				}

				return ratio >= cb.FailureRateThreshold
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				w.reset()
				metrics.stateChanged(name, to)
			},
		})

		metrics.stateChanged(name, gobreaker.StateClosed)
	}

	if cfg.RateLimiter.Enabled {
		rl := cfg.RateLimiter
		every := rate.Every(rl.LimitRefreshPeriod / time.Duration(rl.LimitForPeriod))
		p.limiter = rate.NewLimiter(every, rl.LimitForPeriod)
	}

	return p
}

func (p *Policy) Name() string {
	return p.name
}

// State reports the circuit breaker state, "disabled" without one.
func (p *Policy) State() string {
	if p.breaker == nil {
		return "disabled"
	}

	return p.breaker.State().String()
}

func (p *Policy) Middleware() endpoint.Middleware {
	mws := make([]endpoint.Middleware, 0)

	if p.limiter != nil {
		mws = append(mws, p.rateLimit)
	}

	if p.breaker != nil {
		mws = append(mws, p.circuitBreak)
	}

	mws = append(mws, p.retry)

	return func(next endpoint.Endpoint) endpoint.Endpoint {
		for i := len(mws) - 1; i >= 0; i-- {
			next = mws[i](next)
		}

		return p.observe(next)
	}
}

func (p *Policy) observe(next endpoint.Endpoint) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		response, err := next(ctx, request)
		p.metrics.observe(p.name, err)
		return response, err
	}
}

func (p *Policy) rateLimit(next endpoint.Endpoint) endpoint.Endpoint {
	limited := ratelimit.NewErroringLimiter(p.limiter)(next)

	return func(ctx context.Context, request any) (any, error) {
		response, err := limited(ctx, request)
		if errors.Is(err, ratelimit.ErrLimited) {
			return nil, ErrRateLimited
		}

		return response, err
	}
}

func (p *Policy) circuitBreak(next endpoint.Endpoint) endpoint.Endpoint {
	// outcomes are recorded inside the breaker so the window holds the
	// current call when ReadyToTrip runs
	guarded := circuitbreaker.Gobreaker(p.breaker)(p.window.record(next))

	return func(ctx context.Context, request any) (any, error) {
		response, err := guarded(ctx, request)
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, ErrCircuitOpen
		}

		return response, err
	}
}

func (p *Policy) retry(next endpoint.Endpoint) endpoint.Endpoint {
	balancer := lb.NewRoundRobin(sd.FixedEndpointer{next})
	cfg := p.cfg

	return func(ctx context.Context, request any) (any, error) {
		ctx, cancel := context.WithTimeout(ctx, cfg.TimeLimiter.Timeout)
		defer cancel()

		callback := func(n int, received error) (bool, error) {
			if n >= cfg.Retry.MaxAttempts {
				return false, ErrRetriesExhausted
			}

			p.metrics.retried(p.name)

			if cfg.Retry.WaitDuration > 0 {
				select {
				case <-ctx.Done():
					return false, ctx.Err()
				case <-time.After(cfg.Retry.WaitDuration):
				}
			}

			return true, nil
		}

		retrying := lb.RetryWithCallback(cfg.TimeLimiter.Timeout, balancer, callback)

		response, err := retrying(ctx, request)
		if err == nil {
			return response, nil
		}

		var re lb.RetryError
		if errors.As(err, &re) {
			err = re.Final
		}

		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrTimeout
		}

		return nil, err
	}
}
