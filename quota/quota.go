// Package quota enforces per tier request, search and concurrency limits for
// identities. TierLimiter implements core.Admission.
package quota

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/hupe1980/agentcouncil/core"
	"github.com/hupe1980/agentcouncil/logging"
)

// Limits are the quotas of one tier. Zero values mean unlimited.
type Limits struct {
	RequestsPerMinute int `mapstructure:"requests_per_minute" yaml:"requests_per_minute"`
	SearchesPerMinute int `mapstructure:"searches_per_minute" yaml:"searches_per_minute"`
	ConcurrentAgents  int `mapstructure:"concurrent_agents" yaml:"concurrent_agents"`
}

// DefaultLimits returns the built-in limits per tier.
func DefaultLimits() map[core.Tier]Limits {
	return map[core.Tier]Limits{
		core.TierFree:       {RequestsPerMinute: 10, SearchesPerMinute: 20, ConcurrentAgents: 2},
		core.TierPro:        {RequestsPerMinute: 60, SearchesPerMinute: 120, ConcurrentAgents: 5},
		core.TierEnterprise: {RequestsPerMinute: 600, SearchesPerMinute: 1200, ConcurrentAgents: 20},
	}
}

// Options configures a TierLimiter.
type Options struct {
	// Limits per tier. Tiers missing from the map use the free tier limits.
	Limits map[core.Tier]Limits
	Logger logging.Logger
	// Now is the clock used for token buckets.
	Now func() time.Time
}

type identityState struct {
	requests *rate.Limiter
	searches *rate.Limiter
	agents   *semaphore.Weighted
}

// TierLimiter admits requests, searches and agent slots per identity.
type TierLimiter struct {
	mu     sync.Mutex
	states map[string]*identityState
	opts   Options
}

var _ core.Admission = (*TierLimiter)(nil)

// New creates a TierLimiter.
func New(optFns ...func(o *Options)) *TierLimiter {
	opts := Options{
		Limits: DefaultLimits(),
		Logger: logging.NoOpLogger{},
		Now:    time.Now,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	opts.Logger = logging.OrNoOp(opts.Logger)

	return &TierLimiter{
		states: make(map[string]*identityState),
		opts:   opts,
	}
}

// LimitsFor returns the limits applied to tier.
func (l *TierLimiter) LimitsFor(tier core.Tier) Limits {
	if lim, ok := l.opts.Limits[tier]; ok {
		return lim
	}
	return l.opts.Limits[core.TierFree]
}

func perMinute(n int) *rate.Limiter {
	if n <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(n)), n)
}

func (l *TierLimiter) state(id core.Identity) *identityState {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := string(id.Tier) + ":" + id.Key()

	s, ok := l.states[key]
	if !ok {
		lim := l.LimitsFor(id.Tier)
		s = &identityState{
			requests: perMinute(lim.RequestsPerMinute),
			searches: perMinute(lim.SearchesPerMinute),
		}

		if lim.ConcurrentAgents > 0 {
			s.agents = semaphore.NewWeighted(int64(lim.ConcurrentAgents))
		}

		l.states[key] = s
	}

	return s
}

// AllowRequest consumes one request token.
func (l *TierLimiter) AllowRequest(_ context.Context, id core.Identity) error {
	if !l.state(id).requests.AllowN(l.opts.Now(), 1) {
		l.opts.Logger.Warn("quota.request.rejected", "user_id", id.UserID, "tier", id.Tier)
		return fmt.Errorf("%w: requests per minute for %s tier", core.ErrQuotaExceeded, id.Tier)
	}
	return nil
}

// AllowSearch consumes one search token.
func (l *TierLimiter) AllowSearch(_ context.Context, id core.Identity) error {
	if !l.state(id).searches.AllowN(l.opts.Now(), 1) {
		l.opts.Logger.Warn("quota.search.rejected", "user_id", id.UserID, "tier", id.Tier)
		return fmt.Errorf("%w: searches per minute for %s tier", core.ErrQuotaExceeded, id.Tier)
	}
	return nil
}

// AcquireAgent reserves one concurrent agent slot. It never blocks: when all
// slots are taken the call is refused. The returned release func is
// idempotent.
func (l *TierLimiter) AcquireAgent(ctx context.Context, id core.Identity) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s := l.state(id)
	if s.agents == nil {
		return func() {}, nil
	}

	if !s.agents.TryAcquire(1) {
		l.opts.Logger.Warn("quota.agent.rejected", "user_id", id.UserID, "tier", id.Tier)
		return nil, fmt.Errorf("%w: concurrent agents for %s tier", core.ErrQuotaExceeded, id.Tier)
	}

	var once sync.Once

	return func() { once.Do(func() { s.agents.Release(1) }) }, nil
}
