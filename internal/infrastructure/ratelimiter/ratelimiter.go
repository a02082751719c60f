package ratelimiter

import (
	"errors"
	"math"
	"net/http"
	"strings"
	"sync"
	"time"
)

const (
	bucketKeyPrefix   = "rl:bucket:"
	lastFillKeyPrefix = "rl:fill:"
	defaultSourceKey  = "X-RateLimit-Key"
)

type Limiter interface {
	Allow(sourceKey string) bool
	GetSourceKey(r *http.Request) string
	Remaining(sourceKey string) int
	GetMaxBurst() int
}

type Options struct {
	MaxRatePerSecond int
	MaxBurst         int
	CacheTTL         time.Duration
	SourceHeaderKey  string
	Cache            GetterSetter
}

// RateLimiter is a token bucket per source key over a TTL cache.
type RateLimiter struct {
	maxRatePerMillisecond float64
	maxBurst              int
	cache                 GetterSetter
	cacheTTL              time.Duration
	sourceHeaderKey       string
	// Per-key locks to ensure atomic operations for each source
	locks sync.Map // map[string]*sync.Mutex
}

func New(opts Options) *RateLimiter {
	cache := opts.Cache
	if cache == nil {
		cache = NewInMemory()
	}

	cacheTTL := opts.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}

	headerKey := opts.SourceHeaderKey
	if headerKey == "" {
		headerKey = defaultSourceKey
	}

	return &RateLimiter{
		maxRatePerMillisecond: float64(opts.MaxRatePerSecond) / 1000.0,
		maxBurst:              opts.MaxBurst,
		cache:                 cache,
		cacheTTL:              cacheTTL,
		sourceHeaderKey:       headerKey,
	}
}

func (rl *RateLimiter) getLock(sourceKey string) *sync.Mutex {
	lock, _ := rl.locks.LoadOrStore(sourceKey, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

type bucketState struct {
	tokens   int
	lastFill int64 // Unix milliseconds
}

func (rl *RateLimiter) getState(sourceKey string) bucketState {
	bucketKey := bucketKeyPrefix + sourceKey
	lastFillKey := lastFillKeyPrefix + sourceKey

	bucket, bucketErr := rl.cache.Get(bucketKey)
	lastFill, fillErr := rl.cache.Get(lastFillKey)

	if errors.Is(bucketErr, ErrCacheMiss) || errors.Is(fillErr, ErrCacheMiss) {
		return bucketState{
			tokens:   rl.maxBurst,
			lastFill: time.Now().UnixMilli(),
		}
	}

	// On cache error (not miss), fail open with full bucket
	if bucketErr != nil || fillErr != nil {
		return bucketState{
			tokens:   rl.maxBurst,
			lastFill: time.Now().UnixMilli(),
		}
	}

	return bucketState{
		tokens:   bucket,
		lastFill: int64(lastFill),
	}
}

func (rl *RateLimiter) setState(sourceKey string, state bucketState) {
	_ = rl.cache.SetWithExpiration(bucketKeyPrefix+sourceKey, state.tokens, rl.cacheTTL)
	_ = rl.cache.SetWithExpiration(lastFillKeyPrefix+sourceKey, int(state.lastFill), rl.cacheTTL)
}

func (rl *RateLimiter) refillTokens(state bucketState, now int64) bucketState {
	elapsed := now - state.lastFill
	if elapsed <= 0 {
		return state // No time has passed
	}

	// Credit whole tokens only; sub-token accrual stays banked in
	// lastFill so frequent callers still refill at the configured rate.
	whole := int(math.Floor(float64(elapsed) * rl.maxRatePerMillisecond))
	if whole <= 0 {
		return state
	}

	tokens := state.tokens + whole
	if tokens >= rl.maxBurst {
		return bucketState{
			tokens:   rl.maxBurst,
			lastFill: now,
		}
	}

	return bucketState{
		tokens:   tokens,
		lastFill: state.lastFill + int64(float64(whole)/rl.maxRatePerMillisecond),
	}
}

func (rl *RateLimiter) Allow(sourceKey string) bool {
	lock := rl.getLock(sourceKey)
	lock.Lock()
	defer lock.Unlock()

	now := time.Now().UnixMilli()
	state := rl.getState(sourceKey)
	newState := rl.refillTokens(state, now)

	if newState.tokens > 0 {
		newState.tokens--
		rl.setState(sourceKey, newState)
		return true
	}

	// No tokens available - still persist the refill bookkeeping
	if newState.lastFill != state.lastFill {
		rl.setState(sourceKey, newState)
	}
	return false
}

func (rl *RateLimiter) Remaining(sourceKey string) int {
	lock := rl.getLock(sourceKey)
	lock.Lock()
	defer lock.Unlock()

	now := time.Now().UnixMilli()
	state := rl.getState(sourceKey)
	newState := rl.refillTokens(state, now)

	if newState.tokens != state.tokens || newState.lastFill != state.lastFill {
		rl.setState(sourceKey, newState)
	}

	return newState.tokens
}

func (rl *RateLimiter) GetMaxBurst() int {
	return rl.maxBurst
}

// GetSourceKey prefers the configured header (first hop for
// X-Forwarded-For chains), falling back to the remote address.
func (rl *RateLimiter) GetSourceKey(r *http.Request) string {
	if v := r.Header.Get(rl.sourceHeaderKey); v != "" {
		if idx := strings.IndexByte(v, ','); idx > 0 {
			return strings.TrimSpace(v[:idx])
		}
		return v
	}
	return r.RemoteAddr
}
