package ratelimiter

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestAllowConsumesBurst(t *testing.T) {
	rl := New(Options{
		MaxRatePerSecond: 1,
		MaxBurst:         3,
	})

	for i := 0; i < 3; i++ {
		if !rl.Allow("client-a") {
			t.Fatalf("request %d within burst was denied", i+1)
		}
	}

	if rl.Allow("client-a") {
		t.Error("request beyond burst was allowed")
	}
}

func TestSourcesAreIndependent(t *testing.T) {
	rl := New(Options{
		MaxRatePerSecond: 1,
		MaxBurst:         1,
	})

	if !rl.Allow("client-a") {
		t.Fatal("first request for client-a denied")
	}
	if rl.Allow("client-a") {
		t.Error("client-a exceeded burst but was allowed")
	}
	if !rl.Allow("client-b") {
		t.Error("client-b was throttled by client-a's bucket")
	}
}

func TestTokensRefillOverTime(t *testing.T) {
	rl := New(Options{
		MaxRatePerSecond: 100,
		MaxBurst:         1,
	})

	if !rl.Allow("client-a") {
		t.Fatal("first request denied")
	}
	if rl.Allow("client-a") {
		t.Fatal("burst of 1 allowed a second immediate request")
	}

	// At 100 tokens/second one token is back within ~10ms.
	time.Sleep(50 * time.Millisecond)

	if !rl.Allow("client-a") {
		t.Error("no token available after refill window")
	}
}

func TestFrequentPollingStillRefills(t *testing.T) {
	rl := New(Options{
		MaxRatePerSecond: 10,
		MaxBurst:         2,
	})

	for i := 0; i < 2; i++ {
		if !rl.Allow("client-a") {
			t.Fatalf("request %d within burst was denied", i+1)
		}
	}

	// Polling faster than one whole-token interval (100ms at 10/s) must
	// not discard the sub-token accrual between calls.
	allowed := 0
	for i := 0; i < 50; i++ {
		time.Sleep(20 * time.Millisecond)
		if rl.Allow("client-a") {
			allowed++
		}
	}

	if allowed < 8 || allowed > 14 {
		t.Errorf("allowed %d requests over ~1s at 10/s, want ~10", allowed)
	}
}

func TestRefillBanksFractionalAccrual(t *testing.T) {
	rl := New(Options{
		MaxRatePerSecond: 10,
		MaxBurst:         5,
	})

	state := bucketState{tokens: 0, lastFill: 0}

	// 50ms at 10/s is half a token: nothing credited, lastFill untouched.
	state = rl.refillTokens(state, 50)
	if state.tokens != 0 || state.lastFill != 0 {
		t.Fatalf("after 50ms: tokens = %d, lastFill = %d, want 0/0", state.tokens, state.lastFill)
	}

	// Another 100ms brings the total to 150ms: one whole token, with the
	// leftover 50ms still banked.
	state = rl.refillTokens(state, 150)
	if state.tokens != 1 {
		t.Errorf("after 150ms: tokens = %d, want 1", state.tokens)
	}
	if state.lastFill != 100 {
		t.Errorf("after 150ms: lastFill = %d, want 100", state.lastFill)
	}
}

func TestRemainingReportsTokens(t *testing.T) {
	rl := New(Options{
		MaxRatePerSecond: 1,
		MaxBurst:         5,
	})

	if got := rl.Remaining("fresh"); got != 5 {
		t.Errorf("Remaining for fresh source = %d, want 5", got)
	}

	rl.Allow("fresh")
	rl.Allow("fresh")

	if got := rl.Remaining("fresh"); got != 3 {
		t.Errorf("Remaining after 2 requests = %d, want 3", got)
	}
}

func TestGetSourceKey(t *testing.T) {
	rl := New(Options{
		MaxRatePerSecond: 1,
		MaxBurst:         1,
		SourceHeaderKey:  "X-Forwarded-For",
	})

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.1:1234"
	if got := rl.GetSourceKey(r); got != "10.0.0.1:1234" {
		t.Errorf("fallback source key = %q, want remote addr", got)
	}

	r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	if got := rl.GetSourceKey(r); got != "203.0.113.7" {
		t.Errorf("forwarded source key = %q, want first hop", got)
	}
}
