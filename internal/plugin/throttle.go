package plugin

import (
	"sync"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/time/rate"
)

// sweepInterval is how often idle limiters are pruned.
const sweepInterval = time.Minute

// throttle keeps one token bucket per sender name. A nil throttle allows
// everything. A bucket that has refilled completely carries no state, so it
// is dropped on the next sweep.
type throttle struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	limiters  map[string]*rate.Limiter
	now       func() time.Time
	lastSweep time.Time
}

func newThrottle(perSecond float64, burst int) *throttle {
	if perSecond <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return &throttle{
		limit:     rate.Limit(perSecond),
		burst:     burst,
		limiters:  make(map[string]*rate.Limiter),
		now:       time.Now,
		lastSweep: time.Now(),
	}
}

func (t *throttle) allow(sender string) bool {
	if t == nil {
		return true
	}
	key := fold(sender)
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	if now.Sub(t.lastSweep) >= sweepInterval {
		t.sweep(now)
	}
	lim, ok := t.limiters[key]
	if !ok {
		lim = rate.NewLimiter(t.limit, t.burst)
		t.limiters[key] = lim
	}
	return lim.AllowN(now, 1)
}

// sweep drops limiters that are back to a full bucket. Callers hold t.mu.
func (t *throttle) sweep(now time.Time) {
	for key, lim := range t.limiters {
		if lim.TokensAt(now) >= float64(t.burst) {
			delete(t.limiters, key)
		}
	}
	t.lastSweep = now
}

func fold(s string) string {
	return cases.Fold().String(s)
}
