package koi

import (
	"sync"

	"golang.org/x/time/rate"
)

// CooldownCheck builds a check that rate limits invocations per user with a
// token bucket, denying while the bucket is empty,
// limit is the refill rate, burst the bucket size
func CooldownCheck(name string, limit rate.Limit, burst int) Check {
	var mu sync.Mutex
	buckets := map[string]*rate.Limiter{}
	return NewCheck(name, func(ctx *Ctx) (bool, error) {
		user := ctx.User()
		if user == nil {
			return true, nil
		}
		mu.Lock()
		bucket, ok := buckets[user.ID]
		if !ok {
			bucket = rate.NewLimiter(limit, burst)
			buckets[user.ID] = bucket
		}
		mu.Unlock()
		return bucket.Allow(), nil
	})
}
