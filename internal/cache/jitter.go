package cache

import (
	"math/rand"
	"sync"
	"time"
)

// Jitter spreads cache expirations by adding up to 10% of the ttl.
// It is safe for concurrent use.
type Jitter struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func NewJitter() *Jitter {
	return &Jitter{rnd: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// TTL returns ttl plus a random extra in [0, ttl/10]. A non-positive ttl means no expiry and is returned as 0.
func (j *Jitter) TTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return 0
	}
	jitterMax := int64(ttl) / 10
	j.mu.Lock()
	defer j.mu.Unlock()
	return ttl + time.Duration(j.rnd.Int63n(jitterMax+1))
}
