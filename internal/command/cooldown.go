package command

import (
	"sync"
	"time"
)

// #region cooldown

// evictionFactor bounds registry growth: entries older than this many
// cooldown periods are dropped on each check.
const evictionFactor = 10

// CooldownRegistry tracks per-command last-execution times so rapid
// repeats of the same command are suppressed.
type CooldownRegistry struct {
	mu     sync.Mutex
	period time.Duration
	last   map[string]time.Time
	now    func() time.Time
}

// NewCooldownRegistry creates a registry with the given cooldown
// period. A zero period disables suppression but still records
// timestamps.
func NewCooldownRegistry(period time.Duration) *CooldownRegistry {
	return &CooldownRegistry{
		period: period,
		last:   make(map[string]time.Time),
		now:    time.Now,
	}
}

// Allow reports whether the command may run now, and if so records the
// execution time. A command inside its cooldown window is refused
// without refreshing its timestamp.
func (c *CooldownRegistry) Allow(command string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.evict(now)

	if c.period > 0 {
		if last, ok := c.last[command]; ok && now.Sub(last) < c.period {
			return false
		}
	}
	c.last[command] = now
	return true
}

// evict drops entries old enough that they can never suppress again.
func (c *CooldownRegistry) evict(now time.Time) {
	if c.period <= 0 {
		// Without a window the map would only grow; keep it empty.
		for k := range c.last {
			delete(c.last, k)
		}
		return
	}
	horizon := evictionFactor * c.period
	for k, t := range c.last {
		if now.Sub(t) > horizon {
			delete(c.last, k)
		}
	}
}

// #endregion cooldown
