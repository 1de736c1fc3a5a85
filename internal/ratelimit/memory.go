package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps the sliding windows in process memory. Expired
// timestamps are dropped lazily on the next check, not by a background
// sweep; Cleanup only reclaims fully-idle keys.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string][]time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{windows: make(map[string][]time.Time)}
}

func (m *MemoryStore) Hit(_ context.Context, key string, window time.Duration, max int, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	live := expire(m.windows[key], window, now)
	if len(live) >= max {
		m.windows[key] = live
		return false, nil
	}
	m.windows[key] = append(live, now)
	return true, nil
}

func (m *MemoryStore) Usage(_ context.Context, key string, window time.Duration, now time.Time) (WindowUsage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	live := expire(m.windows[key], window, now)
	m.windows[key] = live
	usage := WindowUsage{Used: len(live)}
	if len(live) > 0 {
		usage.OldestAt = live[0]
	}
	return usage, nil
}

func (m *MemoryStore) Cleanup(_ context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key, stamps := range m.windows {
		// The longest window bounds how stale an entry can still matter.
		live := expire(stamps, longestWindow(), now)
		if len(live) == 0 {
			delete(m.windows, key)
			removed++
			continue
		}
		m.windows[key] = live
	}
	return removed, nil
}

// expire drops timestamps older than the window. Timestamps are appended in
// order, so the first survivor is the oldest.
func expire(stamps []time.Time, window time.Duration, now time.Time) []time.Time {
	cutoff := now.Add(-window)
	i := 0
	for ; i < len(stamps); i++ {
		if stamps[i].After(cutoff) {
			break
		}
	}
	return stamps[i:]
}

func longestWindow() time.Duration {
	longest := time.Duration(0)
	for _, limit := range Limits {
		if limit.Window > longest {
			longest = limit.Window
		}
	}
	return longest
}
