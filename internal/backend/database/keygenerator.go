package database

import (
	"sync"
	"time"
)

// TimestampLayout is the ISO-8601 form used for record keys. Fixed width so
// keys sort lexicographically in creation order.
const TimestampLayout = "2006-01-02T15:04:05.000000"

// TimestampGenerator issues unique, strictly increasing record keys
type TimestampGenerator struct {
	mu   sync.Mutex
	now  func() time.Time
	last time.Time
}

// NewTimestampGenerator creates a generator backed by the wall clock
func NewTimestampGenerator() *TimestampGenerator {
	return &TimestampGenerator{now: time.Now}
}

// Next returns a key later than every key issued before it. When the clock
// has not moved past the previous key it advances by one microsecond.
func (g *TimestampGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	t := g.now().Truncate(time.Microsecond)
	if !t.After(g.last) {
		t = g.last.Add(time.Microsecond)
	}
	g.last = t
	return t.Format(TimestampLayout)
}
