// Package ident produces display identifiers for platform notification calls.
package ident

import (
	"math"
	"time"
)

// Generator derives identifiers from a clock. The zero-value generator uses
// wall-clock time.
type Generator struct {
	now func() time.Time
}

func New() *Generator {
	return &Generator{now: time.Now}
}

// NewWithClock builds a generator on an injected clock, for tests.
func NewWithClock(now func() time.Time) *Generator {
	return &Generator{now: now}
}

// NextID returns current epoch milliseconds modulo MaxInt32. Non-negative and
// within the platform's 32-bit display-identifier range; two calls in the
// same millisecond collide, which merely replaces one display with another.
func (g *Generator) NextID() int {
	now := g.now
	if now == nil {
		now = time.Now
	}
	return int(now().UnixMilli() % int64(math.MaxInt32))
}
