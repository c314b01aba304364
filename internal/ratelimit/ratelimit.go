// Package ratelimit budgets outbound AI requests so a busy day cannot burn
// through the whole quota.
package ratelimit

import (
	"fmt"
	"sync"
	"time"

	"github.com/newsmesh/newsmesh/internal/logger"
)

// Budget counts requests against a daily maximum. Zero max means unlimited.
type Budget struct {
	mu        sync.Mutex
	count     int
	max       int
	resetTime time.Time
}

func NewBudget(max int) *Budget {
	return &Budget{
		max:       max,
		resetTime: time.Now().Add(24 * time.Hour),
	}
}

func (b *Budget) checkReset() {
	if time.Now().After(b.resetTime) {
		b.count = 0
		b.resetTime = time.Now().Add(24 * time.Hour)
	}
}

// Allow reports whether another request fits the budget.
func (b *Budget) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.checkReset()
	if b.max > 0 && b.count >= b.max {
		logger.Warn("AI request budget exhausted", "used", b.count, "max", b.max)
		return false
	}
	return true
}

// Use consumes one request from the budget.
func (b *Budget) Use() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.checkReset()
	if b.max > 0 && b.count >= b.max {
		return fmt.Errorf("AI request budget exceeded (%d/%d)", b.count, b.max)
	}
	b.count++
	logger.Debug("AI request budget", "used", b.count, "max", b.max)
	return nil
}
