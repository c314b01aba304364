package ratelimit

import (
	"testing"
	"time"
)

func TestBudget_Exhaustion(t *testing.T) {
	b := NewBudget(2)

	for i := 0; i < 2; i++ {
		if !b.Allow() {
			t.Fatalf("request %d denied under budget", i+1)
		}
		if err := b.Use(); err != nil {
			t.Fatalf("Use %d: %v", i+1, err)
		}
	}

	if b.Allow() {
		t.Error("Allow must deny once the budget is spent")
	}
	if err := b.Use(); err == nil {
		t.Error("Use must error once the budget is spent")
	}
}

func TestBudget_ZeroMaxIsUnlimited(t *testing.T) {
	b := NewBudget(0)
	for i := 0; i < 500; i++ {
		if !b.Allow() {
			t.Fatal("unlimited budget denied a request")
		}
		if err := b.Use(); err != nil {
			t.Fatalf("Use: %v", err)
		}
	}
}

func TestBudget_ResetsAfterWindow(t *testing.T) {
	b := NewBudget(1)
	if err := b.Use(); err != nil {
		t.Fatalf("Use: %v", err)
	}
	if b.Allow() {
		t.Fatal("budget should be spent")
	}

	// Force the window boundary into the past.
	b.mu.Lock()
	b.resetTime = time.Now().Add(-time.Minute)
	b.mu.Unlock()

	if !b.Allow() {
		t.Error("budget must reset after the window passes")
	}
}
