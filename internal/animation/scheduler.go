package animation

import (
	"sync"
	"time"
)

// Scheduler runs fn repeatedly until the returned handle is cancelled.
type Scheduler interface {
	Every(period time.Duration, fn func()) Handle
}

// Handle cancels a scheduled task. Cancel is idempotent.
type Handle interface {
	Cancel()
}

// TickerScheduler schedules with a time.Ticker per task.
type TickerScheduler struct{}

// Every starts a ticker goroutine calling fn each period.
func (TickerScheduler) Every(period time.Duration, fn func()) Handle {
	h := &tickerHandle{
		ticker: time.NewTicker(period),
		done:   make(chan struct{}),
	}
	go func() {
		for {
			select {
			case <-h.done:
				return
			case <-h.ticker.C:
				fn()
			}
		}
	}()
	return h
}

type tickerHandle struct {
	ticker *time.Ticker
	done   chan struct{}
	once   sync.Once
}

func (h *tickerHandle) Cancel() {
	h.once.Do(func() {
		h.ticker.Stop()
		close(h.done)
	})
}

// Locked wraps a scheduler so every callback runs while holding mu. Sessions
// use it to serialize ticks with UI input.
func Locked(inner Scheduler, mu sync.Locker) Scheduler {
	return lockedScheduler{inner: inner, mu: mu}
}

type lockedScheduler struct {
	inner Scheduler
	mu    sync.Locker
}

func (s lockedScheduler) Every(period time.Duration, fn func()) Handle {
	return s.inner.Every(period, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		fn()
	})
}
